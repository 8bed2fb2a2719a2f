package signing

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	blockhash     solana.Hash
	blockhashErrs int // fail this many LatestBlockhash calls first
	blockhashN    int

	sendErr  error
	sendErrs int // fail this many SendTransaction calls first
	sendN    int
	sendSig  solana.Signature
}

func (f *fakeChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	f.blockhashN++
	if f.blockhashN <= f.blockhashErrs {
		return solana.Hash{}, errors.New("rpc: connection refused")
	}
	return f.blockhash, nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.sendN++
	if f.sendN <= f.sendErrs {
		if f.sendErr != nil {
			return solana.Signature{}, f.sendErr
		}
		return solana.Signature{}, errors.New("rpc: timeout")
	}
	return f.sendSig, nil
}

func testConfig() Config {
	return Config{MaxAttempts: 3, InitialInterval: time.Millisecond, Freshness: time.Minute}
}

func newTestPipeline(chain Chain) *Pipeline {
	return NewPipeline(chain, nil, nil, testConfig())
}

func mustKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return priv
}

func TestPrepareSignSubmitHappyPath(t *testing.T) {
	priv := mustKey(t)
	to := mustKey(t).PublicKey()
	chain := &fakeChain{blockhash: solana.Hash{1, 2, 3}}
	p := newTestPipeline(chain)

	unsigned, err := p.Prepare(context.Background(), TransferIntent{
		From: priv.PublicKey(), To: to, Lamports: 1000,
	})
	require.NoError(t, err)
	require.Equal(t, chain.blockhash, unsigned.Blockhash)
	require.Equal(t, priv.PublicKey(), unsigned.FeePayer)

	signed, err := p.Sign(unsigned, priv)
	require.NoError(t, err)
	require.NotEqual(t, solana.Signature{}, signed.Signature)

	receipt, err := p.Submit(context.Background(), signed)
	require.NoError(t, err)
	require.Equal(t, chain.sendSig, receipt.Signature)
}

func TestPrepareRetriesTransientFailures(t *testing.T) {
	chain := &fakeChain{blockhash: solana.Hash{9}, blockhashErrs: 2}
	p := newTestPipeline(chain)

	unsigned, err := p.Prepare(context.Background(), TransferIntent{
		From: mustKey(t).PublicKey(), To: mustKey(t).PublicKey(), Lamports: 1,
	})
	require.NoError(t, err)
	require.Equal(t, solana.Hash{9}, unsigned.Blockhash)
	require.Equal(t, 3, chain.blockhashN)
}

func TestPrepareGivesUpAfterBoundedAttempts(t *testing.T) {
	chain := &fakeChain{blockhashErrs: 100}
	p := newTestPipeline(chain)

	_, err := p.Prepare(context.Background(), TransferIntent{
		From: mustKey(t).PublicKey(), To: mustKey(t).PublicKey(), Lamports: 1,
	})
	var pe *PrepareError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 3, chain.blockhashN) // MaxAttempts, no more
}

func TestSignRejectsWrongFeePayer(t *testing.T) {
	priv := mustKey(t)
	other := mustKey(t)
	chain := &fakeChain{blockhash: solana.Hash{1}}
	p := newTestPipeline(chain)

	unsigned, err := p.Prepare(context.Background(), TransferIntent{
		From: other.PublicKey(), To: priv.PublicKey(), Lamports: 5,
	})
	require.NoError(t, err)

	_, err = p.Sign(unsigned, priv)
	require.ErrorIs(t, err, ErrSignerMismatch)
}

func TestSignRejectsStaleBlockhash(t *testing.T) {
	priv := mustKey(t)
	chain := &fakeChain{blockhash: solana.Hash{1}}
	p := newTestPipeline(chain)

	unsigned, err := p.Prepare(context.Background(), TransferIntent{
		From: priv.PublicKey(), To: mustKey(t).PublicKey(), Lamports: 5,
	})
	require.NoError(t, err)

	// Move the pipeline clock past the freshness window.
	p.now = func() time.Time { return unsigned.FetchedAt.Add(2 * time.Minute) }

	_, err = p.Sign(unsigned, priv)
	require.ErrorIs(t, err, ErrStaleBlockhash)
}

func TestSubmitRetriesTransientButNotRejections(t *testing.T) {
	priv := mustKey(t)

	// Transient failures are retried until success.
	chain := &fakeChain{blockhash: solana.Hash{1}, sendErrs: 2}
	p := newTestPipeline(chain)
	unsigned, err := p.Prepare(context.Background(), TransferIntent{
		From: priv.PublicKey(), To: mustKey(t).PublicKey(), Lamports: 5,
	})
	require.NoError(t, err)
	signed, err := p.Sign(unsigned, priv)
	require.NoError(t, err)
	_, err = p.Submit(context.Background(), signed)
	require.NoError(t, err)
	require.Equal(t, 3, chain.sendN)

	// Explicit rejection is fatal on the first attempt.
	chain2 := &fakeChain{blockhash: solana.Hash{1}, sendErrs: 100, sendErr: &RejectionError{Reason: "insufficient funds"}}
	p2 := newTestPipeline(chain2)
	unsigned2, err := p2.Prepare(context.Background(), TransferIntent{
		From: priv.PublicKey(), To: mustKey(t).PublicKey(), Lamports: 5,
	})
	require.NoError(t, err)
	signed2, err := p2.Sign(unsigned2, priv)
	require.NoError(t, err)

	_, err = p2.Submit(context.Background(), signed2)
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	require.True(t, se.Fatal)
	require.Equal(t, 1, chain2.sendN)
}

func TestSignChallengeVerifies(t *testing.T) {
	priv := mustKey(t)
	now := time.Now()

	ch, err := SignChallenge(priv, "poker-join", now)
	require.NoError(t, err)
	require.Contains(t, ch.Message, "Action: poker-join")
	require.Contains(t, ch.Message, "Wallet: "+priv.PublicKey().String())

	sig, err := base64.StdEncoding.DecodeString(ch.SignatureB64)
	require.NoError(t, err)
	pub := ed25519.PublicKey(priv.PublicKey().Bytes())
	require.True(t, ed25519.Verify(pub, []byte(ch.Message), sig))
}

func TestChallengeNoncesDiffer(t *testing.T) {
	priv := mustKey(t)
	a, err := SignChallenge(priv, "x", time.Now())
	require.NoError(t, err)
	b, err := SignChallenge(priv, "x", time.Now())
	require.NoError(t, err)
	require.NotEqual(t, a.Message, b.Message)
}
