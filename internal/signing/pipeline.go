// Package signing turns a transaction intent into a submitted, signed
// transaction in three strictly ordered phases. Prepare and Submit talk to
// the network; Sign is pure and offline. The private key is borrowed for the
// duration of one Sign call and never transmitted.
package signing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/operatingdev/mintyouragent-skill/internal/audit"
)

// Chain is the network collaborator consumed by Prepare and Submit.
type Chain interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// TransferIntent describes a native transfer to assemble locally.
type TransferIntent struct {
	From     solana.PublicKey
	To       solana.PublicKey
	Lamports uint64
}

// UnsignedTransaction is immutable once constructed. FetchedAt anchors the
// blockhash freshness check in Sign.
type UnsignedTransaction struct {
	Tx        *solana.Transaction
	FeePayer  solana.PublicKey
	Blockhash solana.Hash
	FetchedAt time.Time
}

// SignedTransaction pairs the unsigned input with its signature.
type SignedTransaction struct {
	Unsigned  UnsignedTransaction
	Signature solana.Signature
}

// Receipt acknowledges a submitted transaction.
type Receipt struct {
	Signature   solana.Signature
	SubmittedAt time.Time
}

// Config bounds the retry behaviour and the blockhash freshness window.
type Config struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	Freshness       time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:     4,
		InitialInterval: 500 * time.Millisecond,
		Freshness:       60 * time.Second,
	}
}

// Pipeline executes prepare -> sign -> submit. No two signing operations run
// concurrently against the same keypair; callers serialize through the
// wallet store's lock.
type Pipeline struct {
	chain Chain
	audit *audit.Log
	log   slog.Logger
	cfg   Config
	now   func() time.Time
}

func NewPipeline(chain Chain, auditLog *audit.Log, log slog.Logger, cfg Config) *Pipeline {
	if log == nil {
		log = slog.Disabled
	}
	if cfg.MaxAttempts == 0 {
		cfg = DefaultConfig()
	}
	return &Pipeline{chain: chain, audit: auditLog, log: log, cfg: cfg, now: time.Now}
}

func (p *Pipeline) newBackoff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.InitialInterval
	// MaxAttempts counts total tries, so retries = attempts-1.
	return backoff.WithContext(backoff.WithMaxRetries(bo, p.cfg.MaxAttempts-1), ctx)
}

// Prepare fetches a fresh blockhash and assembles the transfer instructions.
// Network failures are retried with exponential backoff up to the configured
// attempt count, then surfaced as *PrepareError.
func (p *Pipeline) Prepare(ctx context.Context, intent TransferIntent) (UnsignedTransaction, error) {
	if intent.Lamports == 0 {
		return UnsignedTransaction{}, &PrepareError{Err: errors.New("transfer amount must be > 0")}
	}

	hash, err := backoff.RetryWithData(func() (solana.Hash, error) {
		h, err := p.chain.LatestBlockhash(ctx)
		if err != nil {
			p.log.Debugf("prepare: blockhash fetch failed, will retry: %v", err)
			return solana.Hash{}, err
		}
		return h, nil
	}, p.newBackoff(ctx))
	if err != nil {
		p.audit.Append("signing.prepare", "error", map[string]string{"error": err.Error()})
		return UnsignedTransaction{}, &PrepareError{Err: err}
	}

	ix := system.NewTransferInstruction(intent.Lamports, intent.From, intent.To).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		hash,
		solana.TransactionPayer(intent.From),
	)
	if err != nil {
		p.audit.Append("signing.prepare", "error", map[string]string{"error": err.Error()})
		return UnsignedTransaction{}, &PrepareError{Err: fmt.Errorf("assemble transaction: %w", err)}
	}

	unsigned := UnsignedTransaction{
		Tx:        tx,
		FeePayer:  intent.From,
		Blockhash: hash,
		FetchedAt: p.now(),
	}
	p.audit.Append("signing.prepare", "ok", map[string]string{
		"feePayer":  intent.From.String(),
		"blockhash": hash.String(),
	})
	return unsigned, nil
}

// Sign is a pure function of (keypair, unsigned): no I/O, no hidden state.
// It rejects a fee payer that is not the keypair's address and a blockhash
// older than the freshness window, which forces a re-Prepare.
func (p *Pipeline) Sign(unsigned UnsignedTransaction, priv solana.PrivateKey) (SignedTransaction, error) {
	if !unsigned.FeePayer.Equals(priv.PublicKey()) {
		p.audit.Append("signing.sign", "error", map[string]string{
			"feePayer": unsigned.FeePayer.String(),
			"wallet":   priv.PublicKey().String(),
			"error":    ErrSignerMismatch.Error(),
		})
		return SignedTransaction{}, fmt.Errorf("%w: tx declares %s, wallet is %s",
			ErrSignerMismatch, unsigned.FeePayer, priv.PublicKey())
	}
	if age := p.now().Sub(unsigned.FetchedAt); age > p.cfg.Freshness {
		p.audit.Append("signing.sign", "error", map[string]string{"error": ErrStaleBlockhash.Error()})
		return SignedTransaction{}, fmt.Errorf("%w: fetched %s ago", ErrStaleBlockhash, age.Round(time.Second))
	}

	sigs, err := unsigned.Tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(priv.PublicKey()) {
			return &priv
		}
		return nil
	})
	if err != nil {
		p.audit.Append("signing.sign", "error", map[string]string{"error": err.Error()})
		return SignedTransaction{}, fmt.Errorf("sign transaction: %w", err)
	}
	if len(sigs) == 0 {
		return SignedTransaction{}, errors.New("sign transaction: no signature produced")
	}

	p.audit.Append("signing.sign", "ok", map[string]string{"feePayer": unsigned.FeePayer.String()})
	return SignedTransaction{Unsigned: unsigned, Signature: sigs[0]}, nil
}

// Submit transmits the signed transaction and nothing else. Transient
// network errors are retried; explicit rejections echoed by the network are
// fatal and surfaced immediately.
func (p *Pipeline) Submit(ctx context.Context, signed SignedTransaction) (Receipt, error) {
	sig, err := backoff.RetryWithData(func() (solana.Signature, error) {
		s, err := p.chain.SendTransaction(ctx, signed.Unsigned.Tx)
		if err != nil {
			var rej *RejectionError
			if errors.As(err, &rej) {
				return solana.Signature{}, backoff.Permanent(err)
			}
			p.log.Debugf("submit: transient failure, will retry: %v", err)
			return solana.Signature{}, err
		}
		return s, nil
	}, p.newBackoff(ctx))
	if err != nil {
		var rej *RejectionError
		fatal := errors.As(err, &rej)
		p.audit.Append("signing.submit", "error", map[string]string{"error": err.Error()})
		return Receipt{}, &SubmitError{Fatal: fatal, Err: err}
	}

	// Truncated: a full signature is key-length base58 and would trip the
	// audit redaction guard.
	p.audit.Append("signing.submit", "ok", map[string]string{"signature": shortSig(sig)})
	return Receipt{Signature: sig, SubmittedAt: p.now()}, nil
}
