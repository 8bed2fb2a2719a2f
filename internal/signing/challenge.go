package signing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Challenge proves wallet ownership to the poker API without any on-chain
// transaction. The message layout is a pinned contract with the server.
type Challenge struct {
	Message      string
	SignatureB64 string
}

const challengeNonceLen = 13

func challengeNonce() (string, error) {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, challengeNonceLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b), nil
}

// SignChallenge builds and signs the ownership challenge for one API action.
// Offline; the private key never leaves the process.
func SignChallenge(priv solana.PrivateKey, action string, now time.Time) (Challenge, error) {
	nonce, err := challengeNonce()
	if err != nil {
		return Challenge{}, fmt.Errorf("challenge nonce: %w", err)
	}
	msg := fmt.Sprintf(
		"MintYourAgent Challenge\n"+
			"Action: %s\n"+
			"Wallet: %s\n"+
			"Timestamp: %d\n"+
			"Nonce: %s\n"+
			"\n"+
			"This signature proves you own this wallet.\n"+
			"Valid for 5 minutes.",
		action, priv.PublicKey(), now.UnixMilli(), nonce)

	sig, err := priv.Sign([]byte(msg))
	if err != nil {
		return Challenge{}, fmt.Errorf("sign challenge: %w", err)
	}
	return Challenge{
		Message:      msg,
		SignatureB64: base64.StdEncoding.EncodeToString(sig[:]),
	}, nil
}

func shortSig(sig solana.Signature) string {
	s := sig.String()
	if len(s) > 16 {
		return s[:16] + "..."
	}
	return s
}
