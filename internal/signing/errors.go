package signing

import (
	"errors"
	"fmt"
)

var (
	// ErrSignerMismatch means the transaction's fee payer is not the loaded
	// wallet. Never silently re-targeted.
	ErrSignerMismatch = errors.New("transaction fee payer does not match wallet address")

	// ErrStaleBlockhash means the unsigned transaction's blockhash is older
	// than the freshness window; the caller must Prepare again.
	ErrStaleBlockhash = errors.New("blockhash is older than the freshness window")
)

// PrepareError wraps a network failure while assembling a transaction.
// Prepare already retried with backoff before surfacing it.
type PrepareError struct {
	Err error
}

func (e *PrepareError) Error() string { return fmt.Sprintf("prepare transaction: %v", e.Err) }
func (e *PrepareError) Unwrap() error { return e.Err }

// SubmitError wraps a failed submission. Fatal submissions (explicit
// rejections echoed by the network, e.g. insufficient funds or a stale
// blockhash) are not retried.
type SubmitError struct {
	Fatal bool
	Err   error
}

func (e *SubmitError) Error() string { return fmt.Sprintf("submit transaction: %v", e.Err) }
func (e *SubmitError) Unwrap() error { return e.Err }

// RejectionError is returned by a Chain when the network definitively
// rejects a transaction. It marks the submission fatal.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return "transaction rejected: " + e.Reason }
