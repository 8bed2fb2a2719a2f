package wallet

import "errors"

var (
	// ErrNotFound means no wallet record exists at the store path.
	ErrNotFound = errors.New("wallet not found")

	// ErrIntegrity means the stored record failed its checksum. The record is
	// never auto-repaired; the user must restore from a backup.
	ErrIntegrity = errors.New("wallet integrity check failed")

	// ErrLockContention means another process holds the wallet lock.
	ErrLockContention = errors.New("wallet is locked by another process")

	// ErrStorage covers refused overwrites and unusable store paths.
	ErrStorage = errors.New("wallet storage error")
)
