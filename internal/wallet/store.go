// Package wallet custodies a single Solana keypair on disk. The private key
// lives only in process memory and in the checksummed record file; it is
// never written to logs or network payloads.
package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/gofrs/flock"
)

const (
	recordFormatVersion = "1"

	recordFile   = "wallet.json"
	recoveryFile = "recovery.txt"
	lockFile     = "wallet.lock"
	backupDir    = "backups"
)

// record is the on-disk wallet representation. Every field is covered by an
// integrity check on load: the checksum binds the private material and format
// version, and the address must match the key it derives from. Mutable
// metadata (creation time) lives in the recovery file instead so that any
// mutation of the record is detectable.
type record struct {
	PublicAddress string `json:"publicAddress"`
	PrivateKeyB58 string `json:"privateKey"`
	Checksum      string `json:"checksum"`
	FormatVersion string `json:"formatVersion"`
}

// BackupHandle points at a completed timestamped backup.
type BackupHandle struct {
	RecordPath   string
	RecoveryPath string
	CreatedAt    time.Time
}

// Store manages the wallet record under a home directory. One advisory file
// lock guards the record path; concurrent processes fail fast with
// ErrLockContention rather than interleave partial writes.
type Store struct {
	home string
	log  slog.Logger
}

func NewStore(home string, log slog.Logger) *Store {
	if log == nil {
		log = slog.Disabled
	}
	return &Store{home: home, log: log}
}

func (s *Store) recordPath() string   { return filepath.Join(s.home, recordFile) }
func (s *Store) recoveryPath() string { return filepath.Join(s.home, recoveryFile) }
func (s *Store) lockPath() string     { return filepath.Join(s.home, lockFile) }

// checksum binds the encoded private material to the record format version.
func checksum(privB58, formatVersion string) string {
	sum := sha256.Sum256([]byte(privB58 + formatVersion))
	return hex.EncodeToString(sum[:])[:16]
}

func (s *Store) ensureHome() error {
	if err := os.MkdirAll(s.home, 0o700); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrStorage, s.home, err)
	}
	return nil
}

// acquireLock takes the advisory lock, failing fast on contention. The
// returned release func is safe to call on every exit path.
func (s *Store) acquireLock() (func(), error) {
	if err := s.ensureHome(); err != nil {
		return nil, err
	}
	fl := flock.New(s.lockPath())
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !ok {
		return nil, ErrLockContention
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.log.Warnf("release wallet lock: %v", err)
		}
	}, nil
}

// Create generates a new keypair, persists the checksummed record, and writes
// a human-recoverable backup file. It refuses to overwrite an existing
// record, valid or not.
func (s *Store) Create() (solana.PrivateKey, error) {
	release, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := os.Stat(s.recordPath()); err == nil {
		return nil, fmt.Errorf("%w: record already exists at %s (backup and erase it first)", ErrStorage, s.recordPath())
	}

	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: generate key: %v", ErrStorage, err)
	}
	if err := s.persist(priv); err != nil {
		return nil, err
	}
	s.log.Infof("Created wallet %s", priv.PublicKey())
	return priv, nil
}

// ImportFrom validates externally supplied key material and persists it as a
// new record. Material is a base58 private key or a JSON byte array; callers
// must source it from stdin or a file, never argv.
func (s *Store) ImportFrom(material string) (solana.PrivateKey, error) {
	priv, err := parseKeyMaterial(material)
	if err != nil {
		return nil, err
	}

	release, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := os.Stat(s.recordPath()); err == nil {
		return nil, fmt.Errorf("%w: record already exists at %s", ErrStorage, s.recordPath())
	}
	if err := s.persist(priv); err != nil {
		return nil, err
	}
	s.log.Infof("Imported wallet %s", priv.PublicKey())
	return priv, nil
}

func parseKeyMaterial(material string) (solana.PrivateKey, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, fmt.Errorf("%w: empty key material", ErrStorage)
	}
	if strings.HasPrefix(material, "[") {
		var raw []byte
		if err := json.Unmarshal([]byte(material), &raw); err != nil {
			return nil, fmt.Errorf("%w: invalid key byte array: %v", ErrStorage, err)
		}
		if len(raw) != 64 {
			return nil, fmt.Errorf("%w: key byte array must be 64 bytes, got %d", ErrStorage, len(raw))
		}
		return solana.PrivateKey(raw), nil
	}
	priv, err := solana.PrivateKeyFromBase58(material)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base58 key: %v", ErrStorage, err)
	}
	return priv, nil
}

// persist writes the record and the recovery file atomically. Caller holds
// the lock.
func (s *Store) persist(priv solana.PrivateKey) error {
	privB58 := priv.String()
	rec := record{
		PublicAddress: priv.PublicKey().String(),
		PrivateKeyB58: privB58,
		Checksum:      checksum(privB58, recordFormatVersion),
		FormatVersion: recordFormatVersion,
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", ErrStorage, err)
	}
	if err := writeFileAtomic(s.recordPath(), b, 0o600); err != nil {
		return fmt.Errorf("%w: write record: %v", ErrStorage, err)
	}

	recovery := fmt.Sprintf(
		"MintYourAgent wallet recovery\n"+
			"=============================\n"+
			"Address:     %s\n"+
			"Private key: %s\n"+
			"Created:     %s\n"+
			"\n"+
			"Anyone holding the private key controls the funds.\n"+
			"Re-import with: mya wallet import\n",
		rec.PublicAddress, privB58, time.Now().UTC().Format(time.RFC3339))
	if err := writeFileAtomic(s.recoveryPath(), []byte(recovery), 0o600); err != nil {
		return fmt.Errorf("%w: write recovery file: %v", ErrStorage, err)
	}
	return nil
}

// Load reads the record, recomputes the checksum, and returns the keypair.
// A mismatching checksum is never repaired.
func (s *Store) Load() (solana.PrivateKey, error) {
	release, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.loadLocked()
}

func (s *Store) loadLocked() (solana.PrivateKey, error) {
	b, err := os.ReadFile(s.recordPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read record: %v", ErrStorage, err)
	}
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("%w: record is not valid JSON", ErrIntegrity)
	}
	if rec.Checksum != checksum(rec.PrivateKeyB58, rec.FormatVersion) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrIntegrity)
	}
	priv, err := solana.PrivateKeyFromBase58(rec.PrivateKeyB58)
	if err != nil {
		return nil, fmt.Errorf("%w: stored key is not valid base58", ErrIntegrity)
	}
	if priv.PublicKey().String() != rec.PublicAddress {
		return nil, fmt.Errorf("%w: stored address does not match key", ErrIntegrity)
	}
	return priv, nil
}

// Address returns the stored public address without exposing the private key.
func (s *Store) Address() (solana.PublicKey, error) {
	priv, err := s.Load()
	if err != nil {
		return solana.PublicKey{}, err
	}
	pub := priv.PublicKey()
	Zeroize(priv)
	return pub, nil
}

// Backup copies the current record plus recovery material to a timestamped
// location. Intended before any destructive operation.
func (s *Store) Backup() (BackupHandle, error) {
	release, err := s.acquireLock()
	if err != nil {
		return BackupHandle{}, err
	}
	defer release()

	if _, err := os.Stat(s.recordPath()); os.IsNotExist(err) {
		return BackupHandle{}, ErrNotFound
	}

	dir := filepath.Join(s.home, backupDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return BackupHandle{}, fmt.Errorf("%w: mkdir backups: %v", ErrStorage, err)
	}
	now := time.Now()
	stamp := now.Format("20060102_150405")
	h := BackupHandle{
		RecordPath:   filepath.Join(dir, "wallet_"+stamp+".json"),
		RecoveryPath: filepath.Join(dir, "recovery_"+stamp+".txt"),
		CreatedAt:    now,
	}
	if err := copyFile(s.recordPath(), h.RecordPath); err != nil {
		return BackupHandle{}, fmt.Errorf("%w: backup record: %v", ErrStorage, err)
	}
	if _, err := os.Stat(s.recoveryPath()); err == nil {
		if err := copyFile(s.recoveryPath(), h.RecoveryPath); err != nil {
			return BackupHandle{}, fmt.Errorf("%w: backup recovery file: %v", ErrStorage, err)
		}
	}
	s.log.Infof("Backup written to %s", h.RecordPath)
	return h, nil
}

// Erase overwrites the on-disk record bytes before removing the files, so
// filesystem recovery cannot surface stale key bytes. Callers should zeroize
// any in-memory copy with Zeroize.
func (s *Store) Erase() error {
	release, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	for _, path := range []string{s.recordPath(), s.recoveryPath()} {
		if err := shredFile(path); err != nil {
			return fmt.Errorf("%w: erase %s: %v", ErrStorage, path, err)
		}
	}
	s.log.Infof("Wallet record erased")
	return nil
}

// Zeroize overwrites in-memory private material with zeros.
func Zeroize(priv solana.PrivateKey) {
	for i := range priv {
		priv[i] = 0
	}
}

// shredFile overwrites the file's bytes with zeros, syncs, then removes it.
// Missing files are not an error.
func shredFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	zeros := make([]byte, fi.Size())
	if _, err := f.WriteAt(zeros, 0); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func copyFile(src, dst string) error {
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, b, 0o600)
}
