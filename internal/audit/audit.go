// Package audit appends tamper-evident JSONL records for every
// security-relevant operation. Logging is diagnostic, not an operation gate:
// append failures warn and return, they never fail the calling operation.
package audit

import (
	"encoding/json"
	"os"
	"regexp"
	"time"

	"github.com/decred/slog"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// Record is one audit line. Detail must never contain private key material;
// Append redacts anything that looks like encoded key bytes.
type Record struct {
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlationId"`
	Operation     string            `json:"operation"`
	Outcome       string            `json:"outcome"`
	Detail        map[string]string `json:"detail,omitempty"`
}

// Log appends records to a single append-only file. Each append takes an
// exclusive advisory lock so concurrent processes never interleave partial
// lines.
type Log struct {
	path          string
	correlationID string
	log           slog.Logger
}

func New(path string, log slog.Logger) *Log {
	if log == nil {
		log = slog.Disabled
	}
	return &Log{
		path:          path,
		correlationID: uuid.NewString(),
		log:           log,
	}
}

// CorrelationID identifies all records appended by this process run.
func (l *Log) CorrelationID() string { return l.correlationID }

// A base58 run long enough to encode a 64-byte key. Public addresses are 32
// bytes (~44 chars) and pass through untouched.
var keyShapedRe = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{80,}`)

func redact(detail map[string]string) map[string]string {
	if detail == nil {
		return nil
	}
	out := make(map[string]string, len(detail))
	for k, v := range detail {
		out[k] = keyShapedRe.ReplaceAllString(v, "[redacted]")
	}
	return out
}

// Append writes one redacted JSON line. Best effort by design.
func (l *Log) Append(operation, outcome string, detail map[string]string) {
	if l == nil {
		return
	}
	rec := Record{
		Timestamp:     time.Now().UTC(),
		CorrelationID: l.correlationID,
		Operation:     operation,
		Outcome:       outcome,
		Detail:        redact(detail),
	}
	line, err := json.Marshal(rec)
	if err != nil {
		l.log.Warnf("audit: encode record: %v", err)
		return
	}
	line = append(line, '\n')

	fl := flock.New(l.path + ".lock")
	if err := fl.Lock(); err != nil {
		l.log.Warnf("audit: lock: %v", err)
		return
	}
	defer func() { _ = fl.Unlock() }()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		l.log.Warnf("audit: open: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		l.log.Warnf("audit: write: %v", err)
	}
}
