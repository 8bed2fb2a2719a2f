package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestAppendWritesOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := New(path, nil)

	l.Append("signing.prepare", "ok", map[string]string{"blockhash": "abc"})
	l.Append("signing.sign", "ok", nil)
	l.Append("signing.submit", "error", map[string]string{"reason": "timeout"})

	recs := readLines(t, path)
	require.Len(t, recs, 3)
	require.Equal(t, "signing.prepare", recs[0].Operation)
	require.Equal(t, "error", recs[2].Outcome)
	for _, r := range recs {
		require.Equal(t, l.CorrelationID(), r.CorrelationID)
		require.False(t, r.Timestamp.IsZero())
	}
}

func TestAppendRedactsKeyShapedMaterial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := New(path, nil)

	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	addr := priv.PublicKey().String()

	l.Append("wallet.create", "ok", map[string]string{
		"address": addr,
		"leak":    priv.String(),
	})

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), priv.String())
	require.Contains(t, string(raw), addr)
	require.Contains(t, string(raw), "[redacted]")
}

func TestAppendNeverFailsCaller(t *testing.T) {
	// Unwritable path: appends must be silently dropped, not panic.
	l := New(filepath.Join(t.TempDir(), "missing-dir", "audit.log"), nil)
	l.Append("op", "ok", nil)

	var nilLog *Log
	nilLog.Append("op", "ok", nil)
}

func TestDistinctProcessRunsGetDistinctCorrelationIDs(t *testing.T) {
	dir := t.TempDir()
	a := New(filepath.Join(dir, "audit.log"), nil)
	b := New(filepath.Join(dir, "audit.log"), nil)
	require.NotEqual(t, a.CorrelationID(), b.CorrelationID())
	require.False(t, strings.EqualFold(a.CorrelationID(), ""))
}
