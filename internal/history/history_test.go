package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "launch", "mint123", "SYMB"))
	require.NoError(t, s.Record(ctx, "poker", "game456", "won 0.02 SOL"))
	require.NoError(t, s.Record(ctx, "poker", "game789", "lost"))

	all, err := s.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	require.Equal(t, "game789", all[0].Ref)
	require.False(t, all[0].CreatedAt.IsZero())

	poker, err := s.Recent(ctx, "poker", 10)
	require.NoError(t, err)
	require.Len(t, poker, 2)

	one, err := s.Recent(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
}

func TestPruneKeepsNewest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < keepEntries+25; i++ {
		require.NoError(t, s.Record(ctx, "poker", fmt.Sprintf("game-%d", i), ""))
	}

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM history`).Scan(&count))
	require.Equal(t, keepEntries, count)

	recent, err := s.Recent(ctx, "", 1)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("game-%d", keepEntries+24), recent[0].Ref)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}
