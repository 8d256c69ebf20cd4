package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "journal.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
}

func TestRecordReply(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.RecordReply(ctx, "Maria", "Maria Lopez", "hola, estas?", "te respondo en breve", "replied")
	require.NoError(t, err)
	err = s.RecordReply(ctx, "chat-42", "Contacto", "", "", "skipped")
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM replies").Scan(&count))
	assert.Equal(t, 2, count)

	var status string
	require.NoError(t, s.db.QueryRow(
		"SELECT status FROM replies WHERE conversation_key = ?", "chat-42").Scan(&status))
	assert.Equal(t, "skipped", status)
}

func TestOpenIsIdempotentAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s1, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s1.RecordReply(ctx, "k", "c", "m", "r", "replied"))
	require.NoError(t, s1.Close())

	// Reopening must keep the schema and the existing rows.
	s2, err := Open(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	var count int
	require.NoError(t, s2.db.QueryRow("SELECT COUNT(*) FROM replies").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCloseNilSafe(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
}
