package fileio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeReaderReadsArbitraryRanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.bin")
	content := []byte("0123456789abcdef")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	r, err := OpenRangeReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(len(content)), r.Length())

	chunk, err := r.ReadRange(4, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), chunk)

	tail, err := r.ReadRange(12, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("cdef"), tail)
}

func TestAppenderWritesSequentially(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	a, err := CreateAppender(path)
	require.NoError(t, err)
	require.NoError(t, a.Append([]byte("hello ")))
	require.NoError(t, a.Append([]byte("world")))
	require.NoError(t, a.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}
