package sparse

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gocp/gocp/internal/engine"
	"github.com/gocp/gocp/internal/options"
)

func TestCopySparseNeverDeclines(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(srcPath, []byte("hello"), 0o644))

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()
	dst, err := os.Create(dstPath)
	require.NoError(t, err)
	defer dst.Close()

	handled, err := CopySparse(src, dst, 5, srcPath, dstPath, options.SparseNever, engine.NopSink{})
	require.NoError(t, err)
	require.False(t, handled)
}

func TestCopySparseAlwaysPunchesHoles(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")

	content := make([]byte, 3*bufSize)
	copy(content[bufSize:2*bufSize], bytes.Repeat([]byte{0xEE}, bufSize))
	require.NoError(t, os.WriteFile(srcPath, content, 0o644))

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()
	dst, err := os.Create(dstPath)
	require.NoError(t, err)
	defer dst.Close()

	handled, err := CopySparse(src, dst, int64(len(content)), srcPath, dstPath, options.SparseAlways, engine.NopSink{})
	require.NoError(t, err)
	require.True(t, handled)

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestAllZero(t *testing.T) {
	require.True(t, allZero(make([]byte, 128)))
	b := make([]byte, 128)
	b[127] = 1
	require.False(t, allZero(b))
}
