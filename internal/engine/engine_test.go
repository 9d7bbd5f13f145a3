package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gocp/gocp/internal/options"
)

func TestCopyFileDataByteIdentity(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")

	content := make([]byte, 300*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(srcPath, content, 0o644))

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()

	dst, err := os.Create(dstPath)
	require.NoError(t, err)
	defer dst.Close()

	tag, err := CopyFileData(src, dst, int64(len(content)), srcPath, dstPath, options.ReflinkNever, NopSink{})
	require.NoError(t, err)
	require.NotEmpty(t, tag)

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestCopyFileDataEmptyFile(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(srcPath, nil, 0o644))

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()
	dst, err := os.Create(dstPath)
	require.NoError(t, err)
	defer dst.Close()

	// The single-file driver skips the cascade entirely for zero-byte
	// files (spec.md §4.1); CopyFileData itself still tolerates size=0.
	_, err = CopyFileData(src, dst, 0, srcPath, dstPath, options.ReflinkNever, NopSink{})
	require.NoError(t, err)
}

type countingSink struct{ n int64 }

func (s *countingSink) Inc(n int64) { s.n += n }

func TestCopyFileDataReportsProgress(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")
	content := make([]byte, 500*1024)
	require.NoError(t, os.WriteFile(srcPath, content, 0o644))

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()
	dst, err := os.Create(dstPath)
	require.NoError(t, err)
	defer dst.Close()

	sink := &countingSink{}
	_, err = CopyFileData(src, dst, int64(len(content)), srcPath, dstPath, options.ReflinkNever, sink)
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), sink.n)
}
