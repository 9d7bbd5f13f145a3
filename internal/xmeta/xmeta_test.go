package xmeta

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gocp/gocp/internal/options"
)

func statOf(t *testing.T, path string) *Stat {
	t.Helper()
	info, err := os.Lstat(path)
	require.NoError(t, err)
	sys := info.Sys().(*syscall.Stat_t)
	return &Stat{
		Mode:      info.Mode(),
		Uid:       sys.Uid,
		Gid:       sys.Gid,
		Atime:     syscall.Timespec(sys.Atim),
		Mtime:     syscall.Timespec(sys.Mtim),
		IsSymlink: info.Mode()&os.ModeSymlink != 0,
	}
}

func TestPreserveMetadataMode(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(srcPath, []byte("x"), 0o640))
	require.NoError(t, os.WriteFile(dstPath, []byte("x"), 0o644))

	st := statOf(t, srcPath)
	opts := &options.CopyOptions{PreserveMode: true}
	require.NoError(t, PreserveMetadata(srcPath, dstPath, st, opts))

	info, err := os.Lstat(dstPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestPreserveMetadataTimestamps(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(srcPath, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(dstPath, []byte("x"), 0o644))

	past := time.Unix(1_000_000, 0)
	require.NoError(t, os.Chtimes(srcPath, past, past))

	st := statOf(t, srcPath)
	opts := &options.CopyOptions{PreserveTimestamps: true}
	require.NoError(t, PreserveMetadata(srcPath, dstPath, st, opts))

	info, err := os.Lstat(dstPath)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), info.ModTime().Unix())
}

func TestOwnershipSkippedWithoutRoot(t *testing.T) {
	if IsRoot() {
		t.Skip("running as root; ownership-skip path not exercised")
	}
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(srcPath, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(dstPath, []byte("x"), 0o644))

	st := statOf(t, srcPath)
	opts := &options.CopyOptions{PreserveOwnership: true}
	// Unprivileged: ownership step must be skipped entirely, not attempted.
	require.NoError(t, PreserveMetadata(srcPath, dstPath, st, opts))
}
