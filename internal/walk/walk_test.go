package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gocp/gocp/internal/engine"
	"github.com/gocp/gocp/internal/options"
)

func TestCopyDirectoryFastBasic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("beta"), 0o644))

	opts := &options.CopyOptions{Recursive: true, PreserveMode: true}
	require.NoError(t, CopyDirectory(src, dst, opts, engine.NopSink{}))

	got, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "alpha", string(got))

	got, err = os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "beta", string(got))
}

func TestCopyDirectoryHardLinkDedup(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a"), []byte("shared"), 0o644))
	require.NoError(t, os.Link(filepath.Join(src, "a"), filepath.Join(src, "b")))

	opts := &options.CopyOptions{Recursive: true, PreserveLinks: true}
	require.NoError(t, CopyDirectory(src, dst, opts, engine.NopSink{}))

	ai, err := os.Stat(filepath.Join(dst, "a"))
	require.NoError(t, err)
	bi, err := os.Stat(filepath.Join(dst, "b"))
	require.NoError(t, err)
	require.True(t, os.SameFile(ai, bi))
}

func TestCopyDirectorySlowWithBackup(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.MkdirAll(dst, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "f"), []byte("old"), 0o644))

	opts := &options.CopyOptions{Recursive: true, Backup: options.BackupSimple, BackupSuffix: "~"}
	require.NoError(t, CopyDirectory(src, dst, opts, engine.NopSink{}))

	got, err := os.ReadFile(filepath.Join(dst, "f"))
	require.NoError(t, err)
	require.Equal(t, "new", string(got))

	backed, err := os.ReadFile(filepath.Join(dst, "f~"))
	require.NoError(t, err)
	require.Equal(t, "old", string(backed))
}

func TestCopyDirectorySymlinkEntry(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "target"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("target", filepath.Join(src, "link")))

	opts := &options.CopyOptions{Recursive: true}
	require.NoError(t, CopyDirectory(src, dst, opts, engine.NopSink{}))

	got, err := os.Readlink(filepath.Join(dst, "link"))
	require.NoError(t, err)
	require.Equal(t, "target", got)
}
