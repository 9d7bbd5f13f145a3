package single

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gocp/gocp/internal/cerr"
	"github.com/gocp/gocp/internal/engine"
	"github.com/gocp/gocp/internal/options"
)

func TestCopySingleBasic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	opts := &options.CopyOptions{}
	require.NoError(t, CopySingle(src, dst, opts, true, engine.NopSink{}))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestCopySingleNoClobberSkips(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	opts := &options.CopyOptions{NoClobber: true}
	require.NoError(t, CopySingle(src, dst, opts, true, engine.NopSink{}))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "old", string(got))
}

func TestCopySingleUpdateOlderSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	old := time.Unix(1_000_000, 0)
	require.NoError(t, os.WriteFile(src, []byte("old"), 0o644))
	require.NoError(t, os.Chtimes(src, old, old))
	require.NoError(t, os.WriteFile(dst, []byte("new"), 0o644))

	opts := &options.CopyOptions{HasUpdate: true, Update: options.UpdateOlder}
	require.NoError(t, CopySingle(src, dst, opts, true, engine.NopSink{}))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "new", string(got))
}

func TestCopySingleSameFileFails(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	opts := &options.CopyOptions{}
	err := CopySingle(src, src, opts, true, engine.NopSink{})
	require.Error(t, err)
	var cpErr *cerr.Error
	require.ErrorAs(t, err, &cpErr)
	require.Equal(t, cerr.KindSameFile, cpErr.Kind)
}

func TestCopySingleDirectoryOmitted(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	dst := filepath.Join(dir, "dstdir")
	require.NoError(t, os.Mkdir(src, 0o755))

	opts := &options.CopyOptions{}
	err := CopySingle(src, dst, opts, true, engine.NopSink{})
	require.Error(t, err)
	var cpErr *cerr.Error
	require.ErrorAs(t, err, &cpErr)
	require.Equal(t, cerr.KindOmitDirectory, cpErr.Kind)
}

func TestCopySingleSymlinkPreserved(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	src := filepath.Join(dir, "link")
	dst := filepath.Join(dir, "linkcopy")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	require.NoError(t, os.Symlink("target", src))

	opts := &options.CopyOptions{Dereference: options.DereferenceNever}
	require.NoError(t, CopySingle(src, dst, opts, true, engine.NopSink{}))

	got, err := os.Readlink(dst)
	require.NoError(t, err)
	require.Equal(t, "target", got)
}
