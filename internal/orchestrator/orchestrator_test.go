package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gocp/gocp/internal/options"
)

func TestRunSingleFileIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	destDir := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(src, []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(destDir, 0o755))

	opts := &options.CopyOptions{}
	require.NoError(t, Run([]string{src, destDir}, opts))

	got, err := os.ReadFile(filepath.Join(destDir, "src.txt"))
	require.NoError(t, err)
	require.Equal(t, "hi", string(got))
}

func TestRunMultipleSourcesRequireDirTarget(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	dest := filepath.Join(dir, "notadir")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(dest, []byte("x"), 0o644))

	opts := &options.CopyOptions{}
	err := Run([]string{a, b, dest}, opts)
	require.Error(t, err)
}

func TestRunDirectoryRequiresRecursive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	dst := filepath.Join(dir, "dstdir")
	require.NoError(t, os.Mkdir(src, 0o755))

	opts := &options.CopyOptions{}
	err := Run([]string{src, dst}, opts)
	require.Error(t, err)
}

func TestRunDirectoryRecursive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	dst := filepath.Join(dir, "dstdir")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("z"), 0o644))

	opts := &options.CopyOptions{Recursive: true}
	require.NoError(t, Run([]string{src, dst}, opts))

	got, err := os.ReadFile(filepath.Join(dst, "f"))
	require.NoError(t, err)
	require.Equal(t, "z", string(got))
}

func TestRunCopyIntoSelfRejected(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	require.NoError(t, os.Mkdir(src, 0o755))
	dst := filepath.Join(src, "nested")

	opts := &options.CopyOptions{Recursive: true}
	err := Run([]string{src, dst}, opts)
	require.Error(t, err)
}

func TestBuildDestPathWithParents(t *testing.T) {
	got := BuildDestPath("/a/b/c.txt", "/out", true, true)
	require.Equal(t, filepath.Join("/out", "a/b/c.txt"), got)
}

func TestBuildDestPathWithoutParents(t *testing.T) {
	got := BuildDestPath("/a/b/c.txt", "/out", true, false)
	require.Equal(t, filepath.Join("/out", "c.txt"), got)
}
