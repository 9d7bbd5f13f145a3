package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCopiesSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	root := Root()
	root.SetArgs([]string{src, dst})
	require.NoError(t, root.Execute())

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))
}

func TestRootRecursiveFlag(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	dst := filepath.Join(dir, "dstdir")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0o644))

	root := Root()
	root.SetArgs([]string{"-R", src, dst})
	require.NoError(t, root.Execute())

	got, err := os.ReadFile(filepath.Join(dst, "f"))
	require.NoError(t, err)
	require.Equal(t, "x", string(got))
}

func TestRootMissingOperandErrors(t *testing.T) {
	root := Root()
	root.SetArgs([]string{"onlyone"})
	require.Error(t, root.Execute())
}
