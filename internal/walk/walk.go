// Package walk implements the recursive directory copy: a
// descriptor-relative fast path for simple, policy-free copies and a
// path-based slow path for everything else, a hard-link dedup ledger
// shared by both, and deferred bottom-up directory metadata
// application. Grounded on original_source/src/dir.rs.
package walk

import (
	"os"
	"syscall"

	"github.com/gocp/gocp/internal/cerr"
	"github.com/gocp/gocp/internal/engine"
	"github.com/gocp/gocp/internal/options"
	"github.com/gocp/gocp/internal/progress"
	"github.com/gocp/gocp/internal/xmeta"
)

// CopyDirectory recursively copies srcRoot into dstRoot. It chooses the
// fast, descriptor-relative walker when opts.UseFastPath reports true
// and falls back to the slow, per-entry policy-aware walker otherwise
// (spec.md §4.5, §9's "branch once at the entry of the walker").
func CopyDirectory(srcRoot, dstRoot string, opts *options.CopyOptions, sink engine.Sink) error {
	srcInfo, err := os.Lstat(srcRoot)
	if err != nil {
		return cerr.Stat(srcRoot, err)
	}

	if srcInfo.Mode()&os.ModeSymlink != 0 {
		// srcRoot is a command-line operand, so -H follows it as well as -L.
		follow := opts.Dereference != options.DereferenceNever
		if !follow && opts.KeepDirectorySymlink {
			return copySymlinkRoot(srcRoot, dstRoot, srcInfo, opts)
		}
		if follow {
			if target, err := os.Stat(srcRoot); err == nil {
				srcInfo = target
			}
		}
	}

	if !srcInfo.IsDir() {
		return cerr.NotADirectory(srcRoot)
	}

	if _, err := os.Lstat(dstRoot); err != nil {
		if err := os.Mkdir(dstRoot, 0o700); err != nil && !os.IsExist(err) {
			return cerr.CreateDir(dstRoot, err)
		}
	}

	var rootDev uint64
	if sys, ok := srcInfo.Sys().(*syscall.Stat_t); ok {
		rootDev = uint64(sys.Dev)
	}

	ledger := NewLedger()
	meta := &dirMetaQueue{}
	dirProgress := progress.NewDirCounter(srcRoot, opts.Progress)

	var walkErr error
	if opts.UseFastPath() {
		srcDir, err := os.Open(srcRoot)
		if err != nil {
			return cerr.OpenRead(srcRoot, err)
		}
		dstDir, err := os.Open(dstRoot)
		if err != nil {
			srcDir.Close()
			return cerr.Stat(dstRoot, err)
		}
		ctx := &fastCtx{opts: opts, ledger: ledger, meta: meta, sink: sink, rootDev: rootDev, progress: dirProgress}
		walkErr = copyDirFast(ctx, srcDir, dstDir, srcRoot, dstRoot)
	} else {
		ctx := &slowCtx{opts: opts, ledger: ledger, meta: meta, sink: sink, rootDev: rootDev, progress: dirProgress}
		walkErr = copyDirSlow(ctx, srcRoot, dstRoot)
	}

	dirProgress.Finish()

	if walkErr != nil {
		return walkErr
	}
	return meta.applyAll(opts)
}

func copySymlinkRoot(src, dst string, srcInfo os.FileInfo, opts *options.CopyOptions) error {
	target, err := os.Readlink(src)
	if err != nil {
		return cerr.ReadLink(src, err)
	}
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return cerr.Remove(dst, err)
		}
	}
	if err := os.Symlink(target, dst); err != nil {
		return cerr.Symlink(dst, err)
	}
	return xmeta.PreserveMetadata(src, dst, statFromInfo(srcInfo, true), opts)
}
