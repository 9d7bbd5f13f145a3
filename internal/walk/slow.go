package walk

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/gocp/gocp/internal/cerr"
	"github.com/gocp/gocp/internal/engine"
	"github.com/gocp/gocp/internal/options"
	"github.com/gocp/gocp/internal/progress"
	"github.com/gocp/gocp/internal/single"
)

// slowCtx carries the state shared across one recursive slow-path copy.
type slowCtx struct {
	opts     *options.CopyOptions
	ledger   *Ledger
	meta     *dirMetaQueue
	sink     engine.Sink
	rootDev  uint64
	progress *progress.DirCounter
}

// copyDirSlow walks srcPath by plain path joins and defers every
// non-directory entry to single.CopySingle, so that -i/-n/-u/--backup/
// -l/-s/--attributes-only (anything options.IsSimple forbids on the
// fast path) are honored per entry. Grounded on
// original_source/src/dir.rs's copy_directory_walkdir and
// util.rs's should_follow_symlink.
func copyDirSlow(ctx *slowCtx, srcPath, dstPath string) error {
	srcInfo, err := os.Lstat(srcPath)
	if err != nil {
		return cerr.Stat(srcPath, err)
	}

	if _, err := os.Lstat(dstPath); err != nil {
		if err := os.Mkdir(dstPath, 0o700); err != nil && !os.IsExist(err) {
			return cerr.CreateDir(dstPath, err)
		}
	}

	entries, err := os.ReadDir(srcPath)
	if err != nil {
		return cerr.Stat(srcPath, err)
	}

	for _, e := range entries {
		childSrc := filepath.Join(srcPath, e.Name())
		childDst := filepath.Join(dstPath, e.Name())

		info, err := os.Lstat(childSrc)
		if err != nil {
			return cerr.Stat(childSrc, err)
		}

		isSymlink := info.Mode()&os.ModeSymlink != 0
		followDir := isSymlink && ctx.opts.Dereference == options.DereferenceAlways

		if info.IsDir() || followDir {
			target := info
			if followDir {
				target, err = os.Stat(childSrc)
				if err != nil {
					return cerr.Stat(childSrc, err)
				}
				if !target.IsDir() {
					if err := single.CopySingle(childSrc, childDst, ctx.opts, false, ctx.sink); err != nil {
						return err
					}
					if ctx.progress != nil {
						ctx.progress.Inc()
					}
					continue
				}
			}
			if ctx.opts.OneFileSystem {
				if sys, ok := target.Sys().(*syscall.Stat_t); ok && uint64(sys.Dev) != ctx.rootDev {
					continue
				}
			}
			if err := copyDirSlow(ctx, childSrc, childDst); err != nil {
				return err
			}
			continue
		}

		if ctx.opts.PreserveLinks && !isSymlink {
			if sys, ok := info.Sys().(*syscall.Stat_t); ok && sys.Nlink > 1 && info.Mode().IsRegular() {
				if orig, hit := ctx.ledger.LookupOrRegister(uint64(sys.Dev), uint64(sys.Ino), childDst); hit {
					_ = os.Remove(childDst)
					if err := os.Link(orig, childDst); err != nil {
						return cerr.HardLink(orig, childDst, err)
					}
					continue
				}
			}
		}

		if err := single.CopySingle(childSrc, childDst, ctx.opts, false, ctx.sink); err != nil {
			return err
		}
		if ctx.progress != nil {
			ctx.progress.Inc()
		}
	}

	ctx.meta.push(srcPath, dstPath, statFromInfo(srcInfo, false))
	return nil
}
