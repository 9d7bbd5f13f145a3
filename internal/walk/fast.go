package walk

import (
	"errors"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/gocp/gocp/internal/cerr"
	"github.com/gocp/gocp/internal/engine"
	"github.com/gocp/gocp/internal/options"
	"github.com/gocp/gocp/internal/plog"
	"github.com/gocp/gocp/internal/progress"
	"github.com/gocp/gocp/internal/single"
	"github.com/gocp/gocp/internal/sparse"
	"github.com/gocp/gocp/internal/xmeta"
)

// parallelThreshold is the regular-file count at which a directory's
// regular-file phase is copied by a bounded worker pool instead of
// sequentially (spec.md §4.5.1).
const parallelThreshold = 64

// maxFastWorkers bounds the worker pool for one directory's regular-file
// phase. Workers exist only for that phase and are joined before the
// walker proceeds to the next phase (spec.md §5 "Scheduling model").
const maxFastWorkers = 8

// fastCtx carries the state shared across one recursive fast-path copy.
type fastCtx struct {
	opts     *options.CopyOptions
	ledger   *Ledger
	meta     *dirMetaQueue
	sink     engine.Sink
	rootDev  uint64
	progress *progress.DirCounter
}

// classifiedEntry is one directory entry with its descriptor-relative
// stat already resolved, carried from the classification pass into
// whichever phase handles its type.
type classifiedEntry struct {
	name string
	st   unix.Stat_t
}

// copyDirFast copies the contents of srcDir into dstDir using
// descriptor-relative syscalls (Openat/Mkdirat/Fstatat/...) so that
// deeply nested trees never re-resolve a full path from the root. The
// directory's entries are classified once, then copied in the fixed
// phase order spec.md §4.5.1 and §5 require: regular files first
// (parallel only at or above parallelThreshold, and joined before the
// next phase starts), then specials, then symlinks, and subdirectories
// recursed last — so at most one phase's worker pool is ever alive
// for this directory, and recursion never races sibling regular-file
// copies. Grounded on original_source/src/dir.rs's copy_directory_raw /
// copy_dir_recurse.
func copyDirFast(ctx *fastCtx, srcDir, dstDir *os.File, srcPath, dstPath string) error {
	defer srcDir.Close()
	defer dstDir.Close()

	entries, err := srcDir.ReadDir(-1)
	if err != nil {
		return cerr.Stat(srcPath, err)
	}

	var srcSt unix.Stat_t
	if err := unix.Fstat(int(srcDir.Fd()), &srcSt); err != nil {
		return cerr.Stat(srcPath, err)
	}

	srcFd := int(srcDir.Fd())
	dstFd := int(dstDir.Fd())

	var regFiles, symlinks, specials, subdirs []classifiedEntry
	for _, e := range entries {
		name := e.Name()
		var st unix.Stat_t
		if err := unix.Fstatat(srcFd, name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			return cerr.Stat(srcPath+"/"+name, err)
		}
		ce := classifiedEntry{name: name, st: st}

		switch {
		case e.Type()&os.ModeSymlink != 0:
			symlinks = append(symlinks, ce)
		case e.Type().IsDir():
			subdirs = append(subdirs, ce)
		case e.Type()&(os.ModeNamedPipe|os.ModeDevice|os.ModeSocket) != 0:
			specials = append(specials, ce)
		default:
			regFiles = append(regFiles, ce)
		}
	}

	// Phase 1: regular files. Parallel only at or above parallelThreshold,
	// and always joined in full before phase 2 begins.
	deferred := &DeferredLinks{}
	if len(regFiles) >= parallelThreshold {
		g := new(errgroup.Group)
		g.SetLimit(maxFastWorkers)
		for _, ce := range regFiles {
			ce := ce
			g.Go(func() error {
				return copyRegularEntryFast(ctx, srcFd, dstFd, srcPath, dstPath, ce, deferred)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for _, ce := range regFiles {
			if err := copyRegularEntryFast(ctx, srcFd, dstFd, srcPath, dstPath, ce, deferred); err != nil {
				return err
			}
		}
	}

	for _, link := range deferred.Drain() {
		_ = os.Remove(link.Dest)
		if err := os.Link(link.Original, link.Dest); err != nil {
			return cerr.HardLink(link.Original, link.Dest, err)
		}
	}

	// Phase 2: specials (fifo, device, socket).
	for _, ce := range specials {
		if err := copySpecialEntryFast(ctx, srcFd, dstFd, srcPath, dstPath, ce); err != nil {
			return err
		}
	}

	// Phase 3: symlinks.
	for _, ce := range symlinks {
		childSrc := srcPath + "/" + ce.name
		childDst := dstPath + "/" + ce.name
		if err := copySymlinkFast(srcFd, dstFd, ce.name, childSrc, childDst, &ce.st, ctx.opts); err != nil {
			return err
		}
	}

	// Phase 4: recurse into subdirectories, sequentially, only after
	// phase 1's worker pool has fully joined above.
	for _, ce := range subdirs {
		if err := copySubdirFast(ctx, srcFd, dstFd, srcPath, dstPath, ce); err != nil {
			return err
		}
	}

	ctx.meta.push(srcPath, dstPath, statFromUnix(&srcSt))
	return nil
}

func copySubdirFast(ctx *fastCtx, srcFd, dstFd int, srcPath, dstPath string, ce classifiedEntry) error {
	childSrc := srcPath + "/" + ce.name
	childDst := dstPath + "/" + ce.name

	if ctx.opts.OneFileSystem && ce.st.Dev != ctx.rootDev {
		return nil
	}

	if err := unix.Mkdirat(dstFd, ce.name, 0o700); err != nil && !errors.Is(err, unix.EEXIST) {
		return cerr.CreateDir(childDst, err)
	}
	newSrcFd, err := unix.Openat(srcFd, ce.name, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW, 0)
	if err != nil {
		return cerr.OpenRead(childSrc, err)
	}
	newDstFd, err := unix.Openat(dstFd, ce.name, unix.O_RDONLY|unix.O_DIRECTORY, 0)
	if err != nil {
		unix.Close(newSrcFd)
		return cerr.Stat(childDst, err)
	}
	return copyDirFast(ctx, os.NewFile(uintptr(newSrcFd), childSrc), os.NewFile(uintptr(newDstFd), childDst), childSrc, childDst)
}

func copySpecialEntryFast(ctx *fastCtx, srcFd, dstFd int, srcPath, dstPath string, ce classifiedEntry) error {
	childSrc := srcPath + "/" + ce.name
	childDst := dstPath + "/" + ce.name
	st := ce.st

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFIFO:
		_ = unix.Unlinkat(dstFd, ce.name, 0)
		if err := unix.Mknodat(dstFd, ce.name, (st.Mode&0o777)|unix.S_IFIFO, 0); err != nil {
			return cerr.MkNod(childDst, err)
		}
	case unix.S_IFSOCK:
		plog.WarnOnce("socket:"+childSrc, "cp: warning: cannot copy socket '%s'", childSrc)
		return nil
	default: // S_IFCHR, S_IFBLK
		_ = unix.Unlinkat(dstFd, ce.name, 0)
		if err := unix.Mknodat(dstFd, ce.name, st.Mode, int(st.Rdev)); err != nil {
			if cerr.IsPermission(err) {
				plog.WarnOnce("mknod:"+childDst, "cp: warning: cannot create special file '%s': %v", childDst, err)
				return nil
			}
			return cerr.MkNod(childDst, err)
		}
	}
	return xmeta.PreserveMetadata(childSrc, childDst, statFromUnix(&st), ctx.opts)
}

func copySymlinkFast(srcFd, dstFd int, name, childSrc, childDst string, st *unix.Stat_t, opts *options.CopyOptions) error {
	buf := make([]byte, st.Size+1)
	n, err := unix.Readlinkat(srcFd, name, buf)
	if err != nil {
		return cerr.ReadLink(childSrc, err)
	}
	target := string(buf[:n])

	_ = unix.Unlinkat(dstFd, name, 0)
	if err := unix.Symlinkat(target, dstFd, name); err != nil {
		return cerr.Symlink(childDst, err)
	}
	return xmeta.PreserveMetadata(childSrc, childDst, statFromUnix(st), opts)
}

func copyRegularEntryFast(ctx *fastCtx, srcFd, dstFd int, srcPath, dstPath string, ce classifiedEntry, deferred *DeferredLinks) error {
	childSrc := srcPath + "/" + ce.name
	childDst := dstPath + "/" + ce.name
	err := copyRegularFast(ctx, srcFd, dstFd, ce.name, childSrc, childDst, &ce.st, deferred)
	if err == nil && ctx.progress != nil {
		ctx.progress.Inc()
	}
	return err
}

// copyRegularFast copies one regular file's data and metadata using
// descriptor-relative opens for the data path. Hard-link candidates
// (Nlink > 1 with --preserve=links) are registered in ctx.ledger; a
// repeat inode pushes a DeferredLink instead of copying data again,
// since concurrent workers cannot safely os.Link against a destination
// another goroutine may still be writing.
func copyRegularFast(ctx *fastCtx, srcFd, dstFd int, name, childSrc, childDst string, st *unix.Stat_t, deferred *DeferredLinks) error {
	if ctx.opts.PreserveLinks && st.Nlink > 1 {
		if orig, hit := ctx.ledger.LookupOrRegister(uint64(st.Dev), uint64(st.Ino), childDst); hit {
			deferred.Push(orig, childDst)
			return nil
		}
	}

	openSrc := func() (*os.File, error) {
		fd, err := unix.Openat(srcFd, name, unix.O_RDONLY, 0)
		if err != nil {
			return nil, cerr.OpenRead(childSrc, err)
		}
		return os.NewFile(uintptr(fd), childSrc), nil
	}
	openDst := func() (*os.File, error) {
		fd, err := unix.Openat(dstFd, name, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o666)
		if err != nil {
			return nil, cerr.CreateFile(childDst, err)
		}
		return os.NewFile(uintptr(fd), childDst), nil
	}

	srcFile, err := openSrc()
	if err != nil {
		return err
	}
	dstFile, err := openDst()
	if err != nil {
		srcFile.Close()
		return err
	}

	size := st.Size
	if size > 0 {
		useSparse := ctx.opts.Sparse != options.SparseNever && size >= single.SparseThreshold
		handled := false

		if useSparse {
			ok, serr := sparse.CopySparse(srcFile, dstFile, size, childSrc, childDst, ctx.opts.Sparse, ctx.sink)
			if serr != nil {
				srcFile.Close()
				dstFile.Close()
				return serr
			}
			handled = ok
		}

		if !handled {
			srcFile.Close()
			dstFile.Close()
			if srcFile, err = openSrc(); err != nil {
				return err
			}
			if dstFile, err = openDst(); err != nil {
				srcFile.Close()
				return err
			}
			if _, err := engine.CopyFileData(srcFile, dstFile, size, childSrc, childDst, ctx.opts.Reflink, ctx.sink); err != nil {
				srcFile.Close()
				dstFile.Close()
				return err
			}
		}
	}

	srcFile.Close()
	dstFile.Close()

	return xmeta.PreserveMetadata(childSrc, childDst, statFromUnix(st), ctx.opts)
}
