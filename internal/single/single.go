// Package single implements the single-file driver: turns a source
// path, destination path, and options into a correctly
// policy-governed copy of one filesystem object. Grounded on
// original_source/src/copy.rs.
package single

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/gocp/gocp/internal/backup"
	"github.com/gocp/gocp/internal/cerr"
	"github.com/gocp/gocp/internal/engine"
	"github.com/gocp/gocp/internal/options"
	"github.com/gocp/gocp/internal/plog"
	"github.com/gocp/gocp/internal/sparse"
	"github.com/gocp/gocp/internal/xmeta"
)

// SparseThreshold is the size below which sparse detection is skipped
// entirely: no meaningful holes in tiny files (spec.md §4.2).
const SparseThreshold = 32 * 1024

// IsSimpleOpts reports whether opts require none of the per-file checks
// that force the slow directory-walker path. Delegates to
// options.CopyOptions.IsSimple, kept here under the name copy.rs uses
// for readers tracing the grounding.
func IsSimpleOpts(o *options.CopyOptions) bool { return o.IsSimple() }

// CopySingle copies one filesystem object (regular, symlink, or
// special) from src to dst under opts. isCLIArg indicates src was named
// directly on the command line (affects -H dereference behavior).
func CopySingle(src, dst string, opts *options.CopyOptions, isCLIArg bool, sink engine.Sink) error {
	follow := shouldFollowSymlink(opts.Dereference, isCLIArg)
	srcInfo, err := statFollow(src, follow)
	if err != nil {
		return cerr.Stat(src, err)
	}

	dstInfo, dstErr := os.Lstat(dst)
	dstExists := dstErr == nil

	if dstExists && dstInfo.Mode()&os.ModeSymlink != 0 {
		if _, targetErr := os.Stat(dst); targetErr != nil && !opts.Force && !opts.RemoveDestination {
			return cerr.DanglingSymlink(dst)
		}
	}

	if dstExists && isSameFile(src, dst) {
		return cerr.SameFile(src, dst)
	}

	if opts.HasUpdate && dstExists {
		switch opts.Update {
		case options.UpdateNone, options.UpdateNoneFail:
			return nil
		case options.UpdateOlder:
			if !dstInfo.ModTime().Before(srcInfo.ModTime()) {
				return nil
			}
		case options.UpdateAll:
			// always copy
		}
	}

	if opts.NoClobber && dstExists {
		return nil
	}

	if opts.Interactive && dstExists {
		if !promptYes(fmt.Sprintf("cp: overwrite '%s'? ", dst)) {
			return nil
		}
	}

	if dstExists {
		backup.Make(dst, opts.Backup, opts.BackupSuffix)
	}

	if opts.RemoveDestination && dstExists {
		if err := os.RemoveAll(dst); err != nil {
			return cerr.Remove(dst, err)
		}
	}

	mode := srcInfo.Mode()
	switch {
	case mode&os.ModeSymlink != 0 && !follow:
		err = copySymlink(src, dst, srcInfo, opts)
	case mode.IsDir():
		return cerr.OmitDirectory(src)
	case mode.IsRegular():
		err = copyRegularFile(src, dst, srcInfo, opts, sink)
	case mode&os.ModeNamedPipe != 0:
		err = copyFifo(dst, srcInfo, opts)
	case mode&(os.ModeDevice) != 0:
		err = copyDevice(dst, srcInfo, opts)
	case mode&os.ModeSocket != 0:
		plog.WarnOnce("socket:"+src, "cp: warning: cannot copy socket '%s'", src)
		return nil
	default:
		err = copyRegularFile(src, dst, srcInfo, opts, sink)
	}
	if err != nil {
		return err
	}

	if opts.Verbose {
		fmt.Printf("'%s' -> '%s'\n", src, dst)
	}
	return nil
}

func copyRegularFile(src, dst string, srcInfo os.FileInfo, opts *options.CopyOptions, sink engine.Sink) error {
	if opts.HardLink {
		return doHardLink(src, dst)
	}
	if opts.SymbolicLink {
		return doSymbolicLink(src, dst)
	}
	if opts.AttributesOnly {
		if _, err := os.Lstat(dst); err != nil {
			f, cerr2 := os.Create(dst)
			if cerr2 != nil {
				return cerr.CreateFile(dst, cerr2)
			}
			f.Close()
		}
		return xmeta.PreserveMetadata(src, dst, toStat(srcInfo, false), opts)
	}

	size := srcInfo.Size()

	srcFile, err := os.Open(src)
	if err != nil {
		return cerr.OpenRead(src, err)
	}
	defer srcFile.Close()

	dstFile, err := openDestCreate(dst, opts)
	if err != nil {
		return err
	}

	if size > 0 {
		useSparse := opts.Sparse != options.SparseNever && size >= SparseThreshold
		handled := false

		if useSparse {
			ok, serr := sparse.CopySparse(srcFile, dstFile, size, src, dst, opts.Sparse, sink)
			if serr != nil {
				srcFile.Close()
				dstFile.Close()
				return serr
			}
			handled = ok
			if handled && opts.Debug {
				plog.Debugf("copy method: sparse (SEEK_HOLE/SEEK_DATA)")
			}
		}

		if !handled {
			srcFile.Close()
			dstFile.Close()

			srcFile, err = os.Open(src)
			if err != nil {
				return cerr.OpenRead(src, err)
			}
			defer srcFile.Close()
			dstFile, err = openDestCreate(dst, opts)
			if err != nil {
				return err
			}

			tag, err := engine.CopyFileData(srcFile, dstFile, size, src, dst, opts.Reflink, sink)
			if err != nil {
				dstFile.Close()
				return err
			}
			if opts.Debug {
				plog.Debugf("copy method: %s", tag)
			}
		}
	}
	dstFile.Close()

	return xmeta.PreserveMetadata(src, dst, toStat(srcInfo, false), opts)
}

// openDestCreate opens dst with O_CREAT|O_TRUNC in one syscall; under
// --force a failed open is retried once after unlinking dst.
func openDestCreate(dst string, opts *options.CopyOptions) (*os.File, error) {
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err == nil {
		return f, nil
	}
	if opts.Force {
		_ = os.Remove(dst)
		f2, err2 := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
		if err2 != nil {
			return nil, cerr.CreateFile(dst, err2)
		}
		return f2, nil
	}
	return nil, cerr.CreateFile(dst, err)
}

func copySymlink(src, dst string, srcInfo os.FileInfo, opts *options.CopyOptions) error {
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

	return xmeta.PreserveMetadata(src, dst, toStat(srcInfo, true), opts)
}

func copyFifo(dst string, srcInfo os.FileInfo, opts *options.CopyOptions) error {
	mode := uint32(srcInfo.Mode().Perm())
	if err := unix.Mkfifo(dst, mode); err != nil {
		return cerr.MkNod(dst, err)
	}
	return xmeta.PreserveMetadata(dst, dst, toStat(srcInfo, false), opts)
}

func copyDevice(dst string, srcInfo os.FileInfo, opts *options.CopyOptions) error {
	sys, ok := srcInfo.Sys().(*syscall.Stat_t)
	if !ok {
		return cerr.MkNod(dst, errors.New("cannot determine device number"))
	}
	mode := uint32(srcInfo.Mode().Perm())
	if srcInfo.Mode()&os.ModeCharDevice != 0 {
		mode |= unix.S_IFCHR
	} else {
		mode |= unix.S_IFBLK
	}
	if err := unix.Mknod(dst, mode, int(sys.Rdev)); err != nil {
		if cerr.IsPermission(err) {
			plog.WarnOnce("mknod:"+dst, "cp: warning: cannot create special file '%s': %v", dst, err)
			return nil
		}
		return cerr.MkNod(dst, err)
	}
	return xmeta.PreserveMetadata(dst, dst, toStat(srcInfo, false), opts)
}

func doHardLink(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return cerr.Remove(dst, err)
		}
	}
	if err := os.Link(src, dst); err != nil {
		return cerr.HardLink(src, dst, err)
	}
	return nil
}

func doSymbolicLink(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return cerr.Remove(dst, err)
		}
	}
	abs := src
	if !strings.HasPrefix(src, "/") {
		if wd, err := os.Getwd(); err == nil {
			abs = wd + "/" + src
		}
	}
	if err := os.Symlink(abs, dst); err != nil {
		return cerr.Symlink(dst, err)
	}
	return nil
}

func shouldFollowSymlink(deref options.Dereference, isCLIArg bool) bool {
	switch deref {
	case options.DereferenceAlways:
		return true
	case options.DereferenceNever:
		return false
	default: // CommandLine
		return isCLIArg
	}
}

func statFollow(path string, follow bool) (os.FileInfo, error) {
	if follow {
		return os.Stat(path)
	}
	return os.Lstat(path)
}

func isSameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func promptYes(msg string) bool {
	fmt.Fprint(os.Stderr, msg)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func toStat(info os.FileInfo, isSymlink bool) *xmeta.Stat {
	sys, _ := info.Sys().(*syscall.Stat_t)
	st := &xmeta.Stat{Mode: info.Mode(), IsSymlink: isSymlink}
	if sys != nil {
		st.Uid = sys.Uid
		st.Gid = sys.Gid
		st.Atime = syscall.Timespec(sys.Atim)
		st.Mtime = syscall.Timespec(sys.Mtim)
	}
	return st
}
