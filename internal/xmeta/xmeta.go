// Package xmeta propagates file metadata in the fixed order the design
// requires: extended attributes, ownership, mode, timestamps, ACL.
// Grounded on original_source/src/metadata.rs, with the capability-latch
// idiom (XATTR_SUPPORTED/ACL_SUPPORTED, write-once-true-to-false) taken
// from backend/local/xattr.go's atomic CompareAndSwap pattern and the
// privilege-check-once idiom from backend/local/local.go.
package xmeta

import (
	"os"
	"sync/atomic"
	"syscall"

	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"

	"github.com/gocp/gocp/internal/cerr"
	"github.com/gocp/gocp/internal/options"
)

// xattrSupported and aclSupported latch false the first time the
// underlying filesystem reports ENOTSUP; they never latch back to
// true (spec.md §9: "write-once-from-true-to-false").
var (
	xattrSupported atomic.Bool
	aclSupported   atomic.Bool

	rootChecked atomic.Bool
	isRootCache atomic.Bool
)

func init() {
	xattrSupported.Store(true)
	aclSupported.Store(true)
}

// IsRoot reports whether the process has root privilege, cached after
// the first check.
func IsRoot() bool {
	if !rootChecked.Load() {
		isRootCache.Store(os.Geteuid() == 0)
		rootChecked.Store(true)
	}
	return isRootCache.Load()
}

// Stat is the subset of source-metadata fields the propagation pipeline
// needs, populated from either a path-based or fd-based stat by the
// caller (single-file driver or directory walker).
type Stat struct {
	Mode       os.FileMode
	Uid        uint32
	Gid        uint32
	Atime      syscall.Timespec
	Mtime      syscall.Timespec
	IsSymlink  bool
}

// PreserveMetadata propagates xattr, ownership, mode, timestamps, and
// ACL from src to dst according to opts, in that fixed order. st.IsSymlink
// indicates dst itself is a symlink (metadata applies without following).
func PreserveMetadata(src, dst string, st *Stat, opts *options.CopyOptions) error {
	if opts.PreserveXattr && xattrSupported.Load() {
		if err := preserveXattr(src, dst); err != nil {
			return err
		}
	}

	if opts.PreserveOwnership && IsRoot() {
		if err := preserveOwnership(dst, st.Uid, st.Gid, st.IsSymlink); err != nil {
			return err
		}
	}

	if opts.PreserveMode && !st.IsSymlink {
		if err := preserveMode(dst, st.Mode); err != nil {
			return err
		}
	}

	if opts.PreserveTimestamps {
		if err := preserveTimestamps(dst, st.Atime, st.Mtime, st.IsSymlink); err != nil {
			return err
		}
	}

	if opts.PreserveAcl && aclSupported.Load() {
		var savedMode *os.FileMode
		if !opts.PreserveMode && !st.IsSymlink {
			if info, err := os.Lstat(dst); err == nil {
				m := info.Mode().Perm() | (info.Mode() & (os.ModeSetuid | os.ModeSetgid | os.ModeSticky))
				savedMode = &m
			}
		}

		if err := preserveAcl(src, dst); err != nil {
			return err
		}

		if savedMode != nil {
			_ = os.Chmod(dst, *savedMode)
		}
	}

	return nil
}

// PreserveXattrOnly copies only the extended attributes from src to
// dst, honoring the xattr capability latch, matching metadata.rs's
// preserve_xattr_pub. The directory walkers do not call it; they use
// PreserveMetadata.
func PreserveXattrOnly(src, dst string) error {
	if !xattrSupported.Load() {
		return nil
	}
	return preserveXattr(src, dst)
}

// PreserveAclOnly copies only the ACL from src to dst, honoring the ACL
// capability latch, matching metadata.rs's preserve_acl_pub. The
// directory walkers do not call it; they use PreserveMetadata.
func PreserveAclOnly(src, dst string) error {
	if !aclSupported.Load() {
		return nil
	}
	return preserveAcl(src, dst)
}

func preserveXattr(src, dst string) error {
	names, err := xattr.LList(src)
	if err != nil {
		if cerr.IsNotSupported(err) {
			xattrSupported.Store(false)
			return nil
		}
		if !os.IsPermission(err) {
			return cerr.Xattr(src, err)
		}
		return nil
	}

	for _, name := range names {
		value, err := xattr.LGet(src, name)
		if err != nil {
			if !os.IsPermission(err) {
				return cerr.Xattr(src, err)
			}
			continue
		}
		if err := xattr.LSet(dst, name, value); err != nil {
			if cerr.IsNotSupported(err) {
				xattrSupported.Store(false)
				return nil
			}
			if !os.IsPermission(err) {
				return cerr.Xattr(dst, err)
			}
		}
	}
	return nil
}

func preserveOwnership(dst string, uid, gid uint32, isSymlink bool) error {
	var err error
	if isSymlink {
		err = os.Lchown(dst, int(uid), int(gid))
	} else {
		err = os.Chown(dst, int(uid), int(gid))
	}
	if err != nil && !cerr.IsPermission(err) {
		return cerr.Chown(dst, err)
	}
	return nil
}

func preserveMode(dst string, mode os.FileMode) error {
	if err := os.Chmod(dst, mode); err != nil {
		return cerr.Chmod(dst, err)
	}
	return nil
}

func preserveTimestamps(dst string, atime, mtime syscall.Timespec, isSymlink bool) error {
	ts := []unix.Timespec{
		{Sec: atime.Sec, Nsec: atime.Nsec},
		{Sec: mtime.Sec, Nsec: mtime.Nsec},
	}
	flags := 0
	if isSymlink {
		flags = unix.AT_SYMLINK_NOFOLLOW
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, dst, ts, flags); err != nil {
		return cerr.Timestamps(dst, err)
	}
	return nil
}

func preserveAcl(src, dst string) error {
	if err := copyACL(src, dst, aclTypeAccess); err != nil {
		if cerr.IsNotSupported(err) {
			aclSupported.Store(false)
			return nil
		}
		return cerr.Acl(dst, err.Error())
	}

	// Best-effort default ACL for directories; failures here are not
	// surfaced, matching metadata.rs's `let _ = ...`.
	if info, err := os.Lstat(src); err == nil && info.IsDir() {
		_ = copyACL(src, dst, aclTypeDefault)
	}

	return nil
}
