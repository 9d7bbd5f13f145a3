package walk

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/gocp/gocp/internal/xmeta"
)

// modeFromUnix translates a raw stat mode word into os.FileMode's
// permission-and-special-bit encoding, which does not share numeric
// values with the raw S_ISUID/S_ISGID/S_ISVTX bits.
func modeFromUnix(m uint32) os.FileMode {
	fm := os.FileMode(m & 0o777)
	if m&unix.S_ISUID != 0 {
		fm |= os.ModeSetuid
	}
	if m&unix.S_ISGID != 0 {
		fm |= os.ModeSetgid
	}
	if m&unix.S_ISVTX != 0 {
		fm |= os.ModeSticky
	}
	return fm
}

// statFromUnix builds an xmeta.Stat from a raw unix.Stat_t, used by the
// fast, descriptor-relative path which stats via Fstatat rather than
// os.Lstat.
func statFromUnix(st *unix.Stat_t) *xmeta.Stat {
	return &xmeta.Stat{
		Mode:      modeFromUnix(st.Mode),
		Uid:       st.Uid,
		Gid:       st.Gid,
		Atime:     syscall.Timespec{Sec: st.Atim.Sec, Nsec: st.Atim.Nsec},
		Mtime:     syscall.Timespec{Sec: st.Mtim.Sec, Nsec: st.Mtim.Nsec},
		IsSymlink: st.Mode&unix.S_IFMT == unix.S_IFLNK,
	}
}

// statFromInfo builds an xmeta.Stat from an os.FileInfo, used by the
// slow, path-based walker.
func statFromInfo(info os.FileInfo, isSymlink bool) *xmeta.Stat {
	st := &xmeta.Stat{Mode: info.Mode(), IsSymlink: isSymlink}
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		st.Uid = sys.Uid
		st.Gid = sys.Gid
		st.Atime = syscall.Timespec(sys.Atim)
		st.Mtime = syscall.Timespec(sys.Mtim)
	}
	return st
}
