package xmeta

// On Linux, POSIX ACLs are themselves stored as extended attributes
// (system.posix_acl_access / system.posix_acl_default). Rather than
// pull in a dedicated ACL library the rest of the example pack never
// exercises, ACL propagation is implemented on top of the same
// github.com/pkg/xattr dependency already wired for xmeta's xattr
// step — the raw attribute bytes are opaque and round-trip byte for
// byte between filesystems of the same type, which is all spec.md
// §4.3 requires ("ACL entries include the POSIX permission bits").

import (
	"errors"
	"syscall"

	"github.com/pkg/xattr"
)

type aclType int

const (
	aclTypeAccess aclType = iota
	aclTypeDefault
)

func (t aclType) attrName() string {
	if t == aclTypeDefault {
		return "system.posix_acl_default"
	}
	return "system.posix_acl_access"
}

func copyACL(src, dst string, t aclType) error {
	name := t.attrName()
	value, err := xattr.LGet(src, name)
	if err != nil {
		if isNoAttr(err) {
			return nil
		}
		return err
	}
	return xattr.LSet(dst, name, value)
}

func isNoAttr(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.ENODATA
}
