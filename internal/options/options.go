// Package options holds CopyOptions, the read-only configuration record
// consumed by the rest of the core, and the enums it is built from.
// Grounded on original_source/src/options.rs's CopyOptions/from_cli.
package options

import (
	"os"
)

// Dereference controls whether symlinks encountered in the source tree
// are followed.
type Dereference int

const (
	// DereferenceCommandLine follows symlinks named directly on the
	// command line but not ones discovered while recursing (-H).
	DereferenceCommandLine Dereference = iota
	// DereferenceNever never follows symlinks (-P, default under -R).
	DereferenceNever
	// DereferenceAlways always follows symlinks (-L).
	DereferenceAlways
)

// ReflinkMode controls use of the clone (FICLONE) fast path.
type ReflinkMode int

const (
	ReflinkAuto ReflinkMode = iota
	ReflinkAlways
	ReflinkNever
)

// SparseMode controls hole preservation/synthesis.
type SparseMode int

const (
	SparseAuto SparseMode = iota
	SparseAlways
	SparseNever
)

// UpdateMode controls the --update skip rule.
type UpdateMode int

const (
	UpdateOlder UpdateMode = iota
	UpdateAll
	UpdateNone
	UpdateNoneFail
)

// BackupMode selects the backup-filename policy.
type BackupMode int

const (
	BackupNone BackupMode = iota
	BackupNumbered
	BackupExisting
	BackupSimple
)

// CopyOptions is the configuration record consumed read-only by the
// core for the duration of one cp invocation.
type CopyOptions struct {
	Recursive             bool
	Force                 bool
	Interactive           bool
	NoClobber             bool
	Verbose               bool
	Debug                 bool
	Progress              bool
	HardLink              bool
	SymbolicLink          bool
	AttributesOnly        bool
	RemoveDestination     bool
	StripTrailingSlashes  bool
	OneFileSystem         bool
	Parents               bool
	NoTargetDirectory     bool
	TargetDirectory       string
	KeepDirectorySymlink  bool
	CopyContents          bool

	Dereference Dereference

	PreserveMode       bool
	PreserveOwnership  bool
	PreserveTimestamps bool
	PreserveLinks      bool
	PreserveXattr      bool
	PreserveAcl        bool

	Reflink ReflinkMode
	Sparse  SparseMode

	HasUpdate bool
	Update    UpdateMode

	Backup       BackupMode
	BackupSuffix string
}

// AllAttrs is the atom list recognized by --preserve/--no-preserve
// (excluding the "all" meta-atom itself).
var AllAttrs = []string{"mode", "ownership", "timestamps", "links", "xattr", "acl", "context"}

// applyAttr flips the named preservation flag to value. Unknown atoms
// (e.g. "context", tracked but not acted on per spec.md's SELinux
// Non-goal) are accepted without error, matching the original's `_ => {}`.
func applyAttr(o *CopyOptions, attr string, value bool) {
	switch attr {
	case "mode":
		o.PreserveMode = value
	case "ownership":
		o.PreserveOwnership = value
	case "timestamps":
		o.PreserveTimestamps = value
	case "links":
		o.PreserveLinks = value
	case "xattr":
		o.PreserveXattr = value
	case "acl":
		o.PreserveAcl = value
	case "all":
		o.PreserveMode = value
		o.PreserveOwnership = value
		o.PreserveTimestamps = value
		o.PreserveLinks = value
		o.PreserveXattr = value
		o.PreserveAcl = value
	}
}

// IsSimple reports whether o requires none of the per-file policy
// checks that force the slow, path-based directory walker. Exposed as
// a pure predicate per spec.md §9 ("expose this as a pure predicate...
// branch once at the entry of the walker").
func (o *CopyOptions) IsSimple() bool {
	return !o.Interactive &&
		!o.NoClobber &&
		!o.RemoveDestination &&
		!o.HasUpdate &&
		o.Backup == BackupNone &&
		!o.HardLink &&
		!o.SymbolicLink &&
		!o.AttributesOnly
}

// UseFastPath reports whether the descriptor-relative directory walker
// may be used (spec.md §4.5 selection rule).
func (o *CopyOptions) UseFastPath() bool {
	return o.IsSimple() && o.Dereference != DereferenceAlways
}

// ResolveBackupSuffix returns the effective backup suffix: explicit
// --suffix, else $SIMPLE_BACKUP_SUFFIX, else "~".
func ResolveBackupSuffix(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v, ok := os.LookupEnv("SIMPLE_BACKUP_SUFFIX"); ok && v != "" {
		return v
	}
	return "~"
}

// ParseBackupControl maps a --backup=CONTROL / $VERSION_CONTROL value
// to a BackupMode, matching options.rs::parse_backup_control.
func ParseBackupControl(s string) BackupMode {
	switch s {
	case "none", "off":
		return BackupNone
	case "numbered", "t":
		return BackupNumbered
	case "existing", "nil":
		return BackupExisting
	case "simple", "never":
		return BackupSimple
	default:
		return BackupExisting
	}
}

// ResolveBackup determines the effective BackupMode from the explicit
// --backup control string (ctrl, empty if unset), the -b flag, and the
// VERSION_CONTROL environment variable, in that precedence.
func ResolveBackup(ctrl string, ctrlSet bool, simpleBackup bool) BackupMode {
	if ctrlSet {
		return ParseBackupControl(ctrl)
	}
	if simpleBackup {
		if vc, ok := os.LookupEnv("VERSION_CONTROL"); ok {
			return ParseBackupControl(vc)
		}
		return BackupSimple
	}
	return BackupNone
}
