package options

// RawFlags mirrors the flag surface bound by internal/cmd directly from
// pflag, prior to resolution into a CopyOptions. Field names track
// original_source/src/cli.rs's Cli struct one-to-one.
type RawFlags struct {
	Archive              bool
	AttributesOnly       bool
	Backup               string
	BackupSet            bool
	SimpleBackup         bool
	CopyContents         bool
	NoDerefPreserveLinks bool // -d
	Debug                bool
	Force                bool
	Interactive          bool
	DereferenceArgs      bool // -H
	HardLink             bool // -l
	Dereference          bool // -L
	NoClobber            bool // -n
	NoDereference        bool // -P
	PreserveDefault      bool // -p
	Preserve             []string
	PreserveSet          bool
	NoPreserve           []string
	NoPreserveSet        bool
	Parents              bool
	Recursive            bool
	Reflink              string
	ReflinkSet           bool
	RemoveDestination    bool
	Sparse               string
	SparseSet            bool
	StripTrailingSlashes bool
	SymbolicLink         bool // -s
	Suffix               string
	SuffixSet            bool
	TargetDirectory      string
	NoTargetDirectory    bool // -T
	Update               string
	UpdateSet            bool
	Progress             bool
	Verbose              bool
	OneFileSystem        bool // -x
	SelinuxDefault       bool // -Z
	Context              string
	ContextSet           bool
	KeepDirectorySymlink bool
}

func parseReflink(s string) ReflinkMode {
	switch s {
	case "always":
		return ReflinkAlways
	case "never":
		return ReflinkNever
	default:
		return ReflinkAuto
	}
}

func parseSparse(s string) SparseMode {
	switch s {
	case "always":
		return SparseAlways
	case "never":
		return SparseNever
	default:
		return SparseAuto
	}
}

func parseUpdate(s string) UpdateMode {
	switch s {
	case "all":
		return UpdateAll
	case "none":
		return UpdateNone
	case "none-fail":
		return UpdateNoneFail
	default:
		return UpdateOlder
	}
}

// Resolve turns parsed CLI flags into a CopyOptions, grounded directly
// on options.rs::CopyOptions::from_cli.
func Resolve(f RawFlags) *CopyOptions {
	debug := f.Debug
	verbose := f.Verbose || debug

	var deref Dereference
	switch {
	case f.Dereference:
		deref = DereferenceAlways
	case f.NoDereference || f.NoDerefPreserveLinks || f.Archive:
		deref = DereferenceNever
	case f.DereferenceArgs:
		deref = DereferenceCommandLine
	case f.Recursive:
		deref = DereferenceNever
	default:
		deref = DereferenceCommandLine
	}

	archive := f.Archive
	o := &CopyOptions{
		PreserveMode:       archive || f.PreserveDefault,
		PreserveOwnership:  archive || f.PreserveDefault,
		PreserveTimestamps: archive || f.PreserveDefault,
		PreserveLinks:      archive || f.NoDerefPreserveLinks,
		PreserveXattr:      archive,
		PreserveAcl:        false,
	}

	if f.PreserveSet {
		for _, a := range f.Preserve {
			applyAttr(o, a, true)
		}
	}
	if f.NoPreserveSet {
		for _, a := range f.NoPreserve {
			applyAttr(o, a, false)
		}
	}

	reflink := ReflinkAuto
	if f.ReflinkSet {
		reflink = parseReflink(f.Reflink)
	}
	sparse := SparseAuto
	if f.SparseSet {
		sparse = parseSparse(f.Sparse)
	}

	backup := ResolveBackup(f.Backup, f.BackupSet, f.SimpleBackup)
	suffix := ResolveBackupSuffix(f.Suffix)

	out := &CopyOptions{
		Recursive:            f.Recursive || archive,
		Force:                f.Force,
		Interactive:          f.Interactive,
		NoClobber:            f.NoClobber && !f.Interactive,
		Verbose:              verbose,
		Debug:                debug,
		Progress:             f.Progress,
		HardLink:             f.HardLink,
		SymbolicLink:         f.SymbolicLink,
		AttributesOnly:       f.AttributesOnly,
		RemoveDestination:    f.RemoveDestination,
		StripTrailingSlashes: f.StripTrailingSlashes,
		OneFileSystem:        f.OneFileSystem,
		Parents:              f.Parents,
		NoTargetDirectory:    f.NoTargetDirectory,
		TargetDirectory:      f.TargetDirectory,
		KeepDirectorySymlink: f.KeepDirectorySymlink,
		CopyContents:         f.CopyContents,
		Dereference:          deref,
		PreserveMode:         o.PreserveMode,
		PreserveOwnership:    o.PreserveOwnership,
		PreserveTimestamps:   o.PreserveTimestamps,
		PreserveLinks:        o.PreserveLinks,
		PreserveXattr:        o.PreserveXattr,
		PreserveAcl:          o.PreserveAcl,
		Reflink:              reflink,
		Sparse:               sparse,
		HasUpdate:            f.UpdateSet,
		Backup:               backup,
		BackupSuffix:         suffix,
	}
	if f.UpdateSet {
		out.Update = parseUpdate(f.Update)
	}
	return out
}
