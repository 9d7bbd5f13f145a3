// Package cmd wires the cobra/pflag command tree onto
// internal/options.RawFlags and internal/orchestrator.Run. Grounded on
// original_source/src/cli.rs's Cli struct (flag surface) and rclone's
// cobra-based cmd/root.go conventions (command construction, exit-code
// propagation).
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gocp/gocp/internal/options"
	"github.com/gocp/gocp/internal/orchestrator"
	"github.com/gocp/gocp/internal/plog"
)

var flags options.RawFlags

// Root builds the top-level cp command. Execute() on the returned
// command is what cmd/gocp/main.go calls.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "gocp SOURCE... DEST",
		Short: "Copy files and directories",
		Long: "gocp copies files and directories, preferring zero-copy kernel " +
			"primitives (reflink, copy_file_range, sendfile) over a userspace " +
			"read/write loop whenever the source and destination filesystems allow it.",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCopy,
	}

	bindFlags(root.Flags())
	return root
}

func bindFlags(f *pflag.FlagSet) {
	f.BoolVarP(&flags.Archive, "archive", "a", false, "same as -dR --preserve=mode,ownership,timestamps,links,xattr")
	f.BoolVar(&flags.AttributesOnly, "attributes-only", false, "don't copy file data, just the attributes")
	f.StringVar(&flags.Backup, "backup", "", "make a backup of each existing destination file (control: none, numbered, existing, simple)")
	f.BoolVarP(&flags.SimpleBackup, "simple-backup", "b", false, "like --backup but does not accept an argument")
	f.BoolVar(&flags.CopyContents, "copy-contents", false, "copy contents of special files when recursive")
	f.BoolVarP(&flags.NoDerefPreserveLinks, "no-dereference-preserve-links", "d", false, "same as --no-dereference --preserve=links")
	f.BoolVar(&flags.Debug, "debug", false, "explain how each file is copied")
	f.BoolVarP(&flags.Force, "force", "f", false, "remove existing destination files and retry")
	f.BoolVarP(&flags.Interactive, "interactive", "i", false, "prompt before overwrite")
	f.BoolVarP(&flags.DereferenceArgs, "dereference-command-line-symlink-to-dir", "H", false, "follow symlinks named on the command line")
	f.BoolVarP(&flags.HardLink, "link", "l", false, "hard link files instead of copying")
	f.BoolVarP(&flags.Dereference, "dereference", "L", false, "always follow symbolic links")
	f.BoolVarP(&flags.NoClobber, "no-clobber", "n", false, "do not overwrite an existing file")
	f.BoolVarP(&flags.NoDereference, "no-dereference", "P", false, "never follow symbolic links")
	f.BoolVarP(&flags.PreserveDefault, "preserve-default-attributes", "p", false, "same as --preserve=mode,ownership,timestamps")
	f.StringSliceVar(&flags.Preserve, "preserve", nil, "preserve the specified attributes (mode,ownership,timestamps,links,xattr,acl,context,all)")
	f.StringSliceVar(&flags.NoPreserve, "no-preserve", nil, "don't preserve the specified attributes")
	f.BoolVar(&flags.Parents, "parents", false, "use full source file name under directory")
	f.BoolVarP(&flags.Recursive, "recursive", "R", false, "copy directories recursively")
	f.StringVar(&flags.Reflink, "reflink", "", "control clone/CoW copies (auto, always, never)")
	f.BoolVar(&flags.RemoveDestination, "remove-destination", false, "remove each existing destination file before attempting to open it")
	f.StringVar(&flags.Sparse, "sparse", "", "control creation of sparse files (auto, always, never)")
	f.BoolVar(&flags.StripTrailingSlashes, "strip-trailing-slashes", false, "remove trailing slashes from each source argument")
	f.BoolVarP(&flags.SymbolicLink, "symbolic-link", "s", false, "make symbolic links instead of copying")
	f.StringVar(&flags.Suffix, "suffix", "", "override the usual backup suffix")
	f.StringVarP(&flags.TargetDirectory, "target-directory", "t", "", "copy all SOURCE arguments into DIRECTORY")
	f.BoolVarP(&flags.NoTargetDirectory, "no-target-directory", "T", false, "treat DEST as a normal file")
	f.StringVarP(&flags.Update, "update", "u", "", "control which existing files are updated (all, none, none-fail, older)")
	f.BoolVar(&flags.Progress, "progress", false, "display a progress indicator")
	f.BoolVarP(&flags.Verbose, "verbose", "v", false, "explain what is being done")
	f.BoolVarP(&flags.OneFileSystem, "one-file-system", "x", false, "stay on this file system")
	f.BoolVarP(&flags.SelinuxDefault, "context-default", "Z", false, "set SELinux security context of destination file to default type")
	f.StringVar(&flags.Context, "context", "", "set SELinux or SMACK security context")
	f.BoolVar(&flags.KeepDirectorySymlink, "keep-directory-symlink", false, "follow an existing symlink to a directory at the destination")
}

func runCopy(c *cobra.Command, args []string) error {
	flags.BackupSet = c.Flags().Changed("backup")
	flags.ReflinkSet = c.Flags().Changed("reflink")
	flags.SparseSet = c.Flags().Changed("sparse")
	flags.UpdateSet = c.Flags().Changed("update")
	flags.SuffixSet = c.Flags().Changed("suffix")
	flags.PreserveSet = c.Flags().Changed("preserve")
	flags.NoPreserveSet = c.Flags().Changed("no-preserve")
	flags.ContextSet = c.Flags().Changed("context")
	if flags.SelinuxDefault {
		flags.Context = "default"
		flags.ContextSet = true
	}

	opts := options.Resolve(flags)
	plog.SetLevel(opts.Verbose, opts.Debug)

	if err := orchestrator.Run(args, opts); err != nil {
		return err
	}
	return nil
}

// Execute runs the root command and translates a returned error into a
// process exit code. Per-source failures are already printed by
// orchestrator.Run as they occur; a non-nil return here only ever means
// "exit 1", matching main.rs's top-level error handling.
func Execute() int {
	if err := Root().Execute(); err != nil {
		return 1
	}
	return 0
}
