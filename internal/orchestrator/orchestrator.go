// Package orchestrator resolves CLI source/destination arguments into
// concrete per-source copy operations and dispatches each to the
// directory walker or the single-file driver. Grounded on
// original_source/src/main.rs's run/copy_source and
// original_source/src/util.rs's resolve_target/build_dest_path.
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/gocp/gocp/internal/cerr"
	"github.com/gocp/gocp/internal/engine"
	"github.com/gocp/gocp/internal/options"
	"github.com/gocp/gocp/internal/plog"
	"github.com/gocp/gocp/internal/progress"
	"github.com/gocp/gocp/internal/single"
	"github.com/gocp/gocp/internal/walk"
)

// Run resolves paths (every positional CLI argument) against opts and
// copies each source in turn, accumulating per-source failures instead
// of aborting on the first one. It returns a combined error (via
// go-multierror) when at least one source failed, nil otherwise.
func Run(paths []string, opts *options.CopyOptions) error {
	if len(paths) == 0 {
		return cerr.MissingOperand()
	}

	sources, dest, err := ResolveTarget(paths, opts.TargetDirectory, opts.NoTargetDirectory)
	if err != nil {
		return err
	}

	if opts.StripTrailingSlashes {
		for i, s := range sources {
			sources[i] = strings.TrimRight(s, "/")
		}
		dest = strings.TrimRight(dest, "/")
	}

	destInfo, destErr := os.Stat(dest)
	destIsDir := destErr == nil && destInfo.IsDir() && !opts.NoTargetDirectory

	if opts.TargetDirectory != "" && destErr != nil {
		return cerr.NotADirectory(dest)
	}
	if len(sources) > 1 && !destIsDir {
		return cerr.NotADirectory(dest)
	}

	var errs *multierror.Error
	for _, src := range sources {
		src = strings.TrimRight(src, "/")
		if src == "" {
			continue
		}
		dstPath := BuildDestPath(src, dest, destIsDir, opts.Parents)
		plog.Debugf("copying %s -> %s", src, dstPath)
		if err := copySource(src, dstPath, opts); err != nil {
			fmt.Fprintf(os.Stderr, "cp: %v\n", err)
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// ResolveTarget splits the CLI positional arguments into a source list
// and a destination, honoring an explicit --target-directory and
// --no-target-dir. Matches util.rs::resolve_target.
func ResolveTarget(paths []string, targetDir string, noTargetDir bool) ([]string, string, error) {
	if targetDir != "" {
		return paths, targetDir, nil
	}
	if len(paths) < 2 {
		if len(paths) == 1 {
			return nil, "", cerr.MissingDestination(paths[0])
		}
		return nil, "", cerr.MissingOperand()
	}
	dest := paths[len(paths)-1]
	sources := paths[:len(paths)-1]
	if !noTargetDir && len(sources) > 1 {
		info, err := os.Stat(dest)
		if err != nil || !info.IsDir() {
			return nil, "", cerr.NotADirectory(dest)
		}
	}
	return sources, dest, nil
}

// BuildDestPath computes the destination path for one source, joining
// the source's base name onto a directory destination (or its full
// relative path under --parents), matching util.rs::build_dest_path.
func BuildDestPath(source, dest string, destIsDir bool, parents bool) string {
	if !destIsDir {
		return dest
	}
	if parents {
		rel := strings.TrimPrefix(source, "/")
		return filepath.Join(dest, rel)
	}
	base := filepath.Base(strings.TrimRight(source, "/"))
	return filepath.Join(dest, base)
}

func copySource(src, dst string, opts *options.CopyOptions) error {
	info, err := os.Lstat(src)
	if err != nil {
		return cerr.Stat(src, err)
	}

	isDir := info.IsDir()
	if !isDir && info.Mode()&os.ModeSymlink != 0 && opts.Dereference != options.DereferenceNever {
		if target, err := os.Stat(src); err == nil && target.IsDir() {
			isDir = true
		}
	}

	if opts.Parents {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return cerr.CreateDir(filepath.Dir(dst), err)
		}
	}

	if isCopyIntoSelf(src, dst) {
		return cerr.CopyIntoSelf(src, dst)
	}

	if isDir {
		if !opts.Recursive {
			return cerr.OmitDirectory(src)
		}
		return walk.CopyDirectory(src, dst, opts, engine.NopSink{})
	}

	var sink engine.Sink = engine.NopSink{}
	if opts.Progress && info.Mode().IsRegular() {
		bar := progress.NewFileBar(info.Size(), filepath.Base(src), true)
		defer bar.Finish()
		sink = bar
	}
	return single.CopySingle(src, dst, opts, true, sink)
}

// isCopyIntoSelf reports whether dst names a path inside (or equal to)
// src once both are resolved to their real, symlink-free form —
// copying a directory into itself would recurse without end.
func isCopyIntoSelf(src, dst string) bool {
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return false
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return false
	}

	srcReal := srcAbs
	if r, err := filepath.EvalSymlinks(srcAbs); err == nil {
		srcReal = r
	}

	dstParent := filepath.Dir(dstAbs)
	dstParentReal := dstParent
	if r, err := filepath.EvalSymlinks(dstParent); err == nil {
		dstParentReal = r
	}
	dstReal := filepath.Join(dstParentReal, filepath.Base(dstAbs))

	if srcReal == dstReal {
		return true
	}
	return strings.HasPrefix(dstReal+string(filepath.Separator), srcReal+string(filepath.Separator))
}
