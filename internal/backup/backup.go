// Package backup implements the destination backup-filename policy:
// simple suffix, numbered, or existing (numbered-if-any-exist else
// simple). Grounded on original_source/src/backup.rs.
package backup

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocp/gocp/internal/options"
)

// Make renames dest to a backup path per mode/suffix if dest exists,
// returning the backup path taken (or "" if no backup was made).
func Make(dest string, mode options.BackupMode, suffix string) string {
	if mode == options.BackupNone {
		return ""
	}
	if _, err := os.Lstat(dest); err != nil {
		return ""
	}

	var backupPath string
	switch mode {
	case options.BackupSimple:
		backupPath = simplePath(dest, suffix)
	case options.BackupNumbered:
		backupPath = numberedPath(dest)
	case options.BackupExisting:
		if hasNumberedBackups(dest) {
			backupPath = numberedPath(dest)
		} else {
			backupPath = simplePath(dest, suffix)
		}
	default:
		return ""
	}

	if err := os.Rename(dest, backupPath); err != nil {
		return ""
	}
	return backupPath
}

func simplePath(dest, suffix string) string {
	return dest + suffix
}

func numberedPath(dest string) string {
	n := 1
	for {
		candidate := dest + ".~" + strconv.Itoa(n) + "~"
		if _, err := os.Lstat(candidate); err != nil {
			return candidate
		}
		n++
	}
}

func hasNumberedBackups(dest string) bool {
	dir := filepath.Dir(dest)
	name := filepath.Base(dest)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		n := e.Name()
		if strings.HasPrefix(n, name) && strings.Contains(n, ".~") && strings.HasSuffix(n, "~") {
			return true
		}
	}
	return false
}
