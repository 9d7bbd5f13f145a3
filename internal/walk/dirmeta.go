package walk

import (
	"sync"

	"github.com/gocp/gocp/internal/options"
	"github.com/gocp/gocp/internal/xmeta"
)

type dirMetaEntry struct {
	src, dst string
	st       *xmeta.Stat
}

// dirMetaQueue accumulates directory metadata during a recursive copy
// so it can be applied after every entry in a directory (including
// nested subdirectories) has been written. Applying a directory's mode
// and timestamps before its contents exist would let later writes
// perturb mtime, and a read-only mode applied too early would block
// the copy outright (spec.md §4.5.3).
type dirMetaQueue struct {
	mu      sync.Mutex
	entries []dirMetaEntry
}

func (q *dirMetaQueue) push(src, dst string, st *xmeta.Stat) {
	q.mu.Lock()
	q.entries = append(q.entries, dirMetaEntry{src, dst, st})
	q.mu.Unlock()
}

// applyAll propagates queued directory metadata. Entries are pushed in
// post-order, a directory only after every descendant has finished, so
// applying the queue in insertion order already satisfies the
// bottom-up requirement.
func (q *dirMetaQueue) applyAll(opts *options.CopyOptions) error {
	for _, e := range q.entries {
		if err := xmeta.PreserveMetadata(e.src, e.dst, e.st, opts); err != nil {
			return err
		}
	}
	return nil
}
