// Package plog is a thin structured-logging shim in the shape of
// rclone's fs.Debugf/fs.Errorf/fs.Logf call sites (backend/local uses
// these throughout for one-time warnings and error reporting), backed
// by zerolog rather than rclone's own backend-registry-coupled logger.
package plog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger      zerolog.Logger
	initOnce    sync.Once
	warnedMu    sync.Mutex
	warnedOnce  = map[string]struct{}{}
)

func ensureInit() {
	initOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger().Level(zerolog.InfoLevel)
	})
}

// SetLevel raises or lowers verbosity; debug implies at least debug level.
func SetLevel(verbose, debug bool) {
	ensureInit()
	switch {
	case debug:
		logger = logger.Level(zerolog.DebugLevel)
	case verbose:
		logger = logger.Level(zerolog.InfoLevel)
	default:
		logger = logger.Level(zerolog.WarnLevel)
	}
}

func Debugf(format string, args ...any) {
	ensureInit()
	logger.Debug().Msg(fmt.Sprintf(format, args...))
}

func Infof(format string, args ...any) {
	ensureInit()
	logger.Info().Msg(fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	ensureInit()
	logger.Error().Msg(fmt.Sprintf(format, args...))
}

// WarnOnce emits a warning the first time it is called for a given key
// in the process lifetime, matching backend/local's warned map/mutex
// pattern used to avoid flooding stderr with repeated capability
// warnings (e.g. "socket skipped", "xattr unsupported").
func WarnOnce(key, format string, args ...any) {
	warnedMu.Lock()
	_, seen := warnedOnce[key]
	if !seen {
		warnedOnce[key] = struct{}{}
	}
	warnedMu.Unlock()
	if seen {
		return
	}
	ensureInit()
	logger.Warn().Msg(fmt.Sprintf(format, args...))
}
