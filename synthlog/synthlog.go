// Package synthlog writes the per-package build/install log that backs
// InstallTransaction's logging contract: a %n/%p/%v/%r pattern-expanded
// path, a creation-based <log>.lock sidecar, and header/summary lines.
//
// Grounded on go-synth's log.Logger (log/logger.go) for the header/summary
// texture and Sync-after-write discipline, generalized from dsynth's fixed
// set of named log files to prt-get's one-pattern-per-package log, and on
// gofrs/flock for the lock sidecar go-synth itself does not need (dsynth
// owns its whole logs directory outright).
package synthlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// ErrAlreadyLocked is returned by Open when the <log>.lock sidecar already
// exists and could not be acquired.
var ErrAlreadyLocked = fmt.Errorf("synthlog: log file is already locked")

// ErrLogDirFailure is returned (wrapped) by Open when the log's parent
// directory could not be created.
var ErrLogDirFailure = fmt.Errorf("synthlog: creating log directory")

// ErrLogFileFailure is returned (wrapped) by Open when the log file itself
// could not be opened, distinct from a directory-creation failure.
var ErrLogFileFailure = fmt.Errorf("synthlog: opening log file")

// Logger writes to a single expanded log path for one package's install
// step, optionally holding an advisory lock on a sidecar file for the
// duration.
type Logger struct {
	path string
	file *os.File
	lock *flock.Flock
}

// ExpandPattern substitutes %n (name), %p (path), %v (version), %r
// (release) in pattern, matching the configuration file's logfile grammar.
func ExpandPattern(pattern, name, path, version, release string) string {
	replacer := strings.NewReplacer(
		"%n", name,
		"%p", path,
		"%v", version,
		"%r", release,
	)
	return replacer.Replace(pattern)
}

// Open creates the log's parent directory (mode 0755) if needed, optionally
// acquires a creation-based lock via a "<path>.lock" sidecar, and opens the
// log file in append or truncate mode.
//
// locked: when true, a lock file at path+".lock" must not already exist;
// ErrAlreadyLocked is returned if it does.
// append: when true, writes are appended to an existing log; otherwise the
// log is truncated first.
func Open(path string, locked bool, append bool) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogDirFailure, err)
	}

	l := &Logger{path: path}

	if locked {
		lockPath := path + ".lock"
		if _, err := os.Stat(lockPath); err == nil {
			return nil, ErrAlreadyLocked
		}
		l.lock = flock.New(lockPath)
		ok, err := l.lock.TryLock()
		if err != nil || !ok {
			return nil, ErrAlreadyLocked
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if l.lock != nil {
			l.lock.Unlock()
			os.Remove(path + ".lock")
		}
		return nil, fmt.Errorf("%w: %v", ErrLogFileFailure, err)
	}
	l.file = f

	return l, nil
}

// Writer exposes the underlying log file for process.Runner's Log field.
func (l *Logger) Writer() *os.File {
	return l.file
}

// Starting writes the "starting build" header with the command line that
// is about to run.
func (l *Logger) Starting(commandLine string) {
	fmt.Fprintf(l.file, "starting build - %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(l.file, "command: %s\n\n", commandLine)
	l.file.Sync()
}

// Done writes the "build done" footer.
func (l *Logger) Done() {
	fmt.Fprintf(l.file, "\nbuild done - %s\n", time.Now().Format(time.RFC3339))
	l.file.Sync()
}

// Summary writes a short result line, used once per pre/build/install/post
// phase.
func (l *Logger) Summary(phase, result string) {
	fmt.Fprintf(l.file, "[%s] %s: %s\n", time.Now().Format("15:04:05"), phase, result)
	l.file.Sync()
}

// Close closes the log file and, if held, releases and removes the lock
// sidecar.
func (l *Logger) Close() error {
	var err error
	if l.file != nil {
		err = l.file.Close()
	}
	if l.lock != nil {
		l.lock.Unlock()
		os.Remove(l.path + ".lock")
	}
	return err
}

// Remove deletes the log file itself. The install transaction does not call
// it; logs are kept after a successful step.
func (l *Logger) Remove() error {
	return os.Remove(l.path)
}
