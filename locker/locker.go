// Package locker maintains the persistent set of package names that must
// not be touched by a system-wide update.
//
// Grounded on prt-get's Locker (locker.cpp): read-on-construction from a
// one-name-per-line file, explicit Store (no auto-persist), and
// insertion-order membership semantics.
package locker

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// Locker is an ordered set of locked package names. Load errors (the file
// not existing yet, typically) are not fatal: OpenFailed reports them so
// callers can decide whether to treat a from-scratch locker as normal.
type Locker struct {
	path       string
	packages   []string
	openFailed bool
}

// Open reads the locker file at path. A missing file is not an error in
// itself; OpenFailed() will report it and the Locker starts out empty.
func Open(path string) *Locker {
	l := &Locker{path: path}

	f, err := os.Open(path)
	if err != nil {
		l.openFailed = true
		return l
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			l.packages = append(l.packages, line)
		}
	}

	return l
}

// OpenFailed reports whether the locker file could not be opened for
// reading at construction time.
func (l *Locker) OpenFailed() bool {
	return l.openFailed
}

// LockedPackages returns the locked names in insertion order.
func (l *Locker) LockedPackages() []string {
	out := make([]string, len(l.packages))
	copy(out, l.packages)
	return out
}

// IsLocked reports whether name is currently locked.
func (l *Locker) IsLocked(name string) bool {
	for _, p := range l.packages {
		if p == name {
			return true
		}
	}
	return false
}

// Lock adds name to the locked set. Returns false if it was already locked.
func (l *Locker) Lock(name string) bool {
	if l.IsLocked(name) {
		return false
	}
	l.packages = append(l.packages, name)
	return true
}

// Unlock removes name from the locked set. Returns false if it wasn't
// locked.
func (l *Locker) Unlock(name string) bool {
	for i, p := range l.packages {
		if p == name {
			l.packages = append(l.packages[:i], l.packages[i+1:]...)
			return true
		}
	}
	return false
}

// Store writes the current locked set back to disk, one name per line.
// Callers must call it explicitly; Lock/Unlock never persist on their own.
func (l *Locker) Store() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("locker: creating directory: %w", err)
	}

	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("locker: creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, p := range l.packages {
		fmt.Fprintln(w, p)
	}
	return w.Flush()
}
