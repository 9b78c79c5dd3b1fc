// Package installeddb reads the installed-package database and resolves
// virtual-provides aliases.
//
// Grounded on prt-get's PkgDB (pkgdb.cpp): the blank-line-separated on-disk
// format, lazy load-once semantics, and the split-on-first-use alias index.
package installeddb

import (
	"bufio"
	"os"
	"strings"
	"sync"
)

// DB is the installed-package database: a name -> version-release map, plus
// a separate alias (virtual-provides) index. Both are loaded lazily, at
// most once, on first query.
type DB struct {
	dbPath    string
	aliasPath string

	once     sync.Once
	loadErr  error
	packages map[string]string // name -> version-release

	// aliases preserves file order so alias resolution is first-match-wins
	// in insertion order, matching PkgDB::aliasExistsFor.
	aliases []aliasEntry
}

type aliasEntry struct {
	provider string
	provides []string
}

// New creates a DB reading its installed-package list from dbPath and its
// alias store from aliasPath. Neither file is read until the first query.
func New(dbPath, aliasPath string) *DB {
	return &DB{dbPath: dbPath, aliasPath: aliasPath}
}

func (d *DB) load() error {
	d.once.Do(func() {
		d.packages = make(map[string]string)

		if d.aliasPath != "" {
			aliases, err := parseAliasFile(d.aliasPath)
			if err == nil {
				d.aliases = aliases
			}
		}

		f, err := os.Open(d.dbPath)
		if err != nil {
			d.loadErr = err
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		var name string
		haveName := false
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				haveName = false
				continue
			}
			if !haveName {
				name = line
				haveName = true
				continue
			}
			// line is the version-release string; remaining file-list
			// lines up to the next blank are skipped.
			d.packages[name] = line
			haveName = false
		}
	})
	return d.loadErr
}

func parseAliasFile(path string) ([]aliasEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []aliasEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if name == "" {
			continue
		}
		provides := strings.Split(value, ",")
		for i := range provides {
			provides[i] = strings.TrimSpace(provides[i])
		}
		out = append(out, aliasEntry{provider: name, provides: provides})
	}
	return out, scanner.Err()
}

// aliasProviderFor returns the provider name whose alias list contains
// name, and true, or "", false if none does. First match wins in the
// order providers appear in the aliases file.
func (d *DB) aliasProviderFor(name string) (string, bool) {
	for _, entry := range d.aliases {
		for _, p := range entry.provides {
			if p == name {
				return entry.provider, true
			}
		}
	}
	return "", false
}

// IsInstalled reports whether name is installed. When useAlias is true and
// name is not directly installed, the alias index is also consulted; if a
// match is found, isAlias is true and provider names the package that
// actually satisfies it.
func (d *DB) IsInstalled(name string, useAlias bool) (installed bool, isAlias bool, provider string) {
	if err := d.load(); err != nil {
		return false, false, ""
	}

	if _, ok := d.packages[name]; ok {
		return true, false, ""
	}
	if !useAlias {
		return false, false, ""
	}

	p, ok := d.aliasProviderFor(name)
	if !ok {
		return false, false, ""
	}
	return true, true, p
}

// GetVersion returns the version-release string for name, or "" if it is
// not installed.
func (d *DB) GetVersion(name string) string {
	if err := d.load(); err != nil {
		return ""
	}
	return d.packages[name]
}

// Match returns the installed packages (name -> version-release) for which
// matches(name) reports true. The pattern syntax (glob or regex) is the
// caller's predicate's business; this package compiles no pattern itself.
func (d *DB) Match(matches func(name string) bool) map[string]string {
	if err := d.load(); err != nil {
		return nil
	}
	out := make(map[string]string)
	for name, versionRelease := range d.packages {
		if matches(name) {
			out[name] = versionRelease
		}
	}
	return out
}

// InstalledPackages returns the full name -> version-release map. Triggers
// a load.
func (d *DB) InstalledPackages() map[string]string {
	if err := d.load(); err != nil {
		return nil
	}
	return d.packages
}
