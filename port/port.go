// Package port models a single buildable unit read from a Pkgfile-style
// metadata file: a name, the ports-tree root it lives under, and a set of
// lazily-loaded fields (version, release, description, dependencies, ...).
//
// Grounded on prt-get's Package/PackageData (package.cpp): two construction
// modes (header-only vs fully-materialized, e.g. from a repository cache
// record), load-at-most-once semantics, and the exact Pkgfile line grammar.
package port

import (
	"bufio"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Port is a single entry in a ports tree. Fields beyond Name and Path are
// populated on first access by reading <Path>/<Name>/Pkgfile, unless the
// port was constructed already-materialized (NewLoaded), in which case no
// file is ever touched.
type Port struct {
	name string
	path string

	once    sync.Once
	loadErr error

	version        string
	release        string
	description    string
	dependencies   string
	url            string
	packager       string
	maintainer     string
	hasReadme      bool
	hasPreInstall  bool
	hasPostInstall bool
}

// New creates a port that will lazily read its Pkgfile the first time one
// of its metadata accessors is called.
func New(name, path string) *Port {
	return &Port{name: name, path: path}
}

// NewLoaded creates a fully-materialized port, e.g. from a repository cache
// record, that never reads from disk. hasReadme/hasPreInstall/hasPostInstall
// are passed as the literal "yes"/"no" strings used by the on-disk cache
// format, matching prt-get's PackageData constructor.
func NewLoaded(name, path, version, release, description, dependencies,
	url, packager, maintainer, hasReadme, hasPreInstall, hasPostInstall string) *Port {
	p := &Port{
		name:           name,
		path:           path,
		version:        version,
		release:        release,
		description:    description,
		dependencies:   dependencies,
		url:            url,
		packager:       packager,
		maintainer:     maintainer,
		hasReadme:      strings.TrimSpace(hasReadme) == "yes",
		hasPreInstall:  strings.TrimSpace(hasPreInstall) == "yes",
		hasPostInstall: strings.TrimSpace(hasPostInstall) == "yes",
	}
	p.once.Do(func() {}) // mark as already loaded
	return p
}

// Name is the port's name, e.g. "wget". Never triggers a load.
func (p *Port) Name() string { return p.name }

// Path is the ports-tree root this port was found under. Never triggers a
// load.
func (p *Port) Path() string { return p.path }

func (p *Port) load() error {
	p.once.Do(func() {
		p.loadErr = p.readPkgfile()
	})
	return p.loadErr
}

// Version is the version= field, with any shell macros expanded.
func (p *Port) Version() string {
	p.load()
	return p.version
}

// Release is the release= field.
func (p *Port) Release() string {
	p.load()
	return p.release
}

// Description is the "# Description:" comment field.
func (p *Port) Description() string {
	p.load()
	return p.description
}

// Dependencies is the comma-separated "# Depends on:" comment field.
func (p *Port) Dependencies() string {
	p.load()
	return p.dependencies
}

// SetDependencies overrides the dependency line, used when a repository
// overlay merges in an externally supplied dependency list.
func (p *Port) SetDependencies(deps string) {
	p.load()
	p.dependencies = deps
}

// URL is the "# URL:" comment field.
func (p *Port) URL() string {
	p.load()
	return p.url
}

// Packager is the "# Packager:" comment field.
func (p *Port) Packager() string {
	p.load()
	return p.packager
}

// Maintainer is the "# Maintainer:" comment field.
func (p *Port) Maintainer() string {
	p.load()
	return p.maintainer
}

// HasReadme reports whether <path>/<name>/README exists.
func (p *Port) HasReadme() bool {
	p.load()
	return p.hasReadme
}

// HasPreInstall reports whether <path>/<name>/pre-install exists. Matches
// prt-get's accessor in not forcing a load itself; callers normally reach it
// after another accessor has already loaded the port.
func (p *Port) HasPreInstall() bool {
	return p.hasPreInstall
}

// HasPostInstall reports whether <path>/<name>/post-install exists.
func (p *Port) HasPostInstall() bool {
	return p.hasPostInstall
}

// VersionReleaseString formats "<version>-<release>", the canonical
// installed-db string form.
func (p *Port) VersionReleaseString() string {
	p.load()
	return p.version + "-" + p.release
}

func (p *Port) readPkgfile() error {
	fileName := p.path + "/" + p.name + "/Pkgfile"
	f, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	now := time.Now()
	release := unameRelease()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "version="):
			v := valueBefore(valueAfter(line, '='), '#')
			p.version = expandShellCommands(strings.TrimSpace(v), now, release)
		case strings.HasPrefix(line, "release="):
			v := valueBefore(valueAfter(line, '='), '#')
			p.release = strings.TrimSpace(v)
		case strings.HasPrefix(line, "#"):
			p.parseMetaComment(line)
		}
	}

	readmeStat(p.path+"/"+p.name+"/README", &p.hasReadme)
	readmeStat(p.path+"/"+p.name+"/pre-install", &p.hasPreInstall)
	readmeStat(p.path+"/"+p.name+"/post-install", &p.hasPostInstall)

	return scanner.Err()
}

func (p *Port) parseMetaComment(line string) {
	for len(line) > 0 && (line[0] == '#' || line[0] == ' ' || line[0] == '\t') {
		line = line[1:]
	}
	if !strings.Contains(line, ":") {
		return
	}

	switch {
	case startsWithFold(line, "desc"):
		p.description = strings.TrimSpace(valueAfter(line, ':'))
	case startsWithFold(line, "pack"):
		p.packager = strings.TrimSpace(valueAfter(line, ':'))
	case startsWithFold(line, "maint"):
		p.maintainer = strings.TrimSpace(valueAfter(line, ':'))
	case startsWithFold(line, "url"):
		p.url = strings.TrimSpace(valueAfter(line, ':'))
	case startsWithFold(line, "dep"):
		depends := strings.TrimSpace(valueAfter(line, ':'))
		depends = strings.ReplaceAll(depends, " ", ",")
		depends = strings.ReplaceAll(depends, ",,", ",")
		p.dependencies = depends
	}
}

func readmeStat(path string, target *bool) {
	if _, err := os.Stat(path); err == nil {
		*target = true
	}
}

func startsWithFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

// valueAfter returns the untrimmed remainder of s after the first occurrence
// of sep, or "" if sep is absent.
func valueAfter(s string, sep byte) string {
	idx := strings.IndexByte(s, sep)
	if idx < 0 {
		return ""
	}
	return s[idx+1:]
}

// valueBefore returns the portion of s before the first occurrence of sep,
// or all of s if sep is absent. Used to strip trailing "# comment" text off
// a version=/release= value.
func valueBefore(s string, sep byte) string {
	idx := strings.IndexByte(s, sep)
	if idx < 0 {
		return s
	}
	return s[:idx]
}

func unameRelease() string {
	var buf unix.Utsname
	if err := unix.Uname(&buf); err != nil {
		return ""
	}
	return charsToString(buf.Release[:])
}

func charsToString(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// expandShellCommands resolves the two shell-macro forms prt-get Pkgfiles
// use in version strings: `uname -r` / $(uname -r), and
// `date '+FORMAT'` / $(date "+FORMAT"). Only one date pattern per string is
// supported, matching the original implementation.
func expandShellCommands(input string, now time.Time, unameRelease string) string {
	type tagPair struct{ start, end string }
	tagPairs := []tagPair{{"`", "`"}, {"$(", ")"}}

	for _, tags := range tagPairs {
		if unameRelease != "" {
			input = strings.ReplaceAll(input, tags.start+"uname -r"+tags.end, unameRelease)
		}

		pos := strings.Index(input, tags.start+"date")
		if pos < 0 {
			continue
		}

		endIdx := strings.Index(input[pos+1:], tags.end)
		if endIdx < 0 {
			continue
		}
		endIdx += pos + 1

		startIdx := strings.IndexByte(input[pos+1:], '+')
		if startIdx < 0 {
			continue
		}
		startIdx += pos + 1

		format := input[startIdx+1 : endIdx]
		if n := len(format); n > 0 && (format[n-1] == '\'' || format[n-1] == '"') {
			format = format[:n-1]
		}

		input = input[:pos] + now.Format(strftimeToGo(format)) + input[endIdx+1:]
	}

	return input
}

// strftimeToGo translates the small set of strftime directives Pkgfiles
// actually use into Go's reference-time layout.
func strftimeToGo(format string) string {
	replacer := strings.NewReplacer(
		"%Y", "2006",
		"%y", "06",
		"%m", "01",
		"%d", "02",
		"%H", "15",
		"%M", "04",
		"%S", "05",
		"%b", "Jan",
		"%B", "January",
		"%a", "Mon",
		"%A", "Monday",
	)
	return replacer.Replace(format)
}
