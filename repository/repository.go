// Package repository aggregates ports across one or more overlay roots into
// a single name-keyed collection, with first-wins shadow resolution, a
// fixed-format on-disk cache, and glob/regex/description search.
//
// Grounded on prt-get's Repository (repository.cpp): overlay scanning order,
// the CACHE_VERSION tag scheme, the 12-line-per-record cache layout, and the
// external-dependency-overlay merge rule.
package repository

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/winkj/prt-get/port"
)

// cacheVersion is the tag written as the first line of a cache file. A
// mismatch on read is a hard error: the cache format is not forward- or
// backward-compatible across tag changes.
const cacheVersion = "PGV1"

// ErrFormat is returned by LoadCache when the cache's version tag does not
// match cacheVersion.
var ErrFormat = errors.New("repository: cache format mismatch")

// Root is a single overlay root: a ports-tree directory plus an optional
// whitelist restricting which subdirectories are considered.
type Root struct {
	Path      string
	Whitelist []string // nil or empty means "no restriction"
}

// Repository owns the name -> *port.Port mapping built from one or more
// overlay roots, plus optional shadow tracking for names that collided
// during the scan.
type Repository struct {
	byName map[string]*port.Port
	order  []string // insertion order, for deterministic iteration/search

	trackShadows bool
	shadows      map[string]ShadowEntry

	useRegex bool
}

// ShadowEntry records that a later Loser's name collided with the earlier
// Winner from a higher-priority overlay root. Only populated when shadow
// tracking is on.
type ShadowEntry struct {
	Loser  *port.Port
	Winner *port.Port
}

// New creates an empty repository. useRegex controls whether Search uses
// POSIX-style regex matching (true) or glob matching (false).
func New(useRegex bool) *Repository {
	return &Repository{
		byName:   make(map[string]*port.Port),
		useRegex: useRegex,
	}
}

// EnableShadowTracking turns on recording of shadowed/winner pairs during
// subsequent Scan calls.
func (r *Repository) EnableShadowTracking() {
	r.trackShadows = true
	if r.shadows == nil {
		r.shadows = make(map[string]ShadowEntry)
	}
}

// Shadows returns the shadow map recorded so far (nil if tracking is off).
func (r *Repository) Shadows() map[string]ShadowEntry {
	return r.shadows
}

// Scan enumerates the given overlay roots in order, deduplicated by absolute
// path, and inserts a header-only port.Port for each candidate subdirectory
// that hasn't already been claimed by an earlier root. On a name collision,
// the loser is either dropped or recorded in the shadow map, depending on
// EnableShadowTracking.
func (r *Repository) Scan(roots []Root) error {
	seenRoots := make(map[string]bool)

	for _, root := range roots {
		abs, err := filepath.Abs(root.Path)
		if err != nil {
			return fmt.Errorf("repository: resolving root %q: %w", root.Path, err)
		}
		if seenRoots[abs] {
			continue
		}
		seenRoots[abs] = true

		allow := whitelistSet(root.Whitelist)

		entries, err := os.ReadDir(root.Path)
		if err != nil {
			return fmt.Errorf("repository: reading root %q: %w", root.Path, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			name := entry.Name()
			if allow != nil && !allow[name] {
				continue
			}

			pkgfile := filepath.Join(root.Path, name, "Pkgfile")
			if _, err := os.Stat(pkgfile); err != nil {
				continue
			}

			candidate := port.New(name, root.Path)
			r.insert(name, candidate)
		}
	}

	return nil
}

func (r *Repository) insert(name string, p *port.Port) {
	if existing, ok := r.byName[name]; ok {
		if r.trackShadows {
			r.shadows[name] = ShadowEntry{Loser: p, Winner: existing}
		}
		return
	}
	r.byName[name] = p
	r.order = append(r.order, name)
}

// whitelistSet parses a comma/whitespace-separated whitelist string list
// into a set, normalizing any whitespace separators to match repository.cpp
// (spaces and tabs collapse to commas, double commas collapse to one).
func whitelistSet(entries []string) map[string]bool {
	if len(entries) == 0 {
		return nil
	}
	set := make(map[string]bool, len(entries))
	for _, raw := range entries {
		normalized := strings.ReplaceAll(raw, "\t", ",")
		normalized = strings.ReplaceAll(normalized, " ", ",")
		normalized = strings.ReplaceAll(normalized, ",,", ",")
		for _, name := range strings.Split(normalized, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				set[name] = true
			}
		}
	}
	return set
}

// Get is an exact lookup by name.
func (r *Repository) Get(name string) (*port.Port, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Len is the number of distinct ports in the primary map.
func (r *Repository) Len() int {
	return len(r.order)
}

// Names returns the ports' names in insertion (deterministic scan) order.
func (r *Repository) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Search returns the names whose own name matches pattern: glob
// (case-folded) if useRegex is false, POSIX extended regex (case-insensitive)
// otherwise.
func (r *Repository) Search(pattern string) ([]string, error) {
	matcher, err := newNameMatcher(pattern, r.useRegex)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, name := range r.order {
		if matcher(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// SearchDescription returns the names matching pattern against either the
// name or the description field. Names are matched as in Search. The
// description is matched with the case-insensitive regex in regex mode, and
// as a case-folded substring in glob mode. Every port whose name does not
// match is loaded.
func (r *Repository) SearchDescription(pattern string) ([]string, error) {
	matcher, err := newNameMatcher(pattern, r.useRegex)
	if err != nil {
		return nil, err
	}

	lowerPattern := strings.ToLower(pattern)

	var out []string
	for _, name := range r.order {
		p := r.byName[name]
		if matcher(name) {
			out = append(out, name)
			continue
		}
		if r.useRegex {
			if matcher(p.Description()) {
				out = append(out, name)
			}
		} else if strings.Contains(strings.ToLower(p.Description()), lowerPattern) {
			out = append(out, name)
		}
	}
	return out, nil
}

func newNameMatcher(pattern string, useRegex bool) (func(string) bool, error) {
	if useRegex {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("repository: invalid pattern %q: %w", pattern, err)
		}
		return re.MatchString, nil
	}
	lowerPattern := strings.ToLower(pattern)
	return func(name string) bool {
		ok, err := filepath.Match(lowerPattern, strings.ToLower(name))
		return err == nil && ok
	}, nil
}

// MergeDependencyOverlay applies "name: dep1,dep2" entries onto records
// whose own dependency field is empty. Entries for unknown names, or for
// records that already carry dependencies, are ignored.
func (r *Repository) MergeDependencyOverlay(overlay map[string]string) {
	for name, deps := range overlay {
		p, ok := r.byName[name]
		if !ok {
			continue
		}
		if p.Dependencies() != "" {
			continue
		}
		p.SetDependencies(deps)
	}
}

// ParseDependencyOverlayFile reads a "name: dep1,dep2" per-line file, in the
// same grammar as the aliases file: '#' starts a comment, blank lines are
// skipped, whitespace around tokens is stripped.
func ParseDependencyOverlayFile(path string) (map[string]string, error) {
	return parseColonList(path)
}

func parseColonList(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)
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
		if name != "" {
			out[name] = value
		}
	}
	return out, scanner.Err()
}

// WriteCache serializes the primary map to path in the fixed 12-line-per-
// record text format, creating parent directories as needed (mode 0755).
func (r *Repository) WriteCache(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("repository: creating cache dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("repository: creating cache file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, cacheVersion)

	for _, name := range r.order {
		p := r.byName[name]
		fmt.Fprintln(w, p.Name())
		fmt.Fprintln(w, p.Path())
		fmt.Fprintln(w, p.Version())
		fmt.Fprintln(w, p.Release())
		fmt.Fprintln(w, p.Description())
		fmt.Fprintln(w, p.Dependencies())
		fmt.Fprintln(w, p.URL())
		fmt.Fprintln(w, p.Packager())
		fmt.Fprintln(w, p.Maintainer())
		fmt.Fprintln(w, yesNo(p.HasReadme()))
		fmt.Fprintln(w, yesNo(p.HasPreInstall()))
		fmt.Fprintln(w, yesNo(p.HasPostInstall()))
		fmt.Fprintln(w)
	}

	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// LoadCache populates the repository from a cache file written by
// WriteCache. ErrFormat is returned (wrapped) if the version tag doesn't
// match; any other read error is returned as-is.
func (r *Repository) LoadCache(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("repository: opening cache file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return fmt.Errorf("repository: empty cache file")
	}
	if scanner.Text() != cacheVersion {
		return fmt.Errorf("%w: got %q, want %q", ErrFormat, scanner.Text(), cacheVersion)
	}

	const fieldsPerRecord = 12
	fields := make([]string, fieldsPerRecord)
	for {
		n := 0
		for n < fieldsPerRecord && scanner.Scan() {
			fields[n] = scanner.Text()
			n++
		}
		if n == 0 {
			break
		}
		if n != fieldsPerRecord {
			return fmt.Errorf("repository: truncated cache record (got %d of %d fields)", n, fieldsPerRecord)
		}

		p := port.NewLoaded(
			fields[0], fields[1], fields[2], fields[3], fields[4],
			fields[5], fields[6], fields[7], fields[8],
			fields[9], fields[10], fields[11],
		)
		r.insert(fields[0], p)

		scanner.Scan() // consume the blank separator line
	}

	return scanner.Err()
}

// CacheStale reports whether the cache file at cachePath is older than the
// configuration file at configPath (by ctime-equivalent mtime comparison),
// in which case callers must regenerate it.
func CacheStale(configPath, cachePath string) (bool, error) {
	configInfo, err := os.Stat(configPath)
	if err != nil {
		return false, err
	}
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return configInfo.ModTime().After(cacheInfo.ModTime()), nil
}

// stripGroup strips a leading "group/" segment from a dependency token,
// retaining only the last path segment for lookup purposes.
func stripGroup(token string) string {
	if idx := strings.LastIndexByte(token, '/'); idx >= 0 {
		return token[idx+1:]
	}
	return token
}

// DependencyNames splits a port's comma-separated dependency field into
// individual lookup names, applying the group/name stripping rule.
func DependencyNames(p *port.Port) []string {
	raw := p.Dependencies()
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, stripGroup(part))
	}
	return out
}
