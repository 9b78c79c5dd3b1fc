package port

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePkgfile(t *testing.T, root, name, body string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Pkgfile"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPortLoadsBasicFields(t *testing.T) {
	root := t.TempDir()
	writePkgfile(t, root, "wget", `# Description: a network retriever
# URL: https://www.gnu.org/software/wget/
# Packager: Jane Doe
# Maintainer: John Smith
# Depends on: openssl libidn
version=1.21.3
release=1
`)

	p := New("wget", root)
	if got := p.Version(); got != "1.21.3" {
		t.Errorf("Version() = %q, want 1.21.3", got)
	}
	if got := p.Release(); got != "1" {
		t.Errorf("Release() = %q, want 1", got)
	}
	if got := p.Description(); got != "a network retriever" {
		t.Errorf("Description() = %q", got)
	}
	if got := p.Dependencies(); got != "openssl,libidn" {
		t.Errorf("Dependencies() = %q, want openssl,libidn", got)
	}
	if got := p.VersionReleaseString(); got != "1.21.3-1" {
		t.Errorf("VersionReleaseString() = %q", got)
	}
}

func TestPortLoadsOnlyOnce(t *testing.T) {
	root := t.TempDir()
	writePkgfile(t, root, "foo", "version=1\nrelease=1\n")

	p := New("foo", root)
	_ = p.Version()

	// Mutate the Pkgfile after the first load; a second access must not
	// re-read it.
	writePkgfile(t, root, "foo", "version=2\nrelease=2\n")
	if got := p.Version(); got != "1" {
		t.Errorf("Version() = %q after mutation, want cached 1", got)
	}
}

func TestPortMissingPkgfileLeavesZeroValues(t *testing.T) {
	root := t.TempDir()
	p := New("ghost", root)
	if got := p.Version(); got != "" {
		t.Errorf("Version() = %q, want empty for missing Pkgfile", got)
	}
}

func TestPortNameAndPathNeverTriggerLoad(t *testing.T) {
	p := New("nope", "/does/not/exist")
	if p.Name() != "nope" || p.Path() != "/does/not/exist" {
		t.Fatal("Name/Path mismatch")
	}
}

func TestPortHasInstallHooksAndReadme(t *testing.T) {
	root := t.TempDir()
	writePkgfile(t, root, "bar", "version=1\nrelease=1\n")
	dir := filepath.Join(root, "bar")
	for _, f := range []string{"README", "pre-install", "post-install"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(""), 0644); err != nil {
			t.Fatal(err)
		}
	}

	p := New("bar", root)
	p.Version() // trigger load

	if !p.HasReadme() {
		t.Error("HasReadme() = false, want true")
	}
	if !p.HasPreInstall() {
		t.Error("HasPreInstall() = false, want true")
	}
	if !p.HasPostInstall() {
		t.Error("HasPostInstall() = false, want true")
	}
}

func TestNewLoadedParsesYesNoFlags(t *testing.T) {
	p := NewLoaded("wget", "/ports", "1.0", "1", "desc", "dep1,dep2",
		"https://example.com", "pkgr", "maint", "yes", "no", "yes")

	if !p.HasReadme() || p.HasPreInstall() || !p.HasPostInstall() {
		t.Errorf("flags = (%v,%v,%v), want (true,false,true)",
			p.HasReadme(), p.HasPreInstall(), p.HasPostInstall())
	}
	if p.Version() != "1.0" || p.VersionReleaseString() != "1.0-1" {
		t.Errorf("Version/VersionReleaseString mismatch: %q %q", p.Version(), p.VersionReleaseString())
	}
}

func TestExpandShellCommandsDate(t *testing.T) {
	now := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	got := expandShellCommands("1.0.`date '+%Y%m%d'`", now, "")
	if want := "1.0.20240305"; got != want {
		t.Errorf("expandShellCommands = %q, want %q", got, want)
	}
}

func TestExpandShellCommandsUnameRelease(t *testing.T) {
	got := expandShellCommands("kernel-`uname -r`", time.Now(), "6.1.0-custom")
	if want := "kernel-6.1.0-custom"; got != want {
		t.Errorf("expandShellCommands = %q, want %q", got, want)
	}
}

func TestExpandShellCommandsDollarParenForm(t *testing.T) {
	now := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	got := expandShellCommands(`1.0.$(date "+%Y%m%d")`, now, "")
	if want := "1.0.20240305"; got != want {
		t.Errorf("expandShellCommands = %q, want %q", got, want)
	}
}

func TestSetDependenciesOverridesLoadedValue(t *testing.T) {
	root := t.TempDir()
	writePkgfile(t, root, "baz", "version=1\nrelease=1\n")
	p := New("baz", root)
	p.SetDependencies("external1,external2")
	if got := p.Dependencies(); got != "external1,external2" {
		t.Errorf("Dependencies() = %q, want external1,external2", got)
	}
}
