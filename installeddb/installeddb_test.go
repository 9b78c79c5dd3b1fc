package installeddb

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDB(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "db")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeAliases(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "aliases")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIsInstalledDirectHit(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeDB(t, dir, "wget\n1.21-1\nfilelist1\nfilelist2\n\n")

	db := New(dbPath, "")
	installed, isAlias, provider := db.IsInstalled("wget", true)
	if !installed || isAlias || provider != "" {
		t.Errorf("got (%v,%v,%q), want (true,false,\"\")", installed, isAlias, provider)
	}
}

func TestIsInstalledViaAlias(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeDB(t, dir, "openjdk\n17-1\n\n")
	aliasPath := writeAliases(t, dir, "openjdk: java,jre,jdk\n")

	db := New(dbPath, aliasPath)
	installed, isAlias, provider := db.IsInstalled("jre", true)
	if !installed || !isAlias || provider != "openjdk" {
		t.Errorf("got (%v,%v,%q), want (true,true,openjdk)", installed, isAlias, provider)
	}
}

func TestIsInstalledAliasIgnoredWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeDB(t, dir, "openjdk\n17-1\n\n")
	aliasPath := writeAliases(t, dir, "openjdk: java\n")

	db := New(dbPath, aliasPath)
	installed, _, _ := db.IsInstalled("java", false)
	if installed {
		t.Error("expected alias lookup to be skipped when useAlias=false")
	}
}

func TestIsInstalledMiss(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeDB(t, dir, "wget\n1.21-1\n\n")

	db := New(dbPath, "")
	installed, _, _ := db.IsInstalled("curl", true)
	if installed {
		t.Error("curl should not be installed")
	}
}

func TestGetVersion(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeDB(t, dir, "wget\n1.21-1\n\n")

	db := New(dbPath, "")
	if got := db.GetVersion("wget"); got != "1.21-1" {
		t.Errorf("GetVersion = %q, want 1.21-1", got)
	}
	if got := db.GetVersion("missing"); got != "" {
		t.Errorf("GetVersion(missing) = %q, want empty", got)
	}
}

func TestAliasFirstMatchWinsInFileOrder(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeDB(t, dir, "providerA\n1-1\n\nproviderB\n1-1\n\n")
	aliasPath := writeAliases(t, dir, "providerA: shared\nproviderB: shared\n")

	db := New(dbPath, aliasPath)
	_, _, provider := db.IsInstalled("shared", true)
	if provider != "providerA" {
		t.Errorf("provider = %q, want providerA (first in file)", provider)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeDB(t, dir, "wget\n1.21-1\n\n")

	db := New(dbPath, "")
	first := db.GetVersion("wget")

	// Mutate the file after the first load; the DB must not re-read it.
	writeDB(t, dir, "wget\n2.0-1\n\n")
	second := db.GetVersion("wget")

	if first != second {
		t.Errorf("GetVersion changed across calls: %q then %q", first, second)
	}
}

func TestMatch(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeDB(t, dir, "wget\n1-1\n\ncurl\n1-1\n\nwgetpaste\n1-1\n\n")

	db := New(dbPath, "")
	matches := db.Match(func(name string) bool {
		return len(name) >= 4 && name[:4] == "wget"
	})
	if len(matches) != 2 {
		t.Errorf("matches = %v, want 2 entries", matches)
	}
}
