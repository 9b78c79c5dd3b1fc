package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/winkj/prt-get/repository"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prt-get.conf")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesMultiplePrtdirLines(t *testing.T) {
	path := writeConfig(t, "prtdir /usr/ports/core\nprtdir /usr/ports/opt : foo bar\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Roots) != 2 {
		t.Fatalf("Roots = %v, want 2 entries", cfg.Roots)
	}
	if cfg.Roots[0].Path != "/usr/ports/core" || len(cfg.Roots[0].Whitelist) != 0 {
		t.Errorf("Roots[0] = %+v", cfg.Roots[0])
	}
	if cfg.Roots[1].Path != "/usr/ports/opt" {
		t.Errorf("Roots[1].Path = %q", cfg.Roots[1].Path)
	}
	if len(cfg.Roots[1].Whitelist) != 2 || cfg.Roots[1].Whitelist[0] != "foo" {
		t.Errorf("Roots[1].Whitelist = %v", cfg.Roots[1].Whitelist)
	}
}

func TestLoadIgnoresCommentsAndInlineHash(t *testing.T) {
	path := writeConfig(t, "# a full comment\ncachefile /var/lib/pkg/cache # trailing note\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheFile != "/var/lib/pkg/cache" {
		t.Errorf("CacheFile = %q", cfg.CacheFile)
	}
}

func TestLoadYesNoFlags(t *testing.T) {
	path := writeConfig(t, "useregex yes\npreferhigher no\nrunscripts yes\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.UseRegex || cfg.PreferHigher != false || !cfg.RunScripts {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadWriteLogEnabledDisabled(t *testing.T) {
	path := writeConfig(t, "writelog enabled\nlogfile /var/log/pkg/%n-%v-%r.log\nlogmode append\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.WriteLog {
		t.Error("WriteLog should be true")
	}
	if cfg.LogMode != LogAppend {
		t.Error("LogMode should be append")
	}

	path = writeConfig(t, "writelog disabled\n")
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WriteLog {
		t.Error("WriteLog should be false")
	}
}

func TestDefaultsSurviveUnknownKeyword(t *testing.T) {
	path := writeConfig(t, "somefuturekeyword somevalue\ncachefile /custom/cache\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheFile != "/custom/cache" {
		t.Error("known keyword after unknown one should still apply")
	}
	if cfg.MakeCommand != "pkgmk" {
		t.Error("default MakeCommand should survive unrelated unknown directive")
	}
}

func TestValidateFailsWithNoRoots(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate() to fail with no prtdir entries")
	}
}

func TestValidateFailsOnMissingDir(t *testing.T) {
	cfg := Default()
	cfg.Roots = append(cfg.Roots, repository.Root{Path: "/does/not/exist"})
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate() to fail for a nonexistent prtdir")
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf")

	cfg := Default()
	if err := WriteDefault(path, cfg); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.CacheFile != cfg.CacheFile {
		t.Errorf("CacheFile = %q, want %q", reloaded.CacheFile, cfg.CacheFile)
	}
}
