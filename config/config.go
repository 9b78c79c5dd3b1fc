// Package config loads prt-get's flat configuration file: one
// "keyword value..." directive per line, no [section] headers.
//
// Grounded on go-synth's config.LoadConfig (config/config.go) for the
// overall shape (defaults struct, hand-rolled line scanner, Validate()),
// adapted from dsynth.ini's key=value-with-sections grammar to prt-get's
// simpler keyword-first-token grammar, which a generic INI parser (the
// teacher's own gopkg.in/ini.v1, present in its dependency list but unused
// by its production code) cannot express without contortion — see
// DESIGN.md for why this package still hand-rolls its scanner.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/winkj/prt-get/repository"
)

// LogMode selects whether a package's log is truncated or appended to on
// each run.
type LogMode int

const (
	LogOverwrite LogMode = iota
	LogAppend
)

// ReadmeMode selects how READMEs are surfaced after install.
type ReadmeMode int

const (
	ReadmeDisabled ReadmeMode = iota
	ReadmeCompact
	ReadmeVerbose
)

// Config is prt-get's runtime configuration, as read from its config file.
type Config struct {
	Roots []repository.Root

	CacheFile string

	WriteLog bool
	LogFile  string // pattern with %n/%p/%v/%r
	LogMode  LogMode

	Readme       ReadmeMode
	RunScripts   bool
	PreferHigher bool
	UseRegex     bool

	MakeCommand      string
	AddCommand       string
	RemoveCommand    string
	RunScriptCommand string

	PkgDBFile string
	AliasFile string
	LockFile  string
}

// Default returns the configuration prt-get falls back to when no
// directive overrides a given setting.
func Default() *Config {
	return &Config{
		CacheFile:        "/var/lib/pkg/prt-get.cache",
		WriteLog:         false,
		LogFile:          "/var/log/pkgmk/%n-%v-%r.log",
		LogMode:          LogOverwrite,
		Readme:           ReadmeDisabled,
		RunScripts:       true,
		PreferHigher:     false,
		UseRegex:         false,
		MakeCommand:      "pkgmk",
		AddCommand:       "pkgadd",
		RemoveCommand:    "pkgrm",
		RunScriptCommand: "/bin/sh",
		PkgDBFile:        "/var/lib/pkg/db",
		AliasFile:        "/etc/prt-get.alias",
		LockFile:         "/etc/prt-get.lock",
	}
}

// Load reads directives from path into a Default() configuration. Lines
// starting with '#' are comments; a trailing '#' also terminates a value.
// Unknown keywords are ignored (prt-get's own behavior: forward
// compatibility over strictness).
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

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

		fields := strings.Fields(line)
		keyword := fields[0]
		rest := strings.TrimSpace(strings.TrimPrefix(line, keyword))

		if err := cfg.apply(keyword, rest); err != nil {
			return nil, fmt.Errorf("config: %s: %w", keyword, err)
		}
	}

	return cfg, scanner.Err()
}

func (cfg *Config) apply(keyword, value string) error {
	switch keyword {
	case "prtdir":
		root := parsePrtdirLine(value)
		cfg.Roots = append(cfg.Roots, root)
	case "cachefile":
		cfg.CacheFile = value
	case "writelog":
		cfg.WriteLog = value == "enabled"
	case "logfile":
		cfg.LogFile = value
	case "logmode":
		if value == "append" {
			cfg.LogMode = LogAppend
		} else {
			cfg.LogMode = LogOverwrite
		}
	case "readme":
		switch value {
		case "verbose":
			cfg.Readme = ReadmeVerbose
		case "compact":
			cfg.Readme = ReadmeCompact
		default:
			cfg.Readme = ReadmeDisabled
		}
	case "runscripts":
		cfg.RunScripts = parseYesNo(value)
	case "preferhigher":
		cfg.PreferHigher = parseYesNo(value)
	case "useregex":
		cfg.UseRegex = parseYesNo(value)
	case "makecommand":
		cfg.MakeCommand = value
	case "addcommand":
		cfg.AddCommand = value
	case "removecommand":
		cfg.RemoveCommand = value
	case "runscriptcommand":
		cfg.RunScriptCommand = value
	case "pkgdbfile":
		cfg.PkgDBFile = value
	case "aliasfile":
		cfg.AliasFile = value
	case "lockfile":
		cfg.LockFile = value
	}
	return nil
}

// parsePrtdirLine parses "PATH" or "PATH : PKG1 PKG2 ..." into a Root, with
// the same whitespace/comma normalization repository.Scan applies to
// whitelists it receives directly.
func parsePrtdirLine(value string) repository.Root {
	idx := strings.IndexByte(value, ':')
	if idx < 0 {
		return repository.Root{Path: strings.TrimSpace(value)}
	}

	path := strings.TrimSpace(value[:idx])
	whitelist := strings.Fields(value[idx+1:])
	return repository.Root{Path: path, Whitelist: whitelist}
}

func parseYesNo(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "1", "on":
		return true
	default:
		return false
	}
}

// Validate ensures every configured prtdir exists and is a directory, and
// that MaxInt-style numeric settings (none today, but kept as a hook
// mirroring go-synth's Validate contract) are sane.
func (cfg *Config) Validate() error {
	if len(cfg.Roots) == 0 {
		return fmt.Errorf("config: no prtdir entries configured")
	}
	for _, root := range cfg.Roots {
		info, err := os.Stat(root.Path)
		if err != nil {
			return fmt.Errorf("config: prtdir %q: %w", root.Path, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("config: prtdir %q is not a directory", root.Path)
		}
	}
	return nil
}

// WriteDefault writes a minimal default configuration file to path,
// primarily for first-run bootstrapping and tests.
func WriteDefault(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, root := range cfg.Roots {
		if len(root.Whitelist) == 0 {
			fmt.Fprintf(w, "prtdir %s\n", root.Path)
		} else {
			fmt.Fprintf(w, "prtdir %s : %s\n", root.Path, strings.Join(root.Whitelist, " "))
		}
	}
	fmt.Fprintf(w, "cachefile %s\n", cfg.CacheFile)
	fmt.Fprintf(w, "writelog %s\n", yesEnabled(cfg.WriteLog))
	fmt.Fprintf(w, "logfile %s\n", cfg.LogFile)
	fmt.Fprintf(w, "runscripts %s\n", yesNo(cfg.RunScripts))
	fmt.Fprintf(w, "preferhigher %s\n", yesNo(cfg.PreferHigher))
	fmt.Fprintf(w, "useregex %s\n", yesNo(cfg.UseRegex))
	fmt.Fprintf(w, "makecommand %s\n", cfg.MakeCommand)
	fmt.Fprintf(w, "addcommand %s\n", cfg.AddCommand)
	fmt.Fprintf(w, "removecommand %s\n", cfg.RemoveCommand)
	fmt.Fprintf(w, "runscriptcommand %s\n", cfg.RunScriptCommand)
	fmt.Fprintf(w, "pkgdbfile %s\n", cfg.PkgDBFile)
	fmt.Fprintf(w, "aliasfile %s\n", cfg.AliasFile)
	fmt.Fprintf(w, "lockfile %s\n", cfg.LockFile)
	return w.Flush()
}

func yesEnabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
