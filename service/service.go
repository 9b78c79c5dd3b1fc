// Package service sits between the CLI (package cmd) and the library
// packages (repository, installeddb, locker, transaction, history),
// coordinating their lifecycles and exposing the high-level operations a
// command dispatcher calls into.
//
// Grounded on go-synth's service.Service (service/service.go): a struct
// owning shared resources plus an activeCleanup hook set as soon as
// long-running work starts, so a signal handler can unwind it from a
// different goroutine.
package service

import (
	"fmt"
	"sync"

	"github.com/winkj/prt-get/config"
	"github.com/winkj/prt-get/history"
	"github.com/winkj/prt-get/installeddb"
	"github.com/winkj/prt-get/locker"
	"github.com/winkj/prt-get/repository"
	"github.com/winkj/prt-get/transaction"
)

// Service owns every shared resource a prtget invocation needs: the
// scanned port repository, the installed-package database, the lock set,
// and the optional history store.
type Service struct {
	cfg     *config.Config
	repo    *repository.Repository
	db      *installeddb.DB
	lk      *locker.Locker
	history *history.Store // nil when history recording is disabled

	activeCleanup func()
	cleanupMu     sync.Mutex
}

// Options controls how NewService builds its repository and history store.
type Options struct {
	// ConfigPath is the file Config was loaded from. It is compared
	// against the cache file's mtime to decide whether the cache is
	// stale; leave empty to always rescan.
	ConfigPath string

	// HistoryPath, when non-empty, opens a bbolt-backed audit trail at
	// that path. Leave empty to disable history recording entirely.
	HistoryPath string

	// RebuildCache forces a full Scan even if the on-disk cache is fresh.
	RebuildCache bool
}

// NewService loads the repository (from cache when fresh, else by
// scanning cfg.Roots), opens the installed-package database and locker,
// and optionally opens the history store. The caller must call Close.
func NewService(cfg *config.Config, opts Options) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	repo := repository.New(cfg.UseRegex)

	stale := true
	if cfg.CacheFile != "" && opts.ConfigPath != "" && !opts.RebuildCache {
		var err error
		stale, err = repository.CacheStale(opts.ConfigPath, cfg.CacheFile)
		if err != nil {
			stale = true
		}
	}

	if !stale {
		if err := repo.LoadCache(cfg.CacheFile); err != nil {
			stale = true
		}
	}
	if stale {
		if err := repo.Scan(cfg.Roots); err != nil {
			return nil, fmt.Errorf("scanning port repository: %w", err)
		}
		if cfg.CacheFile != "" {
			if err := repo.WriteCache(cfg.CacheFile); err != nil {
				return nil, fmt.Errorf("writing port cache: %w", err)
			}
		}
	}

	db := installeddb.New(cfg.PkgDBFile, cfg.AliasFile)
	lk := locker.Open(cfg.LockFile)

	var hist *history.Store
	if opts.HistoryPath != "" {
		var err error
		hist, err = history.Open(opts.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("opening history store: %w", err)
		}
	}

	return &Service{
		cfg:     cfg,
		repo:    repo,
		db:      db,
		lk:      lk,
		history: hist,
	}, nil
}

// Close releases the history store, if one was opened. The repository,
// installed-database and locker hold no open file descriptors between
// calls and need no explicit close.
func (s *Service) Close() error {
	if s.history != nil {
		return s.history.Close()
	}
	return nil
}

// Config returns the service's configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Repository returns the scanned port repository.
func (s *Service) Repository() *repository.Repository { return s.repo }

// InstalledDB returns the installed-package database.
func (s *Service) InstalledDB() *installeddb.DB { return s.db }

// Locker returns the package lock set.
func (s *Service) Locker() *locker.Locker { return s.lk }

// History returns the audit-trail store, or nil if recording is disabled.
func (s *Service) History() *history.Store { return s.history }

// NewTransaction builds an InstallTransaction wired to this service's
// shared resources.
func (s *Service) NewTransaction() *transaction.Transaction {
	return transaction.New(s.repo, s.db, s.lk, s.cfg, s.history)
}

// SetActiveCleanup stores the cleanup function for the in-flight
// transaction. Called as soon as a Run begins, so a signal handler can
// reach it immediately even mid-install.
func (s *Service) SetActiveCleanup(cleanup func()) {
	s.cleanupMu.Lock()
	s.activeCleanup = cleanup
	s.cleanupMu.Unlock()
}

// GetActiveCleanup returns the stored cleanup function, or nil if no
// transaction is active.
func (s *Service) GetActiveCleanup() func() {
	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()
	return s.activeCleanup
}

// ClearActiveCleanup removes the stored cleanup function once a
// transaction finishes, successfully or not.
func (s *Service) ClearActiveCleanup() {
	s.cleanupMu.Lock()
	s.activeCleanup = nil
	s.cleanupMu.Unlock()
}
