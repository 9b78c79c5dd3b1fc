// Package transaction implements InstallTransaction: dependency expansion
// followed by per-package build/install orchestration, with logging,
// locking, and partial-failure accounting.
//
// Grounded on prt-get's InstallTransaction/PrtGet (installtransaction.cpp,
// prtget.cpp) for the expansion algorithm and per-package state machine,
// and on go-synth's build.DoBuild/buildPackage (build/build.go) for the Go
// idiom of a per-package worker function returning a tagged result plus a
// uuid-stamped history record — generalized here to the strictly
// single-threaded, dependency-ordered execution spec.md §5 requires instead
// of go-synth's goroutine worker pool.
package transaction

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/winkj/prt-get/config"
	"github.com/winkj/prt-get/depresolver"
	"github.com/winkj/prt-get/history"
	"github.com/winkj/prt-get/installeddb"
	"github.com/winkj/prt-get/locker"
	"github.com/winkj/prt-get/port"
	"github.com/winkj/prt-get/process"
	"github.com/winkj/prt-get/repository"
	"github.com/winkj/prt-get/synthlog"
	"github.com/winkj/prt-get/version"
)

// FailureCode is the transaction-level failure taxonomy from the design:
// log-related and PKGDEST errors are always fatal, build/install errors are
// fatal only in group mode.
type FailureCode int

const (
	Success FailureCode = iota
	NoPackageGiven
	PackageNotFound
	PkgmkExecError
	PkgmkFailure
	PkgaddExecError
	PkgdestError
	PkgaddFailure
	CyclicDepend
	LogDirFailure
	LogFileFailure
	NoLogFile
	CantLockLogFile
)

func (c FailureCode) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case NoPackageGiven:
		return "NO_PACKAGE_GIVEN"
	case PackageNotFound:
		return "PACKAGE_NOT_FOUND"
	case PkgmkExecError:
		return "PKGMK_EXEC_ERROR"
	case PkgmkFailure:
		return "PKGMK_FAILURE"
	case PkgaddExecError:
		return "PKGADD_EXEC_ERROR"
	case PkgdestError:
		return "PKGDEST_ERROR"
	case PkgaddFailure:
		return "PKGADD_FAILURE"
	case CyclicDepend:
		return "CYCLIC_DEPEND"
	case LogDirFailure:
		return "LOG_DIR_FAILURE"
	case LogFileFailure:
		return "LOG_FILE_FAILURE"
	case NoLogFile:
		return "NO_LOG_FILE"
	case CantLockLogFile:
		return "CANT_LOCK_LOG_FILE"
	default:
		return "UNKNOWN"
	}
}

// FatalError aborts the whole transaction before any further child is
// spawned (or, for build/install failures in group mode, after the
// offending package).
type FatalError struct {
	Code FailureCode
	Err  error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code.String()
}

func (e *FatalError) Unwrap() error { return e.Err }

// HookState is the tri-state outcome of a pre-install/post-install hook.
type HookState int

const (
	HookNotRun HookState = iota
	HookOK
	HookFailed
)

func (s HookState) String() string {
	switch s {
	case HookOK:
		return "ok"
	case HookFailed:
		return "failed"
	default:
		return "not_run"
	}
}

// InstallInfo is the per-package bookkeeping recorded in the installed and
// failed accumulators.
type InstallInfo struct {
	HasReadme   bool
	PreInstall  HookState
	PostInstall HookState
}

// MissingDependency records a dependency token that could not be resolved
// against the repository, together with the package that needed it
// (RequestedBy is empty for a name that was requested directly).
type MissingDependency struct {
	Name        string
	RequestedBy string
}

// Result is the outcome of one transaction run: five pairwise-disjoint
// accumulators over the request set plus its dependency closure.
type Result struct {
	Installed        map[string]InstallInfo
	AlreadyInstalled []string
	Ignored          []string
	Missing          []MissingDependency
	Failed           map[string]InstallInfo

	// Undecidable records names whose installed-vs-available version
	// comparison returned UNDEFINED, surfaced for --strict-diff review but
	// never treated as fatal.
	Undecidable []string
}

func newResult() *Result {
	return &Result{
		Installed: make(map[string]InstallInfo),
		Failed:    make(map[string]InstallInfo),
	}
}

// Options configures one transaction run.
type Options struct {
	Names   []string
	Ignore  map[string]bool
	Update  bool
	Group   bool // group mode: first failure aborts the whole transaction

	InstallRoot   string
	BuilderArgs   []string
	InstallerArgs []string

	RunPreInstall  bool
	RunPostInstall bool

	// WriteLog/LogFilePattern/LogAppend mirror the configuration file's
	// writelog/logfile/logmode settings, and LockLog enables the <log>.lock
	// sidecar; the caller fills them per run from the configuration and its
	// own flags.
	WriteLog       bool
	LogFilePattern string
	LogAppend      bool
	LockLog        bool
}

// Transaction orchestrates one install/update run against a fixed
// repository, installed-package snapshot, and locker.
type Transaction struct {
	repo      *repository.Repository
	installed *installeddb.DB
	locker    *locker.Locker
	cfg       *config.Config
	history   *history.Store // optional; nil disables audit recording
}

// New creates a Transaction. history may be nil to disable audit recording.
func New(repo *repository.Repository, installed *installeddb.DB, lk *locker.Locker, cfg *config.Config, hist *history.Store) *Transaction {
	return &Transaction{
		repo:      repo,
		installed: installed,
		locker:    lk,
		cfg:       cfg,
		history:   hist,
	}
}

// Run expands dependencies for opts.Names, orders them, and drives each
// package through the build/install state machine. InstalledDB is read
// once at the start of the run and never refreshed, matching the
// documented "read-once snapshot" resource model.
func (t *Transaction) Run(opts Options) (*Result, error) {
	if len(opts.Names) == 0 {
		return nil, &FatalError{Code: NoPackageGiven}
	}

	runID := uuid.New().String()
	startTime := time.Now()

	if t.history != nil {
		t.history.SaveRun(history.Run{
			UUID:      runID,
			Requested: opts.Names,
			StartTime: startTime,
		})
	}

	order, missing, err := t.expand(opts.Names)
	if err != nil {
		return nil, &FatalError{Code: CyclicDepend, Err: err}
	}

	result := newResult()
	result.Missing = missing
	for _, m := range missing {
		t.record(runID, m.Name, "missing")
	}

	for _, name := range order {
		if opts.Ignore[name] {
			result.Ignored = append(result.Ignored, name)
			t.record(runID, name, "ignored")
			continue
		}

		p, ok := t.repo.Get(name)
		if !ok {
			// Already accounted for in `missing` by expand(); a fatal abort
			// in group mode happens only for the first requested name that
			// is missing outright (not a transitively discovered one).
			if opts.Group && isRequested(name, opts.Names) {
				return result, &FatalError{Code: PackageNotFound, Err: fmt.Errorf("%s", name)}
			}
			continue
		}

		if !opts.Update {
			if installed, _, _ := t.installed.IsInstalled(name, true); installed {
				result.AlreadyInstalled = append(result.AlreadyInstalled, name)
				t.record(runID, name, "already_installed")
				continue
			}
		} else if t.locker.IsLocked(name) {
			result.Ignored = append(result.Ignored, name)
			t.record(runID, name, "ignored")
			continue
		} else if installedVersion := t.installed.GetVersion(name); installedVersion != "" {
			switch version.Compare(p.VersionReleaseString(), installedVersion) {
			case version.Equal, version.Less:
				result.AlreadyInstalled = append(result.AlreadyInstalled, name)
				t.record(runID, name, "already_installed")
				continue
			case version.Undefined:
				result.Undecidable = append(result.Undecidable, name)
			}
		}

		info, stepErr := t.installOne(p, opts)
		if stepErr != nil {
			var fatal *FatalError
			if asFatalError(stepErr, &fatal) {
				return result, fatal
			}
			result.Failed[name] = info
			t.record(runID, name, "failed")
			if opts.Group {
				return result, &FatalError{Code: PkgmkFailure, Err: stepErr}
			}
			continue
		}

		result.Installed[name] = info
		t.record(runID, name, "installed")
	}

	if t.history != nil {
		t.history.SaveRun(history.Run{
			UUID:      runID,
			Requested: opts.Names,
			StartTime: startTime,
			EndTime:   time.Now(),
		})
	}

	return result, nil
}

func (t *Transaction) record(runID, name, status string) {
	if t.history == nil {
		return
	}
	t.history.RecordOutcome(history.PackageOutcome{
		RunUUID: runID,
		Name:    name,
		Status:  status,
		Time:    time.Now(),
	})
}

func isRequested(name string, requested []string) bool {
	for _, n := range requested {
		if n == name {
			return true
		}
	}
	return false
}

func asFatalError(err error, target **FatalError) bool {
	fe, ok := err.(*FatalError)
	if ok {
		*target = fe
	}
	return ok
}

// expand walks the dependency closure of names, memoizing each package so
// it is visited at most once, and returns the install order (dependencies
// before dependents) plus any dependency tokens that could not be resolved.
func (t *Transaction) expand(names []string) ([]string, []MissingDependency, error) {
	graph := depresolver.New()
	index := make(map[string]int)
	indexOf := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		i := len(index)
		index[name] = i
		return i
	}

	var missing []MissingDependency
	visited := make(map[string]bool)

	var visit func(name, requestedBy string)
	visit = func(name, requestedBy string) {
		if visited[name] {
			return
		}
		visited[name] = true

		selfIdx := indexOf(name)
		graph.AddDependency(selfIdx, selfIdx)

		p, ok := t.repo.Get(name)
		if !ok {
			missing = append(missing, MissingDependency{Name: name, RequestedBy: requestedBy})
			return
		}

		for _, dep := range repository.DependencyNames(p) {
			depIdx := indexOf(dep)
			graph.AddDependency(selfIdx, depIdx)
			visit(dep, name)
		}
	}

	for _, name := range names {
		visit(name, "")
	}

	order, err := graph.Resolve()
	if err != nil {
		return nil, missing, err
	}

	byIndex := make(map[int]string, len(index))
	for name, i := range index {
		byIndex[i] = name
	}

	names2 := make([]string, 0, len(order))
	for _, idx := range order {
		names2 = append(names2, byIndex[idx])
	}

	return names2, missing, nil
}

// installOne runs the per-package build->install->post-install sequence
// described in the design's step-by-step pseudocode.
func (t *Transaction) installOne(p *port.Port, opts Options) (InstallInfo, error) {
	info := InstallInfo{HasReadme: p.HasReadme()}

	var log *synthlog.Logger
	if opts.WriteLog {
		if opts.LogFilePattern == "" {
			return info, &FatalError{Code: NoLogFile}
		}
		logPath := synthlog.ExpandPattern(opts.LogFilePattern, p.Name(), p.Path(), p.Version(), p.Release())

		var err error
		log, err = synthlog.Open(logPath, opts.LockLog, opts.LogAppend)
		if err != nil {
			switch {
			case errors.Is(err, synthlog.ErrAlreadyLocked):
				return info, &FatalError{Code: CantLockLogFile, Err: err}
			case errors.Is(err, synthlog.ErrLogFileFailure):
				return info, &FatalError{Code: LogFileFailure, Err: err}
			case errors.Is(err, synthlog.ErrLogDirFailure):
				return info, &FatalError{Code: LogDirFailure, Err: err}
			default:
				return info, &FatalError{Code: LogDirFailure, Err: err}
			}
		}
		defer log.Close()

		log.Starting(fmt.Sprintf("%s -d %v", t.cfg.MakeCommand, opts.BuilderArgs))
	}

	portDir := filepath.Join(p.Path(), p.Name())
	runner := &process.Runner{Dir: portDir}
	if log != nil {
		runner.Log = log.Writer()
	}

	if opts.RunPreInstall && p.HasPreInstall() {
		code := runner.RunDirect([]string{t.cfg.RunScriptCommand, "pre-install"})
		if code == 0 {
			info.PreInstall = HookOK
		} else {
			info.PreInstall = HookFailed
		}
		if log != nil {
			log.Summary("pre-install", info.PreInstall.String())
		}
	}

	buildArgs := append([]string{"-d"}, opts.BuilderArgs...)
	buildCode := runner.RunDirect(append([]string{t.cfg.MakeCommand}, buildArgs...))
	if log != nil {
		log.Summary("build", exitStatus(buildCode))
	}
	if buildCode != 0 {
		return info, fmt.Errorf("builder exited %d", buildCode)
	}

	installDir := portDir
	if pkgDestDir := pkgmkSetting("PKGMK_PACKAGE_DIR", t.cfg.MakeCommand); pkgDestDir != "" {
		if fi, err := os.Stat(pkgDestDir); err != nil || !fi.IsDir() {
			return info, &FatalError{Code: PkgdestError, Err: fmt.Errorf("PKGMK_PACKAGE_DIR %q: not a directory", pkgDestDir)}
		}
		installDir = pkgDestDir
	}

	compression := pkgmkSetting("PKGMK_COMPRESSION_MODE", t.cfg.MakeCommand)
	if compression == "" {
		compression = "gz"
	}

	artifact := fmt.Sprintf("%s#%s.pkg.tar.%s", p.Name(), p.VersionReleaseString(), compression)
	installArgs := []string{}
	if opts.InstallRoot != "" {
		installArgs = append(installArgs, "-r", opts.InstallRoot)
	}
	if opts.Update {
		installArgs = append(installArgs, "-u")
	}
	installArgs = append(installArgs, opts.InstallerArgs...)
	installArgs = append(installArgs, artifact)

	installRunner := &process.Runner{Dir: installDir}
	if log != nil {
		installRunner.Log = log.Writer()
	}
	installCode := installRunner.RunDirect(append([]string{t.cfg.AddCommand}, installArgs...))
	if log != nil {
		log.Summary("install", exitStatus(installCode))
	}
	if installCode != 0 {
		return info, fmt.Errorf("installer exited %d", installCode)
	}

	if opts.RunPostInstall && p.HasPostInstall() {
		code := runner.RunDirect([]string{t.cfg.RunScriptCommand, "post-install"})
		if code == 0 {
			info.PostInstall = HookOK
		} else {
			info.PostInstall = HookFailed
		}
		if log != nil {
			log.Summary("post-install", info.PostInstall.String())
		}
	}

	if log != nil {
		log.Done()
	}

	return info, nil
}

// pkgmkConfPath is where pkgmk itself reads its PKGMK_* settings from;
// overridable in tests.
var pkgmkConfPath = "/etc/pkgmk.conf"

// pkgmkSetting resolves a PKGMK_* setting the way pkgmk does: the last
// matching KEY=value line in pkgmk.conf, falling back to the builder binary
// itself when the conf file yields nothing. The matched line is evaluated
// through a shell since its value may be quoted or reference other
// variables rather than being a plain literal.
func pkgmkSetting(key, builderPath string) string {
	if v := pkgmkSettingFromFile(key, pkgmkConfPath); v != "" {
		return v
	}
	return pkgmkSettingFromFile(key, builderPath)
}

func pkgmkSettingFromFile(key, path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	prefix := key + "="
	var last string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, prefix) {
			last = line
		}
	}
	if last == "" {
		return ""
	}

	out, err := exec.Command("/bin/sh", "-c", "eval "+last+" && echo \"$"+key+"\"").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func exitStatus(code int) string {
	if code == 0 {
		return "ok"
	}
	return fmt.Sprintf("failed (exit %d)", code)
}
