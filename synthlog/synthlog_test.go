package synthlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandPattern(t *testing.T) {
	got := ExpandPattern("/var/log/pkg/%n-%v-%r.log", "wget", "/usr/ports/wget", "1.21", "1")
	want := "/var/log/pkg/wget-1.21-1.log"
	if got != want {
		t.Errorf("ExpandPattern = %q, want %q", got, want)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "pkg.log")
	l, err := Open(path, false, false)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("parent dir not created: %v", err)
	}
}

func TestOpenTruncatesByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.log")
	if err := os.WriteFile(path, []byte("stale content"), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := Open(path, false, false)
	if err != nil {
		t.Fatal(err)
	}
	l.Summary("build", "ok")
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "stale content") {
		t.Error("expected truncation to drop stale content")
	}
}

func TestOpenAppendsWhenRequested(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.log")
	if err := os.WriteFile(path, []byte("line one\n"), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := Open(path, false, true)
	if err != nil {
		t.Fatal(err)
	}
	l.Summary("build", "ok")
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "line one") {
		t.Error("expected append mode to preserve existing content")
	}
}

func TestOpenLockedRejectsPreExistingLockFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.log")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".lock", []byte{}, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path, true, false)
	if err != ErrAlreadyLocked {
		t.Errorf("err = %v, want ErrAlreadyLocked", err)
	}
}

func TestOpenLockedRemovesSidecarOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.log")

	l, err := Open(path, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Fatalf("expected lock sidecar to exist while held: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Error("expected lock sidecar removed after Close")
	}
}

func TestOpenReportsDirFailureDistinctFromFileFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(blocker, "sub", "pkg.log")

	_, err := Open(path, false, false)
	if !errors.Is(err, ErrLogDirFailure) {
		t.Errorf("err = %v, want wrapping ErrLogDirFailure", err)
	}
	if errors.Is(err, ErrLogFileFailure) {
		t.Error("mkdir failure must not also match ErrLogFileFailure")
	}
}

func TestOpenReportsFileFailureWhenPathIsADirectory(t *testing.T) {
	path := t.TempDir()

	_, err := Open(path, false, false)
	if !errors.Is(err, ErrLogFileFailure) {
		t.Errorf("err = %v, want wrapping ErrLogFileFailure", err)
	}
	if errors.Is(err, ErrLogDirFailure) {
		t.Error("openfile failure must not also match ErrLogDirFailure")
	}
}

func TestRemoveDeletesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.log")
	l, err := Open(path, false, false)
	if err != nil {
		t.Fatal(err)
	}
	l.Close()

	logger := &Logger{path: path}
	if err := logger.Remove(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected log file removed")
	}
}
