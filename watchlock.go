package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// errWatchRunning reports that another process already watches a directory.
var errWatchRunning = errors.New("another watch is already running for this directory")

// watchOwner is written into the lock file so a user can find the process
// holding it.
type watchOwner struct {
	PID     int       `json:"pid"`
	Dir     string    `json:"dir"`
	Folder  string    `json:"folder"`
	Started time.Time `json:"started"`
}

// watchLock is an flock held on a per-directory file under the PID dir.
// The kernel drops the lock if the process dies, so a stale file never
// blocks a new watcher.
type watchLock struct {
	path string
	f    *os.File
}

// lockPath names the lock file for one watched directory.
func lockPath(pidDir, absDir string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+absDir))
	return filepath.Join(pidDir, "watch-"+id.String()+".pid")
}

func acquireWatchLock(pidDir string, owner watchOwner) (*watchLock, error) {
	if pidDir == "" {
		return nil, errors.New("no PID directory configured")
	}

	if err := os.MkdirAll(pidDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", pidDir, err)
	}

	path := lockPath(pidDir, owner.Dir)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening watch lock: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		if errors.Is(err, syscall.EWOULDBLOCK) {
			if held, readErr := readWatchOwner(path); readErr == nil && held.PID != 0 {
				return nil, fmt.Errorf("%w (pid %d, uploading to %s)", errWatchRunning, held.PID, held.Folder)
			}

			return nil, fmt.Errorf("%w (%s)", errWatchRunning, path)
		}

		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	l := &watchLock{path: path, f: f}
	if err := l.record(owner); err != nil {
		l.Release()
		return nil, err
	}

	return l, nil
}

func (l *watchLock) record(owner watchOwner) error {
	if owner.PID == 0 {
		owner.PID = os.Getpid()
	}

	if owner.Started.IsZero() {
		owner.Started = time.Now().UTC()
	}

	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("truncating watch lock: %w", err)
	}

	enc := json.NewEncoder(l.f)
	if err := enc.Encode(owner); err != nil {
		return fmt.Errorf("writing watch lock: %w", err)
	}

	return l.f.Sync()
}

// Release removes the lock file and drops the lock. Safe to call twice.
func (l *watchLock) Release() {
	if l == nil || l.f == nil {
		return
	}

	os.Remove(l.path)
	l.f.Close()
	l.f = nil
}

// readWatchOwner reads the owner recorded in a lock file.
func readWatchOwner(path string) (watchOwner, error) {
	var owner watchOwner

	data, err := os.ReadFile(path)
	if err != nil {
		return owner, err
	}

	if err := json.Unmarshal(data, &owner); err != nil {
		return owner, fmt.Errorf("parsing %s: %w", path, err)
	}

	return owner, nil
}
