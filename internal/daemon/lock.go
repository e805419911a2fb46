package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	LockFileName       = "nightowl.lock"
	defaultLockRetry   = 100 * time.Millisecond
	defaultLockTimeout = 2 * time.Second
)

// InstanceLock keeps two daemons from sharing one data directory, which
// would interleave writes to the idempotency keys and cache snapshot.
type InstanceLock struct {
	fileLock   *flock.Flock
	path       string
	acquiredAt time.Time
	mu         sync.Mutex
}

// AcquireInstanceLock retries until timeout when another process holds the lock.
func AcquireInstanceLock(dataDir string, timeout time.Duration) (*InstanceLock, error) {
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	path := filepath.Join(dataDir, LockFileName)
	fl := flock.New(path)

	deadline := time.Now().Add(timeout)
	for {
		locked, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to attempt lock: %w", err)
		}
		if locked {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("data directory %s is locked by another instance (timeout after %v)", dataDir, timeout)
		}
		time.Sleep(defaultLockRetry)
	}

	l := &InstanceLock{fileLock: fl, path: path, acquiredAt: time.Now()}
	slog.Info("Instance lock acquired", "path", path)
	return l, nil
}

func (l *InstanceLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLock == nil {
		return
	}
	if err := l.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release instance lock", "path", l.path, "error", err)
	} else {
		slog.Info("Instance lock released", "path", l.path, "held_ms", time.Since(l.acquiredAt).Milliseconds())
	}
	l.fileLock = nil
}

func (l *InstanceLock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fileLock != nil
}
