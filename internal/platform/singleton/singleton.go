// Package singleton enforces one running instance of a service per
// host using a POSIX advisory file lock (flock), the same mechanism
// the original used via fcntl.
package singleton

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// Lock guards a single service name with a lock file under
// SERVICE_RUNTIME_DIR (or the given default when unset).
type Lock struct {
	serviceName string
	lockPath    string
	file        *os.File
	released    bool
}

// New builds a Lock for serviceName. defaultRuntimeDir is used when
// SERVICE_RUNTIME_DIR is not set in the environment.
func New(serviceName, defaultRuntimeDir string) (*Lock, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("SERVICE_RUNTIME_DIR"))
	if runtimeDir == "" {
		runtimeDir = defaultRuntimeDir
	}
	if err := os.MkdirAll(runtimeDir, 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.KindConfiguration, "singleton_new", "failed to create runtime directory", err)
	}

	return &Lock{
		serviceName: serviceName,
		lockPath:    filepath.Join(runtimeDir, serviceName+".lock"),
	}, nil
}

// Acquire takes an exclusive, non-blocking flock on the lock file. If
// another process already holds it, returns an error naming the
// existing PID when it can be read back from the file.
func (l *Lock) Acquire() error {
	file, err := os.OpenFile(l.lockPath, os.O_RDWR|os.O_CREATE, 0o664)
	if err != nil {
		return xerrors.Wrap(xerrors.KindConfiguration, "acquire", "failed to open lock file '"+l.lockPath+"'", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		existingPID := readExistingPID(file)
		file.Close()

		suffix := "."
		if existingPID != "" {
			suffix = fmt.Sprintf(" (PID %s).", existingPID)
		}
		return xerrors.New(xerrors.KindConfiguration, "acquire",
			"service '"+l.serviceName+"' appears to be running already"+suffix)
	}

	if err := file.Truncate(0); err != nil {
		file.Close()
		return xerrors.Wrap(xerrors.KindConfiguration, "acquire", "failed to truncate lock file", err)
	}
	if _, err := file.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		file.Close()
		return xerrors.Wrap(xerrors.KindConfiguration, "acquire", "failed to write pid to lock file", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return xerrors.Wrap(xerrors.KindConfiguration, "acquire", "failed to fsync lock file", err)
	}

	l.file = file
	return nil
}

func readExistingPID(file *os.File) string {
	buf := make([]byte, 32)
	n, err := file.ReadAt(buf, 0)
	if err != nil && n == 0 {
		return ""
	}
	return strings.TrimSpace(string(buf[:n]))
}

// Release unlocks and removes the lock file. Safe to call multiple
// times and best-effort on every cleanup step, matching the original's
// release semantics: a failure to unlink an already-vanished lock file
// is not itself an error.
func (l *Lock) Release() {
	if l.released {
		return
	}
	if l.file != nil {
		syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
		l.file.Close()
		l.file = nil
	}
	os.Remove(l.lockPath)
	l.released = true
}
