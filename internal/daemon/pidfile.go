package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile manages the single-owner PID file at path. Liveness checks
// interrogate the OS (via signal 0), not merely the file's presence —
// a file left behind by a crash is stale and must be removed.
type PIDFile struct {
	path string
}

func NewPIDFile(path string) *PIDFile { return &PIDFile{path: path} }

// Check reports whether a PID file exists and, if so, whether the
// process it names is alive. A missing file is not an error.
func (p *PIDFile) Check() (running bool, pid int, err error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("daemon: read pid file: %w", err)
	}

	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		// unreadable content is as good as stale
		return false, 0, nil
	}

	if !processAlive(pid) {
		return false, pid, nil
	}
	return true, pid, nil
}

// RemoveStale deletes the PID file. Safe to call when it doesn't exist.
func (p *PIDFile) RemoveStale() error {
	err := os.Remove(p.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("daemon: remove stale pid file: %w", err)
	}
	return nil
}

// Write writes the current process's PID, overwriting any existing
// file. Callers must have already confirmed no live process owns it.
func (p *PIDFile) Write() error {
	pid := os.Getpid()
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return fmt.Errorf("daemon: write pid file: %w", err)
	}
	return nil
}

// Remove deletes the PID file on normal exit.
func (p *PIDFile) Remove() error {
	return p.RemoveStale()
}

// processAlive reports whether pid names a live process that is also
// this same binary — a bare liveness check isn't enough, since a PID
// can be recycled by an unrelated process after a crash (§4.4 "or is a
// different executable").
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; signal 0 is the liveness
	// probe (it sends no actual signal, only checks permission/existence).
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false
	}
	return sameExecutable(pid)
}

// sameExecutable compares pid's on-disk executable against our own.
// Any failure to determine identity (proc not mounted, permission
// denied, the process having exited between the signal probe above and
// this read) is treated as "not ours" — the conservative direction
// that reclaims the PID file rather than wrongly reports the daemon as
// already running.
func sameExecutable(pid int) bool {
	self, err := os.Executable()
	if err != nil {
		return false
	}
	self, err = filepath.EvalSymlinks(self)
	if err != nil {
		return false
	}
	target, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return false
	}
	return target == self
}
