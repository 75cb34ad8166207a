package daemon

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/chrisling-dev/hyperliquid-cli/internal/ipc"
	"github.com/chrisling-dev/hyperliquid-cli/internal/paths"
)

const stopGracePeriod = 2 * time.Second

// Stop implements the CLI's `server stop`: preferred path is an IPC
// `shutdown` call with a short grace period, falling back to SIGTERM
// and finally SIGKILL against the PID file.
func Stop(ctx context.Context) error {
	sockPath, err := paths.Socket()
	if err != nil {
		return err
	}
	pidPath, err := paths.PID()
	if err != nil {
		return err
	}

	if client := ipc.TryConnect(sockPath); client != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, stopGracePeriod)
		err := client.Shutdown(shutdownCtx)
		cancel()
		client.Close()
		if err == nil {
			return nil
		}
	}

	pidFile := NewPIDFile(pidPath)
	running, pid, err := pidFile.Check()
	if err != nil {
		return err
	}
	if !running {
		return nil // nothing to stop
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("daemon: find process %d: %w", pid, err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("daemon: SIGTERM %d: %w", pid, err)
	}

	deadline := time.Now().Add(stopGracePeriod)
	for time.Now().Before(deadline) {
		if alive, _, _ := pidFile.Check(); !alive {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := proc.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("daemon: SIGKILL %d: %w", pid, err)
	}
	return nil
}
