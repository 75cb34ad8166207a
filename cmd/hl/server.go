package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chrisling-dev/hyperliquid-cli/internal/daemon"
	"github.com/chrisling-dev/hyperliquid-cli/internal/ipc"
	"github.com/chrisling-dev/hyperliquid-cli/internal/paths"
)

const daemonReadyTimeout = 5 * time.Second

func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage the hld background daemon",
	}
	cmd.AddCommand(newServerStartCmd())
	cmd.AddCommand(newServerStopCmd())
	cmd.AddCommand(newServerStatusCmd())
	return cmd
}

func newServerStartCmd() *cobra.Command {
	var testnet bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serverStart(loggerFromContext(cmd.Context()), testnet)
		},
	}
	cmd.Flags().BoolVar(&testnet, "testnet", false, "target the testnet environment")
	return cmd
}

func newServerStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return daemon.Stop(ctx)
		},
	}
}

func newServerStatusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report the daemon's current status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serverStatus(loggerFromContext(cmd.Context()), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw status JSON instead of a human summary")
	return cmd
}

// serverStart spawns hld as a detached process (its own session, so it
// survives the parent CLI exiting) and polls for the socket file to
// appear before returning, bounded by daemonReadyTimeout.
func serverStart(log zerolog.Logger, testnet bool) error {
	sockPath, err := paths.Socket()
	if err != nil {
		return err
	}
	if ipc.ServerRunning(sockPath) {
		return fmt.Errorf("daemon: %w", daemon.ErrAlreadyRunning)
	}

	hldPath, err := hldBinaryPath()
	if err != nil {
		return err
	}
	log.Info().Str("binary", hldPath).Bool("testnet", testnet).Msg("spawning hld")

	args := []string{}
	if testnet {
		args = append(args, "--testnet")
	}

	spawn := exec.Command(hldPath, args...)
	spawn.Stdin = nil
	spawn.Stdout = nil
	spawn.Stderr = nil
	spawn.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := spawn.Start(); err != nil {
		return fmt.Errorf("daemon: spawn hld: %w", err)
	}
	// The daemon outlives this process; we don't want Wait to block or
	// leave a zombie once it eventually exits.
	go spawn.Wait() //nolint:errcheck

	deadline := time.Now().Add(daemonReadyTimeout)
	for time.Now().Before(deadline) {
		if ipc.ServerRunning(sockPath) {
			fmt.Println("daemon started")
			return nil
		}
		log.Debug().Str("socket", sockPath).Msg("waiting for daemon socket")
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon: did not become ready within %s", daemonReadyTimeout)
}

func hldBinaryPath() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("daemon: locate hl binary: %w", err)
	}
	candidate := filepath.Join(filepath.Dir(self), "hld")
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	if path, err := exec.LookPath("hld"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("daemon: hld binary not found next to %s or on PATH", self)
}

func serverStatus(log zerolog.Logger, asJSON bool) error {
	sockPath, err := paths.Socket()
	if err != nil {
		return err
	}
	log.Debug().Str("socket", sockPath).Msg("connecting to daemon")
	client := ipc.TryConnect(sockPath)
	if client == nil {
		if asJSON {
			fmt.Println(`{"running":false}`)
			return nil
		}
		fmt.Println("daemon is not running")
		return nil
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), ipc.RequestTimeout)
	defer cancel()
	raw, err := client.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("daemon: getStatus: %w", err)
	}

	if asJSON {
		fmt.Println(string(raw))
		return nil
	}

	var status struct {
		Running   bool  `json:"running"`
		Testnet   bool  `json:"testnet"`
		Connected bool  `json:"connected"`
		Uptime    int64 `json:"uptime"`
		Cache     struct {
			HasMids      bool `json:"hasMids"`
			HasAssetCtxs bool `json:"hasAssetCtxs"`
			HasPerpMetas bool `json:"hasPerpMetas"`
		} `json:"cache"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return fmt.Errorf("daemon: decode status: %w", err)
	}

	network := "mainnet"
	if status.Testnet {
		network = "testnet"
	}
	fmt.Printf("running: %v (%s)\n", status.Running, network)
	fmt.Printf("connected: %v\n", status.Connected)
	fmt.Printf("uptime: %s\n", time.Duration(status.Uptime)*time.Millisecond)
	fmt.Printf("cache: mids=%v assetCtxs=%v perpMetas=%v\n",
		status.Cache.HasMids, status.Cache.HasAssetCtxs, status.Cache.HasPerpMetas)
	return nil
}
