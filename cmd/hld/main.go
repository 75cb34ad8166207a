// Command hld is the background daemon: it owns the push transport, the
// in-memory cache, and the IPC socket other processes read through.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/chrisling-dev/hyperliquid-cli/internal/daemon"
	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange/httpinfo"
	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange/wsfeed"
	"github.com/chrisling-dev/hyperliquid-cli/internal/logging"
	"github.com/chrisling-dev/hyperliquid-cli/internal/paths"
)

func main() {
	testnet := pflag.Bool("testnet", false, "target the testnet environment instead of mainnet")
	debugAddr := pflag.String("debug-addr", "", "loopback address to serve /healthz, /statusz, /metrics on (empty disables)")
	attached := pflag.Bool("attached", false, "also mirror logs to stderr (for running hld directly in a terminal)")
	pflag.Parse()

	if err := run(*testnet, *debugAddr, *attached); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(testnet bool, debugAddr string, attached bool) error {
	if _, err := paths.EnsureDir(); err != nil {
		return fmt.Errorf("hld: ensure config dir: %w", err)
	}

	logPath, err := paths.Log()
	if err != nil {
		return err
	}
	log, closeLog, err := logging.NewDaemon(logPath, attached)
	if err != nil {
		return fmt.Errorf("hld: open log file: %w", err)
	}
	defer closeLog()

	network := exchange.Mainnet
	if testnet {
		network = exchange.Testnet
	}

	transport := wsfeed.New(network, log)
	info := httpinfo.New(network, 10.0, 20)

	opts := daemon.Options{
		Network:   network,
		Log:       log,
		DebugAddr: debugAddr,
	}

	return daemon.Run(context.Background(), opts, transport, info)
}
