// Package daemon implements C4: PID/socket/log file management,
// foreground startup, and graceful-then-forced shutdown ordering.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/chrisling-dev/hyperliquid-cli/internal/cache"
	"github.com/chrisling-dev/hyperliquid-cli/internal/daemon/debughttp"
	"github.com/chrisling-dev/hyperliquid-cli/internal/daemon/metrics"
	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
	"github.com/chrisling-dev/hyperliquid-cli/internal/ipc"
	"github.com/chrisling-dev/hyperliquid-cli/internal/paths"
	"github.com/chrisling-dev/hyperliquid-cli/internal/subscription"
)

// ErrAlreadyRunning is surfaced when a live daemon already owns the PID
// file.
var ErrAlreadyRunning = errors.New("already running")

// Options configures a foreground daemon run.
type Options struct {
	Network exchange.Network
	Log     zerolog.Logger

	// DebugAddr, if non-empty, serves /healthz, /statusz, and /metrics
	// on this loopback address alongside the IPC socket. Empty disables
	// the surface entirely.
	DebugAddr string
}

// Daemon owns the full foreground lifecycle: cache, subscription
// manager, IPC server, and the files that describe them on disk.
type Daemon struct {
	opts      Options
	cache     *cache.Cache
	sub       *subscription.Manager
	server    *ipc.Server
	pidFile   *PIDFile
	startedAt time.Time
	metrics   *metrics.Collector
	debug     *debughttp.Server

	stopOnce chan struct{}
}

// Run performs the foreground start sequence (§4.4), blocks until a
// shutdown is requested (signal or IPC `shutdown`), then performs the
// stop sequence. It returns ErrAlreadyRunning without touching any
// state if a live daemon already holds the PID file.
func Run(ctx context.Context, opts Options, transport exchange.PushTransport, info exchange.InfoClient) error {
	_, err := paths.EnsureDir()
	if err != nil {
		return fmt.Errorf("daemon: ensure config dir: %w", err)
	}

	pidPath, err := paths.PID()
	if err != nil {
		return err
	}
	sockPath, err := paths.Socket()
	if err != nil {
		return err
	}
	optsPath, err := paths.ServerOptions()
	if err != nil {
		return err
	}

	pidFile := NewPIDFile(pidPath)
	running, pid, err := pidFile.Check()
	if err != nil {
		return err
	}
	if running {
		return fmt.Errorf("daemon: pid %d: %w", pid, ErrAlreadyRunning)
	}
	if err := pidFile.RemoveStale(); err != nil {
		return err
	}
	if err := pidFile.Write(); err != nil {
		return err
	}
	defer pidFile.Remove()

	if err := writeServerOptions(optsPath, opts.Network == exchange.Testnet); err != nil {
		opts.Log.Warn().Err(err).Msg("failed to write server options echo")
	}

	c := cache.New()
	sub := subscription.New(transport, info, c, opts.Log)

	d := &Daemon{
		opts:      opts,
		cache:     c,
		sub:       sub,
		pidFile:   pidFile,
		startedAt: time.Now(),
		stopOnce:  make(chan struct{}),
	}

	if err := sub.Start(ctx); err != nil {
		return fmt.Errorf("daemon: start subscription manager: %w", err)
	}

	_ = os.Remove(sockPath) // unlink any stale socket file
	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		sub.Stop(context.Background())
		return fmt.Errorf("daemon: bind socket: %w", err)
	}
	if err := os.Chmod(sockPath, 0o600); err != nil {
		opts.Log.Warn().Err(err).Msg("failed to restrict socket permissions")
	}

	d.server = ipc.NewServer(c, sub, opts.Network == exchange.Testnet, d.startedAt, opts.Log, d.requestStop)

	d.metrics = metrics.New()
	d.server.SetMetrics(d.metrics)
	connGaugeCtx, stopConnGauge := context.WithCancel(context.Background())
	defer stopConnGauge()
	go d.pollConnectedGauge(connGaugeCtx)

	if opts.DebugAddr != "" {
		debugSrv, err := debughttp.New(opts.DebugAddr, c, sub, d.startedAt, d.metrics.Handler())
		if err != nil {
			opts.Log.Warn().Err(err).Msg("failed to start debug http surface")
		} else {
			d.debug = debugSrv
			go func() {
				if err := debugSrv.Serve(); err != nil {
					opts.Log.Warn().Err(err).Msg("debug http surface stopped")
				}
			}()
		}
	}

	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- d.server.Serve(listener) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-d.stopOnce:
	case sig := <-sigCh:
		opts.Log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		d.requestStop()
	case err := <-serveErrCh:
		if err != nil {
			opts.Log.Error().Err(err).Msg("ipc server stopped unexpectedly")
		}
	}

	d.teardown(listener, sockPath)
	return nil
}

// requestStop is safe to call multiple times and from multiple
// goroutines (a signal and a concurrent IPC shutdown).
func (d *Daemon) requestStop() {
	select {
	case <-d.stopOnce:
	default:
		close(d.stopOnce)
	}
}

func (d *Daemon) teardown(listener net.Listener, sockPath string) {
	d.sub.Stop(context.Background())
	_ = d.server.Close()
	_ = listener.Close()
	_ = os.Remove(sockPath)
	if d.debug != nil {
		_ = d.debug.Close()
	}
}

// pollConnectedGauge keeps the prometheus gauge in sync with the
// transport's OPEN/closed state; the subscription manager itself only
// exposes a point-in-time Connected(), not a change notification.
func (d *Daemon) pollConnectedGauge(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	last := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := d.sub.Connected()
			if now && !last {
				d.metrics.RecordReconnect()
			}
			d.metrics.SetConnected(now)
			last = now
		}
	}
}

type serverOptionsEcho struct {
	Testnet bool `json:"testnet"`
}

func writeServerOptions(path string, testnet bool) error {
	return writeJSONAtomic(path, serverOptionsEcho{Testnet: testnet})
}
