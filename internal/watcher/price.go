package watcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
	"github.com/chrisling-dev/hyperliquid-cli/internal/ipc"
	"github.com/chrisling-dev/hyperliquid-cli/internal/model"
)

const pricePollInterval = 500 * time.Millisecond

// Price is the price watcher (§4.7): it polls the daemon when one is
// running, otherwise opens a direct push subscription to "all mids".
// Exactly one mode is active per Start; switching modes requires a
// fresh watcher.
type Price struct {
	lifecycle

	coin       string
	socketPath string
	transport  exchange.PushTransport
	log        zerolog.Logger
	onUpdate   func(price string)
	onError    func(error)

	cancel context.CancelFunc
	wg     sync.WaitGroup

	client *ipc.Client
	handle exchange.Handle
}

// NewPrice builds a price watcher for coin. socketPath is checked at
// Start time to decide poll-vs-push mode; transport is only dialed in
// push mode.
func NewPrice(socketPath string, transport exchange.PushTransport, coin string, log zerolog.Logger, onUpdate func(string), onError func(error)) *Price {
	return &Price{
		coin:       strings.ToUpper(coin),
		socketPath: socketPath,
		transport:  transport,
		log:        log.With().Str("watcher", "price").Str("coin", coin).Logger(),
		onUpdate:   onUpdate,
		onError:    onError,
	}
}

func (w *Price) Start(ctx context.Context) error {
	if !w.beginStart() {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if client := ipc.TryConnect(w.socketPath); client != nil {
		w.client = client
		w.wg.Add(1)
		go w.pollLoop(runCtx)
		return nil
	}

	if err := w.transport.Connect(runCtx); err != nil {
		return fmt.Errorf("price watcher: connect: %w", err)
	}
	select {
	case <-w.transport.Ready():
	case <-runCtx.Done():
		return runCtx.Err()
	}

	handle, err := w.transport.SubscribeAllMids(runCtx, w.onMids)
	if err != nil {
		return fmt.Errorf("price watcher: subscribe: %w", err)
	}
	w.handle = handle
	return nil
}

func (w *Price) onMids(mids model.Mids) {
	defer recoverAndLog(w.log, "onUpdate")
	if price, ok := mids[w.coin]; ok {
		w.onUpdate(price)
	}
}

func (w *Price) pollLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(pricePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prices, err := w.client.GetPrices(ctx, w.coin)
			if err != nil {
				w.safeError(err)
				continue
			}
			if price, ok := prices[w.coin]; ok {
				w.safeUpdate(price)
			}
		}
	}
}

func (w *Price) safeUpdate(price string) {
	defer recoverAndLog(w.log, "onUpdate")
	w.onUpdate(price)
}

func (w *Price) safeError(err error) {
	defer recoverAndLog(w.log, "onError")
	w.onError(err)
}

// Stop unsubscribes (or cancels the poll loop), then closes whatever
// connection it owns. Safe to call any number of times, in any order
// relative to Start.
func (w *Price) Stop() {
	if !w.beginStop() {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	if w.handle != nil {
		_ = w.handle.Unsubscribe(context.Background())
	}
	if w.handle != nil && w.transport != nil {
		_ = w.transport.Close()
	}
	if w.client != nil {
		_ = w.client.Close()
	}
	w.wg.Wait()
}
