package watcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
)

// Orders subscribes to order-update events as a change trigger, but
// always delivers the full current open-orders list fetched fresh over
// HTTP — the push feed announces deltas, not deterministic snapshots
// (§9). It also pulls once at Start so a consumer sees an initial
// snapshot before the first push arrives. Pull failures are surfaced
// via onError and never tear down the subscription.
type Orders struct {
	lifecycle

	user      string
	transport exchange.PushTransport
	info      exchange.InfoClient
	log       zerolog.Logger
	onUpdate  func(json.RawMessage)
	onError   func(error)

	handle exchange.Handle
}

func NewOrders(transport exchange.PushTransport, info exchange.InfoClient, user string, log zerolog.Logger, onUpdate func(json.RawMessage), onError func(error)) *Orders {
	return &Orders{
		user:      user,
		transport: transport,
		info:      info,
		log:       log.With().Str("watcher", "orders").Str("user", user).Logger(),
		onUpdate:  onUpdate,
		onError:   onError,
	}
}

func (w *Orders) Start(ctx context.Context) error {
	if !w.beginStart() {
		return nil
	}
	if err := w.transport.Connect(ctx); err != nil {
		return fmt.Errorf("orders watcher: connect: %w", err)
	}
	select {
	case <-w.transport.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	handle, err := w.transport.SubscribeOrderUpdates(ctx, w.user, w.onOrderEvent)
	if err != nil {
		return fmt.Errorf("orders watcher: subscribe: %w", err)
	}
	w.handle = handle

	w.pullAndDeliver(ctx)
	return nil
}

func (w *Orders) onOrderEvent(json.RawMessage) {
	w.pullAndDeliver(context.Background())
}

func (w *Orders) pullAndDeliver(ctx context.Context) {
	orders, err := w.info.OpenOrders(ctx, w.user)
	if err != nil {
		w.safeError(fmt.Errorf("orders watcher: pull open orders: %w", err))
		return
	}
	w.safeUpdate(orders)
}

func (w *Orders) safeUpdate(orders json.RawMessage) {
	defer recoverAndLog(w.log, "onUpdate")
	w.onUpdate(orders)
}

func (w *Orders) safeError(err error) {
	defer recoverAndLog(w.log, "onError")
	w.onError(err)
}

func (w *Orders) Stop() {
	if !w.beginStop() {
		return
	}
	if w.handle != nil {
		_ = w.handle.Unsubscribe(context.Background())
	}
	_ = w.transport.Close()
}
