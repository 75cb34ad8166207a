package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
)

// Snapshot is the merged payload the balance and portfolio watchers
// deliver: the raw perp clearinghouse state from the push event, paired
// with the most recently successful spot clearinghouse pull.
type Snapshot struct {
	Perp json.RawMessage `json:"perp"`
	Spot json.RawMessage `json:"spot"`
}

// Balance subscribes to clearinghouse state as a change trigger and, on
// every event, pulls spot clearinghouse state over HTTP and merges it
// in. If the spot pull fails, the previous spot snapshot is retained
// and the merged update is still delivered (§4.7, §9).
//
// Portfolio is the identical watcher under a different name: the spec
// describes both as "push subscription to clearinghouse state, merge a
// spot pull", with no behavioral divergence.
type Balance struct {
	lifecycle

	user      string
	transport exchange.PushTransport
	info      exchange.InfoClient
	log       zerolog.Logger
	onUpdate  func(Snapshot)
	onError   func(error)

	handle exchange.Handle

	mu       sync.Mutex
	lastSpot json.RawMessage
}

func newBalanceLike(name string, transport exchange.PushTransport, info exchange.InfoClient, user string, log zerolog.Logger, onUpdate func(Snapshot), onError func(error)) *Balance {
	return &Balance{
		user:      user,
		transport: transport,
		info:      info,
		log:       log.With().Str("watcher", name).Str("user", user).Logger(),
		onUpdate:  onUpdate,
		onError:   onError,
	}
}

func NewBalance(transport exchange.PushTransport, info exchange.InfoClient, user string, log zerolog.Logger, onUpdate func(Snapshot), onError func(error)) *Balance {
	return newBalanceLike("balance", transport, info, user, log, onUpdate, onError)
}

func NewPortfolio(transport exchange.PushTransport, info exchange.InfoClient, user string, log zerolog.Logger, onUpdate func(Snapshot), onError func(error)) *Balance {
	return newBalanceLike("portfolio", transport, info, user, log, onUpdate, onError)
}

func (w *Balance) Start(ctx context.Context) error {
	if !w.beginStart() {
		return nil
	}
	if err := w.transport.Connect(ctx); err != nil {
		return fmt.Errorf("balance watcher: connect: %w", err)
	}
	select {
	case <-w.transport.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	handle, err := w.transport.SubscribeClearinghouseState(ctx, w.user, w.onPerpState)
	if err != nil {
		return fmt.Errorf("balance watcher: subscribe: %w", err)
	}
	w.handle = handle
	return nil
}

func (w *Balance) onPerpState(perp json.RawMessage) {
	spot, err := w.info.SpotClearinghouseState(context.Background(), w.user)
	if err != nil {
		w.safeError(fmt.Errorf("balance watcher: pull spot state: %w", err))
		spot = w.currentSpot()
	} else {
		w.setSpot(spot)
	}

	w.safeUpdate(Snapshot{Perp: perp, Spot: spot})
}

func (w *Balance) currentSpot() json.RawMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSpot
}

func (w *Balance) setSpot(spot json.RawMessage) {
	w.mu.Lock()
	w.lastSpot = spot
	w.mu.Unlock()
}

func (w *Balance) safeUpdate(snap Snapshot) {
	defer recoverAndLog(w.log, "onUpdate")
	w.onUpdate(snap)
}

func (w *Balance) safeError(err error) {
	defer recoverAndLog(w.log, "onError")
	w.onError(err)
}

func (w *Balance) Stop() {
	if !w.beginStop() {
		return
	}
	if w.handle != nil {
		_ = w.handle.Unsubscribe(context.Background())
	}
	_ = w.transport.Close()
}
