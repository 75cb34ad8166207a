package watcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
)

// Position opens a direct push subscription to all-dexes clearinghouse
// state for an address and forwards every event verbatim; it does no
// normalization since the spec leaves the shape to the caller.
type Position struct {
	lifecycle

	user      string
	transport exchange.PushTransport
	log       zerolog.Logger
	onUpdate  func(json.RawMessage)
	onError   func(error)

	handle exchange.Handle
}

func NewPosition(transport exchange.PushTransport, user string, log zerolog.Logger, onUpdate func(json.RawMessage), onError func(error)) *Position {
	return &Position{
		user:      user,
		transport: transport,
		log:       log.With().Str("watcher", "position").Str("user", user).Logger(),
		onUpdate:  onUpdate,
		onError:   onError,
	}
}

func (w *Position) Start(ctx context.Context) error {
	if !w.beginStart() {
		return nil
	}
	if err := w.transport.Connect(ctx); err != nil {
		return fmt.Errorf("position watcher: connect: %w", err)
	}
	select {
	case <-w.transport.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	handle, err := w.transport.SubscribeClearinghouseState(ctx, w.user, w.onState)
	if err != nil {
		return fmt.Errorf("position watcher: subscribe: %w", err)
	}
	w.handle = handle
	return nil
}

func (w *Position) onState(state json.RawMessage) {
	defer recoverAndLog(w.log, "onUpdate")
	w.onUpdate(state)
}

func (w *Position) Stop() {
	if !w.beginStop() {
		return
	}
	if w.handle != nil {
		_ = w.handle.Unsubscribe(context.Background())
	}
	_ = w.transport.Close()
}
