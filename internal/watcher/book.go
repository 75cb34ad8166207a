package watcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
)

// Book always opens a direct push subscription to the L2 order book for
// a single symbol; it never consults the daemon.
type Book struct {
	lifecycle

	coin      string
	transport exchange.PushTransport
	log       zerolog.Logger
	onUpdate  func(exchange.Book)
	onError   func(error)

	handle exchange.Handle
}

func NewBook(transport exchange.PushTransport, coin string, log zerolog.Logger, onUpdate func(exchange.Book), onError func(error)) *Book {
	return &Book{
		coin:      coin,
		transport: transport,
		log:       log.With().Str("watcher", "book").Str("coin", coin).Logger(),
		onUpdate:  onUpdate,
		onError:   onError,
	}
}

func (w *Book) Start(ctx context.Context) error {
	if !w.beginStart() {
		return nil
	}
	if err := w.transport.Connect(ctx); err != nil {
		return fmt.Errorf("book watcher: connect: %w", err)
	}
	select {
	case <-w.transport.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	handle, err := w.transport.SubscribeL2Book(ctx, w.coin, w.onBook)
	if err != nil {
		return fmt.Errorf("book watcher: subscribe: %w", err)
	}
	w.handle = handle
	return nil
}

func (w *Book) onBook(book exchange.Book) {
	defer recoverAndLog(w.log, "onUpdate")
	w.onUpdate(book)
}

func (w *Book) Stop() {
	if !w.beginStop() {
		return
	}
	if w.handle != nil {
		_ = w.handle.Unsubscribe(context.Background())
	}
	_ = w.transport.Close()
}
