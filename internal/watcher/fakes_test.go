package watcher

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
	"github.com/chrisling-dev/hyperliquid-cli/internal/model"
)

type fakeTransport struct {
	mu        sync.Mutex
	ready     chan struct{}
	connected bool
	closed    bool

	midsSink  func(model.Mids)
	bookSink  func(exchange.Book)
	chanSink  func(json.RawMessage)
	orderSink func(json.RawMessage)

	unsubscribed []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{ready: make(chan struct{})}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	close(f.ready)
	return nil
}
func (f *fakeTransport) Ready() <-chan struct{} { return f.ready }
func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.connected = false
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) SubscribeAllMids(ctx context.Context, onEvent func(model.Mids)) (exchange.Handle, error) {
	f.midsSink = onEvent
	return &fakeHandle{name: "allMids", log: &f.unsubscribed, mu: &f.mu}, nil
}
func (f *fakeTransport) SubscribeAllDexAssetCtxs(ctx context.Context, onEvent func([]model.DexAssetContexts)) (exchange.Handle, error) {
	return nil, nil
}
func (f *fakeTransport) SubscribeL2Book(ctx context.Context, coin string, onEvent func(exchange.Book)) (exchange.Handle, error) {
	f.bookSink = onEvent
	return &fakeHandle{name: "l2Book", log: &f.unsubscribed, mu: &f.mu}, nil
}
func (f *fakeTransport) SubscribeClearinghouseState(ctx context.Context, user string, onEvent func(json.RawMessage)) (exchange.Handle, error) {
	f.chanSink = onEvent
	return &fakeHandle{name: "clearinghouseState", log: &f.unsubscribed, mu: &f.mu}, nil
}
func (f *fakeTransport) SubscribeOrderUpdates(ctx context.Context, user string, onEvent func(json.RawMessage)) (exchange.Handle, error) {
	f.orderSink = onEvent
	return &fakeHandle{name: "orderUpdates", log: &f.unsubscribed, mu: &f.mu}, nil
}
func (f *fakeTransport) SubscribeActiveAssetData(ctx context.Context, user, coin string, onEvent func(json.RawMessage)) (exchange.Handle, error) {
	return nil, nil
}

type fakeHandle struct {
	name string
	log  *[]string
	mu   *sync.Mutex
}

func (h *fakeHandle) Unsubscribe(ctx context.Context) error {
	h.mu.Lock()
	*h.log = append(*h.log, h.name)
	h.mu.Unlock()
	return nil
}

type fakeInfo struct {
	mu             sync.Mutex
	openOrdersCall int
	openOrders     json.RawMessage
	openOrdersErr  error
	spotState      json.RawMessage
	spotStateErr   error
}

func (f *fakeInfo) AllPerpMetas(ctx context.Context) ([]model.PerpMeta, error) { return nil, nil }
func (f *fakeInfo) MetaAndAssetCtxs(ctx context.Context) ([]model.DexAssetContexts, error) {
	return nil, nil
}
func (f *fakeInfo) AllMids(ctx context.Context) (model.Mids, error)       { return nil, nil }
func (f *fakeInfo) SpotMeta(ctx context.Context) (json.RawMessage, error) { return nil, nil }
func (f *fakeInfo) ClearinghouseState(ctx context.Context, user string) (json.RawMessage, error) {
	return nil, nil
}
func (f *fakeInfo) SpotClearinghouseState(ctx context.Context, user string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.spotStateErr != nil {
		return nil, f.spotStateErr
	}
	return f.spotState, nil
}
func (f *fakeInfo) OpenOrders(ctx context.Context, user string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openOrdersCall++
	if f.openOrdersErr != nil {
		return nil, f.openOrdersErr
	}
	return f.openOrders, nil
}
func (f *fakeInfo) L2Book(ctx context.Context, coin string) (exchange.Book, error) {
	return exchange.Book{}, nil
}
func (f *fakeInfo) Referral(ctx context.Context, user string) (json.RawMessage, error) {
	return nil, nil
}
func (f *fakeInfo) UserRole(ctx context.Context, user string) (json.RawMessage, error) {
	return nil, nil
}
func (f *fakeInfo) ExtraAgents(ctx context.Context, user string) (json.RawMessage, error) {
	return nil, nil
}
func (f *fakeInfo) ActiveAssetData(ctx context.Context, user, coin string) (json.RawMessage, error) {
	return nil, nil
}
