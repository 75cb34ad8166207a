// Package subscription implements C2: the sole owner of the upstream
// push transport. It routes inbound events into the cache and schedules
// periodic HTTP refresh of slow-moving feeds.
package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chrisling-dev/hyperliquid-cli/internal/cache"
	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
	"github.com/chrisling-dev/hyperliquid-cli/internal/model"
)

const perpMetaRefreshInterval = 60 * time.Second

// Manager owns the push transport for the lifetime of the daemon.
type Manager struct {
	transport exchange.PushTransport
	info      exchange.InfoClient
	cache     *cache.Cache
	log       zerolog.Logger

	mu      sync.Mutex
	handles []exchange.Handle // unsubscribed in reverse order on Stop
	stopped bool

	refreshCancel context.CancelFunc
	refreshDone   chan struct{}
}

// New wires a Manager over an already-constructed transport and info
// client; it does not open any connection until Start is called.
func New(transport exchange.PushTransport, info exchange.InfoClient, c *cache.Cache, log zerolog.Logger) *Manager {
	return &Manager{
		transport: transport,
		info:      info,
		cache:     c,
		log:       log.With().Str("component", "subscription").Logger(),
	}
}

// Start opens the transport, waits for it to report ready, subscribes
// to the two push feeds, performs the initial perp-meta fetch, and
// schedules the periodic refresh. It returns once the transport is
// ready and subscriptions are established.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.transport.Connect(ctx); err != nil {
		return err
	}

	select {
	case <-m.transport.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	midsHandle, err := m.transport.SubscribeAllMids(ctx, m.onMids)
	if err != nil {
		return err
	}
	m.addHandle(midsHandle)

	ctxHandle, err := m.transport.SubscribeAllDexAssetCtxs(ctx, m.onAssetCtxs)
	if err != nil {
		return err
	}
	m.addHandle(ctxHandle)

	if err := m.refreshPerpMeta(ctx); err != nil {
		m.log.Warn().Err(err).Msg("initial perp meta fetch failed")
	}

	refreshCtx, cancel := context.WithCancel(context.Background())
	m.refreshCancel = cancel
	m.refreshDone = make(chan struct{})
	go m.refreshLoop(refreshCtx)

	return nil
}

func (m *Manager) addHandle(h exchange.Handle) {
	m.mu.Lock()
	m.handles = append(m.handles, h)
	m.mu.Unlock()
}

// onMids and onAssetCtxs isolate handler faults so a panic in cache
// code can never propagate back into the transport's delivery loop.
func (m *Manager) onMids(mids model.Mids) {
	defer m.recoverHandler("onMids")
	m.cache.PutMids(mids)
}

func (m *Manager) onAssetCtxs(ctxs []model.DexAssetContexts) {
	defer m.recoverHandler("onAssetCtxs")
	m.cache.PutAssetCtxs(ctxs)
}

func (m *Manager) recoverHandler(name string) {
	if r := recover(); r != nil {
		m.log.Error().Str("handler", name).Interface("panic", r).Msg("push handler panicked, isolated")
	}
}

func (m *Manager) refreshLoop(ctx context.Context) {
	defer close(m.refreshDone)
	ticker := time.NewTicker(perpMetaRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.refreshPerpMeta(ctx); err != nil {
				m.log.Warn().Err(err).Msg("periodic perp meta refresh failed")
			}
		}
	}
}

func (m *Manager) refreshPerpMeta(ctx context.Context) error {
	metas, err := m.info.AllPerpMetas(ctx)
	if err != nil {
		return err
	}
	m.cache.PutPerpMetas(metas)
	return nil
}

// Connected reports whether the underlying push socket is OPEN.
func (m *Manager) Connected() bool {
	return m.transport.Connected()
}

// Stop cancels the refresh timer, unsubscribes every handle in reverse
// order (swallowing errors), and closes the transport. Idempotent and
// bounded: no single unsubscribe error blocks the rest.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	handles := m.handles
	m.handles = nil
	m.mu.Unlock()

	if m.refreshCancel != nil {
		m.refreshCancel()
		<-m.refreshDone
	}

	for i := len(handles) - 1; i >= 0; i-- {
		if err := handles[i].Unsubscribe(ctx); err != nil {
			m.log.Warn().Err(err).Msg("unsubscribe failed, continuing")
		}
	}

	if err := m.transport.Close(); err != nil {
		m.log.Warn().Err(err).Msg("transport close failed")
	}
}
