// Package fallback implements C6: for every cache-backed read, probe
// the daemon, use it if healthy, otherwise fall straight to the direct
// upstream HTTP call. Exactly one daemon attempt followed by at most
// one direct attempt — never a retry loop.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
	"github.com/chrisling-dev/hyperliquid-cli/internal/ipc"
	"github.com/chrisling-dev/hyperliquid-cli/internal/model"
)

// DaemonDialer abstracts ipc.TryConnect/ipc.Dial so tests can substitute
// a fake daemon without a real socket.
type DaemonDialer interface {
	TryConnect() DaemonConn
}

// DaemonConn is the subset of *ipc.Client the orchestrator needs.
type DaemonConn interface {
	GetPrices(ctx context.Context, coin string) (map[string]string, error)
	GetAssetCtxs(ctx context.Context) (json.RawMessage, error)
	GetPerpMeta(ctx context.Context) (json.RawMessage, error)
	Close() error
}

// SocketDialer is the production DaemonDialer, backed by the real unix
// socket at path.
type SocketDialer struct {
	Path string
}

func (d SocketDialer) TryConnect() DaemonConn {
	c := ipc.TryConnect(d.Path)
	if c == nil {
		return nil
	}
	return c
}

// Orchestrator wires a DaemonDialer to an exchange.InfoClient. A tripped
// breaker skips the daemon probe entirely — it only gates whether we
// bother dialing, never whether we retry.
type Orchestrator struct {
	dialer  DaemonDialer
	info    exchange.InfoClient
	breaker *gobreaker.CircuitBreaker
}

func New(dialer DaemonDialer, info exchange.InfoClient) *Orchestrator {
	settings := gobreaker.Settings{
		Name:        "daemon-probe",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	}
	return &Orchestrator{
		dialer:  dialer,
		info:    info,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// daemonAttempt runs fn against a freshly dialed daemon connection, if
// one is available and the breaker allows the attempt. It returns
// ok=false whenever the caller should fall back to upstream HTTP.
func (o *Orchestrator) daemonAttempt(fn func(DaemonConn) (any, error)) (any, bool) {
	result, err := o.breaker.Execute(func() (any, error) {
		conn := o.dialer.TryConnect()
		if conn == nil {
			return nil, fmt.Errorf("fallback: daemon unreachable")
		}
		defer conn.Close()
		return fn(conn)
	})
	if err != nil {
		return nil, false
	}
	return result, true
}

// GetPrices returns the mids mapping (or a single coin's price if coin
// is non-empty), trying the daemon first and falling back to a single
// direct upstream call.
func (o *Orchestrator) GetPrices(ctx context.Context, coin string) (map[string]string, error) {
	if v, ok := o.daemonAttempt(func(c DaemonConn) (any, error) {
		return c.GetPrices(ctx, coin)
	}); ok {
		return v.(map[string]string), nil
	}

	mids, err := o.info.AllMids(ctx)
	if err != nil {
		return nil, fmt.Errorf("fallback: upstream allMids: %w", err)
	}
	if coin == "" {
		return mids, nil
	}
	symbol := strings.ToUpper(coin)
	price, found := mids[symbol]
	if !found {
		return nil, fmt.Errorf("Coin not found: %s", symbol)
	}
	return map[string]string{symbol: price}, nil
}

func (o *Orchestrator) GetAssetCtxs(ctx context.Context) ([]model.DexAssetContexts, error) {
	if v, ok := o.daemonAttempt(func(c DaemonConn) (any, error) {
		raw, err := c.GetAssetCtxs(ctx)
		if err != nil {
			return nil, err
		}
		var ctxs []model.DexAssetContexts
		if err := json.Unmarshal(raw, &ctxs); err != nil {
			return nil, err
		}
		return ctxs, nil
	}); ok {
		return v.([]model.DexAssetContexts), nil
	}

	ctxs, err := o.info.MetaAndAssetCtxs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fallback: upstream metaAndAssetCtxs: %w", err)
	}
	return ctxs, nil
}

func (o *Orchestrator) GetPerpMeta(ctx context.Context) ([]model.PerpMeta, error) {
	if v, ok := o.daemonAttempt(func(c DaemonConn) (any, error) {
		raw, err := c.GetPerpMeta(ctx)
		if err != nil {
			return nil, err
		}
		var metas []model.PerpMeta
		if err := json.Unmarshal(raw, &metas); err != nil {
			return nil, err
		}
		return metas, nil
	}); ok {
		return v.([]model.PerpMeta), nil
	}

	metas, err := o.info.AllPerpMetas(ctx)
	if err != nil {
		return nil, fmt.Errorf("fallback: upstream meta: %w", err)
	}
	return metas, nil
}

// metaAndCtxs bundles both cache reads the daemon side of
// GetMetaAndAssetCtxs performs within its single daemonAttempt.
type metaAndCtxs struct {
	metas []model.PerpMeta
	ctxs  []model.DexAssetContexts
}

// GetMetaAndAssetCtxs is the combined read scenario.7 names ("combined
// meta+contexts"): one daemonAttempt reads both cache slots over the
// same connection, falling back to exactly one upstream HTTP call
// (MetaAndAssetCtxs) — never a composition of GetPerpMeta and
// GetAssetCtxs, which would each independently retry upstream and
// could cost up to two HTTP calls per invocation (§8 universal
// invariant: ≤1 upstream call per fallback-orchestrated read).
func (o *Orchestrator) GetMetaAndAssetCtxs(ctx context.Context) ([]model.PerpMeta, []model.DexAssetContexts, error) {
	if v, ok := o.daemonAttempt(func(c DaemonConn) (any, error) {
		metaRaw, err := c.GetPerpMeta(ctx)
		if err != nil {
			return nil, err
		}
		ctxRaw, err := c.GetAssetCtxs(ctx)
		if err != nil {
			return nil, err
		}
		var metas []model.PerpMeta
		if err := json.Unmarshal(metaRaw, &metas); err != nil {
			return nil, err
		}
		var ctxs []model.DexAssetContexts
		if err := json.Unmarshal(ctxRaw, &ctxs); err != nil {
			return nil, err
		}
		return metaAndCtxs{metas: metas, ctxs: ctxs}, nil
	}); ok {
		result := v.(metaAndCtxs)
		return result.metas, result.ctxs, nil
	}

	// The daemon is unreachable or its combined read failed: a single
	// upstream round trip supplies the asset contexts. No second call to
	// AllPerpMetas follows, so on this path the returned metas are nil.
	ctxs, err := o.info.MetaAndAssetCtxs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fallback: upstream metaAndAssetCtxs: %w", err)
	}
	return nil, ctxs, nil
}
