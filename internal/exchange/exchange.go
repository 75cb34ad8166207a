// Package exchange declares the external collaborators §6 of the spec
// names abstractly: a reconnecting push transport, an HTTP info client,
// and an authenticated exchange client. None of these types encode the
// upstream wire format — only the logical operations the core depends
// on. Concrete implementations live in the wsfeed and httpinfo
// subpackages.
package exchange

import (
	"context"
	"encoding/json"

	"github.com/chrisling-dev/hyperliquid-cli/internal/model"
)

// Network selects which upstream environment a transport or info client
// targets.
type Network int

const (
	Mainnet Network = iota
	Testnet
)

func (n Network) String() string {
	if n == Testnet {
		return "testnet"
	}
	return "mainnet"
}

// Handle is the opaque cancellation token returned by a subscription.
// It is owned by whoever subscribed and used only to unsubscribe.
type Handle interface {
	Unsubscribe(ctx context.Context) error
}

// BookLevel is one price/size rung of an order book side.
type BookLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
}

// Book is the normalized two-sided order book the book watcher emits.
type Book struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
	Time int64       `json:"time"`
}

// PushTransport is the reconnecting subscription-oriented upstream
// collaborator. Implementations own their own reconnect/backoff loop;
// callers never retry a failed Subscribe themselves.
type PushTransport interface {
	// Connect dials the transport and begins its reconnect loop. It
	// returns once the initial dial attempt completes (success or
	// error); use Ready to wait for the transport to report OPEN.
	Connect(ctx context.Context) error

	// Ready is closed the first time the underlying socket reaches the
	// OPEN state. It is never closed more than once, even across
	// reconnects.
	Ready() <-chan struct{}

	// Connected reflects whether the underlying socket is OPEN right
	// now (it can flip back to false after Ready has fired).
	Connected() bool

	// Close tears down the transport and stops its reconnect loop.
	// Idempotent.
	Close() error

	SubscribeAllMids(ctx context.Context, onEvent func(model.Mids)) (Handle, error)
	SubscribeAllDexAssetCtxs(ctx context.Context, onEvent func([]model.DexAssetContexts)) (Handle, error)
	SubscribeL2Book(ctx context.Context, coin string, onEvent func(Book)) (Handle, error)
	SubscribeClearinghouseState(ctx context.Context, user string, onEvent func(json.RawMessage)) (Handle, error)
	SubscribeOrderUpdates(ctx context.Context, user string, onEvent func(json.RawMessage)) (Handle, error)
	SubscribeActiveAssetData(ctx context.Context, user, coin string, onEvent func(json.RawMessage)) (Handle, error)
}

// InfoClient is the stateless HTTP collaborator used for bootstrap
// fetches, periodic refresh, and the fallback orchestrator's direct
// path.
type InfoClient interface {
	AllPerpMetas(ctx context.Context) ([]model.PerpMeta, error)
	MetaAndAssetCtxs(ctx context.Context) ([]model.DexAssetContexts, error)
	AllMids(ctx context.Context) (model.Mids, error)
	SpotMeta(ctx context.Context) (json.RawMessage, error)
	ClearinghouseState(ctx context.Context, user string) (json.RawMessage, error)
	SpotClearinghouseState(ctx context.Context, user string) (json.RawMessage, error)
	OpenOrders(ctx context.Context, user string) (json.RawMessage, error)
	L2Book(ctx context.Context, coin string) (Book, error)
	Referral(ctx context.Context, user string) (json.RawMessage, error)
	UserRole(ctx context.Context, user string) (json.RawMessage, error)
	ExtraAgents(ctx context.Context, user string) (json.RawMessage, error)
	ActiveAssetData(ctx context.Context, user, coin string) (json.RawMessage, error)
}

// ExchangeClient is the authenticated, signing collaborator. Writes
// never consult the daemon or cache — they always go straight here.
type ExchangeClient interface {
	Order(ctx context.Context, req OrderRequest) (json.RawMessage, error)
	Cancel(ctx context.Context, coin string, oid int64) (json.RawMessage, error)
	UpdateLeverage(ctx context.Context, coin string, leverage int, isCross bool) (json.RawMessage, error)
	SetReferrer(ctx context.Context, code string) (json.RawMessage, error)
}

// OrderRequest is the normalized shape order() accepts; it deliberately
// omits exchange signing fields (out of scope, §1).
type OrderRequest struct {
	Coin       string
	IsBuy      bool
	Size       string
	LimitPx    string
	ReduceOnly bool
	MarketType string // "perp" or "spot"
}
