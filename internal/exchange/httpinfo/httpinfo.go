// Package httpinfo implements exchange.InfoClient against the upstream
// REST info endpoint, with per-host token-bucket rate limiting mirroring
// the teacher's internal/net/ratelimit/limiter.go.
package httpinfo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
	"github.com/chrisling-dev/hyperliquid-cli/internal/model"
)

const (
	mainnetBase = "https://api.hyperliquid.xyz"
	testnetBase = "https://api.hyperliquid-testnet.xyz"

	defaultRPS   = 10.0
	defaultBurst = 20
)

// Client is a small REST client over the upstream "/info" endpoint.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

// New returns a Client targeting net, rate limited to rps requests per
// second with the given burst.
func New(net exchange.Network, rps float64, burst int) *Client {
	base := mainnetBase
	if net == exchange.Testnet {
		base = testnetBase
	}
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &Client{
		base:    base,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *Client) post(ctx context.Context, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("httpinfo: rate limit wait: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("httpinfo: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/info", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("httpinfo: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("httpinfo: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpinfo: read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("httpinfo: status %d: %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpinfo: decode response: %w", err)
	}
	return nil
}

func (c *Client) AllPerpMetas(ctx context.Context) ([]model.PerpMeta, error) {
	var out struct {
		Universe []model.PerpMeta `json:"universe"`
	}
	if err := c.post(ctx, map[string]string{"type": "meta"}, &out); err != nil {
		return nil, err
	}
	return out.Universe, nil
}

func (c *Client) MetaAndAssetCtxs(ctx context.Context) ([]model.DexAssetContexts, error) {
	var out []model.DexAssetContexts
	if err := c.post(ctx, map[string]string{"type": "metaAndAssetCtxs"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AllMids(ctx context.Context) (model.Mids, error) {
	var out model.Mids
	if err := c.post(ctx, map[string]string{"type": "allMids"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SpotMeta(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, map[string]string{"type": "spotMeta"}, &out)
	return out, err
}

func (c *Client) ClearinghouseState(ctx context.Context, user string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, map[string]string{"type": "clearinghouseState", "user": user}, &out)
	return out, err
}

func (c *Client) SpotClearinghouseState(ctx context.Context, user string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, map[string]string{"type": "spotClearinghouseState", "user": user}, &out)
	return out, err
}

func (c *Client) OpenOrders(ctx context.Context, user string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, map[string]string{"type": "openOrders", "user": user}, &out)
	return out, err
}

func (c *Client) L2Book(ctx context.Context, coin string) (exchange.Book, error) {
	var out exchange.Book
	err := c.post(ctx, map[string]string{"type": "l2Book", "coin": coin}, &out)
	return out, err
}

func (c *Client) Referral(ctx context.Context, user string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, map[string]string{"type": "referral", "user": user}, &out)
	return out, err
}

func (c *Client) UserRole(ctx context.Context, user string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, map[string]string{"type": "userRole", "user": user}, &out)
	return out, err
}

func (c *Client) ExtraAgents(ctx context.Context, user string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, map[string]string{"type": "extraAgents", "user": user}, &out)
	return out, err
}

func (c *Client) ActiveAssetData(ctx context.Context, user, coin string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, map[string]string{"type": "activeAssetData", "user": user, "coin": coin}, &out)
	return out, err
}

var _ exchange.InfoClient = (*Client)(nil)
