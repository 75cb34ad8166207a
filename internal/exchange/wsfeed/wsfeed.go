// Package wsfeed implements exchange.PushTransport over a reconnecting
// gorilla/websocket connection. Shape and reconnect loop mirror
// the teacher's Kraken client (internal/providers/kraken/websocket.go):
// a dial/message-loop/ping-loop triad guarded by a mutex, plus a
// capped-exponential-backoff reconnect goroutine.
package wsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
	"github.com/chrisling-dev/hyperliquid-cli/internal/model"
)

const (
	mainnetURL = "wss://api.hyperliquid.xyz/ws"
	testnetURL = "wss://api.hyperliquid-testnet.xyz/ws"

	minBackoff = 250 * time.Millisecond
	maxBackoff = 30 * time.Second
	pingEvery  = 30 * time.Second

	// writeTimeout bounds every outbound control frame so a stuck-but-
	// still-established connection can't block Stop (§4.7) indefinitely.
	writeTimeout = 5 * time.Second
)

// wireMessage is the generic subscribe/unsubscribe/event envelope. The
// upstream wire shape is out of scope (§1); this envelope only needs to
// carry enough to route events to the right handler.
type wireMessage struct {
	Method       string          `json:"method,omitempty"`
	Subscription json.RawMessage `json:"subscription,omitempty"`
	Channel      string          `json:"channel,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

type subscription struct {
	channel string
	key     string // e.g. coin or user, "" if feed-wide
	raw     json.RawMessage
	deliver func(json.RawMessage)
}

type handle struct {
	feed *Feed
	id   int64
}

func (h *handle) Unsubscribe(ctx context.Context) error {
	return h.feed.unsubscribe(h.id)
}

// Feed is the concrete PushTransport.
type Feed struct {
	url    string
	log    zerolog.Logger
	dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	closeCh   chan struct{}
	readyOnce sync.Once
	readyCh   chan struct{}

	subsMu sync.Mutex
	subID  int64
	subs   map[int64]*subscription
}

// New returns a Feed targeting net. Connect must be called before use.
func New(net exchange.Network, log zerolog.Logger) *Feed {
	u := mainnetURL
	if net == exchange.Testnet {
		u = testnetURL
	}
	return &Feed{
		url:     u,
		log:     log.With().Str("component", "wsfeed").Logger(),
		dialer:  websocket.DefaultDialer,
		closeCh: make(chan struct{}),
		readyCh: make(chan struct{}),
		subs:    make(map[int64]*subscription),
	}
}

func (f *Feed) Ready() <-chan struct{} { return f.readyCh }

func (f *Feed) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Connect performs the first dial and starts the reconnect loop.
// Reconnect attempts after the first happen in the background; Connect
// itself returns as soon as the first attempt resolves.
func (f *Feed) Connect(ctx context.Context) error {
	if _, err := url.Parse(f.url); err != nil {
		return fmt.Errorf("wsfeed: invalid url: %w", err)
	}
	err := f.dial(ctx)
	go f.reconnectLoop(ctx)
	return err
}

func (f *Feed) dial(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		f.log.Warn().Err(err).Msg("dial failed")
		return fmt.Errorf("wsfeed: dial: %w", err)
	}

	f.mu.Lock()
	f.conn = conn
	f.connected = true
	f.mu.Unlock()

	f.readyOnce.Do(func() { close(f.readyCh) })
	f.log.Info().Str("url", f.url).Msg("connected")

	f.resubscribeAll()

	go f.readLoop(conn)
	go f.pingLoop(conn)
	return nil
}

func (f *Feed) reconnectLoop(ctx context.Context) {
	backoff := minBackoff
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.closeCh:
			return
		default:
		}

		f.mu.Lock()
		connected := f.connected
		closed := f.closed
		f.mu.Unlock()
		if closed {
			return
		}
		if connected {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if err := f.dial(ctx); err != nil {
			jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
			time.Sleep(backoff + jitter)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = minBackoff
	}
}

func (f *Feed) readLoop(conn *websocket.Conn) {
	defer f.handleDisconnect(conn)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			f.log.Warn().Err(err).Msg("read error, will reconnect")
			return
		}
		var msg wireMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue // malformed frame, drop silently
		}
		f.dispatch(msg)
	}
}

func (f *Feed) dispatch(msg wireMessage) {
	// handler faults must never propagate back into the read loop,
	// or they would kill the subscription.
	defer func() {
		if r := recover(); r != nil {
			f.log.Error().Interface("panic", r).Msg("subscription handler panicked")
		}
	}()

	f.subsMu.Lock()
	var targets []*subscription
	for _, s := range f.subs {
		if s.channel == msg.Channel {
			targets = append(targets, s)
		}
	}
	f.subsMu.Unlock()

	for _, s := range targets {
		s.deliver(msg.Data)
	}
}

func (f *Feed) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			f.mu.Lock()
			current := f.conn
			f.mu.Unlock()
			if current != conn {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-f.closeCh:
			return
		}
	}
}

func (f *Feed) handleDisconnect(conn *websocket.Conn) {
	f.mu.Lock()
	if f.conn == conn {
		f.connected = false
	}
	f.mu.Unlock()
	conn.Close()
}

func (f *Feed) resubscribeAll() {
	f.subsMu.Lock()
	defer f.subsMu.Unlock()
	for _, s := range f.subs {
		f.sendSubscribe(s.raw)
	}
}

func (f *Feed) sendSubscribe(raw json.RawMessage) {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteJSON(wireMessage{Method: "subscribe", Subscription: raw})
}

func (f *Feed) addSubscription(channel, key string, raw json.RawMessage, deliver func(json.RawMessage)) exchange.Handle {
	f.subsMu.Lock()
	f.subID++
	id := f.subID
	f.subs[id] = &subscription{channel: channel, key: key, raw: raw, deliver: deliver}
	f.subsMu.Unlock()

	f.sendSubscribe(raw)
	return &handle{feed: f, id: id}
}

func (f *Feed) unsubscribe(id int64) error {
	f.subsMu.Lock()
	s, ok := f.subs[id]
	if ok {
		delete(f.subs, id)
	}
	f.subsMu.Unlock()
	if !ok {
		return nil
	}

	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return nil
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("wsfeed: set write deadline: %w", err)
	}
	return conn.WriteJSON(wireMessage{Method: "unsubscribe", Subscription: s.raw})
}

// Close tears down the feed and stops the reconnect loop. Idempotent.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	conn := f.conn
	f.mu.Unlock()

	close(f.closeCh)
	if conn != nil {
		conn.Close()
	}
	return nil
}

func subRaw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func (f *Feed) SubscribeAllMids(ctx context.Context, onEvent func(model.Mids)) (exchange.Handle, error) {
	raw := subRaw(map[string]string{"type": "allMids"})
	return f.addSubscription("allMids", "", raw, func(data json.RawMessage) {
		var m model.Mids
		if err := json.Unmarshal(data, &m); err == nil {
			onEvent(m)
		}
	}), nil
}

func (f *Feed) SubscribeAllDexAssetCtxs(ctx context.Context, onEvent func([]model.DexAssetContexts)) (exchange.Handle, error) {
	raw := subRaw(map[string]string{"type": "allDexsAssetCtxs"})
	return f.addSubscription("allDexsAssetCtxs", "", raw, func(data json.RawMessage) {
		var ctxs []model.DexAssetContexts
		if err := json.Unmarshal(data, &ctxs); err == nil {
			onEvent(ctxs)
		}
	}), nil
}

func (f *Feed) SubscribeL2Book(ctx context.Context, coin string, onEvent func(exchange.Book)) (exchange.Handle, error) {
	raw := subRaw(map[string]string{"type": "l2Book", "coin": coin})
	return f.addSubscription("l2Book", coin, raw, func(data json.RawMessage) {
		var b exchange.Book
		if err := json.Unmarshal(data, &b); err == nil {
			onEvent(b)
		}
	}), nil
}

func (f *Feed) SubscribeClearinghouseState(ctx context.Context, user string, onEvent func(json.RawMessage)) (exchange.Handle, error) {
	raw := subRaw(map[string]string{"type": "allDexsClearinghouseState", "user": user})
	return f.addSubscription("allDexsClearinghouseState", user, raw, onEvent), nil
}

func (f *Feed) SubscribeOrderUpdates(ctx context.Context, user string, onEvent func(json.RawMessage)) (exchange.Handle, error) {
	raw := subRaw(map[string]string{"type": "orderUpdates", "user": user})
	return f.addSubscription("orderUpdates", user, raw, onEvent), nil
}

func (f *Feed) SubscribeActiveAssetData(ctx context.Context, user, coin string, onEvent func(json.RawMessage)) (exchange.Handle, error) {
	raw := subRaw(map[string]string{"type": "activeAssetData", "user": user, "coin": coin})
	return f.addSubscription("activeAssetData", user+":"+coin, raw, onEvent), nil
}

var _ exchange.PushTransport = (*Feed)(nil)
