package ipc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/chrisling-dev/hyperliquid-cli/internal/cache"
)

// Sentinel errors surfaced verbatim as response.error strings, per §7.
var (
	ErrNoData           = errors.New("No data available")
	ErrConnectionClosed = errors.New("Connection closed")
)

func errCoinNotFound(coin string) error {
	return fmt.Errorf("Coin not found: %s", coin)
}

func errUnknownMethod(method string) error {
	return fmt.Errorf("Unknown method: %s", method)
}

// ConnectionState is what getStatus reports about the upstream push
// transport; the subscription manager satisfies it.
type ConnectionState interface {
	Connected() bool
}

// Metrics is the optional recorder hook the daemon's prometheus
// collector satisfies. A nil Metrics on Server disables recording.
type Metrics interface {
	RecordRequest(method, outcome string)
	RecordCacheRead(slot string, hit bool)
}

// Server is C3: it accepts local-socket connections, frames newline-
// delimited JSON requests, and dispatches to cache reads and control
// operations.
type Server struct {
	cache     *cache.Cache
	conn      ConnectionState
	testnet   bool
	startedAt time.Time
	log       zerolog.Logger

	// onShutdownRequested fires once, from the connection handler that
	// processed the shutdown request, after the {ok:true} response has
	// been written. The daemon lifecycle uses it to begin teardown.
	onShutdownRequested func()
	metrics             Metrics

	listener net.Listener

	mu           sync.Mutex
	conns        map[net.Conn]struct{}
	shuttingDown atomic.Bool
}

// NewServer constructs a Server. onShutdownRequested may be nil in
// tests that don't exercise the shutdown method.
func NewServer(c *cache.Cache, conn ConnectionState, testnet bool, startedAt time.Time, log zerolog.Logger, onShutdownRequested func()) *Server {
	return &Server{
		cache:                c,
		conn:                 conn,
		testnet:              testnet,
		startedAt:            startedAt,
		log:                  log.With().Str("component", "ipc-server").Logger(),
		onShutdownRequested:  onShutdownRequested,
		conns:                make(map[net.Conn]struct{}),
	}
}

// SetMetrics attaches a recorder; safe to call once before Serve.
func (s *Server) SetMetrics(m Metrics) { s.metrics = m }

func (s *Server) recordOutcome(method string, resp Response) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if resp.Error != "" {
		outcome = "error"
	}
	s.metrics.RecordRequest(method, outcome)
}

func (s *Server) recordCacheRead(slot string, hit bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCacheRead(slot, hit)
}

// Serve accepts connections on l until the listener is closed (by Close
// or externally). One goroutine per connection; handlers share no locks
// beyond those inside the cache.
func (s *Server) Serve(l net.Listener) error {
	s.listener = l
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.shuttingDown.Load() {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		go s.handleConn(conn)
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		s.untrackConn(conn)
		conn.Close()
	}()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			s.handleLine(conn, line)
		}
		if err != nil {
			return // connection closed or errored; cleanup is this peer's only
		}
	}
}

func (s *Server) handleLine(conn net.Conn, line []byte) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		// malformed: no id to answer on, drop silently per §4.3.
		return
	}

	resp := s.dispatch(req)
	s.recordOutcome(req.Method, resp)
	s.write(conn, resp)

	if req.Method == "shutdown" && resp.Error == "" && s.onShutdownRequested != nil {
		go s.onShutdownRequested()
	}
}

func (s *Server) write(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = conn.Write(data)
}

func (s *Server) dispatch(req Request) Response {
	if s.shuttingDown.Load() {
		return fail(req.ID, ErrConnectionClosed)
	}

	switch req.Method {
	case "getPrices":
		return s.handleGetPrices(req)
	case "getAssetCtxs":
		return s.handleGetAssetCtxs(req)
	case "getPerpMeta":
		return s.handleGetPerpMeta(req)
	case "getStatus":
		return s.handleGetStatus(req)
	case "shutdown":
		return s.handleShutdown(req)
	default:
		return fail(req.ID, errUnknownMethod(req.Method))
	}
}

type getPricesParams struct {
	Coin string `json:"coin,omitempty"`
}

func (s *Server) handleGetPrices(req Request) Response {
	mids, updatedAt, present := s.cache.GetMids()
	s.recordCacheRead("mids", present)
	if !present {
		return fail(req.ID, ErrNoData)
	}

	var params getPricesParams
	if len(req.Params) > 0 {
		_ = json.Unmarshal(req.Params, &params)
	}

	cachedAt := updatedAt.UnixMilli()
	if params.Coin == "" {
		return ok(req.ID, mids, &cachedAt)
	}

	symbol := strings.ToUpper(params.Coin)
	price, found := mids[symbol]
	if !found {
		return fail(req.ID, errCoinNotFound(symbol))
	}
	return ok(req.ID, map[string]string{symbol: price}, &cachedAt)
}

func (s *Server) handleGetAssetCtxs(req Request) Response {
	ctxs, updatedAt, present := s.cache.GetAssetCtxs()
	s.recordCacheRead("assetCtxs", present)
	if !present {
		return fail(req.ID, ErrNoData)
	}
	cachedAt := updatedAt.UnixMilli()
	return ok(req.ID, ctxs, &cachedAt)
}

func (s *Server) handleGetPerpMeta(req Request) Response {
	metas, updatedAt, present := s.cache.GetPerpMetas()
	s.recordCacheRead("perpMetas", present)
	if !present {
		return fail(req.ID, ErrNoData)
	}
	cachedAt := updatedAt.UnixMilli()
	return ok(req.ID, metas, &cachedAt)
}

// statusCacheView mirrors the getStatus.cache shape named in scenario 4:
// hasMids / hasAssetCtxs / hasPerpMetas booleans (no age).
type statusCacheView struct {
	HasMids      bool `json:"hasMids"`
	HasAssetCtxs bool `json:"hasAssetCtxs"`
	HasPerpMetas bool `json:"hasPerpMetas"`
}

type statusResult struct {
	Running   bool            `json:"running"`
	Testnet   bool            `json:"testnet"`
	Connected bool            `json:"connected"`
	StartedAt int64           `json:"startedAt"`
	Uptime    int64           `json:"uptime"`
	Cache     statusCacheView `json:"cache"`
}

func (s *Server) handleGetStatus(req Request) Response {
	st := s.cache.Status()
	connected := false
	if s.conn != nil {
		connected = s.conn.Connected()
	}
	result := statusResult{
		Running:   true,
		Testnet:   s.testnet,
		Connected: connected,
		StartedAt: s.startedAt.UnixMilli(),
		Uptime:    time.Since(s.startedAt).Milliseconds(),
		Cache: statusCacheView{
			HasMids:      st["mids"].Present,
			HasAssetCtxs: st["assetCtxs"].Present,
			HasPerpMetas: st["perpMetas"].Present,
		},
	}
	return ok(req.ID, result, nil)
}

func (s *Server) handleShutdown(req Request) Response {
	resp := ok(req.ID, map[string]bool{"ok": true}, nil)
	s.shuttingDown.Store(true)
	return resp
}

// Close stops accepting new connections and forcibly closes every
// tracked connection, unblocking any client blocked on a read. Safe to
// call multiple times.
func (s *Server) Close() error {
	s.shuttingDown.Store(true)
	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	return nil
}
