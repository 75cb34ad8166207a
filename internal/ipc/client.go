package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RequestTimeout is how long a single outbound request waits for a
// matching response before failing with ErrRequestTimeout.
const RequestTimeout = 5 * time.Second

var ErrRequestTimeout = errors.New("Request timeout")

type pending struct {
	resultCh chan Response
}

// Client is C5: it connects to the daemon socket, multiplexes requests
// by id, and times them out independently of each other.
type Client struct {
	conn net.Conn

	mu      sync.Mutex
	pending map[string]*pending
	closed  bool

	writeMu sync.Mutex
}

// Dial connects to the socket at path and starts the read loop.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("ipc: dial: %w", err)
	}
	c := &Client{
		conn:    conn,
		pending: make(map[string]*pending),
	}
	go c.readLoop()
	return c, nil
}

// ServerRunning is a pure filesystem check: it never dials, it only
// checks whether the socket file exists.
func ServerRunning(socketPath string) bool {
	_, err := os.Stat(socketPath)
	return err == nil
}

// TryConnect returns a connected Client, or nil if the daemon isn't
// reachable. It never raises.
func TryConnect(socketPath string) *Client {
	if !ServerRunning(socketPath) {
		return nil
	}
	c, err := Dial(socketPath)
	if err != nil {
		return nil
	}
	return c
}

func (c *Client) readLoop() {
	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			c.dispatchLine(bytes.TrimRight(line, "\r\n"))
		}
		if err != nil {
			c.onClosed()
			return
		}
	}
}

var errConnectionClosed = errors.New("Connection closed")

func (c *Client) dispatchLine(line []byte) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return
	}
	c.mu.Lock()
	p, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()
	if ok {
		p.resultCh <- resp
	}
}

func (c *Client) onClosed() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pendings := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, p := range pendings {
		p.resultCh <- Response{Error: errConnectionClosed.Error()}
	}
}

// Close closes the underlying connection and rejects every pending
// request with "Connection closed".
func (c *Client) Close() error {
	err := c.conn.Close()
	c.onClosed()
	return err
}

// Call sends {id, method, params} and waits up to RequestTimeout for a
// matching response.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := uuid.NewString()

	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("ipc: encode params: %w", err)
		}
		raw = b
	}

	req := Request{ID: id, Method: method, Params: raw}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ipc: encode request: %w", err)
	}
	data = append(data, '\n')

	p := &pending{resultCh: make(chan Response, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errConnectionClosed
	}
	c.pending[id] = p
	c.mu.Unlock()

	c.writeMu.Lock()
	_, err = c.conn.Write(data)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("ipc: write: %w", err)
	}

	timer := time.NewTimer(RequestTimeout)
	defer timer.Stop()

	select {
	case resp := <-p.resultCh:
		if resp.Error != "" {
			return nil, errors.New(resp.Error)
		}
		return resp.Result, nil
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ErrRequestTimeout
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Typed wrappers, each unwrapping the uniform response envelope.

func (c *Client) GetPrices(ctx context.Context, coin string) (map[string]string, error) {
	var params any
	if coin != "" {
		params = map[string]string{"coin": coin}
	}
	raw, err := c.Call(ctx, "getPrices", params)
	if err != nil {
		return nil, err
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("ipc: decode getPrices result: %w", err)
	}
	return out, nil
}

func (c *Client) GetAssetCtxs(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "getAssetCtxs", nil)
}

func (c *Client) GetPerpMeta(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "getPerpMeta", nil)
}

func (c *Client) GetStatus(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "getStatus", nil)
}

func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.Call(ctx, "shutdown", nil)
	return err
}
