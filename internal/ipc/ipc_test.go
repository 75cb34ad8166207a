package ipc

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisling-dev/hyperliquid-cli/internal/cache"
	"github.com/chrisling-dev/hyperliquid-cli/internal/model"
)

type alwaysConnected bool

func (a alwaysConnected) Connected() bool { return bool(a) }

// startTestServer spins up a Server on a real unix-socket net.Listener
// at a temp path, returning the server, the listener (callers close
// both), and the socket path to dial.
func startTestServer(t *testing.T, c *cache.Cache, testnet bool, startedAt time.Time, connected bool) (*Server, net.Listener, string) {
	t.Helper()
	dir := t.TempDir()
	sockPath := dir + "/server.sock"
	l, err := net.Listen("unix", sockPath)
	require.NoError(t, err)

	srv := NewServer(c, alwaysConnected(connected), testnet, startedAt, zerolog.Nop(), nil)
	go func() { _ = srv.Serve(l) }()
	return srv, l, sockPath
}

func TestGetPrices_EmptyCache(t *testing.T) {
	c := cache.New()
	srv, l, sock := startTestServer(t, c, false, time.Now(), true)
	defer srv.Close()
	defer l.Close()

	cl, err := Dial(sock)
	require.NoError(t, err)
	defer cl.Close()

	_, err = cl.GetPrices(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "No data available", err.Error())
}

func TestGetPrices_ByCoinCaseInsensitive(t *testing.T) {
	c := cache.New()
	c.PutMids(model.Mids{"BTC": "50000", "ETH": "3000"})
	srv, l, sock := startTestServer(t, c, false, time.Now(), true)
	defer srv.Close()
	defer l.Close()

	cl, err := Dial(sock)
	require.NoError(t, err)
	defer cl.Close()

	result, err := cl.GetPrices(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"BTC": "50000"}, result)
}

func TestGetPrices_UnknownCoin(t *testing.T) {
	c := cache.New()
	c.PutMids(model.Mids{"BTC": "50000"})
	srv, l, sock := startTestServer(t, c, false, time.Now(), true)
	defer srv.Close()
	defer l.Close()

	cl, err := Dial(sock)
	require.NoError(t, err)
	defer cl.Close()

	_, err = cl.GetPrices(context.Background(), "UNKNOWN")
	require.Error(t, err)
	assert.Equal(t, "Coin not found: UNKNOWN", err.Error())
}

func TestGetStatus(t *testing.T) {
	c := cache.New()
	c.PutMids(model.Mids{"BTC": "50000"})
	startedAt := time.Now().Add(-60 * time.Second)
	srv, l, sock := startTestServer(t, c, true, startedAt, true)
	defer srv.Close()
	defer l.Close()

	cl, err := Dial(sock)
	require.NoError(t, err)
	defer cl.Close()

	raw, err := cl.GetStatus(context.Background())
	require.NoError(t, err)

	var status statusResult
	require.NoError(t, json.Unmarshal(raw, &status))

	assert.True(t, status.Running)
	assert.True(t, status.Testnet)
	assert.True(t, status.Connected)
	assert.GreaterOrEqual(t, status.Uptime, int64(60000))
	assert.True(t, status.Cache.HasMids)
	assert.False(t, status.Cache.HasAssetCtxs)
}

func TestShutdown_RejectsSubsequentRequests(t *testing.T) {
	c := cache.New()
	c.PutMids(model.Mids{"BTC": "50000"})
	srv, l, sock := startTestServer(t, c, false, time.Now(), true)
	defer srv.Close()
	defer l.Close()

	cl, err := Dial(sock)
	require.NoError(t, err)
	defer cl.Close()

	require.NoError(t, cl.Shutdown(context.Background()))

	_, err = cl.GetPrices(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "Connection closed", err.Error())
}

func TestUnknownMethod(t *testing.T) {
	c := cache.New()
	srv, l, sock := startTestServer(t, c, false, time.Now(), true)
	defer srv.Close()
	defer l.Close()

	cl, err := Dial(sock)
	require.NoError(t, err)
	defer cl.Close()

	_, err = cl.Call(context.Background(), "bogus", nil)
	require.Error(t, err)
	assert.Equal(t, "Unknown method: bogus", err.Error())
}

func TestResponseIDMatchesRequestID(t *testing.T) {
	c := cache.New()
	c.PutMids(model.Mids{"BTC": "1"})
	srv, l, sock := startTestServer(t, c, false, time.Now(), true)
	defer srv.Close()
	defer l.Close()

	cl, err := Dial(sock)
	require.NoError(t, err)
	defer cl.Close()

	raw, err := cl.Call(context.Background(), "getPrices", nil)
	require.NoError(t, err)
	assert.NotNil(t, raw)
}
