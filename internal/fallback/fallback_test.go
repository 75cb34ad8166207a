package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisling-dev/hyperliquid-cli/internal/exchange"
	"github.com/chrisling-dev/hyperliquid-cli/internal/model"
)

type fakeDaemonConn struct {
	mids    map[string]string
	metaRaw json.RawMessage
	ctxRaw  json.RawMessage
	getErr  error
	closed  *int32
}

func (f *fakeDaemonConn) GetPrices(ctx context.Context, coin string) (map[string]string, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.mids, nil
}
func (f *fakeDaemonConn) GetAssetCtxs(ctx context.Context) (json.RawMessage, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.ctxRaw, nil
}
func (f *fakeDaemonConn) GetPerpMeta(ctx context.Context) (json.RawMessage, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.metaRaw, nil
}
func (f *fakeDaemonConn) Close() error {
	atomic.AddInt32(f.closed, 1)
	return nil
}

type fakeDialer struct {
	conn DaemonConn
}

func (d *fakeDialer) TryConnect() DaemonConn { return d.conn }

type nilDialer struct{}

func (nilDialer) TryConnect() DaemonConn { return nil }

type fakeInfo struct {
	allMidsCalls          int32
	allPerpMetasCalls     int32
	metaAndAssetCtxsCalls int32
	mids                  model.Mids
	ctxs                  []model.DexAssetContexts
	err                   error
}

func (f *fakeInfo) AllPerpMetas(ctx context.Context) ([]model.PerpMeta, error) {
	atomic.AddInt32(&f.allPerpMetasCalls, 1)
	return nil, nil
}
func (f *fakeInfo) MetaAndAssetCtxs(ctx context.Context) ([]model.DexAssetContexts, error) {
	atomic.AddInt32(&f.metaAndAssetCtxsCalls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.ctxs, nil
}
func (f *fakeInfo) AllMids(ctx context.Context) (model.Mids, error) {
	atomic.AddInt32(&f.allMidsCalls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.mids, nil
}
func (f *fakeInfo) SpotMeta(ctx context.Context) (json.RawMessage, error) { return nil, nil }
func (f *fakeInfo) ClearinghouseState(ctx context.Context, user string) (json.RawMessage, error) {
	return nil, nil
}
func (f *fakeInfo) SpotClearinghouseState(ctx context.Context, user string) (json.RawMessage, error) {
	return nil, nil
}
func (f *fakeInfo) OpenOrders(ctx context.Context, user string) (json.RawMessage, error) {
	return nil, nil
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

func TestGetPrices_NoSocket_CallsUpstreamOnce(t *testing.T) {
	info := &fakeInfo{mids: model.Mids{"BTC": "50000"}}
	o := New(nilDialer{}, info)

	result, err := o.GetPrices(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"BTC": "50000"}, result)
	assert.EqualValues(t, 1, info.allMidsCalls)
}

func TestGetPrices_DaemonRefusing_FallsBackExactlyOnce(t *testing.T) {
	closed := int32(0)
	conn := &fakeDaemonConn{getErr: errors.New("No data available"), closed: &closed}
	info := &fakeInfo{mids: model.Mids{"ETH": "3000"}}
	o := New(&fakeDialer{conn: conn}, info)

	result, err := o.GetPrices(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ETH": "3000"}, result)
	assert.EqualValues(t, 1, info.allMidsCalls)
	assert.EqualValues(t, 1, atomic.LoadInt32(&closed))
}

func TestGetPrices_DaemonHealthy_NeverCallsUpstream(t *testing.T) {
	closed := int32(0)
	conn := &fakeDaemonConn{mids: map[string]string{"BTC": "50000"}, closed: &closed}
	info := &fakeInfo{mids: model.Mids{"SHOULD": "NOTUSE"}}
	o := New(&fakeDialer{conn: conn}, info)

	result, err := o.GetPrices(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"BTC": "50000"}, result)
	assert.EqualValues(t, 0, info.allMidsCalls)
	assert.EqualValues(t, 1, atomic.LoadInt32(&closed))
}

func TestGetPrices_UnknownCoinFromUpstream(t *testing.T) {
	info := &fakeInfo{mids: model.Mids{"BTC": "50000"}}
	o := New(nilDialer{}, info)

	_, err := o.GetPrices(context.Background(), "zzz")
	require.Error(t, err)
	assert.Equal(t, "Coin not found: ZZZ", err.Error())
}

func TestGetMetaAndAssetCtxs_NoSocket_CallsUpstreamOnce(t *testing.T) {
	info := &fakeInfo{ctxs: []model.DexAssetContexts{{Dex: "", Ctxs: []model.AssetContext{{Coin: "BTC"}}}}}
	o := New(nilDialer{}, info)

	metas, ctxs, err := o.GetMetaAndAssetCtxs(context.Background())
	require.NoError(t, err)
	assert.Nil(t, metas)
	assert.Equal(t, info.ctxs, ctxs)
	assert.EqualValues(t, 1, atomic.LoadInt32(&info.metaAndAssetCtxsCalls))
	assert.EqualValues(t, 0, atomic.LoadInt32(&info.allPerpMetasCalls))
}

func TestGetMetaAndAssetCtxs_DaemonHealthy_NeverCallsUpstream(t *testing.T) {
	closed := int32(0)
	conn := &fakeDaemonConn{
		closed:  &closed,
		metaRaw: []byte(`[{"symbol":"BTC","sizeDecimals":3,"maxLeverage":20,"isolatedOnly":false}]`),
		ctxRaw:  []byte(`[{"dex":"","ctxs":[{"coin":"BTC","dayNtlVlm":"1","funding":"0","markPx":"50000","openInterest":"1","oraclePx":"50000","prevDayPx":"49000","dayBaseVlm":"1"}]}]`),
	}
	info := &fakeInfo{}
	o := New(&fakeDialer{conn: conn}, info)

	metas, ctxs, err := o.GetMetaAndAssetCtxs(context.Background())
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "BTC", metas[0].Symbol)
	require.Len(t, ctxs, 1)
	assert.EqualValues(t, 0, atomic.LoadInt32(&info.metaAndAssetCtxsCalls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&closed))
}
