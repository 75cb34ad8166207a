package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrders_PullsInitialSnapshotAtStart(t *testing.T) {
	transport := newFakeTransport()
	info := &fakeInfo{openOrders: json.RawMessage(`[{"oid":1}]`)}

	var got json.RawMessage
	w := NewOrders(transport, info, "0xabc", zerolog.Nop(), func(o json.RawMessage) { got = o }, func(error) {})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	assert.JSONEq(t, `[{"oid":1}]`, string(got))
	assert.Equal(t, 1, info.openOrdersCall)
}

func TestOrders_PushTriggersFreshPull(t *testing.T) {
	transport := newFakeTransport()
	info := &fakeInfo{openOrders: json.RawMessage(`[]`)}

	updates := 0
	w := NewOrders(transport, info, "0xabc", zerolog.Nop(), func(json.RawMessage) { updates++ }, func(error) {})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	transport.orderSink(json.RawMessage(`{"delta":true}`))

	assert.Equal(t, 2, updates) // initial snapshot + one push-triggered pull
	assert.Equal(t, 2, info.openOrdersCall)
}

func TestOrders_PullFailure_SurfacedButSubscriptionSurvives(t *testing.T) {
	transport := newFakeTransport()
	info := &fakeInfo{openOrdersErr: errors.New("boom")}

	var gotErr error
	w := NewOrders(transport, info, "0xabc", zerolog.Nop(), func(json.RawMessage) {}, func(e error) { gotErr = e })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "boom")
	assert.False(t, transport.closed)
}
