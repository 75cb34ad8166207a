package watcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition_ForwardsRawStateEvents(t *testing.T) {
	transport := newFakeTransport()
	var got json.RawMessage
	w := NewPosition(transport, "0xabc", zerolog.Nop(), func(s json.RawMessage) { got = s }, func(error) {})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	transport.chanSink(json.RawMessage(`{"positions":[]}`))

	assert.JSONEq(t, `{"positions":[]}`, string(got))
}

func TestPosition_Stop_NeverRaises(t *testing.T) {
	transport := newFakeTransport()
	w := NewPosition(transport, "0xabc", zerolog.Nop(), func(json.RawMessage) {}, func(error) {})

	assert.NotPanics(t, func() {
		w.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = w.Start(ctx)
		w.Stop()
	})
}
