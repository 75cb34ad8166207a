// Package watcher implements C7: reusable, cancellable push-driven
// update streams, each a two-method object (start, stop) that delivers
// normalized payloads to an onUpdate sink and surfaces failures to an
// onError sink. Every variant shares the same new→started→stopped
// state machine and the same teardown discipline: unsubscribe first,
// then close, swallowing every error along the way.
package watcher

import (
	"sync"

	"github.com/rs/zerolog"
)

type state int

const (
	stateNew state = iota
	stateStarted
	stateStopped
)

// lifecycle is embedded by every watcher variant to enforce §4.7's
// state machine: start only succeeds from new, stop only tears down
// once, and stop is always safe to call, any number of times, in any
// order relative to start.
type lifecycle struct {
	mu    sync.Mutex
	state state
}

// beginStart returns true the first time it's called for this watcher.
// A false return means Start has already run (or Stop has) and the
// caller should treat its own Start as a no-op.
func (l *lifecycle) beginStart() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != stateNew {
		return false
	}
	l.state = stateStarted
	return true
}

// beginStop returns true the first time it's called after a successful
// start. Every later or earlier call returns false so teardown runs
// exactly once.
func (l *lifecycle) beginStop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != stateStarted {
		l.state = stateStopped
		return false
	}
	l.state = stateStopped
	return true
}

// recoverAndLog isolates a sink panic from the transport's delivery
// goroutine, matching the subscription manager's handler isolation.
func recoverAndLog(log zerolog.Logger, sink string) {
	if r := recover(); r != nil {
		log.Error().Str("sink", sink).Interface("panic", r).Msg("watcher sink panicked, isolated")
	}
}
