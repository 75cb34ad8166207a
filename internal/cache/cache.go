// Package cache implements the daemon's in-memory mirror of market data:
// three fixed, independently-locked slots with atomic-replace semantics.
// There is no eviction and no capacity bound — unlike a general-purpose
// TTL cache, a slot is either absent or present-with-timestamp forever.
package cache

import (
	"sync"
	"time"

	"github.com/chrisling-dev/hyperliquid-cli/internal/model"
)

// Slot names one of the three logical feeds the daemon mirrors.
type Slot int

const (
	SlotMids Slot = iota
	SlotAssetCtxs
	SlotPerpMetas

	slotCount
)

func (s Slot) String() string {
	switch s {
	case SlotMids:
		return "mids"
	case SlotAssetCtxs:
		return "assetCtxs"
	case SlotPerpMetas:
		return "perpMetas"
	default:
		return "unknown"
	}
}

// entry holds one slot's payload behind its own lock so writes on one
// slot never block reads or writes on another.
type entry struct {
	mu        sync.RWMutex
	present   bool
	payload   any
	updatedAt time.Time
}

func (e *entry) put(payload any) {
	e.mu.Lock()
	e.payload = payload
	e.present = true
	e.updatedAt = time.Now()
	e.mu.Unlock()
}

func (e *entry) get() (any, time.Time, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.payload, e.updatedAt, e.present
}

func (e *entry) status() SlotStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.present {
		return SlotStatus{Present: false}
	}
	return SlotStatus{Present: true, AgeMs: time.Since(e.updatedAt).Milliseconds()}
}

// SlotStatus is the per-slot summary returned by Status.
type SlotStatus struct {
	Present bool  `json:"present"`
	AgeMs   int64 `json:"ageMs,omitempty"` // only meaningful when Present
}

// Cache is the daemon's concurrency-safe mirror. Zero value is not
// usable; construct with New. Writers are C2 (the subscription
// manager); readers are C3 (the IPC server).
type Cache struct {
	slots [slotCount]*entry
}

// New returns an empty cache — all slots absent.
func New() *Cache {
	c := &Cache{}
	for i := range c.slots {
		c.slots[i] = &entry{}
	}
	return c
}

// Put replaces slot's payload and stamps it with the current time.
func (c *Cache) Put(slot Slot, payload any) {
	c.slots[slot].put(payload)
}

// Get returns slot's payload and update time, or ok=false if the slot
// has never been populated.
func (c *Cache) Get(slot Slot) (payload any, updatedAt time.Time, ok bool) {
	return c.slots[slot].get()
}

// Status returns a point-in-time summary of every slot.
func (c *Cache) Status() map[string]SlotStatus {
	out := make(map[string]SlotStatus, slotCount)
	for i, e := range c.slots {
		out[Slot(i).String()] = e.status()
	}
	return out
}

// Typed convenience wrappers, used by C3 and C2 so callers never type-
// assert at the call site.

func (c *Cache) PutMids(m model.Mids) { c.Put(SlotMids, m) }

func (c *Cache) GetMids() (model.Mids, time.Time, bool) {
	v, t, ok := c.Get(SlotMids)
	if !ok {
		return nil, t, false
	}
	return v.(model.Mids), t, true
}

func (c *Cache) PutAssetCtxs(ctxs []model.DexAssetContexts) { c.Put(SlotAssetCtxs, ctxs) }

func (c *Cache) GetAssetCtxs() ([]model.DexAssetContexts, time.Time, bool) {
	v, t, ok := c.Get(SlotAssetCtxs)
	if !ok {
		return nil, t, false
	}
	return v.([]model.DexAssetContexts), t, true
}

func (c *Cache) PutPerpMetas(metas []model.PerpMeta) { c.Put(SlotPerpMetas, metas) }

func (c *Cache) GetPerpMetas() ([]model.PerpMeta, time.Time, bool) {
	v, t, ok := c.Get(SlotPerpMetas)
	if !ok {
		return nil, t, false
	}
	return v.([]model.PerpMeta), t, true
}
