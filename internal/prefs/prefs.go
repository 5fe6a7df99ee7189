// Package prefs keeps view preferences in a durable backend and keeps
// every live consumer of a key in step with it.
//
// A Bus is created once by the application root. Consumers either read a
// value once (Read) or bind to a key (Bind) and get called back whenever
// any consumer writes it. Values are stored as JSON.
package prefs

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/abelbrown/redview/internal/logging"
	"github.com/abelbrown/redview/internal/otel"
)

// Well-known keys.
const (
	KeyFavorites   = "favorites"
	KeyExpandMedia = "expandMedia"
	KeyLiveRefresh = "liveRefresh"
)

// Defaults for the well-known keys.
var (
	DefaultFavorites   = []string{}
	DefaultExpandMedia = true
	DefaultLiveRefresh = false
)

// Backend is durable key/value storage. *store.Store implements it.
type Backend interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// Bus fans writes out to every bound consumer of a key.
// Thread-safety: safe for concurrent use; callbacks run without the lock held.
type Bus struct {
	backend Backend
	events  *otel.Logger

	mu   sync.Mutex
	subs map[string]map[uuid.UUID]func([]byte, uint64)
	seq  map[string]uint64 // per-key write counter
}

// NewBus creates a Bus over backend.
func NewBus(backend Backend, events *otel.Logger) *Bus {
	return &Bus{
		backend: backend,
		events:  events,
		subs:    make(map[string]map[uuid.UUID]func([]byte, uint64)),
		seq:     make(map[string]uint64),
	}
}

// Read returns the stored value for key, or def when the key is missing,
// unreadable or does not decode as T.
func Read[T any](b *Bus, key string, def T) T {
	raw, ok, err := b.backend.Get(key)
	if err != nil {
		b.decodeFailed(key, err)
		return def
	}
	if !ok {
		return def
	}
	return decode(b, key, raw, def)
}

func decode[T any](b *Bus, key string, raw []byte, def T) T {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		b.decodeFailed(key, err)
		return def
	}
	return v
}

// Write stores v under key and then synchronously notifies every bound
// consumer of that key, including the writer's own handle.
func Write[T any](b *Bus, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	// The store and the sequence number move together so concurrent
	// writers cannot leave a consumer holding an older value than the store.
	b.mu.Lock()
	if err := b.backend.Set(key, raw); err != nil {
		b.mu.Unlock()
		b.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindStoreError, Comp: "prefs", Key: key, Err: err.Error()})
		return fmt.Errorf("store %s: %w", key, err)
	}
	b.seq[key]++
	seq := b.seq[key]
	fns := make([]func([]byte, uint64), 0, len(b.subs[key]))
	for _, fn := range b.subs[key] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	b.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPrefWrite, Comp: "prefs", Key: key, Count: len(fns), Msg: string(raw)})
	for _, fn := range fns {
		fn(raw, seq)
	}
	return nil
}

// subscribe reads key and registers fn in one step, so no write can fall
// between the initial value and the first notification.
func (b *Bus) subscribe(key string, fn func([]byte, uint64)) (raw []byte, found bool, seq uint64, id uuid.UUID, err error) {
	id = uuid.New()
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, found, err = b.backend.Get(key)
	m, ok := b.subs[key]
	if !ok {
		m = make(map[uuid.UUID]func([]byte, uint64))
		b.subs[key] = m
	}
	m[id] = fn
	return raw, found, b.seq[key], id, err
}

func (b *Bus) unsubscribe(key string, id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.subs[key]
	if !ok {
		return
	}
	delete(m, id)
	if len(m) == 0 {
		delete(b.subs, key)
	}
}

// Subscribers returns how many consumers are bound to key.
func (b *Bus) Subscribers(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[key])
}

// Keys returns the keys that currently have bound consumers, sorted.
func (b *Bus) Keys() []string {
	b.mu.Lock()
	keys := make([]string, 0, len(b.subs))
	for k := range b.subs {
		keys = append(keys, k)
	}
	b.mu.Unlock()
	sort.Strings(keys)
	return keys
}

func (b *Bus) decodeFailed(key string, err error) {
	logging.Warn("preference unreadable, using default", "key", key, "err", err)
	b.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindPrefDecodeError, Comp: "prefs", Key: key, Err: err.Error()})
}

// Handle is one consumer's binding to a key.
// Thread-safety: safe for concurrent use.
type Handle[T any] struct {
	bus      *Bus
	key      string
	def      T
	id       uuid.UUID
	onChange func(T)

	mu     sync.Mutex
	value  T
	seq    uint64
	closed bool
}

// Bind reads key and registers onChange (which may be nil) to run after
// every subsequent write of key until Close.
func Bind[T any](b *Bus, key string, def T, onChange func(T)) *Handle[T] {
	h := &Handle[T]{bus: b, key: key, def: def, onChange: onChange, value: def}
	raw, found, seq, id, err := b.subscribe(key, h.deliver)
	h.id = id

	v := def
	switch {
	case err != nil:
		b.decodeFailed(key, err)
	case found:
		v = decode(b, key, raw, def)
	}

	h.mu.Lock()
	if h.seq <= seq { // no write delivered since subscribe
		h.value = v
		h.seq = seq
	}
	h.mu.Unlock()
	return h
}

func (h *Handle[T]) deliver(raw []byte, seq uint64) {
	v := decode(h.bus, h.key, raw, h.def)
	h.mu.Lock()
	if h.closed || seq <= h.seq {
		h.mu.Unlock()
		return
	}
	h.value = v
	h.seq = seq
	h.mu.Unlock()
	if h.onChange != nil {
		h.onChange(v)
	}
}

// Get returns the consumer's current value.
func (h *Handle[T]) Get() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value
}

// Set writes v through the bus. Every bound consumer, this one included,
// sees it before Set returns.
func (h *Handle[T]) Set(v T) error {
	return Write(h.bus, h.key, v)
}

// Key returns the bound key.
func (h *Handle[T]) Key() string { return h.key }

// Close unbinds the handle. Later writes never reach its callback.
// Safe to call more than once.
func (h *Handle[T]) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()
	h.bus.unsubscribe(h.key, h.id)
}
