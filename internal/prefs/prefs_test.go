package prefs

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abelbrown/redview/internal/otel"
)

func newBus() (*Bus, *MemoryBackend) {
	mem := NewMemoryBackend()
	return NewBus(mem, nil), mem
}

func TestReadDefault(t *testing.T) {
	b, _ := newBus()
	if got := Read(b, KeyExpandMedia, DefaultExpandMedia); got != true {
		t.Errorf("expected default true, got %v", got)
	}
	if got := Read(b, KeyFavorites, DefaultFavorites); len(got) != 0 {
		t.Errorf("expected no favorites, got %v", got)
	}
}

func TestWriteThenRead(t *testing.T) {
	b, _ := newBus()
	favs := []string{"aww", "golang"}
	if err := Write(b, KeyFavorites, favs); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got := Read(b, KeyFavorites, DefaultFavorites)
	if diff := cmp.Diff(favs, got); diff != "" {
		t.Errorf("favorites mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandMediaVisibleToSecondConsumer(t *testing.T) {
	b, _ := newBus()

	var seen []bool
	feed := Bind(b, KeyExpandMedia, DefaultExpandMedia, nil)
	thread := Bind(b, KeyExpandMedia, DefaultExpandMedia, func(v bool) { seen = append(seen, v) })
	defer feed.Close()
	defer thread.Close()

	if !feed.Get() || !thread.Get() {
		t.Fatal("both consumers should start with the default")
	}

	if err := feed.Set(false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Delivery is synchronous: no waiting.
	if thread.Get() != false {
		t.Error("second consumer did not see the write")
	}
	if feed.Get() != false {
		t.Error("writer did not see its own write")
	}
	if diff := cmp.Diff([]bool{false}, seen); diff != "" {
		t.Errorf("callback values (-want +got):\n%s", diff)
	}

	// A consumer mounted later reads the stored value.
	late := Bind(b, KeyExpandMedia, DefaultExpandMedia, nil)
	defer late.Close()
	if late.Get() != false {
		t.Error("late consumer should read stored false")
	}
}

func TestClosedHandleNotInvoked(t *testing.T) {
	b, _ := newBus()
	calls := 0
	h := Bind(b, KeyLiveRefresh, DefaultLiveRefresh, func(bool) { calls++ })
	other := Bind(b, KeyLiveRefresh, DefaultLiveRefresh, nil)
	defer other.Close()

	h.Close()
	h.Close()

	if err := other.Set(true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("closed handle invoked %d times", calls)
	}
	if h.Get() != false {
		t.Error("closed handle value changed")
	}
}

func TestCloseEmptiesRegistry(t *testing.T) {
	b, _ := newBus()
	h1 := Bind(b, KeyFavorites, DefaultFavorites, nil)
	h2 := Bind(b, KeyFavorites, DefaultFavorites, nil)
	h3 := Bind(b, KeyExpandMedia, DefaultExpandMedia, nil)

	if n := b.Subscribers(KeyFavorites); n != 2 {
		t.Errorf("expected 2 subscribers, got %d", n)
	}
	h1.Close()
	if n := b.Subscribers(KeyFavorites); n != 1 {
		t.Errorf("expected 1 subscriber, got %d", n)
	}
	// Closing one key's consumer leaves the other key alone.
	if n := b.Subscribers(KeyExpandMedia); n != 1 {
		t.Errorf("expandMedia subscribers = %d, want 1", n)
	}

	h2.Close()
	h3.Close()
	if keys := b.Keys(); len(keys) != 0 {
		t.Errorf("expected empty registry, got %v", keys)
	}
}

func TestBadJSONFallsBackToDefault(t *testing.T) {
	ring := otel.NewRingBuffer(16)
	events := otel.NewNullLogger()
	events.SetRingBuffer(ring)

	mem := NewMemoryBackend()
	mem.Set(KeyExpandMedia, []byte(`"yes please"`))
	b := NewBus(mem, events)

	if got := Read(b, KeyExpandMedia, true); got != true {
		t.Errorf("expected default on decode failure, got %v", got)
	}
	h := Bind(b, KeyExpandMedia, true, nil)
	defer h.Close()
	if !h.Get() {
		t.Error("bound handle should fall back to default")
	}

	events.Close()
	if n := ring.Stats()[otel.KindPrefDecodeError]; n != 2 {
		t.Errorf("expected 2 decode errors logged, got %d", n)
	}
}

func TestBackendErrors(t *testing.T) {
	b, mem := newBus()
	calls := 0
	h := Bind(b, KeyLiveRefresh, false, func(bool) { calls++ })
	defer h.Close()

	mem.FailWith(errors.New("disk full"))
	if err := h.Set(true); err == nil {
		t.Fatal("expected write error")
	}
	if calls != 0 || h.Get() {
		t.Error("failed write must not notify consumers")
	}
	if got := Read(b, KeyLiveRefresh, false); got {
		t.Error("read error should return the default")
	}

	mem.FailWith(nil)
	if err := h.Set(true); err != nil {
		t.Fatalf("Set after recovery failed: %v", err)
	}
	if !h.Get() {
		t.Error("expected true after recovery")
	}
}

func TestConcurrentWritersConverge(t *testing.T) {
	b, mem := newBus()
	h := Bind(b, "counter", 0, nil)
	defer h.Close()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := Write(b, "counter", n); err != nil {
				t.Errorf("Write %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	raw, _, _ := mem.Get("counter")
	if want := fmt.Sprint(h.Get()); string(raw) != want {
		t.Errorf("consumer holds %s, store holds %s", want, raw)
	}
}

func TestCallbackMayWrite(t *testing.T) {
	b, _ := newBus()
	var mirror *Handle[bool]
	src := Bind(b, KeyExpandMedia, true, func(v bool) {
		// Mirrors into another key from inside a callback.
		Write(b, "expandMediaCopy", v)
	})
	defer src.Close()
	mirror = Bind(b, "expandMediaCopy", true, nil)
	defer mirror.Close()

	src.Set(false)
	if mirror.Get() != false {
		t.Error("write from callback not delivered")
	}
}

func TestToggleFavorite(t *testing.T) {
	tests := []struct {
		name string
		favs []string
		c    string
		want []string
	}{
		{"add", []string{"aww"}, "golang", []string{"aww", "golang"}},
		{"remove", []string{"aww", "golang"}, "aww", []string{"golang"}},
		{"case insensitive", []string{"AskReddit"}, "askreddit", []string{}},
		{"blank", []string{"aww"}, "  ", []string{"aww"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := append([]string(nil), tt.favs...)
			got := ToggleFavorite(tt.favs, tt.c)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ToggleFavorite (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(orig, tt.favs); diff != "" {
				t.Error("input slice modified")
			}
		})
	}
	if !IsFavorite([]string{"Aww"}, "aww") || IsFavorite(nil, "aww") {
		t.Error("IsFavorite wrong")
	}
}
