// Package coord runs the live refresh checks for redview.
package coord

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/redview/internal/listing"
	"github.com/abelbrown/redview/internal/otel"
	"github.com/abelbrown/redview/internal/prefs"
	"github.com/abelbrown/redview/internal/route"
	"github.com/abelbrown/redview/internal/ui"
)

// DefaultInterval is the time between refresh checks.
const DefaultInterval = 2 * time.Minute

// checkTimeout is the timeout for each individual head fetch.
const checkTimeout = 30 * time.Second

// maxConcurrentChecks limits parallel head fetches.
const maxConcurrentChecks = 4

// fetcher interface for dependency injection (testing).
type fetcher interface {
	Listing(ctx context.Context, url string) (listing.Page, error)
}

// sender receives results. *tea.Program implements it.
type sender interface {
	Send(msg tea.Msg)
}

// Coordinator polls the first page of the current query and of every
// favorite community while the liveRefresh preference is on.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	fetcher  fetcher
	base     string
	interval time.Duration
	events   *otel.Logger

	live *prefs.Handle[bool]
	favs *prefs.Handle[[]string]
	kick chan struct{}

	mu       sync.Mutex
	current  *listing.Query
	marker   string            // key of the newest item the view has loaded
	baseline map[string]string // route -> newest key seen for favorites

	wg sync.WaitGroup
}

// New creates a Coordinator. A zero interval means DefaultInterval.
func New(f fetcher, bus *prefs.Bus, base string, interval time.Duration, events *otel.Logger) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Coordinator{
		fetcher:  f,
		base:     base,
		interval: interval,
		events:   events,
		kick:     make(chan struct{}, 1),
		baseline: make(map[string]string),
	}
	c.live = prefs.Bind(bus, prefs.KeyLiveRefresh, prefs.DefaultLiveRefresh, func(on bool) {
		if on {
			c.poke()
		}
	})
	c.favs = prefs.Bind(bus, prefs.KeyFavorites, prefs.DefaultFavorites, nil)
	return c
}

// Watch sets the query the view is showing and the key of its newest item.
func (c *Coordinator) Watch(q listing.Query, newest string) {
	q = q.Normalized()
	c.mu.Lock()
	c.current = &q
	c.marker = newest
	c.mu.Unlock()
}

func (c *Coordinator) poke() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Start begins background checking. Call with a cancellable context.
// Checks run every interval, and immediately when live refresh is
// switched on.
func (c *Coordinator) Start(ctx context.Context, program sender) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-c.kick:
			}
			if c.live.Get() {
				c.checkAll(ctx, program)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after canceling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close releases the preference bindings.
func (c *Coordinator) Close() {
	c.live.Close()
	c.favs.Close()
}

type target struct {
	query    listing.Query
	marker   string
	favorite bool
}

func (c *Coordinator) targets() []target {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	var ts []target
	if c.current != nil {
		ts = append(ts, target{query: *c.current, marker: c.marker})
		seen[route.Format(*c.current)] = true
	}
	for _, name := range c.favs.Get() {
		q := listing.Query{Community: name}.Normalized()
		r := route.Format(q)
		if seen[r] {
			continue
		}
		seen[r] = true
		ts = append(ts, target{query: q, marker: c.baseline[r], favorite: true})
	}
	return ts
}

// checkAll checks every target in parallel.
// Sends ui.HeadChecked messages to the program (order non-deterministic).
func (c *Coordinator) checkAll(ctx context.Context, program sender) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentChecks)

	for _, t := range c.targets() {
		t := t
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			c.check(ctx, t, program)
			return nil // errors are reported per target
		})
	}

	_ = g.Wait()
}

func (c *Coordinator) check(ctx context.Context, t target, program sender) {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	r := route.Format(t.query)
	start := time.Now()
	page, err := c.fetcher.Listing(checkCtx, listing.FirstPageURL(c.base, t.query))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindRefreshError, Comp: "coord", Route: r, Status: listing.StatusOf(err), Err: err.Error()})
		send(program, ui.HeadChecked{Query: t.query, Err: err})
		return
	}

	newest := Newest(page.Items)
	fresh := 0
	if t.marker != "" {
		fresh = CountFresh(page.Items, t.marker)
	}
	if t.favorite {
		c.mu.Lock()
		if _, ok := c.baseline[r]; !ok {
			c.baseline[r] = newest
		}
		c.mu.Unlock()
	}

	c.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindRefreshCheck, Comp: "coord", Route: r, Count: fresh, Dur: time.Since(start)})
	send(program, ui.HeadChecked{Query: t.query, Fresh: fresh, Newest: newest, Favorite: t.favorite})
}

// Seen marks the favorite community as caught up to newest, so later
// checks count from there.
func (c *Coordinator) Seen(q listing.Query, newest string) {
	c.mu.Lock()
	c.baseline[route.Format(q.Normalized())] = newest
	c.mu.Unlock()
}

func send(program sender, msg tea.Msg) {
	if program != nil {
		program.Send(msg)
	}
}

// Newest returns the key of the first non-stickied item.
func Newest(items []listing.Item) string {
	for _, it := range items {
		if !it.Stickied {
			return it.Key()
		}
	}
	return ""
}

// CountFresh counts the non-stickied items listed before marker. When
// marker is not on the page every non-stickied item counts.
func CountFresh(items []listing.Item, marker string) int {
	n := 0
	for _, it := range items {
		if it.Stickied {
			continue
		}
		if it.Key() == marker {
			return n
		}
		n++
	}
	return n
}
