// Package pager grows a listing one page at a time.
//
// A Pager is a sequential pipeline stage: it holds the cursor of the
// last page it accepted, hands out at most one outstanding Request, and
// refuses results that do not belong to that request. Page i is never
// requested before page i-1 has resolved with a continuation cursor.
//
// The Pager does no I/O and is not safe for concurrent use. The UI calls
// it from its update loop and performs the fetch for each Request in a
// command; Walk drives it synchronously for scripted use.
package pager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/abelbrown/redview/internal/listing"
	"github.com/abelbrown/redview/internal/otel"
	"github.com/abelbrown/redview/internal/route"
)

// State is where the pager is in its lifecycle.
type State int

const (
	Idle     State = iota // nothing outstanding; Grow may request more
	Loading               // a Request is out
	Retrying              // waiting for the retry delay to elapse
	End                   // last page had no continuation cursor
	NotFound              // upstream answered 404
	Failed                // retries exhausted or a permanent error
	Closed                // owner unmounted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Retrying:
		return "retrying"
	case End:
		return "end"
	case NotFound:
		return "not found"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether the pager will never request another page
// for the current query.
func (s State) Terminal() bool {
	return s == End || s == NotFound || s == Failed || s == Closed
}

var (
	// ErrStale is returned for a result issued before the last Reset.
	ErrStale = errors.New("pager: result belongs to a previous query")
	// ErrOutOfOrder is returned for a result that is not the outstanding request.
	ErrOutOfOrder = errors.New("pager: result for a page that was not requested")
	// ErrClosed is returned once the pager has been closed.
	ErrClosed = errors.New("pager: closed")
)

// Request is one page fetch handed out by Next.
type Request struct {
	Gen     uint64
	Index   int
	URL     string
	Attempt int

	ctx context.Context
}

// Context is cancelled when the pager is reset or closed.
func (r Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Result is the outcome of performing a Request.
type Result struct {
	Request Request
	Page    listing.Page
	Err     error
	Dur     time.Duration
}

// Outcome tells the caller what Resolve did.
type Outcome struct {
	Appended bool
	// RetryIn is set when the caller should call Retry after this delay.
	RetryIn time.Duration
}

// Pager holds the feed state for one query.
type Pager struct {
	base   string
	query  listing.Query
	policy RetryPolicy
	events *otel.Logger

	pages   []listing.Page
	size    int // pages requested by the view
	gen     uint64
	state   State
	pending *Request
	attempt int
	retry   backoff.BackOff // delays for the current failure streak
	err     error

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Pager for q with one page requested.
func New(ctx context.Context, base string, q listing.Query, policy RetryPolicy) *Pager {
	p := &Pager{base: base, policy: policy, parent: ctx}
	p.reset(q.Normalized())
	return p
}

// SetEvents attaches an event log. Nil disables event recording.
func (p *Pager) SetEvents(l *otel.Logger) {
	p.events = l
}

// Reset discards every page and starts over for q with one page requested.
// Results of requests issued before the reset are rejected as stale.
func (p *Pager) Reset(q listing.Query) {
	if p.state == Closed {
		return
	}
	p.reset(q.Normalized())
	p.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPageReset})
}

func (p *Pager) reset(q listing.Query) {
	if p.cancel != nil {
		p.cancel()
	}
	parent := p.parent
	if parent == nil {
		parent = context.Background()
	}
	p.ctx, p.cancel = context.WithCancel(parent)
	p.gen++
	p.query = q
	p.pages = nil
	p.size = 1
	p.state = Idle
	p.pending = nil
	p.attempt = 0
	p.retry = nil
	p.err = nil
}

// Close cancels any in-flight request and makes the pager inert.
// Safe to call more than once.
func (p *Pager) Close() {
	if p.state == Closed {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	p.pending = nil
	p.state = Closed
}

// Grow asks for one more page. While a page is still outstanding the
// call is absorbed, so bursts of triggers request each page once.
// Returns true if the requested size increased.
func (p *Pager) Grow() bool {
	if p.state.Terminal() {
		return false
	}
	if p.size > len(p.pages) {
		return false
	}
	p.size++
	return true
}

// Next returns the request for the next page, if one is due: fewer pages
// than requested, nothing outstanding, and no terminal state.
func (p *Pager) Next() (Request, bool) {
	if p.state != Idle || p.pending != nil || len(p.pages) >= p.size {
		return Request{}, false
	}

	index := len(p.pages)
	var url string
	if index == 0 {
		url = listing.FirstPageURL(p.base, p.query)
	} else {
		prev := p.pages[index-1]
		if !prev.HasMore() {
			p.state = End
			return Request{}, false
		}
		url = listing.NextPageURL(p.base, p.query, prev.Cursor())
	}

	req := Request{Gen: p.gen, Index: index, URL: url, Attempt: p.attempt, ctx: p.ctx}
	p.pending = &req
	p.state = Loading
	p.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPageRequest, Page: index, Attempt: p.attempt, URL: url})
	return req, true
}

// Resolve accepts the result of the outstanding request.
func (p *Pager) Resolve(res Result) (Outcome, error) {
	req := res.Request
	if p.state == Closed {
		return Outcome{}, ErrClosed
	}
	if req.Gen != p.gen {
		p.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPageStale, Page: req.Index})
		return Outcome{}, ErrStale
	}
	if p.pending == nil || req.Index != p.pending.Index {
		return Outcome{}, ErrOutOfOrder
	}
	p.pending = nil

	if res.Err != nil {
		return p.fail(req, res.Err), nil
	}

	p.pages = append(p.pages, res.Page)
	p.attempt = 0
	p.retry = nil
	p.err = nil
	p.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPageComplete, Page: req.Index, Count: len(res.Page.Items), Dur: res.Dur})
	if res.Page.HasMore() {
		p.state = Idle
	} else {
		p.state = End
		p.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPageEnd, Page: req.Index})
	}
	return Outcome{Appended: true}, nil
}

func (p *Pager) fail(req Request, err error) Outcome {
	p.err = err
	status := listing.StatusOf(err)

	if listing.IsNotFound(err) {
		p.state = NotFound
		p.emit(otel.Event{Level: otel.LevelError, Kind: otel.KindPageNotFound, Page: req.Index, Status: status, Err: err.Error()})
		return Outcome{}
	}
	p.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindPageError, Page: req.Index, Status: status, Attempt: p.attempt, Err: err.Error()})
	if !listing.Retryable(err) {
		p.state = Failed
		return Outcome{}
	}
	if p.retry == nil {
		p.retry = p.policy.NewBackOff()
	}
	delay := p.retry.NextBackOff()
	if delay == backoff.Stop {
		p.state = Failed
		return Outcome{}
	}
	p.attempt++
	p.state = Retrying
	p.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindPageRetry, Page: req.Index, Attempt: p.attempt, Dur: delay})
	return Outcome{RetryIn: delay}
}

// Retry ends the wait scheduled by a failed Resolve. Calls for an older
// generation are ignored. Returns true if a request is now due.
func (p *Pager) Retry(gen uint64) bool {
	if gen != p.gen || p.state != Retrying {
		return false
	}
	p.state = Idle
	return len(p.pages) < p.size
}

// Generation identifies the current query; it changes on Reset and Close.
func (p *Pager) Generation() uint64 { return p.gen }

// Query returns the query being paged.
func (p *Pager) Query() listing.Query { return p.query }

// State returns the current state.
func (p *Pager) State() State { return p.state }

// Err returns the error behind NotFound, Failed or Retrying.
func (p *Pager) Err() error { return p.err }

// Attempt returns how many consecutive failures the current page has seen.
func (p *Pager) Attempt() int { return p.attempt }

// Size returns the number of pages requested.
func (p *Pager) Size() int { return p.size }

// Pages returns the pages fetched so far, in order.
func (p *Pager) Pages() []listing.Page { return p.pages }

// Len returns the number of pages fetched so far.
func (p *Pager) Len() int { return len(p.pages) }

// Items concatenates the fetched pages. Ranks shift between requests, so
// an item can appear on two pages; only its first occurrence is kept.
func (p *Pager) Items() []listing.Item {
	n := 0
	for _, pg := range p.pages {
		n += len(pg.Items)
	}
	seen := make(map[string]struct{}, n)
	items := make([]listing.Item, 0, n)
	for _, pg := range p.pages {
		for _, it := range pg.Items {
			key := it.Key()
			if _, dup := seen[key]; dup && key != "" {
				continue
			}
			seen[key] = struct{}{}
			items = append(items, it)
		}
	}
	return items
}

func (p *Pager) emit(e otel.Event) {
	if p.events == nil {
		return
	}
	e.Comp = "pager"
	e.Route = route.Format(p.query)
	p.events.Emit(e)
}
