package pager

import (
	"context"
	"time"

	"github.com/abelbrown/redview/internal/listing"
)

// Fetcher retrieves one listing page. *listing.Client implements it.
type Fetcher interface {
	Listing(ctx context.Context, url string) (listing.Page, error)
}

// Walk fetches up to n pages of q in order, waiting out retries the same
// way the UI does. It stops early at the end of the listing. The error is
// the one that left the pager in NotFound or Failed, or ctx's error.
func Walk(ctx context.Context, f Fetcher, base string, q listing.Query, n int, policy RetryPolicy) ([]listing.Page, error) {
	p := New(ctx, base, q, policy)
	defer p.Close()
	return drive(ctx, p, f, n)
}

func drive(ctx context.Context, p *Pager, f Fetcher, n int) ([]listing.Page, error) {
	for p.Len() < n {
		if err := ctx.Err(); err != nil {
			return p.Pages(), err
		}

		req, ok := p.Next()
		if !ok {
			if p.State().Terminal() {
				break
			}
			if !p.Grow() {
				break
			}
			continue
		}

		start := time.Now()
		page, err := f.Listing(req.Context(), req.URL)
		out, rerr := p.Resolve(Result{Request: req, Page: page, Err: err, Dur: time.Since(start)})
		if rerr != nil {
			return p.Pages(), rerr
		}

		if out.RetryIn > 0 {
			timer := time.NewTimer(out.RetryIn)
			select {
			case <-ctx.Done():
				timer.Stop()
				return p.Pages(), ctx.Err()
			case <-timer.C:
			}
			p.Retry(req.Gen)
		}
	}

	switch p.State() {
	case NotFound, Failed:
		return p.Pages(), p.Err()
	}
	return p.Pages(), nil
}
