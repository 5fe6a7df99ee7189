// Package route maps a feed query to and from a location string such as
// "/r/aww?viewType=top&t=week". The location is how the sort mode and
// time range persist: it is accepted on the command line, shown in the
// status bar, and rewritten whenever the view changes them.
package route

import (
	"net/url"
	"strings"

	"github.com/abelbrown/redview/internal/listing"
)

const (
	paramSort  = "viewType"
	paramRange = "t"
)

// Parse reads a location. Unknown or missing parameters fall back to the
// defaults; t is only honoured for top listings. Bare community names
// ("aww", "r/aww") are accepted too.
func Parse(loc string) (listing.Query, error) {
	q := listing.DefaultQuery()
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return q, nil
	}
	if !strings.HasPrefix(loc, "/") {
		loc = "/" + loc
	}

	u, err := url.Parse(loc)
	if err != nil {
		return q, err
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(segs) >= 2 && segs[0] == "r":
		q.Community = segs[1]
	case len(segs) == 1 && segs[0] != "":
		q.Community = segs[0]
	}

	params := u.Query()
	if m, err := listing.ParseSortMode(params.Get(paramSort)); err == nil {
		q.Sort = m
	}
	if q.Sort == listing.SortTop {
		if r, err := listing.ParseTimeRange(params.Get(paramRange)); err == nil {
			q.Range = r
		}
	}
	return q.Normalized(), nil
}

// Format writes a location. Default parameters are still written so the
// location always states the view.
func Format(q listing.Query) string {
	q = q.Normalized()
	path := "/"
	if q.Community != "" {
		path = "/r/" + q.Community
	}
	v := url.Values{}
	v.Set(paramSort, string(q.Sort))
	if q.Sort == listing.SortTop {
		v.Set(paramRange, string(q.Range))
	}
	return path + "?" + v.Encode()
}
