// Package listing talks to the upstream listing and comment endpoints.
//
// It builds page URLs from a Query and continuation cursors, decodes
// listing JSON into Pages, and classifies failures into the error
// taxonomy the pager and UI act on.
package listing

import (
	"fmt"
	"net/url"
	"strings"
)

// PageSize is the fixed page size requested for every continuation page.
const PageSize = 25

// DefaultBaseURL is the public upstream host.
const DefaultBaseURL = "https://www.reddit.com"

// SortMode selects the listing order.
type SortMode string

const (
	SortHot SortMode = "hot"
	SortNew SortMode = "new"
	SortTop SortMode = "top"
)

// SortModes lists sort modes in display (cycle) order.
var SortModes = []SortMode{SortHot, SortNew, SortTop}

// TimeRange limits a top listing to a window.
type TimeRange string

const (
	RangeHour  TimeRange = "hour"
	RangeDay   TimeRange = "day"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
	RangeAll   TimeRange = "all"
)

// TimeRanges lists time ranges in display (cycle) order.
var TimeRanges = []TimeRange{RangeHour, RangeDay, RangeWeek, RangeMonth, RangeYear, RangeAll}

// ParseSortMode accepts a sort mode name in any case.
func ParseSortMode(s string) (SortMode, error) {
	m := SortMode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SortModes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown sort mode %q", s)
}

// ParseTimeRange accepts a time range name in any case.
func ParseTimeRange(s string) (TimeRange, error) {
	r := TimeRange(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TimeRanges {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown time range %q", s)
}

// Label returns the human name used by the selectors.
func (r TimeRange) Label() string {
	switch r {
	case RangeHour:
		return "Now"
	case RangeDay:
		return "Today"
	case RangeWeek:
		return "This week"
	case RangeMonth:
		return "This month"
	case RangeYear:
		return "This year"
	case RangeAll:
		return "All time"
	default:
		return string(r)
	}
}

// Query identifies a feed. Range only matters when Sort is SortTop.
type Query struct {
	Community string // empty for the front page
	Sort      SortMode
	Range     TimeRange
}

// DefaultQuery is the front page, hot, with the range preset to a day.
func DefaultQuery() Query {
	return Query{Sort: SortHot, Range: RangeDay}
}

// Normalized fills zero fields with defaults and lowercases the enums.
func (q Query) Normalized() Query {
	if m, err := ParseSortMode(string(q.Sort)); err == nil {
		q.Sort = m
	} else {
		q.Sort = SortHot
	}
	if r, err := ParseTimeRange(string(q.Range)); err == nil {
		q.Range = r
	} else {
		q.Range = RangeDay
	}
	q.Community = strings.Trim(strings.TrimSpace(q.Community), "/")
	q.Community = strings.TrimPrefix(q.Community, "r/")
	return q
}

// Title is the heading shown above a feed.
func (q Query) Title() string {
	if q.Community == "" {
		return "Frontpage"
	}
	return q.Community
}

// Cursor is the continuation data carried by a page.
type Cursor struct {
	After  string
	Before string
}

// basePath returns the listing path without query string.
func (q Query) basePath(base string) string {
	base = strings.TrimRight(base, "/")
	if q.Community == "" {
		return fmt.Sprintf("%s/%s/.json", base, q.Sort)
	}
	return fmt.Sprintf("%s/r/%s/%s/.json", base, url.PathEscape(q.Community), q.Sort)
}

// FirstPageURL builds the page 0 request. Only top listings carry t.
func FirstPageURL(base string, q Query) string {
	q = q.Normalized()
	u := q.basePath(base)
	if q.Sort == SortTop {
		u += "?" + url.Values{"t": {string(q.Range)}}.Encode()
	}
	return u
}

// NextPageURL builds the request for the page after the one that
// produced c. Both cursors are always sent, even when before is empty.
func NextPageURL(base string, q Query, c Cursor) string {
	q = q.Normalized()
	v := url.Values{}
	v.Set("after", c.After)
	v.Set("before", c.Before)
	v.Set("limit", fmt.Sprint(PageSize))
	if q.Sort == SortTop {
		v.Set("t", string(q.Range))
	}
	return q.basePath(base) + "?" + v.Encode()
}

// ThreadURL builds the detail endpoint for a post.
func ThreadURL(base, community, id string) string {
	base = strings.TrimRight(base, "/")
	return fmt.Sprintf("%s/r/%s/comments/%s.json", base, url.PathEscape(community), url.PathEscape(id))
}
