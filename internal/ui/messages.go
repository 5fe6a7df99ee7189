// Package ui provides the Bubble Tea TUI for redview.
package ui

import (
	"time"

	"github.com/abelbrown/redview/internal/listing"
	"github.com/abelbrown/redview/internal/pager"
	"github.com/abelbrown/redview/internal/trigger"
)

// PageLoaded carries the outcome of one page fetch back to the update loop.
type PageLoaded struct {
	Result pager.Result
}

// RetryDue is sent when the wait after a failed page fetch has elapsed.
type RetryDue struct {
	Gen uint64
}

// ArmDue is sent when the scroll trigger's arm delay has elapsed.
type ArmDue struct {
	Token trigger.Token
}

// ThreadLoaded is sent when a comment thread has been fetched.
type ThreadLoaded struct {
	ID     string
	Thread listing.Thread
	Dur    time.Duration
	Err    error
}

// HeadChecked is sent by the live refresh coordinator after it has looked
// at the first page of a query.
type HeadChecked struct {
	Query    listing.Query
	Fresh    int    // items newer than the newest one already seen
	Newest   string // key of the newest item on the page
	Favorite bool
	Err      error
}
