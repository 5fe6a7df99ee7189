package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/redview/internal/listing"
	"github.com/abelbrown/redview/internal/otel"
	"github.com/abelbrown/redview/internal/pager"
	"github.com/abelbrown/redview/internal/trigger"
)

// FetchFunc retrieves one listing page.
type FetchFunc func(ctx context.Context, url string) (listing.Page, error)

// AfterFunc returns a command that delivers msg after d.
type AfterFunc func(d time.Duration, msg tea.Msg) tea.Cmd

func tickAfter(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

// feedView is the paged post list for one query. It owns the pager and
// the scroll trigger; the App forwards messages to it.
type feedView struct {
	pager *pager.Pager
	trig  *trigger.Trigger
	fetch FetchFunc
	after AfterFunc
	now   func() time.Time

	items   []listing.Item // pager.Items() as of the last append
	cursor  int
	offset  int // first visible entry
	rows    int // entries that fit on screen
	expand  bool
	retryAt time.Time
	fresh   int // newer posts reported by live refresh
}

func newFeedView(ctx context.Context, base string, q listing.Query, policy pager.RetryPolicy, topts trigger.Options, fetch FetchFunc, after AfterFunc, events *otel.Logger) *feedView {
	if after == nil {
		after = tickAfter
	}
	f := &feedView{fetch: fetch, after: after, now: time.Now, rows: 1}
	f.pager = pager.New(ctx, base, q, policy)
	f.pager.SetEvents(events)
	f.trig = trigger.New(func() { f.pager.Grow() }, topts)
	f.trig.SetEvents(events)
	return f
}

// mount starts the arm delay and requests page 0.
func (f *feedView) mount() tea.Cmd {
	tok, delay := f.trig.Mount()
	return tea.Batch(f.after(delay, ArmDue{Token: tok}), f.pump())
}

// reset switches to q. In-flight results for the old query are dropped.
func (f *feedView) reset(q listing.Query) tea.Cmd {
	f.pager.Reset(q)
	f.items = nil
	f.cursor, f.offset, f.fresh = 0, 0, 0
	f.retryAt = time.Time{}
	return f.mount()
}

func (f *feedView) close() {
	f.trig.Teardown()
	f.pager.Close()
}

func (f *feedView) query() listing.Query { return f.pager.Query() }

// pump issues the next page request if one is due.
func (f *feedView) pump() tea.Cmd {
	req, ok := f.pager.Next()
	if !ok {
		return nil
	}
	fetch := f.fetch
	return func() tea.Msg {
		start := time.Now()
		page, err := fetch(req.Context(), req.URL)
		return PageLoaded{Result: pager.Result{Request: req, Page: page, Err: err, Dur: time.Since(start)}}
	}
}

func (f *feedView) handlePage(msg PageLoaded) tea.Cmd {
	out, err := f.pager.Resolve(msg.Result)
	if err != nil {
		return nil
	}
	if out.RetryIn > 0 {
		f.retryAt = f.now().Add(out.RetryIn)
		return f.after(out.RetryIn, RetryDue{Gen: msg.Result.Request.Gen})
	}
	f.retryAt = time.Time{}
	if out.Appended {
		f.items = f.pager.Items()
	}
	f.scroll()
	f.observe()
	return f.pump()
}

func (f *feedView) handleRetry(msg RetryDue) tea.Cmd {
	if !f.pager.Retry(msg.Gen) {
		return nil
	}
	f.retryAt = time.Time{}
	return f.pump()
}

func (f *feedView) handleArm(msg ArmDue) tea.Cmd {
	f.trig.Arm(msg.Token)
	return f.pump()
}

// loadMore is the manual trigger.
func (f *feedView) loadMore() tea.Cmd {
	f.trig.Fire()
	return f.pump()
}

func (f *feedView) move(delta int) tea.Cmd {
	if len(f.items) == 0 {
		return nil
	}
	f.cursor += delta
	if f.cursor < 0 {
		f.cursor = 0
	}
	if f.cursor > len(f.items)-1 {
		f.cursor = len(f.items) - 1
	}
	f.scroll()
	f.observe()
	return f.pump()
}

// layout sets the rows available to the list. Each post takes two lines,
// three when media lines are shown.
func (f *feedView) layout(height int, expand bool) tea.Cmd {
	f.expand = expand
	per := 2
	if expand {
		per = 3
	}
	f.rows = height / per
	if f.rows < 1 {
		f.rows = 1
	}
	f.scroll()
	f.observe()
	return f.pump()
}

// scroll keeps the cursor on screen.
func (f *feedView) scroll() {
	if f.cursor < f.offset {
		f.offset = f.cursor
	}
	if f.cursor >= f.offset+f.rows {
		f.offset = f.cursor - f.rows + 1
	}
	if f.offset < 0 {
		f.offset = 0
	}
}

// observe tells the trigger whether the sentinel row below the last post
// is within its margin of the screen.
func (f *feedView) observe() {
	n := len(f.items)
	lastVisible := f.offset + f.rows - 1
	f.trig.Observe(n > 0 && trigger.InRange(n, lastVisible, f.trig.Margin()))
}

func (f *feedView) selected() (listing.Item, bool) {
	if f.cursor < 0 || f.cursor >= len(f.items) {
		return listing.Item{}, false
	}
	return f.items[f.cursor], true
}

// newest is the key of the first non-stickied post loaded.
func (f *feedView) newest() string {
	for _, it := range f.items {
		if !it.Stickied {
			return it.Key()
		}
	}
	return ""
}

func (f *feedView) view(width, height int, spin string) string {
	if len(f.items) == 0 {
		return f.placeholder(spin)
	}

	var b strings.Builder
	end := f.offset + f.rows
	if end > len(f.items) {
		end = len(f.items)
	}
	for i := f.offset; i < end; i++ {
		b.WriteString(renderPost(f.items[i], i == f.cursor, width, f.expand))
	}
	if end == len(f.items) {
		b.WriteString(Sentinel.Render(f.sentinel(spin)))
		b.WriteString("\n")
	}
	return b.String()
}

// placeholder is shown in place of the list before the first page lands.
func (f *feedView) placeholder(spin string) string {
	switch f.pager.State() {
	case pager.NotFound:
		return ErrorStyle.Render("Community not found")
	case pager.Failed:
		msg := ErrorStyle.Render("Unknown error occurred")
		if err := f.pager.Err(); err != nil {
			msg += "\n" + HelpStyle.Render(err.Error()+"  (r to reload)")
		}
		return msg
	case pager.Retrying:
		return HelpStyle.Render(f.retryText())
	case pager.End:
		return HelpStyle.Render("Nothing here yet.")
	}
	return HelpStyle.Render(spin + " Loading " + f.query().Title() + "...")
}

func (f *feedView) sentinel(spin string) string {
	switch f.pager.State() {
	case pager.Loading:
		return spin + " Loading more..."
	case pager.Retrying:
		return f.retryText()
	case pager.End:
		return "End of listing"
	case pager.NotFound:
		return "Community not found"
	case pager.Failed:
		return "Could not load more. r to reload"
	}
	return "m: load more"
}

func (f *feedView) retryText() string {
	wait := f.retryAt.Sub(f.now()).Round(time.Second)
	if wait < 0 {
		wait = 0
	}
	return fmt.Sprintf("Request failed, retrying in %s (attempt %d)", wait, f.pager.Attempt()+1)
}

// renderPost renders the title, byline and (when expand is on) media lines.
func renderPost(it listing.Item, selected bool, width int, expand bool) string {
	titleWidth := width - 4
	if titleWidth < 20 {
		titleWidth = 20
	}

	title := it.Title
	if it.Stickied {
		title = "📌 " + title
	}
	title = truncateRunes(title, titleWidth)

	style := NormalItem
	switch {
	case selected:
		style = SelectedItem
	case it.Stickied:
		style = StickiedItem
	}

	var b strings.Builder
	b.WriteString(style.Render(title))
	b.WriteString("\n")
	b.WriteString(Byline.Render(truncateRunes(byline(it), titleWidth)))
	b.WriteString("\n")
	if expand {
		b.WriteString(MediaLine.Render(truncateRunes(mediaLine(it), titleWidth)))
		b.WriteString("\n")
	}
	return b.String()
}

func byline(it listing.Item) string {
	parts := []string{fmt.Sprintf("%s pts", humanize.Comma(int64(it.Score)))}
	posted := "Posted by u/" + it.Author
	if it.Subreddit != "" {
		posted += " in /r/" + it.Subreddit
	}
	parts = append(parts, posted)
	if it.CreatedUTC > 0 {
		parts = append(parts, humanize.Time(it.Created()))
	}
	parts = append(parts, fmt.Sprintf("%s comments", humanize.Comma(int64(it.NumComments))))
	if it.Domain != "" {
		parts = append(parts, it.Domain)
	}
	return strings.Join(parts, " · ")
}

func mediaLine(it listing.Item) string {
	if src := listing.MediaSource(it); src != "" {
		return "▶ " + src
	}
	if ext := listing.ExternalURL(it); ext != "" {
		return "↗ " + ext
	}
	if it.Selftext != "" {
		first, _, _ := strings.Cut(it.Selftext, "\n")
		return first
	}
	return ""
}
