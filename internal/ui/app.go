package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/redview/internal/listing"
	"github.com/abelbrown/redview/internal/logging"
	"github.com/abelbrown/redview/internal/otel"
	"github.com/abelbrown/redview/internal/pager"
	"github.com/abelbrown/redview/internal/prefs"
	"github.com/abelbrown/redview/internal/route"
	"github.com/abelbrown/redview/internal/trigger"
)

// Deps is everything the App needs from the outside. Only Fetch and Bus
// are required.
type Deps struct {
	Fetch   FetchFunc
	Thread  ThreadFunc
	Bus     *prefs.Bus
	Events  *otel.Logger
	Ring    *otel.RingBuffer
	Base    string
	Policy  pager.RetryPolicy
	Trigger trigger.Options
	After   AfterFunc // nil uses tea.Tick

	Watch  func(q listing.Query, newest string) // live refresh target
	Seen   func(q listing.Query, newest string) // favorite caught up
	Visit  func(route string) error
	Recent func() []string
}

type mode int

const (
	modeFeed mode = iota
	modeThread
	modePrompt
)

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold the store or the HTTP client. Both are
// reached through the functions in Deps.
type App struct {
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc

	feed   *feedView
	thread *threadView
	prompt textinput.Model
	spin   spinner.Model

	expand *prefs.Handle[bool]
	favs   *prefs.Handle[[]string]
	live   *prefs.Handle[bool]

	favFresh     map[string]int
	mode         mode
	debugVisible bool
	status       string
	width        int
	height       int
	ready        bool
}

// NewApp creates an App showing q.
func NewApp(ctx context.Context, deps Deps, q listing.Query) App {
	if deps.Base == "" {
		deps.Base = listing.DefaultBaseURL
	}
	if deps.Policy == (pager.RetryPolicy{}) {
		deps.Policy = pager.DefaultRetryPolicy()
	}
	ctx, cancel := context.WithCancel(ctx)

	ti := textinput.New()
	ti.Placeholder = "community or route, blank for frontpage"
	ti.Prompt = "/r/ "
	ti.CharLimit = 128
	ti.Width = 48
	ti.ShowSuggestions = true

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StatusBarKey

	return App{
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		feed:     newFeedView(ctx, deps.Base, q, deps.Policy, deps.Trigger, deps.Fetch, deps.After, deps.Events),
		prompt:   ti,
		spin:     sp,
		expand:   prefs.Bind(deps.Bus, prefs.KeyExpandMedia, prefs.DefaultExpandMedia, nil),
		favs:     prefs.Bind(deps.Bus, prefs.KeyFavorites, prefs.DefaultFavorites, nil),
		live:     prefs.Bind(deps.Bus, prefs.KeyLiveRefresh, prefs.DefaultLiveRefresh, nil),
		favFresh: make(map[string]int),
	}
}

// Init mounts the feed and starts the spinner.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.feed.mount(), a.spin.Tick, a.visit())
}

// Update handles messages and returns the updated model and any commands.
// With tracing on, every message except spinner ticks is recorded before
// and after it is handled.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !otel.TraceEnabled() || a.deps.Events == nil {
		return a.update(msg)
	}
	if _, tick := msg.(spinner.TickMsg); tick {
		return a.update(msg)
	}
	name := fmt.Sprintf("%T", msg)
	a.deps.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Comp: "ui", Msg: name})
	start := time.Now()
	model, cmd := a.update(msg)
	a.deps.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgHandled, Comp: "ui", Msg: name, Dur: time.Since(start)})
	return model, cmd
}

func (a App) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		if a.thread != nil {
			a.thread.resize(a.width, a.contentHeight())
		}
		return a, a.feed.layout(a.contentHeight(), a.expand.Get())

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case PageLoaded:
		before := a.feed.pager.Len()
		cmd := a.feed.handlePage(msg)
		if before == 0 && a.feed.pager.Len() > 0 {
			a.firstPage()
		}
		return a, cmd

	case RetryDue:
		return a, a.feed.handleRetry(msg)

	case ArmDue:
		return a, a.feed.handleArm(msg)

	case ThreadLoaded:
		if a.thread != nil && a.thread.handleLoaded(msg) {
			a.threadLoaded(msg)
		}
		return a, nil

	case HeadChecked:
		if msg.Err != nil {
			return a, nil
		}
		if route.Format(msg.Query) == route.Format(a.feed.query()) {
			a.feed.fresh = msg.Fresh
		}
		if msg.Favorite {
			a.favFresh[strings.ToLower(msg.Query.Community)] = msg.Fresh
		}
		return a, nil
	}

	if a.mode == modePrompt {
		var cmd tea.Cmd
		a.prompt, cmd = a.prompt.Update(msg)
		return a, cmd
	}
	if a.mode == modeThread && a.thread != nil {
		return a, a.thread.update(msg)
	}
	return a, nil
}

func (a App) threadLoaded(msg ThreadLoaded) {
	if msg.Err != nil {
		logging.Warn("thread fetch failed", "id", msg.ID, "error", msg.Err)
		a.deps.Events.Emit(otel.Event{
			Level:  otel.LevelError,
			Kind:   otel.KindThreadError,
			Comp:   "ui",
			Msg:    msg.ID,
			Status: listing.StatusOf(msg.Err),
			Dur:    msg.Dur,
			Err:    msg.Err.Error(),
		})
		return
	}
	a.deps.Events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindThreadFetch,
		Comp:  "ui",
		Msg:   msg.ID,
		Count: len(listing.Flatten(msg.Thread.Comments)),
		Dur:   msg.Dur,
	})
}

// firstPage runs once the first page of a query is on screen.
func (a App) firstPage() {
	q := a.feed.query()
	newest := a.feed.newest()
	if a.deps.Watch != nil {
		a.deps.Watch(q, newest)
	}
	if q.Community != "" && prefs.IsFavorite(a.favs.Get(), q.Community) {
		delete(a.favFresh, strings.ToLower(q.Community))
		if a.deps.Seen != nil {
			a.deps.Seen(q, newest)
		}
	}
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		a.Close()
		return a, tea.Quit
	}

	switch a.mode {
	case modePrompt:
		return a.handlePromptKey(msg)
	case modeThread:
		return a.handleThreadKey(msg)
	}

	a.status = ""
	switch msg.String() {
	case "q":
		a.Close()
		return a, tea.Quit

	case "D":
		a.debugVisible = !a.debugVisible
		return a, nil

	case "j", "down":
		return a, a.feed.move(1)

	case "k", "up":
		return a, a.feed.move(-1)

	case "g", "home":
		return a, a.feed.move(-len(a.feed.items))

	case "G", "end":
		return a, a.feed.move(len(a.feed.items))

	case "pgdown", "ctrl+d":
		return a, a.feed.move(a.feed.rows)

	case "pgup", "ctrl+u":
		return a, a.feed.move(-a.feed.rows)

	case "m":
		return a, a.feed.loadMore()

	case "r":
		return a, a.feed.reset(a.feed.query())

	case "s":
		q := a.feed.query()
		q.Sort = nextSort(q.Sort)
		return a.navigate(q)

	case "t":
		q := a.feed.query()
		if q.Sort != listing.SortTop {
			a.status = "time range applies to top only"
			return a, nil
		}
		q.Range = nextRange(q.Range)
		return a.navigate(q)

	case "e":
		if err := a.expand.Set(!a.expand.Get()); err != nil {
			a.status = "could not save preference: " + err.Error()
		}
		return a, a.feed.layout(a.contentHeight(), a.expand.Get())

	case "L":
		if err := a.live.Set(!a.live.Get()); err != nil {
			a.status = "could not save preference: " + err.Error()
		}
		return a, nil

	case "F":
		q := a.feed.query()
		if q.Community == "" {
			a.status = "the frontpage cannot be a favorite"
			return a, nil
		}
		if err := a.favs.Set(prefs.ToggleFavorite(a.favs.Get(), q.Community)); err != nil {
			a.status = "could not save preference: " + err.Error()
		}
		return a, nil

	case "/":
		a.mode = modePrompt
		a.prompt.Reset()
		if a.deps.Recent != nil {
			a.prompt.SetSuggestions(a.deps.Recent())
		}
		return a, tea.Batch(a.feed.layout(a.contentHeight(), a.expand.Get()), a.prompt.Focus())

	case "enter":
		it, ok := a.feed.selected()
		if !ok {
			return a, nil
		}
		a.thread = newThreadView(a.ctx, it, a.deps.Bus, a.width, a.contentHeight())
		a.mode = modeThread
		return a, a.thread.load(a.deps.Thread)
	}

	if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= 9 {
		favs := a.favs.Get()
		if n > len(favs) {
			return a, nil
		}
		return a.navigate(listing.Query{Community: favs[n-1]})
	}
	return a, nil
}

func (a App) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeFeed
		a.prompt.Blur()
		return a, a.feed.layout(a.contentHeight(), a.expand.Get())
	case "enter":
		a.mode = modeFeed
		a.prompt.Blur()
		q, err := route.Parse(strings.TrimSpace(a.prompt.Value()))
		if err != nil {
			a.status = err.Error()
			return a, a.feed.layout(a.contentHeight(), a.expand.Get())
		}
		model, cmd := a.navigate(q)
		next := model.(App)
		return next, tea.Batch(cmd, next.feed.layout(next.contentHeight(), next.expand.Get()))
	}
	var cmd tea.Cmd
	a.prompt, cmd = a.prompt.Update(msg)
	return a, cmd
}

func (a App) handleThreadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace", "q":
		a.closeThread()
		return a, a.feed.layout(a.contentHeight(), a.expand.Get())
	case "e":
		if err := a.thread.toggleExpand(); err != nil {
			a.status = "could not save preference: " + err.Error()
		}
		return a, nil
	case "D":
		a.debugVisible = !a.debugVisible
		return a, nil
	}
	return a, a.thread.update(msg)
}

func (a *App) closeThread() {
	if a.thread != nil {
		a.thread.close()
		a.thread = nil
	}
	a.mode = modeFeed
}

// navigate switches the feed to q and records the visit.
func (a App) navigate(q listing.Query) (tea.Model, tea.Cmd) {
	q = q.Normalized()
	from := route.Format(a.feed.query())
	if route.Format(q) == from {
		return a, nil
	}
	a.deps.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindNavigate, Comp: "ui", Route: route.Format(q), Msg: "from " + from})
	return a, tea.Batch(a.feed.reset(q), a.visitFor(q))
}

func (a App) visit() tea.Cmd {
	return a.visitFor(a.feed.query())
}

func (a App) visitFor(q listing.Query) tea.Cmd {
	if a.deps.Visit == nil {
		return nil
	}
	record, r, events := a.deps.Visit, route.Format(q), a.deps.Events
	return func() tea.Msg {
		// history is best effort
		if err := record(r); err != nil {
			events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindStoreError, Comp: "ui", Route: r, Err: err.Error()})
		}
		return nil
	}
}

// Close cancels outstanding work and releases preference bindings.
// Safe to call more than once.
func (a App) Close() {
	a.closeThread()
	a.feed.close()
	a.expand.Close()
	a.favs.Close()
	a.live.Close()
	a.cancel()
}

func (a App) contentHeight() int {
	h := a.height - 2 // header + status bar
	if a.mode == modePrompt {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.debugVisible {
		return debugOverlay(a.deps.Ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width, a.deps.Events.SessionID())
	}

	var b strings.Builder
	b.WriteString(a.renderHeader())
	b.WriteString("\n")
	if a.mode == modeThread && a.thread != nil {
		b.WriteString(a.thread.view())
		b.WriteString("\n")
	} else {
		b.WriteString(a.feed.view(a.width, a.contentHeight(), a.spin.View()))
	}
	if a.mode == modePrompt {
		b.WriteString(PromptBar.Width(a.width).Render(a.prompt.View()))
		b.WriteString("\n")
	}
	b.WriteString(a.renderStatusBar())
	return b.String()
}

func (a App) renderHeader() string {
	q := a.feed.query()
	head := Header.Render(q.Title()) + StatusBarText.Render(string(q.Sort))
	if q.Sort == listing.SortTop {
		head += StatusBarText.Render(" · " + q.Range.Label())
	}
	if a.live.Get() {
		head += " " + FreshBadge.Render("● live")
	}
	for i, f := range a.favs.Get() {
		if i >= 9 {
			break
		}
		label := fmt.Sprintf("%d:%s", i+1, f)
		if n := a.favFresh[strings.ToLower(f)]; n > 0 {
			label += fmt.Sprintf(" +%d", n)
		}
		head += " " + FavoriteBadge.Render(label)
	}
	return head
}

func (a App) renderStatusBar() string {
	q := a.feed.query()
	parts := []string{route.Format(q)}
	if n := len(a.feed.items); n > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", a.feed.cursor+1, n))
	}
	parts = append(parts, fmt.Sprintf("%d pages", a.feed.pager.Len()))
	if a.feed.fresh > 0 {
		parts = append(parts, FreshBadge.Render(fmt.Sprintf("%d new · r to reload", a.feed.fresh)))
	}
	text := StatusBarText.Render(strings.Join(parts, "  "))

	var keys string
	switch a.mode {
	case modeThread:
		keys = hint("esc", "back") + hint("e", "media")
	case modePrompt:
		keys = hint("enter", "go") + hint("esc", "cancel")
	default:
		keys = hint("m", "more") + hint("s", "sort") + hint("/", "go") + hint("F", "fav") + hint("e", "media") + hint("L", "live") + hint("q", "quit")
	}
	if a.status != "" {
		text = ErrorStyle.Render(a.status)
	}
	return StatusBar.Width(a.width).Render(text + "  " + keys)
}

func hint(key, desc string) string {
	return StatusBarKey.Render(key) + StatusBarText.Render(":"+desc+" ")
}

func nextSort(s listing.SortMode) listing.SortMode {
	modes := listing.SortModes
	for i, m := range modes {
		if m == s {
			return modes[(i+1)%len(modes)]
		}
	}
	return modes[0]
}

func nextRange(r listing.TimeRange) listing.TimeRange {
	ranges := listing.TimeRanges
	for i, x := range ranges {
		if x == r {
			return ranges[(i+1)%len(ranges)]
		}
	}
	return ranges[0]
}

// Query returns the query on screen (for testing).
func (a App) Query() listing.Query { return a.feed.query() }

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int { return a.feed.cursor }

// Items returns the posts loaded so far (for testing).
func (a App) Items() []listing.Item { return a.feed.items }

// PagerState returns the feed's paging state (for testing).
func (a App) PagerState() pager.State { return a.feed.pager.State() }
