package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/redview/internal/listing"
	"github.com/abelbrown/redview/internal/prefs"
)

// ThreadFunc fetches a post with its comments.
type ThreadFunc func(ctx context.Context, community, id string) (listing.Thread, error)

// threadView shows one post and its comment tree in a viewport. It binds
// expandMedia on its own, so toggling it here is seen by the feed too.
type threadView struct {
	post    listing.Item
	thread  *listing.Thread
	err     error
	loading bool

	expand *prefs.Handle[bool]
	vp     viewport.Model
	width  int

	ctx    context.Context
	cancel context.CancelFunc
}

func newThreadView(parent context.Context, post listing.Item, bus *prefs.Bus, width, height int) *threadView {
	ctx, cancel := context.WithCancel(parent)
	t := &threadView{
		post:    post,
		loading: true,
		vp:      viewport.New(width, height),
		width:   width,
		ctx:     ctx,
		cancel:  cancel,
	}
	t.expand = prefs.Bind(bus, prefs.KeyExpandMedia, prefs.DefaultExpandMedia, func(bool) { t.refresh() })
	t.refresh()
	return t
}

func (t *threadView) load(fetch ThreadFunc) tea.Cmd {
	if fetch == nil {
		return nil
	}
	ctx, community, id := t.ctx, t.post.Subreddit, t.post.ID
	return func() tea.Msg {
		start := time.Now()
		th, err := fetch(ctx, community, id)
		return ThreadLoaded{ID: id, Thread: th, Dur: time.Since(start), Err: err}
	}
}

// handleLoaded applies a fetch result. Results for another post are
// ignored and reported as false.
func (t *threadView) handleLoaded(msg ThreadLoaded) bool {
	if msg.ID != t.post.ID {
		return false
	}
	t.loading = false
	if msg.Err != nil {
		t.err = msg.Err
	} else {
		th := msg.Thread
		t.thread = &th
		t.post = th.Post
	}
	t.refresh()
	return true
}

func (t *threadView) toggleExpand() error {
	return t.expand.Set(!t.expand.Get())
}

func (t *threadView) resize(width, height int) {
	t.width = width
	t.vp.Width = width
	t.vp.Height = height
	t.refresh()
}

func (t *threadView) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.vp, cmd = t.vp.Update(msg)
	return cmd
}

func (t *threadView) close() {
	t.cancel()
	t.expand.Close()
}

func (t *threadView) view() string {
	return t.vp.View()
}

func (t *threadView) refresh() {
	t.vp.SetContent(t.render())
}

func (t *threadView) render() string {
	w := t.width - 2
	if w < 20 {
		w = 20
	}
	wrap := lipgloss.NewStyle().Width(w)

	var b strings.Builder
	b.WriteString(Header.Render(t.post.Title))
	b.WriteString("\n")
	b.WriteString(Byline.Render(byline(t.post)))
	b.WriteString("\n")
	if t.expand.Get() {
		if line := mediaLine(t.post); line != "" {
			b.WriteString(MediaLine.Render(line))
			b.WriteString("\n")
		}
	}
	if t.post.Selftext != "" {
		b.WriteString("\n")
		b.WriteString(wrap.Render(t.post.Selftext))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case t.loading:
		b.WriteString(HelpStyle.Render("Loading comments..."))
		return b.String()
	case t.err != nil:
		b.WriteString(ErrorStyle.Render("Could not load comments: " + t.err.Error()))
		return b.String()
	}

	comments := listing.Flatten(t.thread.Comments)
	b.WriteString(CommentMeta.Render(fmt.Sprintf("── %d comments ──", len(comments))))
	b.WriteString("\n")
	for _, c := range comments {
		indent := strings.Repeat("  ", c.Depth)
		body := lipgloss.NewStyle().Width(max(w-len(indent), 10)).Render(c.Body)

		b.WriteString(indent)
		b.WriteString(CommentAuthor.Render(c.Author))
		b.WriteString(CommentMeta.Render(fmt.Sprintf(" · %s pts · %s", humanize.Comma(int64(c.Score)), humanize.Time(c.Created()))))
		b.WriteString("\n")
		for _, line := range strings.Split(body, "\n") {
			b.WriteString(indent)
			b.WriteString(line)
			b.WriteString("\n")
		}
		if c.More > 0 {
			b.WriteString(indent + "  ")
			b.WriteString(CommentMeta.Render(fmt.Sprintf("… %d more replies", c.More)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if t.thread.More > 0 {
		b.WriteString(CommentMeta.Render(fmt.Sprintf("… %d more comments", t.thread.More)))
		b.WriteString("\n")
	}
	return b.String()
}
