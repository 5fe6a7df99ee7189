package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abelbrown/redview/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing paging stats and recent events.
// Pure function with no side effects. Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Paging Stats"))
	lines = append(lines, fmt.Sprintf("  Pages:      %d requested, %d complete, %d errors",
		stats[otel.KindPageRequest], stats[otel.KindPageComplete], stats[otel.KindPageError]))
	lines = append(lines, fmt.Sprintf("  Retries:    %d scheduled, %d not found, %d stale",
		stats[otel.KindPageRetry], stats[otel.KindPageNotFound], stats[otel.KindPageStale]))
	lines = append(lines, fmt.Sprintf("  Trigger:    %d armed, %d fired, %d manual",
		stats[otel.KindTriggerArm], stats[otel.KindTriggerFire], stats[otel.KindTriggerManual]))
	lines = append(lines, fmt.Sprintf("  Prefs:      %d writes, %d decode errors",
		stats[otel.KindPrefWrite], stats[otel.KindPrefDecodeError]))
	lines = append(lines, fmt.Sprintf("  Refresh:    %d checks, %d errors",
		stats[otel.KindRefreshCheck], stats[otel.KindRefreshError]))
	lines = append(lines, fmt.Sprintf("  Threads:    %d loaded, %d errors, %d navigations",
		stats[otel.KindThreadFetch], stats[otel.KindThreadError], stats[otel.KindNavigate]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	if errs := ring.Errors(5); len(errs) > 0 {
		lines = append(lines, DebugHeaderStyle.Render("Recent Errors"))
		for _, e := range errs {
			line := fmt.Sprintf("  %6s  %-18s", formatAge(time.Since(e.Time)), string(e.Kind))
			if e.Err != "" {
				line += "  " + truncateRunes(e.Err, 50)
			} else if e.Msg != "" {
				line += "  " + truncateRunes(e.Msg, 50)
			}
			lines = append(lines, line)
		}
		lines = append(lines, "")
	}

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-18s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.Kind.Subsystem() == "page" {
			line += fmt.Sprintf("  p%d", e.Page)
		}
		if e.Route != "" {
			line += "  " + truncateRunes(e.Route, 28)
		}
		if e.Key != "" {
			line += "  " + e.Key
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		lines = append(lines, line)
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 84
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	content := strings.Join(lines, "\n")
	return DebugPanel.Width(panelWidth).Render(content)
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// truncateRunes shortens s to at most n runes, marking the cut with "…".
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int, session string) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	text := "  [DEBUG]  "
	if session != "" {
		text += StatusBarText.Render("session "+session) + "  "
	}
	return StatusBar.Width(width).Render(text + keys)
}
