package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// eventRecord mirrors otel.Event for decoding. Reading the JSONL directly
// keeps old logs readable after the event schema changes.
type eventRecord struct {
	Time      time.Time `json:"t"`
	Level     string    `json:"level"`
	Kind      string    `json:"kind"`
	Comp      string    `json:"comp"`
	SessionID string    `json:"session_id"`
	Route     string    `json:"route"`
	Page      int       `json:"page"`
	Attempt   int       `json:"attempt"`
	Status    int       `json:"status"`
	DurMs     float64   `json:"dur_ms"`
	Count     int       `json:"count"`
	Key       string    `json:"key"`
	Err       string    `json:"err"`
	Msg       string    `json:"msg"`
}

type eventFilter struct {
	kind  string
	level string
	comp  string
	route string
}

var (
	eventsTail   int
	eventsFollow bool
	eventsJSON   bool
	eventsMatch  eventFilter
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the event log written by the TUI",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func init() {
	f := eventsCmd.Flags()
	f.IntVar(&eventsTail, "tail", 50, "Number of recent lines to show")
	f.BoolVarP(&eventsFollow, "follow", "f", false, "Follow mode (like tail -f)")
	f.BoolVar(&eventsJSON, "json", false, "Output raw JSON lines")
	f.StringVar(&eventsMatch.kind, "kind", "", "Filter by event kind prefix (e.g. 'page')")
	f.StringVar(&eventsMatch.level, "level", "", "Minimum level: debug, info, warn, error")
	f.StringVar(&eventsMatch.comp, "comp", "", "Filter by component name")
	f.StringVar(&eventsMatch.route, "route", "", "Filter by feed location")
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

func (m eventFilter) match(ev eventRecord) bool {
	if m.kind != "" && !strings.HasPrefix(ev.Kind, m.kind) {
		return false
	}
	if m.level != "" && levelRank(ev.Level) < levelRank(m.level) {
		return false
	}
	if m.comp != "" && ev.Comp != m.comp {
		return false
	}
	if m.route != "" && ev.Route != m.route {
		return false
	}
	return true
}

func formatEvent(ev eventRecord) string {
	ts := ev.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-7s] %-18s", ts, lvl, ev.Comp, ev.Kind)}

	if ev.Route != "" {
		parts = append(parts, ev.Route)
	}
	if ev.Page > 0 {
		parts = append(parts, fmt.Sprintf("p%d", ev.Page))
	}
	if ev.Attempt > 0 {
		parts = append(parts, fmt.Sprintf("try=%d", ev.Attempt))
	}
	if ev.Status > 0 {
		parts = append(parts, fmt.Sprintf("http=%d", ev.Status))
	}
	if ev.Key != "" {
		parts = append(parts, "key="+ev.Key)
	}
	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

func runEvents(cmd *cobra.Command, args []string) error {
	logPath := eventLogPath(dataDir())
	f, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("event log not found at %s (run the TUI first): %w", logPath, err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	show := func(l parsedLine) {
		if eventsJSON {
			fmt.Fprintln(out, string(l.raw))
			return
		}
		fmt.Fprintln(out, formatEvent(l.ev))
	}

	for _, l := range readTailLines(f, eventsTail, eventsMatch.match) {
		show(l)
	}
	if !eventsFollow {
		return nil
	}

	ctx := cmd.Context()
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		line = trimLine(line)
		if len(line) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if eventsMatch.match(ev) {
			show(parsedLine{ev: ev, raw: line})
		}
	}
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines returns the last n lines of r matching the filter.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	var ring []parsedLine
	if n > 0 {
		ring = make([]parsedLine, 0, n)
	}

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) || n <= 0 {
			continue
		}
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}
	return ring
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
