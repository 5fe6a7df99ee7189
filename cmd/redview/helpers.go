package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/redview/internal/config"
	"github.com/abelbrown/redview/internal/listing"
	"github.com/abelbrown/redview/internal/logging"
	"github.com/abelbrown/redview/internal/store"
)

// setupCLI prepares logging and config for a subcommand. Logs go to
// stderr so stdout stays clean for piping.
func setupCLI() (*config.Config, error) {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	logging.InitWriter(os.Stderr, level)
	return loadConfig(dataDir())
}

func openStore() (*store.Store, error) {
	dir := dataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.Open(filepath.Join(dir, "redview.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

func printPages(w io.Writer, pages []listing.Page) {
	n := 0
	for i, p := range pages {
		fmt.Fprintf(w, "── page %d ──\n", i)
		for _, it := range p.Items {
			n++
			title := it.Title
			if it.Stickied {
				title = "📌 " + title
			}
			fmt.Fprintf(w, "%3d. %s\n", n, title)
			fmt.Fprintf(w, "     %s pts · u/%s · %s comments · %s\n",
				humanize.Comma(int64(it.Score)), it.Author,
				humanize.Comma(int64(it.NumComments)), humanize.Time(it.Created()))
		}
	}
}

func printThread(w io.Writer, th listing.Thread) {
	fmt.Fprintln(w, th.Post.Title)
	fmt.Fprintf(w, "%s pts · u/%s in /r/%s\n", humanize.Comma(int64(th.Post.Score)), th.Post.Author, th.Post.Subreddit)
	if ext := listing.ExternalURL(th.Post); ext != "" {
		fmt.Fprintln(w, ext)
	}
	if th.Post.Selftext != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, th.Post.Selftext)
	}
	fmt.Fprintln(w)

	for _, c := range listing.Flatten(th.Comments) {
		indent := strings.Repeat("  ", c.Depth)
		fmt.Fprintf(w, "%su/%s · %s pts\n", indent, c.Author, humanize.Comma(int64(c.Score)))
		for _, line := range strings.Split(c.Body, "\n") {
			fmt.Fprintf(w, "%s  %s\n", indent, line)
		}
		if c.More > 0 {
			fmt.Fprintf(w, "%s  … %d more replies\n", indent, c.More)
		}
	}
	if th.More > 0 {
		fmt.Fprintf(w, "… %d more comments\n", th.More)
	}
}
