// Command redview is a terminal reader for Reddit listings.
//
// With no subcommand it opens the TUI on a route such as "aww" or
// "/r/aww?viewType=top&t=week". Subcommands fetch pages, threads and
// preferences without the TUI and print to stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/redview/internal/config"
	"github.com/abelbrown/redview/internal/coord"
	"github.com/abelbrown/redview/internal/listing"
	"github.com/abelbrown/redview/internal/logging"
	"github.com/abelbrown/redview/internal/otel"
	"github.com/abelbrown/redview/internal/pager"
	"github.com/abelbrown/redview/internal/prefs"
	"github.com/abelbrown/redview/internal/route"
	"github.com/abelbrown/redview/internal/store"
	"github.com/abelbrown/redview/internal/trigger"
	"github.com/abelbrown/redview/internal/ui"
)

var version = "dev"

var (
	dataDirFlag string
	verbose     bool
	trace       bool
)

var rootCmd = &cobra.Command{
	Use:   "redview [route]",
	Short: "Read Reddit listings in the terminal",
	Long: `redview pages through a community listing as you scroll.

The route is a community name or a location such as
"/r/aww?viewType=top&t=week". Blank opens the configured default.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory (default: $REDVIEW_HOME or ~/.redview)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.Flags().BoolVar(&trace, "trace", false, "Record every UI message in the event log (same as REDVIEW_TRACE=1)")
	rootCmd.Version = version

	rootCmd.AddCommand(peekCmd)
	rootCmd.AddCommand(threadCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	dir := dataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	if err := logging.Init(dir, version); err != nil {
		return err
	}
	defer logging.Close()

	q, err := parseRoute(cfg, args)
	if err != nil {
		return err
	}

	ring := otel.NewRingBuffer(cfg.UI.RingSize)
	events, closeEvents, err := openEvents(dir)
	if err != nil {
		return err
	}
	defer closeEvents()
	events.SetRingBuffer(ring)
	if trace {
		otel.SetTraceEnabled(true)
	}
	events.Info(otel.KindStartup, "main", version)

	st, err := store.Open(filepath.Join(dir, "redview.db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	bus := prefs.NewBus(st, events)
	client := newClient(cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	coordinator := coord.New(client, bus, client.BaseURL(), cfg.RefreshInterval(), events)
	defer coordinator.Close()

	app := ui.NewApp(ctx, ui.Deps{
		Fetch:   client.Listing,
		Thread:  client.Thread,
		Bus:     bus,
		Events:  events,
		Ring:    ring,
		Base:    client.BaseURL(),
		Policy:  retryPolicy(cfg),
		Trigger: trigger.Options{ArmDelay: cfg.ArmDelay(), Margin: cfg.Feed.TriggerMargin},
		Watch:   coordinator.Watch,
		Seen:    coordinator.Seen,
		Visit:   st.RecordVisit,
		Recent:  func() []string { return recentCommunities(st) },
	}, q)

	program := tea.NewProgram(app, tea.WithAltScreen())
	coordinator.Start(ctx, program)

	logging.Info("opening feed", "route", route.Format(q))
	_, runErr := program.Run()

	cancel()
	coordinator.Wait()
	if runErr != nil {
		events.Error(otel.KindError, "main", runErr)
		events.Info(otel.KindShutdown, "main", "")
		logging.Error("program exited", "error", runErr)
		return runErr
	}
	events.Info(otel.KindShutdown, "main", "")
	return nil
}

func dataDir() string {
	if dataDirFlag != "" {
		return dataDirFlag
	}
	return config.DataDir()
}

func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.LoadFrom(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func parseRoute(cfg *config.Config, args []string) (listing.Query, error) {
	loc := cfg.UI.DefaultRoute
	if len(args) > 0 {
		loc = args[0]
	}
	q, err := route.Parse(loc)
	if err != nil {
		return q, fmt.Errorf("parse route %q: %w", loc, err)
	}
	return q, nil
}

func newClient(cfg *config.Config) *listing.Client {
	return listing.NewClient(listing.Options{
		BaseURL:           cfg.API.BaseURL,
		UserAgent:         cfg.API.UserAgent,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
	})
}

func retryPolicy(cfg *config.Config) pager.RetryPolicy {
	return pager.RetryPolicy{
		Delay:       cfg.RetryDelay(),
		MaxDelay:    cfg.MaxRetryDelay(),
		MaxAttempts: cfg.Feed.MaxRetries,
	}
}

// openEvents opens the JSONL event log. The returned func flushes and
// closes it.
func openEvents(dir string) (*otel.Logger, func(), error) {
	f, err := os.OpenFile(eventLogPath(dir), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	events := otel.NewLogger(f)
	return events, func() {
		events.Close()
		f.Close()
	}, nil
}

func eventLogPath(dir string) string {
	return filepath.Join(dir, "redview.events.jsonl")
}

// recentCommunities feeds the route prompt's suggestions.
func recentCommunities(st *store.Store) []string {
	visits, err := st.RecentVisits(50)
	if err != nil {
		logging.Warn("recent visits", "error", err)
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, v := range visits {
		q, err := route.Parse(v.Route)
		if err != nil || q.Community == "" || seen[q.Community] {
			continue
		}
		seen[q.Community] = true
		out = append(out, q.Community)
	}
	return out
}
