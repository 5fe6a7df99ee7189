package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/redview/internal/listing"
	"github.com/abelbrown/redview/internal/logging"
	"github.com/abelbrown/redview/internal/pager"
	"github.com/abelbrown/redview/internal/route"
)

var (
	peekPages int
	peekJSON  bool
)

var peekCmd = &cobra.Command{
	Use:   "peek [route]",
	Short: "Fetch listing pages and print them",
	Long: `Fetch the first pages of a listing the same way the TUI does while
scrolling, following continuation cursors and retrying transient errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPeek,
}

func init() {
	peekCmd.Flags().IntVarP(&peekPages, "pages", "n", 1, "Number of pages to fetch")
	peekCmd.Flags().BoolVar(&peekJSON, "json", false, "Print each record as received, one per line")
}

func runPeek(cmd *cobra.Command, args []string) error {
	cfg, err := setupCLI()
	if err != nil {
		return err
	}
	q, err := parseRoute(cfg, args)
	if err != nil {
		return err
	}
	if peekPages < 1 {
		return fmt.Errorf("--pages must be at least 1")
	}

	client := newClient(cfg)
	logging.Debug("peek", "route", route.Format(q), "pages", peekPages)
	pages, walkErr := pager.Walk(cmd.Context(), client, client.BaseURL(), q, peekPages, retryPolicy(cfg))

	out := cmd.OutOrStdout()
	if peekJSON {
		enc := json.NewEncoder(out)
		for _, p := range pages {
			for _, it := range p.Items {
				if err := enc.Encode(it); err != nil {
					return err
				}
			}
		}
	} else {
		printPages(out, pages)
	}

	if walkErr != nil {
		if listing.IsNotFound(walkErr) {
			return fmt.Errorf("community %q not found", q.Community)
		}
		return walkErr
	}
	return nil
}
