package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/redview/internal/logging"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently opened feeds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setupCLI(); err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		logging.Debug("listing history", "limit", historyLimit)
		defer st.Close()

		visits, err := st.RecentVisits(historyLimit)
		if err != nil {
			return err
		}
		for _, v := range visits {
			fmt.Fprintf(cmd.OutOrStdout(), "%-40s %4dx  %s\n", v.Route, v.Count, humanize.Time(v.Last))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of feeds to list")
}
