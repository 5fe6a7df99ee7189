package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/redview/internal/listing"
)

var threadCmd = &cobra.Command{
	Use:   "thread <community> <id>",
	Short: "Print a post and its comments",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setupCLI()
		if err != nil {
			return err
		}
		th, err := newClient(cfg).Thread(cmd.Context(), args[0], args[1])
		if err != nil {
			if listing.IsNotFound(err) {
				return fmt.Errorf("post %s not found in /r/%s", args[1], args[0])
			}
			return err
		}
		printThread(cmd.OutOrStdout(), th)
		return nil
	},
}
