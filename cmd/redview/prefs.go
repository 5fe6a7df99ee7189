package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/redview/internal/prefs"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect and change stored preferences",
	Long: `Inspect and change the preferences the TUI shares between views.

Known keys:
  favorites    comma separated community names
  expandMedia  true or false
  liveRefresh  true or false`,
}

var prefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setupCLI(); err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		list, err := st.Preferences()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no preferences stored")
			return nil
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("KEY", "VALUE", "UPDATED")
		for _, p := range list {
			t.Row(p.Key, string(p.Value), humanize.Time(p.Updated))
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.String())
		return nil
	},
}

var prefsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one preference, or its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setupCLI(); err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		bus := prefs.NewBus(st, nil)

		var v any
		switch key := args[0]; key {
		case prefs.KeyFavorites:
			v = prefs.Read(bus, key, prefs.DefaultFavorites)
		case prefs.KeyExpandMedia:
			v = prefs.Read(bus, key, prefs.DefaultExpandMedia)
		case prefs.KeyLiveRefresh:
			v = prefs.Read(bus, key, prefs.DefaultLiveRefresh)
		default:
			raw, ok, err := st.Get(key)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no preference %q", key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a preference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setupCLI(); err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		return setPref(prefs.NewBus(st, nil), args[0], args[1])
	},
}

var prefsFavoriteCmd = &cobra.Command{
	Use:   "favorite <community>",
	Short: "Add or remove a favorite community",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setupCLI(); err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		bus := prefs.NewBus(st, nil)

		favs := prefs.ToggleFavorite(prefs.Read(bus, prefs.KeyFavorites, prefs.DefaultFavorites), args[0])
		if err := prefs.Write(bus, prefs.KeyFavorites, favs); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(favs, ", "))
		return nil
	},
}

func init() {
	prefsCmd.AddCommand(prefsListCmd)
	prefsCmd.AddCommand(prefsGetCmd)
	prefsCmd.AddCommand(prefsSetCmd)
	prefsCmd.AddCommand(prefsFavoriteCmd)
}

// setPref parses value for the known keys. Other keys take raw JSON.
func setPref(bus *prefs.Bus, key, value string) error {
	switch key {
	case prefs.KeyFavorites:
		favs := []string{}
		for _, f := range strings.Split(value, ",") {
			if !prefs.IsFavorite(favs, strings.TrimSpace(f)) {
				favs = prefs.ToggleFavorite(favs, f)
			}
		}
		return prefs.Write(bus, key, favs)
	case prefs.KeyExpandMedia, prefs.KeyLiveRefresh:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		return prefs.Write(bus, key, b)
	}
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("value for %q must be JSON", key)
	}
	return prefs.Write(bus, key, json.RawMessage(value))
}
