package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/flightlab/internal/config"
	"github.com/san-kum/flightlab/internal/experiment"
)

var pilotsCmd = &cobra.Command{
	Use:   "pilots",
	Short: "list built-in pilots and their parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := experiment.NewRegistry()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PILOT\tPARAMS\tDESCRIPTION")
		for _, name := range r.List() {
			p, _ := r.Get(name)
			params := make([]string, 0, len(p.Defaults))
			for k, v := range p.Defaults {
				params = append(params, fmt.Sprintf("%s=%g", k, v))
			}
			sort.Strings(params)
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, strings.Join(params, " "), p.Description)
		}
		return w.Flush()
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "list episode presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PRESET\tMAX TIME\tRUN BUDGET\tROSTER")
		for _, name := range config.ListPresets() {
			cfg := config.GetPreset(name)
			roster := make([]string, len(cfg.Roster))
			for i, e := range cfg.Roster {
				roster[i] = e.Name + "=" + e.Pilot
			}
			fmt.Fprintf(w, "%s\t%gs\t%v\t%s\n", name, cfg.MaxTime, cfg.Budgets.Run, strings.Join(roster, " "))
		}
		return w.Flush()
	},
}
