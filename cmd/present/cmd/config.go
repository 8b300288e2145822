package cmd

import (
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.setup()
			if err != nil {
				return err
			}
			r := newRenderer(cmd.OutOrStdout(), opts.noColor)

			level := cfg.LogLevel
			if opts.logLevel != "" {
				level = strings.ToLower(opts.logLevel)
			}
			r.table("Settings", table.Row{"Key", "Value"}, []table.Row{
				{"version", cfg.Version},
				{"logging.level", level},
				{"timers.policy", cfg.TimerPolicy.String()},
				{"popupLayer", cfg.PopupLayer},
			})

			if len(cfg.Descriptors) == 0 {
				return nil
			}
			names := make([]string, 0, len(cfg.Descriptors))
			for name := range cfg.Descriptors {
				names = append(names, name)
			}
			sort.Strings(names)
			rows := make([]table.Row, 0, len(names))
			for _, name := range names {
				d := cfg.Descriptors[name]
				resource := d.Resource
				if resource == "" {
					resource = "-"
				}
				rows = append(rows, table.Row{name, resource, d.Options.String()})
			}
			r.table("Descriptors", table.Row{"Name", "Resource", "Options"}, rows)
			return nil
		},
	}
}
