package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/go-drift/present/cmd/present/internal/replay"
	"github.com/go-drift/present/pkg/config"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [SCRIPT...]",
		Short: "Check present.yaml and presentation scripts",
		Long: `Check present.yaml in --dir and every script given, reporting all
problems found rather than stopping at the first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newRenderer(cmd.OutOrStdout(), opts.noColor)
			var errs error

			cfgName := filepath.Join(opts.dir, config.FileName)
			if cfg, err := config.Resolve(opts.dir); err != nil {
				for _, e := range multierr.Errors(err) {
					r.fail("%s: %v", cfgName, e)
				}
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", cfgName, err))
			} else {
				r.ok("%s: ok (version %s, %d descriptor overrides)", cfgName, cfg.Version, len(cfg.Descriptors))
			}

			for _, path := range args {
				s, err := replay.Load(path)
				if err != nil {
					r.fail("%s: %v", path, err)
					errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
					continue
				}
				r.ok("%s: ok (%d descriptors, %d steps)", path, len(s.Descriptors), len(s.Steps))
			}
			return errs
		},
	}
}
