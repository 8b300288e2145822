// Package cmd implements the present CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-drift/present/cmd/present/internal/replay"
	"github.com/go-drift/present/pkg/config"
	"github.com/go-drift/present/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeExpectation indicates a replay ran but one of its expectations failed.
	ExitCodeExpectation = 2
)

// envPrefix prefixes the environment variables that back the global flags,
// e.g. PRESENT_LOG_LEVEL for --log-level.
const envPrefix = "PRESENT"

var version = "0.1.0-dev"

// SetVersion sets the version reported by --version and the version command.
func SetVersion(v string) {
	version = v
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	dir      string
	logLevel string
	noColor  bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "present",
		Short: "Replay and validate presentation scripts",
		Long: `present drives the presentation engine from YAML scripts.

A script declares descriptors and a list of steps (present, dismiss, tick,
route, settle, expect). "present replay" runs it against in-memory
controllers and views and prints the resulting stack and handles.
Settings are read from present.yaml in --dir; every global flag can also
be set through a PRESENT_ environment variable.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindEnv(cmd.Flags())
		},
	}
	root.SetVersionTemplate(`{{printf "present version %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.dir, "dir", ".", "Directory containing present.yaml")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides present.yaml")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newReplayCmd(opts),
		newValidateCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and exits with a code describing the failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var expErr *replay.ExpectationError
	if errors.As(err, &expErr) {
		return ExitCodeExpectation
	}
	return ExitCodeError
}

// bindEnv fills every flag the user did not set from its environment
// variable.
func bindEnv(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		val := fmt.Sprintf("%v", v.Get(f.Name))
		if val == "" {
			return
		}
		if err := f.Value.Set(val); err != nil {
			errs = append(errs, fmt.Errorf("%s_%s: %w", envPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err))
		}
	})
	return errors.Join(errs...)
}

// setup resolves present.yaml and builds the logger, honoring --log-level.
func (o *globalOptions) setup() (*config.Resolved, logr.Logger, error) {
	cfg, err := config.Resolve(o.dir)
	if err != nil {
		return nil, logr.Discard(), err
	}
	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	log, err := logging.New(level)
	if err != nil {
		return nil, logr.Discard(), err
	}
	return cfg, log, nil
}
