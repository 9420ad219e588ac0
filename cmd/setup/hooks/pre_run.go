package hooks

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	amcmd "github.com/consultant-1379/am-package-manager/cmd/internal/cmd"
	"github.com/consultant-1379/am-package-manager/cmd/setup"
	amctx "github.com/consultant-1379/am-package-manager/internal/context"
	"github.com/consultant-1379/am-package-manager/internal/flags/log"
)

/*
   ──────────────────────────
   Option interface + builder
   ──────────────────────────
*/

// Option is the single interface all options implement.
type Option interface {
	Apply(b *Builder) error
}

// optionFunc lets simple functions satisfy Option.
type optionFunc func(*Builder) error

func (f optionFunc) Apply(b *Builder) error { return f(b) }

type Builder struct {
	cmd *cobra.Command

	configFile string
	cfgOpts    map[string]setup.ConfigurationOption
}

func newBuilder(cmd *cobra.Command) *Builder {
	return &Builder{
		cmd:     cmd,
		cfgOpts: make(map[string]setup.ConfigurationOption),
	}
}

func (b *Builder) setConfig(key string, opt setup.ConfigurationOption) {
	b.cfgOpts[key] = opt
}

/*
   ──────────────────────────
   Option constructors
   ──────────────────────────
*/

// WithConfigFile reads the configuration from path unless the config flag
// is given.
func WithConfigFile(path string) Option {
	return optionFunc(func(b *Builder) error {
		b.configFile = path
		return nil
	})
}

// WithTempFolder configures the folder archives are extracted into.
func WithTempFolder(value string) Option {
	return optionFunc(func(b *Builder) error {
		b.setConfig(amcmd.TempFolderFlag, setup.WithTempFolder(value))
		return nil
	})
}

/*
   ──────────────────────────
   PreRun entry points
   ──────────────────────────
*/

// PreRunE sets up the command with defaults (no extra options).
func PreRunE(cmd *cobra.Command, args []string) error {
	return PreRunEWithOptions(cmd, args)
}

// PreRunEWithOptions applies options, then overrides with CLI flags.
func PreRunEWithOptions(cmd *cobra.Command, _ []string, opts ...Option) error {
	logger, err := log.GetBaseLogger(cmd)
	if err != nil {
		return fmt.Errorf("could not retrieve logger: %w", err)
	}
	slog.SetDefault(logger)

	amctx.Register(cmd)

	b := newBuilder(cmd)
	for _, opt := range opts {
		if err := opt.Apply(b); err != nil {
			return fmt.Errorf("apply option: %w", err)
		}
	}

	// CLI flags take precedence over the builder state
	if flag := cmd.Flags().Lookup(amcmd.ConfigFlag); flag != nil && flag.Changed {
		b.configFile = flag.Value.String()
	}
	if flag := cmd.Flags().Lookup(amcmd.TempFolderFlag); flag != nil && flag.Changed {
		if v, err := cmd.Flags().GetString(amcmd.TempFolderFlag); err == nil && v != "" {
			b.setConfig(amcmd.TempFolderFlag, setup.WithTempFolder(v))
		} else if err != nil {
			slog.DebugContext(cmd.Context(), "could not read temp folder flag value", slog.String("error", err.Error()))
		}
	}

	cfgOpts := make([]setup.ConfigurationOption, 0, len(b.cfgOpts))
	for _, opt := range b.cfgOpts {
		cfgOpts = append(cfgOpts, opt)
	}
	if err := setup.Configuration(cmd, b.configFile, cfgOpts...); err != nil {
		return err
	}

	// inherit IO from parent if exists
	if parent := cmd.Parent(); parent != nil {
		cmd.SetOut(parent.OutOrStdout())
		cmd.SetErr(parent.ErrOrStderr())
	}

	return nil
}
