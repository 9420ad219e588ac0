package setup

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	amcmd "github.com/consultant-1379/am-package-manager/cmd/internal/cmd"
	"github.com/consultant-1379/am-package-manager/internal/configuration"
	amctx "github.com/consultant-1379/am-package-manager/internal/context"
)

// ConfigurationOption adjusts the loaded configuration before it is stored
// in the command context.
type ConfigurationOption func(cfg *configuration.Config)

func WithTempFolder(tempFolder string) ConfigurationOption {
	return func(cfg *configuration.Config) {
		if tempFolder == "" {
			return
		}
		if cfg.TempFolder != "" && cfg.TempFolder != tempFolder {
			slog.Warn("temp folder was configured with value, will be overwritten by value",
				slog.String("original", cfg.TempFolder), slog.String("new", tempFolder))
		}
		cfg.TempFolder = tempFolder
	}
}

// Configuration loads the configuration for cmd from the file given with the
// config flag, the default locations, the environment and the flags of cmd,
// and stores it in the command context.
func Configuration(cmd *cobra.Command, configFile string, opts ...ConfigurationOption) error {
	if configFile == "" {
		if v, err := cmd.Flags().GetString(amcmd.ConfigFlag); err == nil {
			configFile = v
		}
	}

	cfg, err := configuration.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.File != "" {
		slog.DebugContext(cmd.Context(), "loaded configuration", slog.String("file", cfg.File))
	}

	cmd.SetContext(amctx.WithConfiguration(cmd.Context(), cfg))
	return nil
}
