package cmd

import (
	"os"

	"github.com/spf13/cobra"

	amcmd "github.com/consultant-1379/am-package-manager/cmd/internal/cmd"
	productreport "github.com/consultant-1379/am-package-manager/cmd/product-report"
	"github.com/consultant-1379/am-package-manager/cmd/setup/hooks"
	"github.com/consultant-1379/am-package-manager/cmd/version"
	"github.com/consultant-1379/am-package-manager/internal/flags/log"
)

// Execute runs the root command. This is called by main.main().
func Execute() {
	err := New().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "am-package-manager [sub-command]",
		Short: "Generate product reports for Helm chart and CSAR deliveries",
		Long: `am-package-manager inspects Helm chart archives and CSAR packages and
  reports the packages and container images they deliver.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: hooks.PreRunE,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.PersistentFlags().String(amcmd.ConfigFlag, "", `supply configuration by a given configuration file.
By default the first of these files is read if it exists:
- $XDG_CONFIG_HOME/am-package-manager/config.yaml
- $HOME/.am-package-manager.yaml
Every setting can also be given as AMPM_ environment variable, e.g. AMPM_HELM_COMMAND.`)
	cmd.PersistentFlags().String(amcmd.TempFolderFlag, "", `Specify a custom temporary folder path for archive extraction.`)
	log.RegisterLoggingFlags(cmd.PersistentFlags())

	cmd.AddCommand(productreport.New())
	cmd.AddCommand(version.New())
	return cmd
}
