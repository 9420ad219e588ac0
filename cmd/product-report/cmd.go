package productreport

import (
	"github.com/spf13/cobra"

	"github.com/consultant-1379/am-package-manager/cmd/product-report/csar"
	"github.com/consultant-1379/am-package-manager/cmd/product-report/helm"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "product-report {helm|csar}",
		Aliases: []string{"pr", "report"},
		Short:   "Generate a product report listing the packages and images of a delivery",
		Long: `Generate a product report.

The product report lists every included package with its product number and
version and every container image that is part of the delivery. It is written
as YAML with the packages and images below "includes".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
	}
	cmd.AddCommand(helm.New())
	cmd.AddCommand(csar.New())
	return cmd
}
