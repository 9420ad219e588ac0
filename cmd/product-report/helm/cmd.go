package helm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consultant-1379/am-package-manager/cmd/product-report/options"
	"github.com/consultant-1379/am-package-manager/internal/flags/file"
	"github.com/consultant-1379/am-package-manager/internal/product"
)

const FlagHelmChartFile = "helm-chart-file"

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "helm --helm-chart-file {archive} [--helm-chart-file {archive}...]",
		Short: "Generate a product report for Helm chart archives",
		Long: `Generate a product report for one or more Helm chart archives.

Every archive, its dependencies below charts/ and its extension packages below
eric-crd/ are walked. Images are discovered from eric-product-info.yaml, from
the rendered chart and from the image settings of the chart values, checked
against each other and against the registry, and written to the product report
together with the archives themselves.

The report is written even if errors are found, in which case the command
fails after logging them.`,
		Example: strings.TrimSpace(`
# Report on a single chart
am-package-manager product-report helm --helm-chart-file eric-app-1.0.0.tgz

# Report on several charts with additional values, without rendering
am-package-manager product-report helm --helm-chart-file a-1.0.0.tgz --helm-chart-file b-2.0.0.tgz \
  --values site.yaml --disable-helm-template --product-report report.yaml
`),
		RunE:              GenerateProductReport,
		DisableAutoGenTag: true,
	}

	cmd.Flags().StringArray(FlagHelmChartFile, nil, "Helm chart archive to report on, can be repeated")
	_ = cmd.MarkFlagRequired(FlagHelmChartFile)
	options.Register(cmd)
	return cmd
}

func GenerateProductReport(cmd *cobra.Command, _ []string) error {
	archives, err := cmd.Flags().GetStringArray(FlagHelmChartFile)
	if err != nil {
		return fmt.Errorf("getting helm chart file flag failed: %w", err)
	}
	var errs []error
	for _, archive := range archives {
		f := &file.Flag{}
		if err := f.Set(archive); err != nil {
			errs = append(errs, err)
		} else if err := f.MustExist(); err != nil {
			errs = append(errs, fmt.Errorf("helm chart file %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	opts, err := options.FromCommand(cmd)
	if err != nil {
		return err
	}
	return opts.Run(cmd, product.KindChart, archives)
}
