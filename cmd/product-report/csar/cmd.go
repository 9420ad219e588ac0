package csar

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consultant-1379/am-package-manager/cmd/product-report/options"
	"github.com/consultant-1379/am-package-manager/internal/archive"
	"github.com/consultant-1379/am-package-manager/internal/flags/file"
	"github.com/consultant-1379/am-package-manager/internal/product"
	"github.com/consultant-1379/am-package-manager/internal/report"
)

const (
	FlagCSARFile        = "csar-file"
	FlagHelmfile        = "helmfile"
	FlagNoCompareImages = "no-compare-images"
	FlagNoCompareHost   = "no-compare-host"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csar --csar-file {package.csar}",
		Short: "Generate a product report for the charts of a CSAR package",
		Long: fmt.Sprintf(`Generate a product report for every archive below %[1]s of a CSAR package.

The archives are reported on like with the helm command. With --%[3]s they are
treated as helmfiles instead: packages are described by their metadata.yaml and
images are only taken from product metadata.

Unless --%[4]s is given, the images of the report are compared with the image
list in %[2]s. With --%[5]s the registry host is ignored in that comparison.`,
			archive.CSARChartsDir, archive.CSARImagesFile, FlagHelmfile, FlagNoCompareImages, FlagNoCompareHost),
		Example: strings.TrimSpace(`
am-package-manager product-report csar --csar-file eric-app-1.0.0.csar
am-package-manager product-report csar --csar-file eric-app-1.0.0.csar --helmfile --no-compare-host
`),
		RunE:              GenerateProductReport,
		DisableAutoGenTag: true,
	}

	file.Var(cmd.Flags(), FlagCSARFile, "", "CSAR package to report on")
	_ = cmd.MarkFlagRequired(FlagCSARFile)
	cmd.Flags().Bool(FlagHelmfile, false, "the archives of the package are helmfiles")
	cmd.Flags().Bool(FlagNoCompareImages, false, "do not compare the report with "+archive.CSARImagesFile)
	cmd.Flags().Bool(FlagNoCompareHost, false, "ignore the registry host when comparing with "+archive.CSARImagesFile)
	options.Register(cmd)
	return cmd
}

func GenerateProductReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	csarFile, err := file.Get(cmd.Flags(), FlagCSARFile)
	if err != nil {
		return fmt.Errorf("getting csar file flag failed: %w", err)
	}
	if err := csarFile.MustExist(); err != nil {
		return fmt.Errorf("csar file %w", err)
	}
	helmfile, err := cmd.Flags().GetBool(FlagHelmfile)
	if err != nil {
		return fmt.Errorf("getting helmfile flag failed: %w", err)
	}
	noCompareImages, err := cmd.Flags().GetBool(FlagNoCompareImages)
	if err != nil {
		return fmt.Errorf("getting no compare images flag failed: %w", err)
	}
	noCompareHost, err := cmd.Flags().GetBool(FlagNoCompareHost)
	if err != nil {
		return fmt.Errorf("getting no compare host flag failed: %w", err)
	}

	opts, err := options.FromCommand(cmd)
	if err != nil {
		return err
	}

	extractor := &archive.Extractor{TempFolder: opts.Config.TempFolder}
	csar, err := extractor.ExtractCSAR(ctx, csarFile.String())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := csar.Close(); cerr != nil {
			slog.WarnContext(ctx, "could not remove scratch directory", "path", csar.Root, "error", cerr.Error())
		}
	}()
	if len(csar.Charts) == 0 {
		return fmt.Errorf("no archives found below %s in %s", archive.CSARChartsDir, csarFile.String())
	}

	var checks []report.Check
	if noCompareImages {
		slog.DebugContext(ctx, "skipping image list validation")
	} else {
		checks = append(checks, compareImages(csar, !noCompareHost))
	}

	kind := product.KindChart
	if helmfile {
		kind = product.KindHelmfile
	}
	return opts.Run(cmd, kind, csar.Charts, checks...)
}

// compareImages checks the report against the image list of the package.
// A package without a readable image list fails the check.
func compareImages(csar *archive.CSAR, compareHost bool) report.Check {
	expected, err := csar.Images()
	if err != nil {
		return func(report.Inventory) []product.Issue {
			return []product.Issue{{Severity: product.SeverityError, Path: report.InventoryPath, Message: err.Error()}}
		}
	}
	return report.CheckExpectedImages(expected, !compareHost)
}
