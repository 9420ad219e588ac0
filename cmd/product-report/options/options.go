// Package options holds the flags shared by the product report commands and
// turns them into a report generator.
package options

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	amcmd "github.com/consultant-1379/am-package-manager/cmd/internal/cmd"
	"github.com/consultant-1379/am-package-manager/internal/archive"
	"github.com/consultant-1379/am-package-manager/internal/composition"
	"github.com/consultant-1379/am-package-manager/internal/configuration"
	amctx "github.com/consultant-1379/am-package-manager/internal/context"
	"github.com/consultant-1379/am-package-manager/internal/discovery"
	"github.com/consultant-1379/am-package-manager/internal/flags/enum"
	"github.com/consultant-1379/am-package-manager/internal/flags/file"
	"github.com/consultant-1379/am-package-manager/internal/helm"
	"github.com/consultant-1379/am-package-manager/internal/product"
	"github.com/consultant-1379/am-package-manager/internal/registry"
	"github.com/consultant-1379/am-package-manager/internal/report"
	"github.com/consultant-1379/am-package-manager/internal/validation"
)

// Register adds the flags shared by all product report commands to cmd.
func Register(cmd *cobra.Command) {
	defaults := configuration.Defaults()
	flags := cmd.Flags()

	flags.String(amcmd.ProductReportFlag, amcmd.ProductReportDefault, "path of the product report file to write")
	flags.Bool(amcmd.DisableHelmTemplateFlag, false,
		"do not render charts. Images are only taken from "+discovery.ProductInfoFile+" and must exist in the registry")
	flags.StringArray(amcmd.ValuesFlag, nil, "values file passed to helm template, can be repeated")
	flags.StringArray(amcmd.SetFlag, nil, "value passed to helm template with --set, can be repeated")
	flags.Bool(amcmd.HelmDebugFlag, false, "pass --debug to helm template")
	flags.String(amcmd.HelmCommandFlag, defaults.HelmCommand, "helm binary used to render charts")
	file.Var(flags, amcmd.DockerConfigFlag, defaults.DockerConfig, "docker configuration directory or file holding registry credentials")
	flags.Int(amcmd.ConcurrencyLimitFlag, defaults.ConcurrencyLimit, "maximum number of parallel registry requests")
	flags.Bool(amcmd.PlainHTTPFlag, defaults.PlainHTTP, "connect to registries over plain HTTP")
	enum.Var(flags, amcmd.SummaryFlag, report.SummaryFormats, "summary printed after the report was written")
}

// Options are the product report settings of one invocation.
type Options struct {
	Output          string
	DisableTemplate bool
	Helm            helm.Options
	Summary         string
	Config          configuration.Config
}

// FromCommand reads the flags registered with Register and the
// configuration stored in the command context.
func FromCommand(cmd *cobra.Command) (*Options, error) {
	flags := cmd.Flags()
	opts := &Options{}

	var err error
	if opts.Output, err = flags.GetString(amcmd.ProductReportFlag); err != nil {
		return nil, fmt.Errorf("getting product report flag failed: %w", err)
	}
	if opts.DisableTemplate, err = flags.GetBool(amcmd.DisableHelmTemplateFlag); err != nil {
		return nil, fmt.Errorf("getting disable helm template flag failed: %w", err)
	}
	if opts.Helm.Values, err = flags.GetStringArray(amcmd.ValuesFlag); err != nil {
		return nil, fmt.Errorf("getting values flag failed: %w", err)
	}
	if opts.Helm.Set, err = flags.GetStringArray(amcmd.SetFlag); err != nil {
		return nil, fmt.Errorf("getting set flag failed: %w", err)
	}
	if opts.Helm.Debug, err = flags.GetBool(amcmd.HelmDebugFlag); err != nil {
		return nil, fmt.Errorf("getting helm debug flag failed: %w", err)
	}
	if opts.Summary, err = enum.Get(flags, amcmd.SummaryFlag); err != nil {
		return nil, fmt.Errorf("getting summary flag failed: %w", err)
	}

	var errs []error
	for _, values := range opts.Helm.Values {
		f := &file.Flag{}
		if err := f.Set(values); err != nil {
			errs = append(errs, err)
		} else if err := f.MustExist(); err != nil {
			errs = append(errs, fmt.Errorf("values file %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg := amctx.FromContext(cmd.Context()).Configuration(); cfg != nil {
		opts.Config = *cfg
	} else {
		slog.DebugContext(cmd.Context(), "no configuration in context, using defaults")
		opts.Config = configuration.Defaults()
	}
	return opts, nil
}

// Generator assembles the report generator for packages of the given kind.
// Helmfiles are never rendered.
func (o *Options) Generator(ctx context.Context, kind product.PackageKind, checks ...report.Check) (*report.Generator, error) {
	store, err := registry.NewCredentialStore(ctx, o.Config.DockerConfig)
	if err != nil {
		return nil, err
	}
	remote, err := registry.NewRemote(
		registry.WithCredentialStore(store),
		registry.WithPlainHTTP(o.Config.PlainHTTP),
	)
	if err != nil {
		return nil, err
	}

	disableTemplate := o.DisableTemplate || kind == product.KindHelmfile
	if disableTemplate {
		slog.InfoContext(ctx, "helm template rendering is disabled, images are taken from product metadata only")
	}
	limit := o.Config.ConcurrencyLimit
	if limit < 1 {
		limit = runtime.GOMAXPROCS(0)
	}

	return &report.Generator{
		Builder: &composition.Builder{
			Extractor: &archive.Extractor{TempFolder: o.Config.TempFolder},
			Policy: discovery.Policy{
				DisableTemplate: disableTemplate,
				Renderer:        &helm.Command{Binary: o.Config.HelmCommand},
				Options:         o.Helm,
			},
			Kind: kind,
		},
		Validator: &validation.Validator{
			Registry:         remote,
			RequireExists:    disableTemplate,
			ConcurrencyLimit: limit,
		},
		Output: o.Output,
		Checks: checks,
	}, nil
}

// Run generates the report for archives and prints the summary to the
// output of cmd. The summary is printed even if the run failed, as long as
// the report was written.
func (o *Options) Run(cmd *cobra.Command, kind product.PackageKind, archives []string, checks ...report.Check) error {
	ctx := cmd.Context()
	gen, err := o.Generator(ctx, kind, checks...)
	if err != nil {
		return fmt.Errorf("could not set up product report: %w", err)
	}

	result, err := gen.Generate(ctx, archives...)
	if result != nil {
		if serr := report.WriteSummary(cmd.OutOrStdout(), o.Summary, result); serr != nil {
			err = errors.Join(err, serr)
		}
	}
	if err != nil {
		return fmt.Errorf("product report %s: %w", o.Output, err)
	}
	slog.InfoContext(ctx, "product report generated successfully", "file", o.Output)
	return nil
}
