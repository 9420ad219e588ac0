// Package discovery finds the images a chart references. Three sources are
// available: the product metadata file shipped in the chart, the rendered
// chart templates and, for charts that pass image references through scalar
// values, the default values of the chart. A Policy decides which of them
// run for a chart.
package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/consultant-1379/am-package-manager/internal/helm"
	"github.com/consultant-1379/am-package-manager/internal/product"
)

// ErrMetadataRequired is returned when template rendering is disabled and a
// chart does not ship product metadata, leaving no source for its images.
var ErrMetadataRequired = errors.New("product metadata required when template rendering is disabled")

// Kind identifies a discovery source.
type Kind int

const (
	KindMetadata Kind = iota
	KindTemplate
	KindScalarValues
)

func (k Kind) String() string {
	switch k {
	case KindMetadata:
		return "metadata"
	case KindTemplate:
		return "template"
	case KindScalarValues:
		return "values"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Target is the chart a source discovers images for.
type Target struct {
	// Dir is the extracted chart directory.
	Dir string
	// Path is the logical path of the chart.
	Path string
	// Info is the product metadata of the chart, nil if it has none.
	Info *ProductInfo
	// MetadataOptional exempts the target from MetadataSource.Required.
	// Helmfile archives are not charts and need no product metadata.
	MetadataOptional bool
	// Template is the rendered chart. It is set by TemplateSource and nil
	// until the chart was rendered successfully.
	Template *helm.Template
}

// Candidate is an image reference found by a source.
type Candidate struct {
	Ref product.Reference
	// Declared is the metadata entry the reference was built from, nil for
	// references found in templates or values.
	Declared *product.MetadataImage
}

// Result is what a source found for a target.
type Result struct {
	Kind       Kind
	Candidates []Candidate
	Issues     product.Issues
}

// Source discovers image references of a chart.
type Source interface {
	Kind() Kind
	// Discover returns the references found. Problems with individual
	// entries are reported in the result's issues; an error means the source
	// could not run at all.
	Discover(ctx context.Context, target *Target) (Result, error)
}

// Policy selects the sources that run for a chart.
type Policy struct {
	// DisableTemplate leaves the product metadata as the only source.
	DisableTemplate bool
	Renderer        helm.Renderer
	Options         helm.Options
}

// Sources returns the sources for a chart, in the order they must run.
// Metadata is read for every chart. Templates are only rendered for charts
// listed in the report, since rendering a chart covers its dependencies.
func (p Policy) Sources(included bool) []Source {
	sources := []Source{MetadataSource{Required: p.DisableTemplate}}
	if included && !p.DisableTemplate {
		sources = append(sources,
			TemplateSource{Renderer: p.Renderer, Options: p.Options},
			ScalarValuesSource{Renderer: p.Renderer},
		)
	}
	return sources
}
