package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/consultant-1379/am-package-manager/internal/helm"
	"github.com/consultant-1379/am-package-manager/internal/product"
)

// TemplateSource renders the chart and collects the value of every "image"
// key of the rendered objects.
type TemplateSource struct {
	Renderer helm.Renderer
	Options  helm.Options
}

func (TemplateSource) Kind() Kind { return KindTemplate }

func (s TemplateSource) Discover(ctx context.Context, target *Target) (Result, error) {
	result := Result{Kind: KindTemplate}
	out, err := s.Renderer.Template(ctx, target.Dir, s.Options)
	if err != nil {
		return result, fmt.Errorf("cannot get Helm template for %s: %w", target.Path, err)
	}
	tmpl, err := helm.ParseTemplate(out)
	if err != nil {
		return result, fmt.Errorf("cannot parse Helm template for %s: %w", target.Path, err)
	}
	target.Template = tmpl

	for _, raw := range tmpl.Images() {
		if strings.Contains(raw, "{{") {
			// left to ScalarValuesSource
			continue
		}
		ref, ok := product.ParseReference(raw)
		if !ok {
			result.Issues.Warnf("invalid image reference %q in Helm template", raw)
			continue
		}
		result.Candidates = append(result.Candidates, Candidate{Ref: ref})
	}
	slog.DebugContext(ctx, "images found in helm template", "chart", target.Path, "count", len(result.Candidates))
	return result, nil
}
