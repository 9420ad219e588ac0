// Package validation cross-checks the images of a composition tree between
// their sources and against the registry, and resolves them into the image
// records that end up in the report.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/consultant-1379/am-package-manager/internal/composition"
	"github.com/consultant-1379/am-package-manager/internal/discovery"
	"github.com/consultant-1379/am-package-manager/internal/product"
	"github.com/consultant-1379/am-package-manager/internal/registry"
)

// Validator resolves the images of composition trees.
type Validator struct {
	Registry registry.Client
	// RequireExists makes every image missing from the registry an error.
	// It is set when templates are not rendered and the registry is the only
	// corroboration of the metadata.
	RequireExists bool
	// ConcurrencyLimit bounds the number of parallel registry lookups,
	// runtime.GOMAXPROCS if not positive.
	ConcurrencyLimit int
}

// job is one registry lookup. Each worker writes only its own job.
type job struct {
	node      *composition.Node
	candidate discovery.Candidate

	exists bool
	digest string
	labels map[string]string
	err    error
}

// Validate cross-checks the sources of every included node, looks up every
// accepted image in the registry and stores the resulting records on the
// nodes. Problems are recorded on the node the image was found on. The
// returned error wraps registry.ErrTransport if the registry could not be
// queried for at least one image; all lookups are completed regardless.
func (v *Validator) Validate(ctx context.Context, roots ...*composition.Node) error {
	var jobs []*job
	for _, root := range roots {
		for node := range root.Walk() {
			for _, c := range accepted(node) {
				jobs = append(jobs, &job{node: node, candidate: c})
			}
		}
	}

	limit := v.ConcurrencyLimit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	slog.InfoContext(ctx, "resolving images", "count", len(jobs), "concurrency", limit)

	// lookups never fail the group so that every dispatched lookup completes
	var eg errgroup.Group
	eg.SetLimit(limit)
	for _, j := range jobs {
		eg.Go(func() error {
			v.lookup(ctx, j)
			return nil
		})
	}
	_ = eg.Wait()

	var transportErrs []error
	for _, j := range jobs {
		if err := v.record(j); err != nil {
			transportErrs = append(transportErrs, err)
		}
	}
	if len(transportErrs) > 0 {
		return fmt.Errorf("%d registry lookups failed: %w", len(transportErrs), errors.Join(transportErrs...))
	}
	return nil
}

// accepted cross-checks the sources of the node and returns the candidates
// that are resolved into image records.
func accepted(node *composition.Node) []discovery.Candidate {
	candidates := slices.Clone(node.Declared)
	if !node.Include {
		return candidates
	}

	declared := map[string]bool{}
	for dep := range node.Dependencies() {
		for _, c := range dep.Declared {
			declared[c.Ref.String()] = true
		}
	}
	if len(declared) == 0 {
		// without metadata the rendered images are authoritative
		return append(candidates, node.Rendered...)
	}
	if !node.Templated {
		return candidates
	}

	rendered := map[string]bool{}
	for _, c := range node.Rendered {
		rendered[c.Ref.String()] = true
		if !declared[c.Ref.String()] {
			node.Issues.Errorf("image %s found in the Helm template but not in %s", c.Ref, discovery.ProductInfoFile)
		}
	}
	for _, ref := range slices.Sorted(maps.Keys(declared)) {
		if !rendered[ref] {
			node.Issues.Warnf("image %s listed in %s but not found in the Helm template", ref, discovery.ProductInfoFile)
		}
	}
	return candidates
}

func (v *Validator) lookup(ctx context.Context, j *job) {
	ref := j.candidate.Ref
	if v.RequireExists {
		if j.exists, j.err = v.Registry.Exists(ctx, ref); j.err != nil || !j.exists {
			return
		}
	}
	dgst, err := v.Registry.ManifestDigest(ctx, ref)
	if err != nil {
		j.err = err
		return
	}
	j.digest = dgst.Encoded()
	if j.labels, err = v.Registry.Labels(ctx, ref); err != nil {
		j.err = err
	}
}

// record turns a completed lookup into an image record on its node. It
// returns the lookup error if it was a transport failure.
func (v *Validator) record(j *job) error {
	node, ref := j.node, j.candidate.Ref
	switch {
	case errors.Is(j.err, registry.ErrTransport):
		node.Issues.Errorf("could not add %s: %v", ref, j.err)
		return j.err
	case v.RequireExists && j.err == nil && !j.exists:
		node.Issues.Errorf("image %s does not exist in the registry", ref)
		return nil
	case j.err != nil:
		node.Issues.Errorf("could not add %s: %v", ref, j.err)
		return nil
	}

	labeled := product.ImageFromLabels(ref, j.labels, j.digest)
	image := labeled
	if declared := j.candidate.Declared; declared != nil {
		image = reconcile(node, product.ImageFromMetadata(*declared, j.digest), labeled)
	}
	image.Path = node.Path
	node.Images = append(node.Images, image)
	return nil
}

// reconcile picks between the record declared by product metadata and the
// record derived from the image labels. Metadata wins unless it is
// incomplete and the labels are not; disagreeing complete records are an
// error.
func reconcile(node *composition.Node, declared, labeled product.Image) product.Image {
	declaredValid, labeledValid := product.Valid(declared), product.Valid(labeled)
	if declaredValid && labeledValid {
		if diffs := product.Diff(labeled, declared); len(diffs) > 0 {
			lines := make([]string, 0, len(diffs))
			for _, d := range diffs {
				lines = append(lines, fmt.Sprintf("  %s: labels %q, %s %q", d.Name, d.Left, discovery.ProductInfoFile, d.Right))
			}
			node.Issues.Errorf("image labels not matching product info in %s:\n%s", declared.Image, strings.Join(lines, "\n"))
		}
		return declared
	}
	if !declaredValid && labeledValid {
		node.Issues.Warnf("%s not valid on %s, using image labels as source:\n%s",
			discovery.ProductInfoFile, labeled, product.Describe(declared))
		return labeled
	}
	return declared
}
