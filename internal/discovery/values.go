package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/consultant-1379/am-package-manager/internal/helm"
	"github.com/consultant-1379/am-package-manager/internal/product"
)

// ScalarValuesSource builds image references from the default values of a
// chart whose rendered template still contains unresolved image lines. The
// values must follow the convention
//
//	global:
//	  registry:
//	    url: <registry>
//	<subchart>:
//	  imageCredentials:
//	    repoPath: <repo path>
//	  images:
//	    <key>:
//	      name: <name>
//	      tag: <tag>
//
// Anything missing is reported as a warning and skipped.
type ScalarValuesSource struct {
	Renderer helm.Renderer
}

func (ScalarValuesSource) Kind() Kind { return KindScalarValues }

func (s ScalarValuesSource) Discover(ctx context.Context, target *Target) (Result, error) {
	result := Result{Kind: KindScalarValues}
	if target.Template == nil || !target.Template.HasUnresolvedImages() {
		return result, nil
	}

	slog.InfoContext(ctx, "helm template contains images in a scalar value, parsing the values file for the remaining images", "chart", target.Path)
	out, err := s.Renderer.ShowValues(ctx, target.Dir)
	if err != nil {
		return result, fmt.Errorf("cannot get Helm values for %s: %w", target.Path, err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(out, &values); err != nil {
		return result, fmt.Errorf("cannot parse Helm values for %s: %w", target.Path, err)
	}

	result.Candidates = ImagesFromValues(values, &result.Issues)
	return result, nil
}

// ImagesFromValues walks chart values for image references.
func ImagesFromValues(values map[string]any, issues *product.Issues) []Candidate {
	url, ok := lookupString(values, issues, "", "global", "registry", "url")
	if !ok {
		return nil
	}

	var candidates []Candidate
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if key == "global" {
			continue
		}
		subchart, ok := values[key].(map[string]any)
		if !ok {
			issues.Warnf("could not find imageCredentials in %s", key)
			continue
		}
		repoPath, ok := lookupString(subchart, issues, key, "imageCredentials", "repoPath")
		if !ok {
			continue
		}
		images, _ := subchart["images"].(map[string]any)
		for _, name := range slices.Sorted(maps.Keys(images)) {
			image, _ := images[name].(map[string]any)
			imageName, _ := image["name"].(string)
			if imageName == "" {
				issues.Warnf("could not find name in %s.images.%s", key, name)
				continue
			}
			tag, _ := image["tag"].(string)
			if tag == "" {
				issues.Warnf("could not find tag in %s.images.%s", key, name)
				continue
			}
			candidates = append(candidates, Candidate{Ref: product.NewReference(url, repoPath, imageName, tag)})
		}
	}
	return candidates
}

// lookupString follows keys through nested mappings and warns about the
// first one that is missing. prefix only qualifies the key in the warning.
func lookupString(values map[string]any, issues *product.Issues, prefix string, keys ...string) (string, bool) {
	missing := func(n int) (string, bool) {
		name := strings.Join(keys[:n], ".")
		if prefix != "" {
			name = prefix + "." + name
		}
		issues.Warnf("could not find %s in the values", name)
		return "", false
	}

	current := values
	for i, key := range keys {
		v, ok := current[key]
		if !ok || v == nil {
			return missing(i + 1)
		}
		if i == len(keys)-1 {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
			return missing(i + 1)
		}
		if current, ok = v.(map[string]any); !ok {
			return missing(i + 1)
		}
	}
	return "", false
}
