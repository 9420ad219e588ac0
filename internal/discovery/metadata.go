package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"sigs.k8s.io/yaml"

	"github.com/consultant-1379/am-package-manager/internal/product"
)

// ProductInfoFile is the name of the product metadata file in a chart.
const ProductInfoFile = "eric-product-info.yaml"

// ProductInfo is the product metadata shipped with a chart.
type ProductInfo struct {
	ProductNumber string `json:"productNumber"`
	// Images are kept raw so that a single malformed entry does not make
	// the whole file unreadable.
	Images map[string]json.RawMessage `json:"images"`
}

// LoadProductInfo reads the product metadata of the chart directory. It
// returns nil without error if the chart has none.
func LoadProductInfo(dir string) (*ProductInfo, error) {
	data, err := os.ReadFile(filepath.Join(dir, ProductInfoFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info := &ProductInfo{}
	if err := yaml.Unmarshal(data, info); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ProductInfoFile, err)
	}
	return info, nil
}

// MetadataSource lists the images declared in the product metadata.
type MetadataSource struct {
	// Required turns a chart without metadata into an error.
	Required bool
}

func (MetadataSource) Kind() Kind { return KindMetadata }

func (s MetadataSource) Discover(_ context.Context, target *Target) (Result, error) {
	result := Result{Kind: KindMetadata}
	info := target.Info
	if info == nil {
		if s.Required && !target.MetadataOptional {
			return result, fmt.Errorf("%s: no %s: %w", target.Path, ProductInfoFile, ErrMetadataRequired)
		}
		result.Issues.Warnf("Helm Chart not conforming to DR-D1121-067, no %s", ProductInfoFile)
		return result, nil
	}
	if info.Images == nil {
		result.Issues.Warnf("no images listed in %s", ProductInfoFile)
		return result, nil
	}

	for _, key := range slices.Sorted(maps.Keys(info.Images)) {
		var declared product.MetadataImage
		if err := json.Unmarshal(info.Images[key], &declared); err != nil {
			result.Issues.Warnf("skipping image %q in %s: %v", key, ProductInfoFile, err)
			continue
		}
		if declared.Name == "" {
			result.Issues.Warnf("skipping image %q in %s: no name", key, ProductInfoFile)
			continue
		}
		result.Candidates = append(result.Candidates, Candidate{
			Ref:      declared.Reference(),
			Declared: &declared,
		})
	}
	return result, nil
}
