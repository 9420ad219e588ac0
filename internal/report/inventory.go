// Package report assembles composition trees into the product report: a
// flat, deduplicated list of packages and images that is checked as a whole
// before it is accepted.
package report

import (
	"log/slog"

	"github.com/Masterminds/semver/v3"

	"github.com/consultant-1379/am-package-manager/internal/composition"
	"github.com/consultant-1379/am-package-manager/internal/product"
)

// Inventory is the content of a product report.
type Inventory struct {
	Images   []product.Image   `yaml:"images"`
	Packages []product.Package `yaml:"packages"`
}

// Flatten collects the packages of every included node and the images of
// every node, in traversal order.
func Flatten(roots ...*composition.Node) Inventory {
	inv := Inventory{Images: []product.Image{}, Packages: []product.Package{}}
	for _, root := range roots {
		for node := range root.Walk() {
			if node.Include {
				inv.Packages = append(inv.Packages, node.Package)
			}
			inv.Images = append(inv.Images, node.Images...)
		}
	}
	return inv
}

// Deduplicate returns an inventory where every image digest and every
// package name appears once. Images with the same digest collapse into the
// first one found, whatever their name or tag. Of packages with the same
// name, the one with the newest version is kept, the first one found on a
// tie. Order of first appearance is preserved.
func Deduplicate(inv Inventory) Inventory {
	out := Inventory{Images: []product.Image{}, Packages: []product.Package{}}

	seenImages := map[string]bool{}
	for _, image := range inv.Images {
		key := imageKey(image)
		if seenImages[key] {
			slog.Debug("removing duplicate image", "image", image.Image, "path", image.Path)
			continue
		}
		seenImages[key] = true
		out.Images = append(out.Images, image)
	}

	packageIndex := map[string]int{}
	for _, pkg := range inv.Packages {
		i, seen := packageIndex[pkg.Name]
		if !seen {
			packageIndex[pkg.Name] = len(out.Packages)
			out.Packages = append(out.Packages, pkg)
			continue
		}
		if newer(pkg.Version, out.Packages[i].Version) {
			slog.Debug("replacing package with newer version", "package", pkg.Name, "old", out.Packages[i].Version, "new", pkg.Version)
			out.Packages[i] = pkg
			continue
		}
		slog.Debug("removing duplicate package", "package", pkg.String(), "path", pkg.Path)
	}
	return out
}

// imageKey is the digest, or the reference for images that could not be
// resolved.
func imageKey(image product.Image) string {
	if image.SHA256Sum != "" {
		return "sha256:" + image.SHA256Sum
	}
	return image.Image
}

// newer reports whether version a is newer than b. Versions that are not
// semantic versions are never newer.
func newer(a, b string) bool {
	va, err := semver.NewVersion(a)
	if err != nil {
		return false
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return true
	}
	return va.GreaterThan(vb)
}
