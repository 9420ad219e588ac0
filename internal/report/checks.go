package report

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/consultant-1379/am-package-manager/internal/product"
)

// InventoryPath is the logical path issues about the inventory as a whole
// are attributed to.
const InventoryPath = "product report"

// Check inspects the whole inventory.
type Check func(inv Inventory) []product.Issue

// CheckComplete requires every field of every record to be set.
func CheckComplete(inv Inventory) []product.Issue {
	var issues []product.Issue
	for _, r := range records(inv) {
		if !product.Valid(r) {
			issues = append(issues, product.Issue{
				Severity: product.SeverityError,
				Path:     r.LogicalPath(),
				Message:  "incomplete entry in the product report:\n" + indent(product.Describe(r)),
			})
		}
	}
	return issues
}

// CheckProductNumbers requires records sharing a product number to share a
// name. Placeholder product numbers are not compared.
func CheckProductNumbers(inv Inventory) []product.Issue {
	byNumber := map[string][]product.Record{}
	for _, r := range records(inv) {
		number := productNumber(r)
		if number == "" || number == product.PlaceholderProductNumber {
			continue
		}
		byNumber[number] = append(byNumber[number], r)
	}

	var issues []product.Issue
	for _, number := range slices.Sorted(maps.Keys(byNumber)) {
		group := byNumber[number]
		names := map[string]bool{}
		for _, r := range group {
			names[name(r)] = true
		}
		if len(names) > 1 {
			issues = append(issues, product.Issue{
				Severity: product.SeverityError,
				Path:     InventoryPath,
				Message:  fmt.Sprintf("same product number %s used in multiple components:\n%s", number, describeAll(group)),
			})
		}
	}
	return issues
}

// CheckUniqueImages requires every image to have its own product number
// and product version pair.
func CheckUniqueImages(inv Inventory) []product.Issue {
	type identity struct{ number, version string }
	groups := map[identity][]product.Record{}
	var order []identity
	for _, image := range inv.Images {
		id := identity{image.ProductNumber, image.ProductVersion}
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], image)
	}

	var issues []product.Issue
	for _, id := range order {
		if group := groups[id]; len(group) > 1 {
			issues = append(issues, product.Issue{
				Severity: product.SeverityError,
				Path:     InventoryPath,
				Message:  fmt.Sprintf("multiple images with same product number %s, version %s:\n%s", id.number, id.version, describeAll(group)),
			})
		}
	}
	return issues
}

// CheckExpectedImages returns a check that requires the images of the
// inventory to be exactly the expected ones. With ignoreHost references are
// compared without their registry host.
func CheckExpectedImages(expected []string, ignoreHost bool) Check {
	normalize := func(raw string) string {
		raw = strings.TrimSpace(raw)
		if !ignoreHost {
			return raw
		}
		if ref, ok := product.ParseReference(raw); ok {
			return ref.WithoutHost()
		}
		return raw
	}

	return func(inv Inventory) []product.Issue {
		want := map[string]bool{}
		for _, line := range expected {
			if strings.TrimSpace(line) != "" {
				want[normalize(line)] = true
			}
		}
		have := map[string]bool{}
		for _, image := range inv.Images {
			have[normalize(image.Image)] = true
		}

		var issues []product.Issue
		if missing := difference(want, have); len(missing) > 0 {
			issues = append(issues, product.Issue{
				Severity: product.SeverityError,
				Path:     InventoryPath,
				Message:  "images not in product report:\n" + bullets(missing),
			})
		}
		if extra := difference(have, want); len(extra) > 0 {
			issues = append(issues, product.Issue{
				Severity: product.SeverityError,
				Path:     InventoryPath,
				Message:  "images not in package:\n" + bullets(extra),
			})
		}
		return issues
	}
}

func records(inv Inventory) []product.Record {
	out := make([]product.Record, 0, len(inv.Images)+len(inv.Packages))
	for _, image := range inv.Images {
		out = append(out, image)
	}
	for _, pkg := range inv.Packages {
		out = append(out, pkg)
	}
	return out
}

func productNumber(r product.Record) string {
	switch r := r.(type) {
	case product.Image:
		return r.ProductNumber
	case product.Package:
		return r.ProductNumber
	}
	return ""
}

func name(r product.Record) string {
	switch r := r.(type) {
	case product.Image:
		return r.ImageName
	case product.Package:
		return r.Name
	}
	return ""
}

func difference(a, b map[string]bool) []string {
	var out []string
	for k := range a {
		if !b[k] {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func describeAll(group []product.Record) string {
	parts := make([]string, 0, len(group))
	for _, r := range group {
		parts = append(parts, indent(r.LogicalPath()+":\n"+indent(product.Describe(r))))
	}
	return strings.Join(parts, "\n")
}

func bullets(items []string) string {
	return indent(strings.Join(items, "\n"))
}

// indent prefixes every line with two spaces.
func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
