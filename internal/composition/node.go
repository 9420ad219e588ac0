// Package composition walks chart archives into a tree of nodes, one per
// chart, holding what each chart declares about itself and the images it
// references.
package composition

import (
	"iter"

	"github.com/consultant-1379/am-package-manager/internal/discovery"
	"github.com/consultant-1379/am-package-manager/internal/product"
)

// Node is one chart of the composition. A node exclusively owns its
// children.
type Node struct {
	// Path is the logical path of the chart, including every parent archive,
	// e.g. app-1.0.0.tgz/charts/dep.
	Path string
	// Include is set for charts that are listed in the report: top level
	// archives and extension packages. Dependencies only contribute images.
	Include bool
	// Package is only populated for included nodes.
	Package product.Package

	// Declared are the images listed in the chart's product metadata.
	Declared []discovery.Candidate
	// Rendered are the images found by rendering the chart.
	Rendered []discovery.Candidate
	// Templated is set if the chart was rendered successfully.
	Templated bool

	// Images are the records resolved against the registry.
	Images []product.Image

	Children []*Node
	Issues   product.Issues
}

// Walk yields the node and all of its descendants, depth first, parents
// before children.
func (n *Node) Walk() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.walk(yield) {
			return false
		}
	}
	return true
}

// Dependencies yields the node and every descendant reachable without
// passing through another included node. These are the charts a rendering
// of the node covers.
func (n *Node) Dependencies() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.dependencies(yield)
	}
}

func (n *Node) dependencies(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, child := range n.Children {
		if child.Include {
			continue
		}
		if !child.dependencies(yield) {
			return false
		}
	}
	return true
}

// Issues returns the issues of the node and all its descendants, each
// attributed to the logical path of the node it was recorded on.
func Issues(roots ...*Node) []product.Issue {
	var issues []product.Issue
	for _, root := range roots {
		for n := range root.Walk() {
			issues = append(issues, n.Issues.List(n.Path)...)
		}
	}
	return issues
}
