package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/consultant-1379/am-package-manager/internal/composition"
	"github.com/consultant-1379/am-package-manager/internal/product"
)

// Summary formats.
const (
	SummaryNone  = "none"
	SummaryTable = "table"
	SummaryTree  = "tree"
)

// SummaryFormats lists the accepted summary formats, the default first.
var SummaryFormats = []string{SummaryNone, SummaryTable, SummaryTree}

// WriteSummary prints a human readable summary of the run.
func WriteSummary(w io.Writer, format string, result *Result) error {
	switch format {
	case SummaryNone:
		return nil
	case SummaryTable:
		writeTable(w, result.Inventory)
	case SummaryTree:
		writeTree(w, result.Roots)
	default:
		return fmt.Errorf("unknown summary format: %q", format)
	}
	return nil
}

func writeTable(w io.Writer, inv Inventory) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Name", "Version", "Product Number", "Product Version"})
	for _, pkg := range inv.Packages {
		kind := "chart"
		if pkg.Kind == product.KindHelmfile {
			kind = "helmfile"
		}
		t.AppendRow(table.Row{kind, pkg.Name, pkg.Version, pkg.ProductNumber, pkg.ProductVersion})
	}
	if len(inv.Packages) > 0 && len(inv.Images) > 0 {
		t.AppendSeparator()
	}
	for _, image := range inv.Images {
		t.AppendRow(table.Row{"image", image.ImageName, image.ImageTag, image.ProductNumber, image.ProductVersion})
	}
	t.AppendFooter(table.Row{"", "", "", "packages", len(inv.Packages)})
	t.AppendFooter(table.Row{"", "", "", "images", len(inv.Images)})
	t.Render()
}

// writeTree renders the composition like this:
//
//	── app-1.0.0.tgz (2 images)
//	   ├─ app-1.0.0.tgz/eric-crd/crd-1.0.0.tgz
//	   ╰─ app-1.0.0.tgz/charts/dep (1 image, 1 warning)
func writeTree(w io.Writer, roots []*composition.Node) {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedRounded)
	for _, root := range roots {
		appendNode(l, root)
	}
	l.SetOutputMirror(w)
	l.Render()
}

func appendNode(l list.Writer, node *composition.Node) {
	l.AppendItem(node.Path + describeNode(node))
	for _, child := range node.Children {
		l.Indent()
		appendNode(l, child)
		l.UnIndent()
	}
}

func describeNode(node *composition.Node) string {
	var parts []string
	for _, c := range []struct {
		n    int
		noun string
	}{
		{len(node.Images), "image"},
		{len(node.Issues.Errors), "error"},
		{len(node.Issues.Warnings), "warning"},
	} {
		switch {
		case c.n == 1:
			parts = append(parts, "1 "+c.noun)
		case c.n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", c.n, c.noun))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
