package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultant-1379/am-package-manager/internal/product"
	"github.com/consultant-1379/am-package-manager/internal/report"
)

func TestCheckComplete(t *testing.T) {
	incomplete := image("r.io/p/a:1", "", "1", "a")
	incomplete.Path = "app.tgz/charts/dep"
	noDigest := chart("app", "1.0.0", "CXC1")
	noDigest.SHA256Sum = ""

	issues := report.CheckComplete(report.Inventory{
		Images:   []product.Image{image("r.io/p/b:1", "CXU2", "1", "b"), incomplete},
		Packages: []product.Package{noDigest, chart("ok", "1.0.0", "CXC2")},
	})
	require.Len(t, issues, 2)
	assert.Equal(t, "app.tgz/charts/dep", issues[0].Path)
	assert.Contains(t, issues[0].Message, "product_number: \n")
	assert.Equal(t, "app-1.0.0.tgz", issues[1].Path)
	assert.Contains(t, issues[1].Message, "chart_name: app")
	for _, i := range issues {
		assert.Equal(t, product.SeverityError, i.Severity)
	}
}

func TestCheckProductNumbers(t *testing.T) {
	t.Run("shared by different names", func(t *testing.T) {
		issues := report.CheckProductNumbers(report.Inventory{
			Images:   []product.Image{image("r.io/p/a:1", "CXC1", "1", "a")},
			Packages: []product.Package{chart("app", "1.0.0", "CXC1")},
		})
		require.Len(t, issues, 1)
		assert.Equal(t, report.InventoryPath, issues[0].Path)
		assert.Contains(t, issues[0].Message, "CXC1")
	})

	t.Run("shared by the same name", func(t *testing.T) {
		assert.Empty(t, report.CheckProductNumbers(report.Inventory{
			Images: []product.Image{
				image("r.io/p/a:1", "CXU1", "1", "a"),
				image("r.io/p/a:2", "CXU1", "2", "b"),
			},
		}))
	})

	t.Run("placeholders and empty numbers are ignored", func(t *testing.T) {
		assert.Empty(t, report.CheckProductNumbers(report.Inventory{
			Images: []product.Image{
				image("r.io/p/a:1", "", "1", "a"),
				image("r.io/p/b:1", "", "1", "b"),
			},
			Packages: []product.Package{
				{Kind: product.KindHelmfile, ProductNumber: product.PlaceholderProductNumber, Name: "one"},
				{Kind: product.KindHelmfile, ProductNumber: product.PlaceholderProductNumber, Name: "two"},
			},
		}))
	})
}

func TestCheckUniqueImages(t *testing.T) {
	issues := report.CheckUniqueImages(report.Inventory{Images: []product.Image{
		image("r.io/p/a:1.0.0-1", "CXU1", "1.0.0", "digest-1"),
		image("r.io/p/a:1.0.0-2", "CXU1", "1.0.0", "digest-2"),
		image("r.io/p/a:2.0.0", "CXU1", "2.0.0", "digest-3"),
	}})
	require.Len(t, issues, 1, "distinct digests do not make the pair unique")
	assert.Contains(t, issues[0].Message, "product number CXU1, version 1.0.0")
	assert.Contains(t, issues[0].Message, "r.io/p/a:1.0.0-1")
	assert.Contains(t, issues[0].Message, "r.io/p/a:1.0.0-2")
}

func TestCheckExpectedImages(t *testing.T) {
	inv := report.Inventory{Images: []product.Image{
		image("registry.example.com/proj/a:1.0.0", "CXU1", "1.0.0", "a"),
		image("registry.example.com/proj/b:2.0.0", "CXU2", "2.0.0", "b"),
	}}

	t.Run("exact match", func(t *testing.T) {
		check := report.CheckExpectedImages([]string{
			"registry.example.com/proj/b:2.0.0",
			"",
			"registry.example.com/proj/a:1.0.0 ",
		}, false)
		assert.Empty(t, check(inv))
	})

	t.Run("differences both ways", func(t *testing.T) {
		check := report.CheckExpectedImages([]string{
			"registry.example.com/proj/a:1.0.0",
			"registry.example.com/proj/c:3.0.0",
		}, false)
		issues := check(inv)
		require.Len(t, issues, 2)
		assert.Contains(t, issues[0].Message, "images not in product report")
		assert.Contains(t, issues[0].Message, "proj/c:3.0.0")
		assert.Contains(t, issues[1].Message, "images not in package")
		assert.Contains(t, issues[1].Message, "proj/b:2.0.0")
	})

	t.Run("host ignored", func(t *testing.T) {
		expected := []string{"mirror.local:5000/proj/a:1.0.0", "proj/b:2.0.0"}
		assert.Empty(t, report.CheckExpectedImages(expected, true)(inv))
		assert.Len(t, report.CheckExpectedImages(expected, false)(inv), 2)
	})
}
