package composition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/consultant-1379/am-package-manager/internal/archive"
	"github.com/consultant-1379/am-package-manager/internal/discovery"
	"github.com/consultant-1379/am-package-manager/internal/helm"
	"github.com/consultant-1379/am-package-manager/internal/product"
)

// AnnotationProductRevision is read from the first rendered ConfigMap when
// the chart version does not carry a product version.
const AnnotationProductRevision = "ericsson.com/product-revision"

// Builder builds composition trees from archives.
type Builder struct {
	Extractor *archive.Extractor
	Policy    discovery.Policy
	// Kind selects how top level archives are reported.
	Kind product.PackageKind
}

// Build extracts the archive at path and walks it. An archive that cannot be
// extracted is an error. Every problem below the top level archive is
// recorded on the node it was found on. A chart directory is walked in
// place; it has no archive digest.
func (b *Builder) Build(ctx context.Context, archivePath string) (_ *Node, err error) {
	fi, err := os.Stat(archivePath)
	if err != nil {
		return nil, &archive.ExtractionError{Path: archivePath, Err: err}
	}
	name := filepath.Base(filepath.Clean(archivePath))
	if fi.IsDir() {
		slog.InfoContext(ctx, "processing chart directory", "directory", name)
		return b.root(ctx, archivePath, name, ""), nil
	}

	scope, err := b.Extractor.Extract(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, scope.Close())
	}()

	dgst, err := archive.Digest(archivePath)
	if err != nil {
		return nil, &archive.ExtractionError{Path: archivePath, Err: err}
	}

	slog.InfoContext(ctx, "processing archive", "archive", name, "sha256", dgst.Encoded())
	return b.root(ctx, scope.Root, name, dgst.Encoded()), nil
}

func (b *Builder) root(ctx context.Context, dir, name, sum string) *Node {
	root := b.walk(ctx, dir, name, true, b.Kind)
	if root.Package.Package == "" {
		root.Package.Package = name
	}
	root.Package.SHA256Sum = sum
	return root
}

// walk builds the node of the chart extracted to dir.
func (b *Builder) walk(ctx context.Context, dir, logicalPath string, include bool, kind product.PackageKind) *Node {
	node := &Node{Path: logicalPath, Include: include}

	info, err := discovery.LoadProductInfo(dir)
	if err != nil {
		node.Issues.Warnf("file %s could not be loaded: %v", discovery.ProductInfoFile, err)
	}

	target := &discovery.Target{
		Dir:              dir,
		Path:             logicalPath,
		Info:             info,
		MetadataOptional: kind == product.KindHelmfile,
	}
	for _, source := range b.Policy.Sources(include) {
		result, err := source.Discover(ctx, target)
		if err != nil {
			node.Issues.Errorf("%v", err)
			continue
		}
		node.Issues.Merge(result.Issues)
		switch result.Kind {
		case discovery.KindMetadata:
			node.Declared = append(node.Declared, result.Candidates...)
		case discovery.KindTemplate:
			node.Templated = true
			fallthrough
		default:
			node.Rendered = append(node.Rendered, result.Candidates...)
		}
	}

	if include {
		switch kind {
		case product.KindHelmfile:
			node.Package = b.helmfilePackage(dir, &node.Issues)
		default:
			node.Package = b.chartPackage(dir, info, target.Template, &node.Issues)
		}
		node.Package.Path = logicalPath
		slog.DebugContext(ctx, "package added", "package", node.Package.String(), "path", logicalPath)

		extensions := CollectExtensions(ctx, b.Extractor, dir, &node.Issues)
		for _, ext := range extensions.List {
			if child := b.extension(ctx, ext, logicalPath, &node.Issues); child != nil {
				node.Children = append(node.Children, child)
			}
		}
		if err := extensions.Close(); err != nil {
			slog.WarnContext(ctx, "could not remove scratch directory", "path", logicalPath, "error", err.Error())
		}
	}

	for _, entry := range readDirSorted(filepath.Join(dir, DependenciesDir)) {
		childPath := path.Join(logicalPath, DependenciesDir, entry.Name())
		switch {
		case entry.IsDir():
			node.Children = append(node.Children, b.walk(ctx, filepath.Join(dir, DependenciesDir, entry.Name()), childPath, false, product.KindChart))
		case isArchive(entry.Name()):
			if child := b.nested(ctx, filepath.Join(dir, DependenciesDir, entry.Name()), childPath, false, &node.Issues); child != nil {
				node.Children = append(node.Children, child)
			}
		}
	}
	return node
}

// extension builds the node of an extension package. Extension packages are
// always reported.
func (b *Builder) extension(ctx context.Context, ext Extension, parentPath string, issues *product.Issues) *Node {
	child := b.nested(ctx, ext.File, path.Join(parentPath, ext.Rel), true, issues)
	if child == nil {
		return nil
	}
	dgst, err := archive.Digest(ext.File)
	if err != nil {
		issues.Errorf("cannot compute digest of %s: %v", ext.Rel, err)
		return child
	}
	child.Package.Package = filepath.Base(ext.File)
	child.Package.SHA256Sum = dgst.Encoded()
	slog.InfoContext(ctx, "found extension package", "package", child.Package.String(), "parent", parentPath, "sha256", dgst.Encoded())
	return child
}

// nested extracts an archive found inside another one and walks it. A
// failure is recorded on the parent and the subtree is skipped.
func (b *Builder) nested(ctx context.Context, file, logicalPath string, include bool, issues *product.Issues) *Node {
	scope, err := b.Extractor.Extract(ctx, file)
	if err != nil {
		issues.Errorf("cannot process %s: %v", logicalPath, err)
		return nil
	}
	defer func() {
		if err := scope.Close(); err != nil {
			slog.WarnContext(ctx, "could not remove scratch directory", "path", logicalPath, "error", err.Error())
		}
	}()
	return b.walk(ctx, scope.Root, logicalPath, include, product.KindChart)
}

func (b *Builder) chartPackage(dir string, info *discovery.ProductInfo, tmpl *helm.Template, issues *product.Issues) product.Package {
	pkg := product.Package{Kind: product.KindChart}

	md, err := helm.LoadChartfile(dir)
	if err != nil {
		issues.Warnf("file %s not available: %v", helm.ChartFile, err)
	} else {
		pkg.Name, pkg.Version = md.Name, md.Version
		if _, err := semver.StrictNewVersion(md.Version); err != nil {
			issues.Warnf("chart version %q is not a valid semantic version: %v", md.Version, err)
		}
	}

	if info != nil {
		pkg.ProductNumber = product.NormalizeProductNumber(info.ProductNumber)
	}
	pkg.ProductVersion = product.StripVersion(pkg.Version)
	if pkg.ProductVersion == "" {
		pkg.ProductVersion = b.productRevision(tmpl, issues)
	}
	return pkg
}

// productRevision falls back to the product revision annotation of the
// rendered chart.
func (b *Builder) productRevision(tmpl *helm.Template, issues *product.Issues) string {
	if b.Policy.DisableTemplate {
		issues.Warnf("cannot use chart annotations as an alternative source for the product version, template rendering is disabled")
		return ""
	}
	if tmpl == nil {
		return ""
	}
	annotations, ok := tmpl.Annotations("ConfigMap")
	if !ok {
		issues.Warnf("no ConfigMap with annotations in the Helm template")
		return ""
	}
	return annotations[AnnotationProductRevision]
}

func (b *Builder) helmfilePackage(dir string, issues *product.Issues) product.Package {
	pkg := product.Package{Kind: product.KindHelmfile, ProductNumber: product.PlaceholderProductNumber}
	md, err := LoadHelmfileMetadata(dir)
	if err != nil {
		issues.Errorf("%v", err)
		return pkg
	}
	pkg.ProductVersion = md.Version
	pkg.Name, pkg.Version = md.Name, md.Version
	pkg.Package = fmt.Sprintf("%s-%s.tgz", md.Name, md.Version)
	return pkg
}

// HelmfileMetadataFile describes a helmfile archive.
const HelmfileMetadataFile = "metadata.yaml"

// HelmfileMetadata is the content of HelmfileMetadataFile.
type HelmfileMetadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

var errIncompleteHelmfileMetadata = errors.New("helmfile metadata does not contain name and version")

// LoadHelmfileMetadata reads the helmfile metadata of the extracted archive.
func LoadHelmfileMetadata(dir string) (*HelmfileMetadata, error) {
	md := &HelmfileMetadata{}
	if err := readYAML(filepath.Join(dir, HelmfileMetadataFile), md); err != nil {
		return nil, fmt.Errorf("cannot read helmfile %s: %w", HelmfileMetadataFile, err)
	}
	if md.Name == "" || md.Version == "" {
		return nil, fmt.Errorf("%s: %w", HelmfileMetadataFile, errIncompleteHelmfileMetadata)
	}
	return md, nil
}
