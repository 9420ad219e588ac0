package composition

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/consultant-1379/am-package-manager/internal/archive"
	"github.com/consultant-1379/am-package-manager/internal/product"
)

const (
	// ExtensionsDir holds extension packages, such as CRD charts, that are
	// reported as standalone packages.
	ExtensionsDir = "eric-crd"
	// DependenciesDir holds the chart dependencies.
	DependenciesDir = "charts"
)

var (
	extensionName    = regexp.MustCompile(`^(.*)-([0-9]+\.[0-9]+\.[0-9]+(?:[+-][0-9]+)?)`)
	versionSeparator = regexp.MustCompile(`[+.-]`)
)

// Extension is an extension package archive.
type Extension struct {
	Component string
	Version   []int
	// File is the archive on disk.
	File string
	// Rel is the slash separated path of the archive relative to the chart
	// it was collected for.
	Rel string
}

// ParseExtensionName splits an extension archive file name into the
// component name and the numeric segments of its version.
func ParseExtensionName(name string) (string, []int, bool) {
	m := extensionName.FindStringSubmatch(name)
	if m == nil {
		return "", nil, false
	}
	parts := versionSeparator.Split(m[2], -1)
	version := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return "", nil, false
		}
		version = append(version, v)
	}
	return m[1], version, true
}

// CompareVersions compares version segments one by one. A version that is
// a prefix of another is the older one.
func CompareVersions(a, b []int) int {
	return slices.Compare(a, b)
}

// Extensions are the extension packages collected for a chart. Packages
// found inside packaged dependencies point into scratch directories that
// exist until Close is called.
type Extensions struct {
	List   []Extension
	scopes []*archive.Scope
}

// Close removes the scratch directories of packaged dependencies.
func (e *Extensions) Close() error {
	var errs []error
	for _, scope := range e.scopes {
		errs = append(errs, scope.Close())
	}
	e.scopes = nil
	return errors.Join(errs...)
}

// CollectExtensions gathers the extension packages of the chart in dir and
// of all its dependencies, recursively. Packaged dependencies are extracted
// with extractor; a dependency that cannot be extracted is skipped here, as
// walking the chart reports it. When the same component is found more than
// once the newest version wins and the first one found wins a tie. Archives
// whose name cannot be parsed are skipped with a warning. The result is
// ordered by component name.
func CollectExtensions(ctx context.Context, extractor *archive.Extractor, dir string, issues *product.Issues) *Extensions {
	c := &collector{
		ctx:       ctx,
		extractor: extractor,
		into:      map[string]Extension{},
		issues:    issues,
	}
	c.collect(dir, "")

	extensions := &Extensions{List: make([]Extension, 0, len(c.into)), scopes: c.scopes}
	for _, ext := range c.into {
		extensions.List = append(extensions.List, ext)
	}
	slices.SortFunc(extensions.List, func(a, b Extension) int {
		return cmp.Compare(a.Component, b.Component)
	})
	return extensions
}

type collector struct {
	ctx       context.Context
	extractor *archive.Extractor
	into      map[string]Extension
	issues    *product.Issues
	scopes    []*archive.Scope
}

func (c *collector) collect(dir, rel string) {
	for _, entry := range readDirSorted(filepath.Join(dir, ExtensionsDir)) {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		component, version, ok := ParseExtensionName(name)
		if !ok {
			c.issues.Warnf("could not parse component name and version from %q, skipping it", path.Join(rel, ExtensionsDir, name))
			continue
		}
		ext := Extension{
			Component: component,
			Version:   version,
			File:      filepath.Join(dir, ExtensionsDir, name),
			Rel:       path.Join(rel, ExtensionsDir, name),
		}
		existing, found := c.into[component]
		switch {
		case !found:
			c.into[component] = ext
		case CompareVersions(existing.Version, version) >= 0:
			slog.DebugContext(c.ctx, "newer or equal version already collected", "component", component, "kept", existing.Rel, "skipped", ext.Rel)
		default:
			slog.InfoContext(c.ctx, "replacing old version of extension", "component", component, "old", existing.Rel, "new", ext.Rel)
			c.into[component] = ext
		}
	}

	for _, entry := range readDirSorted(filepath.Join(dir, DependenciesDir)) {
		depRel := path.Join(rel, DependenciesDir, entry.Name())
		switch {
		case entry.IsDir():
			c.collect(filepath.Join(dir, DependenciesDir, entry.Name()), depRel)
		case isArchive(entry.Name()) && c.extractor != nil:
			scope, err := c.extractor.Extract(c.ctx, filepath.Join(dir, DependenciesDir, entry.Name()))
			if err != nil {
				slog.DebugContext(c.ctx, "skipping extensions of dependency", "dependency", depRel, "error", err.Error())
				continue
			}
			c.scopes = append(c.scopes, scope)
			c.collect(scope.Root, depRel)
		}
	}
}

// readDirSorted returns the entries of dir sorted by name, or nothing if
// dir cannot be read.
func readDirSorted(dir string) []os.DirEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	return entries
}

// isArchive reports whether name looks like a packaged chart.
func isArchive(name string) bool {
	return strings.HasSuffix(name, ".tgz") || strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tar")
}
