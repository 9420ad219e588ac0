package discovery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultant-1379/am-package-manager/internal/discovery"
	"github.com/consultant-1379/am-package-manager/internal/helm"
	"github.com/consultant-1379/am-package-manager/internal/product"
	"github.com/consultant-1379/am-package-manager/internal/testutil"
)

type fakeRenderer struct {
	template   string
	values     string
	err        error
	valuesRuns int
}

func (f *fakeRenderer) Template(context.Context, string, helm.Options) ([]byte, error) {
	return []byte(f.template), f.err
}

func (f *fakeRenderer) ShowValues(context.Context, string) ([]byte, error) {
	f.valuesRuns++
	return []byte(f.values), nil
}

func refs(candidates []discovery.Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Ref.String())
	}
	return out
}

func TestPolicy_Sources(t *testing.T) {
	kinds := func(sources []discovery.Source) []discovery.Kind {
		var out []discovery.Kind
		for _, s := range sources {
			out = append(out, s.Kind())
		}
		return out
	}
	all := []discovery.Kind{discovery.KindMetadata, discovery.KindTemplate, discovery.KindScalarValues}

	assert.Equal(t, all, kinds(discovery.Policy{}.Sources(true)))
	assert.Equal(t, []discovery.Kind{discovery.KindMetadata}, kinds(discovery.Policy{}.Sources(false)))
	assert.Equal(t, []discovery.Kind{discovery.KindMetadata}, kinds(discovery.Policy{DisableTemplate: true}.Sources(true)))
}

func TestLoadProductInfo(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		info, err := discovery.LoadProductInfo(t.TempDir())
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("malformed", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteFiles(t, dir, map[string]string{discovery.ProductInfoFile: "images: [a, b"})
		_, err := discovery.LoadProductInfo(dir)
		assert.Error(t, err)
	})

	t.Run("valid", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteFiles(t, dir, map[string]string{discovery.ProductInfoFile: `
productNumber: "CXC 201 1234"
images:
  main:
    productNumber: "CXC 201 1235"
    registry: registry.example.com
    repoPath: proj-app
    name: app
    tag: 1.0.0-5
`})
		info, err := discovery.LoadProductInfo(dir)
		require.NoError(t, err)
		assert.Equal(t, "CXC 201 1234", info.ProductNumber)
		assert.Len(t, info.Images, 1)
	})
}

func TestMetadataSource(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{discovery.ProductInfoFile: `
productNumber: CXC1
images:
  zeta:
    productNumber: CXC2
    registry: registry.example.com
    repoPath: proj
    name: zeta
    tag: 2.0.0
  alpha:
    productNumber: CXC3
    registry: registry.example.com
    repoPath: proj
    name: alpha
    tag: 1.0.0
  nameless:
    registry: registry.example.com
    tag: 1.0.0
  scalar: just-a-string
`})
	info, err := discovery.LoadProductInfo(dir)
	require.NoError(t, err)

	result, err := discovery.MetadataSource{}.Discover(t.Context(), &discovery.Target{Dir: dir, Path: "app.tgz", Info: info})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"registry.example.com/proj/alpha:1.0.0",
		"registry.example.com/proj/zeta:2.0.0",
	}, refs(result.Candidates))
	require.NotNil(t, result.Candidates[0].Declared)
	assert.Equal(t, "CXC3", result.Candidates[0].Declared.ProductNumber)
	assert.Len(t, result.Issues.Warnings, 2)
	assert.Empty(t, result.Issues.Errors)
}

func TestMetadataSource_Missing(t *testing.T) {
	target := &discovery.Target{Path: "app.tgz/charts/dep"}

	result, err := discovery.MetadataSource{}.Discover(t.Context(), target)
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
	require.Len(t, result.Issues.Warnings, 1)
	assert.Contains(t, result.Issues.Warnings[0], discovery.ProductInfoFile)

	_, err = discovery.MetadataSource{Required: true}.Discover(t.Context(), target)
	assert.ErrorIs(t, err, discovery.ErrMetadataRequired)

	result, err = discovery.MetadataSource{}.Discover(t.Context(), &discovery.Target{Info: &discovery.ProductInfo{ProductNumber: "X"}})
	require.NoError(t, err)
	assert.Len(t, result.Issues.Warnings, 1, "missing images collection")
}

func TestTemplateSource(t *testing.T) {
	renderer := &fakeRenderer{template: `
kind: Deployment
spec:
  containers:
    - image: registry.example.com/proj/b:1.0.0
    - image: registry.example.com/proj/a
    - image: registry.example.com/proj/b:1.0.0
    - image: "{{ .Values.global.registry.url }}/proj/c:1.0.0"
`}
	target := &discovery.Target{Path: "app.tgz"}
	result, err := discovery.TemplateSource{Renderer: renderer}.Discover(t.Context(), target)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"registry.example.com/proj/a:latest",
		"registry.example.com/proj/b:1.0.0",
	}, refs(result.Candidates))
	require.NotNil(t, target.Template)
	assert.True(t, target.Template.HasUnresolvedImages())
}

func TestTemplateSource_RenderFailure(t *testing.T) {
	renderer := &fakeRenderer{err: errors.New("exit status 1")}
	target := &discovery.Target{Path: "app.tgz"}
	_, err := discovery.TemplateSource{Renderer: renderer}.Discover(t.Context(), target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.tgz")
	assert.Nil(t, target.Template)
}

const conventionValues = `
global:
  registry:
    url: registry.example.com
eric-mesh-controller:
  imageCredentials:
    repoPath: proj-mesh
  images:
    pilot:
      name: eric-mesh-controller
      tag: 1.1.0-130
    proxy:
      name: eric-mesh-proxy
      tag: 1.1.0-130
    broken:
      tag: 1.1.0-130
    untagged:
      name: eric-mesh-tools
no-credentials:
  images: {}
no-repo-path:
  imageCredentials:
    pullPolicy: IfNotPresent
replicaCount: 3
`

func TestScalarValuesSource(t *testing.T) {
	unresolved, err := helm.ParseTemplate([]byte(`image: "{{ .Values.x }}"`))
	require.NoError(t, err)
	resolved, err := helm.ParseTemplate([]byte(`image: registry.example.com/a:1`))
	require.NoError(t, err)

	t.Run("runs only for unresolved templates", func(t *testing.T) {
		renderer := &fakeRenderer{values: conventionValues}
		source := discovery.ScalarValuesSource{Renderer: renderer}

		result, err := source.Discover(t.Context(), &discovery.Target{Template: resolved})
		require.NoError(t, err)
		assert.Empty(t, result.Candidates)

		result, err = source.Discover(t.Context(), &discovery.Target{})
		require.NoError(t, err)
		assert.Empty(t, result.Candidates)
		assert.Zero(t, renderer.valuesRuns)
	})

	t.Run("walks the values convention", func(t *testing.T) {
		renderer := &fakeRenderer{values: conventionValues}
		result, err := discovery.ScalarValuesSource{Renderer: renderer}.Discover(t.Context(), &discovery.Target{Template: unresolved})
		require.NoError(t, err)
		assert.Equal(t, 1, renderer.valuesRuns)
		assert.Equal(t, []string{
			"registry.example.com/proj-mesh/eric-mesh-controller:1.1.0-130",
			"registry.example.com/proj-mesh/eric-mesh-proxy:1.1.0-130",
		}, refs(result.Candidates))
		assert.ElementsMatch(t, []string{
			"could not find name in eric-mesh-controller.images.broken",
			"could not find tag in eric-mesh-controller.images.untagged",
			"could not find no-credentials.imageCredentials in the values",
			"could not find no-repo-path.imageCredentials.repoPath in the values",
			"could not find imageCredentials in replicaCount",
		}, result.Issues.Warnings)
		assert.Empty(t, result.Issues.Errors)
	})
}

func TestImagesFromValues_MissingGlobal(t *testing.T) {
	for name, values := range map[string]map[string]any{
		"no global":   {},
		"no registry": {"global": map[string]any{}},
		"no url":      {"global": map[string]any{"registry": map[string]any{"pullSecret": "x"}}},
		"empty url":   {"global": map[string]any{"registry": map[string]any{"url": ""}}},
	} {
		t.Run(name, func(t *testing.T) {
			var issues product.Issues
			assert.Empty(t, discovery.ImagesFromValues(values, &issues))
			assert.Len(t, issues.Warnings, 1)
		})
	}
}
