package csar_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultant-1379/am-package-manager/cmd/internal/test"
	"github.com/consultant-1379/am-package-manager/internal/archive"
	"github.com/consultant-1379/am-package-manager/internal/composition"
	"github.com/consultant-1379/am-package-manager/internal/discovery"
	"github.com/consultant-1379/am-package-manager/internal/product"
	"github.com/consultant-1379/am-package-manager/internal/report"
	"github.com/consultant-1379/am-package-manager/internal/testutil"
)

type env struct {
	reg  *testutil.Registry
	work string
	out  string
}

func setup(t *testing.T) *env {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	e := &env{reg: testutil.NewRegistry(t), work: t.TempDir()}
	e.out = filepath.Join(e.work, "report.yaml")
	for _, name := range []string{"a", "b"} {
		e.reg.PushImage(t, "proj/"+name, "1.0.0", map[string]string{
			product.LabelProductNumber:  "CXU-" + name,
			product.LabelProductVersion: "1.0.0",
		})
	}
	return e
}

func (e *env) ref(name string) string {
	return product.NewReference(e.reg.Host(), "proj", name, "1.0.0").String()
}

// charts returns two chart archives, app declaring image a and crd
// declaring image b.
func (e *env) charts(t *testing.T) map[string][]byte {
	entries := map[string][]byte{}
	for _, c := range []struct{ name, number, image string }{
		{"app", "CXC 1", "a:1.0.0"},
		{"crd", "CXC 2", "b:1.0.0"},
	} {
		dir := testutil.Chart(t, filepath.Join(e.work, "src"), c.name, "1.0.0", map[string]string{
			discovery.ProductInfoFile: testutil.ProductInfo(e.reg.Host(), c.number, c.image),
		})
		tgz := testutil.TarGz(t, dir, filepath.Join(e.work, "tgz", c.name+"-1.0.0.tgz"))
		entries[archive.CSARChartsDir+c.name+"-1.0.0.tgz"] = testutil.ReadFile(t, tgz)
	}
	return entries
}

func (e *env) csar(t *testing.T, entries map[string][]byte, images string) string {
	if images != "" {
		entries[archive.CSARImagesFile] = []byte(images)
	}
	return testutil.Zip(t, filepath.Join(e.work, "pkg.csar"), entries)
}

func (e *env) run(t *testing.T, csar string, extra ...string) error {
	args := append([]string{
		"product-report", "csar",
		"--csar-file", csar,
		"--product-report", e.out,
		"--disable-helm-template",
		"--plain-http",
		"--docker-config", filepath.Join(e.work, "docker"),
	}, extra...)
	_, err := test.Run(t, test.WithArgs(args...))
	return err
}

func TestCSAR(t *testing.T) {
	e := setup(t)
	csar := e.csar(t, e.charts(t), e.ref("a")+"\n"+e.ref("b")+"\n")

	require.NoError(t, e.run(t, csar))

	inv, err := report.Read(e.out)
	require.NoError(t, err)
	require.Len(t, inv.Packages, 2)
	assert.Equal(t, "app-1.0.0.tgz", inv.Packages[0].Package)
	assert.Equal(t, "crd-1.0.0.tgz", inv.Packages[1].Package)
	assert.Len(t, inv.Images, 2)
}

func TestCSAR_ImageList(t *testing.T) {
	tests := []struct {
		name    string
		images  func(e *env) string
		args    []string
		wantErr bool
	}{
		{
			name:    "image missing from list",
			images:  func(e *env) string { return e.ref("a") + "\n" },
			wantErr: true,
		},
		{
			name:    "image missing from report",
			images:  func(e *env) string { return e.ref("a") + "\n" + e.ref("b") + "\n" + e.ref("c") + "\n" },
			wantErr: true,
		},
		{
			name:   "comparison disabled",
			images: func(e *env) string { return e.ref("a") + "\n" },
			args:   []string{"--no-compare-images"},
		},
		{
			name:    "other registry host",
			images:  func(*env) string { return "mirror.example.com/proj/a:1.0.0\nmirror.example.com/proj/b:1.0.0\n" },
			wantErr: true,
		},
		{
			name:   "other registry host ignored",
			images: func(*env) string { return "mirror.example.com/proj/a:1.0.0\nmirror.example.com/proj/b:1.0.0\n" },
			args:   []string{"--no-compare-host"},
		},
		{
			name:    "no image list",
			images:  func(*env) string { return "" },
			wantErr: true,
		},
		{
			name:   "no image list without comparison",
			images: func(*env) string { return "" },
			args:   []string{"--no-compare-images"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			err := e.run(t, e.csar(t, e.charts(t), tt.images(e)), tt.args...)
			if tt.wantErr {
				assert.ErrorIs(t, err, report.ErrValidationFailed)
				assert.FileExists(t, e.out)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCSAR_Helmfile(t *testing.T) {
	e := setup(t)
	dir := filepath.Join(e.work, "src", "helmfile")
	testutil.WriteFiles(t, dir, map[string]string{
		composition.HelmfileMetadataFile:          "name: eric-product\nversion: 2.1.0-3\n",
		"helmfile.yaml":                           "releases: []\n",
		"charts/app/Chart.yaml":                   "apiVersion: v2\nname: app\nversion: 1.0.0\n",
		"charts/app/" + discovery.ProductInfoFile: testutil.ProductInfo(e.reg.Host(), "CXC 1", "a:1.0.0"),
	})
	tgz := testutil.TarGz(t, dir, filepath.Join(e.work, "tgz", "eric-product-2.1.0-3.tgz"))
	csar := e.csar(t, map[string][]byte{
		archive.CSARChartsDir + "eric-product-2.1.0-3.tgz": testutil.ReadFile(t, tgz),
	}, e.ref("a")+"\n")

	require.NoError(t, e.run(t, csar, "--helmfile"))

	inv, err := report.Read(e.out)
	require.NoError(t, err)
	require.Len(t, inv.Packages, 1)
	pkg := inv.Packages[0]
	assert.Equal(t, product.KindHelmfile, pkg.Kind)
	assert.Equal(t, "eric-product", pkg.Name)
	assert.Equal(t, product.PlaceholderProductNumber, pkg.ProductNumber)
	assert.Equal(t, "eric-product-2.1.0-3.tgz", pkg.Package)
	require.Len(t, inv.Images, 1)
	assert.Equal(t, e.ref("a"), inv.Images[0].Image)
}

func TestCSAR_InvalidInput(t *testing.T) {
	e := setup(t)

	err := e.run(t, filepath.Join(e.work, "missing.csar"))
	assert.ErrorContains(t, err, "does not exist")

	empty := testutil.Zip(t, filepath.Join(e.work, "empty.csar"), map[string][]byte{"TOSCA-Metadata/TOSCA.meta": []byte("x\n")})
	err = e.run(t, empty)
	assert.ErrorContains(t, err, "no archives found")
	assert.NoFileExists(t, e.out)
}
