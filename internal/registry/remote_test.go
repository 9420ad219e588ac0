package registry_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultant-1379/am-package-manager/internal/product"
	"github.com/consultant-1379/am-package-manager/internal/registry"
	"github.com/consultant-1379/am-package-manager/internal/testutil"
)

func newRemote(t *testing.T) *registry.Remote {
	t.Helper()
	remote, err := registry.NewRemote(registry.WithPlainHTTP(true))
	require.NoError(t, err)
	return remote
}

func TestRemote_ExistsAndDigest(t *testing.T) {
	r := require.New(t)
	reg := testutil.NewRegistry(t)
	dgst := reg.PushImage(t, "proj/app", "1.0.0-1", map[string]string{product.LabelProductNumber: "CXC1"})
	remote := newRemote(t)

	present := product.NewReference(reg.Host(), "proj", "app", "1.0.0-1")
	exists, err := remote.Exists(t.Context(), present)
	r.NoError(err)
	r.True(exists)

	got, err := remote.ManifestDigest(t.Context(), present)
	r.NoError(err)
	r.Equal(dgst, got)

	absent := product.NewReference(reg.Host(), "proj", "app", "9.9.9")
	exists, err = remote.Exists(t.Context(), absent)
	r.NoError(err, "not found is an answer, not an error")
	r.False(exists)

	_, err = remote.ManifestDigest(t.Context(), absent)
	r.ErrorIs(err, registry.ErrNotFound)
	r.NotErrorIs(err, registry.ErrTransport)
}

func TestRemote_TransportError(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.PushImage(t, "proj/denied", "1.0.0", nil)
	reg.Fail("proj/denied", http.StatusForbidden)
	remote := newRemote(t)

	ref := product.NewReference(reg.Host(), "proj", "denied", "1.0.0")
	exists, err := remote.Exists(t.Context(), ref)
	require.Error(t, err)
	assert.False(t, exists)
	assert.ErrorIs(t, err, registry.ErrTransport)
	assert.NotErrorIs(t, err, registry.ErrNotFound)

	_, err = remote.Labels(t.Context(), ref)
	assert.ErrorIs(t, err, registry.ErrTransport)
}

func TestRemote_InvalidReference(t *testing.T) {
	remote := newRemote(t)
	_, err := remote.Exists(t.Context(), product.Reference{Repository: "", Tag: "1"})
	assert.ErrorIs(t, err, registry.ErrInvalidReference)
}

func TestRemote_Labels(t *testing.T) {
	reg := testutil.NewRegistry(t)
	remote := newRemote(t)

	t.Run("image", func(t *testing.T) {
		labels := map[string]string{
			product.LabelProductNumber:  "CXC 1742971",
			product.LabelProductVersion: "2.8.0-35",
		}
		reg.PushImage(t, "proj/img", "2.8.0-35", labels)
		got, err := remote.Labels(t.Context(), product.NewReference(reg.Host(), "proj", "img", "2.8.0-35"))
		require.NoError(t, err)
		assert.Equal(t, labels, got)
	})

	t.Run("image without labels", func(t *testing.T) {
		reg.PushImage(t, "proj/bare", "1", nil)
		got, err := remote.Labels(t.Context(), product.NewReference(reg.Host(), "proj", "bare", "1"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("index selects linux/amd64", func(t *testing.T) {
		dgst := reg.PushIndex(t, "proj/multi", "3.0.0", map[string]map[string]string{
			"linux/arm64": {product.LabelProductNumber: "ARM"},
			"linux/amd64": {product.LabelProductNumber: "AMD"},
		})
		ref := product.NewReference(reg.Host(), "proj", "multi", "3.0.0")
		got, err := remote.Labels(t.Context(), ref)
		require.NoError(t, err)
		assert.Equal(t, "AMD", got[product.LabelProductNumber])

		indexDigest, err := remote.ManifestDigest(t.Context(), ref)
		require.NoError(t, err)
		assert.Equal(t, dgst, indexDigest)
	})
}

func TestRemote_CachesLookups(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.PushImage(t, "proj/cached", "1.0.0", map[string]string{"a": "b"})
	remote := newRemote(t)
	ref := product.NewReference(reg.Host(), "proj", "cached", "1.0.0")

	for range 3 {
		_, err := remote.Exists(t.Context(), ref)
		require.NoError(t, err)
		_, err = remote.ManifestDigest(t.Context(), ref)
		require.NoError(t, err)
		_, err = remote.Labels(t.Context(), ref)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, reg.Requests("proj/cached", "1.0.0"))

	fresh := newRemote(t)
	_, err := fresh.Exists(t.Context(), ref)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Requests("proj/cached", "1.0.0"), "caches are not shared between clients")
}

func TestNewCredentialStore(t *testing.T) {
	dir := t.TempDir()
	// "user:pass"
	config := `{"auths":{"registry.example.com":{"auth":"dXNlcjpwYXNz"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o600))

	for name, path := range map[string]string{
		"directory": dir,
		"file":      filepath.Join(dir, "config.json"),
	} {
		t.Run(name, func(t *testing.T) {
			store, err := registry.NewCredentialStore(t.Context(), path)
			require.NoError(t, err)
			cred, err := store.Get(t.Context(), "registry.example.com")
			require.NoError(t, err)
			assert.Equal(t, "user", cred.Username)
			assert.Equal(t, "pass", cred.Password)
		})
	}

	t.Run("missing file is an empty store", func(t *testing.T) {
		store, err := registry.NewCredentialStore(t.Context(), filepath.Join(t.TempDir(), "nope.json"))
		require.NoError(t, err)
		cred, err := store.Get(t.Context(), "registry.example.com")
		require.NoError(t, err)
		assert.Empty(t, cred.Username)
	})
}
