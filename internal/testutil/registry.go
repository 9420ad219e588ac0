package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ociImageSpecV1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/require"
)

type manifest struct {
	mediaType string
	body      []byte
}

// Registry is a minimal read-only OCI distribution endpoint serving
// manifests, indexes and blobs pushed through its helper methods.
type Registry struct {
	Server *httptest.Server

	mu        sync.Mutex
	manifests map[string]map[string]manifest
	blobs     map[string]map[digest.Digest][]byte
	failures  map[string]int
	requests  map[string]int
}

// NewRegistry starts a registry that is shut down with the test.
func NewRegistry(tb testing.TB) *Registry {
	tb.Helper()
	r := &Registry{
		manifests: make(map[string]map[string]manifest),
		blobs:     make(map[string]map[digest.Digest][]byte),
		failures:  make(map[string]int),
		requests:  make(map[string]int),
	}
	r.Server = httptest.NewServer(http.HandlerFunc(r.serve))
	tb.Cleanup(r.Server.Close)
	return r
}

// Host returns host:port of the registry for use in references.
func (r *Registry) Host() string {
	return r.Server.Listener.Addr().String()
}

// PushImage stores a single platform image with the given config labels
// under repo:tag and returns the manifest digest.
func (r *Registry) PushImage(tb testing.TB, repo, tag string, labels map[string]string) digest.Digest {
	tb.Helper()
	desc := r.pushImage(tb, repo, labels, ociImageSpecV1.Platform{OS: "linux", Architecture: "amd64"})
	r.tag(repo, tag, desc.Digest)
	return desc.Digest
}

// PushIndex stores an image index under repo:tag referencing one image per
// platform. Labels of the image are set per platform key "os/arch".
func (r *Registry) PushIndex(tb testing.TB, repo, tag string, labels map[string]map[string]string) digest.Digest {
	tb.Helper()
	index := ociImageSpecV1.Index{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ociImageSpecV1.MediaTypeImageIndex,
	}
	for platform, l := range labels {
		goos, arch, _ := strings.Cut(platform, "/")
		p := ociImageSpecV1.Platform{OS: goos, Architecture: arch}
		desc := r.pushImage(tb, repo, l, p)
		desc.Platform = &p
		index.Manifests = append(index.Manifests, desc)
	}
	body, err := json.Marshal(index)
	require.NoError(tb, err)
	dgst := r.putManifest(repo, ociImageSpecV1.MediaTypeImageIndex, body)
	r.tag(repo, tag, dgst)
	return dgst
}

// Fail makes every request for repo answer with status.
func (r *Registry) Fail(repo string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[repo] = status
}

// Requests returns how many manifest requests were served for repo:ref.
func (r *Registry) Requests(repo, ref string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[repo+":"+ref]
}

func (r *Registry) pushImage(tb testing.TB, repo string, labels map[string]string, platform ociImageSpecV1.Platform) ociImageSpecV1.Descriptor {
	config, err := json.Marshal(ociImageSpecV1.Image{
		Platform: platform,
		Config:   ociImageSpecV1.ImageConfig{Labels: labels},
		RootFS:   ociImageSpecV1.RootFS{Type: "layers"},
	})
	require.NoError(tb, err)
	configDesc := ociImageSpecV1.Descriptor{
		MediaType: ociImageSpecV1.MediaTypeImageConfig,
		Digest:    digest.FromBytes(config),
		Size:      int64(len(config)),
	}
	r.mu.Lock()
	if r.blobs[repo] == nil {
		r.blobs[repo] = make(map[digest.Digest][]byte)
	}
	r.blobs[repo][configDesc.Digest] = config
	r.mu.Unlock()

	body, err := json.Marshal(ociImageSpecV1.Manifest{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ociImageSpecV1.MediaTypeImageManifest,
		Config:    configDesc,
		Layers:    []ociImageSpecV1.Descriptor{},
	})
	require.NoError(tb, err)
	dgst := r.putManifest(repo, ociImageSpecV1.MediaTypeImageManifest, body)
	return ociImageSpecV1.Descriptor{
		MediaType: ociImageSpecV1.MediaTypeImageManifest,
		Digest:    dgst,
		Size:      int64(len(body)),
	}
}

func (r *Registry) putManifest(repo, mediaType string, body []byte) digest.Digest {
	dgst := digest.FromBytes(body)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.manifests[repo] == nil {
		r.manifests[repo] = make(map[string]manifest)
	}
	r.manifests[repo][dgst.String()] = manifest{mediaType: mediaType, body: body}
	return dgst
}

func (r *Registry) tag(repo, tag string, dgst digest.Digest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[repo][tag] = r.manifests[repo][dgst.String()]
}

func (r *Registry) serve(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	if path == "/v2/" || path == "/v2" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if repo, ref, ok := cutAround(path, "/manifests/"); ok {
		r.serveManifest(w, req, repo, ref)
		return
	}
	if repo, ref, ok := cutAround(path, "/blobs/"); ok {
		r.serveBlob(w, req, repo, ref)
		return
	}
	writeError(w, http.StatusNotFound, "NAME_UNKNOWN", path)
}

func (r *Registry) serveManifest(w http.ResponseWriter, req *http.Request, repo, ref string) {
	r.mu.Lock()
	r.requests[repo+":"+ref]++
	status := r.failures[repo]
	m, found := r.manifests[repo][ref]
	r.mu.Unlock()

	if status != 0 {
		writeError(w, status, "DENIED", repo)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "MANIFEST_UNKNOWN", repo+":"+ref)
		return
	}
	w.Header().Set("Content-Type", m.mediaType)
	w.Header().Set("Docker-Content-Digest", digest.FromBytes(m.body).String())
	w.Header().Set("Content-Length", strconv.Itoa(len(m.body)))
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodGet {
		_, _ = w.Write(m.body)
	}
}

func (r *Registry) serveBlob(w http.ResponseWriter, req *http.Request, repo, ref string) {
	r.mu.Lock()
	status := r.failures[repo]
	blob, found := r.blobs[repo][digest.Digest(ref)]
	r.mu.Unlock()

	if status != 0 {
		writeError(w, status, "DENIED", repo)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "BLOB_UNKNOWN", ref)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Docker-Content-Digest", ref)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodGet {
		_, _ = w.Write(blob)
	}
}

func cutAround(path, sep string) (repo, ref string, ok bool) {
	idx := strings.LastIndex(path, sep)
	if idx < 0 || !strings.HasPrefix(path, "/v2/") {
		return "", "", false
	}
	return path[len("/v2/"):idx], path[idx+len(sep):], true
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"errors":[{"code":%q,"message":%q}]}`, code, detail)
}
