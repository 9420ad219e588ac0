package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/opencontainers/go-digest"
	ociImageSpecV1 "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/consultant-1379/am-package-manager/internal/product"
)

var (
	// ErrNotFound is matched by errors for references the registry reports as unknown.
	ErrNotFound = errdef.ErrNotFound
	// ErrTransport is matched by every registry failure other than "not found".
	ErrTransport = errors.New("registry request failed")
	// ErrInvalidReference is returned for references that do not name a registry.
	ErrInvalidReference = errors.New("invalid image reference")
)

const (
	mediaTypeDockerManifest     = "application/vnd.docker.distribution.manifest.v2+json"
	mediaTypeDockerManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"
)

// DefaultPlatform is the platform whose labels are read from image indexes.
var DefaultPlatform = ociImageSpecV1.Platform{OS: "linux", Architecture: "amd64"}

// Client is the registry contract the report generation depends on.
type Client interface {
	// Exists returns false without error if the registry reports the reference as unknown.
	Exists(ctx context.Context, ref product.Reference) (bool, error)
	// ManifestDigest returns the digest the reference resolves to.
	ManifestDigest(ctx context.Context, ref product.Reference) (digest.Digest, error)
	// Labels returns the config labels of the image behind the reference.
	Labels(ctx context.Context, ref product.Reference) (map[string]string, error)
}

var _ Client = (*Remote)(nil)

type resolution struct {
	desc     ociImageSpecV1.Descriptor
	notFound bool
}

// Remote is a Client talking to OCI distribution registries through oras.
type Remote struct {
	client    remote.Client
	plainHTTP bool

	reposMu sync.Mutex
	repos   map[string]*remote.Repository

	resolved *lru.Cache[string, resolution]
	labels   *lru.Cache[string, map[string]string]
}

// NewRemote creates a client with an empty cache.
func NewRemote(opts ...Option) (*Remote, error) {
	options := &Options{CacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt.Apply(options)
	}

	resolved, err := lru.New[string, resolution](options.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution cache: %w", err)
	}
	labels, err := lru.New[string, map[string]string](options.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create label cache: %w", err)
	}

	return &Remote{
		client:    options.Client,
		plainHTTP: options.PlainHTTP,
		repos:     make(map[string]*remote.Repository),
		resolved:  resolved,
		labels:    labels,
	}, nil
}

func (r *Remote) Exists(ctx context.Context, ref product.Reference) (bool, error) {
	_, err := r.resolve(ctx, ref)
	switch {
	case errors.Is(err, ErrNotFound):
		slog.DebugContext(ctx, "image not found in registry", "image", ref.String())
		return false, nil
	case err != nil:
		return false, err
	}
	slog.DebugContext(ctx, "image accessible in registry", "image", ref.String())
	return true, nil
}

func (r *Remote) ManifestDigest(ctx context.Context, ref product.Reference) (digest.Digest, error) {
	desc, err := r.resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	return desc.Digest, nil
}

func (r *Remote) Labels(ctx context.Context, ref product.Reference) (map[string]string, error) {
	key := ref.String()
	if labels, ok := r.labels.Get(key); ok {
		return labels, nil
	}

	repo, parsed, err := r.repository(ref)
	if err != nil {
		return nil, err
	}

	desc, err := r.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	manifestDesc := desc
	if isIndex(desc.MediaType) {
		index := ociImageSpecV1.Index{}
		if err := fetchJSON(ctx, repo, desc, &index); err != nil {
			return nil, classify(parsed, err)
		}
		if manifestDesc, err = selectManifest(index); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	manifest := ociImageSpecV1.Manifest{}
	if err := fetchJSON(ctx, repo, manifestDesc, &manifest); err != nil {
		return nil, classify(parsed, err)
	}
	config := ociImageSpecV1.Image{}
	if err := fetchJSON(ctx, repo, manifest.Config, &config); err != nil {
		return nil, classify(parsed, err)
	}

	labels := config.Config.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	r.labels.Add(key, labels)
	return labels, nil
}

func (r *Remote) resolve(ctx context.Context, ref product.Reference) (ociImageSpecV1.Descriptor, error) {
	key := ref.String()
	if res, ok := r.resolved.Get(key); ok {
		if res.notFound {
			return ociImageSpecV1.Descriptor{}, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return res.desc, nil
	}

	repo, parsed, err := r.repository(ref)
	if err != nil {
		return ociImageSpecV1.Descriptor{}, err
	}

	desc, err := repo.Resolve(ctx, parsed.Reference)
	if err != nil {
		err = classify(parsed, err)
		if errors.Is(err, ErrNotFound) {
			r.resolved.Add(key, resolution{notFound: true})
		}
		return ociImageSpecV1.Descriptor{}, err
	}
	r.resolved.Add(key, resolution{desc: desc})
	return desc, nil
}

// repository returns the oras repository for the reference. Repositories are
// created once per registry/repository pair.
func (r *Remote) repository(ref product.Reference) (*remote.Repository, registry.Reference, error) {
	parsed, err := registry.ParseReference(ref.String())
	if err != nil {
		return nil, registry.Reference{}, fmt.Errorf("%w %q: %w", ErrInvalidReference, ref.String(), err)
	}
	key := parsed.Registry + "/" + parsed.Repository

	r.reposMu.Lock()
	defer r.reposMu.Unlock()
	if repo, ok := r.repos[key]; ok {
		return repo, parsed, nil
	}

	repo := &remote.Repository{
		Reference: registry.Reference{Registry: parsed.Registry, Repository: parsed.Repository},
		PlainHTTP: r.plainHTTP,
		// registries that predate the referrers API reject manifest deletes
		SkipReferrersGC: true,
	}
	if r.client != nil {
		repo.Client = r.client
	}
	r.repos[key] = repo
	return repo, parsed, nil
}

func classify(ref registry.Reference, err error) error {
	if errors.Is(err, errdef.ErrNotFound) {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, ref, err)
}

func isIndex(mediaType string) bool {
	return mediaType == ociImageSpecV1.MediaTypeImageIndex || mediaType == mediaTypeDockerManifestList
}

func selectManifest(index ociImageSpecV1.Index) (ociImageSpecV1.Descriptor, error) {
	if len(index.Manifests) == 0 {
		return ociImageSpecV1.Descriptor{}, fmt.Errorf("image index has no manifests")
	}
	for _, m := range index.Manifests {
		if m.Platform != nil && m.Platform.OS == DefaultPlatform.OS && m.Platform.Architecture == DefaultPlatform.Architecture {
			return m, nil
		}
	}
	return index.Manifests[0], nil
}

func fetchJSON(ctx context.Context, fetcher content.Fetcher, desc ociImageSpecV1.Descriptor, v any) error {
	data, err := content.FetchAll(ctx, fetcher, desc)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid %s content %s: %w", desc.MediaType, desc.Digest, err)
	}
	return nil
}
