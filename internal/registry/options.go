package registry

import (
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	remotecredentials "oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// DefaultCacheSize bounds the number of cached lookups per Remote.
const DefaultCacheSize = 4096

// Options configures a Remote.
type Options struct {
	Client    remote.Client
	PlainHTTP bool
	CacheSize int
}

// Option is an interface for configuring a Remote.
type Option interface {
	Apply(*Options)
}

// OptionFunc is a function type that implements the Option interface.
type OptionFunc func(*Options)

func (f OptionFunc) Apply(opts *Options) {
	f(opts)
}

// WithClient sets the HTTP client used for registry requests.
func WithClient(client remote.Client) Option {
	return OptionFunc(func(opts *Options) {
		opts.Client = client
	})
}

// WithCredentialStore authenticates registry requests with credentials from store.
func WithCredentialStore(store remotecredentials.Store) Option {
	return OptionFunc(func(opts *Options) {
		opts.Client = &auth.Client{
			Client:     retry.DefaultClient,
			Cache:      auth.NewCache(),
			Credential: remotecredentials.Credential(store),
		}
	})
}

// WithPlainHTTP talks to registries over plain HTTP instead of HTTPS.
func WithPlainHTTP(plainHTTP bool) Option {
	return OptionFunc(func(opts *Options) {
		opts.PlainHTTP = plainHTTP
	})
}

// WithCacheSize bounds the number of cached lookups.
func WithCacheSize(size int) Option {
	return OptionFunc(func(opts *Options) {
		if size > 0 {
			opts.CacheSize = size
		}
	})
}
