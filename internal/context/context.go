// Package context carries the state set up once per command invocation
// through the command context.
package context

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/consultant-1379/am-package-manager/internal/configuration"
)

type ctxKey string

const key ctxKey = "github.com/consultant-1379/am-package-manager/internal/context"

// Context is the command line context. It is only passed as a pointer so
// that lookups stay cheap and every command of an invocation sees the same
// state.
type Context struct {
	mu sync.RWMutex

	// configuration is set up by the root command before any sub command
	// runs. Commands fall back to configuration.Defaults when it is missing.
	configuration *configuration.Config
}

// WithConfiguration returns a context carrying cfg, retrievable with
// [FromContext] and [Context.Configuration].
func WithConfiguration(ctx context.Context, cfg *configuration.Config) context.Context {
	ctx, amctx := retrieveOrCreate(ctx)
	amctx.mu.Lock()
	defer amctx.mu.Unlock()
	amctx.configuration = cfg
	return ctx
}

// Register makes sure cmd carries a Context.
func Register(cmd *cobra.Command) {
	ctx, _ := retrieveOrCreate(cmd.Context())
	cmd.SetContext(ctx)
}

func (ctx *Context) Configuration() *configuration.Config {
	if ctx == nil {
		return nil
	}
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.configuration
}

// FromContext retrieves the Context from ctx, or nil if there is none.
func FromContext(ctx context.Context) *Context {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(key).(*Context); ok {
		return v
	}
	return nil
}

// WithContext returns a context carrying c.
func WithContext(ctx context.Context, c *Context) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, key, c)
}

func retrieveOrCreate(ctx context.Context) (context.Context, *Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	amctx := FromContext(ctx)
	if amctx == nil {
		amctx = &Context{}
		ctx = WithContext(ctx, amctx)
	}
	return ctx, amctx
}
