// Package helm runs the helm binary to render charts and reads what it
// produces: rendered manifests, default values and chart descriptors.
package helm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultCommand is the helm binary looked up in PATH.
const DefaultCommand = "helm"

// ErrRender is wrapped by every error caused by a failing helm invocation.
var ErrRender = errors.New("helm invocation failed")

// Options are passed to helm template.
type Options struct {
	// Values are values files, passed joined by commas.
	Values []string
	// Set are key=value overrides.
	Set []string
	// Debug enables helm's verbose output.
	Debug bool
}

func (o Options) args() []string {
	var args []string
	if len(o.Values) > 0 {
		args = append(args, "--values", strings.Join(o.Values, ","))
	}
	for _, s := range o.Set {
		args = append(args, "--set", s)
	}
	if o.Debug {
		args = append(args, "--debug")
	}
	return args
}

// Renderer renders a chart directory and shows its default values.
type Renderer interface {
	Template(ctx context.Context, dir string, opts Options) ([]byte, error)
	ShowValues(ctx context.Context, dir string) ([]byte, error)
}

var _ Renderer = (*Command)(nil)

// Command is a Renderer that executes the helm binary.
type Command struct {
	// Binary is the helm executable, DefaultCommand if empty.
	Binary string
}

func (c *Command) Template(ctx context.Context, dir string, opts Options) ([]byte, error) {
	args := append([]string{"template"}, opts.args()...)
	return c.run(ctx, append(args, dir)...)
}

func (c *Command) ShowValues(ctx context.Context, dir string) ([]byte, error) {
	return c.run(ctx, "show", "values", dir)
}

func (c *Command) run(ctx context.Context, args ...string) ([]byte, error) {
	binary := c.Binary
	if binary == "" {
		binary = DefaultCommand
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.DebugContext(ctx, "running helm", "command", binary, "args", args)
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s %s: %w: %s", ErrRender, binary, args[0], err, msg)
		}
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRender, binary, args[0], err)
	}
	return stdout.Bytes(), nil
}
