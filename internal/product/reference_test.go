package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		repo     string
		tag      string
	}{
		{name: "tagged", raw: "registry.example.com/proj/img:1.0.0-1", expected: "registry.example.com/proj/img:1.0.0-1", repo: "registry.example.com/proj/img", tag: "1.0.0-1"},
		{name: "untagged defaults to latest", raw: "registry.example.com/proj/img", expected: "registry.example.com/proj/img:latest", repo: "registry.example.com/proj/img", tag: "latest"},
		{name: "port is not a tag", raw: "localhost:5000/img", expected: "localhost:5000/img:latest", repo: "localhost:5000/img", tag: "latest"},
		{name: "port and tag", raw: "localhost:5000/img:2", expected: "localhost:5000/img:2", repo: "localhost:5000/img", tag: "2"},
		{name: "surrounding whitespace", raw: "  busybox:1.36 \n", expected: "busybox:1.36", repo: "busybox", tag: "1.36"},
		{name: "digest", raw: "busybox@sha256:abcd", expected: "busybox@sha256:abcd", repo: "busybox", tag: "sha256:abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := ParseReference(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.expected, ref.String())
			assert.Equal(t, tt.repo, ref.Repository)
			assert.Equal(t, tt.tag, ref.Tag)
		})
	}

	for _, raw := range []string{"", "   ", "@sha256:abc", ":tag"} {
		_, ok := ParseReference(raw)
		assert.False(t, ok, raw)
	}
}

func TestReferenceEqualityIsCaseSensitive(t *testing.T) {
	a, _ := ParseReference("reg.io/Proj/img:1")
	b, _ := ParseReference("reg.io/proj/img:1")
	assert.NotEqual(t, a.String(), b.String())
}

func TestReferenceHost(t *testing.T) {
	ref := NewReference("armdocker.example.com", "proj-x", "eric-img", "1.0.0-1")
	assert.Equal(t, "armdocker.example.com/proj-x/eric-img:1.0.0-1", ref.String())
	assert.Equal(t, "armdocker.example.com", ref.Host())
	assert.Equal(t, "proj-x/eric-img:1.0.0-1", ref.WithoutHost())
	assert.Equal(t, "eric-img", ref.Name())

	noHost := NewReference("", "library", "busybox", "1")
	assert.Equal(t, "library/busybox:1", noHost.String())
	assert.Empty(t, noHost.Host())
	assert.Equal(t, "library/busybox:1", noHost.WithoutHost())
}
