package helm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// imageLine matches every line that sets an image key.
var imageLine = regexp.MustCompile(`(?m)^.*image:.*$`)

// Template is the parsed output of helm template.
type Template struct {
	raw  []byte
	docs []any
}

// ParseTemplate decodes every YAML document of the rendered output. Empty
// documents are dropped.
func ParseTemplate(out []byte) (*Template, error) {
	t := &Template{raw: out}
	dec := yaml.NewDecoder(bytes.NewReader(out))
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid rendered template: %w", err)
		}
		if doc != nil {
			t.docs = append(t.docs, doc)
		}
	}
	return t, nil
}

// Images returns the string values of every key named "image" at any depth,
// including inside sequences, sorted and without duplicates.
func (t *Template) Images() []string {
	var images []string
	for _, doc := range t.docs {
		images = collect(doc, "image", images)
	}
	slices.Sort(images)
	return slices.Compact(images)
}

func collect(node any, key string, into []string) []string {
	switch n := node.(type) {
	case map[string]any:
		// map iteration order does not matter, the result is sorted
		for k, v := range n {
			if s, ok := v.(string); ok && k == key {
				into = append(into, s)
				continue
			}
			into = collect(v, key, into)
		}
	case []any:
		for _, v := range n {
			into = collect(v, key, into)
		}
	}
	return into
}

// HasUnresolvedImages reports whether an image line still carries template
// placeholders, which happens when charts pass image references through
// scalar values helm does not evaluate.
func (t *Template) HasUnresolvedImages() bool {
	for _, line := range imageLine.FindAll(t.raw, -1) {
		if bytes.Contains(line, []byte("{{")) {
			return true
		}
	}
	return false
}

// Annotations returns the annotations of the first object of the given kind.
func (t *Template) Annotations(kind string) (map[string]string, bool) {
	for _, doc := range t.docs {
		obj, ok := doc.(map[string]any)
		if !ok || obj["kind"] != kind {
			continue
		}
		annotations := map[string]string{}
		metadata, _ := obj["metadata"].(map[string]any)
		raw, _ := metadata["annotations"].(map[string]any)
		for k, v := range raw {
			if s, ok := v.(string); ok {
				annotations[k] = s
			}
		}
		return annotations, true
	}
	return nil, false
}
