package helm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultant-1379/am-package-manager/internal/helm"
)

const rendered = `---
# Source: app/templates/configmap.yaml
apiVersion: v1
kind: ConfigMap
metadata:
  name: app
  annotations:
    ericsson.com/product-revision: "1.2.3"
    ericsson.com/product-number: "CXC 123"
---
# Source: app/templates/deployment.yaml
apiVersion: apps/v1
kind: Deployment
spec:
  template:
    spec:
      initContainers:
        - name: init
          image: registry.example.com/proj/init:1.0.0
      containers:
        - name: main
          image: registry.example.com/proj/main:2.0.0
        - name: sidecar
          image: registry.example.com/proj/main:2.0.0
        - name: structured
          image:
            repository: not/a/string
---
---
kind: Job
spec:
  image: registry.example.com/proj/job
`

func TestTemplate_Images(t *testing.T) {
	tmpl, err := helm.ParseTemplate([]byte(rendered))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"registry.example.com/proj/init:1.0.0",
		"registry.example.com/proj/job",
		"registry.example.com/proj/main:2.0.0",
	}, tmpl.Images())
	assert.False(t, tmpl.HasUnresolvedImages())
}

func TestTemplate_Annotations(t *testing.T) {
	tmpl, err := helm.ParseTemplate([]byte(rendered))
	require.NoError(t, err)

	annotations, ok := tmpl.Annotations("ConfigMap")
	require.True(t, ok)
	assert.Equal(t, "1.2.3", annotations["ericsson.com/product-revision"])

	_, ok = tmpl.Annotations("Secret")
	assert.False(t, ok)
}

func TestTemplate_HasUnresolvedImages(t *testing.T) {
	tmpl, err := helm.ParseTemplate([]byte(`kind: Pod
spec:
  containers:
    - image: "{{ .Values.global.registry.url }}/proj/app:1.0.0"
`))
	require.NoError(t, err)
	assert.True(t, tmpl.HasUnresolvedImages())
}

func TestParseTemplate_Invalid(t *testing.T) {
	_, err := helm.ParseTemplate([]byte("kind: [unterminated"))
	assert.Error(t, err)

	tmpl, err := helm.ParseTemplate(nil)
	require.NoError(t, err)
	assert.Empty(t, tmpl.Images())
}
