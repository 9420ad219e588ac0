package version

import (
	"bytes"
	"encoding/json"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	tests := []struct {
		version string
		want    Info
	}{
		{
			version: "v1.2.3",
			want:    Info{Major: "1", Minor: "2", Patch: "3", Version: "1.2.3"},
		},
		{
			version: "v0.5.0-20250101120000-abcdef123456+dirty",
			want: Info{Major: "0", Minor: "5", Patch: "0", Version: "0.5.0-20250101120000-abcdef123456+dirty",
				PreRelease: "20250101120000-abcdef123456", Meta: "dirty"},
		},
		{
			version: "(devel)",
			want:    Info{Major: "0", Minor: "0", Patch: "0", Version: "(devel)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got := GetInfo(&debug.BuildInfo{Main: debug.Module{Version: tt.version}})
			got.GoVersion, got.Compiler, got.Platform = "", "", ""
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrite(t *testing.T) {
	bi := &debug.BuildInfo{GoVersion: "go1.25.1", Path: "github.com/consultant-1379/am-package-manager", Main: debug.Module{Version: "v1.0.0"}}

	var buf bytes.Buffer
	require.NoError(t, write(&buf, FlagFormatText, bi))
	assert.Equal(t, "am-package-manager v1.0.0\n", buf.String())

	buf.Reset()
	require.NoError(t, write(&buf, FlagFormatJSON, bi))
	var info Info
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, "1", info.Major)

	buf.Reset()
	require.NoError(t, write(&buf, FlagFormatGoBuildInfo, bi))
	assert.Contains(t, buf.String(), "github.com/consultant-1379/am-package-manager")
}

func TestNew(t *testing.T) {
	cmd := New()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--format", "text"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "am-package-manager ")

	cmd = New()
	cmd.SetArgs([]string{"--format", "yaml"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
