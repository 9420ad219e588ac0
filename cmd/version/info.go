package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

type Info struct {
	Major      string `json:"major"`
	Minor      string `json:"minor"`
	Patch      string `json:"patch"`
	PreRelease string `json:"prerelease,omitempty"`
	Meta       string `json:"meta,omitempty"`
	Version    string `json:"version"`
	GoVersion  string `json:"goVersion"`
	Compiler   string `json:"compiler"`
	Platform   string `json:"platform"`
}

// GetInfo splits the main module version of bi into its parts. Versions
// that are not semantic versions are reported as 0.0.0 with the raw string
// kept in Version.
func GetInfo(bi *debug.BuildInfo) Info {
	info := Info{
		Version:   bi.Main.Version,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	v, err := semver.NewVersion(bi.Main.Version)
	if err != nil {
		info.Major, info.Minor, info.Patch = "0", "0", "0"
		return info
	}
	info.Version = v.String()
	info.PreRelease = v.Prerelease()
	info.Meta = v.Metadata()
	info.Major = strconv.FormatUint(v.Major(), 10)
	info.Minor = strconv.FormatUint(v.Minor(), 10)
	info.Patch = strconv.FormatUint(v.Patch(), 10)
	return info
}
