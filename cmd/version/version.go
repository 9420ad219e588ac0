package version

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consultant-1379/am-package-manager/internal/flags/enum"
)

const (
	FlagFormat            = "format"
	FlagFormatShortHand   = "f"
	FlagFormatText        = "text"
	FlagFormatJSON        = "json"
	FlagFormatGoBuildInfo = "gobuildinfo"
)

// BuildVersion overrides the module version found in the build info. It is
// set at build time with
//
//	-ldflags "-X github.com/consultant-1379/am-package-manager/cmd/version.BuildVersion=1.2.3"
var BuildVersion = "n/a"

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version of am-package-manager",
		Long: fmt.Sprintf(`Print the build version of am-package-manager.

With %[1]q only the version is printed. %[2]q prints the version split into its
semantic version parts along with the Go toolchain and platform. %[3]q prints
the complete Go build information.`, FlagFormatText, FlagFormatJSON, FlagFormatGoBuildInfo),
		Example: "am-package-manager version --format json",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := enum.Get(cmd.Flags(), FlagFormat)
			if err != nil {
				return err
			}
			bi, ok := debug.ReadBuildInfo()
			if !ok {
				return fmt.Errorf("no build info available")
			}
			if BuildVersion != "n/a" {
				bi.Main.Version = BuildVersion
			}
			return write(cmd.OutOrStdout(), format, bi)
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	enum.VarP(cmd.Flags(), FlagFormat, FlagFormatShortHand,
		[]string{FlagFormatText, FlagFormatJSON, FlagFormatGoBuildInfo}, "format of the version output")
	return cmd
}

func write(w io.Writer, format string, bi *debug.BuildInfo) error {
	switch format {
	case FlagFormatJSON:
		return json.NewEncoder(w).Encode(GetInfo(bi))
	case FlagFormatGoBuildInfo:
		_, err := io.Copy(w, strings.NewReader(bi.String()))
		return err
	default:
		_, err := fmt.Fprintf(w, "am-package-manager %s\n", bi.Main.Version)
		return err
	}
}
