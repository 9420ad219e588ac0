package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RenderedFile is the file a chart fixture carries to stand in for the
// output of helm template when rendered by FakeHelm.
const RenderedFile = "rendered.yaml"

const fakeHelm = `#!/bin/sh
echo "$@" >> "$(dirname "$0")/calls"
for last; do :; done
case "$1" in
template)
	if [ ! -f "$last/rendered.yaml" ]; then
		echo "Error: template: $last: render error" >&2
		exit 1
	fi
	cat "$last/rendered.yaml"
	;;
show)
	cat "$last/values.yaml"
	;;
*)
	exit 2
	;;
esac
`

// FakeHelm writes an executable that behaves like helm for chart fixtures:
// "template" prints rendered.yaml of the chart directory and fails without
// it, "show values" prints values.yaml. It returns the path of the
// executable. Every invocation is recorded, see HelmCalls.
func FakeHelm(tb testing.TB) string {
	tb.Helper()
	dir := tb.TempDir()
	bin := filepath.Join(dir, "helm")
	require.NoError(tb, os.WriteFile(bin, []byte(fakeHelm), 0o755))
	return bin
}

// HelmCalls returns the argument lists FakeHelm at bin was invoked with.
func HelmCalls(tb testing.TB, bin string) []string {
	tb.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "calls"))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(tb, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}
