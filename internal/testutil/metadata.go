package testutil

import (
	"fmt"
	"strings"
)

// ProductInfo returns the content of a product metadata file declaring the
// given "name:tag" images at host/proj/name:tag with product number
// CXU-name.
func ProductInfo(host, number string, images ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "productNumber: %q\n", number)
	if len(images) == 0 {
		b.WriteString("images: {}\n")
		return b.String()
	}
	b.WriteString("images:\n")
	for _, image := range images {
		name, tag, _ := strings.Cut(image, ":")
		fmt.Fprintf(&b, "  %s:\n    productNumber: CXU-%s\n    registry: %s\n    repoPath: proj\n    name: %s\n    tag: %s\n",
			name, name, host, name, tag)
	}
	return b.String()
}
