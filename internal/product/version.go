package product

import (
	"regexp"
	"strings"
)

// versionPattern keeps major.minor.patch and an optional emergency-patch
// qualifier (-EP1, +EP2). Everything following is a build identifier.
var versionPattern = regexp.MustCompile(`([0-9]+.[0-9]+.[0-9]+)((?:[+-]EP[0-9]+)?).*`)

// StripVersion removes build identifiers from a version.
//
//	StripVersion("1.1.11-EP1") == "1.1.11-EP1"
//	StripVersion("1.1.1-12")   == "1.1.1"
//	StripVersion("1.1.11+12")  == "1.1.11"
func StripVersion(version string) string {
	return versionPattern.ReplaceAllString(version, "${1}${2}")
}

// NormalizeProductNumber drops any revision suffix ("CXC 174 2971/1") and
// all whitespace from a product number.
func NormalizeProductNumber(number string) string {
	number, _, _ = strings.Cut(number, "/")
	return strings.Join(strings.Fields(number), "")
}
