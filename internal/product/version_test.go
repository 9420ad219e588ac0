package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripVersion(t *testing.T) {
	tests := []struct {
		version  string
		expected string
	}{
		{"1.1.11-EP1", "1.1.11-EP1"},
		{"1.1.11+EP2", "1.1.11+EP2"},
		{"1.1.1-12", "1.1.1"},
		{"1.1.11+12", "1.1.11"},
		{"2.8.0+35", "2.8.0"},
		{"1.0.0", "1.0.0"},
		{"1.0", "1.0"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripVersion(tt.version))
		})
	}
}

func TestNormalizeProductNumber(t *testing.T) {
	assert.Equal(t, "CXC1742971", NormalizeProductNumber("CXC 174 2971/1"))
	assert.Equal(t, "CXC1742971", NormalizeProductNumber(" CXC1742971 "))
	assert.Empty(t, NormalizeProductNumber(""))
}
