package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseServerVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		major  int
		minor  int
		patch  int
		suffix string
	}{
		{raw: "10.4 (Ubuntu 10.4)", major: 10, minor: 4, patch: 0, suffix: " (Ubuntu 10.4)"},
		{raw: "9.6.1", major: 9, minor: 6, patch: 1, suffix: ""},
		{raw: "16devel", major: 16, minor: 0, patch: 0, suffix: "devel"},
	}

	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			major, minor, patch, suffix := parseServerVersion(test.raw)
			assert.Equal(t, test.major, major)
			assert.Equal(t, test.minor, minor)
			assert.Equal(t, test.patch, patch)
			assert.Equal(t, test.suffix, suffix)
		})
	}
}

func TestParseIntegerDatetimes(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"on":  true,
		"yes": true,
		"1":   true,
		"off": false,
		"no":  false,
		"0":   false,
		"":    false,
	}

	for raw, expect := range tests {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, expect, parseIntegerDatetimes(raw))
		})
	}
}
