package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAddress(t *testing.T) {
	assert.Equal(t, "jane@example.com", ExtractAddress("Jane Doe <jane@example.com>"))
	assert.Equal(t, "jane@example.com", ExtractAddress("<jane@example.com>"))
	assert.Equal(t, "jane@example.com", ExtractAddress("jane@example.com"))
	assert.Equal(t, "c@d.com", ExtractAddress(`"a <b>" <c@d.com>`))
	assert.Equal(t, "", ExtractAddress("  "))
}

func TestStripContentID(t *testing.T) {
	assert.Equal(t, "part1.abc@mail", StripContentID("<part1.abc@mail>"))
	assert.Equal(t, "part1.abc@mail", StripContentID("part1.abc@mail"))
	assert.Equal(t, "", StripContentID("<>"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", SanitizeFilename("report.pdf"))
	assert.NotContains(t, SanitizeFilename("../../etc/passwd"), "..")
	assert.NotContains(t, SanitizeFilename("a/b\\c"), "/")
	assert.NotContains(t, SanitizeFilename("a/b\\c"), "\\")
}
