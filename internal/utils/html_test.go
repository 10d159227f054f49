package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head>
<body><p>Hello   <b>world</b></p><script>alert(1)</script></body></html>`

	assert.Equal(t, "Hello world", HTMLToText(html))
}

func TestHTMLToText_PlainInput(t *testing.T) {
	assert.Equal(t, "just text", HTMLToText("just text"))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "lon…", TruncateText("longer", 3))
	// rune-aware, not byte-aware
	assert.Equal(t, "héll…", TruncateText("héllo world", 4))
}
