package textx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello\nworld\t!", SanitizeText("he\x00llo\nwo\x7frld\t!"))
	assert.Equal(t, "", SanitizeText("  \x01 "))
}

func TestSafeFilename(t *testing.T) {
	tests := map[string]string{
		"salary.pdf":              "salary.pdf",
		"../../etc/passwd":        "passwd",
		`C:\Users\me\pan card.png`: "pan card.png",
		"":                        "file",
		"..":                      "file",
		"bad\x00name.pdf":         "badname.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeFilename(in), in)
	}
	assert.Len(t, SafeFilename(strings.Repeat("a", 500)+".pdf"), MaxFilenameLen)
}
