package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_VerifyPassword(t *testing.T) {
	params := Argon2Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLen: 8, KeyLen: 16}
	hash, err := HashPassword("s3cret", params)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "argon2id$1$64$1$"))
	assert.True(t, VerifyPassword("s3cret", hash))
	assert.False(t, VerifyPassword("wrong", hash))

	other, err := HashPassword("s3cret", params)
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ")
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, h := range []string{
		"",
		"bcrypt$1$2$3$4$5",
		"argon2id$x$64$1$c2FsdA$aGFzaA",
		"argon2id$1$64$0$c2FsdA$aGFzaA",
		"argon2id$1$64$1$!!$aGFzaA",
		"argon2id$1$64$1$c2FsdA$",
	} {
		assert.False(t, VerifyPassword("pw", h), h)
	}
}

func TestParseUint32(t *testing.T) {
	tests := []struct {
		input     string
		expected  uint32
		expectErr bool
	}{
		{"0", 0, false},
		{"123", 123, false},
		{"4294967295", 4294967295, false},
		{"4294967296", 0, true},
		{"", 0, true},
		{"-1", 0, true},
	}
	for _, tt := range tests {
		got, err := parseUint32(tt.input)
		if tt.expectErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got)
	}
}

func TestReviewerFromContext(t *testing.T) {
	_, ok := ReviewerFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
