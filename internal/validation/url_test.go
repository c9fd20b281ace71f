package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		expectErr bool
	}{
		{name: "local preview", url: "http://localhost:8080", expectErr: false},
		{name: "https", url: "https://example.com/docs", expectErr: false},
		{name: "loopback with port", url: "http://127.0.0.1:3000", expectErr: false},
		{name: "ipv6 loopback", url: "http://[::1]:8080", expectErr: false},
		{name: "file scheme", url: "file:///etc/passwd", expectErr: true},
		{name: "javascript scheme", url: "javascript:alert(1)", expectErr: true},
		{name: "no scheme", url: "localhost:8080", expectErr: true},
		{name: "semicolon", url: "http://localhost:8080/;rm -rf", expectErr: true},
		{name: "ampersand", url: "http://localhost:8080/?a=1&b=2", expectErr: true},
		{name: "backtick", url: "http://localhost:8080/`id`", expectErr: true},
		{name: "newline", url: "http://localhost:8080/\nx", expectErr: true},
		{name: "space", url: "http://localhost:8080/a b", expectErr: true},
		{name: "empty host", url: "http:///path", expectErr: true},
		{name: "unparseable", url: "http://[::1", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseOrigin(t *testing.T) {
	u, err := ParseOrigin("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", u.Host)

	for _, bad := range []string{"", "ws://localhost:8080", "file://", "null", "http://"} {
		_, err := ParseOrigin(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateOrigin(t *testing.T) {
	allowed := []string{"", "https://docs.example.com", "localhost:8080"}

	assert.NoError(t, ValidateOrigin("https://docs.example.com", allowed))
	assert.NoError(t, ValidateOrigin("http://localhost:8080", allowed))
	assert.NoError(t, ValidateOrigin("https://localhost:8080", allowed))

	assert.Error(t, ValidateOrigin("http://localhost:9090", allowed))
	assert.Error(t, ValidateOrigin("https://evil.example.com", allowed))
	assert.Error(t, ValidateOrigin("", allowed))
	assert.Error(t, ValidateOrigin("http://localhost:8080", nil))
}
