package shortener

import (
	"errors"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain http", "http://example.com", false},
		{"https with path and query", "https://example.com/a?b=c#frag", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"no scheme", "example.com", true},
		{"ftp scheme", "ftp://example.com", true},
		{"scheme only", "https://", true},
		{"not a url", "::::", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateURL(%q) = %v, wantErr=%v", tt.raw, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidURL) {
				t.Fatalf("ValidateURL(%q) = %v, want ErrInvalidURL", tt.raw, err)
			}
		})
	}
}

func TestValidateCode(t *testing.T) {
	if err := ValidateCode("Abc123"); err != nil {
		t.Fatalf("ValidateCode(Abc123): %v", err)
	}
	for _, bad := range []string{"", "has space", "a/b", "api", "healthz", "FAVICON"} {
		if err := ValidateCode(bad); !errors.Is(err, ErrNotFound) {
			t.Fatalf("ValidateCode(%q) = %v, want ErrNotFound", bad, err)
		}
	}
}
