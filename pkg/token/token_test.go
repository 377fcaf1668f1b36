package token

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	for _, prefix := range Prefixes {
		t.Run(string(prefix), func(t *testing.T) {
			tok, err := Generate(prefix)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if !strings.HasPrefix(tok, string(prefix)) {
				t.Errorf("Generate() = %q, want prefix %q", tok, prefix)
			}

			decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(tok, string(prefix)))
			if err != nil {
				t.Errorf("body is not base64url: %v", err)
			}
			if len(decoded) != DefaultLength {
				t.Errorf("decoded length = %d, want %d", len(decoded), DefaultLength)
			}
			if KindOf(tok) != prefix {
				t.Errorf("KindOf(%q) = %q, want %q", tok, KindOf(tok), prefix)
			}
		})
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := Generate(PrefixRefresh)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if seen[tok] {
			t.Fatalf("Generate() produced duplicate token: %s", tok)
		}
		seen[tok] = true
	}
}

func TestRandom(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"9 bytes", 9},
		{"12 bytes", 12},
		{"32 bytes", 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Random(tt.length)
			if err != nil {
				t.Fatalf("Random(%d) error = %v", tt.length, err)
			}
			decoded, err := base64.RawURLEncoding.DecodeString(s)
			if err != nil {
				t.Errorf("Random(%d) returned invalid base64: %v", tt.length, err)
			}
			if len(decoded) != tt.length {
				t.Errorf("Random(%d) decoded length = %d", tt.length, len(decoded))
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		tok  string
		want Prefix
	}{
		{"cbrt_abc", PrefixRefresh},
		{"cbpr_abc", PrefixReset},
		{"cbvt_abc", PrefixVerification},
		{"cbrt_", ""},
		{"eyJhbGciOi", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := KindOf(tt.tok); got != tt.want {
			t.Errorf("KindOf(%q) = %q, want %q", tt.tok, got, tt.want)
		}
	}
}

func TestHash(t *testing.T) {
	h := Hash("cbrt_test-token")
	if len(h) != 64 {
		t.Errorf("Hash() length = %d, want 64", len(h))
	}
	if strings.ToLower(h) != h {
		t.Error("Hash() should return lowercase hex")
	}
	if Hash("cbrt_test-token") != h {
		t.Error("Hash() is not deterministic")
	}
	if Hash("cbrt_other") == h {
		t.Error("Hash() produced same hash for different inputs")
	}
}

func TestVerify(t *testing.T) {
	tok := "cbpr_my-secret-token"
	h := Hash(tok)

	if !Verify(tok, h) {
		t.Error("Verify() returned false for correct token")
	}
	if Verify("cbpr_wrong-token", h) {
		t.Error("Verify() returned true for wrong token")
	}
	if Verify(tok, "wrong-hash") {
		t.Error("Verify() returned true for wrong hash")
	}
	if Verify("", h) {
		t.Error("Verify() should return false for empty token")
	}
}

func BenchmarkGenerate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Generate(PrefixRefresh)
	}
}

func BenchmarkHash(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Hash("cbrt_benchmark-token-12345")
	}
}
