package auth

import (
	"strings"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	key, displayPrefix, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey returned error: %v", err)
	}

	if !strings.HasPrefix(key, "kf_") {
		t.Errorf("key %q does not start with kf_", key)
	}
	if len(displayPrefix) != DisplayPrefixLength {
		t.Errorf("display prefix length = %d, want %d", len(displayPrefix), DisplayPrefixLength)
	}
	if !strings.HasPrefix(key, displayPrefix) {
		t.Errorf("display prefix %q is not a prefix of key", displayPrefix)
	}
}

func TestGenerateAPIKey_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, _, err := GenerateAPIKey()
		if err != nil {
			t.Fatalf("GenerateAPIKey returned error: %v", err)
		}
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}

func TestCompareAPIKeys(t *testing.T) {
	if !CompareAPIKeys("kf_abc", "kf_abc") {
		t.Error("equal keys should compare true")
	}
	if CompareAPIKeys("kf_abc", "kf_abd") {
		t.Error("different keys should compare false")
	}
	if CompareAPIKeys("kf_abc", "kf_abcd") {
		t.Error("different-length keys should compare false")
	}
}

func TestExtractAPIKeyFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid header", "Bearer kf_abc123", "kf_abc123", false},
		{"empty header", "", "", true},
		{"missing bearer", "kf_abc123", "", true},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", true},
		{"empty key", "Bearer ", "", true},
		{"trailing whitespace", "Bearer kf_abc123  ", "kf_abc123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractAPIKeyFromHeader(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "hunter2" {
		t.Error("hash should not equal plaintext")
	}

	if !VerifyPassword("hunter2", hash) {
		t.Error("correct password should verify")
	}
	if VerifyPassword("hunter3", hash) {
		t.Error("wrong password should not verify")
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", MaxPasswordLength+1))
	if err == nil {
		t.Error("expected error for over-length password")
	}
}
