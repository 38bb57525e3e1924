package utils

import "testing"

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal string", "hello", "hello"},
		{"control chars removed", "hello\x00world", "helloworld"},
		{"newline kept", "hello\nworld", "hello\nworld"},
		{"tab kept", "hello\tworld", "hello\tworld"},
		{"whitespace trimmed", "  hello  ", "hello"},
		{"only whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeString(tt.input); got != tt.expected {
				t.Errorf("SanitizeString(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exactly at limit", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 8, "hello..."},
		{"tiny limit", "hello", 2, "he"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername("  Alice "); got != "alice" {
		t.Errorf("NormalizeUsername = %q, want alice", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail(" Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail = %q, want alice@example.com", got)
	}
}
