package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestSanitizeAttr(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"password", "password", "hunter2"},
		{"laa contract number", "laa_contract_number", "2F014B"},
		{"maat reference", "maat_reference", "7182910"},
		{"email", "assignee_email", "ada@chambers.example"},
		{"name", "first_name", "Ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: "info", Format: "json", Output: &buf})
			log.Info("test", tt.key, tt.value)

			out := buf.String()
			if strings.Contains(out, tt.value) {
				t.Errorf("log output leaked %q: %s", tt.value, out)
			}
			if !strings.Contains(out, "[REDACTED]") {
				t.Errorf("log output missing redaction marker: %s", out)
			}
		})
	}
}

func TestSafeKeysPassThrough(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})
	log.Info("assigned", "case_id", "a-case", "count", 3)

	out := buf.String()
	if !strings.Contains(out, "a-case") {
		t.Errorf("safe attribute was masked: %s", out)
	}
	if strings.Contains(out, "[REDACTED]") {
		t.Errorf("unexpected redaction: %s", out)
	}
}
