package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPolicy(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		policy, err := LoadPolicy("")
		if err != nil {
			t.Fatalf("LoadPolicy() error = %v", err)
		}
		if got := time.Duration(policy.HearingAccess.Expiry); got != 28*24*time.Hour {
			t.Errorf("default expiry = %v", got)
		}
		allowlist, err := policy.Allowlist()
		if err != nil {
			t.Fatalf("Allowlist() error = %v", err)
		}
		if !allowlist.IsAdvocate([]string{"Advocates"}) {
			t.Error("default advocate group not honoured")
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writePolicyFile(t, `
allowed_groups:
  advocate: ["Counsel"]
  defence_lawyer: ["Solicitors"]
  chambers_admin: ["Clerks"]
hearing_access:
  expiry: 168h
`)
		policy, err := LoadPolicy(path)
		if err != nil {
			t.Fatalf("LoadPolicy() error = %v", err)
		}
		if got := time.Duration(policy.HearingAccess.Expiry); got != 168*time.Hour {
			t.Errorf("expiry = %v, want 168h", got)
		}
		allowlist, err := policy.Allowlist()
		if err != nil {
			t.Fatalf("Allowlist() error = %v", err)
		}
		if allowlist.IsAdvocate([]string{"Advocates"}) {
			t.Error("default group should be replaced")
		}
		if !allowlist.IsAdvocate([]string{"Counsel"}) {
			t.Error("configured group not honoured")
		}
	})

	t.Run("invalid duration rejected", func(t *testing.T) {
		path := writePolicyFile(t, `
hearing_access:
  expiry: soon
`)
		if _, err := LoadPolicy(path); err == nil {
			t.Error("LoadPolicy() expected error for invalid duration")
		}
	})

	t.Run("empty groups rejected", func(t *testing.T) {
		path := writePolicyFile(t, `
allowed_groups:
  advocate: []
  defence_lawyer: ["Solicitors"]
`)
		if _, err := LoadPolicy(path); err == nil {
			t.Error("LoadPolicy() expected error for empty advocate groups")
		}
	})

	t.Run("missing file rejected", func(t *testing.T) {
		if _, err := LoadPolicy("/nonexistent/policy.yaml"); err == nil {
			t.Error("LoadPolicy() expected error for missing file")
		}
	})
}
