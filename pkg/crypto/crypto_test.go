package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestAPIKeyLifecycle(t *testing.T) {
	key, err := GenerateAPIKey("caf_")
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v", err)
	}
	if !strings.HasPrefix(key, "caf_") {
		t.Errorf("key %q missing prefix", key)
	}

	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey() error = %v", err)
	}
	if hash == key {
		t.Fatal("hash equals plaintext key")
	}

	if err := VerifyAPIKey(key, hash); err != nil {
		t.Errorf("VerifyAPIKey() error = %v", err)
	}
	if err := VerifyAPIKey(key+"x", hash); !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("VerifyAPIKey() error = %v, want ErrKeyMismatch", err)
	}
}

func TestTokenHash(t *testing.T) {
	hash := HashToken("some-token")
	if !VerifyTokenHash("some-token", hash) {
		t.Error("matching token rejected")
	}
	if VerifyTokenHash("other-token", hash) {
		t.Error("different token accepted")
	}
}
