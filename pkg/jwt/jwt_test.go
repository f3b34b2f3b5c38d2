package jwt

import (
	"errors"
	"testing"
	"time"
)

func testGenerator() *Generator {
	return NewGenerator(TokenConfig{
		Secret:               "test-secret",
		Issuer:               "caseaccess-test",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 24 * time.Hour,
	})
}

func TestGenerator_AccessToken(t *testing.T) {
	g := testGenerator()

	t.Run("round trip preserves claims", func(t *testing.T) {
		token, _, err := g.GenerateAccessToken("user-1", "ada@chambers.example", "sess-1", "org-1", []string{"Advocates"})
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}

		claims, err := g.ValidateAccessToken(token)
		if err != nil {
			t.Fatalf("ValidateAccessToken() error = %v", err)
		}
		if claims.UserID != "user-1" || claims.OrganisationID != "org-1" {
			t.Errorf("claims = %+v", claims)
		}
		if !claims.HasGroup("Advocates") {
			t.Error("group membership lost")
		}
		if claims.HasGroup("Defence Lawyers") {
			t.Error("unexpected group membership")
		}
	})

	t.Run("empty user id rejected", func(t *testing.T) {
		if _, _, err := g.GenerateAccessToken("", "", "", "", nil); !errors.Is(err, ErrEmptyUserID) {
			t.Errorf("error = %v, want ErrEmptyUserID", err)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token, _, err := g.GenerateAccessToken("user-1", "", "", "", nil)
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		other := NewGenerator(TokenConfig{Secret: "other", AccessTokenDuration: time.Minute})
		if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		short := NewGenerator(TokenConfig{Secret: "test-secret", AccessTokenDuration: -time.Minute})
		token, _, err := short.GenerateAccessToken("user-1", "", "", "", nil)
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		if _, err := short.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
			t.Errorf("error = %v, want ErrExpiredToken", err)
		}
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		token, _, err := g.GenerateRefreshToken("user-1", "sess-1")
		if err != nil {
			t.Fatalf("GenerateRefreshToken() error = %v", err)
		}
		if _, err := g.ValidateAccessToken(token); !errors.Is(err, ErrInvalidTokenType) {
			t.Errorf("error = %v, want ErrInvalidTokenType", err)
		}
		if _, err := g.ValidateRefreshToken(token); err != nil {
			t.Errorf("ValidateRefreshToken() error = %v", err)
		}
	})
}

func TestGenerator_TokenPair(t *testing.T) {
	g := testGenerator()

	pair, err := g.GenerateTokenPair("user-1", "ada@chambers.example", "sess-1", "org-1", []string{"Defence Lawyers"})
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("empty token in pair")
	}
	if !pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt) {
		t.Error("refresh token should outlive the access token")
	}
}
