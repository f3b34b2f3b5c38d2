package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/caseaccessio/api/pkg/apierror"
	"github.com/caseaccessio/api/pkg/crypto"
	"github.com/caseaccessio/api/pkg/jwt"
	"github.com/caseaccessio/api/pkg/logger"
)

// Auth-related context keys.
const (
	UserIDKey                         = logger.ContextKeyUserID
	EmailKey        logger.ContextKey = "email"
	GroupsKey       logger.ContextKey = "groups"
	OrganisationKey logger.ContextKey = "organisation_id"
)

// GetUserID extracts the authenticated user's id from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetEmail extracts the authenticated user's email from context.
func GetEmail(ctx context.Context) string {
	if email, ok := ctx.Value(EmailKey).(string); ok {
		return email
	}
	return ""
}

// GetGroups extracts the authenticated user's directory groups from context.
func GetGroups(ctx context.Context) []string {
	if groups, ok := ctx.Value(GroupsKey).([]string); ok {
		return groups
	}
	return nil
}

// GetOrganisationID extracts the authenticated user's organisation id from
// context. Empty when the user has none.
func GetOrganisationID(ctx context.Context) string {
	if id, ok := ctx.Value(OrganisationKey).(string); ok {
		return id
	}
	return ""
}

// TokenValidator validates an access token and returns its claims.
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// Auth authenticates requests with a bearer access token and stores the
// claims on the context.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				// WebSocket clients cannot set headers; they pass the token
				// as a query parameter instead.
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				apierror.Unauthorized("authentication required").WriteJSON(w, GetRequestID(r.Context()))
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				apierror.Unauthorized("invalid or expired token").WriteJSON(w, GetRequestID(r.Context()))
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			ctx = context.WithValue(ctx, GroupsKey, claims.Groups)
			ctx = context.WithValue(ctx, OrganisationKey, claims.OrganisationID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAnyGroup rejects authenticated requests whose user holds none of
// the given groups.
func RequireAnyGroup(groups ...string) func(http.Handler) http.Handler {
	required := make(map[string]bool, len(groups))
	for _, g := range groups {
		required[g] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, g := range GetGroups(r.Context()) {
				if required[g] {
					next.ServeHTTP(w, r)
					return
				}
			}
			apierror.Forbidden("insufficient permissions").WriteJSON(w, GetRequestID(r.Context()))
		})
	}
}

// FeedAPIKey authenticates court-feed requests with the X-API-Key header
// against the configured hash. Feed endpoints carry no user identity.
func FeedAPIKey(storedHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" || storedHash == "" {
				apierror.Unauthorized("api key required").WriteJSON(w, GetRequestID(r.Context()))
				return
			}
			if err := crypto.VerifyAPIKey(key, storedHash); err != nil {
				apierror.Unauthorized("invalid api key").WriteJSON(w, GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
