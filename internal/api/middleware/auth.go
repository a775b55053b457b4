package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/mediaforge/internal/api/response"
	"github.com/kiranshivaraju/mediaforge/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyPrefix starts every issued key. The first KeyPrefixLen characters
// are stored in clear for lookup.
const (
	APIKeyPrefix = "mfk_"
	KeyPrefixLen = 8
)

const lastUsedTimeout = 5 * time.Second

var (
	errMalformedKey = errors.New("malformed api key")
	errUnknownKey   = errors.New("unknown api key")
)

// Auth resolves Bearer API keys to a Principal and enforces scopes.
type Auth struct {
	store store.Store
}

func NewAuth(s store.Store) *Auth {
	return &Auth{store: s}
}

// Authenticate rejects requests without a valid key and attaches the
// resolved Principal to the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		p, err := a.resolve(r.Context(), rawKey)
		switch {
		case errors.Is(err, errMalformedKey):
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid API key format", nil)
			return
		case errors.Is(err, errUnknownKey):
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid API key", nil)
			return
		case err != nil:
			slog.Error("api key lookup failed", "key_prefix", rawKey[:KeyPrefixLen], "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate API key", nil)
			return
		}

		go a.touch(context.WithoutCancel(r.Context()), p)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func (a *Auth) resolve(ctx context.Context, rawKey string) (Principal, error) {
	if len(rawKey) < KeyPrefixLen || !strings.HasPrefix(rawKey, APIKeyPrefix) {
		return Principal{}, errMalformedKey
	}
	prefix := rawKey[:KeyPrefixLen]

	keys, err := a.store.GetAPIKeyByPrefix(ctx, prefix)
	if err != nil {
		return Principal{}, err
	}
	for _, key := range keys {
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)) == nil {
			return Principal{
				TenantID:  key.TenantID,
				KeyID:     key.ID,
				KeyPrefix: prefix,
				Scopes:    key.Scopes,
			}, nil
		}
	}
	return Principal{}, errUnknownKey
}

func (a *Auth) touch(ctx context.Context, p Principal) {
	ctx, cancel := context.WithTimeout(ctx, lastUsedTimeout)
	defer cancel()
	if err := a.store.UpdateAPIKeyLastUsed(ctx, p.KeyID); err != nil {
		slog.Warn("recording api key use", "key_id", p.KeyID, "error", err)
	}
}

// RequireScope rejects callers whose key lacks scope.
func (a *Auth) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFrom(r.Context())
			if !p.HasScope(scope) {
				response.Error(w, http.StatusForbidden,
					"FORBIDDEN", "Insufficient permissions", map[string]any{"required_scope": scope})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
