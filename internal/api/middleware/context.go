package middleware

import (
	"context"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mediaforge/internal/api/response"
)

// SessionHeader names the studio session a request belongs to. A session_id
// in the request body takes precedence.
const SessionHeader = "X-Session-ID"

const maxSessionIDLen = 128

type contextKey int

const (
	principalKey contextKey = iota
	sessionIDKey
)

// Principal is the caller an API key resolves to.
type Principal struct {
	TenantID  uuid.UUID
	KeyID     uuid.UUID
	KeyPrefix string
	Scopes    []string
}

// HasScope reports whether the key was granted scope.
func (p Principal) HasScope(scope string) bool {
	return slices.Contains(p.Scopes, scope)
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// SetTenantID attaches a principal carrying only a tenant.
func SetTenantID(ctx context.Context, id uuid.UUID) context.Context {
	return WithPrincipal(ctx, Principal{TenantID: id})
}

func GetTenantID(r *http.Request) (uuid.UUID, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok || p.TenantID == uuid.Nil {
		return uuid.Nil, false
	}
	return p.TenantID, true
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID returns the session named by SessionHeader, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// Session copies SessionHeader into the request context. Over-long ids are
// rejected here so handlers never see them.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(id) > maxSessionIDLen {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				SessionHeader+" is too long", map[string]any{"max_length": maxSessionIDLen})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
	})
}
