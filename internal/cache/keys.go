package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

func JobProgressKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s:elapsed", jobID)
}

// RateLimitKey counts requests by one API key within a fixed window.
func RateLimitKey(keyPrefix string, window int64) string {
	return fmt.Sprintf("ratelimit:key:%s:%d", keyPrefix, window)
}

// GenerationRateKey counts a tenant's generation requests of one kind within a
// fixed window, across all of its keys.
func GenerationRateKey(tenantID uuid.UUID, kind string, window int64) string {
	return fmt.Sprintf("ratelimit:gen:%s:%s:%d", kind, tenantID, window)
}

// GenerationLockKey guards one in-flight generation per tenant and source image.
func GenerationLockKey(tenantID uuid.UUID, kind, digest string) string {
	return fmt.Sprintf("lock:%s:%s:%s", kind, tenantID, digest)
}

func SessionKey(tenantID uuid.UUID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", tenantID, sessionID)
}
