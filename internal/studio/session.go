package studio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mediaforge/internal/cache"
	"github.com/kiranshivaraju/mediaforge/internal/media"
)

const maxSessionIDLen = 128

// Session carries images between pages of one client: the reference photo it
// uploaded, the last image it generated and the video job it is waiting on.
// Images are data URLs.
type Session struct {
	ID             string     `json:"id"`
	ReferenceImage string     `json:"reference_image,omitempty"`
	LastImage      string     `json:"last_image,omitempty"`
	ActiveJobID    *uuid.UUID `json:"active_job_id,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// GetSession loads the session or returns ErrSessionNotFound.
func (s *Service) GetSession(ctx context.Context, tenantID uuid.UUID, sessionID string) (*Session, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}
	raw, ok, err := s.cache.Get(ctx, cache.SessionKey(tenantID, sessionID))
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if !ok {
		return nil, ErrSessionNotFound
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &sess, nil
}

// PutSession validates and stores the session, refreshing its TTL.
func (s *Service) PutSession(ctx context.Context, tenantID uuid.UUID, sess *Session) error {
	if err := validateSessionID(sess.ID); err != nil {
		return err
	}
	for _, img := range []string{sess.ReferenceImage, sess.LastImage} {
		if img == "" {
			continue
		}
		decoded, err := media.ImageFromDataURL(img)
		if err != nil {
			return err
		}
		if err := decoded.Validate(); err != nil {
			return err
		}
	}

	sess.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.cache.Set(ctx, cache.SessionKey(tenantID, sess.ID), raw, s.sessionTTL); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// updateSession applies fn to the stored session, creating it when missing.
// Failures are logged; session bookkeeping never fails a generation.
func (s *Service) updateSession(ctx context.Context, tenantID uuid.UUID, sessionID string, fn func(*Session)) {
	sess, err := s.GetSession(ctx, tenantID, sessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			s.logger.Warn("loading session", "session_id", sessionID, "error", err)
			return
		}
		sess = &Session{ID: sessionID}
	}
	fn(sess)
	if err := s.PutSession(ctx, tenantID, sess); err != nil {
		s.logger.Warn("saving session", "session_id", sessionID, "error", err)
	}
}

func (s *Service) markActive(ctx context.Context, tenantID uuid.UUID, sessionID string, jobID *uuid.UUID) {
	s.updateSession(ctx, tenantID, sessionID, func(sess *Session) {
		sess.ActiveJobID = jobID
	})
}

func (s *Service) clearActive(ctx context.Context, tenantID uuid.UUID, sessionID string, jobID uuid.UUID) {
	s.updateSession(ctx, tenantID, sessionID, func(sess *Session) {
		if sess.ActiveJobID != nil && *sess.ActiveJobID == jobID {
			sess.ActiveJobID = nil
		}
	})
}

func validateSessionID(id string) error {
	if id == "" || len(id) > maxSessionIDLen {
		return fmt.Errorf("%w: session id must be 1-%d characters", media.ErrInvalidRequest, maxSessionIDLen)
	}
	return nil
}
