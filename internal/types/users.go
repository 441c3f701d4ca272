package types

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Session struct {
	Id        uuid.UUID  `json:"id"`
	UserId    uuid.UUID  `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the session can still authenticate requests at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// IngestRun is the persisted outcome of one bulk batch.
type IngestRun struct {
	Id        int64         `json:"id"`
	UserId    uuid.UUID     `json:"user_id"`
	Kind      string        `json:"kind"`
	Field     string        `json:"field,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Valid     int           `json:"valid"`
	Invalid   int           `json:"invalid"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Unmatched int           `json:"unmatched"`
	Messages  []RunMessage  `json:"messages"`
}

type RunMessage struct {
	Row     int    `json:"row"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
