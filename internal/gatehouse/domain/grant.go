package domain

import (
	"time"

	"github.com/ferryhill/gatehouse/pkg/idx"
)

// Persisted grant types. The table is shaped to take further grant kinds
// (device codes, reference tokens) without schema changes.
const (
	GrantKindRefreshToken = "refresh_token"
)

// Grant is a persisted authorization artifact. Key is a fingerprint of the
// client-held secret, never the secret itself; Data holds the type-specific
// payload as JSON.
type Grant struct {
	ID        idx.ID
	Key       string
	Type      string
	SubjectID string
	ClientID  idx.ID
	SessionID string
	Data      []byte

	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt time.Time // zero until the grant is used
}

// Consumed reports whether the grant has already been redeemed.
func (g *Grant) Consumed() bool {
	return !g.ConsumedAt.IsZero()
}

// Expired reports whether the grant is past its lifetime at the given time.
func (g *Grant) Expired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// RefreshTokenData is the Data payload for refresh-token grants.
type RefreshTokenData struct {
	Scopes []string `json:"scopes"`

	// Rotation chain bookkeeping: how many times this line of tokens has
	// been rotated, and when the chain started.
	Generation int       `json:"generation"`
	IssuedAt   time.Time `json:"issued_at"`
}
