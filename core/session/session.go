// Package session holds TTL-bound conversation history keyed by an opaque
// session identifier. The entity shape is versioned so schema evolution
// never silently corrupts old entries.
package session

import (
	"context"
	"time"
)

// SchemaVersion is stamped into every stored session. Entries with an
// unknown version are discarded rather than misread.
const SchemaVersion = 1

// DefaultTTL is how long an untouched session survives.
const DefaultTTL = 24 * time.Hour

// Role labels who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is an ordered conversation history.
type Session struct {
	Version   int       `json:"version"`
	SessionID string    `json:"session_id"`
	Turns     []Turn    `json:"turns"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is the durable key-value contract for session history. A session is
// created on first reference to an unknown id; every append refreshes its
// TTL. Expired sessions are purged by the store, not by callers.
type Store interface {
	// Get returns the session for id, or an empty session if the id is
	// unknown or expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Append adds turns to the session, creating it if needed, and
	// refreshes the expiry.
	Append(ctx context.Context, id string, turns ...Turn) error
}

// NewTurn builds a timestamped turn.
func NewTurn(role Role, text string) Turn {
	return Turn{Role: role, Text: text, Timestamp: time.Now().UTC()}
}

func emptySession(id string, ttl time.Duration) *Session {
	return &Session{
		Version:   SchemaVersion,
		SessionID: id,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
}
