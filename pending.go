package accounts

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Flow tags a pending action with the workflow that created it.  A token
// minted for one flow cannot be consumed by another: the tag is checked on
// every Consume/Peek so a signup confirmation link can never be replayed as
// a password-reset link.
type Flow string

const (
	FlowSignup         Flow = "signup"
	FlowForgotPassword Flow = "forgot_password"
	FlowOAuth          Flow = "oauth"
)

// Default pending-action lifetimes
const (
	PendingExpirySignup         = 24 * time.Hour
	PendingExpiryForgotPassword = 24 * time.Hour
	PendingExpiryOAuth          = 1 * time.Hour
)

// PendingAction is a not-yet-committed workflow step held server-side and
// referenced by an opaque URL token.  Exactly which fields are populated
// depends on the flow: signup carries the full cleaned field set in Data,
// forgot-password carries only the user reference, oauth carries the
// normalized provider payload.
type PendingAction struct {
	Token     string         `json:"token"`
	Flow      Flow           `json:"flow"`
	UserID    string         `json:"user_id,omitempty"`
	Email     string         `json:"email,omitempty"`
	Next      string         `json:"next,omitempty"` // post-completion redirect
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// IsExpired checks if the action has expired
func (p *PendingAction) IsExpired() bool {
	return time.Now().After(p.ExpiresAt)
}

// PendingStore holds pending actions between requests.  It is the only
// shared mutable state in the module; implementations must make Consume an
// atomic delete-if-present so two requests racing on the same token cannot
// both succeed.
type PendingStore interface {
	// Create mints a token, stamps Created/Expires and stores the action
	Create(action *PendingAction, ttl time.Duration) (token string, err error)

	// Peek resolves a token without consuming it.  Fails with
	// ErrTokenInvalid on unknown token, expiry, or flow mismatch.
	Peek(token string, flow Flow) (*PendingAction, error)

	// Consume resolves a token and deletes it in one step.  Same failure
	// contract as Peek; a second Consume of the same token always fails.
	Consume(token string, flow Flow) (*PendingAction, error)

	// Delete removes a token if present
	Delete(token string) error
}

// GenerateSecureToken generates a cryptographically secure random token
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
