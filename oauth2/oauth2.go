// Package oauth2 implements authorization-code adapters for the external
// identity providers supported by the accounts module.  Each adapter serves
// a single URL: with no code present it redirects the caller to the
// provider's consent screen, with a code it performs the server-to-server
// exchange, fetches the provider's user-info endpoint and hands the
// normalized result to the module's completion flow.
package oauth2

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// UserInfo is the normalized shape all providers reduce their user-info
// responses to
type UserInfo struct {
	Provider  string    `json:"provider"`
	ID        string    `json:"id"` // provider's user id
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username,omitempty"` // provider login/handle, if any
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Picture   string    `json:"picture,omitempty"`
	Gender    string    `json:"gender,omitempty"`   // "male", "female" or ""
	Birthday  string    `json:"birthday,omitempty"` // provider format, informational
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// HandleUserFunc receives the provider token and normalized user info after
// a successful exchange
type HandleUserFunc func(provider string, token *oauth2.Token, userInfo *UserInfo, w http.ResponseWriter, r *http.Request)

// Provider is one external identity provider adapter
type Provider interface {
	http.Handler

	// Name returns the provider key used in URLs ("google", "vk", ...)
	Name() string

	// Enabled reports whether client credentials are configured
	Enabled() bool

	// SetHandleUser points the adapter at the auth-success callback
	SetHandleUser(fn HandleUserFunc)
}
