package accounts

import (
	"time"
)

// Account is a user record owned by this module
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Gender values stored on a profile
const (
	GenderMale   = 1
	GenderFemale = 2
)

// Profile is the one-to-one extension of an Account.  Every account has
// exactly one profile: CreateAccount creates it atomically and GetProfile
// backfills a missing one for accounts that predate the invariant.
type Profile struct {
	UserID    string     `json:"user_id"`
	Language  string     `json:"language"`
	Gender    int        `json:"gender,omitempty"` // 0 = unset
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Phone     string     `json:"phone,omitempty"` // canonical +<digits> form
	GeobaseID int64      `json:"geobase_id,omitempty"`
	Avatar    string     `json:"avatar,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Channel links an account to an external identity provider
type Channel struct {
	Provider     string    `json:"provider"` // "google", "yandex", ...
	UserID       string    `json:"user_id"`
	ExternalID   string    `json:"external_id"` // provider's user id
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsExpired returns true if the channel has an expiration time set and it
// has passed
func (c *Channel) IsExpired() bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(c.ExpiresAt)
}

// UserStore manages accounts and their profiles.  Username and email
// lookups are case-insensitive; implementations normalize to lowercase.
type UserStore interface {
	// CreateAccount creates a new account and, atomically, its profile
	CreateAccount(account *Account, profile *Profile) error

	// GetAccountById retrieves an account by its ID
	GetAccountById(userId string) (*Account, error)

	// GetAccountByUsername retrieves an account by username
	GetAccountByUsername(username string) (*Account, error)

	// GetAccountByEmail retrieves an account by email
	GetAccountByEmail(email string) (*Account, error)

	// SaveAccount updates an existing account
	SaveAccount(account *Account) error

	// GetProfile retrieves the profile for an account, creating a default
	// one if it is missing
	GetProfile(userId string) (*Profile, error)

	// SaveProfile updates a profile
	SaveProfile(profile *Profile) error
}

// ChannelStore manages provider linkages
type ChannelStore interface {
	// GetChannel retrieves a channel by provider and external id
	GetChannel(provider, externalID string) (*Channel, error)

	// GetUserChannels returns all channels linked to an account
	GetUserChannels(userId string) ([]*Channel, error)

	// SaveChannel creates or updates a channel (upsert on provider +
	// external id)
	SaveChannel(channel *Channel) error
}
