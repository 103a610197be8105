// Package stores provides in-memory reference implementations of the
// account module's store interfaces.  They are safe for concurrent use and
// meant for development and tests; production deployments use the gorm and
// redis subpackages.
package stores

import (
	"fmt"
	"strings"
	"sync"
	"time"

	oa "github.com/panyam/accounts"
)

// MemUserStore implements oa.UserStore with mutex-guarded maps
type MemUserStore struct {
	mu         sync.RWMutex
	accounts   map[string]*oa.Account // by id
	byUsername map[string]string      // lowercase username -> id
	byEmail    map[string]string      // lowercase email -> id
	profiles   map[string]*oa.Profile // by user id

	// Language assigned to lazily backfilled profiles
	DefaultLanguage string
}

func NewMemUserStore() *MemUserStore {
	return &MemUserStore{
		accounts:        map[string]*oa.Account{},
		byUsername:      map[string]string{},
		byEmail:         map[string]string{},
		profiles:        map[string]*oa.Profile{},
		DefaultLanguage: "en-US",
	}
}

func (s *MemUserStore) CreateAccount(account *oa.Account, profile *oa.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(account.Username)
	email := strings.ToLower(account.Email)
	if _, ok := s.accounts[account.ID]; ok {
		return fmt.Errorf("account %s already exists", account.ID)
	}
	if _, ok := s.byUsername[username]; ok {
		return fmt.Errorf("username %s already taken", username)
	}
	if email != "" {
		if _, ok := s.byEmail[email]; ok {
			return fmt.Errorf("email %s already registered", email)
		}
	}

	if profile == nil {
		profile = &oa.Profile{Language: s.DefaultLanguage}
	}
	profile.UserID = account.ID

	copied := *account
	s.accounts[account.ID] = &copied
	s.byUsername[username] = account.ID
	if email != "" {
		s.byEmail[email] = account.ID
	}
	copiedProfile := *profile
	s.profiles[account.ID] = &copiedProfile
	return nil
}

func (s *MemUserStore) GetAccountById(userId string) (*oa.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[userId]
	if !ok {
		return nil, fmt.Errorf("account not found: %s", userId)
	}
	copied := *account
	return &copied, nil
}

func (s *MemUserStore) GetAccountByUsername(username string) (*oa.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, fmt.Errorf("account not found: %s", username)
	}
	copied := *s.accounts[id]
	return &copied, nil
}

func (s *MemUserStore) GetAccountByEmail(email string) (*oa.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("account not found: %s", email)
	}
	copied := *s.accounts[id]
	return &copied, nil
}

func (s *MemUserStore) SaveAccount(account *oa.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.accounts[account.ID]
	if !ok {
		return fmt.Errorf("account not found: %s", account.ID)
	}

	// Keep the lookup maps in sync with renames
	oldUsername := strings.ToLower(existing.Username)
	newUsername := strings.ToLower(account.Username)
	if oldUsername != newUsername {
		if _, taken := s.byUsername[newUsername]; taken {
			return fmt.Errorf("username %s already taken", newUsername)
		}
		delete(s.byUsername, oldUsername)
		s.byUsername[newUsername] = account.ID
	}
	oldEmail := strings.ToLower(existing.Email)
	newEmail := strings.ToLower(account.Email)
	if oldEmail != newEmail {
		if _, taken := s.byEmail[newEmail]; taken && newEmail != "" {
			return fmt.Errorf("email %s already registered", newEmail)
		}
		delete(s.byEmail, oldEmail)
		if newEmail != "" {
			s.byEmail[newEmail] = account.ID
		}
	}

	copied := *account
	s.accounts[account.ID] = &copied
	return nil
}

func (s *MemUserStore) GetProfile(userId string) (*oa.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[userId]; !ok {
		return nil, fmt.Errorf("account not found: %s", userId)
	}
	profile, ok := s.profiles[userId]
	if !ok {
		// Backfill for accounts that predate the one-profile invariant
		profile = &oa.Profile{
			UserID:    userId,
			Language:  s.DefaultLanguage,
			UpdatedAt: time.Now(),
		}
		s.profiles[userId] = profile
	}
	copied := *profile
	return &copied, nil
}

func (s *MemUserStore) SaveProfile(profile *oa.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[profile.UserID]; !ok {
		return fmt.Errorf("account not found: %s", profile.UserID)
	}
	copied := *profile
	s.profiles[profile.UserID] = &copied
	return nil
}

// MemChannelStore implements oa.ChannelStore
type MemChannelStore struct {
	mu       sync.RWMutex
	channels map[string]*oa.Channel // provider:externalID -> channel
}

func NewMemChannelStore() *MemChannelStore {
	return &MemChannelStore{channels: map[string]*oa.Channel{}}
}

func channelKey(provider, externalID string) string {
	return provider + ":" + externalID
}

func (s *MemChannelStore) GetChannel(provider, externalID string) (*oa.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	channel, ok := s.channels[channelKey(provider, externalID)]
	if !ok {
		return nil, fmt.Errorf("channel not found: %s", channelKey(provider, externalID))
	}
	copied := *channel
	return &copied, nil
}

func (s *MemChannelStore) GetUserChannels(userId string) ([]*oa.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*oa.Channel
	for _, channel := range s.channels {
		if channel.UserID == userId {
			copied := *channel
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemChannelStore) SaveChannel(channel *oa.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *channel
	copied.UpdatedAt = time.Now()
	s.channels[channelKey(channel.Provider, channel.ExternalID)] = &copied
	return nil
}
