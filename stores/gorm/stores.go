//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	oa "github.com/panyam/accounts"
	"github.com/panyam/accounts/geobase"
)

// AutoMigrate runs database migrations for all account tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AccountModel{},
		&ProfileModel{},
		&ChannelModel{},
		&GeobaseModel{},
	)
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements oa.UserStore using GORM
type UserStore struct {
	db *gorm.DB

	// Language assigned to lazily backfilled profiles
	DefaultLanguage string
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db, DefaultLanguage: "en-US"}
}

func accountFromModel(m *AccountModel) *oa.Account {
	return &oa.Account{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		PasswordHash: m.PasswordHash,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func accountToModel(a *oa.Account) *AccountModel {
	return &AccountModel{
		ID:           a.ID,
		Username:     strings.ToLower(a.Username),
		Email:        strings.ToLower(a.Email),
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		PasswordHash: a.PasswordHash,
		IsActive:     a.IsActive,
	}
}

func profileFromModel(m *ProfileModel) *oa.Profile {
	return &oa.Profile{
		UserID:    m.UserID,
		Language:  m.Language,
		Gender:    m.Gender,
		BirthDate: m.BirthDate,
		Phone:     m.Phone,
		GeobaseID: m.GeobaseID,
		Avatar:    m.Avatar,
		UpdatedAt: m.UpdatedAt,
	}
}

// CreateAccount inserts the account and its profile in one transaction so
// the one-profile invariant holds even on partial failures
func (s *UserStore) CreateAccount(account *oa.Account, profile *oa.Profile) error {
	if profile == nil {
		profile = &oa.Profile{Language: s.DefaultLanguage}
	}
	profile.UserID = account.ID

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(accountToModel(account)).Error; err != nil {
			return err
		}
		profileModel := &ProfileModel{
			UserID:    profile.UserID,
			Language:  profile.Language,
			Gender:    profile.Gender,
			BirthDate: profile.BirthDate,
			Phone:     profile.Phone,
			GeobaseID: profile.GeobaseID,
			Avatar:    profile.Avatar,
		}
		return tx.Create(profileModel).Error
	})
}

func (s *UserStore) GetAccountById(userId string) (*oa.Account, error) {
	var model AccountModel
	if err := s.db.First(&model, "id = ?", userId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account not found: %s", userId)
		}
		return nil, err
	}
	return accountFromModel(&model), nil
}

func (s *UserStore) GetAccountByUsername(username string) (*oa.Account, error) {
	var model AccountModel
	if err := s.db.First(&model, "username = ?", strings.ToLower(username)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account not found: %s", username)
		}
		return nil, err
	}
	return accountFromModel(&model), nil
}

func (s *UserStore) GetAccountByEmail(email string) (*oa.Account, error) {
	var model AccountModel
	if err := s.db.First(&model, "email = ?", strings.ToLower(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account not found: %s", email)
		}
		return nil, err
	}
	return accountFromModel(&model), nil
}

func (s *UserStore) SaveAccount(account *oa.Account) error {
	model := accountToModel(account)
	model.CreatedAt = account.CreatedAt
	return s.db.Save(model).Error
}

func (s *UserStore) GetProfile(userId string) (*oa.Profile, error) {
	var model ProfileModel
	err := s.db.First(&model, "user_id = ?", userId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Backfill for accounts that predate the one-profile invariant
		if _, err := s.GetAccountById(userId); err != nil {
			return nil, err
		}
		model = ProfileModel{UserID: userId, Language: s.DefaultLanguage}
		if err := s.db.Create(&model).Error; err != nil {
			return nil, err
		}
		return profileFromModel(&model), nil
	} else if err != nil {
		return nil, err
	}
	return profileFromModel(&model), nil
}

func (s *UserStore) SaveProfile(profile *oa.Profile) error {
	model := &ProfileModel{
		UserID:    profile.UserID,
		Language:  profile.Language,
		Gender:    profile.Gender,
		BirthDate: profile.BirthDate,
		Phone:     profile.Phone,
		GeobaseID: profile.GeobaseID,
		Avatar:    profile.Avatar,
	}
	return s.db.Save(model).Error
}

// =============================================================================
// ChannelStore
// =============================================================================

// ChannelStore implements oa.ChannelStore using GORM
type ChannelStore struct {
	db *gorm.DB
}

func NewChannelStore(db *gorm.DB) *ChannelStore {
	return &ChannelStore{db: db}
}

func channelFromModel(m *ChannelModel) *oa.Channel {
	return &oa.Channel{
		Provider:     m.Provider,
		ExternalID:   m.ExternalID,
		UserID:       m.UserID,
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		ExpiresAt:    m.ExpiresAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (s *ChannelStore) GetChannel(provider, externalID string) (*oa.Channel, error) {
	var model ChannelModel
	err := s.db.First(&model, "provider = ? AND external_id = ?", provider, externalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("channel not found: %s:%s", provider, externalID)
	} else if err != nil {
		return nil, err
	}
	return channelFromModel(&model), nil
}

func (s *ChannelStore) GetUserChannels(userId string) ([]*oa.Channel, error) {
	var models []ChannelModel
	if err := s.db.Find(&models, "user_id = ?", userId).Error; err != nil {
		return nil, err
	}
	out := make([]*oa.Channel, 0, len(models))
	for i := range models {
		out = append(out, channelFromModel(&models[i]))
	}
	return out, nil
}

func (s *ChannelStore) SaveChannel(channel *oa.Channel) error {
	model := &ChannelModel{
		Provider:     channel.Provider,
		ExternalID:   channel.ExternalID,
		UserID:       channel.UserID,
		AccessToken:  channel.AccessToken,
		RefreshToken: channel.RefreshToken,
		ExpiresAt:    channel.ExpiresAt,
		CreatedAt:    channel.CreatedAt,
	}
	return s.db.Save(model).Error
}

// =============================================================================
// GeobaseStore
// =============================================================================

// GeobaseStore implements geobase.Store using GORM
type GeobaseStore struct {
	db *gorm.DB
}

func NewGeobaseStore(db *gorm.DB) *GeobaseStore {
	return &GeobaseStore{db: db}
}

func locationFromModel(m *GeobaseModel) *geobase.Location {
	return &geobase.Location{
		ID:        m.ID,
		Country:   m.Country,
		Province:  m.Province,
		Locality:  m.Locality,
		Timezone:  m.Timezone,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
	}
}

func (s *GeobaseStore) Ensure(loc *geobase.Location) (*geobase.Location, error) {
	var model GeobaseModel
	err := s.db.First(&model,
		"country = ? AND province = ? AND locality = ?",
		loc.Country, loc.Province, loc.Locality).Error
	if err == nil {
		return locationFromModel(&model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	model = GeobaseModel{
		Country:   loc.Country,
		Province:  loc.Province,
		Locality:  loc.Locality,
		Timezone:  loc.Timezone,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	}
	if err := s.db.Create(&model).Error; err != nil {
		// Lost a race on the unique triple; read the winner
		var existing GeobaseModel
		if err2 := s.db.First(&existing,
			"country = ? AND province = ? AND locality = ?",
			loc.Country, loc.Province, loc.Locality).Error; err2 == nil {
			return locationFromModel(&existing), nil
		}
		return nil, err
	}
	return locationFromModel(&model), nil
}

func (s *GeobaseStore) GetById(id int64) (*geobase.Location, error) {
	var model GeobaseModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("geobase entry not found: %d", id)
		}
		return nil, err
	}
	return locationFromModel(&model), nil
}
