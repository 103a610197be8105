//go:build !wasm
// +build !wasm

package gorm

import (
	"time"
)

// AccountModel is the GORM model for accounts
type AccountModel struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Username     string    `gorm:"size:150;uniqueIndex"`
	Email        string    `gorm:"size:255;index"`
	FirstName    string    `gorm:"size:150"`
	LastName     string    `gorm:"size:150"`
	PasswordHash string    `gorm:"size:255"`
	IsActive     bool      `gorm:"default:true"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

// ProfileModel is the GORM model for profiles (one per account)
type ProfileModel struct {
	UserID    string     `gorm:"primaryKey;size:64"`
	Language  string     `gorm:"size:5"`
	Gender    int        `gorm:"default:0"`
	BirthDate *time.Time `gorm:""`
	Phone     string     `gorm:"size:32"`
	GeobaseID int64      `gorm:"default:0"`
	Avatar    string     `gorm:"size:512"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (ProfileModel) TableName() string {
	return "profiles"
}

// ChannelModel is the GORM model for provider linkages
type ChannelModel struct {
	Provider     string    `gorm:"primaryKey;size:32"`
	ExternalID   string    `gorm:"primaryKey;size:255"`
	UserID       string    `gorm:"size:64;index"`
	AccessToken  string    `gorm:"size:1024"`
	RefreshToken string    `gorm:"size:1024"`
	ExpiresAt    time.Time `gorm:""`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (ChannelModel) TableName() string {
	return "channels"
}

// GeobaseModel is the GORM model for denormalized location records.
// (Country, Province, Locality) is the uniqueness triple.
type GeobaseModel struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	Country   string  `gorm:"size:255;uniqueIndex:idx_geobase_triple"`
	Province  string  `gorm:"size:255;uniqueIndex:idx_geobase_triple"`
	Locality  string  `gorm:"size:255;uniqueIndex:idx_geobase_triple"`
	Timezone  string  `gorm:"size:64"`
	Latitude  float64 `gorm:""`
	Longitude float64 `gorm:""`
}

func (GeobaseModel) TableName() string {
	return "geobase"
}
