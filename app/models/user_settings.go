package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// UserSettings holds per-user API access and notification preferences.
// The API key itself is never stored; only its SHA-256 hash.
type UserSettings struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	APIKeyHash         string     `gorm:"type:varchar(64);default:null;index" json:"-"`
	APIKeyCreatedAt    *time.Time `gorm:"type:timestamp;default:null" json:"api_key_created_at,omitempty"`
	APIKeyLastUsedAt   *time.Time `gorm:"type:timestamp;default:null" json:"api_key_last_used_at,omitempty"`
	NotifyReceipts     bool       `gorm:"default:true" json:"notify_receipts"`
	NotifySubscription bool       `gorm:"default:true" json:"notify_subscription"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrCreateUserSettings loads the settings row for a user, creating the
// default row on first access.
func GetOrCreateUserSettings(db *gorm.DB, userID uint) (*UserSettings, error) {
	var us UserSettings
	err := db.Where("user_id = ?", userID).First(&us).Error
	if err == nil {
		return &us, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	us = UserSettings{
		UserID:             userID,
		NotifyReceipts:     true,
		NotifySubscription: true,
	}
	if err := db.Create(&us).Error; err != nil {
		return nil, err
	}
	return &us, nil
}

// GenerateAPIKey creates a new API key, stores its hash and returns the
// plaintext key exactly once.
func (us *UserSettings) GenerateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	key := "cf_" + hex.EncodeToString(b)
	us.APIKeyHash = HashAPIKey(key)
	now := time.Now()
	us.APIKeyCreatedAt = &now
	return key, nil
}

// HashAPIKey returns the hex SHA-256 of an API key for storage and lookup.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
