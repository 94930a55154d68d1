package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RefreshToken represents an issued JWT refresh token. Only a digest of the
// token is stored.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`
}

// HashToken returns the digest stored for a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
