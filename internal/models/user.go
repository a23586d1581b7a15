package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gender values accepted on a profile
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// User represents a circle account
type User struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Nickname string  `gorm:"uniqueIndex;not null" json:"nickname"`
	Phone    *string `gorm:"type:varchar(11)" json:"phone,omitempty"`

	// Profile data
	AvatarURL     string     `json:"avatar_url"`
	BackgroundURL string     `json:"background_url"`
	Signature     string     `gorm:"type:text" json:"signature"`
	Bio           string     `gorm:"type:text" json:"bio"`
	Birthday      *time.Time `json:"birthday,omitempty"`
	Gender        string     `gorm:"type:varchar(10)" json:"gender"`
	Location      string     `gorm:"type:varchar(100)" json:"location"`

	// Denormalized counters. followers_count, following_count and posts_count
	// are owned by the counters package; likes_received is stored only.
	FollowersCount int `gorm:"not null;default:0" json:"followers_count"`
	FollowingCount int `gorm:"not null;default:0" json:"following_count"`
	PostsCount     int `gorm:"not null;default:0" json:"posts_count"`
	LikesReceived  int `gorm:"not null;default:0" json:"likes_received"`

	// Activity tracking
	LastActiveAt *time.Time `json:"last_active_at"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hooks for GORM
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

// Helper function for UUID generation
func generateUUID() string {
	return uuid.New().String()
}
