package models

import (
	"time"

	"gorm.io/gorm"
)

// TargetType tags the kind of entity a polymorphic reference points at
type TargetType string

const (
	TargetUser    TargetType = "user"
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// Follow is an ordered (follower, following) pair
type Follow struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	FollowerID  string `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair,priority:1;check:chk_follows_not_self,follower_id <> following_id" json:"follower_id"`
	Follower    *User  `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"follower,omitempty"`
	FollowingID string `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair,priority:2;index" json:"following_id"`
	Following   *User  `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"following,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Like is a user's like on a post or a comment. TargetID is not a foreign
// key: a like may outlive its target, and readers treat such rows as inert.
type Like struct {
	ID         string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string     `gorm:"type:uuid;not null;uniqueIndex:idx_likes_unique,priority:1" json:"user_id"`
	TargetType TargetType `gorm:"type:varchar(20);not null;uniqueIndex:idx_likes_unique,priority:2;index:idx_likes_target,priority:1" json:"target_type"`
	TargetID   string     `gorm:"type:uuid;not null;uniqueIndex:idx_likes_unique,priority:3;index:idx_likes_target,priority:2" json:"target_id"`

	CreatedAt time.Time `json:"created_at"`
}

// Bookmark is a saved post
type Bookmark struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_bookmarks_pair,priority:1" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PostID string `gorm:"type:uuid;not null;uniqueIndex:idx_bookmarks_pair,priority:2;index" json:"post_id"`
	Post   *Post  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Share records a post being shared to an external platform. Shares are
// append-only; a user may share the same post any number of times.
type Share struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"type:uuid;not null;index" json:"user_id"`
	User     *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PostID   string `gorm:"type:uuid;not null;index" json:"post_id"`
	Post     *Post  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Platform string `gorm:"type:varchar(50);not null" json:"platform"`

	CreatedAt time.Time `json:"created_at"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = generateUUID()
	}
	return nil
}

func (s *Share) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

// All returns every model in dependency order for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&User{},
		&Post{},
		&Comment{},
		&Follow{},
		&Like{},
		&Bookmark{},
		&Share{},
	}
}
