package models

import (
	"time"

	"gorm.io/gorm"
)

// PostType is the kind of content a post carries
type PostType string

const (
	PostTypeText    PostType = "text"
	PostTypeImage   PostType = "image"
	PostTypeVideo   PostType = "video"
	PostTypeArticle PostType = "article"
)

// Valid reports whether t is a known post type
func (t PostType) Valid() bool {
	switch t {
	case PostTypeText, PostTypeImage, PostTypeVideo, PostTypeArticle:
		return true
	}
	return false
}

// PostStatus is the publication state of a post
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusHidden    PostStatus = "hidden"
	PostStatusDeleted   PostStatus = "deleted"
)

// Valid reports whether s is a known post status
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusHidden, PostStatusDeleted:
		return true
	}
	return false
}

// VisibleTo scopes a posts query to the rows viewerID may see and interact
// with: nothing deleted, and drafts only for their author. An empty viewer
// sees no drafts.
func VisibleTo(viewerID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.status <> ? AND (posts.status <> ? OR posts.author_id = ?)",
			PostStatusDeleted, PostStatusDraft, viewerID)
	}
}

// Post is a piece of user content. Media URLs are resolved by the storage
// layer and stored as-is.
type Post struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	AuthorID string `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`

	Title    string     `gorm:"type:varchar(200);not null" json:"title"`
	Content  string     `gorm:"type:text;not null" json:"content"`
	PostType PostType   `gorm:"type:varchar(20);not null;default:text" json:"post_type"`
	Status   PostStatus `gorm:"type:varchar(20);not null;default:published;index" json:"status"`

	// Media
	Images         []string `gorm:"type:text;serializer:json" json:"images"`
	VideoURL       string   `json:"video_url"`
	VideoThumbnail string   `json:"video_thumbnail"`

	// Denormalized counters, owned by the counters package (views_count excepted)
	ViewsCount     int `gorm:"not null;default:0" json:"views_count"`
	LikesCount     int `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount  int `gorm:"not null;default:0" json:"comments_count"` // top-level comments only
	SharesCount    int `gorm:"not null;default:0" json:"shares_count"`
	BookmarksCount int `gorm:"not null;default:0" json:"bookmarks_count"`

	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Comment is a reply to a post or, through ParentID, to another comment.
// Nesting depth is unbounded.
type Comment struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID   string `gorm:"type:uuid;not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	Post     *Post  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID string `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`

	Content string `gorm:"type:text;not null" json:"content"`

	// Threading - parent_id is null for top-level comments
	ParentID *string  `gorm:"type:uuid;index" json:"parent_id"`
	Parent   *Comment `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`

	LikesCount int `gorm:"not null;default:0" json:"likes_count"`

	CreatedAt time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTopLevel reports whether the comment replies directly to its post
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	if p.PostType == "" {
		p.PostType = PostTypeText
	}
	if p.Status == "" {
		p.Status = PostStatusPublished
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	// Stamp the first publication
	if p.Status == PostStatusPublished && p.PublishedAt == nil {
		now := time.Now().UTC()
		p.PublishedAt = &now
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}
