package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicateUser = errors.New("email or nickname already taken")
)

// UserRepository handles database reads and profile writes for users.
// Follow rows and counters are never written here; they belong to the
// social engine.
type UserRepository interface {
	// User CRUD
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByNickname(ctx context.Context, nickname string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, profile ProfileUpdate) (*models.User, error)

	// User queries
	SearchUsers(ctx context.Context, query string, limit, offset int) ([]*models.User, error)

	// Followers/Following
	GetFollowers(ctx context.Context, userID string, limit, offset int) ([]*models.User, error)
	GetFollowing(ctx context.Context, userID string, limit, offset int) ([]*models.User, error)
}

// ProfileUpdate lists the user-editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	AvatarURL     *string `json:"avatar_url"`
	BackgroundURL *string `json:"background_url"`
	Signature     *string `json:"signature"`
	Bio           *string `json:"bio"`
	Gender        *string `json:"gender"`
	Location      *string `json:"location"`
}

func (p ProfileUpdate) columns() (map[string]interface{}, error) {
	cols := map[string]interface{}{}
	set := func(name string, v *string) {
		if v != nil {
			cols[name] = strings.TrimSpace(*v)
		}
	}
	set("avatar_url", p.AvatarURL)
	set("background_url", p.BackgroundURL)
	set("signature", p.Signature)
	set("bio", p.Bio)
	set("location", p.Location)

	if p.Gender != nil {
		switch *p.Gender {
		case "", models.GenderMale, models.GenderFemale, models.GenderOther:
			cols["gender"] = *p.Gender
		default:
			return nil, ErrInvalidInput
		}
	}
	return cols, nil
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateUser creates a new user. Counters always start at zero.
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil || strings.TrimSpace(user.Email) == "" || strings.TrimSpace(user.Nickname) == "" {
		return ErrInvalidInput
	}
	user.FollowersCount, user.FollowingCount, user.PostsCount, user.LikesReceived = 0, 0, 0, 0

	err := r.db.WithContext(ctx).Create(user).Error
	if database.IsUniqueViolation(err) {
		return ErrDuplicateUser
	}
	return err
}

// GetUser gets a user by ID
func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrUserNotFound
	}
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	return &user, err
}

// GetUserByEmail gets a user by email (case-insensitive)
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	return &user, err
}

// GetUserByNickname gets a user by nickname (case-insensitive)
func (r *userRepository) GetUserByNickname(ctx context.Context, nickname string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(nickname) = LOWER(?)", nickname).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	return &user, err
}

// UpdateProfile writes the non-nil profile fields and returns the updated user
func (r *userRepository) UpdateProfile(ctx context.Context, userID string, profile ProfileUpdate) (*models.User, error) {
	cols, err := profile.columns()
	if err != nil {
		return nil, err
	}
	if len(cols) > 0 {
		res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return r.GetUser(ctx, userID)
}

// SearchUsers searches users by nickname, most followed first
func (r *userRepository) SearchUsers(ctx context.Context, query string, limit, offset int) ([]*models.User, error) {
	var users []*models.User

	searchPattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	err := r.db.WithContext(ctx).
		Where("LOWER(nickname) LIKE ?", searchPattern).
		Order("followers_count DESC, nickname ASC").
		Scopes(database.Paginate(limit, offset)).
		Find(&users).Error

	return users, err
}

// GetFollowers gets users following the given user
func (r *userRepository) GetFollowers(ctx context.Context, userID string, limit, offset int) ([]*models.User, error) {
	var users []*models.User

	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.following_id = ?", userID).
		Order("follows.created_at DESC").
		Scopes(database.Paginate(limit, offset)).
		Find(&users).Error

	return users, err
}

// GetFollowing gets users that the given user follows
func (r *userRepository) GetFollowing(ctx context.Context, userID string, limit, offset int) ([]*models.User, error) {
	var users []*models.User

	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC").
		Scopes(database.Paginate(limit, offset)).
		Find(&users).Error

	return users, err
}
