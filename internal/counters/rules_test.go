package counters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/circle/internal/counters"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/models"
	"gorm.io/gorm"
)

func TestRulesCoverToggleKinds(t *testing.T) {
	toggleable := []counters.Kind{
		counters.KindFollow,
		counters.KindLikePost,
		counters.KindLikeComment,
		counters.KindBookmark,
	}

	for _, kind := range toggleable {
		t.Run(string(kind), func(t *testing.T) {
			created, ok := counters.Effects(kind, counters.Created)
			require.True(t, ok, "missing created rule")
			removed, ok := counters.Effects(kind, counters.Removed)
			require.True(t, ok, "missing removed rule")

			// Removal undoes creation effect for effect
			require.Len(t, removed, len(created))
			for i := range created {
				assert.Equal(t, created[i].Table, removed[i].Table)
				assert.Equal(t, created[i].Column, removed[i].Column)
				assert.Equal(t, created[i].Owner, removed[i].Owner)
				assert.Equal(t, -created[i].Delta, removed[i].Delta)
			}
		})
	}
}

func TestKinds(t *testing.T) {
	assert.ElementsMatch(t, []counters.Kind{
		counters.KindBookmark,
		counters.KindComment,
		counters.KindFollow,
		counters.KindLikeComment,
		counters.KindLikePost,
		counters.KindPost,
		counters.KindShare,
	}, counters.Kinds())
	assert.Equal(t, counters.KindBookmark, counters.Kinds()[0])
}

func TestPrimary(t *testing.T) {
	e, ok := counters.Primary(counters.KindFollow)
	require.True(t, ok)
	assert.Equal(t, "followers_count", e.Column)
	assert.Equal(t, counters.Target, e.Owner)

	e, ok = counters.Primary(counters.KindPost)
	require.True(t, ok)
	assert.Equal(t, "posts_count", e.Column)
	assert.Equal(t, counters.Actor, e.Owner)

	_, ok = counters.Primary("nope")
	assert.False(t, ok)
}

func TestShareIsAppendOnly(t *testing.T) {
	_, ok := counters.Effects(counters.KindShare, counters.Removed)
	assert.False(t, ok)
}

func seedUsers(t *testing.T, db *gorm.DB) (*models.User, *models.User) {
	t.Helper()
	a := &models.User{Email: "a@example.com", Nickname: "a"}
	b := &models.User{Email: "b@example.com", Nickname: "b"}
	require.NoError(t, db.Create(a).Error)
	require.NoError(t, db.Create(b).Error)
	return a, b
}

func TestApply_Follow(t *testing.T) {
	db := database.NewTestDB(t)
	actor, target := seedUsers(t, db)
	refs := counters.Refs{ActorID: actor.ID, TargetID: target.ID}

	out, err := counters.Apply(db, counters.KindFollow, counters.Created, refs)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Primary.Value)
	assert.Equal(t, target.ID, out.Primary.ID)
	assert.Equal(t, map[string]int{"followers_count": 1, "following_count": 1}, out.Counts())

	out, err = counters.Apply(db, counters.KindFollow, counters.Removed, refs)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Primary.Value)
	assert.Equal(t, 0, out.Counts()["following_count"])
}

func TestApply_ClampsAtZero(t *testing.T) {
	db := database.NewTestDB(t)
	author, _ := seedUsers(t, db)
	post := &models.Post{AuthorID: author.ID, Title: "t", Content: "c"}
	require.NoError(t, db.Create(post).Error)

	out, err := counters.Apply(db, counters.KindLikePost, counters.Removed, counters.Refs{TargetID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Primary.Value)

	v, err := counters.Read(db, "posts", "likes_count", post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestApply_Errors(t *testing.T) {
	db := database.NewTestDB(t)

	_, err := counters.Apply(db, counters.KindShare, counters.Removed, counters.Refs{TargetID: "x"})
	assert.ErrorIs(t, err, counters.ErrUnknownRule)

	_, err = counters.Apply(db, counters.KindLikePost, counters.Created, counters.Refs{TargetID: "00000000-0000-0000-0000-000000000000"})
	assert.ErrorIs(t, err, counters.ErrMissingOwner)
}

func TestApply_RollsBackWithTransaction(t *testing.T) {
	db := database.NewTestDB(t)
	actor, target := seedUsers(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := counters.Apply(tx, counters.KindFollow, counters.Created, counters.Refs{ActorID: actor.ID, TargetID: target.ID}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	v, err := counters.Read(db, "users", "followers_count", target.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}
