package comments

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/circle/internal/models"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func comment(id string, parent string, minute int) models.Comment {
	c := models.Comment{ID: id, PostID: "p", Content: id, CreatedAt: epoch.Add(time.Duration(minute) * time.Minute)}
	if parent != "" {
		c.ParentID = &parent
	}
	return c
}

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestAssemble_OrdersByCreatedAt(t *testing.T) {
	tree, err := Assemble([]models.Comment{
		comment("c2", "", 2),
		comment("r2", "c1", 5),
		comment("c1", "", 1),
		comment("r1", "c1", 3),
		comment("rr", "r1", 4),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2"}, ids(tree))
	assert.Equal(t, []string{"r1", "r2"}, ids(tree[0].Replies))
	assert.Equal(t, []string{"rr"}, ids(tree[0].Replies[0].Replies))
	assert.Empty(t, tree[1].Replies)
	assert.NotNil(t, tree[1].Replies, "leaves serialize as empty lists")
}

func TestAssemble_TieBreaksOnID(t *testing.T) {
	tree, err := Assemble([]models.Comment{
		comment("b", "", 1),
		comment("a", "", 1),
		comment("c", "", 1),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(tree))
}

func TestAssemble_Empty(t *testing.T) {
	tree, err := Assemble(nil)
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestAssemble_DeepThread(t *testing.T) {
	const depth = 10000
	rows := make([]models.Comment, depth)
	rows[0] = comment("n0", "", 0)
	for i := 1; i < depth; i++ {
		rows[i] = comment(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i-1), i)
	}

	tree, err := Assemble(rows)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	n, levels := tree[0], 1
	for len(n.Replies) > 0 {
		require.Len(t, n.Replies, 1)
		n = n.Replies[0]
		levels++
	}
	assert.Equal(t, depth, levels)
	assert.Equal(t, "n9999", n.ID)
	assert.Len(t, Flatten(tree), depth)
}

func TestAssemble_Cycle(t *testing.T) {
	_, err := Assemble([]models.Comment{
		comment("root", "", 0),
		comment("a", "b", 1),
		comment("b", "a", 2),
	})
	assert.ErrorIs(t, err, ErrCorruptThread)
}

func TestAssemble_SelfParent(t *testing.T) {
	_, err := Assemble([]models.Comment{comment("a", "a", 0)})
	assert.ErrorIs(t, err, ErrCorruptThread)
}

func TestAssemble_MissingParent(t *testing.T) {
	_, err := Assemble([]models.Comment{
		comment("root", "", 0),
		comment("orphan", "gone", 1),
	})
	assert.ErrorIs(t, err, ErrCorruptThread)
}

func TestAssemble_DuplicateID(t *testing.T) {
	_, err := Assemble([]models.Comment{comment("a", "", 0), comment("a", "", 1)})
	assert.ErrorIs(t, err, ErrCorruptThread)
}

func TestFlatten_DepthFirst(t *testing.T) {
	tree, err := Assemble([]models.Comment{
		comment("c1", "", 1),
		comment("c2", "", 2),
		comment("r1", "c1", 3),
		comment("rr", "r1", 4),
		comment("r2", "c1", 5),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "r1", "rr", "r2", "c2"}, ids(Flatten(tree)))
}
