package comments

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zfogg/circle/internal/models"
)

// ErrCorruptThread is returned when a comment's parent chain never reaches a
// top-level comment of the same thread
var ErrCorruptThread = errors.New("comments: corrupt thread")

// Node is a comment with its replies
type Node struct {
	models.Comment
	Replies []*Node `json:"replies"`
}

// Assemble builds the reply forest for a flat list of comments belonging to
// one post. Roots and replies are ordered by creation time, then id. The
// build uses an explicit stack, so thread depth is bounded only by memory.
func Assemble(comments []models.Comment) ([]*Node, error) {
	nodes := make(map[string]*Node, len(comments))
	for i := range comments {
		c := comments[i]
		if _, dup := nodes[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate comment %s", ErrCorruptThread, c.ID)
		}
		nodes[c.ID] = &Node{Comment: c, Replies: []*Node{}}
	}

	roots := make([]*Node, 0)
	children := make(map[string][]*Node)
	for i := range comments {
		n := nodes[comments[i].ID]
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}

	sortNodes(roots)
	for _, kids := range children {
		sortNodes(kids)
	}

	// Walk down from the roots. Anything left unvisited hangs off a missing
	// parent or sits on a cycle.
	visited := 0
	stack := make([]*Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visited++

		if kids, ok := children[n.ID]; ok {
			n.Replies = kids
			stack = append(stack, kids...)
		}
	}

	if visited != len(comments) {
		return nil, fmt.Errorf("%w: %d of %d comments unreachable from a top-level comment",
			ErrCorruptThread, len(comments)-visited, len(comments))
	}
	return roots, nil
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Flatten returns the forest in depth-first order
func Flatten(roots []*Node) []*Node {
	out := make([]*Node, 0, len(roots))
	stack := make([]*Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		for i := len(n.Replies) - 1; i >= 0; i-- {
			stack = append(stack, n.Replies[i])
		}
	}
	return out
}
