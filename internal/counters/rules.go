// Package counters owns every denormalized relationship counter. Counters
// change only through Apply, as a side effect of a relationship row being
// created or removed inside the caller's transaction.
package counters

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// Kind names a relationship whose lifecycle moves counters
type Kind string

const (
	KindFollow      Kind = "follow"
	KindLikePost    Kind = "like_post"
	KindLikeComment Kind = "like_comment"
	KindBookmark    Kind = "bookmark"
	KindShare       Kind = "share"
	KindComment     Kind = "comment" // top-level comments only
	KindPost        Kind = "post"
)

// Transition is a relationship row lifecycle event
type Transition string

const (
	Created Transition = "created"
	Removed Transition = "removed"
)

// Owner selects which side of the relationship owns a counter
type Owner int

const (
	Actor Owner = iota
	Target
)

// Effect is a single counter adjustment
type Effect struct {
	Owner  Owner
	Table  string
	Column string
	Delta  int
}

// ErrUnknownRule is returned when no effects are registered for a kind and transition
var ErrUnknownRule = errors.New("counters: unknown rule")

// ErrMissingOwner is returned when the row owning a counter does not exist
var ErrMissingOwner = errors.New("counters: owner row not found")

func inc(owner Owner, table, column string) Effect {
	return Effect{Owner: owner, Table: table, Column: column, Delta: 1}
}

func dec(owner Owner, table, column string) Effect {
	return Effect{Owner: owner, Table: table, Column: column, Delta: -1}
}

// rules is the projection table. The first effect of each entry is the
// primary counter reported back to callers.
var rules = map[Kind]map[Transition][]Effect{
	KindFollow: {
		Created: {inc(Target, "users", "followers_count"), inc(Actor, "users", "following_count")},
		Removed: {dec(Target, "users", "followers_count"), dec(Actor, "users", "following_count")},
	},
	KindLikePost: {
		Created: {inc(Target, "posts", "likes_count")},
		Removed: {dec(Target, "posts", "likes_count")},
	},
	KindLikeComment: {
		Created: {inc(Target, "comments", "likes_count")},
		Removed: {dec(Target, "comments", "likes_count")},
	},
	KindBookmark: {
		Created: {inc(Target, "posts", "bookmarks_count")},
		Removed: {dec(Target, "posts", "bookmarks_count")},
	},
	KindShare: {
		Created: {inc(Target, "posts", "shares_count")},
	},
	KindComment: {
		Created: {inc(Target, "posts", "comments_count")},
		Removed: {dec(Target, "posts", "comments_count")},
	},
	KindPost: {
		Created: {inc(Actor, "users", "posts_count")},
		Removed: {dec(Actor, "users", "posts_count")},
	},
}

// Kinds lists every registered kind in lexical order
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(rules))
	for k := range rules {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Effects returns the effects registered for kind and transition
func Effects(kind Kind, t Transition) ([]Effect, bool) {
	effects, ok := rules[kind][t]
	if !ok || len(effects) == 0 {
		return nil, false
	}
	out := make([]Effect, len(effects))
	copy(out, effects)
	return out, true
}

// Primary returns the effect whose counter is reported for kind
func Primary(kind Kind) (Effect, bool) {
	effects, ok := Effects(kind, Created)
	if !ok {
		return Effect{}, false
	}
	return effects[0], true
}

// Refs identifies the rows on each side of a relationship
type Refs struct {
	ActorID  string
	TargetID string
}

func (r Refs) id(o Owner) string {
	if o == Actor {
		return r.ActorID
	}
	return r.TargetID
}

// Value is a counter read back after an update
type Value struct {
	Table  string
	ID     string
	Column string
	Value  int
}

// Outcome reports the counters touched by Apply
type Outcome struct {
	Primary Value
	Values  []Value
}

// Counts returns the touched counters keyed by column
func (o Outcome) Counts() map[string]int {
	counts := make(map[string]int, len(o.Values))
	for _, v := range o.Values {
		counts[v.Column] = v.Value
	}
	return counts
}

// Apply runs every effect registered for kind and transition on tx and
// reads back the resulting values. Each update is a single clamped
// statement, so a counter never goes below zero even when it had drifted.
func Apply(tx *gorm.DB, kind Kind, t Transition, refs Refs) (Outcome, error) {
	effects, ok := Effects(kind, t)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s/%s", ErrUnknownRule, kind, t)
	}

	out := Outcome{Values: make([]Value, 0, len(effects))}
	for _, e := range effects {
		id := refs.id(e.Owner)
		if err := adjust(tx, e, id); err != nil {
			return Outcome{}, err
		}
		v, err := Read(tx, e.Table, e.Column, id)
		if err != nil {
			return Outcome{}, err
		}
		out.Values = append(out.Values, Value{Table: e.Table, ID: id, Column: e.Column, Value: v})
	}
	out.Primary = out.Values[0]
	return out, nil
}

func adjust(tx *gorm.DB, e Effect, id string) error {
	expr := gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", e.Column), e.Delta, e.Delta)
	res := tx.Table(e.Table).Where("id = ?", id).UpdateColumn(e.Column, expr)
	if res.Error != nil {
		return fmt.Errorf("update %s.%s: %w", e.Table, e.Column, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", ErrMissingOwner, e.Table, id)
	}
	return nil
}

// Read returns the current value of a counter
func Read(tx *gorm.DB, table, column, id string) (int, error) {
	var values []int
	if err := tx.Table(table).Where("id = ?", id).Pluck(column, &values).Error; err != nil {
		return 0, fmt.Errorf("read %s.%s: %w", table, column, err)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: %s %s", ErrMissingOwner, table, id)
	}
	return values[0], nil
}
