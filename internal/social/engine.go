// Package social implements the relationship toggle engine for follows,
// likes and bookmarks. Every toggle runs in one transaction that locks the
// counter-owning rows, flips the relationship row and applies the matching
// counter projection, so a relationship and its counters never disagree.
package social

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zfogg/circle/internal/counters"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/logger"
	"github.com/zfogg/circle/internal/metrics"
	"github.com/zfogg/circle/internal/models"
	"github.com/zfogg/circle/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxAttempts bounds how often a toggle runs after losing an insert race
const maxAttempts = 2

// DefaultSharePlatform is recorded when a share names no platform
const DefaultSharePlatform = "unknown"

const maxPlatformLen = 50

// Result is the outcome of a toggle or share
type Result struct {
	Kind   Kind   `json:"kind"`
	Target Target `json:"target"`
	Active bool   `json:"active"`
	State  State  `json:"status"`
	// Count is the primary counter after the mutation
	Count int `json:"count"`
	// Counts holds every counter the mutation touched, keyed by column
	Counts map[string]int `json:"counts"`
}

// Snapshot is a relationship's existence read together with its counter
type Snapshot struct {
	Kind   Kind   `json:"kind"`
	Target Target `json:"target"`
	Active bool   `json:"active"`
	Count  int    `json:"count"`
}

// Engine applies relationship toggles
type Engine struct {
	db       *gorm.DB
	resolver Resolver
	metrics  *metrics.Metrics
	events   *telemetry.BusinessEvents

	// beforeInsert runs inside the transaction right before a relationship
	// row is inserted. Tests use it to force unique-constraint races.
	beforeInsert func(tx *gorm.DB, attempt int, row any) error
}

// Option configures an Engine
type Option func(*Engine)

// WithResolver replaces the default GormResolver
func WithResolver(r Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithMetrics records engine metrics on m instead of the global registry
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an Engine backed by db
func NewEngine(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		resolver: NewGormResolver(),
		events:   telemetry.GetBusinessEvents(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.Get()
	}
	return e
}

// binding maps a (Kind, Target) pair onto its relationship table and counter rule
type binding struct {
	counterKind counters.Kind
	lockTable   string
	on, off     State

	exists func(tx *gorm.DB) (bool, error)
	newRow func() any
	remove func(tx *gorm.DB) error
}

func bind(kind Kind, actorID string, target Target) (binding, error) {
	switch {
	case kind == Follow && target.Type == models.TargetUser:
		if actorID == target.ID {
			return binding{}, fmt.Errorf("%w: cannot follow yourself", ErrInvalidTarget)
		}
		where := func(tx *gorm.DB) *gorm.DB {
			return tx.Where("follower_id = ? AND following_id = ?", actorID, target.ID)
		}
		return binding{
			counterKind: counters.KindFollow,
			lockTable:   "users",
			on:          Followed,
			off:         Unfollowed,
			exists:      func(tx *gorm.DB) (bool, error) { return rowExists(where(tx.Model(&models.Follow{}))) },
			newRow:      func() any { return &models.Follow{FollowerID: actorID, FollowingID: target.ID} },
			remove:      func(tx *gorm.DB) error { return where(tx).Delete(&models.Follow{}).Error },
		}, nil

	case kind == Like && (target.Type == models.TargetPost || target.Type == models.TargetComment):
		b := binding{
			counterKind: counters.KindLikePost,
			lockTable:   "posts",
			on:          Liked,
			off:         Unliked,
		}
		if target.Type == models.TargetComment {
			b.counterKind = counters.KindLikeComment
			b.lockTable = "comments"
		}
		where := func(tx *gorm.DB) *gorm.DB {
			return tx.Where("user_id = ? AND target_type = ? AND target_id = ?", actorID, target.Type, target.ID)
		}
		b.exists = func(tx *gorm.DB) (bool, error) { return rowExists(where(tx.Model(&models.Like{}))) }
		b.newRow = func() any { return &models.Like{UserID: actorID, TargetType: target.Type, TargetID: target.ID} }
		b.remove = func(tx *gorm.DB) error { return where(tx).Delete(&models.Like{}).Error }
		return b, nil

	case kind == Bookmark && target.Type == models.TargetPost:
		where := func(tx *gorm.DB) *gorm.DB {
			return tx.Where("user_id = ? AND post_id = ?", actorID, target.ID)
		}
		return binding{
			counterKind: counters.KindBookmark,
			lockTable:   "posts",
			on:          Bookmarked,
			off:         Unbookmarked,
			exists:      func(tx *gorm.DB) (bool, error) { return rowExists(where(tx.Model(&models.Bookmark{}))) },
			newRow:      func() any { return &models.Bookmark{UserID: actorID, PostID: target.ID} },
			remove:      func(tx *gorm.DB) error { return where(tx).Delete(&models.Bookmark{}).Error },
		}, nil
	}

	return binding{}, fmt.Errorf("%w: cannot %s a %s", ErrInvalidTarget, kind, target.Type)
}

func rowExists(q *gorm.DB) (bool, error) {
	var n int64
	if err := q.Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Toggle flips the relationship between actor and target and returns the
// new state with the updated counters. A second toggle with the same
// arguments restores the original state.
func (e *Engine) Toggle(ctx context.Context, actorID string, target Target, kind Kind) (Result, error) {
	if actorID == "" {
		return Result{}, ErrUnauthorized
	}
	actorID, target = canonicalID(actorID), target.canonical()
	b, err := bind(kind, actorID, target)
	if err != nil {
		return Result{}, err
	}

	ctx, span := e.events.TraceToggle(ctx, telemetry.ToggleAttrs{
		Kind:       string(kind),
		ActorID:    actorID,
		TargetType: string(target.Type),
		TargetID:   target.ID,
	})
	defer span.End()

	start := time.Now()
	var res Result
	attempt := 1
	for ; ; attempt++ {
		res, err = e.toggleOnce(ctx, actorID, target, b, attempt)
		if err == nil || !database.IsUniqueViolation(err) {
			break
		}
		if attempt >= maxAttempts {
			e.metrics.ToggleConflicts.WithLabelValues(string(b.counterKind), "failed").Inc()
			logger.Log.Warn("Toggle gave up after repeated conflicts",
				logger.WithUserID(actorID),
				logger.WithTarget(string(target.Type), target.ID),
				logger.WithKind(string(kind)),
				zap.Error(err),
			)
			err = fmt.Errorf("%w: %s %s", ErrConflict, kind, target)
			break
		}
		e.metrics.ToggleConflicts.WithLabelValues(string(b.counterKind), "retried").Inc()
		logger.Log.Debug("Toggle lost insert race, retrying",
			logger.WithUserID(actorID),
			logger.WithTarget(string(target.Type), target.ID),
			zap.Int("attempt", attempt),
		)
	}
	e.metrics.ToggleDuration.WithLabelValues(string(b.counterKind)).Observe(time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordError(span, err)
		return Result{}, err
	}

	res.Kind = kind
	res.Target = target
	telemetry.RecordToggleResult(span, res.Active, res.Count, attempt)
	e.metrics.TogglesTotal.WithLabelValues(string(kind), string(res.State)).Inc()
	return res, nil
}

func (e *Engine) toggleOnce(ctx context.Context, actorID string, target Target, b binding, attempt int) (Result, error) {
	var res Result
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := e.resolver.Resolve(ctx, tx, actorID, target); err != nil {
			return err
		}
		if err := e.lockOwners(tx, b, actorID, target); err != nil {
			return err
		}

		exists, err := b.exists(tx)
		if err != nil {
			return fmt.Errorf("check %s: %w", b.counterKind, err)
		}

		refs := counters.Refs{ActorID: actorID, TargetID: target.ID}
		var out counters.Outcome
		if exists {
			if err := b.remove(tx); err != nil {
				return fmt.Errorf("remove %s: %w", b.counterKind, err)
			}
			if out, err = counters.Apply(tx, b.counterKind, counters.Removed, refs); err != nil {
				return err
			}
			res.Active, res.State = false, b.off
		} else {
			row := b.newRow()
			if e.beforeInsert != nil {
				if err := e.beforeInsert(tx, attempt, row); err != nil {
					return err
				}
			}
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("insert %s: %w", b.counterKind, err)
			}
			if out, err = counters.Apply(tx, b.counterKind, counters.Created, refs); err != nil {
				return err
			}
			res.Active, res.State = true, b.on
		}

		res.Count = out.Primary.Value
		res.Counts = out.Counts()
		return nil
	})
	return res, err
}

// lockOwners takes row locks on every row whose counters the toggle moves.
// Follow locks both users in id order so opposing follows cannot deadlock.
func (e *Engine) lockOwners(tx *gorm.DB, b binding, actorID string, target Target) error {
	ids := []string{target.ID}
	if b.counterKind == counters.KindFollow {
		ids = append(ids, actorID)
		sort.Strings(ids)
	}

	for _, id := range ids {
		var locked []string
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Table(b.lockTable).
			Where("id = ?", id).
			Pluck("id", &locked).Error
		if err != nil {
			return fmt.Errorf("lock %s %s: %w", b.lockTable, id, err)
		}
		if len(locked) == 0 {
			if id == target.ID {
				return fmt.Errorf("%w: %s", ErrTargetNotFound, target)
			}
			return fmt.Errorf("%w: unknown actor %s", ErrUnauthorized, actorID)
		}
	}
	return nil
}

// Share records actor sharing a post to platform. Shares are append-only;
// every call adds a row and increments shares_count.
func (e *Engine) Share(ctx context.Context, actorID, postID, platform string) (Result, error) {
	if actorID == "" {
		return Result{}, ErrUnauthorized
	}
	actorID, postID = canonicalID(actorID), canonicalID(postID)
	platform = strings.TrimSpace(platform)
	if platform == "" {
		platform = DefaultSharePlatform
	}
	if len(platform) > maxPlatformLen {
		return Result{}, fmt.Errorf("%w: platform name too long", ErrInvalidTarget)
	}

	target := PostTarget(postID)
	ctx, span := e.events.TraceShare(ctx, actorID, postID, platform)
	defer span.End()

	var out counters.Outcome
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := e.resolver.Resolve(ctx, tx, actorID, target); err != nil {
			return err
		}
		if err := tx.Create(&models.Share{UserID: actorID, PostID: postID, Platform: platform}).Error; err != nil {
			return fmt.Errorf("insert share: %w", err)
		}
		var err error
		out, err = counters.Apply(tx, counters.KindShare, counters.Created, counters.Refs{ActorID: actorID, TargetID: postID})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return Result{}, err
	}

	e.metrics.SharesTotal.Inc()
	return Result{
		Kind:   Kind(counters.KindShare),
		Target: target,
		Active: true,
		State:  Shared,
		Count:  out.Primary.Value,
		Counts: out.Counts(),
	}, nil
}

// State reads whether actor holds the relationship together with the
// target's primary counter, both from one snapshot. An empty actor reads
// the counter only.
func (e *Engine) State(ctx context.Context, actorID string, target Target, kind Kind) (Snapshot, error) {
	snaps, err := e.States(ctx, actorID, target, kind)
	if err != nil {
		return Snapshot{}, err
	}
	return snaps[kind], nil
}

// States is State for several kinds on the same target, read from a single
// snapshot
func (e *Engine) States(ctx context.Context, actorID string, target Target, kinds ...Kind) (map[Kind]Snapshot, error) {
	return e.StatesWith(ctx, actorID, target, nil, kinds...)
}

// LoadFunc reads extra rows inside a States snapshot. It receives the
// snapshot transaction and the target with its id in canonical form.
type LoadFunc func(tx *gorm.DB, target Target) error

// StatesWith is States that also runs load in the same snapshot once the
// target resolved, so a caller can read the target row and have every
// counter in it agree with the relationship flags.
func (e *Engine) StatesWith(ctx context.Context, actorID string, target Target, load LoadFunc, kinds ...Kind) (map[Kind]Snapshot, error) {
	if actorID != "" {
		actorID = canonicalID(actorID)
	}
	target = target.canonical()
	bindings := make(map[Kind]binding, len(kinds))
	for _, kind := range kinds {
		b, err := bind(kind, actorID, target)
		if err != nil {
			// Viewing your own profile is not a follow attempt
			if !(kind == Follow && actorID == target.ID) {
				return nil, err
			}
			b, _ = bind(kind, "", target)
		}
		bindings[kind] = b
	}

	snaps := make(map[Kind]Snapshot, len(kinds))
	err := database.ReadSnapshot(ctx, e.db, func(tx *gorm.DB) error {
		if _, err := e.resolver.Resolve(ctx, tx, actorID, target); err != nil {
			return err
		}
		if load != nil {
			if err := load(tx, target); err != nil {
				return err
			}
		}
		for kind, b := range bindings {
			snap := Snapshot{Kind: kind, Target: target}
			if actorID != "" && !(kind == Follow && actorID == target.ID) {
				active, err := b.exists(tx)
				if err != nil {
					return fmt.Errorf("check %s: %w", b.counterKind, err)
				}
				snap.Active = active
			}
			primary, _ := counters.Primary(b.counterKind)
			count, err := counters.Read(tx, primary.Table, primary.Column, target.ID)
			if err != nil {
				if errors.Is(err, counters.ErrMissingOwner) {
					return fmt.Errorf("%w: %s", ErrTargetNotFound, target)
				}
				return err
			}
			snap.Count = count
			snaps[kind] = snap
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snaps, nil
}
