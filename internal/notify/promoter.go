package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/OpenDataAtlas/ODA-Backend/internal/catalog"
	"github.com/google/uuid"
)

// The pipeline talks to its collaborators through small read interfaces so
// each stage can be exercised without a database.
type PendingStore interface {
	Pending(ctx context.Context) ([]PendingEvent, error)
	Consume(ctx context.Context, eventID uuid.UUID, entityType catalog.EntityType) error
}

type QueueStore interface {
	InsertIgnore(ctx context.Context, entries []QueueEntry) error
	NextUnsentUser(ctx context.Context) (string, error)
	UnsentForUser(ctx context.Context, userID string) ([]QueueEntry, error)
	MarkSent(ctx context.Context, entryIDs []uuid.UUID, at time.Time) error
}

type HierarchyReader interface {
	Ancestors(ctx context.Context, locationID uuid.UUID) ([]uuid.UUID, error)
}

type FollowerReader interface {
	Followers(ctx context.Context, locationIDs []uuid.UUID) ([]string, error)
}

type DirectoryReader interface {
	EntityName(ctx context.Context, entityType catalog.EntityType, entityID uuid.UUID) (string, error)
	EntityLocation(ctx context.Context, entityType catalog.EntityType, entityID uuid.UUID) (uuid.UUID, error)
	UserEmail(ctx context.Context, userID string) (string, error)
}

// Promoter fans pending events out into per-user queue entries.
type Promoter struct {
	Pending   PendingStore
	Queue     QueueStore
	Hierarchy HierarchyReader
	Followers FollowerReader
	Directory DirectoryReader
}

// Promote converts every pending event into zero or more queue entries and
// consumes it. For each event located at L, the candidate locations are L
// plus every ancestor of L, and the candidate users are everyone following
// any of them. Duplicate (event, user) pairs found via different paths are
// swallowed by the queue's unique index, so Promote is safe to call
// repeatedly: a promotion that fails midway needs no cleanup, only a retry.
func (p *Promoter) Promote(ctx context.Context) error {
	events, err := p.Pending.Pending(ctx)
	if err != nil {
		return fmt.Errorf("load pending events: %w", err)
	}

	for _, e := range events {
		loc, err := p.Directory.EntityLocation(ctx, e.EntityType, e.EntityID)
		if err != nil {
			return fmt.Errorf("resolve location for event %s: %w", e.ID, err)
		}

		ancestors, err := p.Hierarchy.Ancestors(ctx, loc)
		if err != nil {
			return fmt.Errorf("resolve ancestors of %s: %w", loc, err)
		}
		candidates := append([]uuid.UUID{loc}, ancestors...)

		users, err := p.Followers.Followers(ctx, candidates)
		if err != nil {
			return fmt.Errorf("resolve followers for event %s: %w", e.ID, err)
		}

		entries := make([]QueueEntry, 0, len(users))
		for _, u := range users {
			entries = append(entries, QueueEntry{
				ID:         uuid.New(),
				EventID:    e.ID,
				UserID:     u,
				EntityType: e.EntityType,
				EntityID:   e.EntityID,
				EventType:  e.EventType,
			})
		}

		if err := p.Queue.InsertIgnore(ctx, entries); err != nil {
			return fmt.Errorf("enqueue event %s: %w", e.ID, err)
		}

		// Consumed even when nobody follows the location: the transition
		// happened, there is just no one to tell.
		if err := p.Pending.Consume(ctx, e.ID, e.EntityType); err != nil {
			return fmt.Errorf("consume event %s: %w", e.ID, err)
		}

		log.Printf("[notify] promoted %s %s event %s to %d followers",
			e.EntityType, e.EventType, e.ID, len(users))
	}

	return nil
}
