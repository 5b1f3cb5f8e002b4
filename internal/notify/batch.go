package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Assembler groups a single user's unsent queue entries into an EventBatch.
type Assembler struct {
	Queue     QueueStore
	Directory DirectoryReader
}

// NextBatch picks one user with at least one unsent entry and assembles their
// batch. Returns nil when no user has anything outstanding; never returns a
// batch with zero events. User order across a run is arbitrary, but a run
// drains each user completely so no user appears twice.
func (a *Assembler) NextBatch(ctx context.Context) (*EventBatch, error) {
	userID, err := a.Queue.NextUnsentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("select next user: %w", err)
	}
	if userID == "" {
		return nil, nil
	}
	return a.BatchFor(ctx, userID)
}

// BatchFor assembles the batch for one specific user, resolving entity names
// through the directory. Returns nil when the user has no unsent entries.
func (a *Assembler) BatchFor(ctx context.Context, userID string) (*EventBatch, error) {
	entries, err := a.Queue.UnsentForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load entries for user %s: %w", userID, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	email, err := a.Directory.UserEmail(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve email for user %s: %w", userID, err)
	}

	events := make([]EventInfo, 0, len(entries))
	entryIDs := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		name, err := a.Directory.EntityName(ctx, entry.EntityType, entry.EntityID)
		if err != nil {
			return nil, fmt.Errorf("resolve name for %s %s: %w", entry.EntityType, entry.EntityID, err)
		}
		events = append(events, EventInfo{
			EventID:    entry.EventID,
			EventType:  entry.EventType,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			EntityName: name,
		})
		entryIDs = append(entryIDs, entry.ID)
	}

	return NewEventBatch(userID, email, events, entryIDs)
}
