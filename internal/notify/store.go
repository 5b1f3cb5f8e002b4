package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OpenDataAtlas/ODA-Backend/internal/catalog"
	"github.com/OpenDataAtlas/ODA-Backend/internal/db"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidEventType = errors.New("event type not valid for entity type")

// allowedEvents pins the fixed taxonomy: three event types over two entities.
var allowedEvents = map[catalog.EntityType][]EventType{
	catalog.EntityDataSource:  {EventApproved},
	catalog.EntityDataRequest: {EventReadyToStart, EventComplete},
}

func validEvent(entityType catalog.EntityType, eventType EventType) bool {
	for _, et := range allowedEvents[entityType] {
		if et == eventType {
			return true
		}
	}
	return false
}

// GormPendingStore persists pending events in the two notify.*_pending_events
// tables. Capture idempotency comes from the per-table (entity_id, event_type)
// unique index plus ON CONFLICT DO NOTHING, not from pre-checking.
type GormPendingStore struct{}

func (GormPendingStore) Record(ctx context.Context, entityType catalog.EntityType, entityID uuid.UUID, eventType EventType) error {
	if !validEvent(entityType, eventType) {
		return fmt.Errorf("%w: %s/%s", ErrInvalidEventType, entityType, eventType)
	}

	tx := db.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true})
	switch entityType {
	case catalog.EntityDataSource:
		return tx.Create(&DataSourcePendingEvent{ID: uuid.New(), EntityID: entityID, EventType: eventType}).Error
	case catalog.EntityDataRequest:
		return tx.Create(&DataRequestPendingEvent{ID: uuid.New(), EntityID: entityID, EventType: eventType}).Error
	default:
		return fmt.Errorf("%w: %s", catalog.ErrUnknownEntityType, entityType)
	}
}

func (GormPendingStore) Pending(ctx context.Context) ([]PendingEvent, error) {
	var sources []DataSourcePendingEvent
	if err := db.DB.WithContext(ctx).Order("created_at").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("load data source pending events: %w", err)
	}
	var requests []DataRequestPendingEvent
	if err := db.DB.WithContext(ctx).Order("created_at").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("load data request pending events: %w", err)
	}

	events := make([]PendingEvent, 0, len(sources)+len(requests))
	for _, e := range sources {
		events = append(events, PendingEvent{
			ID:         e.ID,
			EntityType: catalog.EntityDataSource,
			EntityID:   e.EntityID,
			EventType:  e.EventType,
			CreatedAt:  e.CreatedAt,
		})
	}
	for _, e := range requests {
		events = append(events, PendingEvent{
			ID:         e.ID,
			EntityType: catalog.EntityDataRequest,
			EntityID:   e.EntityID,
			EventType:  e.EventType,
			CreatedAt:  e.CreatedAt,
		})
	}
	return events, nil
}

func (GormPendingStore) Consume(ctx context.Context, eventID uuid.UUID, entityType catalog.EntityType) error {
	switch entityType {
	case catalog.EntityDataSource:
		return db.DB.WithContext(ctx).Delete(&DataSourcePendingEvent{}, "id = ?", eventID).Error
	case catalog.EntityDataRequest:
		return db.DB.WithContext(ctx).Delete(&DataRequestPendingEvent{}, "id = ?", eventID).Error
	default:
		return fmt.Errorf("%w: %s", catalog.ErrUnknownEntityType, entityType)
	}
}

// GormQueueStore persists queue entries. Fan-out dedup lives here as the
// (event_id, user_id) unique index; InsertIgnore swallows conflicts so the
// same user reached via several hierarchy paths keeps exactly one row.
type GormQueueStore struct{}

func (GormQueueStore) InsertIgnore(ctx context.Context, entries []QueueEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		CreateInBatches(entries, 500).Error
}

func (GormQueueStore) NextUnsentUser(ctx context.Context) (string, error) {
	var entry QueueEntry
	err := db.DB.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("created_at").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return entry.UserID, nil
}

func (GormQueueStore) UnsentForUser(ctx context.Context, userID string) ([]QueueEntry, error) {
	var entries []QueueEntry
	err := db.DB.WithContext(ctx).
		Where("user_id = ? AND sent_at IS NULL", userID).
		Order("created_at").
		Find(&entries).Error
	return entries, err
}

// MarkSent only touches rows whose sent_at is still null, which keeps
// delivery timestamps monotonic even if two runs ever race past the lock.
func (GormQueueStore) MarkSent(ctx context.Context, entryIDs []uuid.UUID, at time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}
	return db.DB.WithContext(ctx).
		Model(&QueueEntry{}).
		Where("id IN ? AND sent_at IS NULL", entryIDs).
		Update("sent_at", at).Error
}

// GormRunLog appends one notification_logs row per run.
type GormRunLog struct{}

func (GormRunLog) AppendRun(ctx context.Context, runAt time.Time, userIDs []string) error {
	return db.DB.WithContext(ctx).Create(&NotificationLog{
		ID:        uuid.New(),
		RunAt:     runAt,
		UserCount: len(userIDs),
		UserIDs:   pq.StringArray(userIDs),
	}).Error
}

// RecordPendingEvent is the application-level replacement for the old
// database trigger: the catalog CRUD service calls it right after a tracked
// status transition commits (data source approved, data request ready to
// start or complete). Safe to call repeatedly for the same transition.
func RecordPendingEvent(ctx context.Context, entityType catalog.EntityType, entityID uuid.UUID, eventType EventType) error {
	return GormPendingStore{}.Record(ctx, entityType, entityID, eventType)
}
