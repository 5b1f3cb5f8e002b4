package notify

import (
	"errors"
	"time"

	"github.com/OpenDataAtlas/ODA-Backend/internal/catalog"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EventType is the fixed taxonomy of notifiable transitions: data sources are
// approved, data requests become ready to start or complete.
type EventType string

const (
	EventApproved     EventType = "approved"
	EventReadyToStart EventType = "ready_to_start"
	EventComplete     EventType = "complete"
)

// One pending table per entity type, mirroring the split in the catalog. The
// (entity_id, event_type) unique index is what makes event capture idempotent:
// re-recording a transition before it is consumed hits the index and is
// swallowed, never duplicated.
type DataSourcePendingEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	EntityID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ds_pending_entity_event" json:"entity_id"`
	EventType EventType `gorm:"not null;uniqueIndex:idx_ds_pending_entity_event" json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
}

type DataRequestPendingEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	EntityID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_dr_pending_entity_event" json:"entity_id"`
	EventType EventType `gorm:"not null;uniqueIndex:idx_dr_pending_entity_event" json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
}

// QueueEntry is one user's obligation to be told about one event. The
// (event_id, user_id) unique index collapses multi-path fan-out: promotion may
// reach the same user through the event's locality and through an ancestor the
// user also follows, but only one row survives.
//
// Event type and entity id are denormalized here at promotion time so the
// pending row can be consumed immediately without orphaning assembly.
//
// SentAt defaults to null and is only ever written once, on delivery.
type QueueEntry struct {
	ID         uuid.UUID          `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	EventID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_queue_event_user" json:"event_id"`
	UserID     string             `gorm:"not null;index;uniqueIndex:idx_queue_event_user" json:"user_id"`
	EntityType catalog.EntityType `gorm:"not null" json:"entity_type"`
	EntityID   uuid.UUID          `gorm:"type:uuid;not null" json:"entity_id"`
	EventType  EventType          `gorm:"not null" json:"event_type"`
	CreatedAt  time.Time          `json:"created_at"`
	SentAt     *time.Time         `gorm:"index" json:"sent_at,omitempty"`
}

// NotificationLog records one row per dispatcher run, completed or aborted.
type NotificationLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	RunAt     time.Time      `gorm:"not null;index" json:"run_at"`
	UserCount int            `gorm:"not null" json:"user_count"`
	UserIDs   pq.StringArray `gorm:"type:text[]" json:"user_ids"`
}

func (DataSourcePendingEvent) TableName() string  { return "notify.data_source_pending_events" }
func (DataRequestPendingEvent) TableName() string { return "notify.data_request_pending_events" }
func (QueueEntry) TableName() string              { return "notify.queue_entries" }
func (NotificationLog) TableName() string         { return "notify.notification_logs" }

// PendingEvent is the merged in-memory view over both pending tables.
type PendingEvent struct {
	ID         uuid.UUID
	EntityType catalog.EntityType
	EntityID   uuid.UUID
	EventType  EventType
	CreatedAt  time.Time
}

// EventInfo carries everything the renderer needs about a single event. The
// entity name is resolved at assembly time; it is not stored on the queue.
type EventInfo struct {
	EventID    uuid.UUID          `json:"event_id"`
	EventType  EventType          `json:"event_type"`
	EntityType catalog.EntityType `json:"entity_type"`
	EntityID   uuid.UUID          `json:"entity_id"`
	EntityName string             `json:"entity_name"`
}

var ErrEmptyBatch = errors.New("event batch must contain at least one event")

// EventBatch is one user's outstanding notifications, assembled for a single
// delivery attempt and never persisted. EntryIDs track the queue rows behind
// Events so the dispatcher can mark exactly this batch as sent.
type EventBatch struct {
	UserID    string      `json:"user_id"`
	UserEmail string      `json:"user_email"`
	Events    []EventInfo `json:"events"`
	EntryIDs  []uuid.UUID `json:"-"`
}

// NewEventBatch rejects empty batches at construction; an empty batch is a
// defect in the assembler, not a state the renderer has to tolerate.
func NewEventBatch(userID, userEmail string, events []EventInfo, entryIDs []uuid.UUID) (*EventBatch, error) {
	if len(events) == 0 {
		return nil, ErrEmptyBatch
	}
	return &EventBatch{
		UserID:    userID,
		UserEmail: userEmail,
		Events:    events,
		EntryIDs:  entryIDs,
	}, nil
}
