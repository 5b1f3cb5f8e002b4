package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EntityType names the two entity kinds the notification pipeline tracks.
type EntityType string

const (
	EntityDataSource  EntityType = "data_source"
	EntityDataRequest EntityType = "data_request"
)

// Tracked status values. The CRUD layer owns the full status vocabularies;
// only the transitions below feed the pending event store.
const (
	ApprovalApproved    = "approved"
	RequestReadyToStart = "ready_to_start"
	RequestComplete     = "complete"
)

// DataSource rows are written by the catalog CRUD service; the pipeline reads
// them to resolve display names and locations.
type DataSource struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Name           string         `gorm:"not null" json:"name"`
	AgencyName     string         `json:"agency_name"`
	SourceURL      string         `json:"source_url"`
	RecordTypes    pq.StringArray `gorm:"type:text[]" json:"record_types"`
	LocationID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"location_id"`
	ApprovalStatus string         `gorm:"not null;default:'pending'" json:"approval_status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type DataRequest struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Title         string    `gorm:"not null" json:"title"`
	Details       string    `json:"details"`
	LocationID    uuid.UUID `gorm:"type:uuid;not null;index" json:"location_id"`
	RequestStatus string    `gorm:"not null;default:'open'" json:"request_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (DataSource) TableName() string  { return "catalog.data_sources" }
func (DataRequest) TableName() string { return "catalog.data_requests" }
