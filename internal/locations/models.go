package locations

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type LocationType string

const (
	TypeNational LocationType = "national"
	TypeState    LocationType = "state"
	TypeCounty   LocationType = "county"
	TypeLocality LocationType = "locality"
)

// Location is reference data loaded by cmd/seed and treated as immutable here.
// Parent references must be consistent with Type: a locality carries both its
// county and state, a county carries its state, a state and the national row
// carry neither.
type Location struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Type      LocationType `gorm:"not null;index" json:"type"`
	Name      string       `gorm:"not null" json:"name"`
	StateID   *uuid.UUID   `gorm:"type:uuid;index" json:"state_id,omitempty"`
	CountyID  *uuid.UUID   `gorm:"type:uuid;index" json:"county_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// DependentLocation is one row of the materialized ancestor/descendant closure
// over Location. Rebuilt whenever reference data changes; never edited by hand.
type DependentLocation struct {
	AncestorID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"ancestor_id"`
	DescendantID uuid.UUID `gorm:"type:uuid;primaryKey" json:"descendant_id"`
}

func (Location) TableName() string          { return "reference.locations" }
func (DependentLocation) TableName() string { return "reference.dependent_locations" }

// ValidateParents checks the type/parent-reference invariant for a single row.
func (l Location) ValidateParents() error {
	switch l.Type {
	case TypeNational, TypeState:
		if l.StateID != nil || l.CountyID != nil {
			return fmt.Errorf("location %s (%s) must not have parent references", l.Name, l.Type)
		}
	case TypeCounty:
		if l.StateID == nil || l.CountyID != nil {
			return fmt.Errorf("county %s must reference exactly a state", l.Name)
		}
	case TypeLocality:
		if l.StateID == nil || l.CountyID == nil {
			return fmt.Errorf("locality %s must reference a county and a state", l.Name)
		}
	default:
		return fmt.Errorf("location %s has unknown type %q", l.Name, l.Type)
	}
	return nil
}
