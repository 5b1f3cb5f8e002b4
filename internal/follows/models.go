package follows

import (
	"time"

	"github.com/google/uuid"
)

// Follow subscribes a user to every notifiable event at a location or any of
// its descendants. Unique per (user, location); re-following is a conflict.
type Follow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	UserID     string    `gorm:"not null;index;uniqueIndex:idx_follow_user_location" json:"user_id"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_follow_user_location" json:"location_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Follow) TableName() string { return "notify.follows" }
