package follows

import (
	"context"

	"github.com/OpenDataAtlas/ODA-Backend/internal/db"
	"github.com/google/uuid"
)

// Registry is the read side consumed by the queue promoter.
type Registry struct{}

// Followers returns the distinct user IDs following any of the given
// locations. The promoter passes an event's location plus its ancestors in
// one call; the DISTINCT here only trims the query result, the real dedup
// guarantee lives on the queue's (event_id, user_id) unique index.
func (Registry) Followers(ctx context.Context, locationIDs []uuid.UUID) ([]string, error) {
	if len(locationIDs) == 0 {
		return nil, nil
	}
	var userIDs []string
	err := db.DB.WithContext(ctx).
		Model(&Follow{}).
		Distinct("user_id").
		Where("location_id IN ?", locationIDs).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}
