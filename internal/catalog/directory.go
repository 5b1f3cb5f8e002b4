package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/OpenDataAtlas/ODA-Backend/internal/auth"
	"github.com/OpenDataAtlas/ODA-Backend/internal/db"
	"github.com/google/uuid"
)

var ErrUnknownEntityType = errors.New("unknown entity type")

// Directory resolves entity display names, entity locations and user emails
// for the notification pipeline. Pure reads into collaborator-owned tables.
type Directory struct{}

func (Directory) EntityName(ctx context.Context, entityType EntityType, entityID uuid.UUID) (string, error) {
	switch entityType {
	case EntityDataSource:
		var src DataSource
		if err := db.DB.WithContext(ctx).First(&src, "id = ?", entityID).Error; err != nil {
			return "", fmt.Errorf("data source %s: %w", entityID, err)
		}
		return src.Name, nil
	case EntityDataRequest:
		var req DataRequest
		if err := db.DB.WithContext(ctx).First(&req, "id = ?", entityID).Error; err != nil {
			return "", fmt.Errorf("data request %s: %w", entityID, err)
		}
		return req.Title, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownEntityType, entityType)
	}
}

func (Directory) EntityLocation(ctx context.Context, entityType EntityType, entityID uuid.UUID) (uuid.UUID, error) {
	switch entityType {
	case EntityDataSource:
		var src DataSource
		if err := db.DB.WithContext(ctx).Select("location_id").First(&src, "id = ?", entityID).Error; err != nil {
			return uuid.Nil, fmt.Errorf("data source %s: %w", entityID, err)
		}
		return src.LocationID, nil
	case EntityDataRequest:
		var req DataRequest
		if err := db.DB.WithContext(ctx).Select("location_id").First(&req, "id = ?", entityID).Error; err != nil {
			return uuid.Nil, fmt.Errorf("data request %s: %w", entityID, err)
		}
		return req.LocationID, nil
	default:
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, entityType)
	}
}

func (Directory) UserEmail(ctx context.Context, userID string) (string, error) {
	var user auth.User
	if err := db.DB.WithContext(ctx).First(&user, "user_id = ?", userID).Error; err != nil {
		return "", fmt.Errorf("user %s: %w", userID, err)
	}
	return user.Email, nil
}
