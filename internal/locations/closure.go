package locations

import (
	"context"
	"fmt"

	"github.com/OpenDataAtlas/ODA-Backend/internal/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BuildClosure derives the full ancestor/descendant closure from a flat slice
// of locations. The hierarchy is a fixed four-level containment chain
// (national > state > county > locality), so the transitive closure of a row
// is exactly its parent chain; no general graph traversal is needed.
//
// Returns an error when a parent reference is missing, points at a row of the
// wrong type, or when the set has more or fewer than one national root.
func BuildClosure(locs []Location) ([]DependentLocation, error) {
	byID := make(map[uuid.UUID]Location, len(locs))
	var national *Location
	for i, l := range locs {
		if err := l.ValidateParents(); err != nil {
			return nil, err
		}
		if l.Type == TypeNational {
			if national != nil {
				return nil, fmt.Errorf("multiple national locations: %s and %s", national.Name, l.Name)
			}
			national = &locs[i]
		}
		byID[l.ID] = l
	}
	if national == nil {
		return nil, fmt.Errorf("no national root location")
	}

	resolve := func(id *uuid.UUID, want LocationType, owner Location) (uuid.UUID, error) {
		parent, ok := byID[*id]
		if !ok {
			return uuid.Nil, fmt.Errorf("%s %s references missing %s %s", owner.Type, owner.Name, want, *id)
		}
		if parent.Type != want {
			return uuid.Nil, fmt.Errorf("%s %s references %s %s as its %s", owner.Type, owner.Name, parent.Type, parent.Name, want)
		}
		return parent.ID, nil
	}

	var pairs []DependentLocation
	for _, l := range locs {
		if l.Type == TypeNational {
			continue
		}

		// Every non-national location sits under the national root.
		ancestors := []uuid.UUID{national.ID}

		if l.Type == TypeCounty || l.Type == TypeLocality {
			stateID, err := resolve(l.StateID, TypeState, l)
			if err != nil {
				return nil, err
			}
			ancestors = append(ancestors, stateID)
		}
		if l.Type == TypeLocality {
			countyID, err := resolve(l.CountyID, TypeCounty, l)
			if err != nil {
				return nil, err
			}
			ancestors = append(ancestors, countyID)
		}

		for _, a := range ancestors {
			pairs = append(pairs, DependentLocation{AncestorID: a, DescendantID: l.ID})
		}
	}
	return pairs, nil
}

// RebuildClosure recomputes reference.dependent_locations from the current
// location rows inside one transaction. Callers run it after every reference
// data load so the promoter's ancestor reads stay O(ancestors) per event.
func RebuildClosure(d *gorm.DB) error {
	var locs []Location
	if err := d.Find(&locs).Error; err != nil {
		return fmt.Errorf("load locations: %w", err)
	}

	pairs, err := BuildClosure(locs)
	if err != nil {
		return fmt.Errorf("derive closure: %w", err)
	}

	return d.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM reference.dependent_locations`).Error; err != nil {
			return fmt.Errorf("wipe closure: %w", err)
		}
		if len(pairs) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(pairs, 500).Error; err != nil {
			return fmt.Errorf("insert closure: %w", err)
		}
		return nil
	})
}

// Hierarchy is the read model consumed by the queue promoter.
type Hierarchy struct{}

func (Hierarchy) Ancestors(ctx context.Context, locationID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.DB.WithContext(ctx).
		Model(&DependentLocation{}).
		Where("descendant_id = ?", locationID).
		Pluck("ancestor_id", &ids).Error
	return ids, err
}
