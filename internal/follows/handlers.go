package follows

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/OpenDataAtlas/ODA-Backend/internal/db"
	"github.com/OpenDataAtlas/ODA-Backend/internal/locations"
	"github.com/OpenDataAtlas/ODA-Backend/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func FollowHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Failed converting ID to string", http.StatusInternalServerError)
		return
	}

	locationID, err := uuid.Parse(chi.URLParam(r, "location_id"))
	if err != nil {
		http.Error(w, "Invalid location id", http.StatusBadRequest)
		return
	}

	var loc locations.Location
	if err := db.DB.First(&loc, "id = ?", locationID).Error; err != nil {
		http.Error(w, "Location not found", http.StatusNotFound)
		return
	}

	var existing Follow
	err = db.DB.Where("user_id = ? AND location_id = ?", userID, locationID).First(&existing).Error
	if err == nil {
		http.Error(w, "Already following this location", http.StatusConflict)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}

	follow := Follow{
		ID:         uuid.New(),
		UserID:     userID,
		LocationID: locationID,
	}
	if err := db.DB.Create(&follow).Error; err != nil {
		http.Error(w, "Failed to follow location", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(follow)
}

func UnfollowHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Failed converting ID to string", http.StatusInternalServerError)
		return
	}

	locationID, err := uuid.Parse(chi.URLParam(r, "location_id"))
	if err != nil {
		http.Error(w, "Invalid location id", http.StatusBadRequest)
		return
	}

	res := db.DB.Where("user_id = ? AND location_id = ?", userID, locationID).Delete(&Follow{})
	if res.Error != nil {
		http.Error(w, "Failed to unfollow location", http.StatusInternalServerError)
		return
	}
	if res.RowsAffected == 0 {
		http.Error(w, "Not following this location", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func ListFollowsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Failed converting ID to string", http.StatusInternalServerError)
		return
	}

	var follows []Follow
	if err := db.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&follows).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(follows)
}
