package notify

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Pipeline is the process-wide dispatcher, wired in Init().
var Pipeline *Dispatcher

func SendHandler(w http.ResponseWriter, r *http.Request) {
	if Pipeline == nil {
		http.Error(w, "Notification pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	result, err := Pipeline.Run(r.Context())
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		var dErr *DeliveryError
		if errors.As(err, &dErr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]any{
				"error":          dErr.Error(),
				"users_notified": dErr.Completed,
			})
			return
		}
		http.Error(w, "Notification run failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func PreviewHandler(w http.ResponseWriter, r *http.Request) {
	if Pipeline == nil {
		http.Error(w, "Notification pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		http.Error(w, "Missing user id", http.StatusBadRequest)
		return
	}

	htmlBody, textBody, err := Pipeline.Preview(r.Context(), userID)
	if err != nil {
		http.Error(w, "Preview failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if htmlBody == "" && textBody == "" {
		http.Error(w, "No unsent notifications for user", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"html": htmlBody,
		"text": textBody,
	})
}
