package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/OpenDataAtlas/ODA-Backend/internal/notify"
)

// SchedulerNotifyWebhook is the cron entry point: the external scheduler
// POSTs a signed request and the full notification run executes inline.
// The response reports the run summary so scheduler logs carry it.
func SchedulerNotifyWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "payload too large or unreadable", http.StatusRequestEntityTooLarge)
		return
	}
	defer r.Body.Close()

	sig := r.Header.Get("Scheduler-Signature")
	secret := os.Getenv("SCHEDULER_WEBHOOK_SECRET")
	if secret == "" {
		http.Error(w, "server misconfigured", http.StatusInternalServerError)
		return
	}
	if !verifyScheduler(sig, raw, secret) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	if notify.Pipeline == nil {
		http.Error(w, "notification pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	result, err := notify.Pipeline.Run(r.Context())
	if err != nil {
		if errors.Is(err, notify.ErrRunInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{
			"error":          err.Error(),
			"users_notified": result.UsersNotified,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func verifyScheduler(sig string, raw []byte, secret string) bool {
	if !strings.HasPrefix(sig, "sha256=") {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}
