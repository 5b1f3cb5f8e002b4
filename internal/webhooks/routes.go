package webhooks

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Signature-verified, not session-protected
	r.Post("/scheduler/notify", SchedulerNotifyWebhook)

	return r
}
