package notify

import (
	"net/http"
	"os"
	"strings"

	"github.com/OpenDataAtlas/ODA-Backend/internal/auth"
	"github.com/OpenDataAtlas/ODA-Backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// triggerTokenOrAdmin lets the scheduler hit /send with a static bearer token
// (stored bcrypt-hashed in the environment) while operators keep using their
// admin session.
func triggerTokenOrAdmin(fetcher middleware.SessionFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		adminChain := middleware.SessionMiddleware(fetcher)(middleware.AdminMiddleware(fetcher)(next))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if strings.HasPrefix(authz, "Bearer ") {
				hash := os.Getenv("NOTIFY_TRIGGER_TOKEN_HASH")
				if hash == "" {
					http.Error(w, "server misconfigured", http.StatusInternalServerError)
					return
				}
				token := strings.TrimPrefix(authz, "Bearer ")
				if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
					http.Error(w, "Invalid trigger token", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			adminChain.ServeHTTP(w, r)
		})
	}
}

func SetupRoutes() http.Handler {
	r := chi.NewRouter()
	sessionFetcher := auth.SessionInfo{}

	r.Group(func(r chi.Router) {
		r.Use(triggerTokenOrAdmin(sessionFetcher))
		r.Post("/send", SendHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessionFetcher))
		r.Use(middleware.AdminMiddleware(sessionFetcher))
		r.Use(middleware.RateLimit(rate.Limit(1), 5))
		r.Get("/preview/{user_id}", PreviewHandler)
	})

	return r
}
