package follows

import (
	"net/http"

	"github.com/OpenDataAtlas/ODA-Backend/internal/auth"
	"github.com/OpenDataAtlas/ODA-Backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()
	sessionFetcher := auth.SessionInfo{}

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessionFetcher))
		r.Get("/", ListFollowsHandler)
		r.Post("/{location_id}", FollowHandler)
		r.Delete("/{location_id}", UnfollowHandler)
	})

	return r
}
