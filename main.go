package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/OpenDataAtlas/ODA-Backend/internal/auth"
	"github.com/OpenDataAtlas/ODA-Backend/internal/catalog"
	"github.com/OpenDataAtlas/ODA-Backend/internal/db"
	"github.com/OpenDataAtlas/ODA-Backend/internal/follows"
	"github.com/OpenDataAtlas/ODA-Backend/internal/locations"
	"github.com/OpenDataAtlas/ODA-Backend/internal/middleware"
	"github.com/OpenDataAtlas/ODA-Backend/internal/notify"
	"github.com/OpenDataAtlas/ODA-Backend/internal/webhooks"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	auth.Init()
	locations.Init()
	catalog.Init()
	follows.Init()
	notify.Init()

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Get("/", RootHandler)

	r.Mount("/follows", follows.SetupRoutes())
	r.Mount("/notify", notify.SetupRoutes())
	r.Mount("/webhooks", webhooks.SetupRoutes())

	fmt.Println("Server listening on port :" + port + "...")

	http.ListenAndServe("0.0.0.0:"+port, r)
}
