package locations

import (
	"log"

	"github.com/OpenDataAtlas/ODA-Backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "reference"); err != nil {
		log.Fatal("Failed to ensure schema reference: ", err)
	}

	if err := db.DB.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Fatal("Failed to enable uuid-ossp extension:", err)
	}

	if err := db.DB.AutoMigrate(&Location{}, &DependentLocation{}); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}
}
