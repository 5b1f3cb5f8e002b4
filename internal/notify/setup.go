package notify

import (
	"log"
	"os"

	"github.com/OpenDataAtlas/ODA-Backend/internal/catalog"
	"github.com/OpenDataAtlas/ODA-Backend/internal/db"
	"github.com/OpenDataAtlas/ODA-Backend/internal/follows"
	"github.com/OpenDataAtlas/ODA-Backend/internal/locations"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "notify"); err != nil {
		log.Fatal("Failed to ensure schema notify: ", err)
	}

	if err := db.DB.AutoMigrate(
		&DataSourcePendingEvent{},
		&DataRequestPendingEvent{},
		&QueueEntry{},
		&NotificationLog{},
	); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}

	cfg, err := LoadConfig(os.Getenv("NOTIFY_CONFIG"))
	if err != nil {
		log.Fatal("Failed to load notify config: ", err)
	}

	mailer, err := NewMailer(cfg)
	if err != nil {
		log.Printf("[notify] WARNING: failed to initialize %s mailer: %v", cfg.Mailer.Provider, err)
		log.Printf("[notify] falling back to console mailer; no email will be delivered")
		mailer = ConsoleMailer{}
	}

	directory := catalog.Directory{}
	queue := GormQueueStore{}

	promoter := &Promoter{
		Pending:   GormPendingStore{},
		Queue:     queue,
		Hierarchy: locations.Hierarchy{},
		Followers: follows.Registry{},
		Directory: directory,
	}

	Pipeline = &Dispatcher{
		Promoter:  promoter,
		Assembler: &Assembler{Queue: queue, Directory: directory},
		Renderer:  Renderer{BaseURL: cfg.BaseURL},
		Mailer:    mailer,
		Queue:     queue,
		RunLog:    GormRunLog{},
		Locker:    AdvisoryLock{Key: RunLockKey},
		Subject:   cfg.Subject,
	}

	log.Printf("[notify] pipeline initialized (mailer=%s, base_url=%s)", cfg.Mailer.Provider, cfg.BaseURL)
}
