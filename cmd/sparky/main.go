package main

import (
	"context"
	"log"
	"net/http"

	"github.com/sparkylabs/sparky/internal/analytics"
	"github.com/sparkylabs/sparky/internal/auth/google"
	"github.com/sparkylabs/sparky/internal/config"
	"github.com/sparkylabs/sparky/internal/db"
	"github.com/sparkylabs/sparky/internal/insights"
	"github.com/sparkylabs/sparky/internal/profile"
	"github.com/sparkylabs/sparky/internal/session"
	"github.com/sparkylabs/sparky/internal/storage"
	"github.com/sparkylabs/sparky/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sessions := session.NewManager(database, cfg.SessionSecret)
	if err := sessions.PurgeExpired(); err != nil {
		log.Printf("Failed to purge expired sessions: %v", err)
	}

	batches, err := analytics.LoadBatches(cfg.BatchesFile)
	if err != nil {
		log.Fatalf("Failed to load batch catalog: %v", err)
	}

	avatars, err := storage.NewAvatarStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize avatar storage: %v", err)
	}

	app := &web.App{
		Sessions:  sessions,
		Profiles:  profile.NewStore(database),
		Flow:      google.NewFlow(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURL()),
		Admin:     analytics.NewAdminClient(),
		Data:      analytics.NewDataClient(batches),
		Generator: insights.NewGenerator(cfg.OpenAIAPIKey),
		Avatars:   avatars,
	}

	addr := cfg.Addr()
	log.Printf("Sparky listening on http://%s", addr)
	log.Printf("OAuth callback URL: %s", cfg.RedirectURL())
	if err := http.ListenAndServe(addr, web.Router(app)); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
