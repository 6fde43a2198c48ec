package main

import (
	"log"
	"net/http"

	"github.com/harborlights/harbor/internal/api"
	"github.com/harborlights/harbor/internal/automigrate"
	"github.com/harborlights/harbor/internal/config"
	"github.com/harborlights/harbor/internal/importer"
	"github.com/harborlights/harbor/internal/progress"
	"github.com/harborlights/harbor/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := store.DB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := automigrate.Run(db, cfg.MigrationsDir); err != nil {
		log.Fatalf("Failed to run startup migrations: %v", err)
	}

	router := api.NewRouter(api.Deps{
		Auth:     store.NewUserStore(db),
		Store:    importer.NewStore(db),
		Registry: progress.NewRegistry(),
		Config:   cfg,
	})

	log.Printf("⚓ Harbor starting on port %s (%s)", cfg.Port, cfg.Environment)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
