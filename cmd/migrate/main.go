package main

import (
	"log"
	"os"

	"github.com/ekobres/spook/internal/config"
	"github.com/ekobres/spook/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <up|down|version> [config-file]")
	}

	command := os.Args[1]
	configPath := ""
	if len(os.Args) > 2 {
		configPath = os.Args[2]
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		if err := database.Migrate(db); err != nil {
			log.Fatalf("An error occurred while migrating up: %v", err)
		}
		log.Println("Migrations applied successfully.")
	case "down":
		if err := database.MigrateDown(db); err != nil {
			log.Fatalf("An error occurred while migrating down: %v", err)
		}
		log.Println("Migrations rolled back successfully.")
	case "version":
		version, dirty, err := database.Version(db)
		if err != nil {
			log.Fatalf("Failed to read migration version: %v", err)
		}
		log.Printf("Version %d (dirty: %t)", version, dirty)
	default:
		log.Fatalf("Unknown command: %s. Use `up`, `down` or `version`.", command)
	}
}
