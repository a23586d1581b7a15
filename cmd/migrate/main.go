package main

import (
	"fmt"
	"log"
	"os"

	"github.com/zfogg/circle/internal/config"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/models"
	"gorm.io/gorm"
)

func main() {
	// Parse command
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		connect()
		defer func() { _ = database.Close() }()
		runMigrationsUp()
	case "down":
		if len(os.Args) < 3 || os.Args[2] != "--yes" {
			log.Println("❌ down drops every table and its data")
			log.Println("Usage: migrate down --yes")
			os.Exit(1)
		}
		connect()
		defer func() { _ = database.Close() }()
		runMigrationsDown()
	case "status":
		connect()
		defer func() { _ = database.Close() }()
		printStatus()
	default:
		fmt.Println("Usage: migrate [up|down|status]")
		fmt.Println("  up     - Create or update every table and index")
		fmt.Println("  down   - Drop every table (requires --yes)")
		fmt.Println("  status - Show which tables exist")
		os.Exit(1)
	}
}

func connect() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	log.Println("🔄 Connecting to database...")
	if err := database.Initialize(cfg); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connected")
}

func runMigrationsUp() {
	log.Println("📈 Running migrations...")
	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ All migrations completed successfully!")
}

func runMigrationsDown() {
	log.Println("📉 Dropping tables...")
	if err := database.Drop(database.DB); err != nil {
		log.Fatalf("❌ Drop failed: %v", err)
	}
	log.Println("✅ All tables dropped")
}

func printStatus() {
	migrator := database.DB.Migrator()
	for _, model := range models.All() {
		stmt := &gorm.Statement{DB: database.DB}
		if err := stmt.Parse(model); err != nil {
			log.Fatalf("❌ Failed to parse model: %v", err)
		}
		mark := "✅"
		if !migrator.HasTable(model) {
			mark = "❌"
		}
		fmt.Printf("%s %s\n", mark, stmt.Schema.Table)
	}
}
