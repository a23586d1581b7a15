package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/zfogg/circle/internal/audit"
	"github.com/zfogg/circle/internal/config"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/seed"
)

func main() {
	// Parse command
	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev":
		run(seed.DevOptions())
	case "test":
		run(seed.TestOptions())
	case "clean":
		clean()
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed test database with minimal deterministic data")
		fmt.Println("  clean - Remove all seeded accounts and their content")
		os.Exit(1)
	}
}

func connect() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if err := database.Initialize(cfg); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database connected")
}

func run(opts seed.Options) {
	log.Println("🌱 Seeding database...")
	connect()
	defer func() { _ = database.Close() }()

	sum, err := seed.NewSeeder(database.DB, nil).Run(context.Background(), opts)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✅ Seeded %d users, %d posts, %d follows, %d likes, %d bookmarks, %d comments",
		sum.Users, sum.Posts, sum.Follows, sum.Likes, sum.Bookmarks, sum.Comments)
}

func clean() {
	log.Println("🧹 Cleaning seed data...")
	connect()
	defer func() { _ = database.Close() }()

	ctx := context.Background()
	removed, err := seed.NewSeeder(database.DB, nil).Clean(ctx)
	if err != nil {
		log.Fatalf("❌ Clean failed: %v", err)
	}

	// Shares by removed accounts leave shares_count behind
	repaired, err := audit.NewAuditor(database.DB, nil).Repair(ctx)
	if err != nil {
		log.Fatalf("❌ Counter repair failed: %v", err)
	}

	log.Printf("✅ Removed %d seeded users, repaired %d counters", removed, len(repaired))
}
