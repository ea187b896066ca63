package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS notification_outbox CASCADE`,
		`DROP TABLE IF EXISTS tests CASCADE`,
		`DROP TABLE IF EXISTS categories CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		// Categories carry localized names as JSONB
		`CREATE TABLE IF NOT EXISTS categories (
			id VARCHAR(64) PRIMARY KEY,
			name JSONB NOT NULL,
			slug VARCHAR(255) UNIQUE NOT NULL,
			is_active BOOLEAN DEFAULT true,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,

		// One row per test; the document holds options and vote sessions,
		// the version column guards concurrent read-modify-write cycles
		`CREATE TABLE IF NOT EXISTS tests (
			id VARCHAR(64) PRIMARY KEY,
			slug VARCHAR(255) UNIQUE NOT NULL,
			category_id VARCHAR(64) REFERENCES categories(id),
			is_active BOOLEAN DEFAULT true,
			trend BOOLEAN DEFAULT false,
			popular BOOLEAN DEFAULT false,
			total_votes INTEGER DEFAULT 0,
			end_date TIMESTAMPTZ,
			document JSONB NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,

		// Notification outbox drained by the background dispatcher
		`CREATE TABLE IF NOT EXISTS notification_outbox (
			id BIGSERIAL PRIMARY KEY,
			participant_id VARCHAR(255) NOT NULL,
			kind VARCHAR(50) NOT NULL,
			payload JSONB NOT NULL,
			dispatched_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_tests_category ON tests(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tests_active ON tests(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_tests_end_date ON tests(end_date) WHERE end_date IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_tests_created_at ON tests(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_tests_total_votes ON tests(total_votes DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_tests_sessions ON tests USING GIN ((document->'vote_sessions') jsonb_path_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON notification_outbox(created_at) WHERE dispatched_at IS NULL`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", shorten(query))
	}

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	query := `
		INSERT INTO categories (id, name, slug) VALUES
		('cat-football', '{"tr":"Futbol","en":"Football","de":"Fußball","fr":"Football"}', 'futbol'),
		('cat-music', '{"tr":"Müzik","en":"Music","de":"Musik","fr":"Musique"}', 'muzik'),
		('cat-film', '{"tr":"Film","en":"Movies","de":"Filme","fr":"Films"}', 'film'),
		('cat-food', '{"tr":"Yemek","en":"Food","de":"Essen","fr":"Cuisine"}', 'yemek')
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug
	`

	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	fmt.Println("  Seeded 4 categories")
	return nil
}

func shorten(query string) string {
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}
