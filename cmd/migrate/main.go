package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "migrate",
		Usage: "manage the hunt database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection string",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "create tables and default settings",
				Action: withConn(createTables, "All tables created successfully"),
			},
			{
				Name:  "drop",
				Usage: "drop every hunt table",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "confirm dropping all data"},
				},
				Action: func(c *cli.Context) error {
					if !c.Bool("yes") {
						return errors.New("refusing to drop tables without --yes")
					}
					return withConn(dropTables, "All tables dropped successfully")(c)
				},
			},
			{
				Name:   "seed",
				Usage:  "insert demo teams",
				Action: withConn(seedData, "Data seeded successfully"),
			},
			{
				Name:   "member-count",
				Usage:  "add the optional teams.member_count column",
				Action: withConn(addMemberCount, "member_count column added"),
			},
		},
	}
}

// withConn opens a connection for one command and reports success
func withConn(run func(ctx context.Context, conn *pgx.Conn) error, done string) cli.ActionFunc {
	return func(c *cli.Context) error {
		dbURL := c.String("database-url")
		if dbURL == "" {
			return errors.New("DATABASE_URL environment variable is not set")
		}

		conn, err := pgx.Connect(c.Context, dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer conn.Close(c.Context)

		if err := run(c.Context, conn); err != nil {
			return fmt.Errorf("%s failed: %w", c.Command.Name, err)
		}
		fmt.Println("✅ " + done)
		return nil
	}
}

var createQueries = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS teams (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		team_name TEXT NOT NULL UNIQUE,
		member_count INTEGER,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS submissions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		item_id TEXT NOT NULL,
		item_label TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		item_type TEXT NOT NULL,
		file_path TEXT,
		ig_post_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (team_id, item_id)
	)`,

	`CREATE TABLE IF NOT EXISTS app_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	`INSERT INTO app_settings (key, value) VALUES ('submissions_open', 'true') ON CONFLICT DO NOTHING`,

	`CREATE INDEX IF NOT EXISTS idx_submissions_team_id ON submissions(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at)`,
}

var dropQueries = []string{
	`DROP TABLE IF EXISTS submissions CASCADE`,
	`DROP TABLE IF EXISTS teams CASCADE`,
	`DROP TABLE IF EXISTS app_settings CASCADE`,
}

var seedTeams = []string{"Night Owls", "Early Birds", "Feather Squad", "Beak Street Boys"}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	for _, query := range createQueries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", getTableName(query))
	}
	return nil
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	for _, query := range dropQueries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", getTableName(query))
	}
	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	batch := &pgx.Batch{}
	for _, name := range seedTeams {
		batch.Queue(`INSERT INTO teams (team_name) VALUES ($1) ON CONFLICT (team_name) DO NOTHING`, name)
	}

	results := conn.SendBatch(ctx, batch)
	defer results.Close()

	for _, name := range seedTeams {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("failed to seed team %q: %w", name, err)
		}
		if tag.RowsAffected() == 0 {
			fmt.Printf("  Skipped existing team: %s\n", name)
		} else {
			fmt.Printf("  Seeded team: %s\n", name)
		}
	}
	return nil
}

func addMemberCount(ctx context.Context, conn *pgx.Conn) error {
	_, err := conn.Exec(ctx, `ALTER TABLE teams ADD COLUMN IF NOT EXISTS member_count INTEGER`)
	return err
}

// getTableName extracts a readable object name from a DDL statement
func getTableName(query string) string {
	fields := strings.Fields(query)
	for i, f := range fields {
		switch strings.ToUpper(f) {
		case "TABLE", "INDEX", "EXTENSION", "INTO":
			name := fields[i+1:]
			for len(name) > 0 && isKeyword(name[0]) {
				name = name[1:]
			}
			if len(name) > 0 {
				return strings.TrimSuffix(name[0], "(")
			}
		}
	}
	return query
}

func isKeyword(s string) bool {
	switch strings.ToUpper(s) {
	case "IF", "NOT", "EXISTS":
		return true
	}
	return false
}
