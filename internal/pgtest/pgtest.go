// Package pgtest opens a migrated Postgres database for integration tests.
package pgtest

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"guildpulse/internal/migrations"
)

// Open connects using the standard PG* environment variables and applies the
// schema. It skips the test if the connection cannot be established.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	pgUser := os.Getenv("PGUSER")
	pgPassword := os.Getenv("PGPASSWORD")
	pgHost := os.Getenv("PGHOST")
	pgPort := os.Getenv("PGPORT")
	pgDB := os.Getenv("PGDATABASE")

	if pgUser == "" {
		pgUser = "user"
	}
	if pgPassword == "" {
		pgPassword = "password"
	}
	if pgHost == "" {
		pgHost = "localhost"
	}
	if pgPort == "" {
		pgPort = "5432"
	}
	if pgDB == "" {
		pgDB = "testdb"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPassword, pgDB)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping postgres tests: could not connect to postgres: %v", err)
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// Reset empties every table so a test starts from a clean schema.
func Reset(t testing.TB, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec(`TRUNCATE events, notification_slots, contributions, event_journal RESTART IDENTITY`); err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
}
