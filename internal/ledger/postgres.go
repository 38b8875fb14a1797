package ledger

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// PostgresLedger stores processed trends in PostgreSQL. The upsert on
// trend_id makes Record idempotent and safe across overlapping runs
// without any file-level coordination.
type PostgresLedger struct {
	db *sql.DB
}

// OpenPostgres connects and makes sure the schema exists.
func OpenPostgres(connectionString string) (*PostgresLedger, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pl := &PostgresLedger{db: db}

	if err := pl.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Println("✅ PostgreSQL ledger connected")
	return pl, nil
}

func (pl *PostgresLedger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed_trends (
		id SERIAL PRIMARY KEY,
		trend_id VARCHAR(64) UNIQUE NOT NULL,
		title TEXT NOT NULL,
		category VARCHAR(50),
		schedule VARCHAR(50),
		post_id INTEGER DEFAULT 0,
		processed_at TIMESTAMP NOT NULL DEFAULT NOW(),
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_processed_trends_trend_id ON processed_trends(trend_id);
	CREATE INDEX IF NOT EXISTS idx_processed_trends_processed_at ON processed_trends(processed_at);
	`

	if _, err := pl.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (pl *PostgresLedger) Contains(id string) bool {
	var count int
	err := pl.db.QueryRow(
		`SELECT COUNT(*) FROM processed_trends WHERE trend_id = $1`, id,
	).Scan(&count)
	if err != nil {
		log.Printf("⚠️ Error checking ledger: %v", err)
		return false
	}

	return count > 0
}

func (pl *PostgresLedger) Record(e Entry) error {
	if e.ID == "" {
		e.ID = Key(e.Title)
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO processed_trends (trend_id, title, category, schedule, post_id, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (trend_id) DO UPDATE SET processed_at = EXCLUDED.processed_at
	`

	if _, err := pl.db.Exec(query, e.ID, e.Title, e.Category, e.Schedule, e.PostID, e.ProcessedAt); err != nil {
		return fmt.Errorf("failed to record trend: %w", err)
	}

	return nil
}

func (pl *PostgresLedger) Size() int {
	var count int
	err := pl.db.QueryRow(`SELECT COUNT(*) FROM processed_trends`).Scan(&count)
	if err != nil {
		log.Printf("⚠️ Error counting ledger: %v", err)
		return 0
	}

	return count
}

// Persist is a no-op: every Record is already durable.
func (pl *PostgresLedger) Persist() error { return nil }

func (pl *PostgresLedger) Close() error {
	if pl.db != nil {
		return pl.db.Close()
	}
	return nil
}

// Recent returns the newest entries, for the compact command's summary.
func (pl *PostgresLedger) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT trend_id, title, category, schedule, post_id, processed_at
		FROM processed_trends
		ORDER BY processed_at DESC
		LIMIT $1
	`

	rows, err := pl.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Entry
	for rows.Next() {
		var e Entry
		var category, schedule sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &category, &schedule, &e.PostID, &e.ProcessedAt); err != nil {
			log.Printf("⚠️ Error scanning ledger row: %v", err)
			continue
		}
		e.Category = category.String
		e.Schedule = schedule.String
		items = append(items, e)
	}

	return items, rows.Err()
}
