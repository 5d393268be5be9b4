package store

import (
	"context"
	"database/sql"
	"fmt"

	"leadscout/internal/errors"
)

// migrations[i] moves the schema from user_version i to i+1.
var migrations = [][]string{
	{
		`
CREATE TABLE IF NOT EXISTS leads (
  url TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  author TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL,
  timestamp TEXT NOT NULL,
  engagement_score INTEGER NOT NULL DEFAULT 0,
  is_qualified INTEGER NOT NULL DEFAULT 0,
  confidence REAL NOT NULL DEFAULT 0,
  reason TEXT NOT NULL DEFAULT '',
  service_match TEXT NOT NULL DEFAULT '[]',
  exported_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_leads_confidence ON leads(confidence);`,
		`CREATE INDEX IF NOT EXISTS idx_leads_source ON leads(source);`,
	},
	{
		`ALTER TABLE leads ADD COLUMN llm_provider TEXT NOT NULL DEFAULT '';`,
		`ALTER TABLE leads ADD COLUMN skipped_llm INTEGER NOT NULL DEFAULT 0;`,
		`ALTER TABLE leads ADD COLUMN metadata TEXT NOT NULL DEFAULT '{}';`,
	},
}

// SchemaVersion is the user_version a fully migrated file reports.
var SchemaVersion = len(migrations)

// Migrate applies every pending step in one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "migrate: begin")
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return errors.Wrap(err, "migrate: read version")
	}
	if v >= len(migrations) {
		return tx.Commit()
	}

	for i := v; i < len(migrations); i++ {
		for _, stmt := range migrations[i] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "migrate: step %d", i+1)
			}
		}
	}
	// PRAGMA takes no bind parameters
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, len(migrations))); err != nil {
		return errors.Wrap(err, "migrate: set version")
	}
	return errors.Wrap(tx.Commit(), "migrate: commit")
}
