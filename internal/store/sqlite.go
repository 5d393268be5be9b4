package store

import (
	"context"
	"encoding/json"
	"time"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
)

const upsertLead = `
INSERT INTO leads (
  url, source, author, title, content, timestamp, engagement_score,
  is_qualified, confidence, reason, service_match, exported_at,
  llm_provider, skipped_llm, metadata
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
  engagement_score = excluded.engagement_score,
  is_qualified = excluded.is_qualified,
  confidence = excluded.confidence,
  reason = excluded.reason,
  service_match = excluded.service_match,
  exported_at = excluded.exported_at,
  llm_provider = excluded.llm_provider,
  skipped_llm = excluded.skipped_llm,
  metadata = excluded.metadata;`

// ExportSQLite upserts leads into the leads table of the sqlite file at path
// and returns how many rows were written.
func ExportSQLite(ctx context.Context, path string, leads []domain.Lead) (int, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	tx, err := db.Pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "export sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertLead)
	if err != nil {
		return 0, errors.Wrap(err, "export sqlite: prepare")
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, l := range leads {
		var q domain.Qualification
		if l.Qualification != nil {
			q = *l.Qualification
		}
		services, _ := json.Marshal(nonNil(q.ServiceMatch))
		meta, _ := json.Marshal(l.Metadata)
		if l.Metadata == nil {
			meta = []byte("{}")
		}

		if _, err := stmt.ExecContext(ctx,
			l.URL, string(l.Source), l.Author, l.Title, l.Content,
			l.Timestamp.UTC().Format(time.RFC3339Nano), l.EngagementScore,
			q.IsQualified, q.ConfidenceScore, q.Reason, string(services), now,
			q.LLMProvider, q.SkippedLLM, string(meta),
		); err != nil {
			return 0, errors.Wrapf(err, "export sqlite: %s", l.URL)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "export sqlite: commit")
	}
	return len(leads), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
