package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/store"
)

// CreateReport inserts a report.
func (db *DB) CreateReport(ctx context.Context, r *model.Report) error {
	_, err := db.Pool.Exec(ctx, `
INSERT INTO reports (id, reporter_id, target_uid, target_content_id, reason, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.ReporterID, r.TargetUID, r.TargetContentID, r.Reason, r.Status, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// RecordKeyword appends a search keyword.
func (db *DB) RecordKeyword(ctx context.Context, k model.SearchKeyword) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO search_keywords (user_id, keyword, searched_at) VALUES ($1, $2, $3)`,
		k.UserID, k.Keyword, k.SearchedAt)
	if err != nil {
		return fmt.Errorf("insert keyword: %w", err)
	}
	return nil
}

// GrantAdmin records the admin claim. Granting twice is a no-op.
func (db *DB) GrantAdmin(ctx context.Context, userID string) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO admins (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// UpdateWindow serializes updates of one key with a transaction-scoped
// advisory lock, which also covers keys that have no row yet.
func (db *DB) UpdateWindow(ctx context.Context, key string, ttl time.Duration, fn store.WindowUpdate) error {
	return pgx.BeginTxFunc(ctx, db.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
			return fmt.Errorf("lock window: %w", err)
		}

		var current *model.RateWindow
		var w model.RateWindow
		err := tx.QueryRow(ctx,
			`SELECT key, window_start, count FROM rate_windows WHERE key = $1`, key,
		).Scan(&w.Key, &w.WindowStart, &w.Count)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return fmt.Errorf("select window: %w", err)
		default:
			current = &w
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}

		_, err = tx.Exec(ctx, `
INSERT INTO rate_windows (key, window_start, count, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE
SET window_start = EXCLUDED.window_start, count = EXCLUDED.count, expires_at = EXCLUDED.expires_at`,
			key, next.WindowStart, next.Count, next.WindowStart.Add(ttl))
		if err != nil {
			return fmt.Errorf("upsert window: %w", err)
		}
		return nil
	})
}

// PurgeExpiredWindows deletes windows whose ttl elapsed before now.
func (db *DB) PurgeExpiredWindows(ctx context.Context, now time.Time) (int64, error) {
	ct, err := db.Pool.Exec(ctx, `DELETE FROM rate_windows WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge windows: %w", err)
	}
	return ct.RowsAffected(), nil
}
