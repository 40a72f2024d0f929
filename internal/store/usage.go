package store

import (
	"context"
	"fmt"
	"strings"

	"poolpack/internal/ledger"
)

// Record appends usage entries in a single transaction.
func (s *Store) Record(ctx context.Context, usage []ledger.Usage) error {
	if len(usage) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin usage tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO usage (resource_id, consumer_id, batch_id, delivered_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare usage insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range usage {
		at := u.DeliveredAt
		if at.IsZero() {
			at = s.now()
		}
		if _, err := stmt.ExecContext(ctx, u.ResourceID, u.ConsumerID, u.BatchID, formatTime(at)); err != nil {
			return fmt.Errorf("insert usage for %s: %w", u.ResourceID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit usage: %w", err)
	}
	return nil
}

// UsageFilter narrows ListUsage results.
type UsageFilter struct {
	ConsumerID string
	BatchID    string
	Limit      int
}

// ListUsage returns usage entries newest first.
func (s *Store) ListUsage(ctx context.Context, filter UsageFilter) ([]ledger.Usage, error) {
	var (
		clauses []string
		args    []any
	)
	if v := strings.TrimSpace(filter.ConsumerID); v != "" {
		clauses = append(clauses, "consumer_id = ?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(filter.BatchID); v != "" {
		clauses = append(clauses, "batch_id = ?")
		args = append(args, v)
	}
	query := "SELECT resource_id, consumer_id, batch_id, delivered_at FROM usage"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var out []ledger.Usage
	for rows.Next() {
		var (
			u  ledger.Usage
			at string
		)
		if err := rows.Scan(&u.ResourceID, &u.ConsumerID, &u.BatchID, &at); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		if parsed, err := parseTimeString(at); err == nil {
			u.DeliveredAt = parsed
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
