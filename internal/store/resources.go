package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"poolpack/internal/catalog"
	"poolpack/internal/services"
)

// Resolve returns the catalog entry for id.
func (s *Store) Resolve(ctx context.Context, id string) (catalog.Resource, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, artist, group_key, url FROM resources WHERE id = ?", strings.TrimSpace(id))
	var r catalog.Resource
	if err := row.Scan(&r.ID, &r.Title, &r.Artist, &r.GroupKey, &r.URL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Resource{}, services.Wrap(catalog.ErrNotFound, "store", "resolve", "unknown resource "+id, nil)
		}
		return catalog.Resource{}, fmt.Errorf("resolve resource %s: %w", id, err)
	}
	return r, nil
}

// UpsertResource inserts or replaces a catalog entry.
func (s *Store) UpsertResource(ctx context.Context, r catalog.Resource) error {
	r.ID = strings.TrimSpace(r.ID)
	r.URL = strings.TrimSpace(r.URL)
	if r.ID == "" {
		return services.Wrap(services.ErrValidation, "store", "upsert resource", "id is required", nil)
	}
	if r.URL == "" {
		return services.Wrap(services.ErrValidation, "store", "upsert resource", "url is required", nil)
	}
	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resources (id, title, artist, group_key, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			group_key = excluded.group_key,
			url = excluded.url,
			updated_at = excluded.updated_at`,
		r.ID, r.Title, r.Artist, r.GroupKey, r.URL, now, now)
	if err != nil {
		return fmt.Errorf("upsert resource %s: %w", r.ID, err)
	}
	return nil
}

// DeleteResource removes a catalog entry and reports whether it existed.
func (s *Store) DeleteResource(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM resources WHERE id = ?", strings.TrimSpace(id))
	if err != nil {
		return false, fmt.Errorf("delete resource %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListResources returns catalog entries ordered by group and title.
func (s *Store) ListResources(ctx context.Context) ([]catalog.Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, artist, group_key, url FROM resources ORDER BY group_key, title, id")
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []catalog.Resource
	for rows.Next() {
		var r catalog.Resource
		if err := rows.Scan(&r.ID, &r.Title, &r.Artist, &r.GroupKey, &r.URL); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
