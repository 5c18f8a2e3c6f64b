package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PutImage caches processed image bytes under a normalized image ref.
func PutImage(ctx context.Context, db *sql.DB, ref string, data []byte, mime string, fetchedAt int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO image_cache (ref, data, mime, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (ref) DO UPDATE SET
		     data = excluded.data, mime = excluded.mime, fetched_at = excluded.fetched_at`,
		ref, data, mime, fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("caching image %q: %w", ref, err)
	}
	return nil
}

// GetImage returns cached image bytes and MIME type for a ref, or nil
// data if the ref has not been cached.
func GetImage(ctx context.Context, db *sql.DB, ref string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM image_cache WHERE ref = ?`, ref,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading cached image %q: %w", ref, err)
	}
	return data, mime, nil
}
