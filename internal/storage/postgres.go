package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rutasonora/internal/models"
)

// queryTimeout is applied to every database query.
const queryTimeout = 5 * time.Second

// ErrNotFound is returned when no upload record matches.
var ErrNotFound = errors.New("storage: upload not found")

const uploadsSchema = `
CREATE TABLE IF NOT EXISTS uploads (
	id                TEXT PRIMARY KEY,
	owner_id          TEXT NOT NULL,
	image_url         TEXT NOT NULL,
	file_path         TEXT NOT NULL,
	title             TEXT NOT NULL DEFAULT '',
	text              TEXT NOT NULL DEFAULT '',
	created_at_ms     BIGINT NOT NULL DEFAULT 0,
	server_created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS uploads_owner_created_idx ON uploads (owner_id, created_at_ms DESC);
`

// UploadStore is the pgx-backed document store for upload records.
type UploadStore struct {
	pool *pgxpool.Pool
}

func NewUploadStore(pool *pgxpool.Pool) *UploadStore {
	return &UploadStore{pool: pool}
}

// Migrate creates the uploads table when missing.
func (s *UploadStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, uploadsSchema); err != nil {
		return fmt.Errorf("storage: migrate uploads: %w", err)
	}
	return nil
}

// Create inserts u with a fresh ID and returns it as stored.
func (s *UploadStore) Create(ctx context.Context, u models.Upload) (models.Upload, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u.ID = uuid.NewString()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO uploads (id, owner_id, image_url, file_path, title, text, created_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING server_created_at`,
		u.ID, u.OwnerID, u.ImageURL, u.FilePath, u.Title, u.Text, u.CreatedAtMs,
	).Scan(&u.ServerCreatedAt)
	if err != nil {
		return models.Upload{}, fmt.Errorf("storage: Create: %w", err)
	}
	return u, nil
}

// Get returns one record owned by ownerID.
func (s *UploadStore) Get(ctx context.Context, ownerID, id string) (models.Upload, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, image_url, file_path, title, text, created_at_ms, server_created_at
		FROM uploads WHERE id = $1 AND owner_id = $2`, id, ownerID)
	u, err := scanUpload(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Upload{}, ErrNotFound
	}
	if err != nil {
		return models.Upload{}, fmt.Errorf("storage: Get: %w", err)
	}
	return u, nil
}

// Delete removes one record owned by ownerID.
func (s *UploadStore) Delete(ctx context.Context, ownerID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM uploads WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("storage: Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOwner returns every record of ownerID, newest first.
func (s *UploadStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Upload, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, image_url, file_path, title, text, created_at_ms, server_created_at
		FROM uploads WHERE owner_id = $1
		ORDER BY created_at_ms DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("storage: ListByOwner: %w", err)
	}
	defer rows.Close()

	list := make([]models.Upload, 0)
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: ListByOwner: scan: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: ListByOwner: %w", err)
	}
	models.SortUploads(list)
	return list, nil
}

func scanUpload(row pgx.Row) (models.Upload, error) {
	var u models.Upload
	err := row.Scan(&u.ID, &u.OwnerID, &u.ImageURL, &u.FilePath, &u.Title, &u.Text, &u.CreatedAtMs, &u.ServerCreatedAt)
	return u, err
}
