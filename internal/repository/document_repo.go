package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-notes-workspace/internal/model"
)

type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

const documentColumns = `d.id, d.name, d.size, d.folder_id, d.mime_type, d.updated_at,
	d.owner_id, d.storage_key, COALESCE(d.thumbnail_key, '')`

func scanDocument(row pgx.Row) (model.StoredDocument, error) {
	var d model.StoredDocument
	err := row.Scan(&d.ID, &d.Name, &d.Size, &d.FolderID, &d.MimeType, &d.UpdatedAt,
		&d.OwnerID, &d.StorageKey, &d.ThumbnailKey)
	return d, err
}

func (r *DocumentRepository) Create(ctx context.Context, d model.StoredDocument) error {
	var thumb *string
	if d.ThumbnailKey != "" {
		thumb = &d.ThumbnailKey
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (id, owner_id, folder_id, name, size, mime_type, storage_key, thumbnail_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		d.ID, d.OwnerID, d.FolderID, d.Name, d.Size, d.MimeType, d.StorageKey, thumb, d.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return model.ErrFolderNotFound
	}
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetAccessible returns a document the user owns or that was shared with them.
func (r *DocumentRepository) GetAccessible(ctx context.Context, userID string, id string) (model.StoredDocument, error) {
	d, err := scanDocument(r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents d
		 WHERE d.id = $1 AND (d.owner_id = $2
		       OR EXISTS (SELECT 1 FROM shares s WHERE s.document_id = d.id AND s.user_id = $2))`, id, userID))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.StoredDocument{}, model.ErrDocumentNotFound
	}
	if err != nil {
		return model.StoredDocument{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (r *DocumentRepository) GetOwned(ctx context.Context, ownerID string, id string) (model.StoredDocument, error) {
	d, err := scanDocument(r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents d WHERE d.id = $1 AND d.owner_id = $2`, id, ownerID))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.StoredDocument{}, model.ErrDocumentNotFound
	}
	if err != nil {
		return model.StoredDocument{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (r *DocumentRepository) ListByFolder(ctx context.Context, ownerID string, folderID *string) ([]model.StoredDocument, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents d
		 WHERE d.owner_id = $1 AND d.folder_id IS NOT DISTINCT FROM $2
		 ORDER BY lower(d.name)`, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]model.StoredDocument, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) Delete(ctx context.Context, ownerID string, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) UsedBytes(ctx context.Context, ownerID string) (int64, error) {
	var used int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(size), 0)::bigint FROM documents WHERE owner_id = $1`, ownerID).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("sum document sizes: %w", err)
	}
	return used, nil
}
