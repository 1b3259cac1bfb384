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

const foreignKeyViolation = "23503"

type FolderRepository struct {
	pool *pgxpool.Pool
}

func NewFolderRepository(pool *pgxpool.Pool) *FolderRepository {
	return &FolderRepository{pool: pool}
}

const folderColumns = `f.id, f.name, f.parent_id, f.updated_at,
	(SELECT COUNT(*) FROM folders c WHERE c.parent_id = f.id)
	+ (SELECT COUNT(*) FROM documents d WHERE d.folder_id = f.id)`

func scanFolder(row pgx.Row) (model.Folder, error) {
	var f model.Folder
	err := row.Scan(&f.ID, &f.Name, &f.ParentID, &f.UpdatedAt, &f.ItemCount)
	return f, err
}

func (r *FolderRepository) Create(ctx context.Context, ownerID string, f model.Folder) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO folders (id, owner_id, parent_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		f.ID, ownerID, f.ParentID, f.Name, f.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return model.ErrFolderConflict
		case foreignKeyViolation:
			return model.ErrFolderNotFound
		}
	}
	if err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

func (r *FolderRepository) Get(ctx context.Context, ownerID string, id string) (model.Folder, error) {
	f, err := scanFolder(r.pool.QueryRow(ctx,
		`SELECT `+folderColumns+` FROM folders f WHERE f.id = $1 AND f.owner_id = $2`, id, ownerID))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Folder{}, model.ErrFolderNotFound
	}
	if err != nil {
		return model.Folder{}, fmt.Errorf("get folder: %w", err)
	}
	return f, nil
}

// ListChildren returns the folders directly under parentID; nil is the root.
func (r *FolderRepository) ListChildren(ctx context.Context, ownerID string, parentID *string) ([]model.Folder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+folderColumns+` FROM folders f
		 WHERE f.owner_id = $1 AND f.parent_id IS NOT DISTINCT FROM $2
		 ORDER BY lower(f.name)`, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := make([]model.Folder, 0)
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// SubtreeBlobKeys lists the document and thumbnail keys of everything below
// id, so blobs can be removed once the rows cascade away.
func (r *FolderRepository) SubtreeBlobKeys(ctx context.Context, ownerID string, id string) ([]string, []string, error) {
	rows, err := r.pool.Query(ctx,
		`WITH RECURSIVE tree AS (
		     SELECT id FROM folders WHERE id = $1 AND owner_id = $2
		     UNION ALL
		     SELECT f.id FROM folders f JOIN tree t ON f.parent_id = t.id
		 )
		 SELECT d.storage_key, COALESCE(d.thumbnail_key, '')
		 FROM documents d JOIN tree t ON d.folder_id = t.id`, id, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("list subtree blobs: %w", err)
	}
	defer rows.Close()

	var documents, thumbnails []string
	for rows.Next() {
		var storageKey, thumbKey string
		if err := rows.Scan(&storageKey, &thumbKey); err != nil {
			return nil, nil, fmt.Errorf("scan blob key: %w", err)
		}
		documents = append(documents, storageKey)
		if thumbKey != "" {
			thumbnails = append(thumbnails, thumbKey)
		}
	}
	return documents, thumbnails, rows.Err()
}

func (r *FolderRepository) Delete(ctx context.Context, ownerID string, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM folders WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrFolderNotFound
	}
	return nil
}
