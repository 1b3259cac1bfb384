package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-notes-workspace/internal/model"
)

type ShareRepository struct {
	pool *pgxpool.Pool
}

func NewShareRepository(pool *pgxpool.Pool) *ShareRepository {
	return &ShareRepository{pool: pool}
}

// Upsert grants access, replacing the permission of an existing grant.
func (r *ShareRepository) Upsert(ctx context.Context, record model.ShareRecord) (model.ShareRecord, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO shares (id, document_id, owner_id, user_id, permission, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (document_id, user_id) DO UPDATE SET permission = EXCLUDED.permission
		 RETURNING id, created_at`,
		record.ID, record.DocumentID, record.OwnerID, record.UserID, record.Permission, record.CreatedAt).
		Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return model.ShareRecord{}, fmt.Errorf("upsert share: %w", err)
	}
	return record, nil
}

// ListIncoming returns documents shared with userID, newest first.
func (r *ShareRepository) ListIncoming(ctx context.Context, userID string) ([]model.SharedDocument, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT d.id, d.name, d.size, d.mime_type, d.updated_at,
		        u.id, u.username, s.permission, s.created_at
		 FROM shares s
		 JOIN documents d ON d.id = s.document_id
		 JOIN users u ON u.id = s.owner_id
		 WHERE s.user_id = $1
		 ORDER BY s.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list incoming shares: %w", err)
	}
	defer rows.Close()

	shared := make([]model.SharedDocument, 0)
	for rows.Next() {
		var sd model.SharedDocument
		if err := rows.Scan(&sd.ID, &sd.Name, &sd.Size, &sd.MimeType, &sd.UpdatedAt,
			&sd.SharedBy.ID, &sd.SharedBy.Username, &sd.Permission, &sd.SharedAt); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shared = append(shared, sd)
	}
	return shared, rows.Err()
}
