// Package labels stores the user-defined label catalogue.
package labels

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/casely/internal/common"
	"github.com/dmitrijs2005/casely/internal/dbx"
	"github.com/dmitrijs2005/casely/internal/server/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ListSince returns labels (deleted ones included) updated after since.
func (r *SQLiteRepository) ListSince(ctx context.Context, since int64) ([]*models.Label, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color, order_rank, updated_at, deleted_at
		FROM labels WHERE updated_at > ?
		ORDER BY order_rank ASC, id ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer rows.Close()

	var result []*models.Label
	for rows.Next() {
		var (
			l         models.Label
			color     sql.NullString
			deletedAt sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.Name, &color, &l.OrderRank, &l.UpdatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		if color.Valid {
			l.Color = &color.String
		}
		if deletedAt.Valid {
			l.DeletedAt = &deletedAt.Int64
		}
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate labels: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) MaxUpdatedAt(ctx context.Context) (int64, error) {
	var ts int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(updated_at), 0) FROM labels`).Scan(&ts); err != nil {
		return 0, fmt.Errorf("failed to get labels max updated_at: %w", err)
	}
	return ts, nil
}

// Exists reports whether a live label with id exists.
func (r *SQLiteRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM labels WHERE id = ? AND deleted_at IS NULL`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check label %d: %w", id, err)
	}
	return n > 0, nil
}

// Upsert creates or redefines a label and revives it if it was deleted.
func (r *SQLiteRepository) Upsert(ctx context.Context, l *models.Label) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO labels (id, name, color, order_rank, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, NULL)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			order_rank = excluded.order_rank,
			updated_at = excluded.updated_at,
			deleted_at = NULL`,
		l.ID, l.Name, l.Color, l.OrderRank, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert label %d: %w", l.ID, err)
	}
	return nil
}

// InsertIfAbsent adds l unless a label with the same id already exists.
func (r *SQLiteRepository) InsertIfAbsent(ctx context.Context, l *models.Label) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO labels (id, name, color, order_rank, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		l.ID, l.Name, l.Color, l.OrderRank, l.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert label %d: %w", l.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert label %d: %w", l.ID, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id int64, ts int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE labels SET deleted_at = ?, updated_at = ? WHERE id = ?`, ts, ts, id)
	if err != nil {
		return fmt.Errorf("failed to delete label %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete label %d: %w", id, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
