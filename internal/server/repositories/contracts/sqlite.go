// Package contracts stores origin records together with their content
// fingerprints and the local (user-owned) annotations.
package contracts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

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

const selectContract = `
	SELECT c.id, c.detail_json, c.chats_json, c.detail_hash, c.chats_hash,
	       c.source_fetched_at, c.source_updated_at, c.user_updated_at,
	       c.notes, c.deleted_at,
	       (SELECT group_concat(cl.label_id) FROM contract_label cl WHERE cl.contract_id = c.id)
	FROM contracts c`

func (r *SQLiteRepository) GetHashes(ctx context.Context, id int64) (*models.ContractHashes, error) {
	h := &models.ContractHashes{}
	err := r.db.QueryRowContext(ctx,
		`SELECT detail_hash, chats_hash FROM contracts WHERE id = ?`, id).
		Scan(&h.DetailHash, &h.ChatsHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hashes of contract %d: %w", id, err)
	}
	return h, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Contract) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contracts (id, detail_json, chats_json, detail_hash, chats_hash,
		                       source_fetched_at, source_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.DetailJSON), string(c.ChatsJSON), c.DetailHash, c.ChatsHash,
		c.SourceFetchedAt, c.SourceUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert contract %d: %w", c.ID, err)
	}
	return nil
}

// ReplacePayload rewrites only the sync-owned columns of an existing row.
func (r *SQLiteRepository) ReplacePayload(ctx context.Context, c *models.Contract) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contracts
		SET detail_json = ?, chats_json = ?, detail_hash = ?, chats_hash = ?,
		    source_fetched_at = ?, source_updated_at = ?
		WHERE id = ?`,
		string(c.DetailJSON), string(c.ChatsJSON), c.DetailHash, c.ChatsHash,
		c.SourceFetchedAt, c.SourceUpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to replace payload of contract %d: %w", c.ID, err)
	}
	return requireOne(res, c.ID)
}

func (r *SQLiteRepository) TouchFetchedAt(ctx context.Context, id int64, ts int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contracts SET source_fetched_at = ? WHERE id = ?`, ts, id)
	if err != nil {
		return false, fmt.Errorf("failed to touch contract %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to touch contract %d: %w", id, err)
	}
	return n > 0, nil
}

// StaleIDs returns up to limit live contracts fetched before olderThan,
// oldest first.
func (r *SQLiteRepository) StaleIDs(ctx context.Context, olderThan int64, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM contracts
		WHERE (source_fetched_at IS NULL OR source_fetched_at < ?)
		  AND deleted_at IS NULL
		ORDER BY source_fetched_at ASC, id ASC
		LIMIT ?`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select stale contracts: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan stale contract: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stale contracts: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.Contract, error) {
	c, err := scanContract(r.db.QueryRowContext(ctx, selectContract+` WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract %d: %w", id, err)
	}
	return c, nil
}

// ListSince returns contracts changed (by sync or locally) after since.
func (r *SQLiteRepository) ListSince(ctx context.Context, since int64, allowDeleted bool) ([]*models.Contract, error) {
	q := selectContract + ` WHERE (c.source_updated_at > ? OR c.user_updated_at > ?)`
	if !allowDeleted {
		q += ` AND c.deleted_at IS NULL`
	}
	q += ` ORDER BY c.id DESC`

	rows, err := r.db.QueryContext(ctx, q, since, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var result []*models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contracts: %w", err)
	}
	return result, nil
}

// MaxUpdatedAt is the newest sync, local or delete timestamp over all rows.
func (r *SQLiteRepository) MaxUpdatedAt(ctx context.Context) (int64, error) {
	var ts int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(MAX(source_updated_at, user_updated_at, COALESCE(deleted_at, 0))), 0)
		FROM contracts`).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("failed to get max updated_at: %w", err)
	}
	return ts, nil
}

// Count returns the number of live and soft-deleted contracts.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, int64, error) {
	var live, deleted int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(deleted_at IS NULL), 0), COALESCE(SUM(deleted_at IS NOT NULL), 0)
		FROM contracts`).Scan(&live, &deleted)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count contracts: %w", err)
	}
	return live, deleted, nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id int64, ts int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contracts SET deleted_at = ?, user_updated_at = ? WHERE id = ?`, ts, ts, id)
	if err != nil {
		return fmt.Errorf("failed to delete contract %d: %w", id, err)
	}
	return requireOne(res, id)
}

func (r *SQLiteRepository) SetNotes(ctx context.Context, id int64, notes *string, ts int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contracts SET notes = ?, user_updated_at = ? WHERE id = ?`, notes, ts, id)
	if err != nil {
		return fmt.Errorf("failed to set notes of contract %d: %w", id, err)
	}
	return requireOne(res, id)
}

func (r *SQLiteRepository) AddLabel(ctx context.Context, id, labelID int64, ts int64) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO contract_label (contract_id, label_id) VALUES (?, ?)`, id, labelID); err != nil {
		return fmt.Errorf("failed to add label %d to contract %d: %w", labelID, id, err)
	}
	return r.bumpUserUpdatedAt(ctx, id, ts)
}

func (r *SQLiteRepository) RemoveLabel(ctx context.Context, id, labelID int64, ts int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM contract_label WHERE contract_id = ? AND label_id = ?`, id, labelID); err != nil {
		return fmt.Errorf("failed to remove label %d from contract %d: %w", labelID, id, err)
	}
	return r.bumpUserUpdatedAt(ctx, id, ts)
}

func (r *SQLiteRepository) bumpUserUpdatedAt(ctx context.Context, id int64, ts int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contracts SET user_updated_at = ? WHERE id = ?`, ts, id)
	if err != nil {
		return fmt.Errorf("failed to touch contract %d: %w", id, err)
	}
	return requireOne(res, id)
}

func requireOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for contract %d: %w", id, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContract(s scanner) (*models.Contract, error) {
	var (
		c         models.Contract
		detail    string
		chats     string
		notes     sql.NullString
		deletedAt sql.NullInt64
		labels    sql.NullString
	)
	err := s.Scan(&c.ID, &detail, &chats, &c.DetailHash, &c.ChatsHash,
		&c.SourceFetchedAt, &c.SourceUpdatedAt, &c.UserUpdatedAt,
		&notes, &deletedAt, &labels)
	if err != nil {
		return nil, err
	}

	c.DetailJSON = []byte(detail)
	c.ChatsJSON = []byte(chats)
	if notes.Valid {
		c.Notes = &notes.String
	}
	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Int64
	}
	if c.LabelIDs, err = parseIDList(labels.String); err != nil {
		return nil, err
	}
	return &c, nil
}

func parseIDList(s string) ([]int64, error) {
	ids := []int64{}
	if s == "" {
		return ids, nil
	}
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad label id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
