package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/common"
	"github.com/dmitrijs2005/xrpkeeper/internal/dbx"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

const columns = `hash, account, sequence, last_valid_ledger, blob, status, result_code, created_at, updated_at`

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// WithDB returns a copy of the repository bound to db, typically a transaction.
func (r *SQLiteRepository) WithDB(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: r.now}
}

func (r *SQLiteRepository) Create(ctx context.Context, s models.Submission) error {
	ts := r.now().UnixMilli()
	status := s.Status
	if status == "" {
		status = models.StatusSubmitted
	}

	query := `INSERT INTO submissions (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		s.Hash, s.Account, s.Sequence, s.LastValidLedger, s.Blob, string(status), s.ResultCode, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateOutcome(ctx context.Context, hash string, o models.Outcome) error {
	query := `UPDATE submissions SET status = ?, result_code = ?, updated_at = ? WHERE hash = ?`

	res, err := r.db.ExecContext(ctx, query, string(o.Status), o.ResultCode, r.now().UnixMilli(), hash)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("submission %s: %w", hash, common.ErrorNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, hash string) (models.Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM submissions WHERE hash = ?`, hash)

	s, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Submission{}, fmt.Errorf("submission %s: %w", hash, common.ErrorNotFound)
	}
	if err != nil {
		return models.Submission{}, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListByStatus(ctx context.Context, account string, status models.OutcomeStatus) ([]models.Submission, error) {
	query := `SELECT ` + columns + ` FROM submissions
		WHERE account = ? AND status = ?
		ORDER BY sequence`

	return r.list(ctx, query, account, string(status))
}

func (r *SQLiteRepository) List(ctx context.Context, account string, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + columns + ` FROM submissions
		WHERE account = ?
		ORDER BY sequence DESC
		LIMIT ?`

	return r.list(ctx, query, account, limit)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select submissions: %w", err)
	}
	defer rows.Close()

	var result []models.Submission
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (models.Submission, error) {
	var (
		s                models.Submission
		status           string
		created, updated int64
	)
	err := sc.Scan(&s.Hash, &s.Account, &s.Sequence, &s.LastValidLedger, &s.Blob, &status, &s.ResultCode, &created, &updated)
	if err != nil {
		return models.Submission{}, err
	}
	s.Status = models.OutcomeStatus(status)
	s.CreatedAt = time.UnixMilli(created)
	s.UpdatedAt = time.UnixMilli(updated)
	return s, nil
}
