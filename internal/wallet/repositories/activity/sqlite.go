package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/dbx"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/shopspring/decimal"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// WithDB returns a copy of the repository bound to db, typically a transaction.
func (r *SQLiteRepository) WithDB(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, owner string, records []models.ActivityRecord) error {
	query := `INSERT INTO activity (owner, hash, tx_type, source, destination, direction,
			drops, value, currency, issuer, counterparty, ledger_index, ledger_time, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, hash) DO UPDATE SET
			ledger_index = excluded.ledger_index,
			ledger_time = excluded.ledger_time,
			result = excluded.result`

	for _, rec := range records {
		a := rec.DeliveredAmount
		_, err := r.db.ExecContext(ctx, query,
			owner, rec.Hash, rec.TxType, rec.Source, rec.Destination, string(rec.Direction),
			a.Drops, a.Value.String(), a.Currency, a.Issuer, rec.Counterparty,
			rec.LedgerIndex, rec.LedgerTime.Unix(), rec.Result)
		if err != nil {
			return fmt.Errorf("failed to save activity %s: %w", rec.Hash, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, owner string, limit int) ([]models.ActivityRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT hash, tx_type, source, destination, direction, drops, value, currency, issuer,
			counterparty, ledger_index, ledger_time, result
		FROM activity
		WHERE owner = ?
		ORDER BY ledger_index DESC, hash
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select activity: %w", err)
	}
	defer rows.Close()

	var result []models.ActivityRecord
	for rows.Next() {
		var (
			rec       models.ActivityRecord
			direction string
			value     string
			ts        int64
		)
		err := rows.Scan(&rec.Hash, &rec.TxType, &rec.Source, &rec.Destination, &direction,
			&rec.DeliveredAmount.Drops, &value, &rec.DeliveredAmount.Currency,
			&rec.DeliveredAmount.Issuer, &rec.Counterparty, &rec.LedgerIndex, &ts, &rec.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if rec.DeliveredAmount.Currency != "" {
			if rec.DeliveredAmount.Value, err = decimal.NewFromString(value); err != nil {
				return nil, fmt.Errorf("failed to parse activity amount: %w", err)
			}
		}
		rec.Direction = models.Direction(direction)
		rec.LedgerTime = time.Unix(ts, 0).UTC()
		rec.Validated = true
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteOwner(ctx context.Context, owner string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM activity WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	return nil
}
