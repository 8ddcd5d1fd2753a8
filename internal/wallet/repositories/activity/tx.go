package activity

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/xrpkeeper/internal/dbx"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

// TxRepository saves each batch in one transaction, so a refresh never
// leaves half of its history cached.
type TxRepository struct {
	*SQLiteRepository
	db *sql.DB
}

func NewTxRepository(db *sql.DB) *TxRepository {
	return &TxRepository{SQLiteRepository: NewSQLiteRepository(db), db: db}
}

func (r *TxRepository) Save(ctx context.Context, owner string, records []models.ActivityRecord) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return r.WithDB(tx).Save(ctx, owner, records)
	})
}
