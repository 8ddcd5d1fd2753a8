// Package activity caches reconciled account history for the history view.
package activity

import (
	"context"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

type Repository interface {
	// Save upserts records for owner, keyed by hash.
	Save(ctx context.Context, owner string, records []models.ActivityRecord) error
	// List returns the newest records of owner first.
	List(ctx context.Context, owner string, limit int) ([]models.ActivityRecord, error)
	DeleteOwner(ctx context.Context, owner string) error
}
