// Package submissions keeps the signed blobs this wallet sent and their
// last known outcome.
package submissions

import (
	"context"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

type Repository interface {
	// Create stores a new submission. Storing an existing hash again is a no-op.
	Create(ctx context.Context, s models.Submission) error
	// UpdateOutcome sets status and result code. It returns
	// common.ErrorNotFound for an unknown hash.
	UpdateOutcome(ctx context.Context, hash string, o models.Outcome) error
	Get(ctx context.Context, hash string) (models.Submission, error)
	ListByStatus(ctx context.Context, account string, status models.OutcomeStatus) ([]models.Submission, error)
	List(ctx context.Context, account string, limit int) ([]models.Submission, error)
}
