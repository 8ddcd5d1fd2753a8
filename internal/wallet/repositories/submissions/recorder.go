package submissions

import (
	"context"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

// Recorder adapts a Repository to the submitter's recording hooks.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) RecordSubmitted(ctx context.Context, s models.Submission) error {
	return r.repo.Create(ctx, s)
}

func (r *Recorder) RecordOutcome(ctx context.Context, hash string, o models.Outcome) error {
	return r.repo.UpdateOutcome(ctx, hash, o)
}
