package services

import (
	"sync"

	mapset "github.com/deckarep/golang-set"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

// ActivityTracker detects new incoming transfers in fetched history. Each
// hash is reported at most once while the same owner stays loaded.
type ActivityTracker struct {
	mu     sync.Mutex
	owner  string
	seen   mapset.Set
	synced bool
}

func NewActivityTracker() *ActivityTracker {
	return &ActivityTracker{seen: mapset.NewThreadUnsafeSet()}
}

// Reconcile classifies records relative to owner and returns the incoming
// ones not seen before. The first pass for an owner only fills the seen
// set. A different owner resets the tracker.
func (t *ActivityTracker) Reconcile(owner string, records []models.ActivityRecord) []models.NewIncomingEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	if owner != t.owner {
		t.resetLocked()
		t.owner = owner
	}

	var events []models.NewIncomingEvent
	for _, r := range records {
		if r.Hash == "" {
			continue
		}
		isNew := t.seen.Add(r.Hash)
		if !isNew || !t.synced {
			continue
		}
		if models.Classify(owner, r.Source, r.Destination) != models.DirectionIncoming {
			continue
		}
		events = append(events, models.NewIncomingEvent{Hash: r.Hash, Amount: r.DeliveredAmount, From: r.Source})
	}
	t.synced = true

	return events
}

// Reset forgets every seen hash. The next Reconcile is an initial sync.
func (t *ActivityTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	t.owner = ""
}

// Seen reports whether hash was already observed.
func (t *ActivityTracker) Seen(hash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seen.Contains(hash)
}

func (t *ActivityTracker) resetLocked() {
	t.seen.Clear()
	t.synced = false
}
