package services

import (
	"context"

	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

// Notifier receives wallet events meant for the user.
type Notifier interface {
	NotifyIncoming(ctx context.Context, owner string, ev models.NewIncomingEvent)
	NotifySent(ctx context.Context, ev models.SentEvent)
}

// LogNotifier writes events to the log.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("module", "notifier")}
}

func (n *LogNotifier) NotifyIncoming(ctx context.Context, owner string, ev models.NewIncomingEvent) {
	n.log.Info(ctx, "incoming transfer", "account", owner, "hash", ev.Hash, "amount", ev.Amount.String(), "from", ev.From)
}

func (n *LogNotifier) NotifySent(ctx context.Context, ev models.SentEvent) {
	n.log.Info(ctx, "transaction finished", "kind", string(ev.Intent.EffectiveKind()), "destination", ev.Intent.Destination, "outcome", ev.Outcome.String())
}

// FuncNotifier adapts plain functions to Notifier. Nil fields are skipped.
type FuncNotifier struct {
	Incoming func(ctx context.Context, owner string, ev models.NewIncomingEvent)
	Sent     func(ctx context.Context, ev models.SentEvent)
}

func (f FuncNotifier) NotifyIncoming(ctx context.Context, owner string, ev models.NewIncomingEvent) {
	if f.Incoming != nil {
		f.Incoming(ctx, owner, ev)
	}
}

func (f FuncNotifier) NotifySent(ctx context.Context, ev models.SentEvent) {
	if f.Sent != nil {
		f.Sent(ctx, ev)
	}
}

// MultiNotifier fans events out to every member.
type MultiNotifier []Notifier

func (m MultiNotifier) NotifyIncoming(ctx context.Context, owner string, ev models.NewIncomingEvent) {
	for _, n := range m {
		n.NotifyIncoming(ctx, owner, ev)
	}
}

func (m MultiNotifier) NotifySent(ctx context.Context, ev models.SentEvent) {
	for _, n := range m {
		n.NotifySent(ctx, ev)
	}
}
