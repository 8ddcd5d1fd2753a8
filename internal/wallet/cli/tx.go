package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

func (a *App) send(ctx context.Context, args []string) error {
	intent, err := parseSend(args)
	if err != nil {
		return err
	}
	return a.confirmAndSend(ctx, intent)
}

func (a *App) trust(ctx context.Context, args []string) error {
	intent, err := parseTrust(args)
	if err != nil {
		return err
	}
	return a.confirmAndSend(ctx, intent)
}

func (a *App) confirmAndSend(ctx context.Context, intent models.TransactionIntent) error {
	ok, err := GetYesNo(a.reader, intent.String()+"?", a.out)
	if err != nil || !ok {
		return err
	}

	a.println("Submitting...")
	out, err := a.svc.Send(ctx, intent)
	if err != nil {
		return err
	}
	a.printOutcome(out)
	return nil
}

func (a *App) printOutcome(o models.Outcome) {
	switch o.Status {
	case models.StatusValidated:
		a.printf("Validated: %s (%s)\n", o.Hash, o.ResultCode)
	case models.StatusRejected:
		a.printf("Rejected: %s (%s)\n", o.Hash, o.ResultCode)
	default:
		a.printf("Not validated yet: %s\n", o.Hash)
		a.println("Do not send it again. Use 'recheck <hash>' or 'resubmit <hash>' later.")
	}
}

func (a *App) pending(ctx context.Context, _ []string) error {
	list, err := a.svc.Pending(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.println("Nothing pending.")
		return nil
	}
	for _, s := range list {
		a.printf("  %s  seq %d  valid until ledger %d  %s  %s\n",
			s.Hash, s.Sequence, s.LastValidLedger, s.Status, s.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func (a *App) recheck(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	out, err := a.svc.Recheck(ctx, args[0])
	if err != nil {
		return err
	}
	a.printOutcome(out)
	return nil
}

func (a *App) resubmit(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	out, err := a.svc.Resubmit(ctx, args[0])
	if err != nil {
		return err
	}
	a.printOutcome(out)
	return nil
}
