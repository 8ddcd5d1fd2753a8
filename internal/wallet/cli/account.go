package cli

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

func (a *App) balance(ctx context.Context, _ []string) error {
	st, err := a.svc.Refresh(ctx)
	if err != nil {
		return err
	}

	a.printf("Address:  %s\n", st.Address)
	a.printf("Balance:  %s %s\n", models.FormatDrops(st.Balance), models.NativeCurrency)
	if !st.Funded {
		a.printf("Not activated: fund it with at least %s %s.\n", models.FormatDrops(models.ReserveDrops), models.NativeCurrency)
		return nil
	}
	a.printf("Sequence: %d\n", st.Sequence)
	a.printActivity(st.History)
	return nil
}

func (a *App) history(ctx context.Context, args []string) error {
	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return errUsage
		}
		limit = n
	}

	records, err := a.svc.History(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.println("No history. Run 'balance' to fetch it.")
		return nil
	}
	a.printActivity(records)
	return nil
}

func (a *App) printActivity(records []models.ActivityRecord) {
	for _, r := range records {
		when := ""
		if !r.LedgerTime.IsZero() {
			when = r.LedgerTime.Local().Format(time.DateTime)
		}
		a.printf("  %-19s %-8s %-10s %-24s %s %s\n", when, r.Direction, r.TxType, r.DeliveredAmount, r.Counterparty, r.Hash)
	}
}

func (a *App) lines(ctx context.Context, _ []string) error {
	lines, err := a.svc.TrustLines(ctx)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		a.println("No trust lines.")
		return nil
	}
	for _, l := range lines {
		var flags []string
		if l.NoRipple {
			flags = append(flags, "noripple")
		}
		if l.Freeze {
			flags = append(flags, "frozen")
		}
		if l.FreezePeer {
			flags = append(flags, "frozen by peer")
		}
		a.printf("  %s %s balance %s limit %s %s\n", l.Currency, l.Peer, l.Balance, l.Limit, strings.Join(flags, ","))
	}
	return nil
}

func (a *App) signMessage(_ context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	sig, pub, err := a.svc.SignMessage([]byte(strings.Join(args, " ")))
	if err != nil {
		return err
	}
	a.printf("Public key: %s\nSignature:  %s\n", pub, sig)
	return nil
}

func (a *App) verifyMessage(_ context.Context, args []string) error {
	if len(args) < 3 {
		return errUsage
	}
	ok, err := a.svc.VerifyMessage([]byte(strings.Join(args[2:], " ")), args[1], args[0])
	if err != nil {
		return err
	}
	if ok {
		a.println("Signature is valid.")
	} else {
		a.println("Signature is NOT valid.")
	}
	return nil
}

func (a *App) backup(ctx context.Context, _ []string) error {
	key, err := a.svc.Backup(ctx)
	if err != nil {
		return err
	}
	a.printf("Uploaded %s\n", key)
	return nil
}
