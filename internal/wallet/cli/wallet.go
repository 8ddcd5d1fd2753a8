package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/xrpkeeper/internal/common"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/vault"
)

func (a *App) wallets(ctx context.Context, _ []string) error {
	list, err := a.svc.Wallets(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.println("No wallets yet. Use 'create' or 'import'.")
		return nil
	}
	for _, w := range list {
		a.println("  " + w)
	}
	return nil
}

func (a *App) create(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errUsage
	}
	withMnemonic := len(args) == 2
	if withMnemonic && args[1] != "mnemonic" {
		return errUsage
	}

	pw, err := GetNewPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	v, err := a.svc.CreateWallet(ctx, args[0], pw, withMnemonic)
	if err != nil {
		return err
	}

	a.printf("Wallet created: %s\n", v.Address)
	a.println("Write the secret below down and keep it offline. It is not shown again.")
	if v.Mnemonic != "" {
		a.printf("  Mnemonic: %s\n", v.Mnemonic)
	}
	a.printf("  Seed:     %s\n", v.Seed)
	a.println("The account becomes active once it holds at least 10 XRP.")
	return nil
}

func (a *App) importWallet(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	secret, err := GetPassword(a.out, "Seed or mnemonic")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	pw, err := GetNewPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	addr, err := a.svc.ImportWallet(ctx, args[0], string(secret), pw)
	if err != nil {
		return err
	}
	a.printf("Wallet imported: %s\n", addr)
	return nil
}

func (a *App) open(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	pw, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	addr, err := a.svc.OpenWallet(ctx, strings.Join(args, " "), pw)
	if err != nil {
		return err
	}
	a.printf("Opened %s\n", addr)
	return nil
}

func (a *App) close(ctx context.Context, _ []string) error {
	if a.svc.State() == vault.StateNoWallet {
		return vault.ErrNoWallet
	}
	a.svc.CloseWallet(ctx)
	a.println("Wallet closed.")
	return nil
}

func (a *App) lock(context.Context, []string) error {
	if a.svc.State() == vault.StateNoWallet {
		return vault.ErrNoWallet
	}
	a.svc.Lock()
	a.println("Locked.")
	return nil
}

func (a *App) unlock(context.Context, []string) error {
	if a.svc.State() == vault.StateNoWallet {
		return vault.ErrNoWallet
	}

	pw, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if !a.svc.Unlock(pw) {
		return vault.ErrWrongPassword
	}
	a.println("Unlocked.")
	return nil
}

func (a *App) passwd(ctx context.Context, _ []string) error {
	if a.svc.State() == vault.StateNoWallet {
		return vault.ErrNoWallet
	}

	old, err := GetPassword(a.out, "Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(old)

	pw, err := GetNewPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if err := a.svc.ChangePassword(ctx, old, pw); err != nil {
		return err
	}
	a.println("Password changed.")
	return nil
}

func (a *App) seed(context.Context, []string) error {
	if a.svc.State() == vault.StateNoWallet {
		return vault.ErrNoWallet
	}

	ok, err := GetYesNo(a.reader, "Anyone who sees the seed controls the funds. Show it?", a.out)
	if err != nil || !ok {
		return err
	}

	pw, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	s, err := a.svc.ExportSeed(pw)
	if err != nil {
		return err
	}
	a.printf("Seed: %s\n", s)
	return nil
}
