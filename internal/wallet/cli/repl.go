package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/services"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/vault"
)

var errUsage = errors.New("usage")

type command struct {
	usage string
	help  string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":      {usage: "help", help: "show commands", run: (*App).help},
		"wallets":   {usage: "wallets", help: "list wallet files", run: (*App).wallets},
		"create":    {usage: "create <name> [mnemonic]", help: "create a new wallet", run: (*App).create},
		"import":    {usage: "import <name>", help: "import a seed or mnemonic", run: (*App).importWallet},
		"open":      {usage: "open <name|path>", help: "open a wallet file", run: (*App).open},
		"close":     {usage: "close", help: "close the wallet", run: (*App).close},
		"lock":      {usage: "lock", help: "lock the wallet", run: (*App).lock},
		"unlock":    {usage: "unlock", help: "unlock the wallet", run: (*App).unlock},
		"passwd":    {usage: "passwd", help: "change the wallet password", run: (*App).passwd},
		"seed":      {usage: "seed", help: "show the secret seed", run: (*App).seed},
		"balance":   {usage: "balance", help: "refresh balance and history", run: (*App).balance},
		"history":   {usage: "history [n]", help: "show recent transactions", run: (*App).history},
		"send":      {usage: "send <destination> <amount> [<currency> <issuer>] [tag=N] [memo=text]", help: "send a payment", run: (*App).send},
		"trust":     {usage: "trust <currency> <issuer> <limit> [noripple|clearnoripple|freeze|clearfreeze|auth] [qin=N] [qout=N]", help: "set a trust line", run: (*App).trust},
		"lines":     {usage: "lines", help: "list trust lines", run: (*App).lines},
		"signmsg":   {usage: "signmsg <text>", help: "sign a message", run: (*App).signMessage},
		"verifymsg": {usage: "verifymsg <public key> <signature> <text>", help: "verify a signed message", run: (*App).verifyMessage},
		"pending":   {usage: "pending", help: "list undecided submissions", run: (*App).pending},
		"recheck":   {usage: "recheck <hash>", help: "ask the network about a submission", run: (*App).recheck},
		"resubmit":  {usage: "resubmit <hash>", help: "send a stored submission again", run: (*App).resubmit},
		"backup":    {usage: "backup", help: "upload the encrypted wallet file", run: (*App).backup},
		"exit":      {usage: "exit", help: "leave the program"},
	}
}

// runREPL reads one command per line until EOF, exit or quit. Command
// errors are printed and never stop the loop.
func runREPL(ctx context.Context, a *App) {
	for {
		if ctx.Err() != nil {
			return
		}
		a.printf("xrp (%s)> ", a.status())

		line, err := a.reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			a.println()
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		if name == "exit" || name == "quit" {
			a.println("Bye!")
			return
		}

		cmd, ok := commands[name]
		if !ok {
			a.println("Unknown command:", name)
			continue
		}

		if a.svc.State() == vault.StateUnlocked {
			a.svc.Touch()
		}

		if err := cmd.run(a, ctx, args); err != nil {
			if errors.Is(err, errUsage) {
				a.println("Usage:", cmd.usage)
				continue
			}
			a.println("Error:", describe(err))
		}
	}
}

func (a *App) help(context.Context, []string) error {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		a.printf("  %-10s %s\n", n, commands[n].help)
	}
	return nil
}

// describe turns errors into hints the user can act on.
func describe(err error) string {
	var perr *services.PrepareError
	var serr *services.SubmitError
	switch {
	case errors.Is(err, vault.ErrLocked):
		return "wallet is locked, use 'unlock'"
	case errors.Is(err, vault.ErrNoWallet):
		return "no wallet is open, use 'open', 'create' or 'import'"
	case errors.Is(err, vault.ErrWrongPassword):
		return "wrong password"
	case errors.Is(err, vault.ErrDecryption):
		return "cannot open wallet: wrong password or damaged file"
	case errors.Is(err, services.ErrBusy):
		return "another transaction is still in flight"
	case errors.Is(err, services.ErrExpired):
		return "transaction expired and can no longer be included, it was not sent"
	case errors.Is(err, services.ErrBackupDisabled):
		return "backup is not configured"
	case errors.As(err, &perr):
		return fmt.Sprintf("not sent (%s): %s", perr.Step, perr.Reason)
	case errors.As(err, &serr):
		return fmt.Sprintf("rejected by the network: %s %s", serr.EngineResult, serr.Message)
	}
	return err.Error()
}
