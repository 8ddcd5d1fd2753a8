package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/services"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/vault"
)

// Console serializes writes from the shell and from background events.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

// Incoming prints a newly observed incoming transfer. It fits
// services.FuncNotifier.
func (c *Console) Incoming(_ context.Context, owner string, ev models.NewIncomingEvent) {
	fmt.Fprintf(c, "\nIncoming: %s from %s to %s (%s)\n", ev.Amount, ev.From, owner, ev.Hash)
}

type App struct {
	svc     services.WalletService
	reader  *bufio.Reader
	out     io.Writer
	log     logging.Logger
	refresh time.Duration
}

// NewApp builds a shell over svc. A positive refresh starts the background
// refresh loop when Run is called.
func NewApp(svc services.WalletService, in io.Reader, out io.Writer, refresh time.Duration, log logging.Logger) *App {
	return &App{
		svc:     svc,
		reader:  bufio.NewReader(in),
		out:     out,
		log:     log.With("module", "cli"),
		refresh: refresh,
	}
}

// Run blocks until the user exits, input ends or ctx is done. The open
// wallet is closed on return.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "XRP wallet (type 'help' for commands)")
	if wallets, err := a.svc.Wallets(ctx); err == nil && len(wallets) > 0 {
		fmt.Fprintln(a.out, "Known wallets:")
		for _, w := range wallets {
			fmt.Fprintln(a.out, "  "+w)
		}
	}

	if a.refresh > 0 {
		go a.svc.Run(ctx, a.refresh)
	}

	runREPL(ctx, a)
	a.svc.CloseWallet(ctx)
	a.log.Debug(ctx, "shell stopped")
}

func (a *App) status() string {
	st := a.svc.State()
	if st == vault.StateNoWallet {
		return st.String()
	}
	addr, err := a.svc.Address()
	if err != nil {
		return st.String()
	}
	if st == vault.StateLocked {
		return shortAddress(addr) + " locked"
	}
	return shortAddress(addr)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
