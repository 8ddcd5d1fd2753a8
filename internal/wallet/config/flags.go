package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/flagx"
)

func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-n", "-w", "-d", "-l"})

	fs := flag.NewFlagSet("wallet", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.NodeURL, "n", cfg.NodeURL, "ledger node websocket URL")
	fs.StringVar(&cfg.WalletsDir, "w", cfg.WalletsDir, "wallets directory")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	autoLock := fs.Int("l", int(cfg.AutoLock.Minutes()), "auto-lock timeout in minutes, 0 disables")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "l" {
			cfg.AutoLock = time.Duration(*autoLock) * time.Minute
		}
	})
	return nil
}
