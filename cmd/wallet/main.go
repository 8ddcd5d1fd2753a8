package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/xrpkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/backup"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/cli"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/config"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/keys"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/ledger"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/repositories/submissions"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/services"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/storage"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/vault"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := logging.New(cfg.LogBackend, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer db.Close()
	repos := storage.NewRepositories(db)

	console := cli.NewConsole(os.Stdout)
	notifier := services.MultiNotifier{
		services.NewLogNotifier(logger),
		services.FuncNotifier{Incoming: console.Incoming},
	}

	store := vault.NewStore(cfg.AutoLock, logger)
	defer store.Close()
	store.OnLock(func() {
		fmt.Fprintln(console, "\nWallet locked.")
	})

	signer := keys.Secp256k1{}
	policy := services.PollPolicy{Interval: cfg.PollInterval, MaxAttempts: cfg.PollAttempts}

	deps := services.WalletDeps{
		Store:        store,
		Dial:         ledger.NewDialer(cfg.NodeURL, logger),
		Signer:       signer,
		Builder:      services.NewTxBuilder(cfg.ExpiryMargin, logger),
		Submitter:    services.NewTxSubmitter(signer, policy, submissions.NewRecorder(repos.Submissions), notifier, logger),
		Notifier:     notifier,
		Settings:     repos.Settings,
		Submissions:  repos.Submissions,
		Activity:     repos.Activity,
		WalletsDir:   cfg.WalletsDir,
		HistoryLimit: cfg.TxHistoryLimit,
		Log:          logger,
	}

	if cfg.S3Bucket != "" {
		up, err := backup.NewS3Uploader(ctx, backup.Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Prefix:       "wallets",
		}, logger)
		if err != nil {
			log.Fatalf("error configuring backup: %v", err)
		}
		deps.Uploader = up
	}

	refresh := cfg.RefreshInterval
	if !cfg.AutoRefresh {
		refresh = 0
	}

	app := cli.NewApp(services.NewWalletService(deps), os.Stdin, console, refresh, logger)
	app.Run(ctx)
}
