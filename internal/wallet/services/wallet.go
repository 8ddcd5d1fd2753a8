package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/filex"
	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/keys"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/ledger"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/repositories/activity"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/repositories/settings"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/repositories/submissions"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/vault"
)

const walletExt = ".json"

// expiredResult is the ledger's code for a transaction whose last valid
// ledger has passed.
const expiredResult = "tefMAX_LEDGER"

// WalletService is what the user interface drives.
//
// Secrets never leave it except through ExportSeed and the mnemonic
// returned on creation. Operations that sign require an unlocked session
// and fail with vault.ErrLocked otherwise.
type WalletService interface {
	CreateWallet(ctx context.Context, name string, password []byte, withMnemonic bool) (models.Vault, error)
	ImportWallet(ctx context.Context, name, secret string, password []byte) (string, error)
	OpenWallet(ctx context.Context, nameOrPath string, password []byte) (string, error)
	CloseWallet(ctx context.Context)
	Wallets(ctx context.Context) ([]string, error)

	Lock()
	Unlock(password []byte) bool
	ChangePassword(ctx context.Context, old, newPassword []byte) error
	ExportSeed(password []byte) (string, error)
	Touch()
	State() vault.State
	Address() (string, error)

	Send(ctx context.Context, intent models.TransactionIntent) (models.Outcome, error)
	Refresh(ctx context.Context) (models.AccountState, error)
	History(ctx context.Context, limit int) ([]models.ActivityRecord, error)
	TrustLines(ctx context.Context) ([]models.TrustLine, error)

	SignMessage(msg []byte) (signature, publicKey string, err error)
	VerifyMessage(msg []byte, signature, publicKey string) (bool, error)

	Pending(ctx context.Context) ([]models.Submission, error)
	Recheck(ctx context.Context, hash string) (models.Outcome, error)
	Resubmit(ctx context.Context, hash string) (models.Outcome, error)

	Backup(ctx context.Context) (string, error)

	// Run refreshes the unlocked wallet every interval until ctx ends.
	Run(ctx context.Context, interval time.Duration)
}

// Uploader copies the wallet file somewhere safe.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// WalletDeps are the collaborators of the wallet service. Uploader, Settings
// and Activity may be nil.
type WalletDeps struct {
	Store       *vault.Store
	Dial        ledger.Dialer
	Signer      keys.Signer
	Builder     *TxBuilder
	Submitter   *TxSubmitter
	Tracker     *ActivityTracker
	Notifier    Notifier
	Settings    settings.Repository
	Submissions submissions.Repository
	Activity    activity.Repository
	Uploader    Uploader

	WalletsDir   string
	HistoryLimit int
	Log          logging.Logger
}

type walletService struct {
	WalletDeps

	mu    sync.Mutex
	state models.AccountState
}

func NewWalletService(d WalletDeps) WalletService {
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = 10
	}
	if d.Tracker == nil {
		d.Tracker = NewActivityTracker()
	}
	d.Log = d.Log.With("module", "wallet")
	return &walletService{WalletDeps: d}
}

// walletPath maps a bare name to a file in the wallets directory. Anything
// that looks like a path is used as is.
func (s *walletService) walletPath(nameOrPath string) (string, error) {
	n := strings.TrimSpace(nameOrPath)
	if n == "" || n == "." || n == ".." {
		return "", ErrBadWalletName
	}
	if strings.ContainsAny(n, `/\`) {
		return filepath.Clean(n), nil
	}

	dir, err := filex.EnsureDir(s.WalletsDir)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(n, walletExt) {
		n += walletExt
	}
	return filepath.Join(dir, n), nil
}

func (s *walletService) newWalletPath(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrBadWalletName, name)
	}
	path, err := s.walletPath(name)
	if err != nil {
		return "", err
	}
	exists, err := filex.Exists(path)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: %s", ErrWalletExists, filepath.Base(path))
	}
	return path, nil
}

// CreateWallet generates a new key, saves it under name and opens it. The
// returned vault holds the secret so the caller can show it once for
// backup.
func (s *walletService) CreateWallet(ctx context.Context, name string, password []byte, withMnemonic bool) (models.Vault, error) {
	path, err := s.newWalletPath(name)
	if err != nil {
		return models.Vault{}, err
	}

	v := models.Vault{Version: models.VaultVersion}
	if withMnemonic {
		v.Mnemonic, v.Seed, err = keys.NewMnemonic()
	} else {
		v.Seed, err = keys.NewFamilySeed()
	}
	if err != nil {
		return models.Vault{}, fmt.Errorf("generate key: %w", err)
	}

	if err := s.adopt(ctx, path, &v, password); err != nil {
		return models.Vault{}, err
	}
	return v, nil
}

// ImportWallet saves an existing family seed or mnemonic under name and
// opens it.
func (s *walletService) ImportWallet(ctx context.Context, name, secret string, password []byte) (string, error) {
	path, err := s.newWalletPath(name)
	if err != nil {
		return "", err
	}

	secret = strings.Join(strings.Fields(secret), " ")
	v := models.Vault{Version: models.VaultVersion}
	switch {
	case strings.Contains(secret, " "):
		v.Seed, err = keys.SeedFromMnemonic(secret)
		if err != nil {
			return "", err
		}
		v.Mnemonic = secret
	case strings.HasPrefix(secret, "s"):
		if _, err := keys.DecodeSeed(secret); err != nil {
			return "", err
		}
		v.Seed = secret
	default:
		return "", ErrInvalidSecret
	}

	if err := s.adopt(ctx, path, &v, password); err != nil {
		return "", err
	}
	return v.Address, nil
}

func (s *walletService) adopt(ctx context.Context, path string, v *models.Vault, password []byte) error {
	kp, err := s.Signer.DeriveFromSeed(v.Seed)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	v.Address = kp.Address
	kp.Wipe()

	if err := s.Store.Adopt(ctx, path, *v, password); err != nil {
		return err
	}
	s.switched(ctx, path)
	return nil
}

func (s *walletService) OpenWallet(ctx context.Context, nameOrPath string, password []byte) (string, error) {
	path, err := s.walletPath(nameOrPath)
	if err != nil {
		return "", err
	}
	if err := s.Store.Load(ctx, path, password); err != nil {
		return "", err
	}
	s.switched(ctx, path)
	return s.Store.Address()
}

// switched resets per-wallet state after a different vault became active.
func (s *walletService) switched(ctx context.Context, path string) {
	s.Tracker.Reset()
	s.mu.Lock()
	s.state = models.AccountState{}
	s.mu.Unlock()

	if s.Settings == nil {
		return
	}
	if err := settings.RememberWallet(ctx, s.Settings, path); err != nil {
		s.Log.Warn(ctx, "failed to remember wallet", "error", err)
	}
}

func (s *walletService) CloseWallet(ctx context.Context) {
	s.Submitter.Cancel()
	s.Store.Discard()
	s.Tracker.Reset()
	s.mu.Lock()
	s.state = models.AccountState{}
	s.mu.Unlock()
	s.Log.Info(ctx, "wallet closed")
}

// Wallets lists recently used wallets first, then the other wallet files
// in the wallets directory.
func (s *walletService) Wallets(ctx context.Context) ([]string, error) {
	var out []string
	seen := map[string]bool{}

	if s.Settings != nil {
		recent, err := settings.RecentWallets(ctx, s.Settings)
		if err != nil {
			return nil, err
		}
		for _, p := range recent {
			if ok, _ := filex.Exists(p); ok && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}

	dir, err := filex.EnsureDir(s.WalletsDir)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*"+walletExt))
	if err != nil {
		return nil, err
	}
	for _, p := range matches {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *walletService) Lock() { s.Store.Lock() }

func (s *walletService) Unlock(password []byte) bool { return s.Store.Unlock(password) }

func (s *walletService) ChangePassword(ctx context.Context, old, newPassword []byte) error {
	return s.Store.ChangePassword(ctx, old, newPassword)
}

// ExportSeed asks for the password again before revealing the seed.
func (s *walletService) ExportSeed(password []byte) (string, error) {
	if s.Store.State() == vault.StateNoWallet {
		return "", vault.ErrNoWallet
	}
	if !s.Store.Unlock(password) {
		return "", vault.ErrWrongPassword
	}
	return s.Store.Seed()
}

func (s *walletService) Touch() { s.Store.Touch() }

func (s *walletService) State() vault.State { return s.Store.State() }

func (s *walletService) Address() (string, error) { return s.Store.Address() }

// keyPair derives the signing key of the unlocked wallet.
func (s *walletService) keyPair() (keys.KeyPair, error) {
	seed, err := s.Store.Seed()
	if err != nil {
		return keys.KeyPair{}, err
	}
	kp, err := s.Signer.DeriveFromSeed(seed)
	if err != nil {
		return keys.KeyPair{}, fmt.Errorf("derive key: %w", err)
	}

	addr, err := s.Store.Address()
	if err != nil {
		kp.Wipe()
		return keys.KeyPair{}, err
	}
	if kp.Address != addr {
		kp.Wipe()
		return keys.KeyPair{}, fmt.Errorf("%w: seed does not match wallet address", vault.ErrMalformed)
	}
	return kp, nil
}

// Send runs the whole pipeline for intent. A Pending outcome is returned
// without error and must be treated as undecided.
func (s *walletService) Send(ctx context.Context, intent models.TransactionIntent) (models.Outcome, error) {
	kp, err := s.keyPair()
	if err != nil {
		return models.Outcome{}, err
	}
	account := kp.Address
	s.Store.Touch()

	// Cheap checks first, so a bad intent never opens a connection.
	if err := ValidateIntent(account, intent); err != nil {
		kp.Wipe()
		return models.Outcome{}, err
	}

	s.Log.Info(ctx, "sending transaction", "kind", intent.EffectiveKind(), "destination", intent.Destination, "amount", intent.Amount.String())

	return s.Submitter.Dispatch(ctx, s.Dial, func(ctx context.Context, c ledger.Client) (models.PreparedTransaction, error) {
		return s.Builder.Prepare(ctx, c, account, intent)
	}, kp)
}

// Refresh reads balance and history from the validated ledger, reports new
// incoming transfers and caches history rows.
func (s *walletService) Refresh(ctx context.Context) (models.AccountState, error) {
	addr, err := s.Store.Address()
	if err != nil {
		return models.AccountState{}, err
	}

	st := models.AccountState{Address: addr}
	err = ledger.WithClient(ctx, s.Dial, func(ctx context.Context, c ledger.Client) error {
		balance, err := ledger.Balance(ctx, c, addr)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		st.Balance = balance
		st.Funded = balance >= models.ReserveDrops

		info, err := c.AccountInfo(ctx, addr, false)
		if err == nil {
			st.Sequence = info.Sequence
		}

		st.History, err = c.AccountTransactions(ctx, addr, s.HistoryLimit)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.AccountState{}, err
	}

	validated := make([]models.ActivityRecord, 0, len(st.History))
	for _, r := range st.History {
		if r.Validated {
			validated = append(validated, r)
		}
	}

	for _, ev := range s.Tracker.Reconcile(addr, validated) {
		if s.Notifier != nil {
			s.Notifier.NotifyIncoming(ctx, addr, ev)
		}
	}

	if s.Activity != nil && len(validated) > 0 {
		if err := s.Activity.Save(ctx, addr, validated); err != nil {
			s.Log.Warn(ctx, "failed to cache history", "error", err)
		}
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	return st, nil
}

// History returns cached history rows, newest first.
func (s *walletService) History(ctx context.Context, limit int) ([]models.ActivityRecord, error) {
	addr, err := s.Store.Address()
	if err != nil {
		return nil, err
	}
	if s.Activity == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.state.History, nil
	}
	return s.Activity.List(ctx, addr, limit)
}

func (s *walletService) TrustLines(ctx context.Context) ([]models.TrustLine, error) {
	addr, err := s.Store.Address()
	if err != nil {
		return nil, err
	}

	var lines []models.TrustLine
	err = ledger.WithClient(ctx, s.Dial, func(ctx context.Context, c ledger.Client) error {
		lines, err = c.AccountLines(ctx, addr)
		return err
	})
	return lines, err
}

func (s *walletService) SignMessage(msg []byte) (string, string, error) {
	kp, err := s.keyPair()
	if err != nil {
		return "", "", err
	}
	defer kp.Wipe()
	s.Store.Touch()

	sig, err := keys.SignMessage(s.Signer, msg, kp)
	if err != nil {
		return "", "", err
	}
	return sig, kp.PublicKeyHex(), nil
}

func (s *walletService) VerifyMessage(msg []byte, signature, publicKey string) (bool, error) {
	return keys.VerifyMessage(msg, signature, publicKey)
}

// Pending lists submissions of the current wallet without a final outcome.
func (s *walletService) Pending(ctx context.Context) ([]models.Submission, error) {
	addr, err := s.Store.Address()
	if err != nil {
		return nil, err
	}

	var out []models.Submission
	for _, st := range []models.OutcomeStatus{models.StatusSubmitted, models.StatusPending} {
		list, err := s.Submissions.ListByStatus(ctx, addr, st)
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
	return out, nil
}

func (s *walletService) ownSubmission(ctx context.Context, hash string) (models.Submission, error) {
	addr, err := s.Store.Address()
	if err != nil {
		return models.Submission{}, err
	}
	sub, err := s.Submissions.Get(ctx, strings.ToUpper(strings.TrimSpace(hash)))
	if err != nil {
		return models.Submission{}, err
	}
	if sub.Account != addr {
		return models.Submission{}, ErrNotOwn
	}
	return sub, nil
}

// Recheck asks the network once for a stored submission. A transaction
// the node does not know, once the validated ledger is past its last valid
// ledger, can no longer be included and is marked rejected. A transaction
// the node has seen stays pending until it is validated.
func (s *walletService) Recheck(ctx context.Context, hash string) (models.Outcome, error) {
	sub, err := s.ownSubmission(ctx, hash)
	if err != nil {
		return models.Outcome{}, err
	}

	var out models.Outcome
	err = ledger.WithClient(ctx, s.Dial, func(ctx context.Context, c ledger.Client) error {
		st, err := c.TransactionStatus(ctx, sub.Hash)
		switch {
		case err == nil && st.Validated:
			out = outcomeOf(st, sub.Hash)
			return nil
		case err == nil:
			out = models.Pending(sub.Hash)
			return nil
		case !errors.Is(err, ledger.ErrTxNotFound):
			return err
		}

		validated, err := c.ValidatedLedgerIndex(ctx)
		if err != nil {
			return err
		}
		if validated > sub.LastValidLedger {
			out = models.Rejected(expiredResult, sub.Hash)
		} else {
			out = models.Pending(sub.Hash)
		}
		return nil
	})
	if err != nil {
		return models.Outcome{}, err
	}

	if err := s.Submissions.UpdateOutcome(ctx, sub.Hash, out); err != nil {
		s.Log.Error(ctx, "failed to record outcome", "hash", sub.Hash, "error", err)
	}
	return out, nil
}

// Resubmit sends the stored signed blob again. The hash cannot change, so
// this never creates a second payment.
func (s *walletService) Resubmit(ctx context.Context, hash string) (models.Outcome, error) {
	sub, err := s.ownSubmission(ctx, hash)
	if err != nil {
		return models.Outcome{}, err
	}
	switch sub.Status {
	case models.StatusValidated, models.StatusRejected:
		return models.Outcome{Status: sub.Status, ResultCode: sub.ResultCode, Hash: sub.Hash}, nil
	}

	var out models.Outcome
	err = ledger.WithClient(ctx, s.Dial, func(ctx context.Context, c ledger.Client) error {
		var err error
		out, err = s.Submitter.Resubmit(ctx, c, sub.Blob, sub.LastValidLedger)
		return err
	})
	return out, err
}

// Backup uploads the encrypted wallet file.
func (s *walletService) Backup(ctx context.Context) (string, error) {
	if s.Uploader == nil {
		return "", ErrBackupDisabled
	}
	path := s.Store.Path()
	if path == "" {
		return "", vault.ErrNoWallet
	}
	return s.Uploader.Upload(ctx, path)
}

func (s *walletService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if s.Store.State() != vault.StateUnlocked {
				continue
			}
			if _, err := s.Refresh(ctx); err != nil {
				s.Log.Warn(ctx, "auto refresh failed", "error", err)
			}
		}
	}
}
