package cli

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/vault"
)

const testAddress = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"

// fakeService records calls and returns canned results.
type fakeService struct {
	mu    sync.Mutex
	calls []string

	state    vault.State
	password string

	intent  models.TransactionIntent
	outcome models.Outcome
	sendErr error
	account models.AccountState
	err     error
}

func (f *fakeService) call(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeService) CreateWallet(_ context.Context, name string, password []byte, withMnemonic bool) (models.Vault, error) {
	f.call("create " + name)
	f.state, f.password = vault.StateUnlocked, string(password)
	v := models.Vault{Version: 1, Address: testAddress, Seed: "sSEED"}
	if withMnemonic {
		v.Mnemonic = "word word word"
	}
	return v, nil
}

func (f *fakeService) ImportWallet(_ context.Context, name, secret string, password []byte) (string, error) {
	f.call("import " + name + " " + secret)
	f.state, f.password = vault.StateUnlocked, string(password)
	return testAddress, nil
}

func (f *fakeService) OpenWallet(_ context.Context, nameOrPath string, password []byte) (string, error) {
	f.call("open " + nameOrPath)
	if string(password) != f.password {
		return "", vault.ErrLoad
	}
	f.state = vault.StateUnlocked
	return testAddress, nil
}

func (f *fakeService) CloseWallet(context.Context) {
	f.call("close")
	f.state = vault.StateNoWallet
}

func (f *fakeService) Wallets(context.Context) ([]string, error) {
	return []string{"wallets/main.json"}, nil
}

func (f *fakeService) Lock() {
	f.call("lock")
	f.state = vault.StateLocked
}

func (f *fakeService) Unlock(password []byte) bool {
	f.call("unlock")
	if string(password) != f.password {
		return false
	}
	f.state = vault.StateUnlocked
	return true
}

func (f *fakeService) ChangePassword(_ context.Context, old, newPassword []byte) error {
	f.call("passwd")
	if string(old) != f.password {
		return vault.ErrWrongPassword
	}
	f.password = string(newPassword)
	return nil
}

func (f *fakeService) ExportSeed(password []byte) (string, error) {
	f.call("seed")
	if string(password) != f.password {
		return "", vault.ErrWrongPassword
	}
	return "sSEED", nil
}

func (f *fakeService) Touch() {}

func (f *fakeService) State() vault.State { return f.state }

func (f *fakeService) Address() (string, error) {
	if f.state == vault.StateNoWallet {
		return "", vault.ErrNoWallet
	}
	return testAddress, nil
}

func (f *fakeService) Send(_ context.Context, intent models.TransactionIntent) (models.Outcome, error) {
	f.call("send")
	if f.state == vault.StateLocked {
		return models.Outcome{}, vault.ErrLocked
	}
	f.intent = intent
	return f.outcome, f.sendErr
}

func (f *fakeService) Refresh(context.Context) (models.AccountState, error) {
	f.call("refresh")
	return f.account, f.err
}

func (f *fakeService) History(_ context.Context, limit int) ([]models.ActivityRecord, error) {
	f.call("history")
	if limit > 0 && limit < len(f.account.History) {
		return f.account.History[:limit], nil
	}
	return f.account.History, nil
}

func (f *fakeService) TrustLines(context.Context) ([]models.TrustLine, error) {
	f.call("lines")
	return []models.TrustLine{{Peer: "rIssuer", Currency: "USD", Balance: "1", Limit: "100", NoRipple: true}}, nil
}

func (f *fakeService) SignMessage(msg []byte) (string, string, error) {
	f.call("sign " + string(msg))
	return "SIG", "PUB", nil
}

func (f *fakeService) VerifyMessage(msg []byte, signature, publicKey string) (bool, error) {
	f.call("verify " + publicKey + " " + signature + " " + string(msg))
	return signature == "SIG", nil
}

func (f *fakeService) Pending(context.Context) ([]models.Submission, error) {
	f.call("pending")
	return []models.Submission{{Hash: "H1", Sequence: 7, LastValidLedger: 1200, Status: models.StatusPending}}, nil
}

func (f *fakeService) Recheck(_ context.Context, hash string) (models.Outcome, error) {
	f.call("recheck " + hash)
	return models.Validated("tesSUCCESS", hash), nil
}

func (f *fakeService) Resubmit(_ context.Context, hash string) (models.Outcome, error) {
	f.call("resubmit " + hash)
	return models.Outcome{}, f.err
}

func (f *fakeService) Backup(context.Context) (string, error) {
	f.call("backup")
	return "", f.err
}

func (f *fakeService) Run(ctx context.Context, _ time.Duration) {
	<-ctx.Done()
}

// stubPasswords makes readPassword return each value in turn.
func stubPasswords(t *testing.T, values ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(values) {
			t.Fatalf("unexpected password prompt #%d", i+1)
		}
		v := values[i]
		i++
		return []byte(v), nil
	}
}
