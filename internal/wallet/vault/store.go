package vault

import (
	"context"
	"crypto/subtle"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/common"
	"github.com/dmitrijs2005/xrpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/xrpkeeper/internal/filex"
	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

// State is the session lifecycle state.
type State int

const (
	StateNoWallet State = iota
	StateUnlocked
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateUnlocked:
		return "unlocked"
	case StateLocked:
		return "locked"
	default:
		return "no wallet"
	}
}

const filePerm = 0o600

// Store owns the loaded vault and the master password for one session.
// Secret fields are reachable only through Vault and Seed, which refuse
// while the session is locked.
type Store struct {
	mu  sync.Mutex
	log logging.Logger

	autoLock time.Duration
	now      func() time.Time
	write    func(path string, data []byte, perm os.FileMode) error
	onLock   func()

	path     string
	vault    *models.Vault
	password []byte

	// While locked only a salted scrypt verifier of the password is kept.
	verifier     []byte
	verifierSalt []byte

	locked   bool
	timer    *time.Timer
	timerGen uint64
	deadline time.Time
}

// NewStore returns an empty session. autoLock <= 0 disables the timer.
func NewStore(autoLock time.Duration, log logging.Logger) *Store {
	return &Store{
		log:      log.With("module", "vault"),
		autoLock: autoLock,
		now:      time.Now,
		write:    filex.WriteFileAtomic,
	}
}

// OnLock registers a callback run (outside the store lock) after every
// transition into the locked state.
func (s *Store) OnLock(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLock = fn
}

// Load reads and decodes the wallet file at path and makes it the active,
// unlocked session. On any failure the error wraps ErrLoad and the previous
// session is left intact.
//
// A password given for a plaintext file is dropped: the session then
// reports the file as unencrypted and unlocks with an empty password.
func (s *Store) Load(ctx context.Context, path string, password []byte) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	v, err := Decode(data, password)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if encrypted, _ := IsEncrypted(data); !encrypted {
		password = nil
	}

	s.mu.Lock()
	s.replaceLocked(path, v, password)
	s.mu.Unlock()

	s.log.Info(ctx, "wallet loaded", "address", v.Address, "path", path)
	return nil
}

// Adopt persists a newly created or imported vault to path, encrypted with
// password unless it is blank, and makes it the active session.
func (s *Store) Adopt(ctx context.Context, path string, v models.Vault, password []byte) error {
	v.Version = models.VaultVersion

	data, err := Encode(v, password)
	if err != nil {
		return err
	}
	if err := s.write(path, data, filePerm); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}

	s.mu.Lock()
	s.replaceLocked(path, v, password)
	s.mu.Unlock()

	s.log.Info(ctx, "wallet saved", "address", v.Address, "path", path, "encrypted", !IsPlaintextPassword(password))
	return nil
}

func (s *Store) replaceLocked(path string, v models.Vault, password []byte) {
	s.clearLocked()
	s.path = path
	s.vault = &v
	s.password = append([]byte(nil), password...)
	s.locked = false
	s.armLocked()
}

// Discard drops the session and returns to the no-wallet state.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	s.stopTimerLocked()
	common.WipeByteArray(s.password)
	common.WipeByteArray(s.verifier)
	s.password, s.verifier, s.verifierSalt = nil, nil, nil
	if s.vault != nil {
		*s.vault = models.Vault{}
	}
	s.vault = nil
	s.path = ""
	s.locked = false
}

// Lock wipes the master password from memory and gates the secret.
// It is idempotent and a no-op without a wallet.
func (s *Store) Lock() {
	s.mu.Lock()
	locked, hook := s.lockLocked()
	s.mu.Unlock()

	if locked {
		s.afterLock(hook)
	}
}

func (s *Store) lockLocked() (bool, func()) {
	if s.vault == nil || s.locked {
		return false, nil
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	verifier, err := cryptox.DeriveKey(s.password, salt)
	if err != nil {
		// scrypt only fails on invalid parameters, which are constant.
		panic(err)
	}
	s.verifier, s.verifierSalt = verifier, salt

	common.WipeByteArray(s.password)
	s.password = nil
	s.locked = true
	s.stopTimerLocked()
	return true, s.onLock
}

func (s *Store) afterLock(hook func()) {
	s.log.Info(context.Background(), "wallet locked")
	if hook != nil {
		hook()
	}
}

// Unlock clears the lock iff candidate equals the session password. A wrong
// password returns false and changes nothing. On an unlocked session a
// matching candidate just re-arms the auto-lock timer.
func (s *Store) Unlock(candidate []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlockLocked(candidate)
}

func (s *Store) unlockLocked(candidate []byte) bool {
	if s.vault == nil {
		return false
	}

	if !s.locked {
		if subtle.ConstantTimeCompare(candidate, s.password) != 1 {
			return false
		}
		s.armLocked()
		return true
	}

	got, err := cryptox.DeriveKey(candidate, s.verifierSalt)
	if err != nil {
		return false
	}
	defer common.WipeByteArray(got)
	if subtle.ConstantTimeCompare(got, s.verifier) != 1 {
		return false
	}

	common.WipeByteArray(s.verifier)
	s.verifier, s.verifierSalt = nil, nil
	s.password = append([]byte(nil), candidate...)
	s.locked = false
	s.armLocked()
	return true
}

// ChangePassword verifies old (unlocking if needed), rewrites the wallet
// file under newPassword and only then swaps the in-memory password. If the
// write fails nothing changes, apart from the unlock.
func (s *Store) ChangePassword(ctx context.Context, old, newPassword []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vault == nil {
		return ErrNoWallet
	}
	if !s.unlockLocked(old) {
		return ErrWrongPassword
	}

	data, err := Encode(*s.vault, newPassword)
	if err != nil {
		return err
	}
	if err := s.write(s.path, data, filePerm); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}

	common.WipeByteArray(s.password)
	s.password = append([]byte(nil), newPassword...)
	s.armLocked()

	s.log.Info(ctx, "wallet password changed", "encrypted", !IsPlaintextPassword(newPassword))
	return nil
}

// Touch records user activity, postponing the auto-lock.
func (s *Store) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vault != nil && !s.locked {
		s.armLocked()
	}
}

// Vault returns a copy of the decrypted vault.
func (s *Store) Vault() (models.Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gateLocked(); err != nil {
		return models.Vault{}, err
	}
	return *s.vault, nil
}

// Seed returns the secret seed of the unlocked wallet.
func (s *Store) Seed() (string, error) {
	v, err := s.Vault()
	if err != nil {
		return "", err
	}
	return v.Seed, nil
}

// Address is public and available while locked.
func (s *Store) Address() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vault == nil {
		return "", ErrNoWallet
	}
	return s.vault.Address, nil
}

func (s *Store) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.vault == nil:
		return StateNoWallet
	case s.locked:
		return StateLocked
	default:
		return StateUnlocked
	}
}

// Deadline is the pending auto-lock time, zero when none is armed.
func (s *Store) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline
}

// Encrypted reports whether the session password would encrypt the file.
func (s *Store) Encrypted() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gateLocked(); err != nil {
		return false, err
	}
	return !IsPlaintextPassword(s.password), nil
}

// Close stops the timer and wipes the session.
func (s *Store) Close() {
	s.Discard()
}

func (s *Store) gateLocked() error {
	if s.vault == nil {
		return ErrNoWallet
	}
	if s.locked {
		return ErrLocked
	}
	return nil
}

// armLocked replaces any pending auto-lock timer with a fresh one.
func (s *Store) armLocked() {
	s.stopTimerLocked()
	if s.autoLock <= 0 {
		return
	}

	s.timerGen++
	gen := s.timerGen
	s.deadline = s.now().Add(s.autoLock)
	s.timer = time.AfterFunc(s.autoLock, func() { s.autoLockFired(gen) })
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
	s.deadline = time.Time{}
}

func (s *Store) autoLockFired(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen {
		s.mu.Unlock()
		return
	}
	locked, hook := s.lockLocked()
	s.mu.Unlock()

	if locked {
		s.log.Debug(context.Background(), "auto-lock deadline reached")
		s.afterLock(hook)
	}
}
