package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, autoLock time.Duration) (*Store, string) {
	t.Helper()
	s := NewStore(autoLock, logging.Nop())
	t.Cleanup(s.Close)
	return s, filepath.Join(t.TempDir(), "wallet.json")
}

func TestStore_AdoptAndLoad(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t, 0)

	require.Equal(t, StateNoWallet, s.State())
	require.NoError(t, s.Adopt(ctx, path, sampleVault(), []byte("pw")))
	require.Equal(t, StateUnlocked, s.State())
	require.Equal(t, path, s.Path())

	other := NewStore(0, logging.Nop())
	t.Cleanup(other.Close)
	require.NoError(t, other.Load(ctx, path, []byte("pw")))

	v, err := other.Vault()
	require.NoError(t, err)
	assert.Equal(t, sampleVault(), v)
}

func TestStore_LoadFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t, 0)
	require.NoError(t, s.Adopt(ctx, path, sampleVault(), []byte("pw")))

	other := NewStore(0, logging.Nop())
	t.Cleanup(other.Close)

	err := other.Load(ctx, path, []byte("nope"))
	require.ErrorIs(t, err, ErrLoad)
	require.ErrorIs(t, err, ErrDecryption)
	assert.Equal(t, StateNoWallet, other.State())

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	err = s.Load(ctx, bad, nil)
	require.ErrorIs(t, err, ErrLoad)
	require.ErrorIs(t, err, ErrMalformed)

	assert.Equal(t, StateUnlocked, s.State())
	assert.Equal(t, path, s.Path())

	err = s.Load(ctx, filepath.Join(t.TempDir(), "missing.json"), nil)
	require.ErrorIs(t, err, ErrLoad)
}

func TestStore_LockGatesSecrets(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t, 0)
	require.NoError(t, s.Adopt(ctx, path, sampleVault(), []byte("pw")))

	s.Lock()
	require.Equal(t, StateLocked, s.State())

	_, err := s.Vault()
	require.ErrorIs(t, err, ErrLocked)
	_, err = s.Seed()
	require.ErrorIs(t, err, ErrLocked)

	addr, err := s.Address()
	require.NoError(t, err)
	assert.Equal(t, sampleVault().Address, addr)

	assert.Nil(t, s.password, "password must be wiped while locked")

	assert.False(t, s.Unlock([]byte("wrong")))
	require.Equal(t, StateLocked, s.State())

	assert.True(t, s.Unlock([]byte("pw")))
	seed, err := s.Seed()
	require.NoError(t, err)
	assert.Equal(t, sampleVault().Seed, seed)
}

func TestStore_LockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t, 0)

	var calls atomic.Int32
	s.OnLock(func() { calls.Add(1) })

	s.Lock()
	assert.Equal(t, int32(0), calls.Load(), "no wallet, nothing to lock")

	require.NoError(t, s.Adopt(ctx, path, sampleVault(), []byte("pw")))
	s.Lock()
	s.Lock()
	assert.Equal(t, int32(1), calls.Load())
}

func TestStore_UnlockWithoutWallet(t *testing.T) {
	s, _ := newStore(t, 0)
	assert.False(t, s.Unlock([]byte("pw")))
	_, err := s.Vault()
	require.ErrorIs(t, err, ErrNoWallet)
}

func TestStore_PlaintextWalletLocksAndUnlocksWithEmptyPassword(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t, 0)
	require.NoError(t, s.Adopt(ctx, path, sampleVault(), nil))

	enc, err := s.Encrypted()
	require.NoError(t, err)
	assert.False(t, enc)

	s.Lock()
	assert.True(t, s.Unlock(nil))
}

func TestStore_LoadPlaintextIgnoresTypedPassword(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t, 0)
	require.NoError(t, s.Adopt(ctx, path, sampleVault(), nil))

	other := NewStore(0, logging.Nop())
	t.Cleanup(other.Close)
	require.NoError(t, other.Load(ctx, path, []byte("typed anyway")))

	enc, err := other.Encrypted()
	require.NoError(t, err)
	assert.False(t, enc)

	other.Lock()
	assert.False(t, other.Unlock([]byte("typed anyway")))
	assert.True(t, other.Unlock(nil))
	assert.Equal(t, StateUnlocked, other.State())
}

func TestStore_ChangePassword(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t, 0)
	require.NoError(t, s.Adopt(ctx, path, sampleVault(), []byte("old")))
	s.Lock()

	require.ErrorIs(t, s.ChangePassword(ctx, []byte("bad"), []byte("new")), ErrWrongPassword)
	require.Equal(t, StateLocked, s.State())

	require.NoError(t, s.ChangePassword(ctx, []byte("old"), []byte("new")))
	require.Equal(t, StateUnlocked, s.State())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = Decode(data, []byte("old"))
	require.ErrorIs(t, err, ErrDecryption)
	v, err := Decode(data, []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, sampleVault(), v)

	assert.True(t, s.Unlock([]byte("new")))
	assert.False(t, s.Unlock([]byte("old")))
}

func TestStore_ChangePasswordWriteFailureKeepsOldPassword(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t, 0)
	require.NoError(t, s.Adopt(ctx, path, sampleVault(), []byte("old")))

	s.write = func(string, []byte, os.FileMode) error { return errors.New("disk full") }

	err := s.ChangePassword(ctx, []byte("old"), []byte("new"))
	require.Error(t, err)

	assert.True(t, s.Unlock([]byte("old")))
	assert.False(t, s.Unlock([]byte("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = Decode(data, []byte("old"))
	require.NoError(t, err)
}

func TestStore_ChangePasswordWithoutWallet(t *testing.T) {
	s, _ := newStore(t, 0)
	require.ErrorIs(t, s.ChangePassword(context.Background(), nil, []byte("x")), ErrNoWallet)
}

func TestStore_AutoLockFires(t *testing.T) {
	s, path := newStore(t, 30*time.Millisecond)
	require.NoError(t, s.Adopt(context.Background(), path, sampleVault(), []byte("pw")))
	require.False(t, s.Deadline().IsZero())

	require.Eventually(t, func() bool { return s.State() == StateLocked }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Deadline().IsZero())
}

func TestStore_TouchReschedules(t *testing.T) {
	s, path := newStore(t, 300*time.Millisecond)
	require.NoError(t, s.Adopt(context.Background(), path, sampleVault(), []byte("pw")))

	first := s.Deadline()
	time.Sleep(180 * time.Millisecond)
	s.Touch()
	second := s.Deadline()
	require.True(t, second.After(first))

	time.Sleep(180 * time.Millisecond)
	assert.Equal(t, StateUnlocked, s.State(), "the first timer must have been cancelled")

	require.Eventually(t, func() bool { return s.State() == StateLocked }, 2*time.Second, 10*time.Millisecond)
}

func TestStore_AutoLockDisabled(t *testing.T) {
	s, path := newStore(t, 0)
	require.NoError(t, s.Adopt(context.Background(), path, sampleVault(), []byte("pw")))
	assert.True(t, s.Deadline().IsZero())
}

func TestStore_Discard(t *testing.T) {
	s, path := newStore(t, time.Hour)
	require.NoError(t, s.Adopt(context.Background(), path, sampleVault(), []byte("pw")))

	s.Discard()
	assert.Equal(t, StateNoWallet, s.State())
	assert.Empty(t, s.Path())
	_, err := s.Address()
	require.ErrorIs(t, err, ErrNoWallet)
}

func TestStore_AdoptWriteFailure(t *testing.T) {
	s, path := newStore(t, 0)
	s.write = func(string, []byte, os.FileMode) error { return errors.New("read-only") }

	err := s.Adopt(context.Background(), path, models.Vault{Seed: "s", Address: "r"}, nil)
	require.Error(t, err)
	assert.Equal(t, StateNoWallet, s.State())
}
