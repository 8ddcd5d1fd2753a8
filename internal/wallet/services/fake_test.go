package services

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/keys"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/ledger"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/stretchr/testify/require"
)

const (
	genesisSeed    = "snoPBrXtMeMyMHUVTgbuqAfg1SUTb"
	genesisAddress = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	accountOne     = "rrrrrrrrrrrrrrrrrrrrBZbvji"
	accountZero    = "rrrrrrrrrrrrrrrrrrrrrhoLvTp"
)

// fakeLedger is a scripted ledger.Client. Unset funcs return zero values.
type fakeLedger struct {
	mu    sync.Mutex
	calls []string

	fee       func() (ledger.Fee, error)
	current   func() (uint32, error)
	validated func() (uint32, error)
	info      func(address string, validated bool) (ledger.AccountInfo, error)
	submit    func(blob string) (ledger.SubmitResult, error)
	status    func(attempt int, hash string) (ledger.TxStatus, error)
	history   func(address string) ([]models.ActivityRecord, error)
	lines     func(address string) ([]models.TrustLine, error)
	statusN   int
	blobs     []string
	closed    int
}

func (f *fakeLedger) called(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeLedger) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeLedger) Fee(context.Context) (ledger.Fee, error) {
	f.called("fee")
	if f.fee == nil {
		return ledger.Fee{BaseFee: 10, OpenLedgerFee: 10}, nil
	}
	return f.fee()
}

func (f *fakeLedger) CurrentLedgerIndex(context.Context) (uint32, error) {
	f.called("ledger_current")
	if f.current == nil {
		return 1000, nil
	}
	return f.current()
}

func (f *fakeLedger) ValidatedLedgerIndex(context.Context) (uint32, error) {
	f.called("ledger")
	if f.validated == nil {
		return 999, nil
	}
	return f.validated()
}

func (f *fakeLedger) AccountInfo(_ context.Context, address string, validated bool) (ledger.AccountInfo, error) {
	f.called("account_info")
	if f.info == nil {
		return ledger.AccountInfo{Balance: 100_000_000, Sequence: 7}, nil
	}
	return f.info(address, validated)
}

func (f *fakeLedger) Submit(_ context.Context, blob string) (ledger.SubmitResult, error) {
	f.called("submit")
	f.mu.Lock()
	f.blobs = append(f.blobs, blob)
	f.mu.Unlock()
	if f.submit == nil {
		return ledger.SubmitResult{EngineResult: "tesSUCCESS"}, nil
	}
	return f.submit(blob)
}

func (f *fakeLedger) TransactionStatus(_ context.Context, hash string) (ledger.TxStatus, error) {
	f.called("tx")
	f.mu.Lock()
	f.statusN++
	n := f.statusN
	f.mu.Unlock()
	if f.status == nil {
		return ledger.TxStatus{}, ledger.ErrTxNotFound
	}
	return f.status(n, hash)
}

func (f *fakeLedger) StatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusN
}

func (f *fakeLedger) Blobs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.blobs...)
}

// validatedAfterSends reports the transaction as unknown until n blobs were
// submitted, then as validated with code.
func (f *fakeLedger) validatedAfterSends(n int, code string) func(int, string) (ledger.TxStatus, error) {
	return func(_ int, hash string) (ledger.TxStatus, error) {
		if len(f.Blobs()) < n {
			return ledger.TxStatus{}, ledger.ErrTxNotFound
		}
		return ledger.TxStatus{Hash: hash, Validated: true, ResultCode: code, LedgerIndex: 1001}, nil
	}
}

func (f *fakeLedger) AccountTransactions(_ context.Context, address string, _ int) ([]models.ActivityRecord, error) {
	f.called("account_tx")
	if f.history == nil {
		return nil, nil
	}
	return f.history(address)
}

func (f *fakeLedger) AccountLines(_ context.Context, address string) ([]models.TrustLine, error) {
	f.called("account_lines")
	if f.lines == nil {
		return nil, nil
	}
	return f.lines(address)
}

func (f *fakeLedger) Ping(context.Context) error { return nil }

func (f *fakeLedger) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeLedger) dialer() ledger.Dialer {
	return func(context.Context) (ledger.Client, error) { return f, nil }
}

// memRecorder keeps submissions in memory.
type memRecorder struct {
	mu        sync.Mutex
	submitted []models.Submission
	outcomes  map[string]models.Outcome
}

func (r *memRecorder) RecordSubmitted(_ context.Context, s models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, s)
	return nil
}

func (r *memRecorder) RecordOutcome(_ context.Context, hash string, o models.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]models.Outcome{}
	}
	r.outcomes[hash] = o
	return nil
}

func (r *memRecorder) Outcome(hash string) (models.Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outcomes[hash]
	return o, ok
}

func genesisKeys(t *testing.T) keys.KeyPair {
	t.Helper()
	kp, err := keys.DeriveFromSeed(genesisSeed)
	require.NoError(t, err)
	return kp
}

func payment(drops uint64) models.TransactionIntent {
	return models.TransactionIntent{Destination: accountOne, Amount: models.NativeAmount(drops)}
}

func preparedPayment() models.PreparedTransaction {
	return models.PreparedTransaction{
		TransactionIntent: payment(1_000_000),
		Account:           genesisAddress,
		Sequence:          7,
		FeeDrops:          12,
		LastValidLedger:   1200,
		ObservedLedger:    1000,
	}
}
