package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/keys"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/ledger"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/txcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolls = PollPolicy{Interval: time.Millisecond, MaxAttempts: 3}

func newSubmitter(rec SubmissionRecorder, n Notifier) *TxSubmitter {
	return NewTxSubmitter(keys.Secp256k1{}, fastPolls, rec, n, logging.Nop())
}

func validatedAt(n int, code string) func(int, string) (ledger.TxStatus, error) {
	return func(attempt int, hash string) (ledger.TxStatus, error) {
		if attempt < n {
			return ledger.TxStatus{}, ledger.ErrTxNotFound
		}
		return ledger.TxStatus{Hash: hash, Validated: true, ResultCode: code, LedgerIndex: 1001}, nil
	}
}

func TestTxSubmitter_Validated(t *testing.T) {
	rec := &memRecorder{}
	fl := &fakeLedger{status: validatedAt(2, "tesSUCCESS")}
	s := newSubmitter(rec, nil)

	out, err := s.Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
	require.NoError(t, err)

	assert.Equal(t, models.StatusValidated, out.Status)
	assert.Equal(t, "tesSUCCESS", out.ResultCode)
	assert.Equal(t, 2, fl.StatusCalls())

	blobs := fl.Blobs()
	require.Len(t, blobs, 1)
	hash, err := txcodec.HashHexBlob(blobs[0])
	require.NoError(t, err)
	assert.Equal(t, hash, out.Hash)

	require.Len(t, rec.submitted, 1)
	assert.Equal(t, models.StatusSubmitted, rec.submitted[0].Status)
	assert.Equal(t, blobs[0], rec.submitted[0].Blob)
	assert.Equal(t, uint32(1200), rec.submitted[0].LastValidLedger)
	got, ok := rec.Outcome(out.Hash)
	require.True(t, ok)
	assert.Equal(t, out, got)
	assert.False(t, s.Busy())
}

func TestTxSubmitter_ValidatedFailureIsRejected(t *testing.T) {
	fl := &fakeLedger{status: validatedAt(1, "tecUNFUNDED_PAYMENT")}

	out, err := newSubmitter(nil, nil).Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, out.Status)
	assert.Equal(t, "tecUNFUNDED_PAYMENT", out.ResultCode)
}

func TestTxSubmitter_PendingIsNotAnError(t *testing.T) {
	rec := &memRecorder{}
	fl := &fakeLedger{status: func(int, string) (ledger.TxStatus, error) {
		return ledger.TxStatus{Validated: false}, nil
	}}

	out, err := newSubmitter(rec, nil).Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, out.Status)
	assert.NotEmpty(t, out.Hash)
	assert.Equal(t, fastPolls.MaxAttempts, fl.StatusCalls())

	got, ok := rec.Outcome(out.Hash)
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestTxSubmitter_PollErrorsDoNotAbort(t *testing.T) {
	fl := &fakeLedger{status: func(attempt int, hash string) (ledger.TxStatus, error) {
		if attempt < 3 {
			return ledger.TxStatus{}, errors.New("socket closed")
		}
		return ledger.TxStatus{Validated: true, ResultCode: "tesSUCCESS"}, nil
	}}

	out, err := newSubmitter(nil, nil).Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, out.Status)
	assert.Equal(t, 3, fl.StatusCalls())
}

func TestTxSubmitter_OutrightRejection(t *testing.T) {
	for _, code := range []string{"temBAD_FEE", "tefPAST_SEQ", "telINSUF_FEE_P"} {
		t.Run(code, func(t *testing.T) {
			rec := &memRecorder{}
			fl := &fakeLedger{submit: func(string) (ledger.SubmitResult, error) {
				return ledger.SubmitResult{EngineResult: code, EngineResultMessage: "no"}, nil
			}}

			out, err := newSubmitter(rec, nil).Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
			require.ErrorIs(t, err, ErrSubmit)

			var se *SubmitError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, code, se.EngineResult)
			assert.Equal(t, models.Outcome{}, out)
			assert.Zero(t, fl.StatusCalls())

			got, ok := rec.Outcome(se.Hash)
			require.True(t, ok)
			assert.Equal(t, models.StatusRejected, got.Status)
		})
	}
}

func TestTxSubmitter_ProvisionalResultsArePolled(t *testing.T) {
	for _, code := range []string{"terQUEUED", "tecNO_DST_INSUF_XRP", "tesSUCCESS"} {
		t.Run(code, func(t *testing.T) {
			fl := &fakeLedger{
				submit: func(string) (ledger.SubmitResult, error) { return ledger.SubmitResult{EngineResult: code}, nil },
				status: validatedAt(1, "tesSUCCESS"),
			}
			out, err := newSubmitter(nil, nil).Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
			require.NoError(t, err)
			assert.Equal(t, models.StatusValidated, out.Status)
		})
	}
}

func TestTxSubmitter_TransportError(t *testing.T) {
	rec := &memRecorder{}
	down := errors.New("broken pipe")
	fl := &fakeLedger{submit: func(string) (ledger.SubmitResult, error) { return ledger.SubmitResult{}, down }}

	_, err := newSubmitter(rec, nil).Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
	require.ErrorIs(t, err, down)
	require.Len(t, rec.submitted, 1)
	_, ok := rec.Outcome(rec.submitted[0].Hash)
	assert.False(t, ok)
}

func TestTxSubmitter_ContextEndsPolling(t *testing.T) {
	s := NewTxSubmitter(keys.Secp256k1{}, PollPolicy{Interval: time.Hour, MaxAttempts: 20}, nil, nil, logging.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out, err := s.Submit(ctx, &fakeLedger{}, preparedPayment(), genesisKeys(t))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, out.Status)
}

// blockingLedger holds Submit until release is closed.
func blockingLedger(entered chan<- struct{}, release <-chan struct{}) *fakeLedger {
	return &fakeLedger{
		submit: func(string) (ledger.SubmitResult, error) {
			entered <- struct{}{}
			<-release
			return ledger.SubmitResult{EngineResult: "tesSUCCESS"}, nil
		},
		status: validatedAt(1, "tesSUCCESS"),
	}
}

func TestTxSubmitter_BusyWhileInFlight(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	fl := blockingLedger(entered, release)
	s := newSubmitter(nil, nil)
	b := NewTxBuilder(0, logging.Nop())

	type result struct {
		out models.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := s.Dispatch(context.Background(), fl.dialer(), func(ctx context.Context, c ledger.Client) (models.PreparedTransaction, error) {
			return b.Prepare(ctx, c, genesisAddress, payment(5))
		}, genesisKeys(t))
		done <- result{out, err}
	}()

	<-entered
	assert.True(t, s.Busy())

	_, err := s.Submit(context.Background(), &fakeLedger{}, preparedPayment(), genesisKeys(t))
	require.ErrorIs(t, err, ErrBusy)

	_, err = s.Dispatch(context.Background(), (&fakeLedger{}).dialer(), func(context.Context, ledger.Client) (models.PreparedTransaction, error) {
		t.Error("second prepare must not run")
		return models.PreparedTransaction{}, nil
	}, genesisKeys(t))
	require.ErrorIs(t, err, ErrBusy)

	close(release)
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, models.StatusValidated, r.out.Status)
	assert.False(t, s.Busy())
	assert.Equal(t, 1, fl.closed)
}

func TestTxSubmitter_DispatchAbandoned(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	fl := blockingLedger(entered, release)
	rec := &memRecorder{}

	var sent atomic.Int32
	s := newSubmitter(rec, FuncNotifier{Sent: func(context.Context, models.SentEvent) { sent.Add(1) }})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-entered
		cancel()
	}()

	_, err := s.Dispatch(ctx, fl.dialer(), func(context.Context, ledger.Client) (models.PreparedTransaction, error) {
		return preparedPayment(), nil
	}, genesisKeys(t))
	require.ErrorIs(t, err, ErrAbandoned)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, s.Busy())

	close(release)
	require.Eventually(t, func() bool { return !s.Busy() }, time.Second, time.Millisecond)

	require.Len(t, rec.submitted, 1)
	got, ok := rec.Outcome(rec.submitted[0].Hash)
	require.True(t, ok)
	assert.Equal(t, models.StatusValidated, got.Status)
	assert.Equal(t, int32(1), sent.Load())
}

func TestTxSubmitter_DispatchConnectFailure(t *testing.T) {
	s := newSubmitter(nil, nil)
	dial := func(context.Context) (ledger.Client, error) { return nil, errors.New("refused") }

	_, err := s.Dispatch(context.Background(), dial, func(context.Context, ledger.Client) (models.PreparedTransaction, error) {
		t.Error("prepare must not run without a client")
		return models.PreparedTransaction{}, nil
	}, genesisKeys(t))

	require.ErrorIs(t, err, ErrPrepare)
	require.ErrorIs(t, err, ledger.ErrUnavailable)
	var pe *PrepareError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StepConnect, pe.Step)
	assert.False(t, s.Busy())
}

func TestTxSubmitter_DispatchPrepareFailureReleases(t *testing.T) {
	s := newSubmitter(nil, nil)
	fl := &fakeLedger{info: func(string, bool) (ledger.AccountInfo, error) {
		return ledger.AccountInfo{}, ledger.ErrAccountNotFound
	}}
	b := NewTxBuilder(0, logging.Nop())

	_, err := s.Dispatch(context.Background(), fl.dialer(), func(ctx context.Context, c ledger.Client) (models.PreparedTransaction, error) {
		return b.Prepare(ctx, c, genesisAddress, payment(1))
	}, genesisKeys(t))
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
	assert.NotContains(t, fl.Calls(), "submit")
	assert.False(t, s.Busy())
	assert.Equal(t, 1, fl.closed)
}

func TestTxSubmitter_Cancel(t *testing.T) {
	s := NewTxSubmitter(keys.Secp256k1{}, PollPolicy{Interval: time.Hour, MaxAttempts: 20}, nil, nil, logging.Nop())
	fl := &fakeLedger{}

	done := make(chan models.Outcome, 1)
	go func() {
		out, err := s.Dispatch(context.Background(), fl.dialer(), func(context.Context, ledger.Client) (models.PreparedTransaction, error) {
			return preparedPayment(), nil
		}, genesisKeys(t))
		assert.NoError(t, err)
		done <- out
	}()

	require.Eventually(t, func() bool { return len(fl.Blobs()) == 1 }, time.Second, time.Millisecond)
	s.Cancel()

	select {
	case out := <-done:
		assert.Equal(t, models.StatusPending, out.Status)
	case <-time.After(time.Second):
		t.Fatal("cancel did not stop polling")
	}
}

func TestTxSubmitter_ResubmitKeepsHash(t *testing.T) {
	fl := &fakeLedger{}
	s := newSubmitter(nil, nil)

	first, err := s.Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, first.Status)

	fl.status = fl.validatedAfterSends(2, "tesSUCCESS")
	again, err := s.Resubmit(context.Background(), fl, fl.Blobs()[0], 1200)
	require.NoError(t, err)
	assert.Equal(t, first.Hash, again.Hash)
	assert.Equal(t, models.StatusValidated, again.Status)

	blobs := fl.Blobs()
	require.Len(t, blobs, 2)
	assert.Equal(t, blobs[0], blobs[1])
}

func TestTxSubmitter_ResubmitAlreadyValidated(t *testing.T) {
	for _, code := range []string{"tesSUCCESS", "tecUNFUNDED_PAYMENT"} {
		t.Run(code, func(t *testing.T) {
			rec := &memRecorder{}
			fl := &fakeLedger{}
			s := newSubmitter(rec, nil)

			first, err := s.Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
			require.NoError(t, err)
			require.Equal(t, models.StatusPending, first.Status)

			fl.status = validatedAt(1, code)
			fl.submit = func(string) (ledger.SubmitResult, error) {
				return ledger.SubmitResult{EngineResult: "tefPAST_SEQ"}, nil
			}
			got, err := s.Resubmit(context.Background(), fl, fl.Blobs()[0], 1200)
			require.NoError(t, err)
			assert.Equal(t, outcomeOf(ledger.TxStatus{ResultCode: code}, first.Hash), got)
			assert.Len(t, fl.Blobs(), 1, "a validated blob is not sent again")

			stored, ok := rec.Outcome(first.Hash)
			require.True(t, ok)
			assert.Equal(t, got, stored)
		})
	}
}

func TestTxSubmitter_ResubmitUsedSequenceIsPolled(t *testing.T) {
	for _, code := range []string{"tefPAST_SEQ", "tefALREADY", "tefMAX_LEDGER"} {
		t.Run(code, func(t *testing.T) {
			fl := &fakeLedger{}
			s := newSubmitter(nil, nil)

			first, err := s.Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
			require.NoError(t, err)

			// Unknown when asked before the resend, validated once polled.
			fl.status = fl.validatedAfterSends(2, "tesSUCCESS")
			fl.submit = func(string) (ledger.SubmitResult, error) {
				return ledger.SubmitResult{EngineResult: code, EngineResultMessage: "sequence used"}, nil
			}
			got, err := s.Resubmit(context.Background(), fl, fl.Blobs()[0], 0)
			require.NoError(t, err)
			assert.Equal(t, models.Validated("tesSUCCESS", first.Hash), got)
		})
	}
}

func TestTxSubmitter_ResubmitMalformedIsRejected(t *testing.T) {
	fl := &fakeLedger{}
	s := newSubmitter(nil, nil)

	_, err := s.Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
	require.NoError(t, err)

	fl.submit = func(string) (ledger.SubmitResult, error) {
		return ledger.SubmitResult{EngineResult: "temMALFORMED"}, nil
	}
	_, err = s.Resubmit(context.Background(), fl, fl.Blobs()[0], 0)
	require.ErrorIs(t, err, ErrSubmit)
}

func TestTxSubmitter_ResubmitExpired(t *testing.T) {
	fl := &fakeLedger{}
	s := newSubmitter(nil, nil)

	_, err := s.Submit(context.Background(), fl, preparedPayment(), genesisKeys(t))
	require.NoError(t, err)

	fl.validated = func() (uint32, error) { return 1201, nil }
	_, err = s.Resubmit(context.Background(), fl, fl.Blobs()[0], 1200)
	require.ErrorIs(t, err, ErrExpired)
	assert.Len(t, fl.Blobs(), 1)
	assert.False(t, s.Busy())

	// At the horizon it can still be included.
	fl.validated = func() (uint32, error) { return 1200, nil }
	out, err := s.Resubmit(context.Background(), fl, fl.Blobs()[0], 1200)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, out.Status)
	assert.Len(t, fl.Blobs(), 2)
}
