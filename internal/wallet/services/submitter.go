package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/keys"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/ledger"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/txcodec"
)

const resultSuccess = "tesSUCCESS"

// PollPolicy bounds the wait for validation.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 3 * time.Second, MaxAttempts: 20}
}

// SubmissionRecorder persists what was sent and how it ended.
type SubmissionRecorder interface {
	RecordSubmitted(ctx context.Context, s models.Submission) error
	RecordOutcome(ctx context.Context, hash string, o models.Outcome) error
}

// PrepareFunc builds the transaction once a client is connected.
type PrepareFunc func(ctx context.Context, c ledger.Client) (models.PreparedTransaction, error)

// TxSubmitter signs, submits and confirms transactions for one wallet.
// At most one submission is in flight at a time.
type TxSubmitter struct {
	signer   keys.Signer
	policy   PollPolicy
	recorder SubmissionRecorder
	notifier Notifier
	log      logging.Logger

	// hardTimeout caps a detached submission, so the busy flag is always
	// released eventually.
	hardTimeout time.Duration

	busy atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewTxSubmitter(signer keys.Signer, policy PollPolicy, recorder SubmissionRecorder, notifier Notifier, log logging.Logger) *TxSubmitter {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPollPolicy().MaxAttempts
	}
	if policy.Interval <= 0 {
		policy.Interval = DefaultPollPolicy().Interval
	}
	return &TxSubmitter{
		signer:      signer,
		policy:      policy,
		recorder:    recorder,
		notifier:    notifier,
		log:         log.With("module", "submitter"),
		hardTimeout: time.Duration(policy.MaxAttempts)*policy.Interval + 2*time.Minute,
	}
}

// Busy reports whether a submission is in flight.
func (s *TxSubmitter) Busy() bool {
	return s.busy.Load()
}

func (s *TxSubmitter) acquire() error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (s *TxSubmitter) release() {
	s.busy.Store(false)
}

// Submit signs, submits and polls p on c and returns the terminal outcome.
// It runs in the caller's goroutine and context. A Pending outcome is not
// an error.
func (s *TxSubmitter) Submit(ctx context.Context, c ledger.Client, p models.PreparedTransaction, kp keys.KeyPair) (models.Outcome, error) {
	if err := s.acquire(); err != nil {
		return models.Outcome{}, err
	}
	defer s.release()

	return s.run(ctx, c, p, kp)
}

// Dispatch connects, prepares, signs, submits and polls in a background
// goroutine that outlives ctx. The busy flag is taken before preparing, so
// no second transaction can be built against the same sequence.
//
// If ctx ends first, Dispatch returns ErrAbandoned and the submission goes
// on until it reaches an outcome, the hard timeout, or Cancel. Dispatch
// takes ownership of kp and wipes it when done.
func (s *TxSubmitter) Dispatch(ctx context.Context, dial ledger.Dialer, prepare PrepareFunc, kp keys.KeyPair) (models.Outcome, error) {
	if err := s.acquire(); err != nil {
		kp.Wipe()
		return models.Outcome{}, err
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.hardTimeout)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	type result struct {
		outcome models.Outcome
		err     error
	}
	done := make(chan result, 1)

	go func() {
		var r result
		r.outcome, r.err = s.detached(runCtx, dial, prepare, kp)

		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
		s.release()

		done <- r
	}()

	select {
	case r := <-done:
		return r.outcome, r.err
	case <-ctx.Done():
		return models.Outcome{}, fmt.Errorf("%w: %w", ErrAbandoned, ctx.Err())
	}
}

func (s *TxSubmitter) detached(ctx context.Context, dial ledger.Dialer, prepare PrepareFunc, kp keys.KeyPair) (models.Outcome, error) {
	defer kp.Wipe()

	connect := func(ctx context.Context) (ledger.Client, error) {
		c, err := dial(ctx)
		if err != nil {
			return nil, &PrepareError{Step: StepConnect, Reason: "network unreachable", Err: err}
		}
		return c, nil
	}

	var outcome models.Outcome
	err := ledger.WithClient(ctx, connect, func(ctx context.Context, c ledger.Client) error {
		p, err := prepare(ctx, c)
		if err != nil {
			return err
		}
		outcome, err = s.run(ctx, c, p, kp)
		if err == nil && s.notifier != nil {
			s.notifier.NotifySent(ctx, models.SentEvent{Intent: p.TransactionIntent, Outcome: outcome})
		}
		return err
	})
	return outcome, err
}

// Cancel stops a detached submission. Its outcome will be Pending unless
// it was already decided.
func (s *TxSubmitter) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *TxSubmitter) run(ctx context.Context, c ledger.Client, p models.PreparedTransaction, kp keys.KeyPair) (models.Outcome, error) {
	tx, err := txcodec.FromPrepared(p)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("encode: %w", err)
	}

	signed, err := txcodec.Sign(tx, s.signer, kp)
	if err != nil {
		return models.Outcome{}, err
	}

	log := s.log.With("hash", signed.Hash, "sequence", p.Sequence)

	s.record(ctx, log, func() error {
		return s.recorder.RecordSubmitted(ctx, models.Submission{
			Hash:            signed.Hash,
			Account:         p.Account,
			Sequence:        p.Sequence,
			LastValidLedger: p.LastValidLedger,
			Blob:            signed.Blob,
			Status:          models.StatusSubmitted,
		})
	})

	outcome, err := s.submitAndPoll(ctx, log, c, signed.Blob, signed.Hash, false)
	if err != nil {
		var se *SubmitError
		if errors.As(err, &se) {
			s.record(ctx, log, func() error {
				return s.recorder.RecordOutcome(ctx, signed.Hash, models.Rejected(se.EngineResult, signed.Hash))
			})
		}
		return models.Outcome{}, err
	}

	s.record(ctx, log, func() error { return s.recorder.RecordOutcome(ctx, signed.Hash, outcome) })
	return outcome, nil
}

// Resubmit sends an already signed blob again and polls it. The hash is
// unchanged, so this cannot produce a second transaction.
//
// The network is asked first: a blob that was already validated returns
// that outcome without being sent. When the transaction is unknown and
// the validated ledger is past lastValid, Resubmit returns ErrExpired; a
// zero lastValid skips that check. A tef result on the resend means the
// sequence was already consumed, by this blob or by another, so it is
// polled instead of being reported as a rejection.
func (s *TxSubmitter) Resubmit(ctx context.Context, c ledger.Client, blobHex string, lastValid uint32) (models.Outcome, error) {
	if err := s.acquire(); err != nil {
		return models.Outcome{}, err
	}
	defer s.release()

	hash, err := txcodec.HashHexBlob(blobHex)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("blob: %w", err)
	}
	log := s.log.With("hash", hash, "resubmit", true)

	st, err := c.TransactionStatus(ctx, hash)
	switch {
	case err == nil && st.Validated:
		outcome := outcomeOf(st, hash)
		log.Info(ctx, "transaction already validated", "result", st.ResultCode)
		s.record(ctx, log, func() error { return s.recorder.RecordOutcome(ctx, hash, outcome) })
		return outcome, nil
	case errors.Is(err, ledger.ErrTxNotFound) && lastValid > 0:
		validated, err := c.ValidatedLedgerIndex(ctx)
		if err != nil {
			return models.Outcome{}, err
		}
		if validated > lastValid {
			return models.Outcome{}, fmt.Errorf("%w: validated ledger %d > %d", ErrExpired, validated, lastValid)
		}
	case err != nil && !errors.Is(err, ledger.ErrTxNotFound):
		log.Warn(ctx, "status query before resend failed", "error", err)
	}

	outcome, err := s.submitAndPoll(ctx, log, c, blobHex, hash, true)
	if err != nil {
		return models.Outcome{}, err
	}
	s.record(ctx, log, func() error { return s.recorder.RecordOutcome(ctx, hash, outcome) })
	return outcome, nil
}

func (s *TxSubmitter) submitAndPoll(ctx context.Context, log logging.Logger, c ledger.Client, blob, hash string, resend bool) (models.Outcome, error) {
	res, err := c.Submit(ctx, blob)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("submit: %w", err)
	}

	log.Info(ctx, "transaction submitted", "engine_result", res.EngineResult)
	if res.Hash != "" && !strings.EqualFold(res.Hash, hash) {
		log.Warn(ctx, "node reported a different hash", "node_hash", res.Hash)
	}

	if resend && strings.HasPrefix(res.EngineResult, "tef") {
		log.Info(ctx, "sequence already used, polling for the original", "engine_result", res.EngineResult)
		return s.poll(ctx, log, c, hash), nil
	}
	if rejectedOutright(res.EngineResult) {
		return models.Outcome{}, &SubmitError{EngineResult: res.EngineResult, Message: res.EngineResultMessage, Hash: hash}
	}

	return s.poll(ctx, log, c, hash), nil
}

// outcomeOf maps a validated status to its final outcome.
func outcomeOf(st ledger.TxStatus, hash string) models.Outcome {
	if st.ResultCode == resultSuccess {
		return models.Validated(st.ResultCode, hash)
	}
	return models.Rejected(st.ResultCode, hash)
}

// rejectedOutright reports engine results that mean the blob will never be
// included: malformed (tem), failed (tef) or local (tel).
func rejectedOutright(engineResult string) bool {
	for _, p := range []string{"tem", "tef", "tel"} {
		if strings.HasPrefix(engineResult, p) {
			return true
		}
	}
	return false
}

// poll waits for validation. Query errors are logged and do not end the
// loop. Running out of attempts, or ctx ending, yields Pending.
func (s *TxSubmitter) poll(ctx context.Context, log logging.Logger, c ledger.Client, hash string) models.Outcome {
	t := time.NewTimer(s.policy.Interval)
	defer t.Stop()

	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			log.Warn(ctx, "polling stopped", "attempt", attempt, "reason", ctx.Err())
			return models.Pending(hash)
		case <-t.C:
		}

		st, err := c.TransactionStatus(ctx, hash)
		switch {
		case errors.Is(err, ledger.ErrTxNotFound):
			log.Debug(ctx, "transaction not found yet", "attempt", attempt)
		case err != nil:
			log.Warn(ctx, "poll query failed", "attempt", attempt, "error", err)
		case st.Validated:
			log.Info(ctx, "transaction validated", "attempt", attempt, "result", st.ResultCode)
			return outcomeOf(st, hash)
		default:
			log.Debug(ctx, "transaction not validated yet", "attempt", attempt)
		}

		t.Reset(s.policy.Interval)
	}

	log.Info(ctx, "validation not observed while polling", "attempts", s.policy.MaxAttempts)
	return models.Pending(hash)
}

func (s *TxSubmitter) record(ctx context.Context, log logging.Logger, fn func() error) {
	if s.recorder == nil {
		return
	}
	if err := fn(); err != nil {
		log.Error(ctx, "failed to record submission", "error", err)
	}
}
