package services

import (
	"errors"
	"fmt"
)

var (
	ErrPrepare = errors.New("prepare failed")
	ErrSubmit  = errors.New("submission rejected")
	// ErrBusy means another submission for this wallet is still in flight.
	ErrBusy = errors.New("a submission is already in flight")
	// ErrAbandoned is returned to a caller that stopped waiting. The
	// submission keeps running and its outcome is recorded.
	ErrAbandoned = errors.New("stopped waiting for the submission outcome")
)

// Prepare steps.
const (
	StepValidate = "validate"
	StepFee      = "fee"
	StepLedger   = "ledger"
	StepSequence = "sequence"
	StepConnect  = "connect"
)

// PrepareError says which prepare step failed and why. It matches
// ErrPrepare and the underlying cause with errors.Is.
type PrepareError struct {
	Step   string
	Reason string
	Err    error
}

func (e *PrepareError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("prepare %s: %s: %v", e.Step, e.Reason, e.Err)
	}
	return fmt.Sprintf("prepare %s: %s", e.Step, e.Reason)
}

func (e *PrepareError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPrepare}
	}
	return []error{ErrPrepare, e.Err}
}

// SubmitError is an outright rejection of the blob by the node. A new
// prepared transaction is needed.
type SubmitError struct {
	EngineResult string
	Message      string
	Hash         string
	Err          error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit %s: %s %s", e.Hash, e.EngineResult, e.Message)
}

func (e *SubmitError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSubmit}
	}
	return []error{ErrSubmit, e.Err}
}

var (
	ErrWalletExists   = errors.New("wallet file already exists")
	ErrBadWalletName  = errors.New("invalid wallet name")
	ErrInvalidSecret  = errors.New("secret is neither a family seed nor a mnemonic")
	ErrNotOwn         = errors.New("submission belongs to another account")
	ErrExpired        = errors.New("transaction expired: last valid ledger passed")
	ErrBackupDisabled = errors.New("backup is not configured")
)
