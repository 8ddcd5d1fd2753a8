package models

import (
	"fmt"
	"time"
)

// OutcomeStatus is the terminal state of a submission.
type OutcomeStatus string

const (
	StatusValidated OutcomeStatus = "validated"
	StatusRejected  OutcomeStatus = "rejected"
	// StatusPending means validation was not observed before polling
	// stopped. It is neither success nor failure.
	StatusPending OutcomeStatus = "pending"
	// StatusSubmitted is stored while a submission is still being polled.
	StatusSubmitted OutcomeStatus = "submitted"
)

// Outcome is the result of a submission.
type Outcome struct {
	Status     OutcomeStatus
	ResultCode string
	Hash       string
}

func Validated(code, hash string) Outcome {
	return Outcome{Status: StatusValidated, ResultCode: code, Hash: hash}
}

func Rejected(code, hash string) Outcome {
	return Outcome{Status: StatusRejected, ResultCode: code, Hash: hash}
}

func Pending(hash string) Outcome {
	return Outcome{Status: StatusPending, Hash: hash}
}

func (o Outcome) String() string {
	if o.Status == StatusPending {
		return fmt.Sprintf("pending (%s)", o.Hash)
	}
	return fmt.Sprintf("%s %s (%s)", o.Status, o.ResultCode, o.Hash)
}

// Submission is the locally stored record of a signed blob sent to the network.
type Submission struct {
	Hash            string
	Account         string
	Sequence        uint32
	LastValidLedger uint32
	Blob            string
	Status          OutcomeStatus
	ResultCode      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
