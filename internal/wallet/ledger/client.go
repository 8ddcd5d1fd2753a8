// Package ledger is the wallet's view of a ledger node: a small Client
// interface and a websocket implementation of it.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

var (
	ErrUnavailable     = errors.New("ledger node unavailable")
	ErrAccountNotFound = errors.New("account not found")
	ErrTxNotFound      = errors.New("transaction not found")
)

// DefaultBaseFee is used when the node does not report a base fee.
const DefaultBaseFee = 10

// Fee is the node's fee estimate in drops.
type Fee struct {
	BaseFee       uint64
	OpenLedgerFee uint64
}

// AccountInfo is the subset of account_info the wallet needs.
type AccountInfo struct {
	Balance  uint64
	Sequence uint32
}

// SubmitResult is the node's preliminary answer to a submission. It says
// whether the blob was accepted for relay, not whether it was included.
type SubmitResult struct {
	EngineResult        string
	EngineResultMessage string
	Hash                string
}

// TxStatus is one observation of a submitted transaction.
type TxStatus struct {
	Hash       string
	Validated  bool
	ResultCode string
	// LedgerIndex is set once the transaction is in a ledger.
	LedgerIndex uint32
}

// Client is the ledger capability used by the wallet. Implementations
// hold a connection and must be closed.
type Client interface {
	Fee(ctx context.Context) (Fee, error)
	CurrentLedgerIndex(ctx context.Context) (uint32, error)
	// ValidatedLedgerIndex returns the newest ledger the network has
	// validated. Unlike the open ledger, a transaction whose last valid
	// ledger is below it can no longer be included.
	ValidatedLedgerIndex(ctx context.Context) (uint32, error)
	// AccountInfo reads the account from the current (open) ledger when
	// validated is false, otherwise from the last validated ledger.
	AccountInfo(ctx context.Context, address string, validated bool) (AccountInfo, error)
	Submit(ctx context.Context, blobHex string) (SubmitResult, error)
	TransactionStatus(ctx context.Context, hash string) (TxStatus, error)
	AccountTransactions(ctx context.Context, address string, limit int) ([]models.ActivityRecord, error)
	AccountLines(ctx context.Context, address string) ([]models.TrustLine, error)
	Ping(ctx context.Context) error
	Close() error
}

// Dialer opens a connected Client.
type Dialer func(ctx context.Context) (Client, error)

// WithClient dials, runs fn and closes the client on every path.
//
// A dial failure is wrapped in ErrUnavailable so callers can tell "no
// node" apart from a failed request. When fn succeeds but Close fails,
// the close error is returned; otherwise fn's error wins.
//
//	err := ledger.WithClient(ctx, dial, func(ctx context.Context, c ledger.Client) error {
//	    idx, err := c.ValidatedLedgerIndex(ctx)
//	    ...
//	})
func WithClient(ctx context.Context, dial Dialer, fn func(ctx context.Context, c Client) error) (err error) {
	c, err := dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(ctx, c)
}

// Sequence returns the next sequence number of address from the open ledger.
func Sequence(ctx context.Context, c Client, address string) (uint32, error) {
	info, err := c.AccountInfo(ctx, address, false)
	if err != nil {
		return 0, err
	}
	return info.Sequence, nil
}

// Balance returns the validated balance in drops.
func Balance(ctx context.Context, c Client, address string) (uint64, error) {
	info, err := c.AccountInfo(ctx, address, true)
	if err != nil {
		return 0, err
	}
	return info.Balance, nil
}
