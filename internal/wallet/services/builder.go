package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/keys"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/ledger"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/txcodec"
)

// DefaultExpiryMargin is how many ledgers past the observed one a
// transaction stays valid.
const DefaultExpiryMargin = 200

// MaxMemoSize bounds the memo payload.
const MaxMemoSize = 1024

// TxBuilder resolves intents against the network.
type TxBuilder struct {
	expiryMargin uint32
	log          logging.Logger
}

func NewTxBuilder(expiryMargin uint32, log logging.Logger) *TxBuilder {
	if expiryMargin == 0 {
		expiryMargin = DefaultExpiryMargin
	}
	return &TxBuilder{expiryMargin: expiryMargin, log: log.With("module", "builder")}
}

// Prepare queries fee, current ledger and sequence, in that order, and
// merges them with intent. It never returns a partial result: on error the
// PreparedTransaction is zero and the error is a *PrepareError.
func (b *TxBuilder) Prepare(ctx context.Context, c ledger.Client, account string, intent models.TransactionIntent) (models.PreparedTransaction, error) {
	if err := ValidateIntent(account, intent); err != nil {
		return models.PreparedTransaction{}, err
	}

	fee, err := c.Fee(ctx)
	if err != nil {
		return models.PreparedTransaction{}, &PrepareError{Step: StepFee, Reason: "network unreachable", Err: err}
	}
	feeDrops := EffectiveFee(fee)

	current, err := c.CurrentLedgerIndex(ctx)
	if err != nil {
		return models.PreparedTransaction{}, &PrepareError{Step: StepLedger, Reason: "network unreachable", Err: err}
	}
	if uint64(current)+uint64(b.expiryMargin) > math.MaxUint32 {
		return models.PreparedTransaction{}, &PrepareError{Step: StepLedger, Reason: "ledger index out of range"}
	}

	seq, err := ledger.Sequence(ctx, c, account)
	if err != nil {
		reason := "network unreachable"
		if errors.Is(err, ledger.ErrAccountNotFound) {
			reason = "account not found or unfunded"
		}
		return models.PreparedTransaction{}, &PrepareError{Step: StepSequence, Reason: reason, Err: err}
	}

	p := models.PreparedTransaction{
		TransactionIntent: intent,
		Account:           account,
		Sequence:          seq,
		FeeDrops:          feeDrops,
		LastValidLedger:   current + b.expiryMargin,
		ObservedLedger:    current,
	}

	b.log.Debug(ctx, "transaction prepared",
		"kind", intent.EffectiveKind(),
		"fee", feeDrops, "base_fee", fee.BaseFee, "open_ledger_fee", fee.OpenLedgerFee,
		"ledger", current, "last_valid_ledger", p.LastValidLedger, "sequence", seq)

	return p, nil
}

// EffectiveFee is the larger of the open-ledger fee and the base fee floor.
func EffectiveFee(f ledger.Fee) uint64 {
	floor := f.BaseFee
	if floor == 0 {
		floor = ledger.DefaultBaseFee
	}
	return max(f.OpenLedgerFee, floor)
}

// ValidateIntent checks an intent before any network query.
func ValidateIntent(account string, i models.TransactionIntent) error {
	invalid := func(format string, args ...any) error {
		return &PrepareError{Step: StepValidate, Reason: "invalid intent: " + fmt.Sprintf(format, args...)}
	}

	if !keys.IsValidAddress(account) {
		return invalid("source account is not a valid address")
	}
	if len(i.Memo) > MaxMemoSize {
		return invalid("memo longer than %d bytes", MaxMemoSize)
	}

	switch i.EffectiveKind() {
	case models.KindPayment:
		if i.Destination == "" {
			return invalid("destination is empty")
		}
		if !keys.IsValidAddress(i.Destination) {
			return invalid("destination is not a valid address")
		}
		if i.Destination == account && i.Amount.IsNative() {
			return invalid("destination equals source")
		}
		if i.Amount.IsNative() {
			if i.Amount.Drops == 0 {
				return invalid("amount must be greater than zero")
			}
		} else {
			if !i.Amount.Value.IsPositive() {
				return invalid("amount must be greater than zero")
			}
			if err := validateIssued(i.Amount); err != nil {
				return invalid("%v", err)
			}
		}
		if i.DestinationTag != nil && (*i.DestinationTag < 0 || *i.DestinationTag > math.MaxUint32) {
			return invalid("destination tag %d does not fit 32 bits", *i.DestinationTag)
		}

	case models.KindTrustSet:
		if i.Amount.IsNative() {
			return invalid("trust line limit needs a currency and issuer")
		}
		if i.Amount.Value.IsNegative() {
			return invalid("trust line limit is negative")
		}
		if err := validateIssued(i.Amount); err != nil {
			return invalid("%v", err)
		}
		if i.Amount.Issuer == account {
			return invalid("cannot trust your own issuance")
		}
		if i.TrustFlags.NoRipple && i.TrustFlags.ClearNoRipple {
			return invalid("no-ripple set and cleared together")
		}
		if i.TrustFlags.Freeze && i.TrustFlags.ClearFreeze {
			return invalid("freeze set and cleared together")
		}

	default:
		return invalid("unknown kind %q", i.Kind)
	}
	return nil
}

func validateIssued(a models.Amount) error {
	if !keys.IsValidAddress(a.Issuer) {
		return errors.New("issuer is not a valid address")
	}
	if _, err := txcodec.EncodeAmount(a); err != nil {
		return err
	}
	return nil
}
