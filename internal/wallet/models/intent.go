package models

import "fmt"

// TxKind selects the transaction type an intent produces.
type TxKind string

const (
	KindPayment  TxKind = "payment"
	KindTrustSet TxKind = "trust_set"
)

// TrustFlags are the optional switches of a trust-line update.
type TrustFlags struct {
	NoRipple      bool
	ClearNoRipple bool
	Freeze        bool
	ClearFreeze   bool
	Auth          bool
}

// TransactionIntent is what the user asked for. Treat it as immutable once
// handed to the builder.
//
// For payments Destination and Amount are required. For trust lines Amount
// is the limit: an issued amount whose Issuer is the counterparty.
type TransactionIntent struct {
	Kind           TxKind
	Destination    string
	Amount         Amount
	DestinationTag *int64
	Memo           []byte

	TrustFlags TrustFlags
	QualityIn  *uint32
	QualityOut *uint32
}

func (i TransactionIntent) EffectiveKind() TxKind {
	if i.Kind == "" {
		return KindPayment
	}
	return i.Kind
}

func (i TransactionIntent) String() string {
	switch i.EffectiveKind() {
	case KindTrustSet:
		return fmt.Sprintf("trust %s", i.Amount)
	default:
		s := fmt.Sprintf("pay %s to %s", i.Amount, i.Destination)
		if i.DestinationTag != nil {
			s += fmt.Sprintf(" tag %d", *i.DestinationTag)
		}
		return s
	}
}

// PreparedTransaction is an intent resolved against the network. It is
// built only by the transaction builder, after validation.
type PreparedTransaction struct {
	TransactionIntent

	Account         string
	Sequence        uint32
	FeeDrops        uint64
	LastValidLedger uint32
	// ObservedLedger is the ledger index seen at build time.
	ObservedLedger uint32
}
