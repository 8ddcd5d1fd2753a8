package models

import "time"

// Direction classifies a transaction relative to the wallet owner.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionUnknown  Direction = "unknown"
)

// Classify returns the direction of a transfer from source to destination
// as seen by owner.
func Classify(owner, source, destination string) Direction {
	switch {
	case destination == owner && source != owner:
		return DirectionIncoming
	case source == owner && destination != owner:
		return DirectionOutgoing
	default:
		return DirectionUnknown
	}
}

// ActivityRecord is one history entry as fetched from the ledger.
type ActivityRecord struct {
	Hash            string
	TxType          string
	Source          string
	Destination     string
	Direction       Direction
	DeliveredAmount Amount
	Counterparty    string
	LedgerIndex     uint32
	LedgerTime      time.Time
	Result          string
	Validated       bool
}

// NewIncomingEvent is emitted once for each newly observed incoming transfer.
type NewIncomingEvent struct {
	Hash   string
	Amount Amount
	From   string
}

// SentEvent reports the outcome of a transaction this wallet submitted.
type SentEvent struct {
	Intent  TransactionIntent
	Outcome Outcome
}

// TrustLine is a credit relationship between the wallet and a peer.
type TrustLine struct {
	Peer         string
	Currency     string
	Balance      string
	Limit        string
	LimitPeer    string
	NoRipple     bool
	NoRipplePeer bool
	Freeze       bool
	FreezePeer   bool
}

// AccountState is the summary shown after a refresh.
type AccountState struct {
	Address  string
	Balance  uint64
	Funded   bool
	Sequence uint32
	History  []ActivityRecord
}
