package txcodec

import (
	"fmt"
	"math"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

// FromPrepared maps a prepared intent onto its ledger transaction.
func FromPrepared(p models.PreparedTransaction) (*Transaction, error) {
	tx := &Transaction{
		Account:            p.Account,
		Sequence:           p.Sequence,
		Fee:                p.FeeDrops,
		LastLedgerSequence: p.LastValidLedger,
	}
	if len(p.Memo) > 0 {
		tx.Memos = [][]byte{p.Memo}
	}

	switch p.EffectiveKind() {
	case models.KindPayment:
		tx.TransactionType = TypePayment
		tx.Destination = p.Destination
		tx.Amount = p.Amount
		if p.DestinationTag != nil {
			tag := *p.DestinationTag
			if tag < 0 || tag > math.MaxUint32 {
				return nil, fmt.Errorf("destination tag %d out of range", tag)
			}
			v := uint32(tag)
			tx.DestinationTag = &v
		}

	case models.KindTrustSet:
		tx.TransactionType = TypeTrustSet
		limit := p.Amount
		tx.LimitAmount = &limit
		tx.Flags = trustFlags(p.TrustFlags)
		tx.QualityIn = p.QualityIn
		tx.QualityOut = p.QualityOut

	default:
		return nil, fmt.Errorf("unsupported intent kind %q", p.Kind)
	}

	return tx, nil
}

func trustFlags(f models.TrustFlags) uint32 {
	var flags uint32
	if f.NoRipple {
		flags |= TfSetNoRipple
	}
	if f.ClearNoRipple {
		flags |= TfClearNoRipple
	}
	if f.Freeze {
		flags |= TfSetFreeze
	}
	if f.ClearFreeze {
		flags |= TfClearFreeze
	}
	if f.Auth {
		flags |= TfSetfAuth
	}
	return flags
}
