package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/shopspring/decimal"
)

// rippleEpoch is 2000-01-01T00:00:00Z in Unix seconds.
const rippleEpoch = 946684800

// RippleTime converts ledger close-time seconds to wall time.
func RippleTime(seconds int64) time.Time {
	return time.Unix(seconds+rippleEpoch, 0).UTC()
}

type txJSON struct {
	TransactionType string          `json:"TransactionType"`
	Account         string          `json:"Account"`
	Destination     string          `json:"Destination"`
	Amount          json.RawMessage `json:"Amount"`
	Date            int64           `json:"date"`
	Hash            string          `json:"hash"`
	LedgerIndex     uint32          `json:"ledger_index"`
}

// accountTxEntry accepts both the v1 ("tx") and v2 ("tx_json") layouts.
type accountTxEntry struct {
	Tx     *txJSON `json:"tx"`
	TxJSON *txJSON `json:"tx_json"`
	Meta   struct {
		TransactionResult string          `json:"TransactionResult"`
		DeliveredAmount   json.RawMessage `json:"delivered_amount"`
	} `json:"meta"`
	Hash        string `json:"hash"`
	LedgerIndex uint32 `json:"ledger_index"`
	Validated   bool   `json:"validated"`
}

func (e accountTxEntry) record(owner string) (models.ActivityRecord, error) {
	tx := e.TxJSON
	if tx == nil {
		tx = e.Tx
	}
	if tx == nil {
		return models.ActivityRecord{}, errors.New("entry has no transaction")
	}

	hash := e.Hash
	if hash == "" {
		hash = tx.Hash
	}
	if hash == "" {
		return models.ActivityRecord{}, errors.New("entry has no hash")
	}

	rawAmount := e.Meta.DeliveredAmount
	if len(rawAmount) == 0 || bytes.Equal(rawAmount, []byte(`"unavailable"`)) {
		rawAmount = tx.Amount
	}
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return models.ActivityRecord{}, fmt.Errorf("tx %s: %w", hash, err)
	}

	dir := models.Classify(owner, tx.Account, tx.Destination)
	counterparty := tx.Destination
	if dir == models.DirectionIncoming || counterparty == "" {
		counterparty = tx.Account
	}

	ledgerIndex := e.LedgerIndex
	if ledgerIndex == 0 {
		ledgerIndex = tx.LedgerIndex
	}

	rec := models.ActivityRecord{
		Hash:            hash,
		TxType:          tx.TransactionType,
		Source:          tx.Account,
		Destination:     tx.Destination,
		Direction:       dir,
		DeliveredAmount: amount,
		Counterparty:    counterparty,
		LedgerIndex:     ledgerIndex,
		Result:          e.Meta.TransactionResult,
		Validated:       e.Validated,
	}
	if tx.Date > 0 {
		rec.LedgerTime = RippleTime(tx.Date)
	}
	return rec, nil
}

// ParseAmount reads a JSON amount: a drops string, or an issued amount
// object. An absent amount is zero drops.
func ParseAmount(raw json.RawMessage) (models.Amount, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.NativeAmount(0), nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return models.Amount{}, err
		}
		drops, err := models.ParseDrops(s)
		if err != nil {
			return models.Amount{}, err
		}
		return models.NativeAmount(drops), nil
	}

	var obj struct {
		Currency string `json:"currency"`
		Issuer   string `json:"issuer"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return models.Amount{}, err
	}
	v, err := decimal.NewFromString(obj.Value)
	if err != nil {
		return models.Amount{}, fmt.Errorf("%w: value %q", models.ErrInvalidAmount, obj.Value)
	}
	return models.IssuedAmount(v, obj.Currency, obj.Issuer), nil
}
