// Package txcodec serializes ledger transactions into the canonical binary
// format, and signs and hashes them.
package txcodec

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/keys"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

// TxType is the numeric transaction type.
type TxType uint16

const (
	TypePayment  TxType = 0
	TypeTrustSet TxType = 20
)

func (t TxType) String() string {
	switch t {
	case TypePayment:
		return "Payment"
	case TypeTrustSet:
		return "TrustSet"
	}
	return fmt.Sprintf("TxType(%d)", uint16(t))
}

// TrustSet flags.
const (
	TfSetfAuth      uint32 = 0x00010000
	TfSetNoRipple   uint32 = 0x00020000
	TfClearNoRipple uint32 = 0x00040000
	TfSetFreeze     uint32 = 0x00100000
	TfClearFreeze   uint32 = 0x00200000
)

var (
	prefixSigning = []byte{0x53, 0x54, 0x58, 0x00} // STX\0
	prefixTxID    = []byte{0x54, 0x58, 0x4E, 0x00} // TXN\0

	ErrMissingField = errors.New("missing required field")
)

// Transaction is a typed transaction. Optional fields are pointers or nil
// slices and are omitted from the encoding when unset.
type Transaction struct {
	TransactionType    TxType
	Account            string
	Flags              uint32
	Sequence           uint32
	Fee                uint64
	LastLedgerSequence uint32

	// Payment
	Destination    string
	Amount         models.Amount
	DestinationTag *uint32

	// TrustSet
	LimitAmount *models.Amount
	QualityIn   *uint32
	QualityOut  *uint32

	Memos [][]byte

	SigningPubKey []byte
	TxnSignature  []byte
}

type field struct {
	id   fieldID
	data []byte
}

// Encode returns the full serialization, signature included.
func (tx *Transaction) Encode() ([]byte, error) {
	return tx.encode(true)
}

// SigningData returns the bytes that are hashed and signed: the signing
// prefix followed by every signing field.
func (tx *Transaction) SigningData() ([]byte, error) {
	body, err := tx.encode(false)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), prefixSigning...), body...), nil
}

func (tx *Transaction) encode(withSignature bool) ([]byte, error) {
	fields, err := tx.fields(withSignature)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(fields, func(i, j int) bool { return fields[i].id.less(fields[j].id) })

	var buf bytes.Buffer
	for _, f := range fields {
		buf.Write(f.id.header())
		buf.Write(f.data)
	}
	return buf.Bytes(), nil
}

func (tx *Transaction) fields(withSignature bool) ([]field, error) {
	if tx.Account == "" {
		return nil, fmt.Errorf("%w: Account", ErrMissingField)
	}

	fs := []field{
		{fTransactionType, uint16Bytes(uint16(tx.TransactionType))},
		{fFlags, uint32Bytes(tx.Flags)},
		{fSequence, uint32Bytes(tx.Sequence)},
	}

	if tx.LastLedgerSequence != 0 {
		fs = append(fs, field{fLastLedgerSequence, uint32Bytes(tx.LastLedgerSequence)})
	}

	fee, err := EncodeAmount(models.NativeAmount(tx.Fee))
	if err != nil {
		return nil, fmt.Errorf("Fee: %w", err)
	}
	fs = append(fs, field{fFee, fee})

	account, err := accountField(tx.Account)
	if err != nil {
		return nil, fmt.Errorf("Account: %w", err)
	}
	fs = append(fs, field{fAccount, account})

	switch tx.TransactionType {
	case TypePayment:
		if tx.Destination == "" {
			return nil, fmt.Errorf("%w: Destination", ErrMissingField)
		}
		dest, err := accountField(tx.Destination)
		if err != nil {
			return nil, fmt.Errorf("Destination: %w", err)
		}
		amount, err := EncodeAmount(tx.Amount)
		if err != nil {
			return nil, fmt.Errorf("Amount: %w", err)
		}
		fs = append(fs, field{fDestination, dest}, field{fAmount, amount})
		if tx.DestinationTag != nil {
			fs = append(fs, field{fDestinationTag, uint32Bytes(*tx.DestinationTag)})
		}

	case TypeTrustSet:
		if tx.LimitAmount == nil {
			return nil, fmt.Errorf("%w: LimitAmount", ErrMissingField)
		}
		if tx.LimitAmount.IsNative() {
			return nil, fmt.Errorf("LimitAmount: %w: must be an issued amount", ErrInvalidAmount)
		}
		limit, err := EncodeAmount(*tx.LimitAmount)
		if err != nil {
			return nil, fmt.Errorf("LimitAmount: %w", err)
		}
		fs = append(fs, field{fLimitAmount, limit})
		if tx.QualityIn != nil {
			fs = append(fs, field{fQualityIn, uint32Bytes(*tx.QualityIn)})
		}
		if tx.QualityOut != nil {
			fs = append(fs, field{fQualityOut, uint32Bytes(*tx.QualityOut)})
		}

	default:
		return nil, fmt.Errorf("unsupported transaction type %s", tx.TransactionType)
	}

	if len(tx.Memos) > 0 {
		memos, err := encodeMemos(tx.Memos)
		if err != nil {
			return nil, err
		}
		fs = append(fs, field{fMemos, memos})
	}

	if tx.SigningPubKey != nil {
		pk, err := vlBytes(tx.SigningPubKey)
		if err != nil {
			return nil, err
		}
		fs = append(fs, field{fSigningPubKey, pk})
	}

	if withSignature && tx.TxnSignature != nil {
		sig, err := vlBytes(tx.TxnSignature)
		if err != nil {
			return nil, err
		}
		fs = append(fs, field{fTxnSignature, sig})
	}

	return fs, nil
}

func encodeMemos(memos [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	for _, m := range memos {
		data, err := vlBytes(m)
		if err != nil {
			return nil, fmt.Errorf("MemoData: %w", err)
		}
		buf.Write(fMemo.header())
		buf.Write(fMemoData.header())
		buf.Write(data)
		buf.Write(objectEnd.header())
	}
	buf.Write(arrayEnd.header())
	return buf.Bytes(), nil
}

func accountField(address string) ([]byte, error) {
	id, err := keys.DecodeAddress(address)
	if err != nil {
		return nil, err
	}
	return vlBytes(id)
}

func vlBytes(b []byte) ([]byte, error) {
	prefix, err := lengthPrefix(len(b))
	if err != nil {
		return nil, err
	}
	return append(prefix, b...), nil
}

func uint16Bytes(v uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, v)
	return out
}

func uint32Bytes(v uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)
	return out
}

// SignedTransaction is the result of signing: the hex blob to submit and
// the transaction hash, which is fixed by the signed content.
type SignedTransaction struct {
	Blob      string
	Hash      string
	Signature []byte
}

// Sign fills in the signing key and signature of tx and returns the signed
// blob and its hash. tx is modified.
func Sign(tx *Transaction, signer keys.Signer, kp keys.KeyPair) (SignedTransaction, error) {
	tx.SigningPubKey = kp.PublicKey
	tx.TxnSignature = nil

	data, err := tx.SigningData()
	if err != nil {
		return SignedTransaction{}, fmt.Errorf("encode for signing: %w", err)
	}

	sig, err := signer.Sign(data, kp)
	if err != nil {
		return SignedTransaction{}, fmt.Errorf("sign: %w", err)
	}
	tx.TxnSignature = sig

	blob, err := tx.Encode()
	if err != nil {
		return SignedTransaction{}, fmt.Errorf("encode signed: %w", err)
	}

	return SignedTransaction{
		Blob:      strings.ToUpper(hex.EncodeToString(blob)),
		Hash:      HashBlob(blob),
		Signature: sig,
	}, nil
}

// HashBlob computes the transaction ID of a signed serialization.
func HashBlob(blob []byte) string {
	h := keys.SHA512Half(append(append([]byte(nil), prefixTxID...), blob...))
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// HashHexBlob is HashBlob for a hex-encoded blob.
func HashHexBlob(blobHex string) (string, error) {
	blob, err := hex.DecodeString(blobHex)
	if err != nil {
		return "", err
	}
	return HashBlob(blob), nil
}
