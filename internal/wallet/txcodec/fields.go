package txcodec

import "fmt"

// Serialized type codes.
const (
	typeUInt16    = 1
	typeUInt32    = 2
	typeAmount    = 6
	typeBlob      = 7
	typeAccountID = 8
	typeObject    = 14
	typeArray     = 15
)

type fieldID struct {
	typ  int
	code int
}

var (
	fTransactionType    = fieldID{typeUInt16, 2}
	fFlags              = fieldID{typeUInt32, 2}
	fSequence           = fieldID{typeUInt32, 4}
	fDestinationTag     = fieldID{typeUInt32, 14}
	fQualityIn          = fieldID{typeUInt32, 20}
	fQualityOut         = fieldID{typeUInt32, 21}
	fLastLedgerSequence = fieldID{typeUInt32, 27}
	fAmount             = fieldID{typeAmount, 1}
	fLimitAmount        = fieldID{typeAmount, 3}
	fFee                = fieldID{typeAmount, 8}
	fSigningPubKey      = fieldID{typeBlob, 3}
	fTxnSignature       = fieldID{typeBlob, 4}
	fMemoData           = fieldID{typeBlob, 13}
	fAccount            = fieldID{typeAccountID, 1}
	fDestination        = fieldID{typeAccountID, 3}
	fMemo               = fieldID{typeObject, 10}
	fMemos              = fieldID{typeArray, 9}

	objectEnd = fieldID{typeObject, 1}
	arrayEnd  = fieldID{typeArray, 1}
)

func (f fieldID) less(o fieldID) bool {
	if f.typ != o.typ {
		return f.typ < o.typ
	}
	return f.code < o.code
}

// header returns the field ID prefix. Codes below 16 share a byte with the
// type; larger codes take a byte of their own.
func (f fieldID) header() []byte {
	switch {
	case f.typ < 16 && f.code < 16:
		return []byte{byte(f.typ<<4 | f.code)}
	case f.typ < 16:
		return []byte{byte(f.typ << 4), byte(f.code)}
	case f.code < 16:
		return []byte{byte(f.code), byte(f.typ)}
	default:
		return []byte{0, byte(f.typ), byte(f.code)}
	}
}

// lengthPrefix encodes the variable-length prefix used by blobs and account IDs.
func lengthPrefix(n int) ([]byte, error) {
	switch {
	case n < 0:
		return nil, fmt.Errorf("negative length %d", n)
	case n <= 192:
		return []byte{byte(n)}, nil
	case n <= 12480:
		n -= 193
		return []byte{byte(193 + (n >> 8)), byte(n & 0xff)}, nil
	case n <= 918744:
		n -= 12481
		return []byte{byte(241 + (n >> 16)), byte((n >> 8) & 0xff), byte(n & 0xff)}, nil
	}
	return nil, fmt.Errorf("length %d exceeds the variable-length limit", n)
}
