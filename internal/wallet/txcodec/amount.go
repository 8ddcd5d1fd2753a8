package txcodec

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/keys"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

const (
	amountIssuedBit   = uint64(0x8000000000000000)
	amountPositiveBit = uint64(0x4000000000000000)

	maxNativeDrops = uint64(100_000_000_000_000_000)

	minMantissa = 1_000_000_000_000_000
	maxMantissa = 9_999_999_999_999_999
	minExponent = -96
	maxExponent = 80
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCurrency = errors.New("invalid currency code")
)

// EncodeAmount serializes a native (8 bytes) or issued (48 bytes) amount.
func EncodeAmount(a models.Amount) ([]byte, error) {
	if a.IsNative() {
		if a.Drops > maxNativeDrops {
			return nil, fmt.Errorf("%w: %d drops exceeds supply", ErrInvalidAmount, a.Drops)
		}
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, a.Drops|amountPositiveBit)
		return out, nil
	}

	value, err := issuedValueBits(a)
	if err != nil {
		return nil, err
	}
	currency, err := EncodeCurrency(a.Currency)
	if err != nil {
		return nil, err
	}
	issuer, err := keys.DecodeAddress(a.Issuer)
	if err != nil {
		return nil, fmt.Errorf("issuer: %w", err)
	}

	out := make([]byte, 8, 48)
	binary.BigEndian.PutUint64(out, value)
	out = append(out, currency...)
	out = append(out, issuer...)
	return out, nil
}

// issuedValueBits packs a decimal value into the 64-bit issued amount
// format: a normalised 54-bit mantissa and an exponent biased by 97.
func issuedValueBits(a models.Amount) (uint64, error) {
	if a.Value.IsZero() {
		return amountIssuedBit, nil
	}

	mantissa := new(big.Int).Abs(a.Value.Coefficient())
	exp := int(a.Value.Exponent())

	ten := big.NewInt(10)
	lo := big.NewInt(minMantissa)
	hi := big.NewInt(maxMantissa)

	for mantissa.Cmp(lo) < 0 {
		mantissa.Mul(mantissa, ten)
		exp--
	}
	for mantissa.Cmp(hi) > 0 {
		var rem big.Int
		mantissa.QuoRem(mantissa, ten, &rem)
		if rem.Sign() != 0 {
			return 0, fmt.Errorf("%w: %s has more than 16 significant digits", ErrInvalidAmount, a.Value)
		}
		exp++
	}

	if exp < minExponent || exp > maxExponent {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidAmount, a.Value)
	}

	bits := amountIssuedBit | uint64(exp+97)<<54 | mantissa.Uint64()
	if a.Value.IsPositive() {
		bits |= amountPositiveBit
	}
	return bits, nil
}

// EncodeCurrency returns the 160-bit currency code. Three-character codes
// use the standard layout; 40 hex characters are taken verbatim.
func EncodeCurrency(code string) ([]byte, error) {
	switch len(code) {
	case 3:
		if strings.EqualFold(code, models.NativeCurrency) {
			return nil, fmt.Errorf("%w: %s is the native currency", ErrInvalidCurrency, code)
		}
		out := make([]byte, 20)
		for i := 0; i < 3; i++ {
			c := code[i]
			if c < 0x20 || c > 0x7e {
				return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
			}
			out[12+i] = c
		}
		return out, nil
	case 40:
		out, err := hex.DecodeString(code)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
		}
		if isAllZero(out) {
			return nil, fmt.Errorf("%w: all-zero code", ErrInvalidCurrency)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
}

func isAllZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
