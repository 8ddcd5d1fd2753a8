package models

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DropsPerXRP is the number of drops in one XRP.
	DropsPerXRP = 1_000_000
	// ReserveDrops is the base account reserve below which a wallet is treated as unfunded.
	ReserveDrops = 10 * DropsPerXRP
	// NativeCurrency names the native asset in user-facing output.
	NativeCurrency = "XRP"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	// maxDrops is the total native supply in drops.
	maxDrops = decimal.New(100_000_000_000, 6)
)

// Amount is either a native amount in drops (Currency empty) or an issued
// amount with a decimal value.
type Amount struct {
	Drops    uint64
	Value    decimal.Decimal
	Currency string
	Issuer   string
}

func NativeAmount(drops uint64) Amount {
	return Amount{Drops: drops}
}

func IssuedAmount(value decimal.Decimal, currency, issuer string) Amount {
	return Amount{Value: value, Currency: currency, Issuer: issuer}
}

func (a Amount) IsNative() bool { return a.Currency == "" }

// IsZero reports whether the amount moves nothing.
func (a Amount) IsZero() bool {
	if a.IsNative() {
		return a.Drops == 0
	}
	return a.Value.IsZero()
}

func (a Amount) String() string {
	if a.IsNative() {
		return FormatDrops(a.Drops) + " " + NativeCurrency
	}
	if a.Issuer == "" {
		return a.Value.String() + " " + a.Currency
	}
	return a.Value.String() + " " + a.Currency + "/" + a.Issuer
}

// ParseXRP converts a decimal XRP string such as "1.5" into drops.
//
// Surrounding whitespace is ignored. The value must be non-negative, have at
// most six decimal places (one drop) and not exceed the total native supply
// of 100 billion XRP.
//
// Examples:
//
//	ParseXRP("1.5")       // 1500000
//	ParseXRP("0.000001")  // 1
//	ParseXRP("0.0000001") // ErrInvalidAmount
func ParseXRP(s string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative", ErrInvalidAmount)
	}
	drops := d.Shift(6)
	if !drops.Equal(drops.Truncate(0)) {
		return 0, fmt.Errorf("%w: more than 6 decimal places", ErrInvalidAmount)
	}
	if drops.GreaterThan(maxDrops) {
		return 0, fmt.Errorf("%w: exceeds supply", ErrInvalidAmount)
	}
	return uint64(drops.IntPart()), nil
}

// ParseDrops parses an integer drops string as returned by the ledger.
func ParseDrops(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("%w: drops %q", ErrInvalidAmount, s)
	}
	return uint64(d.IntPart()), nil
}

// FormatDrops renders drops as an XRP decimal string without trailing zeros.
func FormatDrops(drops uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(drops), -6).String()
}
