package keys

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// The ledger uses base58check with its own alphabet. Both alphabets have the
// same length, so a string is converted by mapping each character to the one
// at the same index in the other alphabet.
const (
	ledgerAlphabet  = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"
	bitcoinAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	versionAccountID  byte = 0x00
	versionFamilySeed byte = 0x21
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidSeed    = errors.New("invalid family seed")

	toLedger  = translation(bitcoinAlphabet, ledgerAlphabet)
	toBitcoin = translation(ledgerAlphabet, bitcoinAlphabet)
)

func translation(from, to string) [256]byte {
	var t [256]byte
	for i := 0; i < len(from); i++ {
		t[from[i]] = to[i]
	}
	return t
}

func translate(s string, table [256]byte) (string, bool) {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := table[s[i]]
		if c == 0 {
			return "", false
		}
		out[i] = c
	}
	return string(out), true
}

func checkEncode(payload []byte, version byte) string {
	s, _ := translate(base58.CheckEncode(payload, version), toLedger)
	return s
}

func checkDecode(s string) ([]byte, byte, error) {
	btc, ok := translate(s, toBitcoin)
	if !ok {
		return nil, 0, base58.ErrInvalidFormat
	}
	return base58.CheckDecode(btc)
}

// EncodeAddress renders a 20-byte account ID as a classic address.
func EncodeAddress(accountID []byte) (string, error) {
	if len(accountID) != 20 {
		return "", fmt.Errorf("%w: account id must be 20 bytes", ErrInvalidAddress)
	}
	return checkEncode(accountID, versionAccountID), nil
}

// DecodeAddress returns the 20-byte account ID of a classic address.
func DecodeAddress(address string) ([]byte, error) {
	payload, version, err := checkDecode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if version != versionAccountID || len(payload) != 20 {
		return nil, ErrInvalidAddress
	}
	return payload, nil
}

// IsValidAddress reports whether address is a well-formed classic address.
func IsValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

// EncodeSeed renders 16 bytes of entropy as a family seed ("s...").
func EncodeSeed(entropy []byte) (string, error) {
	if len(entropy) != 16 {
		return "", fmt.Errorf("%w: entropy must be 16 bytes", ErrInvalidSeed)
	}
	return checkEncode(entropy, versionFamilySeed), nil
}

// DecodeSeed returns the entropy of a family seed. The error never
// includes the seed itself.
func DecodeSeed(seed string) ([]byte, error) {
	if len(seed) == 0 || seed[0] != 's' {
		return nil, fmt.Errorf("%w: must start with 's'", ErrInvalidSeed)
	}
	payload, version, err := checkDecode(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if version != versionFamilySeed || len(payload) != 16 {
		return nil, ErrInvalidSeed
	}
	return payload, nil
}
