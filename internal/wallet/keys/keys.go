// Package keys derives ledger key pairs from family seeds and mnemonics and
// signs with secp256k1.
package keys

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/dmitrijs2005/xrpkeeper/internal/common"
	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Signer derives key pairs and produces signatures over serialized payloads.
type Signer interface {
	DeriveFromSeed(seed string) (KeyPair, error)
	// Sign returns a DER signature over SHA-512Half(payload).
	Sign(payload []byte, kp KeyPair) ([]byte, error)
}

// KeyPair holds a derived account key. The private half is unexported and
// never printed.
type KeyPair struct {
	PublicKey []byte
	Address   string
	private   *btcec.PrivateKey
}

func (k KeyPair) PublicKeyHex() string {
	return strings.ToUpper(hex.EncodeToString(k.PublicKey))
}

func (k KeyPair) String() string {
	return fmt.Sprintf("KeyPair{address=%s public=%s private=[redacted]}", k.Address, k.PublicKeyHex())
}

func (k KeyPair) GoString() string { return k.String() }

func (k KeyPair) LogValue() slog.Value {
	return slog.GroupValue(slog.String("address", k.Address), slog.String("public_key", k.PublicKeyHex()))
}

// Wipe zeroes the private key.
func (k *KeyPair) Wipe() {
	if k.private != nil {
		k.private.Zero()
		k.private = nil
	}
}

// Secp256k1 is the Signer for ecdsa-secp256k1 family seeds.
type Secp256k1 struct{}

func (Secp256k1) DeriveFromSeed(seed string) (KeyPair, error) {
	return DeriveFromSeed(seed)
}

func (Secp256k1) Sign(payload []byte, kp KeyPair) ([]byte, error) {
	if kp.private == nil {
		return nil, errors.New("key pair has no private key")
	}
	digest := SHA512Half(payload)
	return ecdsa.Sign(kp.private, digest[:]).Serialize(), nil
}

// DeriveFromSeed derives the account key (index 0) of a family seed.
func DeriveFromSeed(seed string) (KeyPair, error) {
	entropy, err := DecodeSeed(strings.TrimSpace(seed))
	if err != nil {
		return KeyPair{}, err
	}
	defer common.WipeByteArray(entropy)
	return deriveFromEntropy(entropy)
}

func deriveFromEntropy(entropy []byte) (KeyPair, error) {
	n := btcec.S256().N

	rootScalar := deriveScalar(entropy, nil)
	_, rootPub := btcec.PrivKeyFromBytes(rootScalar.FillBytes(make([]byte, 32)))

	index := uint32(0)
	account := deriveScalar(rootPub.SerializeCompressed(), &index)
	account.Add(account, rootScalar).Mod(account, n)

	buf := account.FillBytes(make([]byte, 32))
	defer common.WipeByteArray(buf)
	priv, pub := btcec.PrivKeyFromBytes(buf)

	pubBytes := pub.SerializeCompressed()
	addr, err := EncodeAddress(btcutil.Hash160(pubBytes))
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{PublicKey: pubBytes, Address: addr, private: priv}, nil
}

// deriveScalar hashes data with an optional discriminator and an
// incrementing counter until the result is a valid secp256k1 scalar.
func deriveScalar(data []byte, discriminator *uint32) *big.Int {
	n := btcec.S256().N
	var word [4]byte

	for i := uint32(0); ; i++ {
		h := sha512.New()
		h.Write(data)
		if discriminator != nil {
			binary.BigEndian.PutUint32(word[:], *discriminator)
			h.Write(word[:])
		}
		binary.BigEndian.PutUint32(word[:], i)
		h.Write(word[:])

		k := new(big.Int).SetBytes(h.Sum(nil)[:32])
		if k.Sign() > 0 && k.Cmp(n) < 0 {
			return k
		}
	}
}

// NewFamilySeed returns a fresh random family seed.
func NewFamilySeed() (string, error) {
	entropy := make([]byte, 16)
	if _, err := rand.Read(entropy); err != nil {
		return "", err
	}
	defer common.WipeByteArray(entropy)
	return EncodeSeed(entropy)
}

// NewMnemonic returns a fresh 12-word phrase and the family seed derived
// from it.
func NewMnemonic() (mnemonic, seed string, err error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", "", err
	}
	defer common.WipeByteArray(entropy)

	mnemonic, err = bip39.NewMnemonic(entropy)
	if err != nil {
		return "", "", err
	}
	seed, err = SeedFromMnemonic(mnemonic)
	if err != nil {
		return "", "", err
	}
	return mnemonic, seed, nil
}

// SeedFromMnemonic maps a BIP39 phrase to a family seed: the first 16 bytes
// of the BIP39 seed (empty passphrase) become the seed entropy.
//
// Words may be separated by any run of whitespace. The phrase must use the
// English word list, have a valid length and carry a correct checksum, so a
// mistyped word is reported instead of yielding a different wallet.
func SeedFromMnemonic(mnemonic string) (string, error) {
	words := strings.Fields(mnemonic)
	if len(words) < 2 {
		return "", fmt.Errorf("%w: expected several words", ErrInvalidMnemonic)
	}
	m := strings.Join(words, " ")

	entropy, err := bip39.EntropyFromMnemonic(m)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidMnemonic, err)
	}
	common.WipeByteArray(entropy)

	bip39Seed := bip39.NewSeed(m, "")
	defer common.WipeByteArray(bip39Seed)
	return EncodeSeed(bip39Seed[:16])
}

// SignMessage signs arbitrary bytes with the wallet key, returning an
// upper-case hex DER signature.
func SignMessage(signer Signer, msg []byte, kp KeyPair) (string, error) {
	sig, err := signer.Sign(msg, kp)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(sig)), nil
}

// VerifyMessage checks a hex DER signature over msg against a hex
// compressed public key.
func VerifyMessage(msg []byte, signatureHex, publicKeyHex string) (bool, error) {
	sigBytes, err := hex.DecodeString(strings.TrimSpace(signatureHex))
	if err != nil {
		return false, fmt.Errorf("signature: %w", err)
	}
	pubBytes, err := hex.DecodeString(strings.TrimSpace(publicKeyHex))
	if err != nil {
		return false, fmt.Errorf("public key: %w", err)
	}

	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false, fmt.Errorf("signature: %w", err)
	}
	pub, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		return false, fmt.Errorf("public key: %w", err)
	}

	digest := SHA512Half(msg)
	return sig.Verify(digest[:], pub), nil
}

// SHA512Half is the first 32 bytes of SHA-512, the ledger's hash function.
func SHA512Half(data []byte) [32]byte {
	sum := sha512.Sum512(data)
	var out [32]byte
	copy(out[:], sum[:32])
	return out
}
