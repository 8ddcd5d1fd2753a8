// Package vault implements the wallet file format and the in-memory
// session that guards the decrypted secret.
package vault

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/xrpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
)

// File is the JSON document stored on disk. Exactly one of the plaintext
// fields (Seed, Address, Mnemonic) or CipherText is populated.
type File struct {
	Version    int     `json:"version"`
	Encrypted  bool    `json:"encrypted"`
	Seed       *string `json:"seed"`
	Address    *string `json:"address"`
	Mnemonic   *string `json:"mnemonic"`
	CipherText *string `json:"cipherText,omitempty"`
}

// secrets is the JSON that gets encrypted into CipherText.
type secrets struct {
	Seed     *string `json:"seed"`
	Address  *string `json:"address"`
	Mnemonic *string `json:"mnemonic"`
}

// Encode serializes v. A password that is empty or only whitespace produces
// the plaintext form: this is the intended policy, and callers that want to
// warn the user should check IsPlaintextPassword first. Otherwise the secret
// fields are sealed with a scrypt-derived key under a fresh salt and IV.
//
// The password is trimmed before key derivation.
func Encode(v models.Vault, password []byte) ([]byte, error) {
	if v.Seed == "" {
		return nil, fmt.Errorf("%w: seed is empty", ErrMalformed)
	}

	f := File{Version: models.VaultVersion}
	s := secrets{Seed: ptr(v.Seed), Address: ptr(v.Address), Mnemonic: ptr(v.Mnemonic)}

	pw := bytes.TrimSpace(password)
	if len(pw) == 0 {
		f.Seed, f.Address, f.Mnemonic = s.Seed, s.Address, s.Mnemonic
		return json.MarshalIndent(f, "", "  ")
	}

	blob, err := cryptox.SealJSON(s, pw)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	f.Encrypted = true
	f.CipherText = &blob

	return json.MarshalIndent(f, "", "  ")
}

// Decode parses a wallet file. Plaintext files are returned directly and
// password is ignored. Encrypted files require the password; a wrong one
// or a corrupt cipher package yields ErrDecryption.
func Decode(data []byte, password []byte) (models.Vault, error) {
	f, err := parseFile(data)
	if err != nil {
		return models.Vault{}, err
	}

	if !f.Encrypted {
		return models.Vault{
			Version:  f.Version,
			Seed:     deref(f.Seed),
			Address:  deref(f.Address),
			Mnemonic: deref(f.Mnemonic),
		}, nil
	}

	pw := bytes.TrimSpace(password)
	if len(pw) == 0 {
		return models.Vault{}, fmt.Errorf("%w: password required", ErrDecryption)
	}

	var s secrets
	if err := cryptox.OpenJSON(*f.CipherText, pw, &s); err != nil {
		if errors.Is(err, cryptox.ErrDecrypt) || errors.Is(err, cryptox.ErrMalformedPackage) {
			return models.Vault{}, ErrDecryption
		}
		return models.Vault{}, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if deref(s.Seed) == "" {
		return models.Vault{}, ErrDecryption
	}

	return models.Vault{
		Version:  f.Version,
		Seed:     deref(s.Seed),
		Address:  deref(s.Address),
		Mnemonic: deref(s.Mnemonic),
	}, nil
}

// IsEncrypted reports whether data is an encrypted wallet file, without
// needing the password.
func IsEncrypted(data []byte) (bool, error) {
	f, err := parseFile(data)
	if err != nil {
		return false, err
	}
	return f.Encrypted, nil
}

// IsPlaintextPassword reports whether Encode would store the vault
// unencrypted when given password.
func IsPlaintextPassword(password []byte) bool {
	return len(bytes.TrimSpace(password)) == 0
}

func parseFile(data []byte) (File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f.Version != models.VaultVersion {
		return File{}, fmt.Errorf("%w: unsupported version %d", ErrMalformed, f.Version)
	}

	hasPlain := deref(f.Seed) != "" || deref(f.Address) != "" || deref(f.Mnemonic) != ""
	hasCipher := deref(f.CipherText) != ""

	switch {
	case f.Encrypted && (!hasCipher || hasPlain):
		return File{}, fmt.Errorf("%w: encrypted file must hold only cipherText", ErrMalformed)
	case !f.Encrypted && (hasCipher || deref(f.Seed) == ""):
		return File{}, fmt.Errorf("%w: plaintext file must hold a seed and no cipherText", ErrMalformed)
	}
	return f, nil
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
