// Package cryptox implements the password-based sealing used for wallet
// files: a scrypt-derived key and AES-256-CBC with PKCS#7 padding, packaged
// together with its salt and IV.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/xrpkeeper/internal/common"
	"golang.org/x/crypto/scrypt"
)

const (
	// SaltSize is the length of the random KDF salt.
	SaltSize = 16
	// KeySize selects AES-256.
	KeySize = 32

	// scrypt work factors. Fixed: changing them makes existing files unreadable.
	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

var (
	ErrMalformedPackage = errors.New("malformed cipher package")
	ErrDecrypt          = errors.New("decryption failed")
)

// DeriveKey stretches password into a KeySize-byte AES key with scrypt.
// The same (password, salt) pair always yields the same key.
func DeriveKey(password, salt []byte) ([]byte, error) {
	return scrypt.Key(password, salt, scryptN, scryptR, scryptP, KeySize)
}

// EncryptCBC pads plaintext with PKCS#7 and encrypts it with AES-CBC.
func EncryptCBC(plaintext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("iv must be %d bytes", block.BlockSize())
	}

	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// DecryptCBC reverses EncryptCBC. A wrong key is usually reported as a
// padding failure (ErrDecrypt); CBC has no authentication tag, so callers
// must validate the recovered plaintext themselves.
func DecryptCBC(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	if len(iv) != bs {
		return nil, fmt.Errorf("%w: iv must be %d bytes", ErrMalformedPackage, bs)
	}
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrMalformedPackage)
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)

	plain, err := pkcs7Unpad(out, bs)
	if err != nil {
		common.WipeByteArray(out)
		return nil, err
	}
	return plain, nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, ErrDecrypt
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrDecrypt
		}
	}
	return b[:len(b)-n], nil
}

// Package is the self-contained ciphertext container. Byte fields are
// base64 (standard, padded) in JSON.
type Package struct {
	Salt []byte `json:"s"`
	IV   []byte `json:"i"`
	Data []byte `json:"d"`
}

// SealJSON serializes v to JSON and encrypts it under a key derived from
// password and a fresh random salt, with a fresh random IV. The result is
// the base64 encoding of the JSON-serialized Package.
//
// Two calls with identical inputs never produce the same output.
//
// Example:
//
//	blob, err := SealJSON(secret, []byte("correct horse"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var back Secret
//	err = OpenJSON(blob, []byte("correct horse"), &back)
func SealJSON(v any, password []byte) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(plaintext)

	salt := common.GenerateRandByteArray(SaltSize)
	iv := common.GenerateRandByteArray(aes.BlockSize)

	key, err := DeriveKey(password, salt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	data, err := EncryptCBC(plaintext, key, iv)
	if err != nil {
		return "", err
	}

	packed, err := json.Marshal(Package{Salt: salt, IV: iv, Data: data})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(packed), nil
}

// OpenJSON decodes a blob produced by SealJSON and unmarshals the plaintext
// into v. It returns ErrMalformedPackage when the container cannot be
// parsed and ErrDecrypt when the password does not recover valid JSON.
func OpenJSON(blob string, password []byte, v any) error {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPackage, err)
	}

	var p Package
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPackage, err)
	}
	if len(p.Salt) == 0 || len(p.IV) == 0 || len(p.Data) == 0 {
		return fmt.Errorf("%w: missing salt, iv or data", ErrMalformedPackage)
	}

	key, err := DeriveKey(password, p.Salt)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	plaintext, err := DecryptCBC(p.Data, key, p.IV)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plaintext)

	if err := json.Unmarshal(plaintext, v); err != nil {
		return ErrDecrypt
	}
	return nil
}
