package vault

import "errors"

var (
	// ErrDecryption means the password is wrong or the cipher package is corrupt.
	ErrDecryption = errors.New("vault decryption failed")
	// ErrMalformed means the file is not a valid wallet file.
	ErrMalformed = errors.New("malformed vault file")
	// ErrLoad wraps any failure of a load attempt; the session is left as it was.
	ErrLoad = errors.New("vault load failed")

	ErrNoWallet      = errors.New("no wallet loaded")
	ErrLocked        = errors.New("wallet is locked")
	ErrWrongPassword = errors.New("wrong password")
)
