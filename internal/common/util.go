package common

import "crypto/rand"

// GenerateRandByteArray returns size bytes from crypto/rand and panics if
// the system source fails.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray zeroes b in place. Passwords, seeds and derived keys go
// through it once they are no longer needed.
func WipeByteArray(b []byte) {
	clear(b)
}
