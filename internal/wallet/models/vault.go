// Package models defines the data types shared by the wallet packages.
package models

import (
	"fmt"
	"log/slog"
)

// VaultVersion is the current on-disk format tag.
const VaultVersion = 1

// Vault is the decrypted content of a wallet file. Seed and Mnemonic are
// secret; the type never prints them.
type Vault struct {
	Version  int
	Seed     string
	Address  string
	Mnemonic string
}

func (v Vault) String() string {
	return fmt.Sprintf("Vault{version=%d address=%s seed=[redacted]}", v.Version, v.Address)
}

func (v Vault) GoString() string { return v.String() }

func (v Vault) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("version", v.Version),
		slog.String("address", v.Address),
		slog.Bool("has_mnemonic", v.Mnemonic != ""),
	)
}

// Public returns a copy holding only the non-secret fields.
func (v Vault) Public() Vault {
	return Vault{Version: v.Version, Address: v.Address}
}
