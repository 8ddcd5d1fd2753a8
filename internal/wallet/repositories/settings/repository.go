// Package settings stores small key/value preferences of the wallet app.
package settings

import "context"

const (
	KeyLastWallet    = "last_wallet"
	KeyRecentWallets = "recent_wallets"
)

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
