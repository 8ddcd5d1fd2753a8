package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

// MaxRecentWallets bounds the recent wallets list.
const MaxRecentWallets = 5

// LastWallet returns the path of the most recently opened wallet, or "".
func LastWallet(ctx context.Context, r Repository) (string, error) {
	v, err := r.Get(ctx, KeyLastWallet)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// RecentWallets returns recently opened wallet paths, newest first.
func RecentWallets(ctx context.Context, r Repository) ([]string, error) {
	v, err := r.Get(ctx, KeyRecentWallets)
	if err != nil || v == nil {
		return nil, err
	}
	var paths []string
	if err := json.Unmarshal(v, &paths); err != nil {
		return nil, fmt.Errorf("failed to decode recent wallets: %w", err)
	}
	return paths, nil
}

// RememberWallet records path as the last wallet and moves it to the front
// of the recent list.
func RememberWallet(ctx context.Context, r Repository, path string) error {
	recent, err := RecentWallets(ctx, r)
	if err != nil {
		return err
	}

	recent = slices.DeleteFunc(recent, func(p string) bool { return p == path })
	recent = append([]string{path}, recent...)
	if len(recent) > MaxRecentWallets {
		recent = recent[:MaxRecentWallets]
	}

	data, err := json.Marshal(recent)
	if err != nil {
		return err
	}
	if err := r.Set(ctx, KeyRecentWallets, data); err != nil {
		return err
	}
	return r.Set(ctx, KeyLastWallet, []byte(path))
}

// ForgetWallet removes path from the recent list and clears it as last
// wallet.
func ForgetWallet(ctx context.Context, r Repository, path string) error {
	recent, err := RecentWallets(ctx, r)
	if err != nil {
		return err
	}
	recent = slices.DeleteFunc(recent, func(p string) bool { return p == path })

	data, err := json.Marshal(recent)
	if err != nil {
		return err
	}
	if err := r.Set(ctx, KeyRecentWallets, data); err != nil {
		return err
	}

	last, err := LastWallet(ctx, r)
	if err != nil {
		return err
	}
	if last == path {
		return r.Delete(ctx, KeyLastWallet)
	}
	return nil
}
