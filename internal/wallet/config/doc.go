// Package config loads runtime configuration for the wallet CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-n string   ledger node websocket URL
//	-w string   directory holding wallet files
//	-d string   path of the local SQLite database
//	-l int      auto-lock timeout in minutes (0 disables)
//
// # JSON schema
//
// Durations are strings like "30s" or integer nanoseconds. Keys left out of
// the file keep their defaults:
//
//	{
//	  "node_url": "wss://s2.ripple.com",
//	  "wallets_dir": "wallets",
//	  "database_path": "wallet.db",
//	  "auto_lock": "15m",
//	  "auto_refresh": true,
//	  "refresh_interval": "30s",
//	  "poll_interval": "3s",
//	  "poll_attempts": 20,
//	  "expiry_margin": 200,
//	  "tx_history_limit": 10,
//	  "log_backend": "slog",
//	  "log_level": "info",
//	  "s3_bucket": "",
//	  "s3_region": "",
//	  "s3_base_endpoint": "",
//	  "s3_access_key": "",
//	  "s3_secret_key": ""
//	}
package config
