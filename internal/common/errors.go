// Package common holds sentinel errors and byte helpers shared by the wallet
// packages.
package common

import "errors"

// ErrorNotFound is returned by repositories when a lookup matches no row.
var ErrorNotFound = errors.New("not found")
