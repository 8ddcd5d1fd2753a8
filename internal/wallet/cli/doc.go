// Package cli provides the interactive wallet shell.
//
// The shell reads one command per line and drives a services.WalletService.
// Passwords, seeds and mnemonics are read without echo. Anything the network
// decides later, such as a Pending transaction, is reported as undecided and
// can be checked again with recheck or resubmit.
//
// Start it with App.Run, which blocks until the user exits or input ends.
package cli
