// Package flagx holds helpers for two-pass flag parsing: the config file
// path is read first, then the remaining flags override it.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns only the allowed flags (and their values) from args.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      -config=conf.json
//
// A separate value is taken only when the next token does not start with '-'.
//
// Parameters:
//
//	args         the command-line arguments, usually os.Args[1:]
//	allowedFlags flag names to keep, spelled as typed (e.g. "-c", "--config")
//
// Returns:
//
//	A non-nil slice with the allowed flags in their original order, each
//	followed by its separate value when one was given.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigPath extracts the JSON config file path given via -c or -config.
// Other arguments are ignored so the caller can parse its own flag set
// afterwards.
//
// Parameters:
//
//	args  the command-line arguments, usually os.Args[1:]
//
// Returns:
//
//	The path of the last -c/-config occurrence, or "" when neither flag is
//	present or its value is missing.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--c", "--config"}))

	return path
}

// WithoutConfig returns args with the -c/-config flags and their values
// removed, so a second flag set that does not declare them can parse the rest.
func WithoutConfig(args []string) []string {
	drop := map[string]struct{}{"-c": {}, "-config": {}, "--c": {}, "--config": {}}
	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, _, hasValue := strings.Cut(arg, "=")
		if _, ok := drop[name]; ok {
			if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		out = append(out, arg)
	}
	return out
}
