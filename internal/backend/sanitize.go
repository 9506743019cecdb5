package backend

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/shlex"
)

// Container commands are handed to "bash -c" as a single string, so every
// interpolated value must be validated first. Arguments are checked against
// an allow-list of safe characters and then single-quoted; anything carrying
// shell metacharacters is rejected outright rather than escaped.

var (
	safeArgPattern  = regexp.MustCompile(`^[A-Za-z0-9_+=:,./@%-]+$`)
	safeFlagPattern = regexp.MustCompile(`^-[A-Za-z0-9_+=,./-]*$`)
)

// ValidateArg rejects values that are not plain path/flag material.
func ValidateArg(arg string) error {
	if arg == "" {
		return fmt.Errorf("empty argument")
	}

	if !safeArgPattern.MatchString(arg) {
		return fmt.Errorf("argument %q contains characters outside the allow-list", arg)
	}

	return nil
}

// ShellCommand joins a validated command and arguments into a single string
// safe to pass to "bash -c". Every token is single-quoted after validation.
func ShellCommand(command string, args []string) (string, error) {
	tokens := make([]string, 0, len(args)+1)

	for _, tok := range append([]string{command}, args...) {
		if err := ValidateArg(tok); err != nil {
			return "", err
		}

		tokens = append(tokens, "'"+tok+"'")
	}

	return strings.Join(tokens, " "), nil
}

// ParseExtraFlags tokenizes a user-supplied flag string (e.g. from config or
// the --extra-flags option) and validates each token as a compiler flag.
// Tokens that do not look like flags are rejected so config files cannot
// smuggle arbitrary arguments into the toolchain invocation.
func ParseExtraFlags(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	tokens, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("malformed extra flags: %w", err)
	}

	for _, tok := range tokens {
		if !safeFlagPattern.MatchString(tok) {
			return nil, fmt.Errorf("extra flag %q rejected", tok)
		}
	}

	return tokens, nil
}
