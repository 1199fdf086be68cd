package adapter

import (
	"regexp"

	"github.com/quarrydb/quarry"
)

// identRe admits alphanumeric identifiers with underscores and dot
// qualification, matching what every supported backend accepts without
// escaping tricks.
var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// ValidateIdent rejects table and column names that could smuggle
// statement fragments into generated SQL. Returns a ConfigError for
// anything outside the safe identifier grammar.
func ValidateIdent(name string) error {
	if name == "" || len(name) > 128 || !identRe.MatchString(name) {
		return quarry.NewConfigError("invalid identifier %q", name)
	}
	return nil
}
