package sql

import (
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// IdentifierCheckResult describes a catalog name that looks like an
// injection payload.
type IdentifierCheckResult struct {
	Kind        string // "schema", "table", "column"
	Name        string
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// ValidateIdentifier rejects names that cannot be quoted safely in any
// dialect: empty names and names containing NUL.
func ValidateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("empty %s name", kind)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%s name contains NUL byte", kind)
	}
	return nil
}

// CheckIdentifier runs libinjection over a name read from the catalog.
//
// Names are always bracket- or double-quote-escaped before they reach a
// statement, so a hit is not an error. Callers log it so that hostile
// object names show up in the run log.
//
// Returns nil if the name looks clean.
func CheckIdentifier(kind, name string) *IdentifierCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(name)
	if !isSQLi {
		return nil
	}
	return &IdentifierCheckResult{
		Kind:        kind,
		Name:        name,
		Fingerprint: string(fingerprint),
	}
}
