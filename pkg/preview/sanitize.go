// Package preview serves live table previews from the remote SQL warehouse.
// It resolves the same three-tier authentication strategy as the database
// layer but holds its own statement-execution client and never generates
// database credentials.
package preview

import (
	"regexp"
	"strings"
)

// defaultTable is the fallback preview target when a reference cannot be
// mapped to a known table.
const defaultTable = "solacc_var.market_data"

// sampleTables maps known sample-dataset slugs to canonical table identifiers.
var sampleTables = map[string]string{
	"msci-esg-sample":            "solacc_var.market_data",
	"bloomberg-corporate-sample": "solacc_var.monte_carlo_market",
	"sp500-sample":               "solacc_var.market_data",
	"refinitiv-worldcheck-sample": "solacc_var.market_data",
	"moody-credit-sample":        "solacc_var.market_data",
	"visa-fraud-sample":          "solacc_var.market_data",
	"dowjones-kyc-sample":        "solacc_var.market_data",
}

// identifierPattern is the allow-list for table identifiers. Table names
// cannot be parameterized in the statement protocol, so this check is the
// gate between sanitization and query construction.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// SanitizeTableReference extracts a table identifier from the various forms a
// reference arrives in: a bare slug, a qualified catalog.schema.table name,
// or a sample-file URL fragment. Unknown references resolve to the default
// preview table. Idempotent.
func SanitizeTableReference(reference string) string {
	name := strings.ReplaceAll(reference, "/samples/", "")
	name = strings.ReplaceAll(name, ".csv", "")
	name = strings.ReplaceAll(name, ".parquet", "")

	// Already a qualified table reference.
	if strings.Contains(name, ".") && !strings.HasPrefix(name, "/") {
		return name
	}

	for slug, table := range sampleTables {
		if strings.Contains(reference, slug) {
			return table
		}
	}

	return defaultTable
}

// ValidTableIdentifier reports whether s is composed only of identifier-safe
// characters (letters, digits, underscore, dot) and does not start with a
// digit. Run after sanitization and before query construction.
func ValidTableIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}
