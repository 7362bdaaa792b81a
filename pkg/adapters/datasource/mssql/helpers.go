package mssql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
	sqlpkg "github.com/ekaya-inc/ekaya-splitplan/pkg/sql"
)

// quoteName brackets an identifier the way QUOTENAME() does: ] is doubled.
func quoteName(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return fmt.Sprintf("[%s]", escaped)
}

// catalogName qualifies a catalog view with the database, e.g. [db].sys.tables.
// The result goes into placeholder-rewritten statements, so ? is escaped as ??.
func catalogName(database, view string) string {
	return strings.ReplaceAll(quoteName(database), "?", "??") + "." + view
}

// threePartName builds [database].[schema].[table] after checking that every
// part can be quoted.
func threePartName(database string, table models.TableIdentity) (string, error) {
	if err := sqlpkg.ValidateIdentifier("database", database); err != nil {
		return "", err
	}
	if err := sqlpkg.ValidateIdentifier("schema", table.SchemaName); err != nil {
		return "", err
	}
	if err := sqlpkg.ValidateIdentifier("table", table.TableName); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s.%s", quoteName(database), quoteName(table.SchemaName), quoteName(table.TableName)), nil
}
