package services

import (
	"strings"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
)

// reservedColumnName is a keyword in the bulk extraction tool's column syntax.
const reservedColumnName = "Key"

// Selection is the outcome of SelectUniqueColumn.
type Selection struct {
	Column string
	Reason models.SelectionReason
}

// SelectUniqueColumn picks the split column for one table:
//
//  1. a single-column primary key wins outright;
//  2. otherwise the first column, in ordinal order, whose distinct count
//     equals the table's row count (both probes must have succeeded);
//  3. otherwise NoSplitColumn.
//
// A winner named Key (any case) is replaced by NoSplitColumn afterwards.
func SelectUniqueColumn(stats *models.TableStats) Selection {
	sel := selectCandidate(stats)
	if sel.Column != models.NoSplitColumn && strings.EqualFold(sel.Column, reservedColumnName) {
		return Selection{Column: models.NoSplitColumn, Reason: models.ReasonReservedWord}
	}
	return sel
}

func selectCandidate(stats *models.TableStats) Selection {
	if stats == nil {
		return Selection{Column: models.NoSplitColumn, Reason: models.ReasonUndetermined}
	}

	// Composite keys are never trusted: no single member is unique on its own.
	if stats.HasSinglePrimaryKey() {
		return Selection{Column: stats.PrimaryKeys[0], Reason: models.ReasonPrimaryKey}
	}

	for _, col := range stats.Columns {
		if col.DistinctCount.Matches(stats.TotalRowCount) {
			return Selection{Column: col.Name, Reason: models.ReasonDistinctMatch}
		}
	}

	if stats.Degraded() {
		return Selection{Column: models.NoSplitColumn, Reason: models.ReasonUndetermined}
	}
	return Selection{Column: models.NoSplitColumn, Reason: models.ReasonNotFound}
}
