package services

import (
	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
)

// BuildPlan runs SelectUniqueColumn over every table in dbStats iteration
// order. It cannot fail; degraded tables yield NoSplitColumn.
func BuildPlan(database string, dbStats *models.DatabaseStats) *models.Plan {
	var entries []models.PlanEntry
	if dbStats != nil {
		entries = make([]models.PlanEntry, 0, dbStats.Len())
		dbStats.Each(func(table models.TableIdentity, stats *models.TableStats) {
			sel := SelectUniqueColumn(stats)
			entries = append(entries, models.PlanEntry{
				Identity:     table,
				Table:        table.String(),
				ChosenColumn: sel.Column,
				Reason:       sel.Reason,
				Stats:        stats,
			})
		})
	}
	return models.NewPlan(database, entries)
}
