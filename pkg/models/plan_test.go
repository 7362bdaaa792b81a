package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPlan_TableCountMatchesEntries(t *testing.T) {
	empty := NewPlan("Sales", nil)
	assert.Equal(t, 0, empty.TableCount)
	assert.NotNil(t, empty.Entries)

	plan := NewPlan("Sales", []PlanEntry{
		{Table: "[dbo].[Orders]", ChosenColumn: "OrderId", Reason: ReasonPrimaryKey},
		{Table: "[dbo].[Log]", ChosenColumn: NoSplitColumn, Reason: ReasonNotFound},
	})
	assert.Equal(t, 2, plan.TableCount)
	assert.Equal(t, len(plan.Entries), plan.TableCount)
}

func TestPlan_CountByReason(t *testing.T) {
	plan := NewPlan("Sales", []PlanEntry{
		{ChosenColumn: "OrderId", Reason: ReasonPrimaryKey},
		{ChosenColumn: "Guid", Reason: ReasonDistinctMatch},
		{ChosenColumn: NoSplitColumn, Reason: ReasonNotFound},
		{ChosenColumn: NoSplitColumn, Reason: ReasonReservedWord},
		{ChosenColumn: NoSplitColumn, Reason: ReasonNotFound},
	})

	counts := plan.CountByReason()
	assert.Equal(t, 1, counts[ReasonPrimaryKey])
	assert.Equal(t, 1, counts[ReasonDistinctMatch])
	assert.Equal(t, 2, counts[ReasonNotFound])
	assert.Equal(t, 1, counts[ReasonReservedWord])
	assert.Equal(t, 0, counts[ReasonUndetermined])
	assert.Equal(t, 2, plan.SplitColumnCount())
}

func TestPlanEntry_HasSplitColumn(t *testing.T) {
	assert.True(t, PlanEntry{ChosenColumn: "Id"}.HasSplitColumn())
	assert.False(t, PlanEntry{ChosenColumn: NoSplitColumn}.HasSplitColumn())
}
