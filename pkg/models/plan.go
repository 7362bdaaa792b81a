package models

// NoSplitColumn is written to the plan when no safe split column was found.
const NoSplitColumn = "-1"

// SelectionReason explains how a plan entry's column was chosen.
type SelectionReason string

const (
	ReasonPrimaryKey    SelectionReason = "primary_key"    // Single-column primary key
	ReasonDistinctMatch SelectionReason = "distinct_match" // Distinct count equals row count
	ReasonNotFound      SelectionReason = "not_found"      // Every probe succeeded, nothing qualified
	ReasonUndetermined  SelectionReason = "undetermined"   // Nothing qualified and at least one probe failed
	ReasonReservedWord  SelectionReason = "reserved_word"  // Selected name is reserved downstream
)

// AllReasons lists every selection reason in a stable order.
func AllReasons() []SelectionReason {
	return []SelectionReason{
		ReasonPrimaryKey,
		ReasonDistinctMatch,
		ReasonNotFound,
		ReasonUndetermined,
		ReasonReservedWord,
	}
}

// PlanEntry is the split column decision for one table.
type PlanEntry struct {
	Identity     TableIdentity
	Table        string // Identity rendered as [schema].[table]
	ChosenColumn string // Column name or NoSplitColumn
	Reason       SelectionReason
	Stats        *TableStats
}

// HasSplitColumn reports whether a usable column was chosen.
func (e PlanEntry) HasSplitColumn() bool {
	return e.ChosenColumn != NoSplitColumn
}

// Plan is the split column plan for one database.
type Plan struct {
	DatabaseName string
	TableCount   int
	Entries      []PlanEntry
}

// NewPlan builds a plan from its entries. TableCount always equals len(Entries).
func NewPlan(databaseName string, entries []PlanEntry) *Plan {
	if entries == nil {
		entries = []PlanEntry{}
	}
	return &Plan{
		DatabaseName: databaseName,
		TableCount:   len(entries),
		Entries:      entries,
	}
}

// CountByReason tallies entries per selection reason.
func (p *Plan) CountByReason() map[SelectionReason]int {
	counts := make(map[SelectionReason]int, len(AllReasons()))
	for _, e := range p.Entries {
		counts[e.Reason]++
	}
	return counts
}

// SplitColumnCount returns how many tables received a usable split column.
func (p *Plan) SplitColumnCount() int {
	n := 0
	for _, e := range p.Entries {
		if e.HasSplitColumn() {
			n++
		}
	}
	return n
}
