package models

import (
	"fmt"
	"sync"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/apperrors"
)

// SentinelCount is the value recorded for a count whose probe failed.
const SentinelCount int64 = -1

// TableIdentity names a table within the target database.
// Comparable, so it is used directly as a map key.
type TableIdentity struct {
	SchemaName string `yaml:"schema"`
	TableName  string `yaml:"table"`
}

// String renders the identity as [schema].[table].
func (t TableIdentity) String() string {
	return "[" + t.SchemaName + "].[" + t.TableName + "]"
}

// ProbeStatus is the outcome of a single metadata probe.
type ProbeStatus string

const (
	ProbeStatusOK     ProbeStatus = "ok"     // Probe succeeded and returned data
	ProbeStatusEmpty  ProbeStatus = "empty"  // Probe succeeded but returned nothing (no PK, no columns)
	ProbeStatusFailed ProbeStatus = "failed" // Probe query failed
)

// Count is a row or distinct-value count together with the status of the probe
// that produced it. A failed count always carries SentinelCount.
type Count struct {
	Value  int64       `yaml:"value"`
	Status ProbeStatus `yaml:"status"`
}

// KnownCount returns a successful count.
func KnownCount(v int64) Count {
	return Count{Value: v, Status: ProbeStatusOK}
}

// FailedCount returns the count recorded when a probe fails.
func FailedCount() Count {
	return Count{Value: SentinelCount, Status: ProbeStatusFailed}
}

// Known reports whether the probe behind this count succeeded.
func (c Count) Known() bool {
	return c.Status == ProbeStatusOK
}

// Matches reports whether both counts are known and equal.
// A failed count never matches anything, including another failed count.
func (c Count) Matches(other Count) bool {
	return c.Known() && other.Known() && c.Value == other.Value
}

// ColumnStat is the distinct-value count of one column.
type ColumnStat struct {
	Name          string `yaml:"name"`
	DistinctCount Count  `yaml:"distinct_count"`
}

// ColumnStats holds per-column distinct counts in server-reported column order.
// Column names are unique within a table.
type ColumnStats []ColumnStat

// Names returns the column names in order.
func (cs ColumnStats) Names() []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return names
}

// Get returns the distinct count for a column.
func (cs ColumnStats) Get(name string) (Count, bool) {
	for _, c := range cs {
		if c.Name == name {
			return c.DistinctCount, true
		}
	}
	return Count{}, false
}

// TableStats is everything the collector learned about one table.
// Built once by NewTableStats and never mutated afterwards.
type TableStats struct {
	PrimaryKeys      []string
	PrimaryKeyStatus ProbeStatus
	TotalRowCount    Count
	ColumnsStatus    ProbeStatus
	Columns          ColumnStats
}

// NewTableStats assembles a TableStats, copying the slices it is given so the
// caller cannot change the record after the fact.
func NewTableStats(primaryKeys []string, pkStatus ProbeStatus, total Count, columnsStatus ProbeStatus, columns ColumnStats) *TableStats {
	pks := make([]string, len(primaryKeys))
	copy(pks, primaryKeys)
	cols := make(ColumnStats, len(columns))
	copy(cols, columns)

	return &TableStats{
		PrimaryKeys:      pks,
		PrimaryKeyStatus: pkStatus,
		TotalRowCount:    total,
		ColumnsStatus:    columnsStatus,
		Columns:          cols,
	}
}

// HasSinglePrimaryKey returns true if the table has exactly one primary key column.
func (s *TableStats) HasSinglePrimaryKey() bool {
	return len(s.PrimaryKeys) == 1
}

// Degraded reports whether any probe for this table failed.
func (s *TableStats) Degraded() bool {
	if s.PrimaryKeyStatus == ProbeStatusFailed || s.ColumnsStatus == ProbeStatusFailed || !s.TotalRowCount.Known() {
		return true
	}
	for _, c := range s.Columns {
		if !c.DistinctCount.Known() {
			return true
		}
	}
	return false
}

// DatabaseStats maps every planned table to its statistics.
// Safe for concurrent insertion. Each table may be inserted once.
type DatabaseStats struct {
	mu       sync.Mutex
	order    []TableIdentity
	declared map[TableIdentity]struct{}
	stats    map[TableIdentity]*TableStats
}

// NewDatabaseStats creates an empty DatabaseStats whose iteration order follows
// the given table order. Tables inserted that are not in the order are appended
// after it in insertion order. Repeated entries in order keep their first position.
func NewDatabaseStats(order []TableIdentity) *DatabaseStats {
	d := &DatabaseStats{
		order:    make([]TableIdentity, 0, len(order)),
		declared: make(map[TableIdentity]struct{}, len(order)),
		stats:    make(map[TableIdentity]*TableStats, len(order)),
	}
	for _, t := range order {
		d.declare(t)
	}
	return d
}

// Put records the statistics for a table.
func (d *DatabaseStats) Put(table TableIdentity, stats *TableStats) error {
	if stats == nil {
		return fmt.Errorf("nil stats for %s", table)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.stats[table]; exists {
		return fmt.Errorf("%w: %s", apperrors.ErrDuplicateTable, table)
	}
	d.declare(table)
	d.stats[table] = stats
	return nil
}

// declare appends table to the iteration order unless it is already there.
func (d *DatabaseStats) declare(table TableIdentity) {
	if _, ok := d.declared[table]; ok {
		return
	}
	d.declared[table] = struct{}{}
	d.order = append(d.order, table)
}

// Get returns the statistics recorded for a table.
func (d *DatabaseStats) Get(table TableIdentity) (*TableStats, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.stats[table]
	return s, ok
}

// Len returns the number of tables with recorded statistics.
func (d *DatabaseStats) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.stats)
}

// Each calls fn for every recorded table in iteration order.
// Declared tables that were never recorded are skipped.
func (d *DatabaseStats) Each(fn func(TableIdentity, *TableStats)) {
	d.mu.Lock()
	order := make([]TableIdentity, 0, len(d.order))
	stats := make([]*TableStats, 0, len(d.order))
	for _, t := range d.order {
		if s, ok := d.stats[t]; ok {
			order = append(order, t)
			stats = append(stats, s)
		}
	}
	d.mu.Unlock()

	for i, t := range order {
		fn(t, stats[i])
	}
}
