package planfile

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
)

// Report is the optional YAML companion to the plan file. It carries the
// statistics behind every decision so a -1 can be explained.
type Report struct {
	Database    string         `yaml:"database"`
	RunID       string         `yaml:"run_id"`
	GeneratedAt time.Time      `yaml:"generated_at"`
	TableCount  int            `yaml:"table_count"`
	Summary     map[string]int `yaml:"summary"`
	Tables      []TableReport  `yaml:"tables"`
}

// TableReport is one table's decision and statistics.
type TableReport struct {
	Table            string              `yaml:"table"`
	ChosenColumn     string              `yaml:"chosen_column"`
	Reason           string              `yaml:"reason"`
	PrimaryKeys      []string            `yaml:"primary_keys,omitempty"`
	PrimaryKeyStatus models.ProbeStatus  `yaml:"primary_key_status,omitempty"`
	TotalRows        *models.Count       `yaml:"total_rows,omitempty"`
	ColumnsStatus    models.ProbeStatus  `yaml:"columns_status,omitempty"`
	Columns          []models.ColumnStat `yaml:"columns,omitempty"`
}

// NewReport builds a report from a finished plan.
func NewReport(plan *models.Plan, runID string, generatedAt time.Time) *Report {
	summary := make(map[string]int, len(models.AllReasons()))
	counts := plan.CountByReason()
	for _, reason := range models.AllReasons() {
		summary[string(reason)] = counts[reason]
	}

	tables := make([]TableReport, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		tr := TableReport{
			Table:        e.Table,
			ChosenColumn: e.ChosenColumn,
			Reason:       string(e.Reason),
		}
		if e.Stats != nil {
			total := e.Stats.TotalRowCount
			tr.PrimaryKeys = e.Stats.PrimaryKeys
			tr.PrimaryKeyStatus = e.Stats.PrimaryKeyStatus
			tr.TotalRows = &total
			tr.ColumnsStatus = e.Stats.ColumnsStatus
			tr.Columns = e.Stats.Columns
		}
		tables = append(tables, tr)
	}

	return &Report{
		Database:    plan.DatabaseName,
		RunID:       runID,
		GeneratedAt: generatedAt.UTC(),
		TableCount:  plan.TableCount,
		Summary:     summary,
		Tables:      tables,
	}
}

// WriteReport encodes the report as YAML and writes it atomically.
func WriteReport(path string, report *Report) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return &apperrors.SerializationError{Path: path, Err: err}
	}
	if err := enc.Close(); err != nil {
		return &apperrors.SerializationError{Path: path, Err: err}
	}
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return &apperrors.SerializationError{Path: path, Err: err}
	}
	return nil
}

// ReadReport decodes a report written by WriteReport.
func ReadReport(data []byte) (*Report, error) {
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
