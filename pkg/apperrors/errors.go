package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrMetadataQuery  = errors.New("metadata query failed")
	ErrSerialization  = errors.New("plan serialization failed")
	ErrNoColumns      = errors.New("table has no columns")
	ErrDuplicateTable = errors.New("table already recorded")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Query scopes identify which probe issued a failing metadata query.
const (
	ScopeDatabase    = "database"
	ScopeColumns     = "columns"
	ScopePrimaryKeys = "primary_keys"
	ScopeRowCount    = "row_count"
	ScopeDistinct    = "distinct_count"
)

// MetadataQueryError is a failure executing a metadata or statistics query.
// Table and Column are empty when the query was not scoped to them.
type MetadataQueryError struct {
	Scope    string
	Database string
	Table    string
	Column   string
	Err      error
}

func (e *MetadataQueryError) Error() string {
	target := e.Database
	if e.Table != "" {
		target += "." + e.Table
	}
	if e.Column != "" {
		target += "." + e.Column
	}
	return fmt.Sprintf("%s query on %s: %v", e.Scope, target, e.Err)
}

func (e *MetadataQueryError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMetadataQuery) hold for every MetadataQueryError.
func (e *MetadataQueryError) Is(target error) bool {
	return target == ErrMetadataQuery
}

// SerializationError is a failure opening or writing an output file.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}
