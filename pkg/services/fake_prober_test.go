package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
)

var errProbe = errors.New("query timeout expired")

// fakeTable scripts the probe answers for one table.
type fakeTable struct {
	primaryKeys []string
	pkErr       error

	rows      int64
	rowsErr   error
	rowsBlock bool // CountRows waits for ctx

	columns    []string
	columnsErr error

	distinct    map[string]int64
	distinctErr map[string]error
}

type fakeProber struct {
	mu sync.Mutex

	listed  []datasource.TableMetadata
	listErr error
	tables  map[models.TableIdentity]*fakeTable
	delay   time.Duration

	inFlight    int
	maxInFlight int
	distinctFor []string
}

func newFakeProber() *fakeProber {
	return &fakeProber{tables: make(map[models.TableIdentity]*fakeTable)}
}

func (f *fakeProber) add(schema, table string, ft *fakeTable) models.TableIdentity {
	id := models.TableIdentity{SchemaName: schema, TableName: table}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[id] = ft
	f.listed = append(f.listed, datasource.TableMetadata{SchemaName: schema, TableName: table, RowCount: ft.rows})
	return id
}

func (f *fakeProber) table(id models.TableIdentity) (*fakeTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ft, ok := f.tables[id]
	if !ok {
		return nil, fmt.Errorf("invalid object name %s", id)
	}
	return ft, nil
}

func (f *fakeProber) DiscoverTables(ctx context.Context, database string) ([]datasource.TableMetadata, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listed, nil
}

func (f *fakeProber) DiscoverPrimaryKeys(ctx context.Context, database string, table models.TableIdentity) ([]string, error) {
	ft, err := f.table(table)
	if err != nil {
		return nil, err
	}
	return ft.primaryKeys, ft.pkErr
}

func (f *fakeProber) CountRows(ctx context.Context, database string, table models.TableIdentity) (int64, error) {
	ft, err := f.table(table)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if ft.rowsBlock {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return ft.rows, ft.rowsErr
}

func (f *fakeProber) DiscoverColumns(ctx context.Context, database string, table models.TableIdentity) ([]string, error) {
	ft, err := f.table(table)
	if err != nil {
		return nil, err
	}
	return ft.columns, ft.columnsErr
}

func (f *fakeProber) CountDistinct(ctx context.Context, database string, table models.TableIdentity, column string) (int64, error) {
	ft, err := f.table(table)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	f.distinctFor = append(f.distinctFor, table.String()+"."+column)
	f.mu.Unlock()
	if err := ft.distinctErr[column]; err != nil {
		return 0, err
	}
	return ft.distinct[column], nil
}

func (f *fakeProber) maxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}
