package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func withCleanRegistry(t *testing.T) {
	t.Helper()
	registryMu.Lock()
	saved := registry
	registry = make(map[string]DatasourceAdapterRegistration)
	registryMu.Unlock()

	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	withCleanRegistry(t)

	called := false
	Register(DatasourceAdapterRegistration{
		Info: DatasourceAdapterInfo{Type: "mssql", DisplayName: "Microsoft SQL Server", DefaultPort: 1433},
		SchemaDiscovererFactory: func(ctx context.Context, cfg ConnectionConfig, logger *zap.Logger) (SchemaDiscoverer, error) {
			called = true
			return nil, nil
		},
	})

	assert.True(t, IsRegistered("mssql"))
	assert.False(t, IsRegistered("oracle"))

	factory := GetSchemaDiscovererFactory("mssql")
	require.NotNil(t, factory)
	_, err := factory(context.Background(), ConnectionConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, called)

	assert.Nil(t, GetSchemaDiscovererFactory("oracle"))
}

func TestRegistry_RegisteredAdaptersSorted(t *testing.T) {
	withCleanRegistry(t)

	Register(DatasourceAdapterRegistration{Info: DatasourceAdapterInfo{Type: "postgres", DefaultPort: 5432}})
	Register(DatasourceAdapterRegistration{Info: DatasourceAdapterInfo{Type: "mssql", DefaultPort: 1433}})

	adapters := RegisteredAdapters()
	require.Len(t, adapters, 2)
	assert.Equal(t, "mssql", adapters[0].Type)
	assert.Equal(t, "postgres", adapters[1].Type)
}

func TestRegistry_ReRegisterReplaces(t *testing.T) {
	withCleanRegistry(t)

	Register(DatasourceAdapterRegistration{Info: DatasourceAdapterInfo{Type: "mssql", DisplayName: "old"}})
	Register(DatasourceAdapterRegistration{Info: DatasourceAdapterInfo{Type: "mssql", DisplayName: "new"}})

	adapters := RegisteredAdapters()
	require.Len(t, adapters, 1)
	assert.Equal(t, "new", adapters[0].DisplayName)
}
