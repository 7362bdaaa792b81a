package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			DefaultPort: DefaultPort(),
		},
		SchemaDiscovererFactory: func(ctx context.Context, cc datasource.ConnectionConfig, logger *zap.Logger) (datasource.SchemaDiscoverer, error) {
			return NewSchemaDiscoverer(FromConnectionConfig(cc), logger)
		},
	})
}
