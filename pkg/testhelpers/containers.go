package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// MSSQLImage is the SQL Server image used for integration tests.
	MSSQLImage = "mcr.microsoft.com/mssql/server:2022-latest"
	// PostgresImage is the PostgreSQL image used for integration tests.
	PostgresImage = "postgres:16-alpine"

	testPassword = "Splitplan_Test1"
	testDatabase = "planner_test"
)

// TestDB describes a running database container.
type TestDB struct {
	Container testcontainers.Container
	Host      string
	Port      int
	Username  string
	Password  string
	Database  string
}

// MSSQLTestDB holds a shared SQL Server container with planner_test created.
type MSSQLTestDB struct {
	TestDB
	DB *sql.DB
}

// PostgresTestDB holds a shared PostgreSQL container and pool.
type PostgresTestDB struct {
	TestDB
	Pool *pgxpool.Pool
}

var (
	sharedMSSQL     *MSSQLTestDB
	sharedMSSQLOnce sync.Once
	sharedMSSQLErr  error

	sharedPostgres     *PostgresTestDB
	sharedPostgresOnce sync.Once
	sharedPostgresErr  error
)

// GetMSSQLTestDB returns a shared SQL Server container for integration tests.
// The container is created once and reused across all tests in the run.
func GetMSSQLTestDB(t *testing.T) *MSSQLTestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedMSSQLOnce.Do(func() {
		sharedMSSQL, sharedMSSQLErr = setupMSSQL()
	})

	if sharedMSSQLErr != nil {
		t.Fatalf("Failed to setup SQL Server test database: %v", sharedMSSQLErr)
	}

	return sharedMSSQL
}

// GetPostgresTestDB returns a shared PostgreSQL container for integration tests.
func GetPostgresTestDB(t *testing.T) *PostgresTestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPostgresOnce.Do(func() {
		sharedPostgres, sharedPostgresErr = setupPostgres()
	})

	if sharedPostgresErr != nil {
		t.Fatalf("Failed to setup PostgreSQL test database: %v", sharedPostgresErr)
	}

	return sharedPostgres
}

// Exec runs setup statements one at a time against the test database.
func (m *MSSQLTestDB) Exec(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		if _, err := m.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// Exec runs setup statements one at a time against the test database.
func (p *PostgresTestDB) Exec(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		if _, err := p.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func setupMSSQL() (*MSSQLTestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        MSSQLImage,
		ExposedPorts: []string{"1433/tcp"},
		Env: map[string]string{
			"ACCEPT_EULA":       "Y",
			"MSSQL_SA_PASSWORD": testPassword,
			"MSSQL_PID":         "Developer",
		},
		WaitingFor: wait.ForLog("SQL Server is now ready for client connections").
			WithStartupTimeout(3 * time.Minute),
	}

	container, host, port, err := startContainer(ctx, req, "1433")
	if err != nil {
		return nil, err
	}

	db, err := openMSSQL(host, port, "master")
	if err != nil {
		return nil, err
	}
	if err := pingUntilReady(ctx, db.PingContext); err != nil {
		return nil, fmt.Errorf("SQL Server not reachable: %w", err)
	}
	if _, err := db.ExecContext(ctx, "IF DB_ID(N'"+testDatabase+"') IS NULL CREATE DATABASE "+testDatabase); err != nil {
		return nil, fmt.Errorf("create test database: %w", err)
	}
	db.Close()

	db, err = openMSSQL(host, port, testDatabase)
	if err != nil {
		return nil, err
	}

	return &MSSQLTestDB{
		TestDB: TestDB{
			Container: container,
			Host:      host,
			Port:      port,
			Username:  "sa",
			Password:  testPassword,
			Database:  testDatabase,
		},
		DB: db,
	}, nil
}

func setupPostgres() (*PostgresTestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDatabase,
			"POSTGRES_USER":     "planner",
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, host, port, err := startContainer(ctx, req, "5432")
	if err != nil {
		return nil, err
	}

	connStr := fmt.Sprintf("postgres://planner:%s@%s/%s?sslmode=disable",
		testPassword, net.JoinHostPort(host, fmt.Sprint(port)), testDatabase)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pingUntilReady(ctx, pool.Ping); err != nil {
		return nil, fmt.Errorf("PostgreSQL not reachable: %w", err)
	}

	return &PostgresTestDB{
		TestDB: TestDB{
			Container: container,
			Host:      host,
			Port:      port,
			Username:  "planner",
			Password:  testPassword,
			Database:  testDatabase,
		},
		Pool: pool,
	}, nil
}

func startContainer(ctx context.Context, req testcontainers.ContainerRequest, containerPort string) (testcontainers.Container, string, int, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, nat.Port(containerPort))
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to get container port: %w", err)
	}

	return container, host, mapped.Int(), nil
}

func openMSSQL(host string, port int, database string) (*sql.DB, error) {
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword("sa", testPassword),
		Host:     net.JoinHostPort(host, fmt.Sprint(port)),
		RawQuery: url.Values{"database": {database}, "encrypt": {"disable"}}.Encode(),
	}
	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("open SQL Server connection: %w", err)
	}
	return db, nil
}

// pingUntilReady retries for up to 30s; the ready log line can precede
// the listener accepting logins.
func pingUntilReady(ctx context.Context, ping func(context.Context) error) error {
	var err error
	for i := 0; i < 60; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return err
}
