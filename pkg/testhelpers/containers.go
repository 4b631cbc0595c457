// Package testhelpers provides shared container fixtures for integration
// tests that need a real database.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresUser     = "datalens"
	postgresPassword = "test_password"
	postgresDatabase = "test_data"
)

// TestPostgres holds a shared PostgreSQL container for integration tests.
type TestPostgres struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	Host      string
	Port      int
	ConnStr   string
}

// Config returns the adapter settings map for this container.
func (p *TestPostgres) Config() map[string]any {
	return map[string]any{
		"host":     p.Host,
		"port":     p.Port,
		"database": postgresDatabase,
		"user":     postgresUser,
		"password": postgresPassword,
		"ssl_mode": "disable",
	}
}

var (
	sharedPostgres     *TestPostgres
	sharedPostgresOnce sync.Once
	sharedPostgresErr  error
)

// GetTestPostgres returns a shared PostgreSQL container seeded with a small
// test schema. The container is created once and reused across all tests in
// the run.
func GetTestPostgres(t *testing.T) *TestPostgres {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPostgresOnce.Do(func() {
		sharedPostgres, sharedPostgresErr = setupPostgres()
	})

	if sharedPostgresErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedPostgresErr)
	}

	return sharedPostgres
}

func setupPostgres() (*TestPostgres, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       postgresDatabase,
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, host, port.Port(), postgresDatabase)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	if err := seedSchema(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to seed test schema: %w", err)
	}

	return &TestPostgres{
		Container: container,
		Pool:      pool,
		Host:      host,
		Port:      port.Int(),
		ConnStr:   connStr,
	}, nil
}

// seedSchema loads a small fixed dataset the adapter tests query against.
func seedSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT,
			signed_up TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id SERIAL PRIMARY KEY,
			customer_id INTEGER NOT NULL REFERENCES customers(id),
			total NUMERIC(10,2) NOT NULL,
			placed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`INSERT INTO customers (name, email) VALUES
			('Ada Lovelace', 'ada@example.com'),
			('Grace Hopper', 'grace@example.com'),
			('Alan Turing', NULL)
		ON CONFLICT DO NOTHING`,
		`INSERT INTO orders (customer_id, total) VALUES
			(1, 19.99), (1, 5.00), (2, 120.50)
		ON CONFLICT DO NOTHING`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
