package testutils

import (
	"context"
	"net"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer is a disposable PostgreSQL server.
type PostgresContainer struct {
	Container testcontainers.Container

	User     string
	Password string
	Name     string
	Host     string
	Port     int
}

// StartPostgresContainer starts a PostgreSQL server terminated at the end of the test.
// The test is skipped when no container provider is available.
func StartPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	const (
		user     = "postgres"
		password = "postgres"
		name     = "testday"
	)

	if runtime.GOOS != "linux" {
		t.Skip("Skipping PostgreSQL container test on non-Linux OS")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       name,
			},
			WaitingFor: wait.ForListeningPort("5432/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err, "Setup: failed to start PostgreSQL container")
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()), "Cleanup: failed to terminate PostgreSQL container")
	})

	host, err := container.Host(ctx)
	require.NoError(t, err, "Setup: failed to get container host")
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err, "Setup: failed to get mapped port")

	pc := &PostgresContainer{
		Container: container,
		User:      user,
		Password:  password,
		Name:      name,
		Host:      host,
		Port:      port.Int(),
	}
	pc.waitReady(t, 2*time.Second, 10)
	return pc
}

// URL returns the connection URL of the server.
func (pc PostgresContainer) URL() string {
	return "postgres://" + pc.User + ":" + pc.Password + "@" + net.JoinHostPort(pc.Host, strconv.Itoa(pc.Port)) + "/" + pc.Name + "?sslmode=disable"
}

// waitReady retries connecting until the server accepts connections.
func (pc PostgresContainer) waitReady(t *testing.T, timeout time.Duration, attempts int) {
	t.Helper()

	var err error
	for i := range attempts {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		var conn *pgx.Conn
		conn, err = pgx.Connect(ctx, pc.URL())
		cancel()
		if err != nil {
			t.Logf("Attempt %d: failed to connect to database: %v", i+1, err)
			time.Sleep(time.Second)
			continue
		}
		require.NoError(t, conn.Close(context.Background()), "Setup: failed to close readiness connection")
		return
	}
	require.NoError(t, err, "Setup: database did not become ready after %d attempts", attempts)
}
