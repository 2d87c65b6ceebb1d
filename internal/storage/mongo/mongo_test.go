package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты поднимают MongoDB в контейнере один раз на пакет.
// Запуск:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/mongo -v -count=1

const testTimeout = 10 * time.Second

func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7.0",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("MONGODB_URL", fmt.Sprintf("mongodb://%s:%s", host, port.Port()))

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

// mustNewMongo подключается к отдельной БД на каждый тест и удаляет её по завершении.
func mustNewMongo(t *testing.T) *Mongo {
	t.Helper()

	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	uri := os.Getenv("MONGODB_URL") + "/accounts_test_" + uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	m, err := New(ctx, uri)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = m.db.Drop(ctx)
		_ = m.Close(ctx)
	})

	return m
}

func sampleAccount(username, email string) *models.Account {
	return &models.Account{
		Username:     username,
		Email:        email,
		FullName:     "Sample User",
		PasswordHash: "$2a$10$hash",
		Avatar:       "http://cdn.local/avatar/a.png",
	}
}

func TestDatabaseFromURI(t *testing.T) {
	t.Parallel()

	require.Equal(t, "accounts", databaseFromURI("mongodb://localhost:27017/accounts"))
	require.Equal(t, defaultDBName, databaseFromURI("mongodb://localhost:27017"))
	require.Equal(t, defaultDBName, databaseFromURI("mongodb://localhost:27017/"))
	require.Equal(t, "db", databaseFromURI("mongodb://u:p@host/db?authSource=admin"))
}

func TestNew_EmptyURI(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "  ")
	require.Error(t, err)
}

func TestCreateAccount_AndLookups(t *testing.T) {
	m := mustNewMongo(t)
	ctx := context.Background()

	created, err := m.CreateAccount(ctx, sampleAccount("alice", "alice@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())

	byID, err := m.AccountByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)
	require.Equal(t, "$2a$10$hash", byID.PasswordHash)

	byHandle, err := m.AccountByHandleOrEmail(ctx, "alice", "")
	require.NoError(t, err)
	require.Equal(t, created.ID, byHandle.ID)

	byEmail, err := m.AccountByHandleOrEmail(ctx, "", "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	_, err = m.AccountByHandleOrEmail(ctx, "bob", "bob@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = m.AccountByHandleOrEmail(ctx, "", "")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = m.AccountByID(ctx, "not-an-object-id")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateAccount_UniqueHandleAndEmail(t *testing.T) {
	m := mustNewMongo(t)
	ctx := context.Background()

	_, err := m.CreateAccount(ctx, sampleAccount("alice", "alice@example.com"))
	require.NoError(t, err)

	_, err = m.CreateAccount(ctx, sampleAccount("alice", "other@example.com"))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = m.CreateAccount(ctx, sampleAccount("other", "alice@example.com"))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestCreateAccount_ConcurrentSameHandle_OneWins(t *testing.T) {
	m := mustNewMongo(t)
	ctx := context.Background()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, dupes int
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.CreateAccount(ctx, sampleAccount("race", fmt.Sprintf("race%d@example.com", i)))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, storage.ErrAlreadyExists) {
				dupes++
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Equal(t, n-1, dupes)
}

func TestRefreshToken_SetClearRotate(t *testing.T) {
	m := mustNewMongo(t)
	ctx := context.Background()

	acc, err := m.CreateAccount(ctx, sampleAccount("alice", "alice@example.com"))
	require.NoError(t, err)

	require.NoError(t, m.SetRefreshToken(ctx, acc.ID, "r1"))
	got, err := m.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "r1", got.RefreshToken)

	swapped, err := m.RotateRefreshToken(ctx, acc.ID, "stale", "r2")
	require.NoError(t, err)
	require.False(t, swapped)

	swapped, err = m.RotateRefreshToken(ctx, acc.ID, "r1", "r2")
	require.NoError(t, err)
	require.True(t, swapped)

	swapped, err = m.RotateRefreshToken(ctx, acc.ID, "r1", "r3")
	require.NoError(t, err)
	require.False(t, swapped)

	require.NoError(t, m.SetRefreshToken(ctx, acc.ID, ""))
	got, err = m.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Empty(t, got.RefreshToken)

	// Повторная очистка идемпотентна.
	require.NoError(t, m.SetRefreshToken(ctx, acc.ID, ""))

	err = m.SetRefreshToken(ctx, "000000000000000000000000", "x")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdates(t *testing.T) {
	m := mustNewMongo(t)
	ctx := context.Background()

	acc, err := m.CreateAccount(ctx, sampleAccount("alice", "alice@example.com"))
	require.NoError(t, err)
	_, err = m.CreateAccount(ctx, sampleAccount("bob", "bob@example.com"))
	require.NoError(t, err)

	upd, err := m.UpdatePassword(ctx, acc.ID, "$2a$10$new")
	require.NoError(t, err)
	require.Equal(t, "$2a$10$new", upd.PasswordHash)
	require.False(t, upd.UpdatedAt.Before(acc.UpdatedAt))

	upd, err = m.UpdateDetails(ctx, acc.ID, "Alice Renamed", "alice2@example.com")
	require.NoError(t, err)
	require.Equal(t, "Alice Renamed", upd.FullName)
	require.Equal(t, "alice2@example.com", upd.Email)

	_, err = m.UpdateDetails(ctx, acc.ID, "Alice", "bob@example.com")
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	upd, err = m.UpdateAvatar(ctx, acc.ID, "http://cdn.local/avatar/b.png")
	require.NoError(t, err)
	require.Equal(t, "http://cdn.local/avatar/b.png", upd.Avatar)

	upd, err = m.UpdateCoverImage(ctx, acc.ID, "http://cdn.local/coverImage/c.png")
	require.NoError(t, err)
	require.Equal(t, "http://cdn.local/coverImage/c.png", upd.CoverImage)

	_, err = m.UpdateAvatar(ctx, "000000000000000000000000", "x")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
