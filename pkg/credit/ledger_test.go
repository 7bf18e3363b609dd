package credit_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/novelforge/novelforge/pkg/credit"
	"github.com/novelforge/novelforge/pkg/database"
	"github.com/novelforge/novelforge/pkg/model"
)

func newTestLedger(t *testing.T, quotas credit.Quotas) (*credit.Ledger, string) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("novelforge_test"),
		tcpostgres.WithUsername("novelforge"),
		tcpostgres.WithPassword("novelforge"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	client, err := database.NewClient(ctx, database.Config{
		Host: host, Port: port.Int(), User: "novelforge", Password: "novelforge",
		Database: "novelforge_test", SSLMode: "disable", MaxOpenConns: 10, MaxIdleConns: 5,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	// credit_pools.user_id references users(user_id); insert the owner row first.
	userID := "00000000-0000-0000-0000-000000000001"
	_, err = client.Pool.Exec(ctx, `INSERT INTO users (user_id, email, password_hash) VALUES ($1, 'a@b.com', 'x')`, userID)
	require.NoError(t, err)

	ledger := credit.New(client, quotas)
	require.NoError(t, ledger.EnsureUser(ctx, userID))
	return ledger, userID
}

func TestConsumeDecrementsPool(t *testing.T) {
	ledger, userID := newTestLedger(t, credit.Quotas{Flash: 10, Pro: 3, Ultra: 1})
	ctx := context.Background()

	ok, after, err := ledger.Consume(ctx, userID, model.ModePro)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, after.Pro)
}

func TestConsumeFailsWhenExhausted(t *testing.T) {
	ledger, userID := newTestLedger(t, credit.Quotas{Flash: 1, Pro: 0, Ultra: 0})
	ctx := context.Background()

	ok, _, err := ledger.Consume(ctx, userID, model.ModePro)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestCreditNonNegativeUnderConcurrency is spec.md §8's "Credit
// non-negativity": for any interleaving of concurrent consumes, the
// final pool is >= 0 and successful consumes == initial - final.
func TestCreditNonNegativeUnderConcurrency(t *testing.T) {
	const initial = 20
	ledger, userID := newTestLedger(t, credit.Quotas{Flash: initial, Pro: 0, Ultra: 0})
	ctx := context.Background()

	const workers = 40
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := ledger.Consume(ctx, userID, model.ModeFlash)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	pool, _, err := ledger.Get(ctx, userID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, pool.Flash, 0)
	require.Equal(t, initial-successes, pool.Flash)
	require.Equal(t, initial, successes) // exactly `initial` succeed, the rest fail
}
