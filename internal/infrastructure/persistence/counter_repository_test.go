package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterRepository_Next(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewCounterRepository(db)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := repo.Next(ctx, procurement.DocumentPurchaseOrder, 2026)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	t.Run("series are independent", func(t *testing.T) {
		got, err := repo.Next(ctx, procurement.DocumentInvoice, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got)

		got, err = repo.Next(ctx, procurement.DocumentPurchaseOrder, 2027)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
	})

	t.Run("current", func(t *testing.T) {
		got, err := repo.Current(ctx, procurement.DocumentPurchaseOrder, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got)

		got, err = repo.Current(ctx, procurement.DocumentInvoice, 1999)
		require.NoError(t, err)
		assert.Zero(t, got)
	})
}

func TestCounterRepository_Next_Concurrent(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewCounterRepository(db)
	ctx := context.Background()

	const callers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := repo.Next(ctx, procurement.DocumentInvoice, 2026)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, callers)
	for i := int64(1); i <= callers; i++ {
		assert.True(t, seen[i], "missing sequence value %d", i)
	}
}

func TestCounterRepository_Next_PostgresUpsert(t *testing.T) {
	db := testutil.NewMockDB(t)

	db.Mock.ExpectQuery(`(?s)INSERT INTO document_counters.*ON CONFLICT \(entity_type, year\) DO UPDATE SET value = document_counters.value \+ 1.*RETURNING value`).
		WithArgs("purchase_order", 2026, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(42))

	got, err := NewCounterRepository(db.DB).Next(context.Background(), procurement.DocumentPurchaseOrder, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
	db.ExpectationsWereMet(t)
}
