package event

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const outboxTableDDL = `CREATE TABLE outbox_events (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL UNIQUE,
	event_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	payload BLOB NOT NULL,
	status TEXT DEFAULT 'PENDING',
	retry_count INTEGER DEFAULT 0,
	max_retries INTEGER DEFAULT 5,
	last_error TEXT,
	next_retry_at DATETIME,
	processed_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Exec(outboxTableDDL).Error)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEntry(t *testing.T, s *EventSerializer, aggregateID uuid.UUID) *shared.OutboxEntry {
	t.Helper()
	evt := statusChanged(aggregateID, procurement.POStatusPending)
	payload, err := s.Serialize(evt)
	require.NoError(t, err)
	return shared.NewOutboxEntry(evt, payload)
}

func TestGormOutboxRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	s := NewEventSerializer()
	RegisterProcurementEvents(s)

	first := newTestEntry(t, s, uuid.New())
	first.CreatedAt = time.Now().Add(-time.Minute)
	second := newTestEntry(t, s, uuid.New())
	require.NoError(t, repo.Save(ctx, first, second))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, first.Payload, pending[0].Payload)

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{first.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "an entry is claimed only once")

	claimed[0].MarkSent()
	require.NoError(t, repo.Update(ctx, claimed[0]))
	claimed[1].MarkFailed("handler unavailable")
	past := time.Now().Add(-time.Hour)
	claimed[1].NextRetryAt = &past
	require.NoError(t, repo.Update(ctx, claimed[1]))

	stored, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Equal(t, "handler unavailable", stored.LastError)

	retryable, err := repo.FindRetryable(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, second.ID, retryable[0].ID)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOutboxRepository_EmptyInputs(t *testing.T) {
	repo := NewGormOutboxRepository(setupOutboxTestDB(t))

	assert.NoError(t, repo.Save(context.Background()))
	claimed, err := repo.MarkProcessing(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestGormOutboxRepository_MarkProcessing_SkipsLockedRows(t *testing.T) {
	db := testutil.NewMockDB(t)

	id := uuid.New()
	db.Mock.ExpectBegin()
	db.Mock.ExpectQuery(`(?s)SELECT \* FROM "outbox_events" WHERE .*FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "status"}).
			AddRow(id.String(), procurement.EventTypePOCreated, string(shared.OutboxStatusPending)))
	db.Mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outbox_events" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	db.Mock.ExpectCommit()

	claimed, err := NewGormOutboxRepository(db.DB).MarkProcessing(context.Background(), []uuid.UUID{id})

	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, id, claimed[0].ID)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)
	db.ExpectationsWereMet(t)
}

func TestOutboxPublisher_SaveEvents(t *testing.T) {
	ctx := context.Background()
	db := setupOutboxTestDB(t)
	s := NewEventSerializer()
	RegisterProcurementEvents(s)
	publisher := NewOutboxPublisher(s, 3)

	orderID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.SaveEvents(ctx, tx,
			statusChanged(orderID, procurement.POStatusPending),
			statusChanged(orderID, procurement.POStatusAccepted),
		)
	})
	require.NoError(t, err)

	pending, err := NewGormOutboxRepository(db).FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, e := range pending {
		assert.Equal(t, orderID, e.AggregateID)
		assert.Equal(t, procurement.AggregateTypePurchaseOrder, e.AggregateType)
		assert.Equal(t, 3, e.MaxRetries)
	}

	assert.NoError(t, publisher.SaveEvents(ctx, db))
	assert.ErrorContains(t, publisher.SaveEvents(ctx, "not a tx", statusChanged(orderID, procurement.POStatusPending)),
		"txProvider must be a *gorm.DB")
}

func TestOutboxPublisher_RollsBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	db := setupOutboxTestDB(t)
	s := NewEventSerializer()
	RegisterProcurementEvents(s)
	publisher := NewOutboxPublisher(s, 0)

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, publisher.PublishWithTx(ctx, tx, statusChanged(uuid.New(), procurement.POStatusPending)))
		return assert.AnError
	})

	counts, err := NewGormOutboxRepository(db).CountByStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}
