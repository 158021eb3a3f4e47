package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Calum-Kerr/revisepdf-front/config"
	"github.com/Calum-Kerr/revisepdf-front/internal/model"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/pubsub"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/queue"
	"github.com/Calum-Kerr/revisepdf-front/internal/repository"
	"github.com/Calum-Kerr/revisepdf-front/internal/testutil"
	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
	"github.com/Calum-Kerr/revisepdf-front/internal/usage"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*pubsub.UsageMessage
	err  error
}

func (f *fakePublisher) PublishUsage(ctx context.Context, msg *pubsub.UsageMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

type fakeAlerts struct {
	mu   sync.Mutex
	msgs []*queue.AlertMessage
	err  error
}

func (f *fakeAlerts) Push(ctx context.Context, msg *queue.AlertMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

type ledgerFixture struct {
	db        *gorm.DB
	service   *LedgerService
	publisher *fakePublisher
	alerts    *fakeAlerts
}

func setupLedger(t *testing.T) *ledgerFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	publisher := &fakePublisher{}
	alerts := &fakeAlerts{}
	cfg := &config.Config{Ledger: config.LedgerConfig{AlertsEnabled: true}}

	service := NewLedgerService(
		repository.NewAccountRepository(db),
		repository.NewOperationRepository(db),
		tier.DefaultCatalog(),
		publisher,
		alerts,
		cfg,
	).WithClock(testutil.Clock(testutil.Now))

	return &ledgerFixture{db: db, service: service, publisher: publisher, alerts: alerts}
}

func compress(size int64) usage.Request {
	return usage.Request{OperationType: usage.OperationCompress, FileSizeBytes: size, FileCount: 1}
}

func reload(t *testing.T, db *gorm.DB, userID string) *model.UserAccount {
	t.Helper()
	account, err := repository.NewAccountRepository(db).GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return account
}

func countRecords(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.OperationRecord{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestLedgerService_RecordOperation_EndToEnd(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(4))
	ctx := context.Background()

	res, err := f.service.RecordOperation(ctx, account.UserID, compress(2*tier.MB))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, int64(0), res.CostCents)
	assert.Equal(t, 5, res.CountersAfter.DailyFilesUsed)
	assert.True(t, strings.HasPrefix(res.OperationID, "op_"))

	res, err = f.service.RecordOperation(ctx, account.UserID, compress(2*tier.MB))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, usage.DenialDailyLimitExceeded, res.DenialReason)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, 5, res.CountersAfter.DailyFilesUsed)

	stored := reload(t, f.db, account.UserID)
	assert.Equal(t, 5, stored.DailyFilesUsed)
	assert.Equal(t, 2*tier.MB, stored.TotalProcessedBytes)
	assert.Equal(t, int64(2), countRecords(t, f.db, account.UserID))
}

func TestLedgerService_RecordOperation_QuotaMonotonicity(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		res, err := f.service.RecordOperation(ctx, account.UserID, compress(tier.MB))
		require.NoError(t, err)
		require.True(t, res.Accepted, "operation %d should be accepted", i)
		assert.Equal(t, i, res.CountersAfter.DailyFilesUsed)
	}

	res, err := f.service.RecordOperation(ctx, account.UserID, compress(tier.MB))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, usage.DenialDailyLimitExceeded, res.DenialReason)
}

func TestLedgerService_RecordOperation_DenialDoesNotMutateCounters(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(2), testutil.WithProcessedBytes(777))

	res, err := f.service.RecordOperation(context.Background(), account.UserID, compress(11*tier.MB))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, usage.DenialFileTooLarge, res.DenialReason)
	assert.Equal(t, int64(0), res.CostCents)

	stored := reload(t, f.db, account.UserID)
	assert.Equal(t, 2, stored.DailyFilesUsed)
	assert.Equal(t, 0, stored.MonthlyFilesUsed)
	assert.Equal(t, int64(777), stored.TotalProcessedBytes)

	var record model.OperationRecord
	require.NoError(t, f.db.Where("id = ?", res.OperationID).First(&record).Error)
	assert.False(t, record.Accepted)
	assert.Equal(t, usage.DenialFileTooLarge, record.DenialReason)
	assert.Empty(t, f.alerts.msgs)
}

func TestLedgerService_RecordOperation_DailyRollover(t *testing.T) {
	f := setupLedger(t)
	yesterday := testutil.Now.Add(-24 * time.Hour)
	account := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(5), testutil.WithLastDailyReset(yesterday))

	res, err := f.service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 1, res.CountersAfter.DailyFilesUsed)

	stored := reload(t, f.db, account.UserID)
	assert.Equal(t, 1, stored.DailyFilesUsed)
	assert.True(t, usage.Date(testutil.Now).Equal(stored.LastDailyReset))
}

func TestLedgerService_RecordOperation_MonthlyRollover(t *testing.T) {
	f := setupLedger(t)
	end := testutil.Now.Add(-time.Hour)
	account := testutil.TestAccount(t, f.db,
		testutil.WithTier(tier.Personal),
		testutil.WithMonthlyUsed(100),
		testutil.WithPeriod(end.Add(-usage.BillingPeriod), end),
	)

	res, err := f.service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 1, res.CountersAfter.MonthlyFilesUsed)
	assert.Equal(t, 0, res.CountersAfter.DailyFilesUsed)

	stored := reload(t, f.db, account.UserID)
	assert.True(t, end.Add(usage.BillingPeriod).Equal(stored.PeriodEnd), "period advances from the previous end")
	assert.True(t, end.Equal(stored.PeriodStart))
}

func TestLedgerService_RecordOperation_PayPerUse(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db, testutil.WithTier(tier.PayPerUse))

	res, err := f.service.RecordOperation(context.Background(), account.UserID, compress(25_000_000))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, int64(30), res.CostCents)
	assert.Equal(t, 0, res.CountersAfter.DailyFilesUsed)
	assert.Equal(t, 0, res.CountersAfter.MonthlyFilesUsed)
	assert.Equal(t, int64(25_000_000), res.CountersAfter.TotalProcessedBytes)

	var record model.OperationRecord
	require.NoError(t, f.db.Where("id = ?", res.OperationID).First(&record).Error)
	assert.Equal(t, int64(30), record.CostCents)
}

func TestLedgerService_RecordOperation_Isolation(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(4))

	const workers = 2
	results := make([]bool, workers)
	reasons := make([]usage.DenialReason, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res, err := f.service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
			errs[i] = err
			if err == nil {
				results[i] = res.Accepted
				reasons[i] = res.DenialReason
			}
		}(i)
	}
	close(start)
	wg.Wait()

	accepted := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if results[i] {
			accepted++
		} else {
			assert.Equal(t, usage.DenialDailyLimitExceeded, reasons[i])
		}
	}
	assert.Equal(t, 1, accepted, "exactly one concurrent request fits under quota")
	assert.Equal(t, 5, reload(t, f.db, account.UserID).DailyFilesUsed)
	assert.Equal(t, int64(2), countRecords(t, f.db, account.UserID))
}

func TestLedgerService_RecordOperation_CrossUserIndependent(t *testing.T) {
	f := setupLedger(t)
	a := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(5))
	b := testutil.TestAccount(t, f.db)

	res, err := f.service.RecordOperation(context.Background(), a.UserID, compress(tier.MB))
	require.NoError(t, err)
	assert.False(t, res.Accepted)

	res, err = f.service.RecordOperation(context.Background(), b.UserID, compress(tier.MB))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestLedgerService_RecordOperation_AccountNotFound(t *testing.T) {
	f := setupLedger(t)

	_, err := f.service.RecordOperation(context.Background(), "nobody", compress(tier.MB))
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, int64(0), countRecords(t, f.db, "nobody"))
}

func TestLedgerService_RecordOperation_InvalidRequest(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db)

	_, err := f.service.RecordOperation(context.Background(), account.UserID, usage.Request{OperationType: "rotate", FileSizeBytes: 1, FileCount: 1})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, int64(0), countRecords(t, f.db, account.UserID))
}

func TestLedgerService_RecordOperation_InvalidStoredTier(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db, testutil.WithTier(tier.Tier("enterprise")))

	_, err := f.service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
	assert.ErrorIs(t, err, tier.ErrInvalidTier)
	assert.Equal(t, int64(0), countRecords(t, f.db, account.UserID))
}

func TestLedgerService_RecordOperation_StorageUnavailable(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db)

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = f.service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.False(t, errors.Is(err, ErrAccountNotFound))
}

func TestLedgerService_RecordOperation_PublishesUsage(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(1))

	res, err := f.service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
	require.NoError(t, err)

	require.Len(t, f.publisher.msgs, 1)
	msg := f.publisher.msgs[0]
	assert.Equal(t, account.UserID, msg.UserID)
	assert.Equal(t, res.OperationID, msg.OperationID)
	assert.True(t, msg.Accepted)
	assert.Equal(t, 2, msg.DailyFilesUsed)
}

func TestLedgerService_RecordOperation_PublishFailureIsBestEffort(t *testing.T) {
	f := setupLedger(t)
	f.publisher.err = errors.New("redis down")
	f.alerts.err = errors.New("redis down")
	account := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(4))

	res, err := f.service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 5, reload(t, f.db, account.UserID).DailyFilesUsed)
}

func TestLedgerService_RecordOperation_LimitAlerts(t *testing.T) {
	t.Run("daily limit reached", func(t *testing.T) {
		f := setupLedger(t)
		account := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(4), testutil.WithEmail("free@example.com"))

		_, err := f.service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
		require.NoError(t, err)

		require.Len(t, f.alerts.msgs, 1)
		alert := f.alerts.msgs[0]
		assert.Equal(t, queue.AlertDailyLimitReached, alert.Kind)
		assert.Equal(t, "free@example.com", alert.Email)
		assert.Equal(t, 5, alert.Limit)
		assert.True(t, usage.Date(testutil.Now).Add(24*time.Hour).Equal(alert.PeriodEnd))
	})

	t.Run("monthly limit reached", func(t *testing.T) {
		f := setupLedger(t)
		account := testutil.TestAccount(t, f.db, testutil.WithTier(tier.Personal), testutil.WithMonthlyUsed(99))

		_, err := f.service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
		require.NoError(t, err)

		require.Len(t, f.alerts.msgs, 1)
		assert.Equal(t, queue.AlertMonthlyLimitReached, f.alerts.msgs[0].Kind)
		assert.Equal(t, 100, f.alerts.msgs[0].Used)
	})

	t.Run("below limit", func(t *testing.T) {
		f := setupLedger(t)
		account := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(1))

		_, err := f.service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
		require.NoError(t, err)
		assert.Empty(t, f.alerts.msgs)
	})

	t.Run("disabled", func(t *testing.T) {
		f := setupLedger(t)
		f.service.cfg.Ledger.AlertsEnabled = false
		account := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(4))

		_, err := f.service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
		require.NoError(t, err)
		assert.Empty(t, f.alerts.msgs)
	})
}

func TestLedgerService_RecordOperation_RedisAlertQueue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	alertQueue := queue.NewQueue(client, "usage_alerts")
	cfg := &config.Config{Ledger: config.LedgerConfig{AlertsEnabled: true}}
	service := NewLedgerService(
		repository.NewAccountRepository(db),
		repository.NewOperationRepository(db),
		tier.DefaultCatalog(),
		pubsub.NewPublisher(client),
		alertQueue,
		cfg,
	).WithClock(testutil.Clock(testutil.Now))

	account := testutil.TestAccount(t, db, testutil.WithDailyUsed(4))
	_, err := service.RecordOperation(context.Background(), account.UserID, compress(tier.MB))
	require.NoError(t, err)

	alert, err := alertQueue.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, account.UserID, alert.UserID)
}

func TestLedgerService_Preview(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db, testutil.WithTier(tier.PayPerUse), testutil.WithProcessedBytes(100))

	res, err := f.service.Preview(context.Background(), account.UserID, usage.Request{
		OperationType: usage.OperationMerge,
		FileSizeBytes: 25_000_000,
		FileCount:     3,
	})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, int64(30+2*5), res.CostCents)
	assert.Empty(t, res.OperationID)
	assert.Equal(t, int64(100+25_000_000), res.CountersAfter.TotalProcessedBytes)

	assert.Equal(t, int64(100), reload(t, f.db, account.UserID).TotalProcessedBytes)
	assert.Equal(t, int64(0), countRecords(t, f.db, account.UserID))
	assert.Empty(t, f.publisher.msgs)
}

func TestLedgerService_Preview_Denied(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db)

	res, err := f.service.Preview(context.Background(), account.UserID, usage.Request{
		OperationType: usage.OperationMerge,
		FileSizeBytes: tier.MB,
		FileCount:     2,
	})
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, usage.DenialBatchTooLarge, res.DenialReason)
}

func TestLedgerService_GetStats(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(3), testutil.WithProcessedBytes(4096))
	testutil.TestOperation(t, f.db, account.UserID, true, testutil.Now)
	testutil.TestOperation(t, f.db, account.UserID, false, testutil.Now)

	stats, err := f.service.GetStats(context.Background(), account.UserID)
	require.NoError(t, err)

	assert.Equal(t, "free", stats.Tier)
	assert.Equal(t, "Free", stats.TierDisplayName)
	assert.Equal(t, 3, stats.DailyUsed)
	assert.Equal(t, 5, stats.DailyLimit)
	assert.Equal(t, 2, stats.DailyRemaining)
	assert.Equal(t, 0, stats.MonthlyLimit)
	assert.Equal(t, -1, stats.MonthlyRemaining)
	assert.Equal(t, 10*tier.MB, stats.MaxFileSize)
	assert.Equal(t, 1, stats.MaxBatchSize)
	assert.Equal(t, int64(4096), stats.TotalProcessedBytes)
	assert.Equal(t, int64(1), stats.TotalOperations)
	assert.Equal(t, 20, stats.DaysUntilRenewal)
	assert.Equal(t, account.PeriodEnd.Format(time.RFC3339), stats.PeriodEnd)
}

func TestLedgerService_GetStats_PeekDoesNotPersistRollover(t *testing.T) {
	f := setupLedger(t)
	yesterday := testutil.Now.Add(-24 * time.Hour)
	end := testutil.Now.Add(-time.Hour)
	account := testutil.TestAccount(t, f.db,
		testutil.WithTier(tier.Personal),
		testutil.WithDailyUsed(5),
		testutil.WithMonthlyUsed(80),
		testutil.WithLastDailyReset(yesterday),
		testutil.WithPeriod(end.Add(-usage.BillingPeriod), end),
	)

	stats, err := f.service.GetStats(context.Background(), account.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DailyUsed)
	assert.Equal(t, 0, stats.MonthlyUsed)
	assert.Equal(t, 100, stats.MonthlyRemaining)
	assert.Equal(t, end.Add(usage.BillingPeriod).Format(time.RFC3339), stats.PeriodEnd)

	stored := reload(t, f.db, account.UserID)
	assert.Equal(t, 5, stored.DailyFilesUsed)
	assert.Equal(t, 80, stored.MonthlyFilesUsed)
	assert.True(t, end.Equal(stored.PeriodEnd))
}

func TestLedgerService_GetStats_AccountNotFound(t *testing.T) {
	f := setupLedger(t)

	_, err := f.service.GetStats(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestLedgerService_ListOperations(t *testing.T) {
	f := setupLedger(t)
	account := testutil.TestAccount(t, f.db, testutil.WithDailyUsed(4))
	ctx := context.Background()

	first, err := f.service.RecordOperation(ctx, account.UserID, compress(tier.MB))
	require.NoError(t, err)
	f.service.WithClock(testutil.Clock(testutil.Now.Add(time.Minute)))
	second, err := f.service.RecordOperation(ctx, account.UserID, compress(tier.MB))
	require.NoError(t, err)

	items, total, err := f.service.ListOperations(ctx, account.UserID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, second.OperationID, items[0].ID)
	assert.Equal(t, "daily_limit_exceeded", items[0].DenialReason)
	assert.Equal(t, first.OperationID, items[1].ID)
	assert.True(t, items[1].Accepted)
}

func TestLedgerService_ListOperations_AccountNotFound(t *testing.T) {
	f := setupLedger(t)

	_, _, err := f.service.ListOperations(context.Background(), "nobody", 1, 20)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestMapStoreError(t *testing.T) {
	assert.ErrorIs(t, mapStoreError(gorm.ErrRecordNotFound), ErrAccountNotFound)
	assert.ErrorIs(t, mapStoreError(tier.ErrInvalidTier), tier.ErrInvalidTier)
	assert.ErrorIs(t, mapStoreError(ErrAccountExists), ErrAccountExists)

	err := mapStoreError(errors.New("connection refused"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}
