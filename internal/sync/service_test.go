package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"desco-report-backend/config"
	"desco-report-backend/internal/model"
	"desco-report-backend/internal/provider"
	"desco-report-backend/internal/store"
)

// fakeFetcher returns canned category results, like a provider whose
// endpoints fail independently.
type fakeFetcher struct {
	balance   *provider.Balance
	daily     []provider.DailyConsumption
	monthly   []provider.MonthlyConsumption
	recharges []provider.Recharge
	events    []provider.Event
	locations []provider.Location
}

func (f *fakeFetcher) Balance(ctx context.Context, accountNo, meterNo string) *provider.Balance {
	return f.balance
}

func (f *fakeFetcher) DailyConsumption(ctx context.Context, accountNo, meterNo string, from, to time.Time) []provider.DailyConsumption {
	return f.daily
}

func (f *fakeFetcher) MonthlyConsumption(ctx context.Context, accountNo, meterNo string, from, to time.Time) []provider.MonthlyConsumption {
	return f.monthly
}

func (f *fakeFetcher) RechargeHistory(ctx context.Context, accountNo, meterNo string, from, to time.Time) []provider.Recharge {
	return f.recharges
}

func (f *fakeFetcher) RecentEvents(ctx context.Context, accountNo string) []provider.Event {
	return f.events
}

func (f *fakeFetcher) CustomerLocations(ctx context.Context, accountNo string) []provider.Location {
	return f.locations
}

type recordingNotifier struct {
	dispatched []uint
}

func (n *recordingNotifier) Dispatch(eventID uint) {
	n.dispatched = append(n.dispatched, eventID)
}

func newTestService(t *testing.T, fetcher Fetcher) (*Service, store.Store, *recordingNotifier) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.UtilityAccount{},
		&model.DailyConsumption{},
		&model.MonthlyConsumption{},
		&model.Recharge{},
		&model.RecentEvent{},
		&model.Location{},
	))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	st := store.NewGormStore(db)
	notifier := &recordingNotifier{}
	svc := NewService(fetcher, st, notifier,
		config.SyncConfig{DailyDays: 30, MonthlyMonths: 12, RechargeMonths: 6}, zap.NewNop())
	return svc, st, notifier
}

func testBalance() *provider.Balance {
	return &provider.Balance{
		AccountNo:               "A1",
		MeterNo:                 "M1",
		Balance:                 decimal.NewFromFloat(120.50),
		CurrentMonthConsumption: decimal.NewFromFloat(45),
		ReadingTime:             time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestSyncAccountFullRun(t *testing.T) {
	fetcher := &fakeFetcher{
		balance: testBalance(),
		daily: []provider.DailyConsumption{
			{Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Consumption: decimal.NewFromFloat(12.5), Unit: "kWh"},
		},
		monthly: []provider.MonthlyConsumption{
			{Year: 2024, Month: 1, Consumption: decimal.NewFromFloat(310), Unit: "kWh"},
		},
		recharges: []provider.Recharge{
			{RechargeDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), TransactionID: "TX100", Amount: decimal.NewFromFloat(500)},
		},
		events: []provider.Event{
			{EventDate: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), EventType: "LowBalance", Message: "low"},
		},
		locations: []provider.Location{
			{FullAddress: "House 1, Mirpur", Division: "Dhaka"},
		},
	}
	svc, st, notifier := newTestService(t, fetcher)
	ctx := context.Background()

	require.NoError(t, svc.SyncAccount(ctx, "A1", "M1"))

	acct, err := st.GetAccount(ctx, "A1", "M1")
	require.NoError(t, err)
	assert.Equal(t, "120.5", acct.CurrentBalance.String())
	require.NotNil(t, acct.LastSyncAt)

	daily, err := st.DailyConsumptionRange(ctx, acct.ID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, daily, 1)

	events, err := st.EventsByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []uint{events[0].ID}, notifier.dispatched)

	// Second sync with the identical feed is a no-op for events: nothing
	// new to notify.
	require.NoError(t, svc.SyncAccount(ctx, "A1", "M1"))
	assert.Len(t, notifier.dispatched, 1)
}

func TestSyncAccountToleratesMissingBalance(t *testing.T) {
	fetcher := &fakeFetcher{
		balance: nil, // balance endpoint down
		daily: []provider.DailyConsumption{
			{Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Consumption: decimal.NewFromFloat(5), Unit: "kWh"},
		},
	}
	svc, st, _ := newTestService(t, fetcher)
	ctx := context.Background()

	// No persisted row and no balance: the sync completes without creating
	// anything.
	require.NoError(t, svc.SyncAccount(ctx, "A1", "M1"))
	_, err := st.GetAccount(ctx, "A1", "M1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Once the row exists, later syncs keep filling child tables even when
	// the balance step fails.
	now := time.Now().UTC()
	seeded, err := st.UpsertAccount(ctx, &model.UtilityAccount{
		AccountNumber: "A1", MeterNumber: "M1", LastSyncAt: &now,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SyncAccount(ctx, "A1", "M1"))
	daily, err := st.DailyConsumptionRange(ctx, seeded.ID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, daily, 1)
}

func TestValidateAccount(t *testing.T) {
	svc, st, _ := newTestService(t, &fakeFetcher{balance: nil})
	assert.False(t, svc.ValidateAccount(context.Background(), "A1", "M1"))
	// Failed validation must leave no row behind.
	_, err := st.GetAccount(context.Background(), "A1", "M1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	svc2, _, _ := newTestService(t, &fakeFetcher{balance: testBalance()})
	assert.True(t, svc2.ValidateAccount(context.Background(), "A1", "M1"))
}

func TestRegisterAccount(t *testing.T) {
	fetcher := &fakeFetcher{balance: testBalance()}
	svc, _, _ := newTestService(t, fetcher)
	ctx := context.Background()

	acct, err := svc.RegisterAccount(ctx, 7, "A1", "M1", "Rahim")
	require.NoError(t, err)
	assert.Equal(t, uint(7), acct.UserID)
	assert.Equal(t, "Rahim", acct.CustomerName)
	assert.True(t, acct.IsVerified)

	// Registration is globally unique on the pair, regardless of user.
	_, err = svc.RegisterAccount(ctx, 8, "A1", "M1", "Karim")
	assert.ErrorIs(t, err, ErrAccountExists)

	accounts, err := svc.ListAccounts(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestRegisterAccountConcurrentSamePair(t *testing.T) {
	fetcher := &fakeFetcher{balance: testBalance()}
	svc, st, _ := newTestService(t, fetcher)
	ctx := context.Background()

	start := make(chan struct{})
	errs := make(chan error, 2)
	for _, userID := range []uint{7, 8} {
		go func(id uint) {
			<-start
			_, err := svc.RegisterAccount(ctx, id, "A1", "M1", "")
			errs <- err
		}(userID)
	}
	close(start)

	var failed []error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			failed = append(failed, err)
		}
	}

	// Exactly one registration wins; the other sees the pair as taken.
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], ErrAccountExists)

	acct, err := st.GetAccount(ctx, "A1", "M1")
	require.NoError(t, err)
	assert.NotZero(t, acct.UserID)
	assert.Contains(t, []uint{7, 8}, acct.UserID)
}

func TestRegisterAccountRejectsInvalidPair(t *testing.T) {
	svc, st, _ := newTestService(t, &fakeFetcher{balance: nil})
	_, err := svc.RegisterAccount(context.Background(), 7, "BAD", "BAD", "")
	assert.ErrorIs(t, err, ErrInvalidAccount)
	_, err = st.GetAccount(context.Background(), "BAD", "BAD")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBalanceSnapshotFallsBackToPersisted(t *testing.T) {
	fetcher := &fakeFetcher{balance: testBalance()}
	svc, _, _ := newTestService(t, fetcher)
	ctx := context.Background()

	// First call persists the snapshot.
	acct, err := svc.BalanceSnapshot(ctx, "A1", "M1")
	require.NoError(t, err)
	assert.Equal(t, "120.5", acct.CurrentBalance.String())

	// Provider goes dark; the persisted row still answers.
	fetcher.balance = nil
	acct, err = svc.BalanceSnapshot(ctx, "A1", "M1")
	require.NoError(t, err)
	assert.Equal(t, "120.5", acct.CurrentBalance.String())

	// Unknown pair with no provider data is a miss.
	_, err = svc.BalanceSnapshot(ctx, "A9", "M9")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestReadsSurfaceStorageFaults(t *testing.T) {
	svc, st, _ := newTestService(t, &fakeFetcher{balance: testBalance()})
	ctx := context.Background()

	_, err := svc.RegisterAccount(ctx, 7, "A1", "M1", "Rahim")
	require.NoError(t, err)

	sqlDB, err := st.DB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// A broken store is a fault, not a missing account.
	_, err = svc.Events(ctx, "A1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountNotFound)

	_, err = svc.Locations(ctx, "A1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountNotFound)
}

func TestDailyReadRefreshesThenServes(t *testing.T) {
	fetcher := &fakeFetcher{
		balance: testBalance(),
		daily: []provider.DailyConsumption{
			{Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Consumption: decimal.NewFromFloat(12.5), Unit: "kWh"},
		},
	}
	svc, _, _ := newTestService(t, fetcher)
	ctx := context.Background()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	records, err := svc.Daily(ctx, "A1", "M1", from, to)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Provider failure degrades to persisted data.
	fetcher.daily = nil
	records, err = svc.Daily(ctx, "A1", "M1", from, to)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
