package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"desco-report-backend/config"
	"desco-report-backend/internal/model"
	"desco-report-backend/internal/provider"
	"desco-report-backend/internal/store"
)

// Fetcher is the slice of the provider client the orchestrator needs.
// Implementations return empty results for failed categories, never errors.
type Fetcher interface {
	Balance(ctx context.Context, accountNo, meterNo string) *provider.Balance
	DailyConsumption(ctx context.Context, accountNo, meterNo string, from, to time.Time) []provider.DailyConsumption
	MonthlyConsumption(ctx context.Context, accountNo, meterNo string, from, to time.Time) []provider.MonthlyConsumption
	RechargeHistory(ctx context.Context, accountNo, meterNo string, from, to time.Time) []provider.Recharge
	RecentEvents(ctx context.Context, accountNo string) []provider.Event
	CustomerLocations(ctx context.Context, accountNo string) []provider.Location
}

// EventNotifier receives the IDs of newly ingested events for push delivery.
type EventNotifier interface {
	Dispatch(eventID uint)
}

var (
	// ErrAccountExists is returned when the (accountNo, meterNo) pair is
	// already registered to a user. Uniqueness is global, not per-user.
	ErrAccountExists = errors.New("account already registered")
	// ErrInvalidAccount is returned when the provider cannot confirm the
	// account/meter pair.
	ErrInvalidAccount = errors.New("invalid account or meter number")
	// ErrAccountNotFound is returned by read operations for pairs with no
	// persisted row and no provider data.
	ErrAccountNotFound = errors.New("account not found")
)

// Service sequences the per-category fetch-and-reconcile steps for one
// account. Each step tolerates its own failure; only storage errors mark
// the sync failed.
type Service struct {
	fetcher  Fetcher
	store    store.Store
	notifier EventNotifier
	windows  config.SyncConfig
	log      *zap.Logger

	mu    stdsync.Mutex
	locks map[string]*stdsync.Mutex
}

// NewService wires the orchestrator. notifier may be nil.
func NewService(fetcher Fetcher, st store.Store, notifier EventNotifier, windows config.SyncConfig, log *zap.Logger) *Service {
	return &Service{
		fetcher:  fetcher,
		store:    st,
		notifier: notifier,
		windows:  windows,
		log:      log,
		locks:    make(map[string]*stdsync.Mutex),
	}
}

// lockAccount serializes syncs for one (accountNo, meterNo) pair. Concurrent
// syncs of different pairs proceed independently; the unique natural-key
// constraints remain the backstop against duplicate rows.
func (s *Service) lockAccount(accountNo, meterNo string) func() {
	key := accountNo + "/" + meterNo
	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &stdsync.Mutex{}
		s.locks[key] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// RefreshBalance fetches the balance snapshot and merges it into the account
// row, creating the row on first successful fetch. Returns nil when the
// provider yields no data; in that case nothing is created or modified.
func (s *Service) RefreshBalance(ctx context.Context, accountNo, meterNo string) *model.UtilityAccount {
	bal := s.fetcher.Balance(ctx, accountNo, meterNo)
	if bal == nil {
		return nil
	}

	now := time.Now().UTC()
	readingTime := bal.ReadingTime
	acct, err := s.store.UpsertAccount(ctx, &model.UtilityAccount{
		AccountNumber:           bal.AccountNo,
		MeterNumber:             bal.MeterNo,
		CurrentBalance:          bal.Balance,
		CurrentMonthConsumption: bal.CurrentMonthConsumption,
		LastReadingTime:         &readingTime,
		LastSyncAt:              &now,
	})
	if err != nil {
		s.log.Error("failed to persist balance", zap.String("account_no", accountNo), zap.Error(err))
		return nil
	}
	return acct
}

// ValidateAccount succeeds iff the balance fetch yields data.
func (s *Service) ValidateAccount(ctx context.Context, accountNo, meterNo string) bool {
	return s.RefreshBalance(ctx, accountNo, meterNo) != nil
}

// SyncAccount runs the full six-step synchronization for one account.
// Category fetch failures are logged and skipped; storage failures are
// collected and mark the whole sync failed.
func (s *Service) SyncAccount(ctx context.Context, accountNo, meterNo string) error {
	unlock := s.lockAccount(accountNo, meterNo)
	defer unlock()

	s.log.Info("starting account sync", zap.String("account_no", accountNo), zap.String("meter_no", meterNo))

	var errs []error

	// Step 1: balance, which establishes or refreshes the account row.
	acct := s.RefreshBalance(ctx, accountNo, meterNo)
	if acct == nil {
		// The remaining steps still run with the caller-supplied pair; an
		// already-registered row keeps receiving child records.
		existing, err := s.store.GetAccount(ctx, accountNo, meterNo)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, err)
		}
		acct = existing
		s.log.Warn("balance step yielded no data", zap.String("account_no", accountNo))
	}

	now := time.Now()

	// Step 2: daily consumption, trailing window.
	daily := s.fetcher.DailyConsumption(ctx, accountNo, meterNo,
		now.AddDate(0, 0, -s.windows.DailyDays), now)
	if acct != nil && len(daily) > 0 {
		records := make([]model.DailyConsumption, len(daily))
		for i, d := range daily {
			records[i] = model.DailyConsumption{Date: d.Date, ConsumptionValue: d.Consumption, Unit: d.Unit, Cost: d.Cost}
		}
		if err := s.store.UpsertDailyConsumption(ctx, acct.ID, records); err != nil {
			errs = append(errs, fmt.Errorf("daily consumption: %w", err))
		}
	}

	// Step 3: monthly consumption, trailing window.
	monthly := s.fetcher.MonthlyConsumption(ctx, accountNo, meterNo,
		now.AddDate(0, -s.windows.MonthlyMonths, 0), now)
	if acct != nil && len(monthly) > 0 {
		records := make([]model.MonthlyConsumption, len(monthly))
		for i, m := range monthly {
			records[i] = model.MonthlyConsumption{
				Year:                    m.Year,
				Month:                   m.Month,
				ConsumptionValue:        m.Consumption,
				Unit:                    m.Unit,
				Cost:                    m.Cost,
				AverageDailyConsumption: m.AverageDailyConsumption,
			}
		}
		if err := s.store.UpsertMonthlyConsumption(ctx, acct.ID, records); err != nil {
			errs = append(errs, fmt.Errorf("monthly consumption: %w", err))
		}
	}

	// Step 4: recharge history, trailing window.
	recharges := s.fetcher.RechargeHistory(ctx, accountNo, meterNo,
		now.AddDate(0, -s.windows.RechargeMonths, 0), now)
	if acct != nil && len(recharges) > 0 {
		records := make([]model.Recharge, len(recharges))
		for i, r := range recharges {
			records[i] = model.Recharge{
				RechargeDate:  r.RechargeDate,
				Amount:        r.Amount,
				TransactionID: r.TransactionID,
				PaymentMethod: r.PaymentMethod,
				Notes:         r.Notes,
				Status:        r.Status,
			}
		}
		if err := s.store.UpsertRecharges(ctx, acct.ID, records); err != nil {
			errs = append(errs, fmt.Errorf("recharge history: %w", err))
		}
	}

	// Step 5: recent events, no date bound.
	events := s.fetcher.RecentEvents(ctx, accountNo)
	if acct != nil && len(events) > 0 {
		records := make([]model.RecentEvent, len(events))
		for i, e := range events {
			records[i] = model.RecentEvent{
				EventDate: e.EventDate,
				EventType: e.EventType,
				Message:   e.Message,
				Category:  e.Category,
				Priority:  e.Priority,
			}
		}
		created, err := s.store.UpsertEvents(ctx, acct.ID, records)
		if err != nil {
			errs = append(errs, fmt.Errorf("recent events: %w", err))
		} else if s.notifier != nil {
			for _, ev := range created {
				s.notifier.Dispatch(ev.ID)
			}
		}
	}

	// Step 6: location records.
	locations := s.fetcher.CustomerLocations(ctx, accountNo)
	if acct != nil && len(locations) > 0 {
		records := make([]model.Location, len(locations))
		for i, l := range locations {
			records[i] = model.Location{
				Division:    l.Division,
				District:    l.District,
				Thana:       l.Thana,
				Area:        l.Area,
				PostCode:    l.PostCode,
				FullAddress: l.FullAddress,
				Latitude:    l.Latitude,
				Longitude:   l.Longitude,
			}
		}
		if err := s.store.ReconcileLocations(ctx, acct.ID, records); err != nil {
			errs = append(errs, fmt.Errorf("locations: %w", err))
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.log.Error("account sync failed", zap.String("account_no", accountNo), zap.Error(err))
		return err
	}

	s.log.Info("account sync completed", zap.String("account_no", accountNo), zap.String("meter_no", meterNo))
	return nil
}

// RegisterAccount binds an account/meter pair to a user after remote
// validation, then runs a synchronous full sync so the row is populated
// before the caller gets its 201.
func (s *Service) RegisterAccount(ctx context.Context, userID uint, accountNo, meterNo, customerName string) (*model.UtilityAccount, error) {
	// The check-validate-claim sequence holds the pair lock so two
	// concurrent registrations cannot both pass the ownership check. The
	// lock is released before SyncAccount, which takes it again.
	acct, err := s.claimAccount(ctx, userID, accountNo, meterNo, customerName)
	if err != nil {
		return nil, err
	}

	if err := s.SyncAccount(ctx, accountNo, meterNo); err != nil {
		// The account row exists and is owned; a failed first sync is
		// recoverable by the next sync-account call.
		s.log.Warn("initial sync after registration failed",
			zap.String("account_no", accountNo), zap.Error(err))
	}

	refreshed, err := s.store.GetAccount(ctx, accountNo, meterNo)
	if err != nil {
		return acct, nil
	}
	return refreshed, nil
}

// claimAccount performs the duplicate check, provider validation and
// ownership write as one critical section for the pair.
func (s *Service) claimAccount(ctx context.Context, userID uint, accountNo, meterNo, customerName string) (*model.UtilityAccount, error) {
	unlock := s.lockAccount(accountNo, meterNo)
	defer unlock()

	existing, err := s.store.GetAccount(ctx, accountNo, meterNo)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.UserID != 0 {
		return nil, ErrAccountExists
	}

	// Validation fetches the balance; success leaves an (unowned) row behind
	// for us to claim. Failure leaves the store untouched.
	acct := s.RefreshBalance(ctx, accountNo, meterNo)
	if acct == nil {
		return nil, ErrInvalidAccount
	}

	acct.UserID = userID
	acct.CustomerName = customerName
	acct.IsVerified = true
	if err := s.store.SaveAccount(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// ListAccounts returns the accounts registered by one user.
func (s *Service) ListAccounts(ctx context.Context, userID uint) ([]model.UtilityAccount, error) {
	return s.store.AccountsByUser(ctx, userID)
}
