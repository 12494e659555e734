package sync

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"desco-report-backend/internal/model"
	"desco-report-backend/internal/store"
)

// Read path: each accessor refreshes its category from the provider,
// reconciles, and serves the persisted rows. When the provider yields
// nothing the persisted rows still answer, so a flaky upstream degrades to
// cached data instead of an error.

// account resolves the persisted row for a pair, establishing it via a
// balance fetch when the pair has never been seen.
func (s *Service) account(ctx context.Context, accountNo, meterNo string) (*model.UtilityAccount, error) {
	acct, err := s.store.GetAccount(ctx, accountNo, meterNo)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if acct = s.RefreshBalance(ctx, accountNo, meterNo); acct != nil {
		return acct, nil
	}
	return nil, ErrAccountNotFound
}

// BalanceSnapshot returns the freshest balance for a pair, falling back to
// the persisted snapshot when the provider is unavailable.
func (s *Service) BalanceSnapshot(ctx context.Context, accountNo, meterNo string) (*model.UtilityAccount, error) {
	if acct := s.RefreshBalance(ctx, accountNo, meterNo); acct != nil {
		return acct, nil
	}
	acct, err := s.store.GetAccount(ctx, accountNo, meterNo)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Daily refreshes and returns daily consumption for the date range.
func (s *Service) Daily(ctx context.Context, accountNo, meterNo string, from, to time.Time) ([]model.DailyConsumption, error) {
	acct, err := s.account(ctx, accountNo, meterNo)
	if err != nil {
		return nil, err
	}

	fetched := s.fetcher.DailyConsumption(ctx, accountNo, meterNo, from, to)
	if len(fetched) > 0 {
		records := make([]model.DailyConsumption, len(fetched))
		for i, d := range fetched {
			records[i] = model.DailyConsumption{Date: d.Date, ConsumptionValue: d.Consumption, Unit: d.Unit, Cost: d.Cost}
		}
		if err := s.store.UpsertDailyConsumption(ctx, acct.ID, records); err != nil {
			return nil, err
		}
	}
	return s.store.DailyConsumptionRange(ctx, acct.ID, from, to)
}

// Monthly refreshes and returns monthly consumption for the month range.
func (s *Service) Monthly(ctx context.Context, accountNo, meterNo string, from, to time.Time) ([]model.MonthlyConsumption, error) {
	acct, err := s.account(ctx, accountNo, meterNo)
	if err != nil {
		return nil, err
	}

	fetched := s.fetcher.MonthlyConsumption(ctx, accountNo, meterNo, from, to)
	if len(fetched) > 0 {
		records := make([]model.MonthlyConsumption, len(fetched))
		for i, m := range fetched {
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
			return nil, err
		}
	}
	return s.store.MonthlyConsumptionRange(ctx, acct.ID, from, to)
}

// Recharges refreshes and returns recharge history for the date range.
func (s *Service) Recharges(ctx context.Context, accountNo, meterNo string, from, to time.Time) ([]model.Recharge, error) {
	acct, err := s.account(ctx, accountNo, meterNo)
	if err != nil {
		return nil, err
	}

	fetched := s.fetcher.RechargeHistory(ctx, accountNo, meterNo, from, to)
	if len(fetched) > 0 {
		records := make([]model.Recharge, len(fetched))
		for i, r := range fetched {
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
			return nil, err
		}
	}
	return s.store.RechargesRange(ctx, acct.ID, from, to)
}

// Events refreshes and returns the account's event feed. Events only need
// the account number; the meter is resolved from the persisted row.
func (s *Service) Events(ctx context.Context, accountNo string) ([]model.RecentEvent, error) {
	acct, err := s.accountByNumber(ctx, accountNo)
	if err != nil {
		return nil, err
	}

	fetched := s.fetcher.RecentEvents(ctx, accountNo)
	if len(fetched) > 0 {
		records := make([]model.RecentEvent, len(fetched))
		for i, e := range fetched {
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
			return nil, err
		}
		if s.notifier != nil {
			for _, ev := range created {
				s.notifier.Dispatch(ev.ID)
			}
		}
	}
	return s.store.EventsByAccount(ctx, acct.ID)
}

// Locations refreshes and returns the account's address records.
func (s *Service) Locations(ctx context.Context, accountNo string) ([]model.Location, error) {
	acct, err := s.accountByNumber(ctx, accountNo)
	if err != nil {
		return nil, err
	}

	fetched := s.fetcher.CustomerLocations(ctx, accountNo)
	if len(fetched) > 0 {
		records := make([]model.Location, len(fetched))
		for i, l := range fetched {
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
			return nil, err
		}
	}
	return s.store.LocationsByAccount(ctx, acct.ID)
}

// accountByNumber finds the persisted row matching an account number alone,
// for the endpoints that do not carry a meter number.
func (s *Service) accountByNumber(ctx context.Context, accountNo string) (*model.UtilityAccount, error) {
	var acct model.UtilityAccount
	err := s.store.DB().WithContext(ctx).
		Where("account_number = ?", accountNo).
		First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}
