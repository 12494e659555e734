package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"desco-report-backend/internal/model"
)

// Store defines the persistence operations for account data. Upserts are
// keyed by natural identifiers and are idempotent: re-applying identical
// input changes nothing but updated_at.
type Store interface {
	DB() *gorm.DB

	UpsertAccount(ctx context.Context, incoming *model.UtilityAccount) (*model.UtilityAccount, error)
	GetAccount(ctx context.Context, accountNo, meterNo string) (*model.UtilityAccount, error)
	SaveAccount(ctx context.Context, acct *model.UtilityAccount) error
	AccountsByUser(ctx context.Context, userID uint) ([]model.UtilityAccount, error)

	UpsertDailyConsumption(ctx context.Context, accountID uint, records []model.DailyConsumption) error
	UpsertMonthlyConsumption(ctx context.Context, accountID uint, records []model.MonthlyConsumption) error
	UpsertRecharges(ctx context.Context, accountID uint, records []model.Recharge) error
	// UpsertEvents inserts events that are not already present and returns
	// the newly created rows. New rows always ingest unread.
	UpsertEvents(ctx context.Context, accountID uint, records []model.RecentEvent) ([]model.RecentEvent, error)
	ReconcileLocations(ctx context.Context, accountID uint, records []model.Location) error

	DailyConsumptionRange(ctx context.Context, accountID uint, from, to time.Time) ([]model.DailyConsumption, error)
	MonthlyConsumptionRange(ctx context.Context, accountID uint, from, to time.Time) ([]model.MonthlyConsumption, error)
	RechargesRange(ctx context.Context, accountID uint, from, to time.Time) ([]model.Recharge, error)
	EventsByAccount(ctx context.Context, accountID uint) ([]model.RecentEvent, error)
	LocationsByAccount(ctx context.Context, accountID uint) ([]model.Location, error)
}

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// UpsertAccount merges a freshly fetched snapshot into the row identified by
// (account_number, meter_number). Only sync-owned fields are overwritten;
// ownership and registration fields survive.
func (s *gormStore) UpsertAccount(ctx context.Context, incoming *model.UtilityAccount) (*model.UtilityAccount, error) {
	var existing model.UtilityAccount
	err := s.db.WithContext(ctx).
		Where("account_number = ? AND meter_number = ?", incoming.AccountNumber, incoming.MeterNumber).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.WithContext(ctx).Create(incoming).Error; err != nil {
			return nil, fmt.Errorf("create account %s/%s: %w", incoming.AccountNumber, incoming.MeterNumber, err)
		}
		return incoming, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account %s/%s: %w", incoming.AccountNumber, incoming.MeterNumber, err)
	}

	existing.CurrentBalance = incoming.CurrentBalance
	existing.CurrentMonthConsumption = incoming.CurrentMonthConsumption
	existing.LastReadingTime = incoming.LastReadingTime
	existing.LastSyncAt = incoming.LastSyncAt
	if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("update account %s/%s: %w", existing.AccountNumber, existing.MeterNumber, err)
	}
	return &existing, nil
}

func (s *gormStore) GetAccount(ctx context.Context, accountNo, meterNo string) (*model.UtilityAccount, error) {
	var acct model.UtilityAccount
	err := s.db.WithContext(ctx).
		Where("account_number = ? AND meter_number = ?", accountNo, meterNo).
		First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *gormStore) SaveAccount(ctx context.Context, acct *model.UtilityAccount) error {
	return s.db.WithContext(ctx).Save(acct).Error
}

func (s *gormStore) AccountsByUser(ctx context.Context, userID uint) ([]model.UtilityAccount, error) {
	var accounts []model.UtilityAccount
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpsertDailyConsumption batch-upserts keyed on (account_id, date).
func (s *gormStore) UpsertDailyConsumption(ctx context.Context, accountID uint, records []model.DailyConsumption) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		records[i].AccountID = accountID
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"consumption_value", "unit", "cost", "updated_at"}),
	}).Create(&records).Error
}

// UpsertMonthlyConsumption batch-upserts keyed on (account_id, year, month).
func (s *gormStore) UpsertMonthlyConsumption(ctx context.Context, accountID uint, records []model.MonthlyConsumption) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		records[i].AccountID = accountID
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"consumption_value", "unit", "cost", "average_daily_consumption", "updated_at"}),
	}).Create(&records).Error
}

// UpsertRecharges batch-upserts keyed on
// (account_id, recharge_date, transaction_id).
func (s *gormStore) UpsertRecharges(ctx context.Context, accountID uint, records []model.Recharge) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		records[i].AccountID = accountID
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "recharge_date"}, {Name: "transaction_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "payment_method", "notes", "status", "updated_at"}),
	}).Create(&records).Error
}

// UpsertEvents inserts rows whose (account_id, event_date, event_type,
// message) key is not present yet. Existing rows are left untouched so a
// read flag set by the user survives re-syncs.
func (s *gormStore) UpsertEvents(ctx context.Context, accountID uint, records []model.RecentEvent) ([]model.RecentEvent, error) {
	var created []model.RecentEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			rec.AccountID = accountID
			rec.IsRead = false

			var count int64
			if err := tx.Model(&model.RecentEvent{}).
				Where("account_id = ? AND event_date = ? AND event_type = ? AND message = ?",
					accountID, rec.EventDate, rec.EventType, rec.Message).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("create event for account %d: %w", accountID, err)
			}
			created = append(created, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ReconcileLocations merges the fetched address set by (account_id,
// full_address): known addresses are refreshed, new ones inserted. Stale
// rows are kept; the provider feed is not authoritative enough to delete on.
func (s *gormStore) ReconcileLocations(ctx context.Context, accountID uint, records []model.Location) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			rec.AccountID = accountID

			var existing model.Location
			err := tx.Where("account_id = ? AND full_address = ?", accountID, rec.FullAddress).
				First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := tx.Create(&rec).Error; err != nil {
					return fmt.Errorf("create location for account %d: %w", accountID, err)
				}
				continue
			}
			if err != nil {
				return err
			}

			existing.Division = rec.Division
			existing.District = rec.District
			existing.Thana = rec.Thana
			existing.Area = rec.Area
			existing.PostCode = rec.PostCode
			existing.Latitude = rec.Latitude
			existing.Longitude = rec.Longitude
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("update location for account %d: %w", accountID, err)
			}
		}
		return nil
	})
}

func (s *gormStore) DailyConsumptionRange(ctx context.Context, accountID uint, from, to time.Time) ([]model.DailyConsumption, error) {
	var records []model.DailyConsumption
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND date >= ? AND date <= ?", accountID, from, to).
		Order("date").
		Find(&records).Error
	return records, err
}

func (s *gormStore) MonthlyConsumptionRange(ctx context.Context, accountID uint, from, to time.Time) ([]model.MonthlyConsumption, error) {
	var records []model.MonthlyConsumption
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND (year * 100 + month) BETWEEN ? AND ?",
			accountID, from.Year()*100+int(from.Month()), to.Year()*100+int(to.Month())).
		Order("year, month").
		Find(&records).Error
	return records, err
}

func (s *gormStore) RechargesRange(ctx context.Context, accountID uint, from, to time.Time) ([]model.Recharge, error) {
	var records []model.Recharge
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND recharge_date >= ? AND recharge_date <= ?", accountID, from, to).
		Order("recharge_date DESC").
		Find(&records).Error
	return records, err
}

func (s *gormStore) EventsByAccount(ctx context.Context, accountID uint) ([]model.RecentEvent, error) {
	var records []model.RecentEvent
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("event_date DESC").
		Find(&records).Error
	return records, err
}

func (s *gormStore) LocationsByAccount(ctx context.Context, accountID uint) ([]model.Location, error) {
	var records []model.Location
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&records).Error
	return records, err
}
