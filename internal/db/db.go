package db

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"desco-report-backend/config"
	"desco-report-backend/internal/model"
)

// Init opens the PostgreSQL connection, applies pool settings, runs
// migrations and seeds the baseline roles.
func Init(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info("running database migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := SeedRoles(db); err != nil {
		return nil, fmt.Errorf("role seeding failed: %w", err)
	}

	log.Info("database initialization complete")
	return db, nil
}

// Migrate applies the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.UtilityAccount{},
		&model.DailyConsumption{},
		&model.MonthlyConsumption{},
		&model.Recharge{},
		&model.RecentEvent{},
		&model.Location{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// SeedRoles ensures the built-in roles exist.
func SeedRoles(db *gorm.DB) error {
	for _, name := range []string{model.RoleAdmin, model.RoleUser, model.RoleManager} {
		role := model.Role{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedAdminUser creates the initial administrator account when no user with
// the Admin role exists yet. Credentials come from configuration; an empty
// username disables seeding.
func SeedAdminUser(db *gorm.DB, username, email, password string, log *zap.Logger) error {
	if username == "" {
		return nil
	}

	var count int64
	if err := db.Model(&model.User{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", model.RoleAdmin).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var existing model.User
		err := tx.Where("username = ?", username).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user := model.User{
			Username:     username,
			Email:        email,
			PasswordHash: string(hash),
			IsActive:     true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		var admin model.Role
		if err := tx.Where("name = ?", model.RoleAdmin).First(&admin).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Association("Roles").Append(&admin); err != nil {
			return err
		}

		log.Info("seeded initial admin user", zap.String("username", username))
		return nil
	})
}
