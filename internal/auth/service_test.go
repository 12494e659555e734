package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"desco-report-backend/internal/model"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Role{}, &model.User{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewService(db)
}

func TestRegisterAssignsDefaultRole(t *testing.T) {
	s := newTestService(t)
	user, err := s.Register(context.Background(), "rahim", "rahim@example.com", "password123", "Rahim", "Uddin")
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.Equal(t, []string{model.RoleUser}, user.RoleNames())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, "rahim", "rahim@example.com", "password123", "", "")
	require.NoError(t, err)

	_, err = s.Register(ctx, "rahim", "other@example.com", "password123", "", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = s.Register(ctx, "other", "rahim@example.com", "password123", "", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	registered, err := s.Register(ctx, "rahim", "rahim@example.com", "password123", "", "")
	require.NoError(t, err)

	// Username and email both work as the identifier.
	user, err := s.Authenticate(ctx, "rahim", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotNil(t, user.LastLoginAt)

	user, err = s.Authenticate(ctx, "rahim@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = s.Authenticate(ctx, "rahim", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsDisabledAccount(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	user, err := s.Register(ctx, "rahim", "rahim@example.com", "password123", "", "")
	require.NoError(t, err)

	require.NoError(t, s.db.Model(&model.User{}).
		Where("id = ?", user.ID).Update("is_active", false).Error)

	_, err = s.Authenticate(ctx, "rahim", "password123")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}
