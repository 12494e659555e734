package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"desco-report-backend/config"
	"desco-report-backend/internal/auth"
	"desco-report-backend/internal/model"
	"desco-report-backend/internal/provider"
	"desco-report-backend/internal/store"
	"desco-report-backend/internal/sync"
)

// stubFetcher satisfies sync.Fetcher with configurable balance data; the
// other categories stay empty.
type stubFetcher struct {
	balance *provider.Balance
}

func (f *stubFetcher) Balance(ctx context.Context, accountNo, meterNo string) *provider.Balance {
	return f.balance
}

func (f *stubFetcher) DailyConsumption(ctx context.Context, accountNo, meterNo string, from, to time.Time) []provider.DailyConsumption {
	return nil
}

func (f *stubFetcher) MonthlyConsumption(ctx context.Context, accountNo, meterNo string, from, to time.Time) []provider.MonthlyConsumption {
	return nil
}

func (f *stubFetcher) RechargeHistory(ctx context.Context, accountNo, meterNo string, from, to time.Time) []provider.Recharge {
	return nil
}

func (f *stubFetcher) RecentEvents(ctx context.Context, accountNo string) []provider.Event {
	return nil
}

func (f *stubFetcher) CustomerLocations(ctx context.Context, accountNo string) []provider.Location {
	return nil
}

type testEnv struct {
	router  *gin.Engine
	db      *gorm.DB
	fetcher *stubFetcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.UtilityAccount{},
		&model.DailyConsumption{},
		&model.MonthlyConsumption{},
		&model.Recharge{},
		&model.RecentEvent{},
		&model.Location{},
		&model.PushSubscription{},
	))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	log := zap.NewNop()
	appStore := store.NewGormStore(db)
	fetcher := &stubFetcher{}
	windows := config.SyncConfig{DailyDays: 30, MonthlyMonths: 12, RechargeMonths: 6}
	syncSvc := sync.NewService(fetcher, appStore, nil, windows, log)

	users := auth.NewService(db)
	tokens := auth.NewTokens("test-secret", time.Hour)
	denylist := auth.NewDenylist(nil)

	handler := NewHandler(appStore, syncSvc, users, tokens, denylist, nil, windows, log)
	router := NewRouter(&config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 1,
	}, handler, nil, log)

	return &testEnv{router: router, db: db, fetcher: fetcher}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) registerAndLogin(t *testing.T, username string) (string, authResponse) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp
}

func TestRegisterAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	token, resp := env.registerAndLogin(t, "rahim")
	assert.NotEmpty(t, token)
	assert.Equal(t, "rahim", resp.Username)
	assert.Equal(t, []string{model.RoleUser}, resp.Roles)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	// Duplicate username is a client error.
	w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "rahim",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Login with the same credentials; the same field also accepts the
	// email address.
	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"usernameOrEmail": "rahim",
		"password":        "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, resp.ID, login.ID)

	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"usernameOrEmail": "rahim@example.com",
		"password":        "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The token opens the profile endpoint.
	w = env.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"rahim"`)
}

func TestLoginRejections(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.registerAndLogin(t, "rahim")

	w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"usernameOrEmail": "rahim",
		"password":        "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A body without the credential field fails binding.
	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Disabled accounts are rejected even with the right password.
	require.NoError(t, env.db.Model(&model.User{}).
		Where("id = ?", resp.ID).Update("is_active", false).Error)
	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"usernameOrEmail": "rahim",
		"password":        "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/desco/accounts", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenOfDisabledUserStopsWorking(t *testing.T) {
	env := newTestEnv(t)
	token, resp := env.registerAndLogin(t, "rahim")

	w := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, env.db.Model(&model.User{}).
		Where("id = ?", resp.ID).Update("is_active", false).Error)

	w = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
