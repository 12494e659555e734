package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"desco-report-backend/config"
	"desco-report-backend/internal/auth"
	"desco-report-backend/internal/store"
	"desco-report-backend/internal/sync"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	syncer   *sync.Service
	users    *auth.Service
	tokens   *auth.Tokens
	denylist *auth.Denylist
	webpush  *webpush.Options
	windows  config.SyncConfig
	log      *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	s store.Store,
	syncer *sync.Service,
	users *auth.Service,
	tokens *auth.Tokens,
	denylist *auth.Denylist,
	webpushOptions *webpush.Options,
	windows config.SyncConfig,
	log *zap.Logger,
) *Handler {
	return &Handler{
		store:    s,
		syncer:   syncer,
		users:    users,
		tokens:   tokens,
		denylist: denylist,
		webpush:  webpushOptions,
		windows:  windows,
		log:      log,
	}
}
