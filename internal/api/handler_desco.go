package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"desco-report-backend/internal/sync"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// dateRange reads dateFrom/dateTo query params, defaulting to the trailing
// window of defaultDays.
func dateRange(c *gin.Context, defaultDays int) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -defaultDays)
	to := now

	if v := c.Query("dateFrom"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("dateFrom must be formatted as YYYY-MM-DD")
		}
		from = parsed
	}
	if v := c.Query("dateTo"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("dateTo must be formatted as YYYY-MM-DD")
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("dateTo must not precede dateFrom")
	}
	return from, to, nil
}

// monthRange reads monthFrom/monthTo query params, defaulting to the trailing
// window of defaultMonths.
func monthRange(c *gin.Context, defaultMonths int) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, -defaultMonths, 0)
	to := now

	if v := c.Query("monthFrom"); v != "" {
		parsed, err := time.Parse(monthLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("monthFrom must be formatted as YYYY-MM")
		}
		from = parsed
	}
	if v := c.Query("monthTo"); v != "" {
		parsed, err := time.Parse(monthLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("monthTo must be formatted as YYYY-MM")
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("monthTo must not precede monthFrom")
	}
	return from, to, nil
}

func (h *Handler) respondSyncErr(c *gin.Context, err error) {
	if errors.Is(err, sync.ErrAccountNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "account not found"})
		return
	}
	h.log.Error("account data request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}

// GetBalance godoc
// @Summary      Current balance snapshot for an account
// @Tags         desco
// @Produce      json
// @Security     BearerAuth
// @Param        accountNo path string true "account number"
// @Param        meterNo   path string true "meter number"
// @Success      200 {object} model.UtilityAccount
// @Failure      404 {object} map[string]string
// @Router       /api/desco/balance/{accountNo}/{meterNo} [get]
func (h *Handler) GetBalance(c *gin.Context) {
	acct, err := h.syncer.BalanceSnapshot(c.Request.Context(), c.Param("accountNo"), c.Param("meterNo"))
	if err != nil {
		h.respondSyncErr(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

// GetDailyConsumption godoc
// @Summary      Daily consumption records for a date range
// @Tags         desco
// @Produce      json
// @Security     BearerAuth
// @Param        accountNo path  string true  "account number"
// @Param        meterNo   path  string true  "meter number"
// @Param        dateFrom  query string false "YYYY-MM-DD"
// @Param        dateTo    query string false "YYYY-MM-DD"
// @Success      200 {array} model.DailyConsumption
// @Router       /api/desco/daily-consumption/{accountNo}/{meterNo} [get]
func (h *Handler) GetDailyConsumption(c *gin.Context) {
	from, to, err := dateRange(c, h.windows.DailyDays)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	records, err := h.syncer.Daily(c.Request.Context(), c.Param("accountNo"), c.Param("meterNo"), from, to)
	if err != nil {
		h.respondSyncErr(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetMonthlyConsumption godoc
// @Summary      Monthly consumption records for a month range
// @Tags         desco
// @Produce      json
// @Security     BearerAuth
// @Param        accountNo path  string true  "account number"
// @Param        meterNo   path  string true  "meter number"
// @Param        monthFrom query string false "YYYY-MM"
// @Param        monthTo   query string false "YYYY-MM"
// @Success      200 {array} model.MonthlyConsumption
// @Router       /api/desco/monthly-consumption/{accountNo}/{meterNo} [get]
func (h *Handler) GetMonthlyConsumption(c *gin.Context) {
	from, to, err := monthRange(c, h.windows.MonthlyMonths)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	records, err := h.syncer.Monthly(c.Request.Context(), c.Param("accountNo"), c.Param("meterNo"), from, to)
	if err != nil {
		h.respondSyncErr(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetRechargeHistory godoc
// @Summary      Recharge history for a date range
// @Tags         desco
// @Produce      json
// @Security     BearerAuth
// @Param        accountNo path  string true  "account number"
// @Param        meterNo   path  string true  "meter number"
// @Param        dateFrom  query string false "YYYY-MM-DD"
// @Param        dateTo    query string false "YYYY-MM-DD"
// @Success      200 {array} model.Recharge
// @Router       /api/desco/recharge-history/{accountNo}/{meterNo} [get]
func (h *Handler) GetRechargeHistory(c *gin.Context) {
	from, to, err := dateRange(c, h.windows.RechargeMonths*30)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	records, err := h.syncer.Recharges(c.Request.Context(), c.Param("accountNo"), c.Param("meterNo"), from, to)
	if err != nil {
		h.respondSyncErr(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetRecentEvents godoc
// @Summary      Provider event feed for an account
// @Tags         desco
// @Produce      json
// @Security     BearerAuth
// @Param        accountNo path string true "account number"
// @Success      200 {array} model.RecentEvent
// @Router       /api/desco/recent-events/{accountNo} [get]
func (h *Handler) GetRecentEvents(c *gin.Context) {
	records, err := h.syncer.Events(c.Request.Context(), c.Param("accountNo"))
	if err != nil {
		h.respondSyncErr(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetLocation godoc
// @Summary      Address records for an account
// @Tags         desco
// @Produce      json
// @Security     BearerAuth
// @Param        accountNo path string true "account number"
// @Success      200 {array} model.Location
// @Router       /api/desco/location/{accountNo} [get]
func (h *Handler) GetLocation(c *gin.Context) {
	records, err := h.syncer.Locations(c.Request.Context(), c.Param("accountNo"))
	if err != nil {
		h.respondSyncErr(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

type syncAccountRequest struct {
	AccountNo string `json:"accountNo" binding:"required"`
	MeterNo   string `json:"meterNo" binding:"required"`
}

// SyncAccount godoc
// @Summary      Run a full synchronization for an account
// @Tags         desco
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body syncAccountRequest true "account identifiers"
// @Success      200 {object} map[string]string
// @Failure      400 {object} map[string]string
// @Router       /api/desco/sync-account [post]
func (h *Handler) SyncAccount(c *gin.Context) {
	var req syncAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if err := h.syncer.SyncAccount(c.Request.Context(), req.AccountNo, req.MeterNo); err != nil {
		h.log.Error("manual sync failed", zap.String("account_no", req.AccountNo), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "synchronization failed"})
		return
	}

	// A sync that could not establish any row means the provider rejected
	// the pair and nothing was persisted.
	if _, err := h.store.GetAccount(c.Request.Context(), req.AccountNo, req.MeterNo); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid account or meter number"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account synchronized"})
}
