package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"desco-report-backend/internal/mw"
	"desco-report-backend/internal/sync"
)

type registerAccountRequest struct {
	AccountNo    string `json:"accountNo" binding:"required"`
	MeterNo      string `json:"meterNo" binding:"required"`
	CustomerName string `json:"customerName"`
}

// ListAccounts godoc
// @Summary      Utility accounts registered by the current user
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} model.UtilityAccount
// @Router       /api/desco/accounts [get]
func (h *Handler) ListAccounts(c *gin.Context) {
	user := mw.CurrentUser(c)
	accounts, err := h.syncer.ListAccounts(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error("account listing failed", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list accounts"})
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// RegisterAccount godoc
// @Summary      Link a utility account to the current user
// @Description  Validates the account/meter pair against the provider, then
// @Description  runs an initial synchronization before responding.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body registerAccountRequest true "account to link"
// @Success      201 {object} model.UtilityAccount
// @Failure      400 {object} map[string]string
// @Router       /api/desco/accounts [post]
func (h *Handler) RegisterAccount(c *gin.Context) {
	var req registerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user := mw.CurrentUser(c)
	acct, err := h.syncer.RegisterAccount(c.Request.Context(), user.ID, req.AccountNo, req.MeterNo, req.CustomerName)
	if errors.Is(err, sync.ErrAccountExists) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "account already registered"})
		return
	}
	if errors.Is(err, sync.ErrInvalidAccount) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid account or meter number"})
		return
	}
	if err != nil {
		h.log.Error("account registration failed", zap.String("account_no", req.AccountNo), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "account registration failed"})
		return
	}

	c.Header("Location", fmt.Sprintf("/api/desco/balance/%s/%s", acct.AccountNumber, acct.MeterNumber))
	c.JSON(http.StatusCreated, acct)
}
