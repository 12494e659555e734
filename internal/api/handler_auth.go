package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"desco-report-backend/internal/auth"
	"desco-report-backend/internal/model"
	"desco-report-backend/internal/mw"
)

type registerRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=64"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

// authResponse is the envelope returned by register and login.
type authResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Roles     []string  `json:"roles"`
}

func (h *Handler) newAuthResponse(user *model.User) (*authResponse, error) {
	token, expiresAt, err := h.tokens.Generate(user)
	if err != nil {
		return nil, err
	}
	return &authResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Token:     token,
		ExpiresAt: expiresAt,
		Roles:     user.RoleNames(),
	}, nil
}

// Register godoc
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body registerRequest true "registration payload"
// @Success      200 {object} authResponse
// @Failure      400 {object} map[string]string
// @Router       /api/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.FirstName, req.LastName)
	if errors.Is(err, auth.ErrUsernameTaken) || errors.Is(err, auth.ErrEmailTaken) {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("user registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "registration failed"})
		return
	}

	resp, err := h.newAuthResponse(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Login godoc
// @Summary      Authenticate with username or email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body loginRequest true "credentials"
// @Success      200 {object} authResponse
// @Failure      401 {object} map[string]string
// @Router       /api/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.UsernameOrEmail, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrAccountDisabled) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		return
	}

	resp, err := h.newAuthResponse(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me godoc
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} model.User
// @Router       /api/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	user := mw.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout godoc
// @Summary      Revoke the presented token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Router       /api/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	tokenString, err := auth.ExtractToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
		return
	}

	claims, err := h.tokens.Validate(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
		return
	}

	if err := h.denylist.Add(c.Request.Context(), tokenString, time.Until(claims.Expiry)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
