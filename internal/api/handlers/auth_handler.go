package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/danghamo/stride/internal/api/jsonrpcx"
	"github.com/danghamo/stride/internal/app/service"
	"github.com/danghamo/stride/internal/domain/account"
	"github.com/danghamo/stride/pkg/logger"
)

// AuthHandler serves the public sign-up and sign-in methods
type AuthHandler struct {
	logger   *logger.Logger
	accounts *service.AccountService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(logger *logger.Logger, accounts *service.AccountService) *AuthHandler {
	return &AuthHandler{
		logger:   logger.WithComponent("auth-handler"),
		accounts: accounts,
	}
}

type RegisterRequest struct {
	Email       string `json:"email" example:"runner@example.com"`
	Password    string `json:"password" example:"secret1"`
	DisplayName string `json:"display_name" example:"Runner"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"runner@example.com"`
	Password string `json:"password" example:"secret1"`
}

type AuthResponse = service.AuthResult

// Register handles POST /api/v1/auth.Register
// @Summary Create an account
// @Description Register with email and password and receive a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[RegisterRequest] true "JSON-RPC request with RegisterRequest params"
// @Success 200 {object} jsonrpcx.ResponseT[AuthResponse] "Token and user"
// @Failure 400 {object} jsonrpcx.ErrorResponse "Invalid email, weak password or email already used"
// @Router /api/v1/auth.Register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var params RegisterRequest
	c, ok := parseCall(r, &params, false)
	if !ok {
		return
	}

	result, err := h.accounts.Register(r.Context(), params.Email, params.Password, params.DisplayName)
	if err != nil {
		h.logger.Debug("Registration rejected", zap.String("email", params.Email), zap.Error(err))
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	h.logger.Info("User registered", zap.String("userId", result.User.ID.String()))
	jsonrpcx.Success(w, c.req.ID, result)
}

// Login handles POST /api/v1/auth.Login
// @Summary Sign in
// @Description Sign in with email and password. Errors distinguish unknown email, wrong password and invalid email.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[LoginRequest] true "JSON-RPC request with LoginRequest params"
// @Success 200 {object} jsonrpcx.ResponseT[AuthResponse] "Token and user"
// @Failure 400 {object} jsonrpcx.ErrorResponse "Invalid credentials"
// @Router /api/v1/auth.Login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var params LoginRequest
	c, ok := parseCall(r, &params, false)
	if !ok {
		return
	}

	result, err := h.accounts.Login(r.Context(), params.Email, params.Password)
	if err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	jsonrpcx.Success(w, c.req.ID, result)
}

// AccountHandler serves the methods of a signed-in user's account
type AccountHandler struct {
	logger   *logger.Logger
	accounts *service.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *logger.Logger, accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{
		logger:   logger.WithComponent("account-handler"),
		accounts: accounts,
	}
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" example:"Morning Runner"`
}

type LogoutResponse struct {
	LoggedOut bool `json:"logged_out"`
}

type UserResponse = account.User

// Me handles POST /api/v1/auth.Me
// @Summary Current user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[EmptyParams] true "JSON-RPC request"
// @Success 200 {object} jsonrpcx.ResponseT[UserResponse] "Signed-in user"
// @Failure 401 {object} jsonrpcx.ErrorResponse "Authentication required"
// @Security BearerAuth
// @Router /api/v1/auth.Me [post]
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := parseCall(r, nil, true)
	if !ok {
		return
	}

	user, err := h.accounts.Me(r.Context(), c.userID)
	if err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	jsonrpcx.Success(w, c.req.ID, user)
}

// Logout handles POST /api/v1/auth.Logout
// @Summary Sign out
// @Description Clears the user's local state and abandons any running session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[EmptyParams] true "JSON-RPC request"
// @Success 200 {object} jsonrpcx.ResponseT[LogoutResponse]
// @Failure 401 {object} jsonrpcx.ErrorResponse "Authentication required"
// @Security BearerAuth
// @Router /api/v1/auth.Logout [post]
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	c, ok := parseCall(r, nil, true)
	if !ok {
		return
	}

	h.accounts.Logout(r.Context(), c.userID)
	h.logger.Info("User logged out", zap.String("userId", c.userID))
	jsonrpcx.Success(w, c.req.ID, LogoutResponse{LoggedOut: true})
}

// UpdateProfile handles POST /api/v1/auth.UpdateProfile
// @Summary Rename the signed-in user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[UpdateProfileRequest] true "JSON-RPC request with UpdateProfileRequest params"
// @Success 200 {object} jsonrpcx.ResponseT[UserResponse] "Updated user"
// @Failure 400 {object} jsonrpcx.ErrorResponse "Invalid display name"
// @Security BearerAuth
// @Router /api/v1/auth.UpdateProfile [post]
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var params UpdateProfileRequest
	c, ok := parseCall(r, &params, true)
	if !ok {
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), c.userID, params.DisplayName)
	if err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	jsonrpcx.Success(w, c.req.ID, user)
}
