package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"usermgmt/internal/model"
	"usermgmt/internal/service"
)

// AccountHandler handles account endpoints.
type AccountHandler struct {
	accountService service.AccountService
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// RegisterRequest represents an account registration request.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UpdateRequest represents a change to the caller's own account.
// Omitting password leaves the account unchanged.
type UpdateRequest struct {
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

// AccountResponse is the public view of an account. It never carries the credential.
type AccountResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAccountResponse(a *model.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Username:  a.Username,
		IsActive:  a.IsActive,
		IsAdmin:   a.IsAdmin,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Register godoc
// @Summary Register a new account
// @Description The first account ever registered becomes the administrator.
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} AccountResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.accountService.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusCreated, toAccountResponse(account))
}

// Me godoc
// @Summary Get the authenticated account
// @Tags accounts
// @Produce json
// @Security BasicAuth
// @Success 200 {object} AccountResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	account, err := CurrentAccount(c)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// UpdateMe godoc
// @Summary Update the authenticated account's password
// @Tags accounts
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param request body UpdateRequest true "Update data"
// @Success 200 {object} AccountResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users/me [patch]
func (h *AccountHandler) UpdateMe(c echo.Context) error {
	account, err := CurrentAccount(c)
	if err != nil {
		return respondError(err)
	}

	var req UpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.accountService.UpdateOwnCredential(c.Request().Context(), account, req.Password)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, toAccountResponse(updated))
}

// List godoc
// @Summary List all accounts
// @Tags admin
// @Produce json
// @Security BasicAuth
// @Success 200 {array} AccountResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *AccountHandler) List(c echo.Context) error {
	accounts, err := h.accountService.ListAll(c.Request().Context())
	if err != nil {
		return respondError(err)
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		resp = append(resp, toAccountResponse(&accounts[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get an account by id
// @Tags admin
// @Produce json
// @Security BasicAuth
// @Param id path int true "Account ID"
// @Success 200 {object} AccountResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *AccountHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	account, err := h.accountService.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Activate godoc
// @Summary Activate an account
// @Tags admin
// @Produce json
// @Security BasicAuth
// @Param id path int true "Account ID"
// @Success 200 {object} AccountResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/activate [patch]
func (h *AccountHandler) Activate(c echo.Context) error {
	return h.setActive(c, true)
}

// Deactivate godoc
// @Summary Deactivate an account
// @Description A deactivated account can no longer authenticate.
// @Tags admin
// @Produce json
// @Security BasicAuth
// @Param id path int true "Account ID"
// @Success 200 {object} AccountResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/deactivate [patch]
func (h *AccountHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *AccountHandler) setActive(c echo.Context, active bool) error {
	admin, err := CurrentAccount(c)
	if err != nil {
		return respondError(err)
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	account, err := h.accountService.SetActive(c.Request().Context(), id, active, admin.ID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Delete godoc
// @Summary Delete an account
// @Tags admin
// @Security BasicAuth
// @Param id path int true "Account ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *AccountHandler) Delete(c echo.Context) error {
	admin, err := CurrentAccount(c)
	if err != nil {
		return respondError(err)
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.accountService.Delete(c.Request().Context(), id, admin.ID); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
