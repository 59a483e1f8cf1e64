package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/models"
	"github.com/Moichehub/marketplace/internal/store"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (h *handler) register(c echo.Context) error {
	return h.createAccount(c, false)
}

func (h *handler) registerSeller(c echo.Context) error {
	return h.createAccount(c, true)
}

func (h *handler) createAccount(c echo.Context, isSeller bool) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := store.CreateUser(c.Request().Context(), h.db, h.hasher, store.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsSeller: isSeller,
	})
	if err != nil {
		return err
	}

	resp, err := h.issueToken(user)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, resp, "Account created")
}

func (h *handler) login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := store.Authenticate(c.Request().Context(), h.db, h.hasher, req.Username, req.Password)
	if errors.Is(err, apperr.ErrInvalidLogin) {
		return echo.NewHTTPError(http.StatusUnauthorized, apperr.ErrInvalidLogin.Message)
	}
	if err != nil {
		return err
	}

	resp, err := h.issueToken(user)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, resp, "Login successful")
}

func (h *handler) issueToken(user *models.User) (*tokenResponse, error) {
	token, expiresAt, err := h.tokens.Issue(user.ID, user.Username, user.IsSeller)
	if err != nil {
		return nil, err
	}
	return &tokenResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
