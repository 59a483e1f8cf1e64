package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/auth"
	"github.com/Moichehub/marketplace/internal/models"
	"github.com/Moichehub/marketplace/internal/store"
)

const userContextKey = "user"

// requestLogger logs one line per request at a level chosen by status.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Render now so the logged status is the one sent.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			latency := time.Since(start)

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("uri", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", latency),
				slog.String("remote_ip", c.RealIP()),
				slog.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			if req.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}

			level := slog.LevelInfo
			if res.Status >= http.StatusBadRequest {
				level = slog.LevelWarn
			}
			if res.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			logger.LogAttrs(context.Background(), level, "http request", attrs...)
			return nil
		}
	}
}

type authenticator struct {
	db     *sql.DB
	tokens *auth.TokenIssuer
}

// authenticate resolves the bearer token to an active user and stores it on
// the context.
func (a *authenticator) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "authorization header is missing")
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token format, must be Bearer token")
		}

		claims, err := a.tokens.Parse(tokenString)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		user, err := store.GetUser(c.Request().Context(), a.db, claims.UserID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return echo.NewHTTPError(http.StatusUnauthorized, "account no longer exists")
			}
			return err
		}
		if !user.IsActive {
			return echo.NewHTTPError(http.StatusUnauthorized, "account is disabled")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// requireSeller must run after authenticate.
func requireSeller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := currentUser(c)
		if user == nil || !user.IsSeller {
			return apperr.ErrSellerOnly
		}
		return next(c)
	}
}

func currentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}
