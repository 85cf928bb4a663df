package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/lectern/core/user"
)

// dashboardMiddleware lets through only the role owning the dashboard. Anyone else goes home.
func dashboardMiddleware(role user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !getContextClaim(ctx).CanReach(role) {
				return ctx.Redirect(http.StatusSeeOther, "/")
			}
			return next(ctx)
		}
	}
}

// loginRequiredMiddleware sends anonymous callers home with a notice.
func (s *Server) loginRequiredMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if getContextClaim(ctx).IsZero() {
			return s.redirectWithFlash(ctx, "/", msgLoginFirst)
		}
		return next(ctx)
	}
}

// lecturerAPIMiddleware answers 401 to any caller that is not a logged in lecturer.
func lecturerAPIMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !getContextClaim(ctx).CanReach(user.RoleLecturer) {
			return errUnauthorized
		}
		return next(ctx)
	}
}
