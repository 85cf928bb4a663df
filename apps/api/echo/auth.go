package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core/user"
)

type authApi struct {
	srv      *Server
	svc      *user.Service
	validate *validator.Validate
}

func registerAuthAPI(s *Server) {
	api := authApi{
		srv:      s,
		svc:      s.UserSvc,
		validate: s.Validate,
	}

	s.app.GET("/", api.home)
	s.app.POST("/login", api.login)
	s.app.GET("/logout", api.logout)
}

type homeResponse struct {
	Messages []string    `json:"messages"`
	User     *user.Claim `json:"user"`
}

// home drains the pending notices.
func (api *authApi) home(ctx echo.Context) error {
	msgs, err := api.srv.popFlashes(ctx)
	if err != nil {
		return err
	}
	resp := homeResponse{Messages: msgs}
	if claim := getContextClaim(ctx); !claim.IsZero() {
		resp.User = &claim
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *authApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claim, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password, data.Role)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrNotFound:
			return echo.NewHTTPError(http.StatusUnauthorized, msgUserNotFound)
		case user.ErrWrongPassword:
			return echo.NewHTTPError(http.StatusUnauthorized, msgWrongPassword)
		case user.ErrRoleMismatch:
			return echo.NewHTTPError(http.StatusUnauthorized, msgRoleMismatch)
		default:
			return errors.Wrap(err, "authenticating")
		}
	}

	if err = api.srv.startSession(ctx, claim); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, claim.Dashboard())
}

func (api *authApi) logout(ctx echo.Context) error {
	msg := msgLoggedOut
	if getContextClaim(ctx).IsZero() {
		msg = msgNotLoggedIn
	}
	if err := api.srv.endSession(ctx, msg); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/")
}
