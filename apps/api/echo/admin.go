package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core/enrollment"
	"github.com/trezcool/lectern/core/user"
)

type adminApi struct {
	srv       *Server
	usrSvc    *user.Service
	enrollSvc *enrollment.Service
	validate  *validator.Validate
}

func registerAdminAPI(s *Server) {
	api := adminApi{
		srv:       s,
		usrSvc:    s.UserSvc,
		enrollSvc: s.EnrollmentSvc,
		validate:  s.Validate,
	}

	g := s.app.Group("/admin", dashboardMiddleware(user.RoleAdmin))
	g.GET("", api.dashboard)
	g.POST("/users", api.createUser)
	g.POST("/add_user", api.createUser)
	g.GET("/enrollments", api.queryEnrollments)
	g.POST("/enrollments", api.enroll)
	g.DELETE("/enrollments", api.unenroll)
}

type adminDashboard struct {
	User  user.Claim  `json:"user"`
	Users []user.User `json:"users"`
}

func (api *adminApi) dashboard(ctx echo.Context) error {
	users, err := api.usrSvc.Query(ctx.Request().Context(), user.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, adminDashboard{User: getContextClaim(ctx), Users: users})
}

func (api *adminApi) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.usrSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	if err = api.srv.addFlash(ctx, msgUserCreated); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *adminApi) queryEnrollments(ctx echo.Context) error {
	enrollments, err := api.enrollSvc.Query(ctx.Request().Context(), ctx.QueryParam("student"))
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *adminApi) enroll(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.enrollSvc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *adminApi) unenroll(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.enrollSvc.Unenroll(ctx.Request().Context(), data.Student, data.CourseCode); err != nil {
		return errors.Wrap(err, "unenrolling")
	}
	return ctx.NoContent(http.StatusNoContent)
}
