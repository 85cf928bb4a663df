package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core/lecture"
	"github.com/trezcool/lectern/core/user"
)

type lectureApi struct {
	srv *Server
	svc *lecture.Service
}

func registerLectureAPI(s *Server) {
	api := lectureApi{srv: s, svc: s.LectureSvc}

	s.app.GET("/lecturer", api.lecturerDashboard, dashboardMiddleware(user.RoleLecturer))
	s.app.GET("/student", api.studentDashboard, dashboardMiddleware(user.RoleStudent))

	g := s.app.Group("/lectures", s.loginRequiredMiddleware)
	g.GET("", api.list)
	g.GET("/:id", api.retrieve)
}

type dashboard struct {
	User     user.Claim        `json:"user"`
	Lectures []lecture.Summary `json:"lectures"`
	Messages []string          `json:"messages,omitempty"`
}

// lecturerDashboard lists the lecturer's own lectures, newest first.
func (api *lectureApi) lecturerDashboard(ctx echo.Context) error {
	claim := getContextClaim(ctx)
	lectures, err := api.svc.Authored(ctx.Request().Context(), claim)
	if err != nil {
		return errors.Wrap(err, "querying authored lectures")
	}
	return ctx.JSON(http.StatusOK, dashboard{User: claim, Lectures: lecture.Summaries(lectures)})
}

// studentDashboard lists the lectures visible to the student, newest first.
func (api *lectureApi) studentDashboard(ctx echo.Context) error {
	claim := getContextClaim(ctx)
	lectures, err := api.svc.ListVisible(ctx.Request().Context(), claim)
	if err != nil {
		return errors.Wrap(err, "querying visible lectures")
	}
	msgs, err := api.srv.popFlashes(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dashboard{User: claim, Lectures: lecture.Summaries(lectures), Messages: msgs})
}

func (api *lectureApi) list(ctx echo.Context) error {
	lectures, err := api.svc.ListVisible(ctx.Request().Context(), getContextClaim(ctx))
	if err != nil {
		return errors.Wrap(err, "querying visible lectures")
	}
	return ctx.JSON(http.StatusOK, lecture.Summaries(lectures))
}

func (api *lectureApi) retrieve(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return errHttpNotFound
	}

	l, err := api.svc.Get(ctx.Request().Context(), getContextClaim(ctx), id)
	if err != nil {
		if errors.Cause(err) == lecture.ErrAccessDenied {
			return api.srv.redirectWithFlash(ctx, "/student", msgNoAccess)
		}
		return errors.Wrap(err, "getting lecture")
	}
	return ctx.JSON(http.StatusOK, l)
}
