package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/access"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/student"
)

type studentApi struct {
	svc    student.ServiceInterface
	access *access.Service
}

func registerStudentAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps, accessSvc *access.Service) {
	api := studentApi{
		svc:    deps.StudentSvc,
		access: accessSvc,
	}

	mw := append(append([]echo.MiddlewareFunc{}, authed...), requireCapability(member.CapStudents, deps.Metrics))
	sg := g.Group("/students", mw...)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.DELETE("/:id", api.destroy)
}

// visibleStudent loads the :id student, reporting students outside the session's
// visibility as not found.
func (api *studentApi) visibleStudent(ctx echo.Context, sess access.Session) (student.Student, error) {
	rctx := ctx.Request().Context()

	s, err := api.svc.Get(rctx, sess.WorkspaceID(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return student.Student{}, errHttpNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student by ID")
	}
	ok, err := api.access.CanSee(rctx, sess, s)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "checking student visibility")
	}
	if !ok {
		return student.Student{}, errHttpNotFound
	}
	return s, nil
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	filter := new(student.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()

	rctx := ctx.Request().Context()
	students, err := api.svc.Query(rctx, sess.WorkspaceID(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	students, err = api.access.VisibleStudents(rctx, sess, students)
	if err != nil {
		return errors.Wrap(err, "filtering students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	var data student.NewStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	s, err := api.svc.Create(ctx.Request().Context(), sess.WorkspaceID(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	s, err := api.visibleStudent(ctx, sess)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	s, err := api.visibleStudent(ctx, sess)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), sess.WorkspaceID(), s.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
