package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/inclusiva/core/workspace"
)

type workspaceApi struct {
	svc workspace.ServiceInterface
}

func registerWorkspaceAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc workspace.ServiceInterface) {
	api := workspaceApi{svc: svc}

	wg := g.Group("/workspace", authed...)
	wg.GET("/plan", api.plan)
}

func (api *workspaceApi) plan(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Plan(ctx.Request().Context(), sess.WorkspaceID())
	if err != nil {
		return errors.Wrap(err, "loading workspace plan")
	}
	return ctx.JSON(http.StatusOK, p)
}
