package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/services/metrics"
)

var (
	errMemberNotFoundInCtx = errors.New("member object not found in echo.Context")
	objectContextKey       = "object"
)

type memberApi struct {
	svc     member.ServiceInterface
	metrics *metrics.Metrics
}

func registerMemberAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := memberApi{
		svc:     deps.MemberSvc,
		metrics: deps.Metrics,
	}

	mw := append(append([]echo.MiddlewareFunc{}, authed...), requireCapability(member.CapUsers, deps.Metrics))
	mg := g.Group("/members", mw...)
	mg.GET("", api.query)
	mg.POST("", api.create)

	// detail endpoints
	dg := mg.Group("/:id", memberObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/deactivate", api.deactivate)
	dg.POST("/reactivate", api.reactivate)
	dg.GET("/assignments", api.assignments)
	dg.GET("/links", api.links)
}

// memberObjectMiddleware loads the :id member of the session workspace into the context.
func memberObjectMiddleware(svc member.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := getContextSession(ctx)
			if err != nil {
				return err
			}
			m, err := svc.Get(ctx.Request().Context(), sess.WorkspaceID(), ctx.Param("id"))
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding member by ID")
			}
			ctx.Set(objectContextKey, m)
			return next(ctx)
		}
	}
}

func contextMember(ctx echo.Context) (member.Member, error) {
	m, ok := ctx.Get(objectContextKey).(member.Member)
	if !ok {
		return member.Member{}, errors.Wrap(errMemberNotFoundInCtx, "retrieving object from context")
	}
	return m, nil
}

// Handlers

func (api *memberApi) query(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	filter := new(member.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []member.Member{})
	}
	filter.Clean()
	ordering := bindOrdering(ctx, memberSortFields...)

	members, err := api.svc.Query(ctx.Request().Context(), sess.WorkspaceID(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *memberApi) create(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	var data member.NewMember
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}

	m, err := api.svc.Create(ctx.Request().Context(), sess.WorkspaceID(), data)
	if err != nil {
		return errors.Wrap(err, "creating member")
	}
	if api.metrics != nil {
		api.metrics.RecordMemberCreated()
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *memberApi) retrieve(ctx echo.Context) error {
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) update(ctx echo.Context) error {
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}

	var data member.UpdateMember
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}

	m, err = api.svc.Update(ctx.Request().Context(), m.WorkspaceID, m.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating member")
	}
	return ctx.JSON(http.StatusOK, m)
}

// notSelf forbids members from locking themselves out.
func notSelf(ctx echo.Context, m member.Member) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if sess.MemberID() == m.ID {
		return errHttpForbidden
	}
	return nil
}

func (api *memberApi) destroy(ctx echo.Context) error {
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}
	if err = notSelf(ctx, m); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), m.WorkspaceID, m.ID); err != nil {
		return errors.Wrap(err, "deleting member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *memberApi) deactivate(ctx echo.Context) error {
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}
	if err = notSelf(ctx, m); err != nil {
		return err
	}

	if err = api.svc.Deactivate(ctx.Request().Context(), m.WorkspaceID, m.ID); err != nil {
		return errors.Wrap(err, "deactivating member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *memberApi) reactivate(ctx echo.Context) error {
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Reactivate(ctx.Request().Context(), m.WorkspaceID, m.ID); err != nil {
		return errors.Wrap(err, "reactivating member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *memberApi) assignments(ctx echo.Context) error {
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}

	as, err := api.svc.Assignments(ctx.Request().Context(), m.ID)
	if err != nil {
		return errors.Wrap(err, "querying class assignments")
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *memberApi) links(ctx echo.Context) error {
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}

	ids, err := api.svc.StudentLinks(ctx.Request().Context(), m.ID)
	if err != nil {
		return errors.Wrap(err, "querying student links")
	}
	return ctx.JSON(http.StatusOK, ids)
}
