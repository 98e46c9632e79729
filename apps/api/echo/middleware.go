package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/access"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/workspace"
	"github.com/trezcool/inclusiva/services/metrics"
)

// sessionMiddleware turns the JWT claims into an access.Session. The workspace and member
// are reloaded so that deactivations and permission changes apply to live tokens.
func sessionMiddleware(wsSvc workspace.ServiceInterface, memberSvc member.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			rctx := ctx.Request().Context()

			w, err := wsSvc.Get(rctx, claims.WorkspaceID)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					return errUnauthorized
				}
				return errors.Wrap(err, "loading session workspace")
			}
			if !w.IsActive {
				return errWorkspaceDeactivated
			}

			var sess access.Session
			if claims.MemberID == "" {
				sess = access.NewOwnerSession(w.ID, w.Name, claims.Name)
			} else {
				m, err := memberSvc.Get(rctx, w.ID, claims.MemberID)
				if err != nil {
					if errors.Is(err, core.ErrNotFound) {
						return errUnauthorized
					}
					return errors.Wrap(err, "loading session member")
				}
				if !m.IsActive {
					return errAccountDeactivated
				}
				sess = access.NewMemberSession(w.Name, m)
			}

			ctx.Set(sessionContextKey, sess)
			ctx.SetRequest(ctx.Request().WithContext(access.WithSession(rctx, sess)))
			return next(ctx)
		}
	}
}

// requireCapability rejects the request before any data is loaded unless the session
// holds capability.
func requireCapability(capability string, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := getContextSession(ctx)
			if err != nil {
				return err
			}
			if !sess.CanAccess(capability) {
				if m != nil {
					m.RecordDenied(capability)
				}
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// requestLogMiddleware logs every request once it has been handled.
func requestLogMiddleware(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			requestID := ctx.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = ctx.Response().Header().Get(echo.HeaderXRequestID)
			}
			reqLogger := logger.With(zap.String("request_id", requestID))

			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}

			fields := []zapcore.Field{
				zap.String("method", ctx.Request().Method),
				zap.String("path", ctx.Request().URL.Path),
				zap.Int("status", ctx.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", ctx.RealIP()),
			}
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				fields = append(fields, zap.String("workspace_id", claims.WorkspaceID))
			}
			switch {
			case err != nil:
				reqLogger.Warn("request failed", append(fields, zap.Error(err))...)
			case ctx.Response().Status >= http.StatusInternalServerError:
				reqLogger.Warn("request failed", fields...)
			default:
				reqLogger.Info("request completed", fields...)
			}
			return nil
		}
	}
}
