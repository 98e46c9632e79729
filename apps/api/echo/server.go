package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/access"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/student"
	"github.com/trezcool/inclusiva/core/workspace"
	"github.com/trezcool/inclusiva/services/metrics"
)

type (
	ServerDeps struct {
		Conf   *core.Config
		Logger core.Logger
		// RequestLogger writes one entry per request; nil disables request logs.
		RequestLogger *zap.Logger
		Metrics       *metrics.Metrics
		WorkspaceSvc  workspace.ServiceInterface
		MemberSvc     member.ServiceInterface
		StudentSvc    student.ServiceInterface
		Validate      *validator.Validate
		Translator    ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		access   *access.Service
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		access:   access.NewService(deps.MemberSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	if s.deps.RequestLogger != nil {
		s.app.Use(requestLogMiddleware(s.deps.RequestLogger))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
		s.app.GET("/metrics", s.deps.Metrics.Handler())
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(jwtConfig(conf))
	authed := []echo.MiddlewareFunc{jwt, sessionMiddleware(s.deps.WorkspaceSvc, s.deps.MemberSvc)}

	registerAuthAPI(v1, authed, s.deps)
	registerWorkspaceAPI(v1, authed, s.deps.WorkspaceSvc)
	registerStudentAPI(v1, authed, s.deps, s.access)
	registerMemberAPI(v1, authed, s.deps)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
