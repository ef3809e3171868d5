package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/assignment"
	"github.com/qazmun/mun/core/conference"
	"github.com/qazmun/mun/core/news"
	"github.com/qazmun/mun/core/registration"
	"github.com/qazmun/mun/core/user"
)

type (
	// HTTPMetrics records the served requests and exposes the collected metrics.
	HTTPMetrics interface {
		ObserveRequest(method, route string, status int, took time.Duration)
		Handler() http.Handler
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    HTTPMetrics // optional
		MediaDir   string      // served under /media when set

		UserSvc         *user.Service
		ConferenceSvc   *conference.Service
		ApplicationSvc  *application.Service
		AssignmentSvc   *assignment.Service
		NewsSvc         *news.Service
		RegistrationSvc *registration.Service
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		tokens   *tokenizer
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		tokens:     newTokenizer(deps.Conf),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.Conf.Debug && !s.Conf.TestMode

	s.app.Pre(middleware.RemoveTrailingSlash())
	if s.Metrics != nil {
		s.app.Use(metricsMiddleware(s.Metrics))
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{s.Conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.SignalShutdown)

	s.app.GET("/", s.home)
	if s.Metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
	}
	if s.MediaDir != "" {
		s.app.Static("/media", s.MediaDir)
	}

	v1 := s.app.Group("/v1")
	jwt := s.authMiddleware(true)
	optionalJWT := s.authMiddleware(false)

	registerUserAPI(v1, jwt, s)
	registerConferenceAPI(v1, jwt, optionalJWT, s)
	registerApplicationAPI(v1, jwt, s)
	registerNewsAPI(v1, jwt, s)
	registerRegistrationAPI(v1, jwt, optionalJWT, s)
}

// Start listens until the server is shut down. Listening errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks main to gracefully stop the server.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.Conf.AppName+" API!")
}
