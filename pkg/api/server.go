package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/JayJamieson/csv-warehouse/pkg/logging"
	"github.com/JayJamieson/csv-warehouse/pkg/warehouse"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	echoSwagger "github.com/swaggo/echo-swagger"
)

//go:embed api-spec.yaml
var specYAML []byte

type Config struct {
	Port            int
	ShutdownTimeout time.Duration
	// DatabasePath is connected during New when set.
	DatabasePath    string
	DownloadTimeout time.Duration
	LogLevel        string
	Warehouse       warehouse.Config
}

type Server struct {
	config Config
	router *echo.Echo
	doc    *openapi3.T

	// mu guards session. Handlers hold the read lock for the whole
	// operation so a reconnect waits for in-flight requests.
	mu      sync.RWMutex
	session *warehouse.Session
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to load api spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid api spec: %w", err)
	}
	return doc, nil
}

func New(config Config) (*Server, error) {
	doc, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpErrorHandler

	server := &Server{
		config: config,
		router: e,
		doc:    doc,
	}

	if config.DatabasePath != "" {
		if _, err := server.connect(config.DatabasePath); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := logging.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Logger.SetLevel(echoLevel(config.LogLevel))

	RegisterHandlers(e, server)
	server.setupDefaultRoutes()
	return server, nil
}

func echoLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

func (s *Server) setupDefaultRoutes() {
	s.router.GET("/doc.yml", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/yaml", specYAML)
	})
	s.router.GET("/swagger/*", echoSwagger.EchoWrapHandlerV3(func(c *echoSwagger.Config) {
		c.URLs = []string{"/doc.yml"}
	}))
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// connect opens a session on addr and swaps it in, closing the previous
// one. On failure the previous session stays active.
func (s *Server) connect(addr string) (*warehouse.Session, error) {
	session, err := warehouse.Open(addr, s.config.Warehouse)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	old := s.session
	s.session = session
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			logging.FromContext(context.Background()).Warn("failed to close previous database", "error", err)
		}
	}
	return session, nil
}

// withSession runs fn against the active session.
func (s *Server) withSession(fn func(*warehouse.Session) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return ErrNotConnected
	}
	return fn(s.session)
}

// Close closes the active session, if any.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	err := s.session.Close()
	s.session = nil
	return err
}

func (s *Server) Start() error {
	go func() {
		addr := fmt.Sprintf(":%d", s.config.Port)
		if err := s.router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.router.Logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.router.Logger.Info("Shutting down")

	if err := s.router.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
