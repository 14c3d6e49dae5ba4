package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/shortlink/internal/app/service"
	inthttp "github.com/sifan077/shortlink/internal/http/handler"
	"github.com/sifan077/shortlink/internal/http/middleware"
	infraPrometheus "github.com/sifan077/shortlink/internal/infra/prometheus"
	"go.uber.org/zap"
)

const readyTimeout = 2 * time.Second

// Pinger is a storage handle that can report liveness, such as *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies bundles what the HTTP server needs. Infrastructure handles are optional
// and only consulted by the readiness probe.
type Dependencies struct {
	Logger    *zap.Logger
	Metrics   *infraPrometheus.Metrics
	BaseURL   string
	Origins   []string
	Database  Pinger
	Postgres  *pgxpool.Pool
	Redis     *redis.Client
	NATS      *nats.Conn
	Links     service.LinkService
	Analytics service.AnalyticsService
	Recorder  service.ClickRecorder
	Publisher inthttp.ClickEventPublisher
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               "shortlink",
		DisableStartupMessage: true,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the Fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Metrics(s.deps.Metrics))
	s.app.Use(middleware.CORS(s.deps.Origins...))
}

func (s *Server) registerRoutes() {
	s.app.Get("/", s.health)
	s.app.Get("/health", s.health)
	s.app.Get("/ready", s.ready)

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:    s.deps.Logger,
		Links:     s.deps.Links,
		Analytics: s.deps.Analytics,
		BaseURL:   s.deps.BaseURL,
	})
	apiHandler.Register(s.app)

	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:    s.deps.Logger,
		Links:     s.deps.Links,
		Recorder:  s.deps.Recorder,
		Publisher: s.deps.Publisher,
	})
	redirectHandler.Register(s.app)
}

// health is a liveness probe; it touches no dependency.
func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "shortlink",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ready pings every configured dependency and answers 503 if any fails.
func (s *Server) ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
	defer cancel()

	checks := fiber.Map{}
	healthy := true
	record := func(name string, err error) {
		if err != nil {
			healthy = false
			checks[name] = err.Error()
			s.deps.Logger.Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
			return
		}
		checks[name] = "ok"
	}

	if s.deps.Database != nil {
		record("database", s.deps.Database.PingContext(ctx))
	}
	if s.deps.Postgres != nil {
		record("postgres", s.deps.Postgres.Ping(ctx))
	}
	if s.deps.Redis != nil {
		record("redis", s.deps.Redis.Ping(ctx).Err())
	}
	if s.deps.NATS != nil {
		var err error
		if !s.deps.NATS.IsConnected() {
			err = nats.ErrConnectionClosed
		}
		record("nats", err)
	}

	status := fiber.StatusOK
	state := "ready"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		state = "unavailable"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": state,
		"checks": checks,
	})
}
