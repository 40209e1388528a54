package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerOTP/config"
	"github.com/sifan077/PowerOTP/internal/app/service"
	inthttp "github.com/sifan077/PowerOTP/internal/http/handler"
	"github.com/sifan077/PowerOTP/internal/http/middleware"
	infraPostgres "github.com/sifan077/PowerOTP/internal/infra/postgres"
	infraRedis "github.com/sifan077/PowerOTP/internal/infra/redis"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
// Postgres, Redis and NATS are optional and only feed readiness checks and
// rate limiting.
type Dependencies struct {
	Logger     *zap.Logger
	Config     *config.Config
	Postgres   *pgxpool.Pool
	Redis      *redis.Client
	NATS       *nats.Conn
	Links      service.LinkService
	Redemption service.RedemptionService
	Metrics    inthttp.RedemptionRecorder
	// StoreCheck pings the link store when it is not covered by Postgres or Redis.
	StoreCheck inthttp.Check
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config == nil {
		deps.Config = config.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               "powerotp",
		ReadTimeout:           deps.Config.Server.ReadTimeout,
		WriteTimeout:          deps.Config.Server.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the Fiber app for tests.
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
	s.app.Use(middleware.Logger(s.deps.Logger.Named("http")))
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.CORS(s.deps.Config.Server.CORSOrigins))
}

func (s *Server) registerRoutes() {
	health := inthttp.NewHealthHandler(s.deps.Logger, s.readinessChecks())
	health.Register(s.app)

	inthttp.NewViewHandler(s.deps.Logger).Register(s.app)

	api := s.app.Group("/api")
	if rl := s.deps.Config.RateLimit; rl.Enabled && s.deps.Redis != nil {
		api.Use(middleware.RateLimit(s.deps.Redis, middleware.RateLimitConfig{
			MaxRequests: rl.MaxRequests,
			Window:      rl.Window,
			KeyPrefix:   rl.KeyPrefix,
		}, s.deps.Logger))
	}

	share := inthttp.NewShareHandler(inthttp.ShareDeps{
		Logger:      s.deps.Logger.Named("share"),
		LinkService: s.deps.Links,
		Redemption:  s.deps.Redemption,
		Metrics:     s.deps.Metrics,
		BaseURL:     s.deps.Config.Server.BaseURL,
	})
	share.Register(api)
}

func (s *Server) readinessChecks() map[string]inthttp.Check {
	checks := map[string]inthttp.Check{}
	if pool := s.deps.Postgres; pool != nil {
		checks["postgres"] = func(ctx context.Context) error { return infraPostgres.Ping(ctx, pool) }
	}
	if rdb := s.deps.Redis; rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return infraRedis.Ping(ctx, rdb) }
	}
	if nc := s.deps.NATS; nc != nil {
		checks["nats"] = func(context.Context) error {
			if !nc.IsConnected() {
				return errors.New("nats: " + nc.Status().String())
			}
			return nil
		}
	}
	if s.deps.StoreCheck != nil {
		checks["store"] = s.deps.StoreCheck
	}
	return checks
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	errorType := "internal"
	message := "Internal Server Error"
	if code < fiber.StatusInternalServerError {
		errorType = "invalid_request"
		message = fe.Message
		if code == fiber.StatusNotFound {
			errorType = "route_not_found"
		}
	}

	return c.Status(code).JSON(inthttp.ErrorResponse{Error: message, ErrorType: errorType})
}

// ShutdownTimeout bounds graceful shutdown of the HTTP listener.
const ShutdownTimeout = 10 * time.Second
