package gateway

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/passvault/internal/authrpc"
	"github.com/dmitrijs2005/passvault/internal/gateway/config"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/netx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	handler http.Handler
	limiter *RateLimiter
	closer  io.Closer
}

// NewApp validates c and assembles the gateway handler chain.
func NewApp(c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	app := &App{config: c, logger: logger}

	var validator Validator
	switch c.AuthTransport {
	case config.TransportGRPC:
		conn, err := DialAuthService(c.AuthServiceGRPCAddr)
		if err != nil {
			return nil, fmt.Errorf("auth service client: %w", err)
		}
		app.closer = conn
		validator = NewGRPCValidator(authrpc.NewAuthServiceClient(conn))
	default:
		validator = NewHTTPValidator(c.AuthServiceURL, netx.NewHTTPClient(c.ValidateTimeout))
	}

	handler, limiter, err := NewHandler(c, validator, NewMetrics(), logger)
	if err != nil {
		if app.closer != nil {
			_ = app.closer.Close()
		}
		return nil, err
	}
	app.handler = handler
	app.limiter = limiter

	return app, nil
}

// NewHandler builds the gateway router: /healthz and /metrics are served
// locally, everything else goes through rate limiting, the delegate and
// the proxy.
func NewHandler(c *config.Config, validator Validator, metrics *Metrics, logger logging.Logger) (http.Handler, *RateLimiter, error) {
	open, err := NewPathMatcher(c.OpenEndpoints)
	if err != nil {
		return nil, nil, fmt.Errorf("open endpoints: %w", err)
	}
	proxy, err := NewProxy(c.Routes, logger.With("module", "proxy"))
	if err != nil {
		return nil, nil, err
	}

	delegate := NewDelegate(open, validator, proxy, logger.With("module", "delegate"),
		WithValidateTimeout(c.ValidateTimeout),
		WithIdentityHeaders(IdentityHeaders{UserID: c.UserIDHeader, Username: c.UsernameHeader, Roles: c.RolesHeader}),
		WithMetrics(metrics),
	)
	limiter := NewRateLimiter(c.RateLimitRPS, c.RateLimitBurst, metrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(netx.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Handle("/*", limiter.Middleware(delegate))

	return r, limiter, nil
}

func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run listens on the configured address until ctx is cancelled or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", app.config.EndpointAddr)
	if err != nil {
		return err
	}
	return app.Serve(ctx, lis)
}

func (app *App) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	if app.limiter.Enabled() {
		go app.limiter.Run(ctx)
	}

	defer func() {
		if app.closer != nil {
			_ = app.closer.Close()
		}
	}()

	app.logger.Info(ctx, "Starting gateway...", "transport", app.config.AuthTransport)
	return netx.ServeHTTP(ctx, lis, app.handler, app.logger.With("module", "http_server"))
}
