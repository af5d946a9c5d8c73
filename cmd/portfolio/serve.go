package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/totegamma/portfolio/client"
	"github.com/totegamma/portfolio/internal/config"
	"github.com/totegamma/portfolio/internal/infra/database"
	"github.com/totegamma/portfolio/internal/infra/repository"
	"github.com/totegamma/portfolio/internal/infra/storage"
	"github.com/totegamma/portfolio/internal/present/authapi"
	"github.com/totegamma/portfolio/internal/present/rest"
	authmw "github.com/totegamma/portfolio/internal/present/rest/middleware"
	"github.com/totegamma/portfolio/internal/service"
	"github.com/totegamma/portfolio/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portfolio API",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()
		return serve(ctx, conf)
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Run the auth service",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()
		return serveAuth(ctx, conf)
	},
}

func serve(ctx context.Context, conf config.Config) error {
	shutdownTrace := maybeTrace(ctx, conf, "portfolio-api")
	defer shutdownTrace(context.Background())

	db, err := openDatabase(conf)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	settings := conf.Domain()

	files, err := storage.NewLocal(conf.Server.StoragePath, settings.PublicBaseURL)
	if err != nil {
		return err
	}

	listCache := newListCache(conf)
	revalidator := service.NewRevalidator(settings.RevalidationURL, settings.RevalidationSecret)
	defer revalidator.Wait()

	var (
		events   rest.EventSource
		notifier = service.Notifiers{revalidator}
		limiter  service.RateLimiter
	)
	if rdb := newRedis(ctx, conf); rdb != nil {
		defer rdb.Close()
		signal := service.NewSignalService(rdb)
		events = signal
		notifier = append(notifier, signal)
		limiter = service.NewRedisRateLimiter(rdb, settings.RateLimit)
	} else {
		broker := service.NewBroker()
		events = broker
		notifier = append(notifier, broker)
		limiter = service.NewMemoryRateLimiter(settings.RateLimit)
		zap.L().Info("rate limits are per process without redis")
	}

	var verifier service.AdminVerifier
	if conf.Auth.ServiceURL != "" {
		verifier = client.New(conf.Auth.ServiceURL)
	} else {
		verifier = service.NewAuthService(repository.NewAdminRepository(db), conf.Auth.JwtSecret)
	}

	collections := buildCollections(db, conf, listCache, notifier, files)
	handler := rest.NewHandler(
		settings,
		collections.routes,
		usecase.NewContactUsecase(repository.NewContactRepository(db), notifier),
		usecase.NewUploadUsecase(repository.NewUploadRepository(db), files, notifier),
		events,
		authmw.NewAuthMiddleware(verifier),
		limiter,
		files.Root(),
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: settings.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, "If-None-Match"},
	}))
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("portfolio-api", otelecho.WithSkipper(func(c echo.Context) bool {
			return c.Path() == "/healthz" || c.Path() == "/realtime"
		})))
	}
	e.Use(requestLogger())
	handler.RegisterRoutes(e)

	return run(ctx, &http.Server{Addr: settings.ListenAddr, Handler: e}, "api")
}

func serveAuth(ctx context.Context, conf config.Config) error {
	shutdownTrace := maybeTrace(ctx, conf, "portfolio-auth")
	defer shutdownTrace(context.Background())

	if conf.Auth.JwtSecret == "" {
		return errors.New("auth.jwtSecret (or JWT_SECRET) is required to issue tokens")
	}

	db, err := openDatabase(conf)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	auth := service.NewAuthService(repository.NewAdminRepository(db), conf.Auth.JwtSecret)
	handler := authapi.NewHandler(auth, conf.Server.AllowedOrigins)

	return run(ctx, &http.Server{Addr: conf.Auth.ListenAddr, Handler: handler}, "auth")
}

// run serves until ctx is cancelled, then drains in-flight requests.
func run(ctx context.Context, srv *http.Server, name string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("listening", zap.String("server", name), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		zap.L().Info("shutting down", zap.String("server", name))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogRoutePath: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.String("route", v.RoutePath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("ip", v.RemoteIP),
			}
			if v.Error != nil {
				zap.L().Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zap.L().Info("request", fields...)
			return nil
		},
	})
}
