package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/config"
	"github.com/totegamma/portfolio/internal/infra/cache"
	"github.com/totegamma/portfolio/internal/infra/database"
	"github.com/totegamma/portfolio/internal/infra/database/models"
	"github.com/totegamma/portfolio/internal/infra/repository"
	"github.com/totegamma/portfolio/internal/present/rest"
	"github.com/totegamma/portfolio/internal/usecase"
)

func openDatabase(conf config.Config) (*gorm.DB, error) {
	db, err := database.Open(conf.Server.Driver, conf.Server.Dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// collections bundles every ordered usecase with its HTTP routes.
type collections struct {
	routes    []rest.OrderedRoutes
	normalize map[string]func(ctx context.Context) (int, error)
}

func (c *collections) add(routes rest.OrderedRoutes, normalize func(ctx context.Context) (int, error)) {
	c.routes = append(c.routes, routes)
	c.normalize[routes.Resource()] = normalize
}

// withIsolation applies serializable transactions where the driver honours them.
func withIsolation[T any, PT repository.Row[T]](repo *repository.OrderedRepository[T, PT], conf config.Config) *repository.OrderedRepository[T, PT] {
	if conf.Domain().Serializable && conf.Server.Driver == database.DriverPostgres {
		return repo.WithIsolation(sql.LevelSerializable)
	}
	return repo
}

func buildCollections(db *gorm.DB, conf config.Config, listCache usecase.ListCache, notifier usecase.Notifier, storage usecase.ObjectStorage) *collections {
	c := &collections{normalize: map[string]func(ctx context.Context) (int, error){}}

	skills := usecase.NewOrderedUsecase[models.Skill](withIsolation(repository.NewSkillRepository(db), conf), listCache, notifier, storage)
	c.add(rest.Ordered(skills), skills.Normalize)

	projects := usecase.NewOrderedUsecase[models.Project](withIsolation(repository.NewProjectRepository(db), conf), listCache, notifier, storage)
	c.add(rest.Ordered(projects), projects.Normalize)

	experiences := usecase.NewOrderedUsecase[models.Experience](withIsolation(repository.NewExperienceRepository(db), conf), listCache, notifier, storage)
	c.add(rest.Ordered(experiences), experiences.Normalize)

	education := usecase.NewOrderedUsecase[models.Education](withIsolation(repository.NewEducationRepository(db), conf), listCache, notifier, storage)
	c.add(rest.Ordered(education), education.Normalize)

	hobbies := usecase.NewOrderedUsecase[models.Hobby](withIsolation(repository.NewHobbyRepository(db), conf), listCache, notifier, storage)
	c.add(rest.Ordered(hobbies), hobbies.Normalize)

	testimonials := usecase.NewOrderedUsecase[models.Testimonial](withIsolation(repository.NewTestimonialRepository(db), conf), listCache, notifier, storage)
	c.add(rest.Ordered(testimonials), testimonials.Normalize)

	return c
}

func newListCache(conf config.Config) usecase.ListCache {
	if conf.Server.MemcachedAddr != "" {
		mc, err := database.NewMemcached(conf.Server.MemcachedAddr)
		if err == nil {
			zap.L().Info("using memcached list cache", zap.String("addr", conf.Server.MemcachedAddr))
			return cache.NewMemcached(mc, cache.DefaultTTL)
		}
		zap.L().Warn("memcached unavailable, falling back to in-process cache", zap.Error(err))
	}
	return cache.NewMemory(cache.DefaultTTL)
}

func newRedis(ctx context.Context, conf config.Config) *redis.Client {
	if conf.Server.RedisAddr == "" {
		return nil
	}
	rdb, err := database.NewRedis(ctx, conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
	if err != nil {
		zap.L().Warn("redis unavailable, events and rate limits stay in process", zap.Error(err))
		return nil
	}
	return rdb
}

func setupTraceProvider(ctx context.Context, endpoint, serviceName string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", portfolio.Version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func maybeTrace(ctx context.Context, conf config.Config, serviceName string) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !conf.Server.EnableTrace {
		return noop
	}
	shutdown, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint, serviceName)
	if err != nil {
		zap.L().Warn("failed to set up tracing", zap.Error(err))
		return noop
	}
	return shutdown
}
