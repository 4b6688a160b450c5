package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Vaultexe/server/internal/bootstrap"
	"github.com/Vaultexe/server/internal/cache"
	"github.com/Vaultexe/server/internal/config"
	httptransport "github.com/Vaultexe/server/internal/http"
	"github.com/Vaultexe/server/internal/http/handler"
	"github.com/Vaultexe/server/internal/http/middleware"
	"github.com/Vaultexe/server/internal/mail"
	"github.com/Vaultexe/server/internal/repository"
	"github.com/Vaultexe/server/internal/server"
	"github.com/Vaultexe/server/internal/service"
	"github.com/Vaultexe/server/internal/sync"
	"github.com/Vaultexe/server/internal/telemetry"
	"github.com/Vaultexe/server/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newRedisClient,
			newUserRepository,
			newDeviceRepository,
			newInvitationRepository,
			newClaimStore,
			newCodec,
			newMailQueue,
			newBroker,
			sync.NewNotifier,
			service.NewDeviceTracker,
			service.NewAuthService,
			newRateLimiter,
			middleware.NewAuth,
			handler.NewAuthHandler,
			handler.NewSyncHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureAdmin, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newDeviceRepository(pool *pgxpool.Pool) repository.DeviceRepository {
	return repository.NewPostgresDeviceRepo(pool)
}

func newInvitationRepository(pool *pgxpool.Pool) repository.InvitationRepository {
	return repository.NewPostgresInvitationRepo(pool)
}

func newClaimStore(client redis.UniversalClient, cfg config.Config) cache.ClaimStore {
	return cache.NewRedisClaimStore(client, cache.TTLMap{
		Refresh: cfg.RefreshTokenTTL,
		OTP:     cfg.OTPTTL,
	})
}

func newCodec(cfg config.Config) (*token.Codec, error) {
	return token.NewCodec([]byte(cfg.JWTSecret))
}

func newMailQueue(client redis.UniversalClient, node *snowflake.Node) mail.Queue {
	return mail.NewRedisQueue(client, node)
}

func newBroker(client redis.UniversalClient) sync.Broker {
	return sync.NewRedisBroker(client)
}

func newRateLimiter(cfg config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateLimitRPM)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, logger *zap.Logger) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
