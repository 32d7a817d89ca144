package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/workout-api/internal/api"
	"github.com/Sternrassler/workout-api/internal/config"
	"github.com/Sternrassler/workout-api/internal/retry"
	"github.com/Sternrassler/workout-api/pkg/cache"
	"github.com/Sternrassler/workout-api/pkg/logging"
	"github.com/Sternrassler/workout-api/pkg/workout"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// janitorInterval is how often the memory store forgets expired tags.
const janitorInterval = time.Minute

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Setup(cfg.Logging())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, nil); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// run wires the dependencies and serves until ctx ends. When ln is nil it
// listens on cfg.Port.
func run(ctx context.Context, cfg config.Config, ln net.Listener) error {
	logger := logging.NewLogger(logging.ComponentAPI)

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	c := cache.New(store, cache.Config{SingleFlight: cfg.CacheSingleFlight}, logging.NewLogger(logging.ComponentCache))
	svc := workout.NewService(repo, c, logging.NewLogger(logging.ComponentWorkout))

	if ln == nil {
		ln, err = net.Listen("tcp", ":"+cfg.Port)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	server := &http.Server{
		Handler:           api.New(svc, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", ln.Addr().String()).
			Str("cache_backend", cfg.CacheBackend).
			Str("store_backend", cfg.StoreBackend).
			Dur("cache_ttl", cfg.CacheTTL).
			Msg("Starting workout API")
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newStore creates the configured cache store. The memory store gets a
// janitor that stops with ctx.
func newStore(ctx context.Context, cfg config.Config) (cache.Store, func(), error) {
	logger := logging.NewLogger(logging.ComponentCache)

	switch cfg.CacheBackend {
	case config.BackendRedis:
		opts, err := cfg.RedisOptions()
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(opts)
		err = retry.Do(ctx, retry.DefaultConfig(), "redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Connected to Redis")
		return cache.NewRedisStore(client, cfg.CacheTTL), func() { client.Close() }, nil

	default:
		store, err := cache.NewMemoryStore(cfg.MemoryCache())
		if err != nil {
			return nil, nil, err
		}
		janitorCtx, cancel := context.WithCancel(ctx)
		go cache.NewJanitor(store, janitorInterval, logger).Start(janitorCtx)
		return store, cancel, nil
	}
}

// newRepository creates the configured repository.
func newRepository(ctx context.Context, cfg config.Config) (workout.Repository, func(), error) {
	if cfg.StoreBackend != config.BackendMongo {
		return workout.NewMemoryRepository(), func() {}, nil
	}

	logger := logging.NewLogger(logging.ComponentMongo)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}
	disconnect := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}

	err = retry.Do(ctx, retry.DefaultConfig(), "mongo", func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
	if err != nil {
		disconnect()
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}

	repo := workout.NewMongoRepository(client.Database(cfg.MongoDatabase))
	if err := repo.EnsureIndexes(ctx); err != nil {
		disconnect()
		return nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info().Str("database", cfg.MongoDatabase).Msg("Connected to MongoDB")
	return repo, disconnect, nil
}
