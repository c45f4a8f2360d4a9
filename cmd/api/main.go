package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"coincoach/backend-go/internal/config"
	"coincoach/backend-go/internal/handlers"
	internalhttp "coincoach/backend-go/internal/http"
	"coincoach/backend-go/internal/services"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "coincoach",
	Short: "CoinCoach API server and maintenance commands",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load(
			".env",
			".env.local",
			"backend-go/.env",
			"backend-go/.env.local",
		)
		cfg = config.Load()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != "" {
			cfg.Port = servePort
		}
		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// redisClient connects when REDIS_URL is set. A failed connection falls
// back to in-process state.
func redisClient(cfg config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	client, err := services.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Printf("redis unavailable, using memory cache: %v", err)
		return nil
	}
	return client
}

func openQuizStore(cfg config.Config) (services.QuizStore, error) {
	if cfg.QuizDBPath == "" {
		return services.NewMemoryQuizStore(1000), nil
	}
	return services.NewSQLiteQuizStore(cfg.QuizDBPath)
}

func serve(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := redisClient(cfg)
	if client != nil {
		defer client.Close()
	}
	cache := services.NewCache(client, cfg.CacheMaxEntries)

	store, err := openQuizStore(cfg)
	if err != nil {
		return fmt.Errorf("open quiz store: %w", err)
	}
	defer store.Close()

	ai := services.NewGeminiClient(cfg)
	if !ai.Configured() {
		log.Println("GEMINI_API_KEY not set, AI routes will use fallbacks")
	}
	api := handlers.New(cfg, cache, ai, store)

	lim := internalhttp.Limiters{
		Global:   services.NewLimiter(client, "global", cfg.RateLimitPerMin, time.Minute),
		Chat:     services.NewLimiter(client, "chat", cfg.RateLimitChatMax, cfg.RateLimitWindow),
		Patterns: services.NewLimiter(client, "patterns", cfg.RateLimitPatternsMax, cfg.RateLimitWindow),
	}

	sweeper := services.NewSweeper(cfg.CacheSweepInterval)
	sweeper.Add("cache", sweepableOrNil(cache))
	sweeper.Add("ratelimit:global", sweepableOrNil(lim.Global))
	sweeper.Add("ratelimit:chat", sweepableOrNil(lim.Chat))
	sweeper.Add("ratelimit:patterns", sweepableOrNil(lim.Patterns))
	go sweeper.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           internalhttp.NewRouter(cfg, api, lim),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("coincoach backend listening on %s (cache: %s, quiz store: %s)", srv.Addr, cache.Backend(), store.Backend())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweepableOrNil keeps Redis-backed state out of the sweeper; Redis expires
// its own keys.
func sweepableOrNil(v any) services.Sweepable {
	if _, ok := v.(*services.RedisCache); ok {
		return nil
	}
	if _, ok := v.(*services.RedisLimiter); ok {
		return nil
	}
	s, _ := v.(services.Sweepable)
	return s
}
