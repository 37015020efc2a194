package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/network/netpoll"
	"github.com/spf13/cobra"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/cache"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/config"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/handler"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/infrastructure/genai"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/infrastructure/history"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/ratelimit"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/router"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/session"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/usecase"
	"github.com/tsubouchi/vn-offshore-apiserver/pkg/logger"
)

var (
	cfgFile string
	version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "vn-offshore-apiserver",
	Short: "Assistant API server for the VN offshore development marketplace",
	Long: `vn-offshore-apiserver is a high-performance HTTP API server built with the
Hertz framework. It serves the marketplace's assistant endpoints: the general
chat API and the concierge widget, with per-client rate limiting, response
caching and session management.`,
	Version: version,
	Run:     runServer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "configs/config.yaml", "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runServer(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Setup(cfg.Log); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	slog.Info("assistant API server starting...",
		"version", version,
		"config", cfgFile,
	)

	// Route Hertz's own logging through slog
	hertzLogger := logger.NewHertzSlogAdapter(slog.Default())
	hlog.SetLogger(hertzLogger)
	hlog.SetLevel(hlog.LevelInfo)

	// Shared pipeline state
	limiter := ratelimit.NewLimiter(cfg.Assistant.RateLimitCeiling, cfg.Assistant.RateLimitWindow)
	respCache := cache.New(cfg.Assistant.CacheTTL, cfg.Assistant.CacheCapacity)
	sessions := session.NewStore(cfg.Assistant.SessionTTL)

	// Expiry is checked on access; the sweeper only reclaims memory for
	// keys that stopped seeing traffic.
	sweeperDone := make(chan struct{})
	go runSweeper(limiter, respCache, sweeperDone)
	defer close(sweeperDone)

	// Durable conversation log (fire-and-forget from the request path)
	var historyRepo domain.HistoryRepository
	var historyPinger handler.Pinger
	if cfg.History.Enabled {
		redisRepo := history.NewRedisRepository(cfg.History, slog.Default())
		defer func() {
			if err := redisRepo.Close(); err != nil {
				slog.Error("failed to close history repository", "error", err)
			}
		}()
		historyRepo = redisRepo
		historyPinger = redisRepo
		slog.Info("history persistence enabled", "addr", cfg.History.Addr)
	} else {
		historyRepo = history.NewNoopRepository()
		slog.Info("history persistence disabled")
	}

	// Generation client
	generator := genai.NewClient(cfg.Generation, slog.Default())

	// Usecases and handlers
	chatUsecase := usecase.NewChatUsecase(
		generator,
		respCache,
		historyRepo,
		cfg.Assistant.ChatTimeout,
		slog.Default(),
	)
	chatHandler := handler.NewChatHandler(chatUsecase, limiter, slog.Default())

	conciergeUsecase := usecase.NewConciergeUsecase(
		sessions,
		generator,
		historyRepo,
		cfg.Assistant.ConciergeTimeout,
		slog.Default(),
	)
	chatbotHandler := handler.NewChatbotHandler(
		conciergeUsecase,
		cfg.Assistant.SessionTTL,
		cfg.Server.Mode == "release",
		slog.Default(),
	)

	healthHandler := handler.NewHealthHandler(historyPinger)

	slog.Info("handlers initialized",
		"rate_limit_ceiling", cfg.Assistant.RateLimitCeiling,
		"cache_capacity", cfg.Assistant.CacheCapacity,
		"session_ttl", cfg.Assistant.SessionTTL.String(),
	)

	// Create Hertz server with performance optimization
	h := server.Default(
		server.WithHostPorts(cfg.GetServerAddr()),
		server.WithReadTimeout(cfg.GetReadTimeout()),
		server.WithWriteTimeout(cfg.GetWriteTimeout()),
		server.WithMaxRequestBodySize(cfg.Server.MaxRequestBodySize*1024*1024),
		server.WithTransport(netpoll.NewTransporter),
	)

	// Setup routes
	router.Setup(h, chatHandler, chatbotHandler, healthHandler)

	slog.Info("server started successfully",
		"address", cfg.GetServerAddr(),
		"mode", cfg.Server.Mode,
	)

	// Graceful shutdown
	go func() {
		if err := h.Run(); err != nil {
			slog.Error("server run failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := h.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// runSweeper periodically drops expired rate-limit windows and cache
// entries until done is closed.
func runSweeper(limiter *ratelimit.Limiter, respCache *cache.ResponseCache, done <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			windows := limiter.Sweep()
			entries := respCache.Sweep()
			if windows > 0 || entries > 0 {
				slog.Debug("swept expired state",
					"rate_limit_windows", windows,
					"cache_entries", entries,
				)
			}
		case <-done:
			return
		}
	}
}
