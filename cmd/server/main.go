package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"videohub/internal/auth"
	"videohub/internal/config"
	"videohub/internal/db"
	clog "videohub/internal/log"
	"videohub/internal/media"
	"videohub/internal/mw"
	"videohub/internal/otel"
	"videohub/internal/server"
	"videohub/internal/service"
)

func main() {
	// main 函数负责加载配置、初始化日志与追踪、连接数据库并启动 Gin 服务。
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("parse config")
	}
	clog.Init(cfg.Env, cfg.LogLevel)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	shutdownTracing, err := otel.Init(ctx, "videohub", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracing")
	}

	gdb, err := db.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close(gdb)
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	var uploader service.Uploader = media.Unavailable{}
	if cfg.Media.Endpoint != "" {
		st, err := media.New(ctx, cfg.Media)
		if err != nil {
			log.Fatal().Err(err).Msg("init media storage")
		}
		uploader = st
	} else {
		log.Warn().Msg("MEDIA_ENDPOINT not set, uploads are disabled")
	}

	var limiter mw.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		limiter = mw.NewRedisRateLimiter(rdb, cfg.RateLimitRPS, cfg.RateLimitBurst)
	} else {
		local := mw.NewLocalLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 2*time.Minute)
		local.Start()
		defer local.Stop()
		limiter = local
	}

	tokens := auth.NewTokenManager(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	r := server.SetupRouter(cfg, server.NewServices(gdb, tokens, uploader), limiter)

	var handler http.Handler = r
	if cfg.OTLPEndpoint != "" {
		handler = otelhttp.NewHandler(r, "videohub")
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
}
