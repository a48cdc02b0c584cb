package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/PautaFacil/internal/api"
	"github.com/LJTian/PautaFacil/internal/collector"
	"github.com/LJTian/PautaFacil/internal/config"
	"github.com/LJTian/PautaFacil/internal/enrich"
	"github.com/LJTian/PautaFacil/internal/logger"
	"github.com/LJTian/PautaFacil/internal/scheduler"
	"github.com/LJTian/PautaFacil/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	defer func() { _ = log.Sync() }()

	// 源配置有误时直接退出，不进入刷新流程
	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Error("load sources failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewStore(cfg.RedisAddr, cfg.PostgresDSN, log)
	if err != nil {
		log.Error("init store failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	board := api.NewBoard(sources)
	fetcher := collector.NewCollyFetcher(cfg.SourceTimeout(), log.With("component", "collector"))

	enrichOpts := enrich.Options{DetailTimeout: cfg.DetailTimeout, Log: log.With("component", "enrich")}
	if cfg.FetchDetail {
		enrichOpts.Fetcher = fetcher
	}

	deps := scheduler.Deps{
		Fetcher:  fetcher,
		Enricher: enrich.New(enrichOpts),
		Cache:    store.Cache,
		Renderer: board,
		Log:      log.With("component", "orchestrator"),
	}
	var history api.HistoryReader
	if store.Archive != nil {
		deps.Archive = store.Archive
		history = store.Archive
	}
	orch := scheduler.NewOrchestrator(sources, deps, scheduler.Options{
		Strategy:      cfg.Strategy,
		SourceTimeout: cfg.SourceTimeout(),
		DetailTimeout: detailBudget(cfg),
		Progress:      board.SetProgress,
	})

	s, err := scheduler.New(cfg.CronSpec, orch, log.With("component", "scheduler"))
	if err != nil {
		log.Error("init scheduler failed", "error", err)
		os.Exit(1)
	}
	s.Start()
	defer s.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(log.With("component", "http")))
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}
	api.NewServer(board, orch, history, log.With("component", "api")).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting api server", "addr", srv.Addr, "sources", len(sources), "strategy", cfg.Strategy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server exit", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("server shutdown", "error", err)
	}
}

// detailBudget 不抓详情页时不给富化阶段预留时间
func detailBudget(cfg *config.Config) time.Duration {
	if !cfg.FetchDetail {
		return 0
	}
	return cfg.DetailTimeout
}
