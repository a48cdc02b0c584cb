package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/LJTian/PautaFacil/internal/collector"
	"github.com/LJTian/PautaFacil/internal/config"
	"github.com/LJTian/PautaFacil/internal/enrich"
	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/LJTian/PautaFacil/internal/logger"
	"github.com/LJTian/PautaFacil/internal/scheduler"
	"github.com/LJTian/PautaFacil/internal/storage"
)

// 一个仅执行一轮刷新的命令行入口：适合手动触发或排查某个源
func main() {
	hard := flag.Bool("hard", false, "clear the result cache before refreshing")
	only := flag.String("source", "", "comma separated source ids to refresh (default: all)")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	defer func() { _ = log.Sync() }()

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Error("load sources failed", "error", err)
		os.Exit(1)
	}
	sources = filterSources(sources, *only)

	store, err := storage.NewStore(cfg.RedisAddr, cfg.PostgresDSN, log)
	if err != nil {
		log.Error("init store failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	fetcher := collector.NewCollyFetcher(cfg.SourceTimeout(), log)
	enrichOpts := enrich.Options{DetailTimeout: cfg.DetailTimeout, Log: log}
	detailTimeout := cfg.DetailTimeout
	if cfg.FetchDetail {
		enrichOpts.Fetcher = fetcher
	} else {
		detailTimeout = 0
	}

	printer := &cardPrinter{}
	deps := scheduler.Deps{
		Fetcher:  fetcher,
		Enricher: enrich.New(enrichOpts),
		Cache:    store.Cache,
		Renderer: printer,
		Log:      log,
	}
	if store.Archive != nil {
		deps.Archive = store.Archive
	}
	orch := scheduler.NewOrchestrator(sources, deps, scheduler.Options{
		Strategy:      cfg.Strategy,
		SourceTimeout: cfg.SourceTimeout(),
		DetailTimeout: detailTimeout,
		Progress: func(p scheduler.Progress) {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", p.Completed, p.Total, p.SourceID)
		},
	})

	run := orch.Refresh
	if *hard {
		run = orch.HardRefresh
	}
	report, err := run(context.Background())
	if err != nil {
		log.Error("refresh failed", "error", err)
		os.Exit(1)
	}
	ok, failed := report.Counts()
	fmt.Printf("cycle %d (%s): %d ok, %d failed in %s\n", report.Cycle, report.ID, ok, failed, report.Duration)
}

func filterSources(sources []config.Source, only string) []config.Source {
	if strings.TrimSpace(only) == "" {
		return sources
	}
	want := make(map[string]bool)
	for _, id := range strings.Split(only, ",") {
		want[strings.TrimSpace(id)] = true
	}
	var out []config.Source
	for _, src := range sources {
		if want[src.ID] {
			out = append(out, src)
		}
	}
	return out
}

// cardPrinter 把每张卡片打印到标准输出
type cardPrinter struct{}

func (cardPrinter) Render(card headline.Card) {
	switch card.Outcome.State {
	case headline.StateFresh, headline.StateStale:
		r := card.Outcome.Record
		place := "-"
		if r.Place != nil {
			place = *r.Place
		}
		mark := ""
		if card.Outcome.State == headline.StateStale {
			mark = " (da memória: " + card.Outcome.Reason + ")"
		}
		fmt.Printf("%-10s %s | %s | %s%s\n  %s\n", card.SourceID, r.PublishedAt, place, r.Title, mark, r.Link)
	default:
		fmt.Printf("%-10s sem conexão ou bloqueado (%s)\n", card.SourceID, card.Outcome.Reason)
	}
}
