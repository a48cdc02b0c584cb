package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LJTian/PautaFacil/internal/collector"
	"github.com/LJTian/PautaFacil/internal/config"
	"github.com/LJTian/PautaFacil/internal/enrich"
	"github.com/LJTian/PautaFacil/internal/extract"
	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/LJTian/PautaFacil/internal/logger"
	"github.com/LJTian/PautaFacil/internal/processor"
	"github.com/LJTian/PautaFacil/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrCycleInFlight = errors.New("refresh cycle already in flight")
	ErrNoSources     = errors.New("no sources configured")
)

const (
	defaultSourceTimeout = 6 * time.Second
	// 抓取与详情页时限之外留给解析和富化的余量
	deadlineGrace = 250 * time.Millisecond
	cacheTimeout  = 3 * time.Second
)

// SourceFetcher 抓取源首页
type SourceFetcher interface {
	Fetch(ctx context.Context, src config.Source) (*collector.Page, error)
}

type Enricher interface {
	Enrich(ctx context.Context, src config.Source, raw headline.RawHeadline) headline.Enrichment
}

// Renderer 展示层，每轮每个源恰好调用一次
type Renderer interface {
	Render(card headline.Card)
}

// Archiver 可选的历史归档
type Archiver interface {
	Save(ctx context.Context, rec headline.Record) error
}

type Deps struct {
	Fetcher  SourceFetcher
	Enricher Enricher
	Cache    storage.Cache
	Renderer Renderer
	Archive  Archiver
	Log      logger.Interface
}

type Options struct {
	Strategy      string
	SourceTimeout time.Duration
	// 详情页富化的时限，计入单个源的整体时限
	DetailTimeout time.Duration
	Progress      func(Progress)
	Now           func() time.Time
}

// Orchestrator 驱动一轮刷新：抓取、提取、富化、写缓存、失败时回退到缓存
type Orchestrator struct {
	sources  []config.Source
	fetcher  SourceFetcher
	enricher Enricher
	cache    storage.Cache
	renderer Renderer
	archive  Archiver
	log      logger.Interface
	opts     Options

	mu    sync.Mutex
	cycle atomic.Uint64
}

func NewOrchestrator(sources []config.Source, deps Deps, opts Options) *Orchestrator {
	o := &Orchestrator{
		sources:  sources,
		fetcher:  deps.Fetcher,
		enricher: deps.Enricher,
		cache:    deps.Cache,
		renderer: deps.Renderer,
		archive:  deps.Archive,
		log:      deps.Log,
		opts:     opts,
	}
	if o.enricher == nil {
		o.enricher = enrich.New(enrich.Options{})
	}
	if o.cache == nil {
		o.cache = storage.NewMemoryStore()
	}
	if o.renderer == nil {
		o.renderer = discardRenderer{}
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	if o.opts.Strategy != config.StrategySequential {
		o.opts.Strategy = config.StrategyFanOut
	}
	if o.opts.SourceTimeout <= 0 {
		o.opts.SourceTimeout = defaultSourceTimeout
	}
	if o.opts.Now == nil {
		o.opts.Now = time.Now
	}
	return o
}

func (o *Orchestrator) Sources() []config.Source {
	return o.sources
}

// Refresh 常规刷新，保留缓存作为兜底
func (o *Orchestrator) Refresh(ctx context.Context) (*CycleReport, error) {
	return o.run(ctx, o.sources, false)
}

// HardRefresh 先清空缓存再刷新，失败的源会直接显示为不可用
func (o *Orchestrator) HardRefresh(ctx context.Context) (*CycleReport, error) {
	return o.run(ctx, o.sources, true)
}

// RunCycle 对给定的源跑一轮。单个源的失败只体现在报告里，不会作为错误返回。
func (o *Orchestrator) RunCycle(ctx context.Context, sources []config.Source) (*CycleReport, error) {
	return o.run(ctx, sources, false)
}

// Running 当前是否有刷新在进行
func (o *Orchestrator) Running() bool {
	if o.mu.TryLock() {
		o.mu.Unlock()
		return false
	}
	return true
}

func (o *Orchestrator) run(ctx context.Context, sources []config.Source, hard bool) (*CycleReport, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if o.fetcher == nil {
		return nil, errors.New("orchestrator has no fetcher")
	}
	// 同一时刻只允许一轮，新的请求直接拒绝而不是排队
	if !o.mu.TryLock() {
		return nil, ErrCycleInFlight
	}
	defer o.mu.Unlock()

	cycle := o.cycle.Add(1)
	started := o.opts.Now()
	report := &CycleReport{
		ID:        uuid.New(),
		Cycle:     cycle,
		Hard:      hard,
		StartedAt: started,
		Results:   make(map[string]SourceResult, len(sources)),
		Total:     len(sources),
	}
	log := o.log.With("cycle", cycle, "cycle_id", report.ID.String())
	log.Info("refresh cycle started", "sources", len(sources), "strategy", o.opts.Strategy, "hard", hard)

	if hard {
		cctx, cancel := o.cacheContext(ctx)
		if err := o.cache.Clear(cctx); err != nil {
			log.Warn("clear cache failed", "error", err)
		}
		cancel()
	}

	results := make([]SourceResult, len(sources))
	tracker := newProgressTracker(cycle, len(sources), o.opts.Progress)
	if o.opts.Strategy == config.StrategySequential {
		for i, src := range sources {
			results[i] = o.runIsolated(ctx, src, cycle)
			tracker.done(src.ID)
		}
	} else {
		var wg sync.WaitGroup
		for i, src := range sources {
			wg.Add(1)
			go func(i int, src config.Source) {
				defer wg.Done()
				results[i] = o.runIsolated(ctx, src, cycle)
				tracker.done(src.ID)
			}(i, src)
		}
		wg.Wait()
	}
	report.Completed = tracker.completed()

	// 展示顺序以配置为准，与完成先后无关
	for i, src := range sources {
		res := results[i]
		report.Results[src.ID] = res
		o.renderer.Render(o.resolve(ctx, log, src, res, cycle))
	}

	report.Duration = time.Since(started)
	ok, failed := report.Counts()
	log.Info("refresh cycle done", "ok", ok, "failed", failed, "duration", report.Duration.String())
	return report, nil
}

func (o *Orchestrator) budget() time.Duration {
	b := o.opts.SourceTimeout + deadlineGrace
	if o.opts.DetailTimeout > 0 {
		b += o.opts.DetailTimeout
	}
	return b
}

// runIsolated 给单个源套上整体时限；超时后不再等待流水线，迟到的结果直接丢弃
func (o *Orchestrator) runIsolated(ctx context.Context, src config.Source, cycle uint64) SourceResult {
	ctx, cancel := context.WithTimeout(ctx, o.budget())
	defer cancel()

	start := time.Now()
	var stage atomic.Int32
	done := make(chan SourceResult, 1)
	go func() {
		done <- o.pipeline(ctx, src, cycle, &stage)
	}()

	select {
	case res := <-done:
		res.Duration = time.Since(start)
		return res
	case <-ctx.Done():
		err := ErrSourceDeadline
		if errors.Is(ctx.Err(), context.Canceled) {
			err = context.Canceled
		}
		return SourceResult{
			SourceID: src.ID,
			Err:      err,
			Stage:    Stage(stage.Load()),
			Duration: time.Since(start),
		}
	}
}

// pipeline Pending → Fetching → Extracted → Enriching → Done，失败时停在当前阶段，本轮不重试
func (o *Orchestrator) pipeline(ctx context.Context, src config.Source, cycle uint64, stage *atomic.Int32) SourceResult {
	fail := func(err error) SourceResult {
		return SourceResult{SourceID: src.ID, Err: err, Stage: Stage(stage.Load())}
	}

	stage.Store(int32(StageFetching))
	fetchCtx, cancel := context.WithTimeout(ctx, o.opts.SourceTimeout)
	page, err := o.fetcher.Fetch(fetchCtx, src)
	cancel()
	if err != nil {
		return fail(err)
	}

	raw, ok := extract.Extract(page, src)
	if !ok {
		return fail(extract.ErrNoHeadline)
	}
	stage.Store(int32(StageExtracted))

	stage.Store(int32(StageEnriching))
	enr := o.enricher.Enrich(ctx, src, *raw)
	rec := processor.Process(src.ID, *raw, enr, o.opts.Now(), cycle)

	stage.Store(int32(StageDone))
	return SourceResult{SourceID: src.ID, Record: &rec, Stage: StageDone}
}

// resolve 把单个源的终态变成交给展示层的卡片：成功写缓存，失败查缓存
func (o *Orchestrator) resolve(ctx context.Context, log logger.Interface, src config.Source, res SourceResult, cycle uint64) headline.Card {
	card := headline.Card{
		SourceID: src.ID,
		Name:     src.Name,
		Color:    src.Color,
		Icon:     src.Icon,
		Section:  src.Section,
		Cycle:    cycle,
	}

	cctx, cancel := o.cacheContext(ctx)
	defer cancel()

	if res.OK() {
		rec := *res.Record
		if _, err := o.cache.Put(cctx, src.ID, rec, cycle); err != nil {
			log.Warn("cache put failed", "source", src.ID, "error", err)
		}
		if o.archive != nil {
			if err := o.archive.Save(cctx, rec); err != nil {
				log.Warn("archive save failed", "source", src.ID, "error", err)
			}
		}
		card.Outcome = headline.FreshOutcome(rec)
		log.Debug("source fresh", "source", src.ID, "title", rec.Title, "duration", res.Duration.String())
		return card
	}

	reason := res.Reason()
	entry, ok, err := o.cache.Get(cctx, src.ID)
	if err != nil {
		log.Warn("cache get failed", "source", src.ID, "error", err)
	}
	if ok {
		card.Outcome = headline.StaleOutcome(entry.Record, reason)
		log.Warn("source failed, serving cached headline", "source", src.ID, "stage", res.Stage.String(), "error", res.Err, "cached_cycle", entry.Cycle)
	} else {
		card.Outcome = headline.UnavailableOutcome(reason)
		log.Warn("source unavailable", "source", src.ID, "stage", res.Stage.String(), "error", res.Err)
	}
	return card
}

// cacheContext 缓存读写不受本轮取消影响，但仍有自己的时限
func (o *Orchestrator) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
}

type progressTracker struct {
	mu     sync.Mutex
	cycle  uint64
	total  int
	n      int
	report func(Progress)
}

func newProgressTracker(cycle uint64, total int, report func(Progress)) *progressTracker {
	return &progressTracker{cycle: cycle, total: total, report: report}
}

func (t *progressTracker) done(sourceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	if t.report != nil {
		t.report(Progress{Cycle: t.cycle, SourceID: sourceID, Completed: t.n, Total: t.total})
	}
}

func (t *progressTracker) completed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

type discardRenderer struct{}

func (discardRenderer) Render(headline.Card) {}
