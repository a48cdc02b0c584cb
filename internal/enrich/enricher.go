// Package enrich 为标题补充地点、媒体类型和本地化的发布时间
package enrich

import (
	"context"
	"time"

	"github.com/LJTian/PautaFacil/internal/collector"
	"github.com/LJTian/PautaFacil/internal/config"
	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/LJTian/PautaFacil/internal/logger"
)

const defaultDetailTimeout = 5 * time.Second

// PageFetcher 抓取详情页，通常就是 collector.Fetcher
type PageFetcher interface {
	FetchURL(ctx context.Context, rawURL string, insecureTLS bool) (*collector.Page, error)
}

type Options struct {
	Gazetteer     *Gazetteer
	// 为 nil 时不抓取详情页，只用标题和摘要识别地点
	Fetcher       PageFetcher
	DetailTimeout time.Duration
	Now           func() time.Time
	Log           logger.Interface
}

type Enricher struct {
	gaz     *Gazetteer
	fetcher PageFetcher
	timeout time.Duration
	now     func() time.Time
	log     logger.Interface
}

func New(opts Options) *Enricher {
	e := &Enricher{
		gaz:     opts.Gazetteer,
		fetcher: opts.Fetcher,
		timeout: opts.DetailTimeout,
		now:     opts.Now,
		log:     opts.Log,
	}
	if e.gaz == nil {
		e.gaz = NewGazetteer(DefaultPlaces)
	}
	if e.timeout <= 0 {
		e.timeout = defaultDetailTimeout
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = logger.NewNop()
	}
	return e
}

// Enrich 永远不会让标题本身失败：详情页抓取或解析出错时，地点/媒体字段保持空值
func (e *Enricher) Enrich(ctx context.Context, src config.Source, raw headline.RawHeadline) headline.Enrichment {
	var out headline.Enrichment

	// 先看标题+摘要，命中则不再用详情页正文覆盖（正文里常有导航菜单列出所有行政区）
	if place, ok := e.gaz.Detect(raw.Title + " " + raw.Summary); ok {
		out.Place = place
	}

	var d detail
	if e.fetcher != nil && raw.Link != "" {
		d = e.fetchDetail(ctx, src, raw.Link)
		out.HasVideo = d.hasVideo
		out.HasPhoto = d.hasPhoto
		if out.Place == "" {
			if place, ok := e.gaz.Detect(d.text); ok {
				out.Place = place
			}
		}
	}

	out.PublishedAt = formatPublished(raw.Published, e.now(), raw.PublishedRaw, raw.Summary, d.text)
	return out
}

func (e *Enricher) fetchDetail(ctx context.Context, src config.Source, link string) detail {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	page, err := e.fetcher.FetchURL(ctx, link, src.InsecureTLS)
	if err != nil {
		e.log.Debug("detail fetch degraded", "source", src.ID, "url", link, "error", err)
		return detail{}
	}
	d, ok := parseDetail(page.Body)
	if !ok {
		e.log.Debug("detail parse degraded", "source", src.ID, "url", link)
		return detail{}
	}
	return d
}
