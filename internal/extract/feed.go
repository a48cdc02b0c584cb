package extract

import (
	"bytes"
	"strings"

	"github.com/LJTian/PautaFacil/internal/collector"
	"github.com/LJTian/PautaFacil/internal/config"
	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/LJTian/PautaFacil/internal/processor"
	"github.com/mmcdole/gofeed"
)

// extractFeed 只取第一条：信任源自身的排序，不按时间重新排序
func extractFeed(page *collector.Page, src config.Source) (*headline.RawHeadline, bool) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(page.Body))
	if err != nil || len(feed.Items) == 0 {
		return nil, false
	}
	item := feed.Items[0]

	title := processor.CleanText(item.Title)
	if title == "" {
		return nil, false
	}

	link := resolveLink(baseURL(page, src), itemLink(item))
	if link == "" {
		return nil, false
	}

	// gofeed 把 RSS description 与 Atom summary 都放在 Description
	summary := item.Description
	if strings.TrimSpace(summary) == "" {
		summary = item.Content
	}

	raw := &headline.RawHeadline{
		Title:        title,
		Link:         link,
		Summary:      processor.CleanSummary(summary),
		PublishedRaw: item.Published,
	}
	switch {
	case item.PublishedParsed != nil:
		raw.Published = item.PublishedParsed
	case item.UpdatedParsed != nil:
		raw.Published = item.UpdatedParsed
		raw.PublishedRaw = item.Updated
	}
	return raw, true
}

func itemLink(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	if len(item.Links) > 0 && item.Links[0] != "" {
		return item.Links[0]
	}
	if strings.HasPrefix(item.GUID, "http") {
		return item.GUID
	}
	return ""
}
