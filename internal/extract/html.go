package extract

import (
	"bytes"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LJTian/PautaFacil/internal/collector"
	"github.com/LJTian/PautaFacil/internal/config"
	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/LJTian/PautaFacil/internal/processor"
	"github.com/PuerkitoBio/goquery"
)

// extractHTML 按文档顺序找第一个可见文本足够长、且带有效链接的候选节点。
// 文本过短的多为菜单/导航链接，直接跳过。
func extractHTML(page *collector.Page, src config.Source) (*headline.RawHeadline, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, false
	}
	base := baseURL(page, src)
	minLen := src.Rule.MinTextLen()

	var found *headline.RawHeadline
	candidates(doc, &src.Rule).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := visibleText(s)
		if utf8.RuneCountInString(text) < minLen {
			return true
		}
		link := resolveLink(base, candidateHref(s))
		if link == "" {
			return true
		}
		title := processor.CleanText(text)
		if title == "" {
			return true
		}

		found = &headline.RawHeadline{
			Title: title,
			Link:  link,
		}
		container := s.Closest("article, li, .item, .noticia")
		if container.Length() == 0 {
			container = s.Parent()
		}
		found.Summary = processor.CleanSummary(containerSummary(container, text))
		found.PublishedRaw, found.Published = containerTime(container)
		return false
	})
	return found, found != nil
}

// candidates 匹配优先级：链接规则 > 带 class 的标签 > 纯标签
func candidates(doc *goquery.Document, rule *config.Rule) *goquery.Selection {
	if re := rule.LinkRegexp(); re != nil {
		return doc.Find("a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			return re.MatchString(href)
		})
	}
	if rule.Class != "" {
		classes := strings.Fields(rule.Class)
		return doc.Find(rule.Tag + "." + strings.Join(classes, "."))
	}
	return doc.Find(rule.Tag)
}

func visibleText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// candidateHref 节点本身是链接则直接用，否则取内部第一个链接，再否则取外层链接
func candidateHref(s *goquery.Selection) string {
	if goquery.NodeName(s) == "a" {
		href, _ := s.Attr("href")
		return href
	}
	if href, ok := s.Find("a[href]").First().Attr("href"); ok {
		return href
	}
	href, _ := s.Closest("a[href]").Attr("href")
	return href
}

// containerSummary 取同一条目里第一个与标题不同的段落作为摘要
func containerSummary(container *goquery.Selection, title string) string {
	var summary string
	container.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		t := visibleText(p)
		if t == "" || t == title {
			return true
		}
		summary = t
		return false
	})
	return summary
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"}

// containerTime 读取条目中的 <time datetime="...">；只有文字时原样返回给富化阶段做宽松匹配
func containerTime(container *goquery.Selection) (string, *time.Time) {
	tm := container.Find("time").First()
	if tm.Length() == 0 {
		return "", nil
	}
	if dt, ok := tm.Attr("datetime"); ok {
		dt = strings.TrimSpace(dt)
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, dt, config.Brasilia); err == nil {
				return dt, &t
			}
		}
		return dt, nil
	}
	return visibleText(tm), nil
}
