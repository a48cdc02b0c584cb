// Package extract 从抓取到的 feed / HTML 中取出每个源的最新一条标题
package extract

import (
	"errors"
	"net/url"
	"strings"

	"github.com/LJTian/PautaFacil/internal/collector"
	"github.com/LJTian/PautaFacil/internal/config"
	"github.com/LJTian/PautaFacil/internal/headline"
)

// ErrNoHeadline 页面里没有找到合格的标题，可恢复，按抓取失败处理
var ErrNoHeadline = errors.New("no headline found")

// Extract 按源的规则类型分发；找不到合格内容时返回 false
func Extract(page *collector.Page, src config.Source) (*headline.RawHeadline, bool) {
	if page == nil || len(page.Body) == 0 {
		return nil, false
	}
	switch src.Rule.Kind {
	case config.RuleFeed:
		return extractFeed(page, src)
	case config.RuleHTML:
		return extractHTML(page, src)
	default:
		return nil, false
	}
}

// resolveLink 把相对链接补全为绝对地址，只接受 http/https
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return ""
	}
	return u.String()
}

// baseURL 优先使用跟随重定向后的地址
func baseURL(page *collector.Page, src config.Source) *url.URL {
	for _, raw := range []string{page.URL, src.URL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			return u
		}
	}
	return nil
}
