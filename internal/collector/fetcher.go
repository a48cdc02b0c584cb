package collector

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/LJTian/PautaFacil/internal/config"
)

// ContentKind 响应内容的大致类型
type ContentKind string

const (
	KindFeed ContentKind = "feed"
	KindHTML ContentKind = "html"
)

// Page 一次抓取得到的原始内容
type Page struct {
	URL  string // 最终地址（跟随重定向后），用于解析相对链接
	Body []byte
	Kind ContentKind
}

// Fetcher 抽象对单个源的网络抓取，不做重试
type Fetcher interface {
	Fetch(ctx context.Context, src config.Source) (*Page, error)
	// FetchURL 抓取任意页面（详情页），insecureTLS 只应沿用所属源的配置
	FetchURL(ctx context.Context, rawURL string, insecureTLS bool) (*Page, error)
}

// detectKind 根据 Content-Type 和正文开头判断是 feed 还是 HTML
func detectKind(contentType string, body []byte) ContentKind {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") {
		return KindFeed
	}
	if strings.Contains(ct, "xml") && !strings.Contains(ct, "html") {
		return KindFeed
	}
	head := bytes.TrimSpace(body)
	if len(head) > 512 {
		head = head[:512]
	}
	for _, prefix := range [][]byte{[]byte("<?xml"), []byte("<rss"), []byte("<feed"), []byte("<rdf:RDF")} {
		if bytes.HasPrefix(head, prefix) {
			return KindFeed
		}
	}
	return KindHTML
}

var xmlEncodingAttr = regexp.MustCompile(`(?i)(\bencoding\s*=\s*)(["'])[^"']*["']`)

// declareUTF8 把 XML 声明中的 encoding 改为 UTF-8。
// colly 已按响应头把正文转成 UTF-8，声明仍是原编码时 feed 解析器会再解码一次；
// 正文不是合法 UTF-8（未被转换）时保持原样，交给解析器按声明解码
func declareUTF8(body []byte) []byte {
	if !utf8.Valid(body) {
		return body
	}
	trimmed := bytes.TrimLeft(body, "\ufeff \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return body
	}
	end := bytes.Index(trimmed, []byte("?>"))
	if end == -1 {
		return body
	}
	start := len(body) - len(trimmed)
	decl := body[start : start+end]
	fixed := xmlEncodingAttr.ReplaceAll(decl, []byte("${1}${2}UTF-8${2}"))
	if bytes.Equal(fixed, decl) {
		return body
	}
	out := make([]byte, 0, len(body)+len(fixed)-len(decl))
	out = append(out, body[:start]...)
	out = append(out, fixed...)
	return append(out, body[start+end:]...)
}
