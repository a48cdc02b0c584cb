package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/kennygrant/sanitize"
	"golang.org/x/text/unicode/norm"
)

// SummaryLimit 摘要最多保留的字符数（按 rune）
const SummaryLimit = 180

const ellipsis = "..."

// sanitize.HTML 遇到标签时会删掉换行，先统一换成空格
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// CleanText 去掉 HTML 标签并转义残留的特殊字符，统一为 NFC 并压缩空白。
// 返回值可以直接嵌入页面，不会再包含任何 <...> 片段。
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = sanitize.HTML(lineBreaks.Replace(s))
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// CleanSummary 清洗后按 SummaryLimit 截断，只有真正截断时才追加省略号
func CleanSummary(s string) string {
	return truncateRunes(CleanText(s), SummaryLimit)
}

// truncateRunes 按 rune 截断并追加省略号，不会把 &amp; 这类实体截成半个
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	cut := string(rs[:limit])
	if amp := strings.LastIndexByte(cut, '&'); amp != -1 && !strings.Contains(cut[amp:], ";") {
		cut = cut[:amp]
	}
	return strings.TrimRight(cut, " ") + ellipsis
}

// Process 把提取结果与富化结果组装成最终记录
func Process(sourceID string, raw headline.RawHeadline, enr headline.Enrichment, fetchedAt time.Time, cycle uint64) headline.Record {
	rec := headline.Record{
		ID:          hashURL(raw.Link),
		SourceID:    sourceID,
		Title:       strings.TrimSpace(raw.Title),
		Link:        raw.Link,
		Summary:     raw.Summary,
		PublishedAt: enr.PublishedAt,
		HasVideo:    enr.HasVideo,
		HasPhoto:    enr.HasPhoto,
		FetchedAt:   fetchedAt,
		Cycle:       cycle,
		Freshness:   headline.Fresh,
	}
	if rec.PublishedAt == "" {
		rec.PublishedAt = headline.UnknownTime
	}
	if enr.Place != "" {
		place := enr.Place
		rec.Place = &place
	}
	return rec
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
