// Package headline 定义抓取流水线中各阶段共享的数据结构
package headline

import "time"

// UnknownTime 无法确定发布时间时展示的标签
const UnknownTime = "unknown"

// RawHeadline 内容提取阶段的输出，文本已清洗但尚未做地点/媒体识别
type RawHeadline struct {
	Title        string
	Link         string
	Summary      string
	PublishedRaw string
	Published    *time.Time
}

// Enrichment 富化阶段的输出
type Enrichment struct {
	Place       string // 空字符串表示未识别
	HasVideo    bool
	HasPhoto    bool
	PublishedAt string
}

// Freshness 标记一条记录来自本轮抓取还是之前的缓存
type Freshness string

const (
	Fresh Freshness = "fresh"
	Stale Freshness = "stale"
)

// Record 每个源每轮的最新标题
type Record struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"sourceId"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt string    `json:"publishedAt"`
	Place       *string   `json:"place"`
	HasVideo    bool      `json:"hasVideo"`
	HasPhoto    bool      `json:"hasPhoto"`
	FetchedAt   time.Time `json:"fetchedAt"`
	Cycle       uint64    `json:"cycle"`
	Freshness   Freshness `json:"freshness"`
}

// WithFreshness 返回带指定新鲜度标记的副本
func (r Record) WithFreshness(f Freshness) Record {
	r.Freshness = f
	return r
}

// State 展示层看到的卡片状态
type State string

const (
	StateFresh       State = "fresh"
	StateStale       State = "stale"
	StateUnavailable State = "unavailable"
)

// Outcome 交给展示层的结果；Unavailable 时 Record 为 nil
type Outcome struct {
	State  State   `json:"state"`
	Record *Record `json:"record,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

func FreshOutcome(r Record) Outcome {
	r.Freshness = Fresh
	return Outcome{State: StateFresh, Record: &r}
}

func StaleOutcome(r Record, reason string) Outcome {
	r.Freshness = Stale
	return Outcome{State: StateStale, Record: &r, Reason: reason}
}

func UnavailableOutcome(reason string) Outcome {
	return Outcome{State: StateUnavailable, Reason: reason}
}

// Card 一个源在一轮刷新后的完整展示数据
type Card struct {
	SourceID string  `json:"sourceId"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	Icon     string  `json:"icon"`
	Section  string  `json:"section"`
	Cycle    uint64  `json:"cycle"`
	Outcome  Outcome `json:"outcome"`
}
