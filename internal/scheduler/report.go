package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/LJTian/PautaFacil/internal/collector"
	"github.com/LJTian/PautaFacil/internal/extract"
	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/google/uuid"
)

// Stage 单个源在一轮中的处理阶段
type Stage int32

const (
	StagePending Stage = iota
	StageFetching
	StageExtracted
	StageEnriching
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageFetching:
		return "fetching"
	case StageExtracted:
		return "extracted"
	case StageEnriching:
		return "enriching"
	case StageDone:
		return "done"
	}
	return fmt.Sprintf("stage(%d)", int32(s))
}

// ErrSourceDeadline 源在整体时限内没有完成，其迟到的结果会被丢弃
var ErrSourceDeadline = errors.New("source exceeded its deadline")

// SourceResult 一个源一轮的终态：Record 与 Err 恰有一个非空
type SourceResult struct {
	SourceID string
	Record   *headline.Record
	Err      error
	// 失败时停在的阶段；成功时为 StageDone
	Stage    Stage
	Duration time.Duration
}

func (r SourceResult) OK() bool {
	return r.Err == nil && r.Record != nil
}

// Reason 给展示层的简短失败原因
func (r SourceResult) Reason() string {
	if r.OK() {
		return ""
	}
	var fe *collector.FetchError
	switch {
	case errors.As(r.Err, &fe):
		if fe.Kind == collector.ErrHTTPStatus {
			return fmt.Sprintf("HTTP %d", fe.StatusCode)
		}
		return string(fe.Kind)
	case errors.Is(r.Err, extract.ErrNoHeadline):
		return "no headline"
	case errors.Is(r.Err, ErrSourceDeadline):
		return "timeout"
	case r.Err != nil:
		return r.Err.Error()
	}
	return "no result"
}

// CycleReport 一轮刷新的汇总，每个配置的源都有一条结果
type CycleReport struct {
	ID        uuid.UUID
	Cycle     uint64
	Hard      bool
	StartedAt time.Time
	Duration  time.Duration
	Results   map[string]SourceResult
	Completed int
	Total     int
}

// Counts 返回成功与失败的源数量
func (r *CycleReport) Counts() (ok, failed int) {
	for _, res := range r.Results {
		if res.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

// Progress 每完成一个源上报一次
type Progress struct {
	Cycle     uint64 `json:"cycle"`
	SourceID  string `json:"sourceId"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

func (p Progress) Done() bool {
	return p.Total > 0 && p.Completed >= p.Total
}
