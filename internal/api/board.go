package api

import (
	"sync"
	"time"

	"github.com/LJTian/PautaFacil/internal/config"
	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/LJTian/PautaFacil/internal/scheduler"
)

// ReasonPending 还没有跑过任何一轮时卡片上的原因
const ReasonPending = "pending"

// Board 保存每个源最近一次渲染的卡片，实现 scheduler.Renderer
type Board struct {
	mu        sync.RWMutex
	sources   []config.Source
	cards     map[string]headline.Card
	progress  scheduler.Progress
	updatedAt time.Time
	now       func() time.Time
}

func NewBoard(sources []config.Source) *Board {
	return &Board{
		sources: sources,
		cards:   make(map[string]headline.Card, len(sources)),
		now:     time.Now,
	}
}

func (b *Board) Render(card headline.Card) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// 同一个源只接受不更旧的轮次
	if old, ok := b.cards[card.SourceID]; ok && old.Cycle > card.Cycle {
		return
	}
	b.cards[card.SourceID] = card
	b.updatedAt = b.now()
}

func (b *Board) SetProgress(p scheduler.Progress) {
	b.mu.Lock()
	b.progress = p
	b.mu.Unlock()
}

func (b *Board) Progress() scheduler.Progress {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.progress
}

func (b *Board) UpdatedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updatedAt
}

// Cards 按配置顺序返回，尚未渲染过的源给出占位卡片，页面上不会出现空位
func (b *Board) Cards() []headline.Card {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]headline.Card, 0, len(b.sources))
	for _, src := range b.sources {
		if c, ok := b.cards[src.ID]; ok {
			out = append(out, c)
			continue
		}
		out = append(out, headline.Card{
			SourceID: src.ID,
			Name:     src.Name,
			Color:    src.Color,
			Icon:     src.Icon,
			Section:  src.Section,
			Outcome:  headline.UnavailableOutcome(ReasonPending),
		})
	}
	return out
}

func (b *Board) Source(id string) (config.Source, bool) {
	for _, src := range b.sources {
		if src.ID == id {
			return src, true
		}
	}
	return config.Source{}, false
}
