package storage

import (
	"context"
	"strings"
	"time"

	"github.com/LJTian/PautaFacil/internal/headline"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

// HeadlineArchive 每个源见过的标题，同一源同一链接只保留一行
type HeadlineArchive struct {
	ID          uint              `gorm:"primaryKey" json:"-"`
	SourceID    string            `gorm:"size:64;uniqueIndex:idx_archive_source_link;index" json:"sourceId"`
	Link        string            `gorm:"size:1024;uniqueIndex:idx_archive_source_link" json:"link"`
	HeadlineID  string            `gorm:"size:40" json:"headlineId"`
	Title       string            `gorm:"size:512" json:"title"`
	Summary     string            `gorm:"size:600" json:"summary"`
	PublishedAt string            `gorm:"size:32" json:"publishedAt"`
	Place       string            `gorm:"size:128" json:"place"`
	Media       datatypes.JSONMap `gorm:"type:jsonb" json:"media"`
	Cycle       uint64            `json:"cycle"`
	FirstSeen   time.Time         `json:"firstSeen"`
	LastSeen    time.Time         `gorm:"index" json:"lastSeen"`
}

// Archive 只追加新鲜结果的历史记录，失败不影响刷新流程
type Archive struct {
	DB *gorm.DB
}

func OpenArchive(dsn string) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return NewArchive(db)
}

func NewArchive(db *gorm.DB) (*Archive, error) {
	if err := db.AutoMigrate(&HeadlineArchive{}); err != nil {
		return nil, err
	}
	return &Archive{DB: db}, nil
}

// Save 以 (source_id, link) 为幂等键；重复出现时只刷新内容与 last_seen
func (a *Archive) Save(ctx context.Context, rec headline.Record) error {
	row := toArchiveRow(rec)
	return a.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_id"}, {Name: "link"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "summary", "published_at", "place", "media", "cycle", "last_seen"}),
	}).Create(&row).Error
}

// Recent 按 last_seen 倒序返回某个源的历史标题
func (a *Archive) Recent(ctx context.Context, sourceID string, limit int) ([]headline.Record, error) {
	if limit <= 0 || limit > maxRecentLimit {
		limit = defaultRecentLimit
	}
	var rows []HeadlineArchive
	err := a.DB.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("last_seen DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]headline.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromArchiveRow(r))
	}
	return out, nil
}

func toArchiveRow(rec headline.Record) HeadlineArchive {
	seen := rec.FetchedAt
	if seen.IsZero() {
		seen = time.Now()
	}
	place := ""
	if rec.Place != nil {
		place = *rec.Place
	}
	return HeadlineArchive{
		SourceID:    rec.SourceID,
		Link:        truncateRunesDB(rec.Link, 1024),
		HeadlineID:  rec.ID,
		Title:       truncateRunesDB(toValidUTF8(rec.Title), 512),
		Summary:     truncateRunesDB(toValidUTF8(rec.Summary), 600),
		PublishedAt: truncateRunesDB(rec.PublishedAt, 32),
		Place:       place,
		Media:       datatypes.JSONMap{"video": rec.HasVideo, "photo": rec.HasPhoto},
		Cycle:       rec.Cycle,
		FirstSeen:   seen,
		LastSeen:    seen,
	}
}

func fromArchiveRow(r HeadlineArchive) headline.Record {
	rec := headline.Record{
		ID:          r.HeadlineID,
		SourceID:    r.SourceID,
		Title:       r.Title,
		Link:        r.Link,
		Summary:     r.Summary,
		PublishedAt: r.PublishedAt,
		HasVideo:    mediaFlag(r.Media, "video"),
		HasPhoto:    mediaFlag(r.Media, "photo"),
		FetchedAt:   r.LastSeen,
		Cycle:       r.Cycle,
		Freshness:   headline.Stale,
	}
	if r.Place != "" {
		p := r.Place
		rec.Place = &p
	}
	return rec
}

func mediaFlag(m datatypes.JSONMap, key string) bool {
	v, _ := m[key].(bool)
	return v
}

// toValidUTF8 部分站点返回的编码声明与实际内容不符，避免 PostgreSQL invalid byte sequence
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 截断，确保不超过 varchar 长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
