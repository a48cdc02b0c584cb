package enrich

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/LJTian/PautaFacil/internal/config"
	"github.com/LJTian/PautaFacil/internal/headline"
)

// 页面里常见 "14:35" 或 "14h35" 两种写法
var looseTime = regexp.MustCompile(`(?:^|[^\d])([01]?\d|2[0-3])[:h]([0-5]\d)(?:[^\d]|$)`)

// formatPublished 有结构化时间时转为巴西利亚时间：当天只显示 HH:MM，否则 DD/MM HH:MM；
// 没有时在给定文本中宽松匹配时间，都失败则返回 unknown。
func formatPublished(published *time.Time, now time.Time, texts ...string) string {
	if published != nil && !published.IsZero() {
		local := published.In(config.Brasilia)
		today := now.In(config.Brasilia)
		if local.Year() == today.Year() && local.YearDay() == today.YearDay() {
			return local.Format("15:04")
		}
		return local.Format("02/01 15:04")
	}
	for _, text := range texts {
		if m := looseTime.FindStringSubmatch(text); m != nil {
			h, _ := strconv.Atoi(m[1])
			return fmt.Sprintf("%02d:%s", h, m[2])
		}
	}
	return headline.UnknownTime
}
