package enrich

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// 图片数量严格大于该值才认为是图集报道
const photoThreshold = 2

var videoHosts = []string{"youtube.com", "youtu.be", "vimeo.com", "globoplay", "dailymotion.com", "player.vimeo"}

// detail 详情页解析结果
type detail struct {
	text     string
	hasVideo bool
	hasPhoto bool
}

// parseDetail 识别详情页中的视频/图片。只是启发式判断，误判不算错误。
func parseDetail(body []byte) (detail, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return detail{}, false
	}
	doc.Find("script, style, noscript").Remove()

	content := doc.Find("article").First()
	if content.Length() == 0 {
		content = doc.Find("main").First()
	}
	if content.Length() == 0 {
		content = doc.Find("body")
	}

	d := detail{
		text:     strings.Join(strings.Fields(content.Text()), " "),
		hasPhoto: content.Find("img").Length() > photoThreshold,
	}

	if content.Find("iframe, video").Length() > 0 {
		d.hasVideo = true
	} else {
		lower := strings.ToLower(string(body))
		for _, host := range videoHosts {
			if strings.Contains(lower, host) {
				d.hasVideo = true
				break
			}
		}
	}
	return d, true
}
