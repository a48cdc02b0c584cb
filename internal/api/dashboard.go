package api

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/LJTian/PautaFacil/internal/config"
	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/LJTian/PautaFacil/internal/scheduler"
	"github.com/gin-gonic/gin"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

const dashboardName = "dashboard.html"

var dashboardTemplate = template.Must(
	template.New(dashboardName).Funcs(template.FuncMap{"text": storedText}).ParseFS(templateFS, "templates/dashboard.html"),
)

// 页面分区，顺序固定
var sections = []struct {
	key   string
	title string
}{
	{"policial", "Plantão Policial"},
	{"poder", "Poder & Serviços"},
}

const otherSection = "Outros"

type cardView struct {
	headline.Card
	Pending     bool
	Stale       bool
	Unavailable bool
}

type sectionView struct {
	Title string
	Cards []cardView
}

type dashboardView struct {
	Clock    string
	Date     string
	Sections []sectionView
	Progress scheduler.Progress
	Running  bool
}

func (s *Server) dashboard(c *gin.Context) {
	c.HTML(http.StatusOK, dashboardName, s.dashboardView())
}

func (s *Server) dashboardView() dashboardView {
	now := s.now().In(config.Brasilia)
	v := dashboardView{
		Clock:    now.Format("15:04"),
		Date:     now.Format("02/01/2006"),
		Progress: s.board.Progress(),
		Running:  s.refresher.Running(),
	}

	known := make(map[string]bool, len(sections))
	for _, sec := range sections {
		known[sec.key] = true
	}
	bySection := make(map[string][]cardView)
	var rest []cardView
	for _, card := range s.board.Cards() {
		cv := newCardView(card)
		if known[card.Section] {
			bySection[card.Section] = append(bySection[card.Section], cv)
		} else {
			rest = append(rest, cv)
		}
	}
	for _, sec := range sections {
		if cards := bySection[sec.key]; len(cards) > 0 {
			v.Sections = append(v.Sections, sectionView{Title: sec.title, Cards: cards})
		}
	}
	if len(rest) > 0 {
		v.Sections = append(v.Sections, sectionView{Title: otherSection, Cards: rest})
	}
	return v
}

func newCardView(card headline.Card) cardView {
	return cardView{
		Card:        card,
		Pending:     card.Cycle == 0 && card.Outcome.Reason == ReasonPending,
		Stale:       card.Outcome.State == headline.StateStale,
		Unavailable: card.Outcome.State == headline.StateUnavailable,
	}
}

// storedText 标题和摘要入库前已去标签并转义，这里不再二次转义；
// 仍含尖括号的文本（例如被篡改的缓存）按普通文本转义输出
func storedText(s string) template.HTML {
	if strings.ContainsAny(s, "<>") {
		return template.HTML(template.HTMLEscapeString(s))
	}
	return template.HTML(s) // #nosec G203
}
