package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LJTian/PautaFacil/internal/collector"
	"github.com/LJTian/PautaFacil/internal/config"
	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/stretchr/testify/assert"
)

func TestGazetteerFirstMatchInListOrder(t *testing.T) {
	g := NewGazetteer([]string{"Ceilândia", "Taguatinga"})

	place, ok := g.Detect("Incêndio em Ceilândia próximo a Taguatinga")
	assert.True(t, ok)
	assert.Equal(t, "Ceilândia", place)

	// 文本中的先后顺序不影响结果
	place, _ = g.Detect("Taguatinga recebe vítimas de acidente na Ceilândia")
	assert.Equal(t, "Ceilândia", place)

	g = NewGazetteer([]string{"Taguatinga", "Ceilândia"})
	place, _ = g.Detect("Incêndio em Ceilândia próximo a Taguatinga")
	assert.Equal(t, "Taguatinga", place)
}

func TestGazetteerNoMatch(t *testing.T) {
	g := NewGazetteer(DefaultPlaces)
	place, ok := g.Detect("Governo anuncia novo programa habitacional")
	assert.False(t, ok)
	assert.Empty(t, place)

	_, ok = g.Detect("")
	assert.False(t, ok)
}

func TestGazetteerWholeWordCaseInsensitive(t *testing.T) {
	g := NewGazetteer(DefaultPlaces)

	tests := []struct {
		text string
		want string
	}{
		{"operação em SAMAMBAIA prende dois", "Samambaia"},
		{"Acidente em águas claras deixa feridos", "Águas Claras"},
		{"Viagem para a Ásia é cancelada", ""},      // "sia" dentro de outra palavra
		{"Gamado pelo time, torcedor invade campo", ""}, // "Gama" como prefixo
		{"Moradores do Novo Gama protestam", "Gama"},  // ordem da lista: Gama vem antes de Novo Gama
		{"Blitz no SIA nesta manhã", "Sia"},
		{"(Brazlândia) feira começa hoje", "Brazlândia"},
	}
	for _, tt := range tests {
		place, _ := g.Detect(tt.text)
		assert.Equal(t, tt.want, place, tt.text)
	}
}

func TestGazetteerDefaultOrderPreserved(t *testing.T) {
	g := NewGazetteer(DefaultPlaces)
	assert.Equal(t, len(DefaultPlaces), g.Len())
	assert.Equal(t, "Ceilândia", DefaultPlaces[0])
	assert.Equal(t, "Taguatinga", DefaultPlaces[1])
}

func TestFormatPublished(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC) // 12:00 em Brasília

	sameDay := time.Date(2026, 10, 18, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, "10:45", formatPublished(&sameDay, now))

	earlier := time.Date(2026, 10, 16, 22, 5, 0, 0, time.UTC)
	assert.Equal(t, "16/10 19:05", formatPublished(&earlier, now))

	assert.Equal(t, "09:30", formatPublished(nil, now, "", "Publicado às 9h30 de hoje"))
	assert.Equal(t, "14:35", formatPublished(nil, now, "Atualizado 14:35"))
	assert.Equal(t, headline.UnknownTime, formatPublished(nil, now, "sem horário", "ano 2026"))
}

type fakePageFetcher struct {
	body     string
	err      error
	gotURL   string
	insecure bool
}

func (f *fakePageFetcher) FetchURL(ctx context.Context, rawURL string, insecureTLS bool) (*collector.Page, error) {
	f.gotURL = rawURL
	f.insecure = insecureTLS
	if f.err != nil {
		return nil, f.err
	}
	return &collector.Page{URL: rawURL, Body: []byte(f.body)}, nil
}

const detailPage = `<html><body>
<nav><a>Ceilândia</a><a>Taguatinga</a></nav>
<article>
  <p>Publicado em 18/10/2026 às 08h10</p>
  <p>A ocorrência aconteceu no Recanto das Emas durante a madrugada.</p>
  <img src="1.jpg"><img src="2.jpg"><img src="3.jpg">
  <iframe src="https://www.youtube.com/embed/abc"></iframe>
</article>
</body></html>`

func TestEnrichUsesDetailPage(t *testing.T) {
	f := &fakePageFetcher{body: detailPage}
	e := New(Options{Fetcher: f, Now: func() time.Time { return time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC) }})

	src := config.Source{ID: "pcdf", InsecureTLS: true}
	out := e.Enrich(context.Background(), src, headline.RawHeadline{
		Title: "Homem é preso após perseguição",
		Link:  "https://www.pcdf.df.gov.br/noticias/9",
	})

	assert.Equal(t, "https://www.pcdf.df.gov.br/noticias/9", f.gotURL)
	assert.True(t, f.insecure, "detail fetch keeps the source TLS setting")
	assert.Equal(t, "Recanto das Emas", out.Place, "navigation outside <article> is ignored")
	assert.True(t, out.HasVideo)
	assert.True(t, out.HasPhoto)
	assert.Equal(t, "08:10", out.PublishedAt)
}

func TestEnrichHeadlineTextWinsOverDetail(t *testing.T) {
	e := New(Options{Fetcher: &fakePageFetcher{body: detailPage}})
	out := e.Enrich(context.Background(), config.Source{ID: "x"}, headline.RawHeadline{
		Title: "PM prende suspeito em Samambaia",
		Link:  "https://a.com/1",
	})
	assert.Equal(t, "Samambaia", out.Place)
}

func TestEnrichDegradesSilentlyOnDetailFailure(t *testing.T) {
	e := New(Options{Fetcher: &fakePageFetcher{err: errors.New("connection reset")}})
	out := e.Enrich(context.Background(), config.Source{ID: "x"}, headline.RawHeadline{
		Title: "Nota oficial sobre o feriado",
		Link:  "https://a.com/1",
	})
	assert.Empty(t, out.Place)
	assert.False(t, out.HasVideo)
	assert.False(t, out.HasPhoto)
	assert.Equal(t, headline.UnknownTime, out.PublishedAt)
}

func TestEnrichWithoutDetailFetcher(t *testing.T) {
	e := New(Options{})
	out := e.Enrich(context.Background(), config.Source{ID: "x"}, headline.RawHeadline{
		Title:   "PM prende suspeito em Samambaia",
		Summary: "Ocorrência registrada...",
	})
	assert.Equal(t, "Samambaia", out.Place)
	assert.False(t, out.HasPhoto)
}

func TestParseDetailThresholds(t *testing.T) {
	d, ok := parseDetail([]byte(`<html><body><img><img><p>texto</p></body></html>`))
	assert.True(t, ok)
	assert.False(t, d.hasPhoto, "exactly two images is not a gallery")
	assert.False(t, d.hasVideo)

	d, _ = parseDetail([]byte(`<html><body><p>Veja em https://youtu.be/xyz</p></body></html>`))
	assert.True(t, d.hasVideo)
}
