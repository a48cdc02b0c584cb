package processor

import (
	"strings"
	"testing"
	"time"

	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashURLDeterministicAndDistinct(t *testing.T) {
	url1 := "https://example.com/a"
	url2 := "https://example.com/b"

	assert.Equal(t, hashURL(url1), hashURL(url1))
	assert.NotEqual(t, hashURL(url1), hashURL(url2))
	assert.Len(t, hashURL(url1), 40)
}

func TestTruncateRunesHandlesAccentsAndEllipsis(t *testing.T) {
	s := "Ocorrência na Ceilândia deixa três feridos"
	out := truncateRunes(s, 10)
	assert.Equal(t, "Ocorrência...", out)

	// limit 大于长度时不应截断，也不追加省略号
	assert.Equal(t, "curto", truncateRunes("curto", 10))
	assert.Equal(t, "", truncateRunes("qualquer", 0))
}

func TestTruncateRunesDoesNotSplitEntity(t *testing.T) {
	out := truncateRunes("Pão &amp;queijo", 7)
	assert.Equal(t, "Pão...", out)
}

func TestCleanTextStripsMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<b>Fogo</b> atinge posto em Taguatinga", "Fogo atinge posto em Taguatinga"},
		{"<p>Ocorrência registrada</p>", "Ocorrência registrada"},
		{"  espaços   demais \n aqui ", "espaços demais aqui"},
		{"<p>Ocorrência registrada\nem Samambaia</p>", "Ocorrência registrada em Samambaia"},
		{"<p>Batida na\r\nEPTG</p>\r\n<p>sem feridos</p>", "Batida na EPTG sem feridos"},
		{"", ""},
	}
	for _, tt := range tests {
		got := CleanText(tt.in)
		assert.Equal(t, tt.want, got)
		assert.NotContains(t, got, "<")
	}
}

func TestCleanTextNormalizesToNFC(t *testing.T) {
	// "Ceila" + U+0302 COMBINING CIRCUMFLEX + "ndia"
	decomposed := "Ceila\u0302ndia"
	assert.Equal(t, "Ceil\u00e2ndia", CleanText(decomposed))
}

func TestCleanSummaryTruncatesOnlyWhenNeeded(t *testing.T) {
	short := CleanSummary("<p>Resumo curto.</p>")
	assert.Equal(t, "Resumo curto.", short)
	assert.False(t, strings.HasSuffix(short, ellipsis))

	long := CleanSummary("<div>" + strings.Repeat("palavra ", 60) + "</div>")
	assert.True(t, strings.HasSuffix(long, ellipsis))
	assert.LessOrEqual(t, len([]rune(long)), SummaryLimit+len(ellipsis))
	assert.NotContains(t, long, "<")
}

func TestProcessBuildsRecord(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	raw := headline.RawHeadline{
		Title:   " PM prende suspeito em Samambaia ",
		Link:    "https://example.com/noticia",
		Summary: "Ocorrência registrada",
	}

	rec := Process("pcdf", raw, headline.Enrichment{Place: "Samambaia", HasPhoto: true, PublishedAt: "09:15"}, now, 3)
	assert.Equal(t, "PM prende suspeito em Samambaia", rec.Title)
	assert.Equal(t, hashURL(raw.Link), rec.ID)
	assert.Equal(t, "pcdf", rec.SourceID)
	require.NotNil(t, rec.Place)
	assert.Equal(t, "Samambaia", *rec.Place)
	assert.True(t, rec.HasPhoto)
	assert.Equal(t, "09:15", rec.PublishedAt)
	assert.Equal(t, uint64(3), rec.Cycle)
	assert.Equal(t, headline.Fresh, rec.Freshness)

	noPlace := Process("pcdf", raw, headline.Enrichment{}, now, 4)
	assert.Nil(t, noPlace.Place)
	assert.Equal(t, headline.UnknownTime, noPlace.PublishedAt)
}
