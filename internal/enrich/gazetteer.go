package enrich

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// DefaultPlaces 区域行政区与周边城市，顺序即优先级：文本里同时出现多个地名时，取列表中靠前的那个。
// "Gama" 排在 "Novo Gama" 之前、"Planaltina" 排在 "Planaltina de Goiás" 之前，现有用户依赖这一行为，调整顺序需要产品确认。
var DefaultPlaces = []string{
	"Ceilândia", "Taguatinga", "Samambaia", "Gama", "Santa Maria", "Planaltina",
	"Recanto das Emas", "São Sebastião", "Brazlândia", "Sol Nascente", "Pôr do Sol",
	"Paranoá", "Núcleo Bandeirante", "Guará", "Sobradinho", "Jardim Botânico",
	"Lago Norte", "Lago Sul", "Águas Claras", "Riacho Fundo", "Candangolândia",
	"Vicente Pires", "Varjão", "Fercal", "Itapoã", "Sia", "Cruzeiro", "Sudoeste",
	"Octogonal", "Luziânia", "Valparaíso", "Águas Lindas", "Novo Gama",
	"Cidade Ocidental", "Formosa", "Santo Antônio", "Padre Bernardo", "Alexânia",
	"Planaltina de Goiás", "Esplanada", "Buriti", "Câmara Legislativa",
}

type place struct {
	name string
	re   *regexp.Regexp
}

// Gazetteer 按固定顺序做整词、大小写不敏感的地名匹配
type Gazetteer struct {
	places []place
}

func NewGazetteer(names []string) *Gazetteer {
	g := &Gazetteer{places: make([]place, 0, len(names))}
	for _, name := range names {
		name = norm.NFC.String(name)
		if name == "" {
			continue
		}
		// RE2 的 \b 只认 ASCII 单词字符，"Águas" 这类带重音的词需要自己写边界
		pattern := `(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(name) + `(?:$|[^\p{L}\p{N}_])`
		g.places = append(g.places, place{name: name, re: regexp.MustCompile(pattern)})
	}
	return g
}

// Detect 返回第一个命中的地名（按列表顺序，而不是在文本中出现的位置）
func (g *Gazetteer) Detect(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	text = norm.NFC.String(text)
	for _, p := range g.places {
		if p.re.MatchString(text) {
			return p.name, true
		}
	}
	return "", false
}

func (g *Gazetteer) Len() int {
	return len(g.places)
}
