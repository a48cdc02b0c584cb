package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var defaultSourcesFS embed.FS

// 规则类型
const (
	RuleFeed = "feed"
	RuleHTML = "html"
)

const (
	DefaultMinText = 15
	minTextFloor   = 10
	minTextCeil    = 25
)

// Rule 描述如何从一个源的响应中取出最新标题
type Rule struct {
	Kind string `yaml:"kind"`

	// 以下仅对 html 生效；匹配优先级 LinkPattern > Tag+Class > Tag
	Tag         string `yaml:"tag,omitempty"`
	Class       string `yaml:"class,omitempty"`
	LinkPattern string `yaml:"link_pattern,omitempty"`
	MinText     int    `yaml:"min_text,omitempty"`

	linkRe *regexp.Regexp
}

// LinkRegexp 返回编译后的链接匹配规则，未配置或无法编译时为 nil（调用方退回 Tag 规则）
func (r *Rule) LinkRegexp() *regexp.Regexp {
	if r.linkRe == nil && r.LinkPattern != "" {
		re, err := regexp.Compile(r.LinkPattern)
		if err != nil {
			return nil
		}
		r.linkRe = re
	}
	return r.linkRe
}

// MinTextLen 返回候选标题的最小长度（按 rune 计）
func (r *Rule) MinTextLen() int {
	if r.MinText <= 0 {
		return DefaultMinText
	}
	return r.MinText
}

// Source 一个被轮询的新闻/政府站点
type Source struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Rule    Rule   `yaml:"rule"`
	Color   string `yaml:"color"`
	Icon    string `yaml:"icon"`
	Section string `yaml:"section"`

	// 证书配置有问题的政府站点需要显式打开，只作用于该源及其详情页
	InsecureTLS bool `yaml:"insecure_tls,omitempty"`
}

type sourceFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources 读取源配置表；path 为空时使用内置表。配置错误在启动时直接返回。
func LoadSources(path string) ([]Source, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = defaultSourcesFS.ReadFile("sources.yaml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading sources: %w", err)
	}
	return ParseSources(data)
}

func ParseSources(data []byte) ([]Source, error) {
	var f sourceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}
	if err := validate(f.Sources); err != nil {
		return nil, err
	}
	return f.Sources, nil
}

func validate(sources []Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("no sources configured")
	}
	seen := make(map[string]bool, len(sources))
	for i := range sources {
		s := &sources[i]
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return fmt.Errorf("source %d: id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("source %q: duplicate id", s.ID)
		}
		seen[s.ID] = true
		if s.Name == "" {
			s.Name = strings.ToUpper(s.ID)
		}

		u, err := url.Parse(s.URL)
		if err != nil || s.URL == "" {
			return fmt.Errorf("source %q: invalid url %q", s.ID, s.URL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.ID, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("source %q: url has no host", s.ID)
		}

		if err := validateRule(s.ID, &s.Rule); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(id string, r *Rule) error {
	switch r.Kind {
	case RuleFeed:
		return nil
	case RuleHTML:
	default:
		return fmt.Errorf("source %q: unknown rule kind %q (valid: feed, html)", id, r.Kind)
	}

	if r.Tag == "" && r.LinkPattern == "" {
		return fmt.Errorf("source %q: html rule needs tag or link_pattern", id)
	}
	if r.Class != "" && r.Tag == "" {
		return fmt.Errorf("source %q: html rule class %q needs a tag", id, r.Class)
	}
	if r.LinkPattern != "" {
		re, err := regexp.Compile(r.LinkPattern)
		if err != nil {
			return fmt.Errorf("source %q: invalid link_pattern: %w", id, err)
		}
		r.linkRe = re
	}
	if r.MinText != 0 && (r.MinText < minTextFloor || r.MinText > minTextCeil) {
		return fmt.Errorf("source %q: min_text must be between %d and %d", id, minTextFloor, minTextCeil)
	}
	return nil
}
