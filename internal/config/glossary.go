package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Glossary 预定义术语表，翻译时作为上下文提供给模型
type Glossary struct {
	SourceLang   string            `toml:"source_lang"`
	TargetLang   string            `toml:"target_lang"`
	Translations map[string]string `toml:"translations"`
}

// GlossaryEntry 术语表中的一条
type GlossaryEntry struct {
	Source string
	Target string
}

func NewGlossary(sourceLang, targetLang string, translations map[string]string) *Glossary {
	return &Glossary{
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		Translations: translations,
	}
}

func LoadGlossary(path string) (*Glossary, error) {
	// check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("glossary file not found: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read glossary file: %w", err)
	}
	glossary := &Glossary{}
	if err := toml.Unmarshal(content, glossary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal glossary: %w", err)
	}
	if glossary.TargetLang == "" {
		return nil, fmt.Errorf("glossary file is missing target_lang")
	}
	return glossary, nil
}

// Matches 返回在 text 中出现的术语，按原文排序
func (g *Glossary) Matches(text string) []GlossaryEntry {
	if g == nil || len(g.Translations) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	var entries []GlossaryEntry
	for source, target := range g.Translations {
		if source == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(source)) {
			entries = append(entries, GlossaryEntry{Source: source, Target: target})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Source < entries[j].Source })
	return entries
}
