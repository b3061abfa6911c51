package translator

import (
	"strings"

	"github.com/nerdneilsfield/go-docx-translator/internal/config"
)

// Pair 一条已接受的翻译
type Pair struct {
	Source      string
	Translation string
}

// Window 最近翻译结果的滑动窗口，只由任务的工作 goroutine 写入
type Window struct {
	capacity int
	maxRunes int
	pairs    []Pair
	appended int
}

// NewWindow 创建容量为 capacity 的窗口，每条记录最多保留 maxRunes 个字符
func NewWindow(capacity, maxRunes int) *Window {
	if capacity < 0 {
		capacity = 0
	}
	return &Window{
		capacity: capacity,
		maxRunes: maxRunes,
		pairs:    make([]Pair, 0, capacity),
	}
}

// Add 追加一条记录，超出容量时丢弃最旧的
func (w *Window) Add(source, translation string) {
	w.appended++
	if w.capacity == 0 {
		return
	}
	p := Pair{
		Source:      truncateRunes(source, w.maxRunes),
		Translation: truncateRunes(translation, w.maxRunes),
	}
	if len(w.pairs) == w.capacity {
		copy(w.pairs, w.pairs[1:])
		w.pairs[len(w.pairs)-1] = p
		return
	}
	w.pairs = append(w.pairs, p)
}

// Recent 返回最近 n 条记录，旧的在前
func (w *Window) Recent(n int) []Pair {
	if n > len(w.pairs) {
		n = len(w.pairs)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Pair, n)
	copy(out, w.pairs[len(w.pairs)-n:])
	return out
}

// Len returns the number of pairs held.
func (w *Window) Len() int { return len(w.pairs) }

// contextBlock 组装上下文：历史翻译与命中的术语
func contextBlock(pairs []Pair, glossary *config.Glossary, payload string) string {
	var b strings.Builder
	if len(pairs) > 0 {
		b.WriteString("Previously translated segments (for consistency):")
		for _, p := range pairs {
			b.WriteString("\nOriginal: ")
			b.WriteString(p.Source)
			b.WriteString("\nTranslation: ")
			b.WriteString(p.Translation)
			b.WriteString("\n")
		}
	}
	if entries := glossary.Matches(payload); len(entries) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Glossary (use these translations):")
		for _, e := range entries {
			b.WriteString("\n")
			b.WriteString(e.Source)
			b.WriteString(" => ")
			b.WriteString(e.Target)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
