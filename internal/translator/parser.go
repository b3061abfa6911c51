package translator

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

// Tier 对齐结果来自哪一级解析
type Tier int

const (
	TierNone Tier = iota
	TierMarkers
	TierLines
	TierSingle
)

func (t Tier) String() string {
	switch t {
	case TierMarkers:
		return "markers"
	case TierLines:
		return "lines"
	case TierSingle:
		return "single"
	default:
		return "none"
	}
}

// markerPattern 匹配 "[n] text" 行
var markerPattern = regexp2.MustCompile(`^[ \t]*\[(\d+)\][ \t]?(.*)$`, regexp2.Multiline)

// Outcome 一个批次按位置对齐后的译文；空字符串表示该位置未解决
type Outcome struct {
	Texts []string
	Tiers []Tier
}

func newOutcome(size int) Outcome {
	return Outcome{Texts: make([]string, size), Tiers: make([]Tier, size)}
}

func (o Outcome) set(i int, text string, tier Tier) {
	o.Texts[i] = text
	o.Tiers[i] = tier
}

// Complete reports whether every position is resolved.
func (o Outcome) Complete() bool {
	for _, t := range o.Texts {
		if t == "" {
			return false
		}
	}
	return true
}

// Unresolved returns the positions still missing a translation.
func (o Outcome) Unresolved() []int {
	var out []int
	for i, t := range o.Texts {
		if t == "" {
			out = append(out, i)
		}
	}
	return out
}

// fill copies positions resolved in other that are unresolved in o.
func (o Outcome) fill(other Outcome) {
	for i, t := range o.Texts {
		if t == "" && other.Texts[i] != "" {
			o.set(i, other.Texts[i], other.Tiers[i])
		}
	}
}

// ReplyParser 把模型回复对齐到批次位置，必须是纯函数
type ReplyParser func(b Batch, reply string) Outcome

// replyParsers 按顺序尝试；单段重翻是第三级，由 Translator 执行
var replyParsers = []ReplyParser{ParseMarkers, ParseLines}

// Align 依次运行解析器，直到所有位置都解决
func Align(b Batch, reply string) Outcome {
	result := newOutcome(b.Len())
	for _, parse := range replyParsers {
		if result.Complete() {
			break
		}
		result.fill(parse(b, reply))
	}
	return result
}

type marker struct {
	index int // 1-based, -1 when unparsable
	text  string
	start int // rune offsets of the marker line
	end   int
}

func findMarkers(reply string) []marker {
	var markers []marker
	m, err := markerPattern.FindStringMatch(reply)
	for err == nil && m != nil {
		groups := m.Groups()
		idx, convErr := strconv.Atoi(groups[1].String())
		if convErr != nil {
			idx = -1
		}
		markers = append(markers, marker{
			index: idx,
			text:  strings.TrimSpace(groups[2].String()),
			start: m.Index,
			end:   m.Index + m.Length,
		})
		m, err = markerPattern.FindNextMatch(m)
	}
	return markers
}

// ParseMarkers 第一级：按 [n] 标记解析。
// 续行以空格拼接到当前条目，第一个标记之前的文字忽略。
// 只有恰好出现一次的编号被采用；出现越界编号时整个回复不可信。
func ParseMarkers(b Batch, reply string) Outcome {
	size := b.Len()
	out := newOutcome(size)

	markers := findMarkers(reply)
	if len(markers) == 0 {
		return out
	}

	runes := []rune(reply)
	seen := make([]int, size)
	parts := make([][]string, size)
	for i, mk := range markers {
		if mk.index < 1 || mk.index > size {
			return newOutcome(size)
		}
		pos := mk.index - 1
		seen[pos]++

		tailEnd := len(runes)
		if i+1 < len(markers) {
			tailEnd = markers[i+1].start
		}
		if mk.text != "" {
			parts[pos] = append(parts[pos], mk.text)
		}
		for _, line := range strings.Split(string(runes[mk.end:tailEnd]), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				parts[pos] = append(parts[pos], line)
			}
		}
	}

	for pos := range size {
		if seen[pos] != 1 {
			continue
		}
		if text := strings.Join(parts[pos], " "); text != "" {
			out.set(pos, text, TierMarkers)
		}
	}
	return out
}

// ParseLines 第二级：非空行数等于批次大小时按位置对应，否则不解决任何位置。
// 行首带有与位置不符的 [n] 标记时，回复已错位，同样不解决任何位置。
func ParseLines(b Batch, reply string) Outcome {
	size := b.Len()
	out := newOutcome(size)

	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) != size {
		return out
	}

	for i, line := range lines {
		idx, text := stripMarker(line)
		if text == "" || (idx != 0 && idx != i+1) {
			return newOutcome(size)
		}
		out.set(i, text, TierLines)
	}
	return out
}

// stripMarker 去掉行首标记，返回其编号；无标记时编号为 0，无法解析时为 -1
func stripMarker(line string) (int, string) {
	m, err := markerPattern.FindStringMatch(line)
	if err != nil || m == nil {
		return 0, strings.TrimSpace(line)
	}
	groups := m.Groups()
	idx, convErr := strconv.Atoi(groups[1].String())
	if convErr != nil {
		idx = -1
	}
	return idx, strings.TrimSpace(groups[2].String())
}
