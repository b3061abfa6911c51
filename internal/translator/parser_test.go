package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func batchOf(n int) Batch {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = "src"
	}
	return Batch{Units: bodyUnits(texts...)}
}

func TestParseMarkers(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		reply string
		want  []string
	}{
		{
			name:  "all markers",
			size:  3,
			reply: "[1] Uno\n[2] Dos\n[3] Tres",
			want:  []string{"Uno", "Dos", "Tres"},
		},
		{
			name:  "blank lines and indentation",
			size:  2,
			reply: "\n  [1] Uno  \n\n\t[2]Dos\n\n",
			want:  []string{"Uno", "Dos"},
		},
		{
			name:  "preamble ignored and continuation joined",
			size:  2,
			reply: "Here are the translations:\n[1] Primera línea\nsegunda línea\n\n[2] Dos",
			want:  []string{"Primera línea segunda línea", "Dos"},
		},
		{
			name:  "out of order",
			size:  3,
			reply: "[3] Tres\n[1] Uno\n[2] Dos",
			want:  []string{"Uno", "Dos", "Tres"},
		},
		{
			name:  "missing index",
			size:  3,
			reply: "[1] Uno\n[3] Tres",
			want:  []string{"Uno", "", "Tres"},
		},
		{
			name:  "duplicate index left unresolved",
			size:  3,
			reply: "[1] Uno\n[2] Dos\n[2] Otra vez\n[3] Tres",
			want:  []string{"Uno", "", "Tres"},
		},
		{
			name:  "empty marker text",
			size:  2,
			reply: "[1]\n[2] Dos",
			want:  []string{"", "Dos"},
		},
		{
			name:  "out of range index discards the reply",
			size:  2,
			reply: "[1] Uno\n[2] Dos\n[3] Extra",
			want:  []string{"", ""},
		},
		{
			name:  "zero index discards the reply",
			size:  2,
			reply: "[0] Cero\n[1] Uno\n[2] Dos",
			want:  []string{"", ""},
		},
		{
			name:  "no markers",
			size:  2,
			reply: "Uno\nDos",
			want:  []string{"", ""},
		},
		{
			name:  "multibyte text before markers",
			size:  2,
			reply: "翻译如下：\n[1] 你好\n世界\n[2] 再见",
			want:  []string{"你好 世界", "再见"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ParseMarkers(batchOf(tt.size), tt.reply)
			assert.Equal(t, tt.want, out.Texts)
			for i, text := range tt.want {
				if text == "" {
					assert.Equal(t, TierNone, out.Tiers[i])
				} else {
					assert.Equal(t, TierMarkers, out.Tiers[i])
				}
			}
		})
	}
}

func TestParseLines(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		reply string
		want  []string
	}{
		{"plain lines", 3, "Uno\nDos\n\nTres\n", []string{"Uno", "Dos", "Tres"}},
		{"stray markers stripped", 2, "[1] Uno\nDos", []string{"Uno", "Dos"}},
		{"too few lines", 3, "Uno\nDos", []string{"", "", ""}},
		{"too many lines", 2, "Uno\nDos\nTres", []string{"", ""}},
		{"bare marker line", 2, "[1]\nDos", []string{"", ""}},
		{"marker out of position", 3, "[1] Uno\n[3] Tres\nDos", []string{"", "", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLines(batchOf(tt.size), tt.reply).Texts)
		})
	}
}

func TestAlign(t *testing.T) {
	t.Run("tier one complete", func(t *testing.T) {
		out := Align(batchOf(3), "[1] a\n[2] b\n[3] c")
		assert.True(t, out.Complete())
		assert.Equal(t, []Tier{TierMarkers, TierMarkers, TierMarkers}, out.Tiers)
	})

	t.Run("missing third marker with wrong line count leaves only that unit", func(t *testing.T) {
		out := Align(batchOf(5), "[1] a\n[2] b\n[4] d\n[5] e")
		assert.Equal(t, []string{"a", "b", "", "d", "e"}, out.Texts)
		assert.Equal(t, []int{2}, out.Unresolved())
		assert.False(t, out.Complete())
	})

	t.Run("line fallback fills only unresolved positions", func(t *testing.T) {
		out := Align(batchOf(5), "[1] a\n[2] b\nc\n[4] d\n[5] e")
		assert.Equal(t, []string{"a", "b c", "c", "d", "e"}, out.Texts)
		assert.Equal(t, []Tier{TierMarkers, TierMarkers, TierLines, TierMarkers, TierMarkers}, out.Tiers)
	})

	t.Run("misaligned markers leave the gap for single retry", func(t *testing.T) {
		out := Align(batchOf(5), "[1] uno\n[2] dos\n[4] cuatro\nmas\n[5] cinco")
		assert.Equal(t, []string{"uno", "dos", "", "cuatro mas", "cinco"}, out.Texts)
		assert.Equal(t, []Tier{TierMarkers, TierMarkers, TierNone, TierMarkers, TierMarkers}, out.Tiers)
		assert.Equal(t, []int{2}, out.Unresolved())
	})

	t.Run("unnumbered reply uses lines", func(t *testing.T) {
		out := Align(batchOf(2), "Hola\nMundo")
		assert.Equal(t, []string{"Hola", "Mundo"}, out.Texts)
		assert.Equal(t, []Tier{TierLines, TierLines}, out.Tiers)
	})

	t.Run("garbage resolves nothing", func(t *testing.T) {
		out := Align(batchOf(3), "I cannot help with that.")
		assert.Equal(t, []int{0, 1, 2}, out.Unresolved())
	})

	t.Run("parsers are pure", func(t *testing.T) {
		b := batchOf(2)
		reply := "[1] x\n[2] y"
		assert.Equal(t, Align(b, reply), Align(b, reply))
	})
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "markers", TierMarkers.String())
	assert.Equal(t, "lines", TierLines.String())
	assert.Equal(t, "single", TierSingle.String())
	assert.Equal(t, "none", TierNone.String())
}
