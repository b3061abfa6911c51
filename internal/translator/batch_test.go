package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-docx-translator/internal/document"
)

func bodyUnits(texts ...string) []*document.Unit {
	units := make([]*document.Unit, len(texts))
	for i, s := range texts {
		units[i] = &document.Unit{ID: i, Source: s, Location: document.Location{Block: i, Table: -1}}
	}
	return units
}

// rowUnits appends units for one table row.
func rowUnits(units []*document.Unit, table, row, cells int) []*document.Unit {
	for c := range cells {
		units = append(units, &document.Unit{
			ID:       len(units),
			Source:   "cell",
			Location: document.Location{Table: table, Row: row, Column: c},
		})
	}
	return units
}

func batchSizes(batches []Batch) []int {
	out := make([]int, len(batches))
	for i, b := range batches {
		out[i] = b.Len()
	}
	return out
}

func TestScheduleSizes(t *testing.T) {
	units := bodyUnits("a", "b", "c", "d", "e", "f", "g")

	tests := []struct {
		name string
		size int
		want []int
	}{
		{"exact multiple", 7, []int{7}},
		{"remainder", 3, []int{3, 3, 1}},
		{"one per batch", 1, []int{1, 1, 1, 1, 1, 1, 1}},
		{"non-positive size", 0, []int{1, 1, 1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := Schedule(units, tt.size)
			assert.Equal(t, tt.want, batchSizes(batches))

			// 顺序不变，每个单元恰好出现一次
			var ids []int
			for i, b := range batches {
				assert.Equal(t, i, b.Index)
				for _, u := range b.Units {
					ids = append(ids, u.ID)
				}
			}
			assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, ids)
		})
	}

	t.Run("hard maximum", func(t *testing.T) {
		many := bodyUnits(make([]string, 45)...)
		assert.Equal(t, []int{20, 20, 5}, batchSizes(Schedule(many, 100)))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, Schedule(nil, 10))
	})
}

func TestScheduleKeepsRowsTogether(t *testing.T) {
	units := bodyUnits("intro", "more")
	units = rowUnits(units, 0, 0, 3)
	units = rowUnits(units, 0, 1, 3)
	units = append(units, &document.Unit{ID: len(units), Source: "outro", Location: document.Location{Block: 9, Table: -1}})

	// 2 + 3 > 4, so the first row starts a new batch
	batches := Schedule(units, 4)
	assert.Equal(t, []int{2, 3, 4}, batchSizes(batches))
	assert.Equal(t, 0, batches[1].Units[0].Location.Row)
	assert.Equal(t, 1, batches[2].Units[0].Location.Row)
	assert.Equal(t, "outro", batches[2].Units[3].Source)

	t.Run("row larger than batch is split at the maximum", func(t *testing.T) {
		wide := rowUnits(nil, 0, 0, 5)
		wide = rowUnits(wide, 0, 1, 1)
		// the remainder of the wide row shares a batch with the next row
		assert.Equal(t, []int{2, 2, 2}, batchSizes(Schedule(wide, 2)))
	})
}

func TestBatchPayload(t *testing.T) {
	b := Batch{Units: bodyUnits("Hello", "Line one\nLine two", "End")}
	assert.Equal(t, "[1] Hello\n\n[2] Line one\nLine two\n\n[3] End", b.Payload())

	p := batchPrompt("French", b, 100)
	require.Equal(t, b.Payload(), p.Payload)
	assert.Equal(t,
		"Translate the following paragraphs to French.\n"+
			"Maintain the same tone, style, and any technical terms appropriately.\n"+
			"Return ONLY the translations in the same numbered format, preserving the paragraph numbers.\n\n"+
			"Paragraphs to translate:\n[1] Hello\n\n[2] Line one\nLine two\n\n[3] End",
		p.Render(""))
	assert.Equal(t, 100, p.MaxTokens)

	s := singlePrompt("French", "Hello", 50)
	assert.Equal(t,
		"Translate the following text to French.\n"+
			"Maintain the same tone, style, and any technical terms appropriately.\n"+
			"Only provide the translation, no explanations.\n\nText to translate:\nHello",
		s.Render(""))
}
