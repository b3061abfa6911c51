package translator

import (
	"fmt"
	"strings"

	"github.com/nerdneilsfield/go-docx-translator/internal/config"
	"github.com/nerdneilsfield/go-docx-translator/internal/document"
)

// Batch 一次批量请求包含的翻译单元
type Batch struct {
	Index int
	Units []*document.Unit
}

// Len returns the number of units in the batch.
func (b Batch) Len() int { return len(b.Units) }

// Payload 以 "[i] text" 形式渲染，条目之间空一行
func (b Batch) Payload() string {
	var sb strings.Builder
	for i, u := range b.Units {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, u.Source)
	}
	return sb.String()
}

// Schedule 按原顺序把单元分成不超过 size 的批次。
// 同一表格行的单元不跨批次，除非一行本身超过 size。
func Schedule(units []*document.Unit, size int) []Batch {
	if size < 1 {
		size = 1
	}
	if size > config.MaxBatchSize {
		size = config.MaxBatchSize
	}

	var (
		batches []Batch
		current []*document.Unit
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, Batch{Index: len(batches), Units: current})
		current = nil
	}

	for i := 0; i < len(units); {
		j := i + 1
		for j < len(units) && units[j].Location.SameRow(units[i].Location) {
			j++
		}
		group := units[i:j]
		i = j

		if len(current)+len(group) > size {
			flush()
		}
		for len(group) > size {
			current = append([]*document.Unit(nil), group[:size]...)
			flush()
			group = group[size:]
		}
		current = append(current, group...)
		if len(current) == size {
			flush()
		}
	}
	flush()
	return batches
}
