package document

import (
	"encoding/xml"
	"fmt"
)

// Formatting 段落的格式信息，取自第一个包含文本的 run
type Formatting struct {
	FontFamily     string
	FontSize       float64 // points
	Bold           bool
	Italic         bool
	Underline      bool
	Color          string
	Alignment      string
	Style          string
	NumberingID    string
	NumberingLevel string

	// Cell is set for paragraphs inside a table cell.
	Cell *CellFormat
}

// CellFormat 表格单元格格式
type CellFormat struct {
	GridSpan   int
	VMerge     string // "", "restart" or "continue"
	Shading    string
	Width      string
	HasBorders bool
}

// Continuation reports whether the cell continues a vertical merge.
func (c CellFormat) Continuation() bool {
	return c.VMerge == "continue"
}

// Location 翻译单元在文档结构中的位置
type Location struct {
	Block     int // index among body children
	Table     int // table ordinal, -1 for body paragraphs
	Row       int
	Column    int // grid column of the cell anchor
	Paragraph int // paragraph ordinal within the cell
}

// InTable reports whether the unit lives in a table cell.
func (l Location) InTable() bool {
	return l.Table >= 0
}

// SameRow reports whether two locations share a table row.
func (l Location) SameRow(o Location) bool {
	return l.InTable() && l.Table == o.Table && l.Row == o.Row
}

func (l Location) String() string {
	if !l.InTable() {
		return fmt.Sprintf("body[%d]", l.Block)
	}
	return fmt.Sprintf("table[%d] r%d c%d p%d", l.Table, l.Row, l.Column, l.Paragraph)
}

// BlockKind 块类型
type BlockKind int

const (
	BlockRaw BlockKind = iota
	BlockParagraph
	BlockTable
)

// Block is one child element of the body or of a table cell.
type Block struct {
	Kind      BlockKind
	Paragraph *Paragraph
	Table     *Table
	Raw       *Node
}

// Paragraph 段落
type Paragraph struct {
	Text   string
	Format Formatting

	name     xml.Name
	attr     []xml.Attr
	props    *Node   // pPr, written back verbatim
	runProps *Node   // rPr of the first text run
	before   []*Node // bookmarkStart and similar markers
	after    []*Node
	source   *Node

	unitID int // -1 when the paragraph yields no unit
	failed bool
	blank  bool // vMerge continuation: emit without runs
	loc    Location
}

// Translatable reports whether the paragraph produced a translation unit.
func (p *Paragraph) Translatable() bool {
	return p.unitID >= 0
}

// Table 表格，保留 tblPr / tblGrid 等非行元素的原始顺序
type Table struct {
	Index int

	name  xml.Name
	attr  []xml.Attr
	items []tableItem
}

type tableItem struct {
	row *Row
	raw *Node
}

// Rows returns the table rows in order.
func (t *Table) Rows() []*Row {
	var rows []*Row
	for _, it := range t.items {
		if it.row != nil {
			rows = append(rows, it.row)
		}
	}
	return rows
}

// Row 表格行
type Row struct {
	Index int

	name  xml.Name
	attr  []xml.Attr
	items []rowItem
}

type rowItem struct {
	cell *Cell
	raw  *Node
}

// Cells returns the row's cells in order.
func (r *Row) Cells() []*Cell {
	var cells []*Cell
	for _, it := range r.items {
		if it.cell != nil {
			cells = append(cells, it.cell)
		}
	}
	return cells
}

// Cell 单元格
type Cell struct {
	Column int
	Format CellFormat
	Blocks []Block

	name xml.Name
	attr []xml.Attr
}

// Document 解析后的 docx 文档
type Document struct {
	Blocks []Block
	Bundle *Bundle

	rootName   xml.Name
	prologue   []*Node // root children before the body
	epilogue   []*Node // root children after the body
	bodyName   xml.Name
	bodyAttr   []xml.Attr
	paragraphs []*Paragraph // translatable paragraphs in unit order
}

// UnitCount returns the number of translation units in the document.
func (d *Document) UnitCount() int {
	return len(d.paragraphs)
}

func cloneAttrs(in []xml.Attr) []xml.Attr {
	if in == nil {
		return nil
	}
	out := make([]xml.Attr, len(in))
	copy(out, in)
	return out
}

func cloneNodes(in []*Node) []*Node {
	if in == nil {
		return nil
	}
	out := make([]*Node, len(in))
	for i, n := range in {
		out[i] = n.Clone()
	}
	return out
}
