package document

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// rPr 子元素在 schema 中位于 highlight 之后的元素，插入高亮时需排在它们前面
var afterHighlight = map[string]bool{
	"u": true, "effect": true, "bdr": true, "shd": true, "fitText": true,
	"vertAlign": true, "rtl": true, "cs": true, "em": true, "lang": true,
	"eastAsianLayout": true, "specVanish": true, "oMath": true, "rPrChange": true,
}

// FailedHighlight marks paragraphs whose source text could not be translated.
const FailedHighlight = "yellow"

// Rebuild 生成新文档：克隆格式包，并把每个单元的译文写回其结构位置
//
// units must be the complete, ID-ordered sequence produced by Extract for
// src. Untranslated units keep their source text with a highlight.
func Rebuild(src *Document, units []*Unit) (*Document, error) {
	if src == nil {
		return nil, &ReconstructionError{Reason: "nil source document"}
	}
	if err := src.Bundle.validate(); err != nil {
		return nil, err
	}
	if len(units) != len(src.paragraphs) {
		return nil, &ReconstructionError{
			Reason: fmt.Sprintf("got %d units for %d paragraphs", len(units), len(src.paragraphs)),
		}
	}
	for i, u := range units {
		if u == nil || u.ID != i {
			return nil, &ReconstructionError{Reason: fmt.Sprintf("unit sequence broken at position %d", i)}
		}
	}

	out := src.clone()
	for i, p := range out.paragraphs {
		u := units[i]
		p.Text = u.Output()
		p.failed = u.Status() != UnitTranslated
	}
	return out, nil
}

func (d *Document) clone() *Document {
	c := &Document{
		Bundle:   d.Bundle.Clone(),
		rootName: d.rootName,
		prologue: cloneNodes(d.prologue),
		epilogue: cloneNodes(d.epilogue),
		bodyName: d.bodyName,
		bodyAttr: cloneAttrs(d.bodyAttr),
	}
	c.Blocks = c.cloneBlocks(d.Blocks)
	return c
}

// cloneBlocks copies blocks in document order, re-registering translatable
// paragraphs so unit order is preserved.
func (d *Document) cloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		switch b.Kind {
		case BlockParagraph:
			p := b.Paragraph.clone()
			if p.Translatable() {
				d.paragraphs = append(d.paragraphs, p)
			}
			out[i] = Block{Kind: BlockParagraph, Paragraph: p}
		case BlockTable:
			out[i] = Block{Kind: BlockTable, Table: d.cloneTable(b.Table)}
		default:
			out[i] = Block{Kind: BlockRaw, Raw: b.Raw.Clone()}
		}
	}
	return out
}

func (d *Document) cloneTable(t *Table) *Table {
	c := &Table{Index: t.Index, name: t.name, attr: cloneAttrs(t.attr)}
	for _, it := range t.items {
		if it.row == nil {
			c.items = append(c.items, tableItem{raw: it.raw.Clone()})
			continue
		}
		row := &Row{Index: it.row.Index, name: it.row.name, attr: cloneAttrs(it.row.attr)}
		for _, ri := range it.row.items {
			if ri.cell == nil {
				row.items = append(row.items, rowItem{raw: ri.raw.Clone()})
				continue
			}
			cell := &Cell{
				Column: ri.cell.Column,
				Format: ri.cell.Format,
				name:   ri.cell.name,
				attr:   cloneAttrs(ri.cell.attr),
			}
			cell.Blocks = d.cloneBlocks(ri.cell.Blocks)
			row.items = append(row.items, rowItem{cell: cell})
		}
		c.items = append(c.items, tableItem{row: row})
	}
	return c
}

func (p *Paragraph) clone() *Paragraph {
	c := *p
	c.Format = p.Format.clone()
	c.attr = cloneAttrs(p.attr)
	c.props = p.props.Clone()
	c.runProps = p.runProps.Clone()
	c.before = cloneNodes(p.before)
	c.after = cloneNodes(p.after)
	c.source = p.source.Clone()
	return &c
}

// tree assembles the main document element.
func (d *Document) tree() *Node {
	root := &Node{Name: d.rootName, Attr: cloneAttrs(d.Bundle.rootAttr)}
	root.Append(d.prologue...)
	body := &Node{Name: d.bodyName, Attr: d.bodyAttr}
	for _, b := range d.Blocks {
		body.Append(b.node())
	}
	root.Append(body)
	root.Append(d.epilogue...)
	return root
}

func (b Block) node() *Node {
	switch b.Kind {
	case BlockParagraph:
		return b.Paragraph.node()
	case BlockTable:
		return b.Table.node()
	default:
		return b.Raw
	}
}

func (t *Table) node() *Node {
	el := &Node{Name: t.name, Attr: t.attr}
	for _, it := range t.items {
		if it.row != nil {
			el.Append(it.row.node())
		} else {
			el.Append(it.raw)
		}
	}
	return el
}

func (r *Row) node() *Node {
	el := &Node{Name: r.name, Attr: r.attr}
	for _, it := range r.items {
		if it.cell != nil {
			el.Append(it.cell.node())
		} else {
			el.Append(it.raw)
		}
	}
	return el
}

func (c *Cell) node() *Node {
	el := &Node{Name: c.name, Attr: c.attr}
	for _, b := range c.Blocks {
		el.Append(b.node())
	}
	return el
}

func (p *Paragraph) node() *Node {
	if p.blank {
		el := &Node{Name: p.name, Attr: p.attr}
		if p.props != nil {
			el.Append(p.props)
		}
		return el
	}
	if !p.Translatable() {
		return p.source
	}

	prefix := p.name.Space
	el := &Node{Name: p.name, Attr: p.attr}
	if p.props != nil {
		el.Append(p.props)
	}
	el.Append(p.before...)

	run := newElement(prefix, "r")
	rPr := p.runProps.Clone()
	if p.failed {
		rPr = withHighlight(rPr, prefix, FailedHighlight)
	}
	if rPr != nil {
		run.Append(rPr)
	}
	run.Append(textNodes(prefix, p.Text)...)
	el.Append(run)

	el.Append(p.after...)
	return el
}

// withHighlight returns rPr with its highlight set to color, keeping schema
// order of the run property children.
func withHighlight(rPr *Node, prefix, color string) *Node {
	hl := newElement(prefix, "highlight", xml.Attr{Name: xml.Name{Space: prefix, Local: "val"}, Value: color})
	if rPr == nil {
		return newElement(prefix, "rPr").Append(hl)
	}

	children := make([]*Node, 0, len(rPr.Children)+1)
	inserted := false
	for _, c := range rPr.Children {
		if c.IsText() || c.Local() == "highlight" {
			continue
		}
		if !inserted && afterHighlight[c.Local()] {
			children = append(children, hl)
			inserted = true
		}
		children = append(children, c)
	}
	if !inserted {
		children = append(children, hl)
	}
	rPr.Children = children
	return rPr
}

// textNodes renders text as w:t runs content, mapping tabs and newlines back
// to w:tab and w:br.
func textNodes(prefix, s string) []*Node {
	var (
		nodes []*Node
		seg   strings.Builder
	)
	flush := func() {
		if seg.Len() == 0 {
			return
		}
		t := newElement(prefix, "t", xml.Attr{Name: xml.Name{Space: "xml", Local: "space"}, Value: "preserve"})
		t.Append(newText(seg.String()))
		nodes = append(nodes, t)
		seg.Reset()
	}
	for _, r := range s {
		switch r {
		case '\t':
			flush()
			nodes = append(nodes, newElement(prefix, "tab"))
		case '\n':
			flush()
			nodes = append(nodes, newElement(prefix, "br"))
		case '\r':
		default:
			seg.WriteRune(r)
		}
	}
	flush()
	return nodes
}
