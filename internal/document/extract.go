package document

import (
	"fmt"
	"strconv"
	"strings"
)

// 段落中可以安全改写的标记元素，改写时保留在文本 run 的前后
var (
	leadingMarkers = map[string]bool{
		"bookmarkStart":     true,
		"commentRangeStart": true,
		"permStart":         true,
	}
	trailingMarkers = map[string]bool{
		"bookmarkEnd":     true,
		"commentRangeEnd": true,
		"permEnd":         true,
	}
)

// Extract 按文档顺序返回翻译单元
//
// Each call returns fresh units; the document itself is not modified.
func Extract(doc *Document) []*Unit {
	units := make([]*Unit, len(doc.paragraphs))
	for i, p := range doc.paragraphs {
		units[i] = &Unit{
			ID:       i,
			Source:   p.Text,
			Format:   p.Format.clone(),
			Location: p.loc,
		}
	}
	return units
}

// Load parses a docx package and extracts its translation units.
func Load(data []byte) (*Document, []*Unit, error) {
	return LoadLimited(data, Limits{})
}

// LoadLimited is Load with explicit decompression limits.
func LoadLimited(data []byte, limits Limits) (*Document, []*Unit, error) {
	doc, err := ParseLimited(data, limits)
	if err != nil {
		return nil, nil, err
	}
	return doc, Extract(doc), nil
}

func (f Formatting) clone() Formatting {
	if f.Cell != nil {
		cell := *f.Cell
		f.Cell = &cell
	}
	return f
}

type builder struct {
	doc    *Document
	tables int
}

func buildDocument(root *Node, bundle *Bundle) (*Document, error) {
	doc := &Document{Bundle: bundle, rootName: root.Name}

	var body *Node
	for _, child := range root.Elements() {
		switch {
		case body == nil && child.Local() == "body":
			body = child
		case body == nil:
			doc.prologue = append(doc.prologue, child)
		default:
			doc.epilogue = append(doc.epilogue, child)
		}
	}
	if body == nil {
		return nil, ErrNoBody
	}
	doc.bodyName = body.Name
	doc.bodyAttr = cloneAttrs(body.Attr)

	b := &builder{doc: doc}
	for i, el := range body.Elements() {
		switch el.Local() {
		case "p":
			p, err := b.paragraph(el, Location{Block: i, Table: -1}, nil)
			if err != nil {
				return nil, fmt.Errorf("paragraph %d: %w", i, err)
			}
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockParagraph, Paragraph: p})
		case "tbl":
			t, err := b.table(el, i)
			if err != nil {
				return nil, fmt.Errorf("table at block %d: %w", i, err)
			}
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockTable, Table: t})
		default:
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockRaw, Raw: el})
		}
	}
	return doc, nil
}

func (b *builder) paragraph(el *Node, loc Location, cell *CellFormat) (*Paragraph, error) {
	p := &Paragraph{
		name:   el.Name,
		attr:   cloneAttrs(el.Attr),
		source: el,
		unitID: -1,
		loc:    loc,
	}

	var (
		text      strings.Builder
		supported = true
		firstRun  = true
	)
	takeRun := func(r *Node) {
		s, props, ok := readRun(r)
		if !ok {
			supported = false
			return
		}
		if s != "" && firstRun {
			p.runProps = props
			firstRun = false
		}
		text.WriteString(s)
	}

	for _, c := range el.Elements() {
		switch name := c.Local(); {
		case name == "pPr":
			p.props = c
		case name == "r":
			takeRun(c)
		case name == "hyperlink":
			for _, hc := range c.Elements() {
				switch {
				case hc.Local() == "r":
					takeRun(hc)
				case leadingMarkers[hc.Local()]:
					p.before = append(p.before, hc)
				case trailingMarkers[hc.Local()]:
					p.after = append(p.after, hc)
				case hc.Local() == "proofErr":
				default:
					supported = false
				}
			}
		case leadingMarkers[name]:
			p.before = append(p.before, c)
		case trailingMarkers[name]:
			p.after = append(p.after, c)
		case name == "proofErr":
		default:
			supported = false
		}
	}

	p.Text = text.String()
	format, err := readFormatting(p.props, p.runProps)
	if err != nil {
		return nil, err
	}
	format.Cell = cell
	p.Format = format

	if !supported {
		return p, nil
	}
	if cell != nil && cell.Continuation() {
		p.blank = true
		return p, nil
	}
	if strings.TrimSpace(p.Text) == "" {
		return p, nil
	}

	p.unitID = len(b.doc.paragraphs)
	b.doc.paragraphs = append(b.doc.paragraphs, p)
	return p, nil
}

// readRun returns the text of a run and its rPr. ok is false when the run
// holds content that cannot be rewritten as plain text.
func readRun(r *Node) (text string, props *Node, ok bool) {
	var sb strings.Builder
	for _, c := range r.Elements() {
		switch c.Local() {
		case "rPr":
			props = c
		case "t":
			sb.WriteString(c.CharData())
		case "tab":
			sb.WriteByte('\t')
		case "br":
			if t := c.AttrValue("type"); t != "" && t != "textWrapping" {
				return "", nil, false
			}
			sb.WriteByte('\n')
		case "cr":
			sb.WriteByte('\n')
		case "noBreakHyphen":
			sb.WriteByte('-')
		case "softHyphen", "lastRenderedPageBreak":
		default:
			// drawing, pict, object, fldChar, instrText, footnoteReference ...
			return "", nil, false
		}
	}
	return sb.String(), props, true
}

func (b *builder) table(el *Node, block int) (*Table, error) {
	t := &Table{
		Index: b.tables,
		name:  el.Name,
		attr:  cloneAttrs(el.Attr),
	}
	b.tables++

	rowIndex := 0
	for _, c := range el.Elements() {
		if c.Local() != "tr" {
			t.items = append(t.items, tableItem{raw: c})
			continue
		}
		row := &Row{Index: rowIndex, name: c.Name, attr: cloneAttrs(c.Attr)}
		column := 0
		for _, rc := range c.Elements() {
			if rc.Local() != "tc" {
				row.items = append(row.items, rowItem{raw: rc})
				continue
			}
			loc := Location{Block: block, Table: t.Index, Row: rowIndex, Column: column}
			cell, err := b.cell(rc, loc)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", rowIndex, column, err)
			}
			row.items = append(row.items, rowItem{cell: cell})
			column += cell.Format.GridSpan
		}
		t.items = append(t.items, tableItem{row: row})
		rowIndex++
	}
	return t, nil
}

func (b *builder) cell(el *Node, loc Location) (*Cell, error) {
	c := &Cell{
		Column: loc.Column,
		Format: CellFormat{GridSpan: 1},
		name:   el.Name,
		attr:   cloneAttrs(el.Attr),
	}
	if tcPr := el.Child("tcPr"); tcPr != nil {
		format, err := readCellFormat(tcPr)
		if err != nil {
			return nil, err
		}
		c.Format = format
	}

	paragraphs := 0
	for _, child := range el.Elements() {
		if child.Local() != "p" {
			// tcPr, nested tables and content controls
			c.Blocks = append(c.Blocks, Block{Kind: BlockRaw, Raw: child})
			continue
		}
		ploc := loc
		ploc.Paragraph = paragraphs
		cellFormat := c.Format
		p, err := b.paragraph(child, ploc, &cellFormat)
		if err != nil {
			return nil, err
		}
		c.Blocks = append(c.Blocks, Block{Kind: BlockParagraph, Paragraph: p})
		paragraphs++
	}
	return c, nil
}

func readFormatting(pPr, rPr *Node) (Formatting, error) {
	var f Formatting
	if pPr != nil {
		var pp ParagraphProps
		if err := pPr.Decode(&pp); err != nil {
			return f, fmt.Errorf("decode paragraph properties: %w", err)
		}
		f.Style = valueOf(pp.Style)
		f.Alignment = valueOf(pp.Align)
		if pp.Numbering != nil {
			f.NumberingID = valueOf(pp.Numbering.ID)
			f.NumberingLevel = valueOf(pp.Numbering.Level)
		}
	}
	if rPr != nil {
		var rp RunProps
		if err := rPr.Decode(&rp); err != nil {
			return f, fmt.Errorf("decode run properties: %w", err)
		}
		f.Bold = toggle(rp.Bold)
		f.Italic = toggle(rp.Italic)
		f.Underline = toggle(rp.Underline)
		f.Color = valueOf(rp.Color)
		f.FontSize = halfPoints(rp.Size)
		if rp.Font != nil {
			f.FontFamily = firstNonEmpty(rp.Font.ASCII, rp.Font.HAnsi, rp.Font.EastAsia, rp.Font.CS)
		}
	}
	return f, nil
}

func readCellFormat(tcPr *Node) (CellFormat, error) {
	format := CellFormat{GridSpan: 1}
	var props TableCellProps
	if err := tcPr.Decode(&props); err != nil {
		return format, fmt.Errorf("decode cell properties: %w", err)
	}
	if props.GridSpan != nil {
		if n, err := strconv.Atoi(props.GridSpan.Val); err == nil && n > 1 {
			format.GridSpan = n
		}
	}
	if props.VMerge != nil {
		format.VMerge = props.VMerge.Val
		if format.VMerge == "" {
			format.VMerge = "continue"
		}
	}
	if props.Shading != nil {
		format.Shading = props.Shading.Fill
	}
	if props.Width != nil {
		format.Width = props.Width.W
	}
	format.HasBorders = props.Borders != nil
	return format, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
