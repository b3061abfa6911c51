package document

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// DOCX XML Namespaces
const (
	WordprocessingMLNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	RelationshipsNamespace    = "http://schemas.openxmlformats.org/package/2006/relationships"

	officeDocumentRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
)

// Package part names
const (
	ContentTypesPart    = "[Content_Types].xml"
	PackageRelsPart     = "_rels/.rels"
	DefaultDocumentPart = "word/document.xml"
)

// 以下类型只用于从 pPr / rPr / tcPr 子树中读取格式信息，
// 写回时始终使用原始节点，因此不需要完整覆盖 schema。

// ParagraphProps represents paragraph properties
type ParagraphProps struct {
	Style     *ValAttr       `xml:"pStyle"`
	Align     *ValAttr       `xml:"jc"`
	Numbering *NumberingProp `xml:"numPr"`
}

// NumberingProp represents list numbering (numPr)
type NumberingProp struct {
	Level *ValAttr `xml:"ilvl"`
	ID    *ValAttr `xml:"numId"`
}

// RunProps represents run properties
type RunProps struct {
	Bold      *ValAttr `xml:"b"`
	Italic    *ValAttr `xml:"i"`
	Underline *ValAttr `xml:"u"`
	Color     *ValAttr `xml:"color"`
	Size      *ValAttr `xml:"sz"`
	Font      *RunFont `xml:"rFonts"`
	Highlight *ValAttr `xml:"highlight"`
}

// ValAttr is the common <w:x w:val="..."/> shape.
type ValAttr struct {
	Val string `xml:"val,attr"`
}

// RunFont represents font settings
type RunFont struct {
	ASCII    string `xml:"ascii,attr,omitempty"`
	HAnsi    string `xml:"hAnsi,attr,omitempty"`
	EastAsia string `xml:"eastAsia,attr,omitempty"`
	CS       string `xml:"cs,attr,omitempty"`
}

// TableCellProps represents table cell properties
type TableCellProps struct {
	Width    *TableCellWidth `xml:"tcW"`
	Borders  *struct{}       `xml:"tcBorders"`
	Shading  *CellShading    `xml:"shd"`
	VMerge   *ValAttr        `xml:"vMerge"`
	GridSpan *ValAttr        `xml:"gridSpan"`
}

// TableCellWidth represents cell width
type TableCellWidth struct {
	Type string `xml:"type,attr"`
	W    string `xml:"w,attr"`
}

// CellShading represents cell shading
type CellShading struct {
	Val   string `xml:"val,attr"`
	Color string `xml:"color,attr,omitempty"`
	Fill  string `xml:"fill,attr,omitempty"`
}

// Relationships represents relationships
type Relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []Relationship `xml:"Relationship"`
}

// Relationship represents a relationship
type Relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// toggle reads an OOXML on/off property: present without a value means on.
func toggle(v *ValAttr) bool {
	if v == nil {
		return false
	}
	switch strings.ToLower(v.Val) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

func valueOf(v *ValAttr) string {
	if v == nil {
		return ""
	}
	return v.Val
}

// halfPoints converts a w:sz value to points.
func halfPoints(v *ValAttr) float64 {
	if v == nil {
		return 0
	}
	n, err := strconv.ParseFloat(v.Val, 64)
	if err != nil {
		return 0
	}
	return n / 2
}
