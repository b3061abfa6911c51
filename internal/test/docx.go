// Package test 提供测试用的 docx 构造器、模拟 Invoker 与模拟 OpenAI 服务。
package test

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
		`<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>` +
		`</Types>`

	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
		`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/>` +
		`</Relationships>`

	// StylesXML is the styles part written by BuildDocx.
	StylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>` +
		`</w:styles>`

	// NumberingXML is the numbering part written by BuildDocx.
	NumberingXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:numFmt w:val="decimal"/><w:lvlText w:val="%1."/></w:lvl></w:abstractNum>` +
		`<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>` +
		`</w:numbering>`

	documentOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>`
	documentClose = `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/></w:sectPr></w:body></w:document>`
)

// DocumentPart 主文档部件名
const DocumentPart = "word/document.xml"

// Part 额外写入包中的部件
type Part struct {
	Name string
	Data string
}

// DocumentXML wraps body content in a w:document element.
func DocumentXML(body ...string) string {
	return documentOpen + strings.Join(body, "") + documentClose
}

// BuildDocx 构造一个最小但完整的 docx 包，body 为 w:body 下的元素
func BuildDocx(t testing.TB, body ...string) []byte {
	t.Helper()
	return BuildPackage(t, DocumentXML(body...))
}

// BuildPackage 用给定的主文档内容构造 docx 包，extra 追加或覆盖部件
func BuildPackage(t testing.TB, documentXML string, extra ...Part) []byte {
	t.Helper()

	parts := []Part{
		{Name: "[Content_Types].xml", Data: contentTypesXML},
		{Name: "_rels/.rels", Data: packageRelsXML},
		{Name: DocumentPart, Data: documentXML},
		{Name: "word/_rels/document.xml.rels", Data: documentRelsXML},
		{Name: "word/styles.xml", Data: StylesXML},
		{Name: "word/numbering.xml", Data: NumberingXML},
	}
	for _, p := range extra {
		replaced := false
		for i := range parts {
			if parts[i].Name == p.Name {
				parts[i] = p
				replaced = true
			}
		}
		if !replaced {
			parts = append(parts, p)
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.Name)
		require.NoError(t, err)
		_, err = io.WriteString(w, p.Data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// BuildZip writes the given parts as a zip archive with nothing added.
func BuildZip(t testing.TB, parts ...Part) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.Name)
		require.NoError(t, err)
		_, err = io.WriteString(w, p.Data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// ReadPart 读取 docx 包中的一个部件
func ReadPart(t testing.TB, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

// PartNames lists the entries of a docx package in archive order.
func PartNames(t testing.TB, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// Run 构造一个 w:r，rPr 为原始 XML（可为空）
func Run(rPr, text string) string {
	var b strings.Builder
	b.WriteString("<w:r>")
	if rPr != "" {
		b.WriteString("<w:rPr>" + rPr + "</w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">` + escape(text) + `</w:t>`)
	b.WriteString("</w:r>")
	return b.String()
}

// P 构造一个只有一个 run 的段落
func P(text string) string {
	return "<w:p>" + Run("", text) + "</w:p>"
}

// BoldP 构造一个加粗段落
func BoldP(text string) string {
	return "<w:p>" + Run("<w:b/>", text) + "</w:p>"
}

// StyledP builds a paragraph with a style and optional numbering.
func StyledP(style string, numID, level int, text string) string {
	pPr := fmt.Sprintf(`<w:pStyle w:val="%s"/>`, style)
	if numID > 0 {
		pPr += fmt.Sprintf(`<w:numPr><w:ilvl w:val="%d"/><w:numId w:val="%d"/></w:numPr>`, level, numID)
	}
	return "<w:p><w:pPr>" + pPr + "</w:pPr>" + Run("", text) + "</w:p>"
}

// RawP builds a paragraph from raw inner XML.
func RawP(inner string) string {
	return "<w:p>" + inner + "</w:p>"
}

// EmptyP 空段落
func EmptyP() string {
	return "<w:p/>"
}

// Table 构造一个带 tblPr 和 tblGrid 的表格
func Table(cols int, rows ...string) string {
	var b strings.Builder
	b.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="0" w:type="auto"/></w:tblPr><w:tblGrid>`)
	for range cols {
		b.WriteString(`<w:gridCol w:w="3000"/>`)
	}
	b.WriteString("</w:tblGrid>")
	for _, r := range rows {
		b.WriteString(r)
	}
	b.WriteString("</w:tbl>")
	return b.String()
}

// Row 表格行
func Row(cells ...string) string {
	return "<w:tr>" + strings.Join(cells, "") + "</w:tr>"
}

// Cell builds a cell with raw tcPr content and paragraphs.
func Cell(tcPr string, paragraphs ...string) string {
	var b strings.Builder
	b.WriteString("<w:tc>")
	b.WriteString(`<w:tcPr><w:tcW w:w="3000" w:type="dxa"/>` + tcPr + "</w:tcPr>")
	if len(paragraphs) == 0 {
		paragraphs = []string{EmptyP()}
	}
	b.WriteString(strings.Join(paragraphs, ""))
	b.WriteString("</w:tc>")
	return b.String()
}

// TextCell 只有一个文本段落的单元格
func TextCell(text string) string {
	return Cell("", P(text))
}
