package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
)

// Bundle 格式包：除主文档外的所有部件（样式、编号、主题、关系、媒体等）
// 以及主文档根元素上的命名空间声明。内容按原样保存为字节。
type Bundle struct {
	main     string
	order    []string
	parts    map[string][]byte
	rootAttr []xml.Attr
}

// Clone returns a deep copy of the bundle.
func (b *Bundle) Clone() *Bundle {
	if b == nil {
		return nil
	}
	c := &Bundle{
		main:     b.main,
		order:    append([]string(nil), b.order...),
		parts:    make(map[string][]byte, len(b.parts)),
		rootAttr: cloneAttrs(b.rootAttr),
	}
	for name, data := range b.parts {
		c.parts[name] = append([]byte(nil), data...)
	}
	return c
}

// Part returns a copy of the named part.
func (b *Bundle) Part(name string) ([]byte, bool) {
	data, ok := b.parts[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Namespaces returns the prefix to URI declarations of the document root.
func (b *Bundle) Namespaces() map[string]string {
	ns := make(map[string]string)
	for _, a := range b.rootAttr {
		switch {
		case a.Name.Space == "xmlns":
			ns[a.Name.Local] = a.Value
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			ns[""] = a.Value
		}
	}
	return ns
}

func (b *Bundle) validate() error {
	if b == nil {
		return &ReconstructionError{Reason: "missing formatting bundle"}
	}
	if _, ok := b.parts[ContentTypesPart]; !ok {
		return &ReconstructionError{Reason: "bundle has no " + ContentTypesPart}
	}
	if len(b.Namespaces()) == 0 {
		return &ReconstructionError{Reason: "bundle has no namespace declarations"}
	}
	return nil
}

// Limits 解压后的大小上限，零值字段使用默认值
type Limits struct {
	MaxPartBytes  int64 // 单个部件
	MaxTotalBytes int64 // 所有部件之和
}

const (
	DefaultMaxPartBytes  int64 = 64 << 20
	DefaultMaxTotalBytes int64 = 256 << 20
)

func (l Limits) withDefaults() Limits {
	if l.MaxPartBytes <= 0 {
		l.MaxPartBytes = DefaultMaxPartBytes
	}
	if l.MaxTotalBytes <= 0 {
		l.MaxTotalBytes = DefaultMaxTotalBytes
	}
	return l
}

// Parse 以默认上限解析 docx 字节流
func Parse(data []byte) (*Document, error) {
	return ParseLimited(data, Limits{})
}

// ParseLimited 解析 docx 字节流，任何部件解压后超出上限即失败
func ParseLimited(data []byte, limits Limits) (*Document, error) {
	limits = limits.withDefaults()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ExtractionError{Err: fmt.Errorf("open package: %w", err)}
	}

	bundle := &Bundle{parts: make(map[string][]byte, len(zr.File))}
	var total int64
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		content, err := readZipFile(f, limits.MaxPartBytes, limits.MaxTotalBytes-total)
		if err != nil {
			return nil, &ExtractionError{Part: f.Name, Err: err}
		}
		total += int64(len(content))
		if _, dup := bundle.parts[f.Name]; !dup {
			bundle.order = append(bundle.order, f.Name)
		}
		bundle.parts[f.Name] = content
	}

	bundle.main = resolveMainPart(bundle.parts)
	raw, ok := bundle.parts[bundle.main]
	if !ok {
		return nil, &ExtractionError{Part: bundle.main, Err: ErrNoDocumentPart}
	}
	delete(bundle.parts, bundle.main)

	root, err := parseTree(raw)
	if err != nil {
		return nil, &ExtractionError{Part: bundle.main, Err: err}
	}
	bundle.rootAttr = cloneAttrs(root.Attr)

	doc, err := buildDocument(root, bundle)
	if err != nil {
		return nil, &ExtractionError{Part: bundle.main, Err: err}
	}
	return doc, nil
}

// readZipFile 读取一个部件；声明的或实际解压的大小超过上限时返回错误
func readZipFile(f *zip.File, partLimit, remaining int64) ([]byte, error) {
	limit, tooLarge := partLimit, ErrPartTooLarge
	if remaining < limit {
		limit, tooLarge = remaining, ErrPackageTooLarge
	}
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w (%d bytes, limit %d)", tooLarge, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (limit %d bytes)", tooLarge, limit)
	}
	return data, nil
}

// resolveMainPart follows the package relationships to the office document,
// falling back to word/document.xml.
func resolveMainPart(parts map[string][]byte) string {
	raw, ok := parts[PackageRelsPart]
	if !ok {
		return DefaultDocumentPart
	}
	var rels Relationships
	if err := xml.Unmarshal(raw, &rels); err != nil {
		return DefaultDocumentPart
	}
	for _, rel := range rels.Relationships {
		if rel.Type == officeDocumentRelType {
			target := strings.TrimPrefix(path.Clean("/"+rel.Target), "/")
			if target != "" {
				return target
			}
		}
	}
	return DefaultDocumentPart
}

// Write 将文档序列化为 docx 包
func Write(w io.Writer, doc *Document) error {
	if doc == nil {
		return &ReconstructionError{Reason: "nil document"}
	}
	if err := doc.Bundle.validate(); err != nil {
		return err
	}

	mainXML := marshalDocument(doc.tree())

	names := doc.Bundle.order
	if !slices.Contains(names, doc.Bundle.main) {
		names = append(append([]string(nil), names...), doc.Bundle.main)
	}

	zw := zip.NewWriter(w)
	for _, name := range names {
		content, ok := doc.Bundle.parts[name]
		if name == doc.Bundle.main {
			content = mainXML
		} else if !ok {
			continue
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return &ReconstructionError{Reason: "create part " + name, Err: err}
		}
		if _, err := fw.Write(content); err != nil {
			return &ReconstructionError{Reason: "write part " + name, Err: err}
		}
	}
	if err := zw.Close(); err != nil {
		return &ReconstructionError{Reason: "finish package", Err: err}
	}
	return nil
}

// Marshal returns the serialized docx package.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
