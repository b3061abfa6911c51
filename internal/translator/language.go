package translator

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultTargetLanguage 未指定目标语言时使用
const DefaultTargetLanguage = "Spanish"

// NormalizeLanguage 把 BCP-47 标签（es、es-MX）转换为英文名称，其他输入原样返回
func NormalizeLanguage(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTargetLanguage
	}
	tag, err := language.Parse(s)
	if err != nil {
		return s
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return s
}
