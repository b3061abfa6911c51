package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGlossary(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "glossary.toml")
		content := `
source_lang = "English"
target_lang = "Spanish"

[translations]
"purchase order" = "orden de compra"
"invoice" = "factura"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		g, err := LoadGlossary(path)
		require.NoError(t, err)
		assert.Equal(t, "Spanish", g.TargetLang)
		assert.Len(t, g.Translations, 2)
		assert.Equal(t, "factura", g.Translations["invoice"])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadGlossary(filepath.Join(dir, "missing.toml"))
		assert.Error(t, err)
	})

	t.Run("missing target language", func(t *testing.T) {
		path := filepath.Join(dir, "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[translations]\na = \"b\"\n"), 0o644))
		_, err := LoadGlossary(path)
		assert.Error(t, err)
	})
}

func TestGlossaryMatches(t *testing.T) {
	g := NewGlossary("English", "Spanish", map[string]string{
		"Invoice":        "factura",
		"purchase order": "orden de compra",
		"shipment":       "envío",
	})

	matches := g.Matches("Attach the invoice to the Purchase Order.")
	assert.Equal(t, []GlossaryEntry{
		{Source: "Invoice", Target: "factura"},
		{Source: "purchase order", Target: "orden de compra"},
	}, matches)

	assert.Empty(t, g.Matches("nothing relevant"))

	var nilGlossary *Glossary
	assert.Nil(t, nilGlossary.Matches("invoice"))
}
