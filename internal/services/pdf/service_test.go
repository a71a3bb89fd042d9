package pdf

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestService() *Service {
	return NewService(arbor.NewLogger())
}

func TestConvertMarkdownToPDF(t *testing.T) {
	service := newTestService()

	markdown := `# Research Report

## Key Findings

This is a paragraph with **bold** and *italic* text, plus a
[link](https://example.com) and some ` + "`inline code`" + `.

- first finding
- second finding
  - nested detail

> A quoted passage from a source.

---

` + "```" + `
raw code block
` + "```" + `
`

	data, err := service.ConvertMarkdownToPDF(markdown, "Research Report")
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestConvertMarkdownToPDF_EmptyMarkdown(t *testing.T) {
	service := newTestService()

	_, err := service.ConvertMarkdownToPDF("", "Empty")
	require.Error(t, err)

	_, err = service.ConvertMarkdownToPDF("   \n  ", "Whitespace")
	require.Error(t, err)
}

func TestConvertMarkdownToPDF_PlainText(t *testing.T) {
	service := newTestService()

	data, err := service.ConvertMarkdownToPDF("just a single line of plain text", "Plain")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestConvertMarkdownToPDF_LongDocument(t *testing.T) {
	service := newTestService()

	var sb strings.Builder
	sb.WriteString("# Long Report\n\n")
	for i := 0; i < 200; i++ {
		sb.WriteString("This paragraph repeats to force pagination across multiple pages of output. ")
	}

	data, err := service.ConvertMarkdownToPDF(sb.String(), "Long Report")
	require.NoError(t, err)
	// A multi-page document is noticeably larger than a single paragraph
	single, err := service.ConvertMarkdownToPDF("one line", "Short")
	require.NoError(t, err)
	assert.Greater(t, len(data), len(single))
}

func TestConvertMarkdownToPDF_ImagesRenderAsAltText(t *testing.T) {
	service := newTestService()

	data, err := service.ConvertMarkdownToPDF("![capture of example.com](https://example.com/shot.png)", "Images")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
