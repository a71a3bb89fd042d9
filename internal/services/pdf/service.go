// -----------------------------------------------------------------------
// Last Modified: Friday, 29th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Service converts markdown research reports to PDF for export.
type Service struct {
	logger arbor.ILogger
}

func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// ConvertMarkdownToPDF renders a markdown report as a PDF document.
// The title becomes the document heading when the markdown has none.
func (s *Service) ConvertMarkdownToPDF(markdown string, title string) ([]byte, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, fmt.Errorf("markdown content is empty")
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	)
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	pdf.SetTitle(title, true)

	r := &reportRenderer{
		pdf:    pdf,
		source: source,
		logger: s.logger,
	}
	r.setBody()

	if err := r.walk(doc); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	s.logger.Debug().
		Int("bytes", buf.Len()).
		Str("title", title).
		Msg("Markdown report converted to PDF")

	return buf.Bytes(), nil
}

// reportRenderer walks the goldmark AST and emits fpdf calls.
type reportRenderer struct {
	pdf    *fpdf.Fpdf
	source []byte
	logger arbor.ILogger

	bold      bool
	italic    bool
	listDepth int
}

const (
	bodyFont = "Arial"
	bodySize = 10.0
	lineGap  = 5.0
)

func (r *reportRenderer) setBody() {
	r.pdf.SetFont(bodyFont, r.style(), bodySize)
}

func (r *reportRenderer) style() string {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	return style
}

func (r *reportRenderer) walk(doc ast.Node) error {
	return ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if entering {
				r.pdf.Ln(lineGap)
				size := bodySize + float64(8-node.Level*2)
				if size < bodySize {
					size = bodySize
				}
				r.pdf.SetFont(bodyFont, "B", size)
			} else {
				r.pdf.Ln(lineGap + 2)
				r.setBody()
			}

		case *ast.Paragraph:
			if !entering {
				r.pdf.Ln(lineGap + 2)
			}

		case *ast.Text:
			if entering {
				r.writeText(string(node.Segment.Value(r.source)))
				if node.SoftLineBreak() || node.HardLineBreak() {
					r.writeText(" ")
				}
			}

		case *ast.Emphasis:
			if entering {
				if node.Level >= 2 {
					r.bold = true
				} else {
					r.italic = true
				}
			} else {
				if node.Level >= 2 {
					r.bold = false
				} else {
					r.italic = false
				}
			}
			r.setBody()

		case *ast.Link:
			if entering {
				r.pdf.SetTextColor(0, 0, 200)
			} else {
				r.pdf.SetTextColor(0, 0, 0)
			}

		case *ast.Image:
			// Screenshot references render as their alt text.
			if entering {
				r.italic = true
				r.setBody()
				r.writeText(fmt.Sprintf("[image: %s]", string(node.Text(r.source))))
				r.italic = false
				r.setBody()
				return ast.WalkSkipChildren, nil
			}

		case *ast.CodeSpan:
			if entering {
				r.pdf.SetFont("Courier", "", bodySize-1)
			} else {
				r.setBody()
			}

		case *ast.FencedCodeBlock:
			if entering {
				r.renderCodeBlock(node.Lines())
				return ast.WalkSkipChildren, nil
			}

		case *ast.CodeBlock:
			if entering {
				r.renderCodeBlock(node.Lines())
				return ast.WalkSkipChildren, nil
			}

		case *ast.List:
			if entering {
				r.listDepth++
			} else {
				r.listDepth--
				if r.listDepth == 0 {
					r.pdf.Ln(lineGap)
				}
			}

		case *ast.ListItem:
			if entering {
				indent := float64(r.listDepth) * 6
				r.pdf.SetX(20 + indent)
				r.writeText("- ")
			} else {
				r.pdf.Ln(lineGap)
			}

		case *ast.ThematicBreak:
			if entering {
				r.pdf.Ln(lineGap)
				x := r.pdf.GetX()
				y := r.pdf.GetY()
				pageW, _ := r.pdf.GetPageSize()
				r.pdf.Line(x, y, pageW-20, y)
				r.pdf.Ln(lineGap)
			}

		case *ast.Blockquote:
			if entering {
				r.italic = true
			} else {
				r.italic = false
			}
			r.setBody()
		}

		return ast.WalkContinue, nil
	})
}

// writeText emits wrapped text at the current position.
func (r *reportRenderer) writeText(s string) {
	if s == "" {
		return
	}
	tr := r.pdf.UnicodeTranslatorFromDescriptor("")
	r.pdf.Write(lineGap, tr(s))
}

func (r *reportRenderer) renderCodeBlock(lines *text.Segments) {
	r.pdf.Ln(lineGap)
	r.pdf.SetFont("Courier", "", bodySize-1)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(r.source)), "\n")
		r.pdf.CellFormat(0, lineGap, line, "", 1, "L", true, 0, "")
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.setBody()
	r.pdf.Ln(lineGap)
}
