package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Rasterizer renders one page of a document file to an image. The
// rendering engine itself is platform-owned.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, pageIndex int, scale float64) ([]byte, error)
}

// Open builds a Source for a local document file based on its
// extension. Every failure is an OpenError.
func Open(path string, rasterizer Rasterizer) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return openPDF(path, rasterizer)
	case ".txt", ".md", ".markdown":
		return openText(path)
	case ".png", ".jpg", ".jpeg":
		return openImage(path)
	default:
		return nil, &OpenError{Err: fmt.Errorf("unsupported document type %q", filepath.Ext(path))}
	}
}

type pdfSource struct {
	path       string
	pages      int
	rasterizer Rasterizer
}

func openPDF(path string, rasterizer Rasterizer) (Source, error) {
	pages, err := api.PageCountFile(path)
	if err != nil {
		return nil, &OpenError{Err: err}
	}
	return &pdfSource{path: path, pages: pages, rasterizer: rasterizer}, nil
}

func (s *pdfSource) PageCount() int { return s.pages }

func (s *pdfSource) Page(index int) (Page, error) {
	if index < 0 || index >= s.pages {
		return nil, fmt.Errorf("page index %d out of range", index)
	}
	return &pdfPage{source: s, index: index}, nil
}

func (s *pdfSource) Close() error { return nil }

type pdfPage struct {
	source *pdfSource
	index  int
}

func (p *pdfPage) EmbeddedText() (string, bool) {
	// Scanned PDFs carry no reliable text layer; recognition decides.
	return "", false
}

func (p *pdfPage) Render(ctx context.Context, scale float64) ([]byte, error) {
	if p.source.rasterizer == nil {
		return nil, fmt.Errorf("no rasterizer configured")
	}
	return p.source.rasterizer.Rasterize(ctx, p.source.path, p.index, scale)
}

// textSource serves .txt and .md files as a single page of embedded
// machine-readable text.
type textSource struct {
	content string
}

func openText(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &OpenError{Err: err}
	}
	content := string(data)
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".md" || ext == ".markdown" {
		content = flattenMarkdown(data)
	}
	return &textSource{content: content}, nil
}

func (s *textSource) PageCount() int { return 1 }

func (s *textSource) Page(index int) (Page, error) {
	if index != 0 {
		return nil, fmt.Errorf("page index %d out of range", index)
	}
	return s, nil
}

func (s *textSource) Close() error { return nil }

func (s *textSource) EmbeddedText() (string, bool) { return s.content, true }

func (s *textSource) Render(ctx context.Context, scale float64) ([]byte, error) {
	return nil, fmt.Errorf("text source has no raster form")
}

// flattenMarkdown strips markup and keeps block texts separated by
// paragraph breaks, so downstream chunking sees clean boundaries.
func flattenMarkdown(source []byte) string {
	md := goldmark.New()
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		var sb strings.Builder
		_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			switch t := n.(type) {
			case *ast.Text:
				sb.Write(t.Segment.Value(source))
			case *ast.FencedCodeBlock:
				for i := 0; i < t.Lines().Len(); i++ {
					line := t.Lines().At(i)
					sb.Write(line.Value(source))
				}
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		})
		if block := strings.TrimSpace(sb.String()); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// imageSource serves a standalone raster image as one OCR-only page.
type imageSource struct {
	data []byte
}

func openImage(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &OpenError{Err: err}
	}
	return &imageSource{data: data}, nil
}

func (s *imageSource) PageCount() int { return 1 }

func (s *imageSource) Page(index int) (Page, error) {
	if index != 0 {
		return nil, fmt.Errorf("page index %d out of range", index)
	}
	return s, nil
}

func (s *imageSource) Close() error { return nil }

func (s *imageSource) EmbeddedText() (string, bool) { return "", false }

func (s *imageSource) Render(ctx context.Context, scale float64) ([]byte, error) {
	return s.data, nil
}
