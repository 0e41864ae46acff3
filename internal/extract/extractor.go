package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"paperdex/internal/lang"
)

// Page is one page of an opened document.
type Page interface {
	// EmbeddedText returns machine-readable text when the page carries
	// it; recognition is skipped entirely in that case.
	EmbeddedText() (string, bool)
	Render(ctx context.Context, scale float64) ([]byte, error)
}

// Source is an opened multi-page document. Close releases the
// underlying content access.
type Source interface {
	PageCount() int
	Page(index int) (Page, error)
	Close() error
}

// Recognizer is the OCR capability: accurate mode with language
// correction under the given hints.
type Recognizer interface {
	RecognizeText(ctx context.Context, image []byte, languageHints []string) (string, error)
}

// Classifier labels an image, best-effort.
type Classifier interface {
	ClassifyImage(ctx context.Context, image []byte) ([]string, error)
}

// Interpreter turns classifier labels into a one-line page annotation.
type Interpreter interface {
	InterpretImageDescription(ctx context.Context, labels []string, language lang.Language, pageIndex, imageIndex int) string
}

type OpenError struct {
	Err error
}

func (e *OpenError) Error() string { return fmt.Sprintf("open document: %v", e.Err) }
func (e *OpenError) Unwrap() error { return e.Err }

type PageError struct {
	Index int
	Err   error
}

func (e *PageError) Error() string { return fmt.Sprintf("page %d: %v", e.Index+1, e.Err) }
func (e *PageError) Unwrap() error { return e.Err }

type RenderError struct {
	Index int
	Err   error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render page %d: %v", e.Index+1, e.Err) }
func (e *RenderError) Unwrap() error { return e.Err }

type RecognitionError struct {
	Index int
	Err   error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognize page %d: %v", e.Index+1, e.Err)
}
func (e *RecognitionError) Unwrap() error { return e.Err }

const defaultRenderScale = 2.0

type Option func(*Extractor)

// WithImageInterpretation lets pages whose recognition comes back empty
// degrade to a classification-based annotation instead of staying blank.
func WithImageInterpretation(classifier Classifier, interpreter Interpreter) Option {
	return func(e *Extractor) {
		e.classifier = classifier
		e.interpreter = interpreter
	}
}

func WithRenderScale(scale float64) Option {
	return func(e *Extractor) {
		if scale > 0 {
			e.renderScale = scale
		}
	}
}

// Extractor turns a multi-page document into a single text blob,
// streaming per-page progress. Any page failure is terminal for the
// whole document; no partial text survives a failure.
type Extractor struct {
	recognizer  Recognizer
	classifier  Classifier
	interpreter Interpreter
	renderScale float64
}

func New(recognizer Recognizer, opts ...Option) *Extractor {
	e := &Extractor{recognizer: recognizer, renderScale: defaultRenderScale}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract walks the pages in order, appending text in page order and
// emitting (index+1)/pageCount on progress after each page. The
// progress channel is closed exactly once, on success, failure, or
// cancellation. Cancellation is checked before each page.
func (e *Extractor) Extract(ctx context.Context, src Source, languageHints []string, progress chan<- float64) (string, error) {
	if progress != nil {
		defer close(progress)
	}
	logger := logutil.GetLogger(ctx)
	total := src.PageCount()
	if total <= 0 {
		return "", &OpenError{Err: fmt.Errorf("document has no pages")}
	}
	language := languageFromHints(languageHints)

	var sb strings.Builder
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page, err := src.Page(i)
		if err != nil {
			return "", &PageError{Index: i, Err: err}
		}
		text, ok := page.EmbeddedText()
		if !ok {
			text, err = e.recognizePage(ctx, page, i, language, languageHints)
			if err != nil {
				return "", err
			}
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)

		if progress != nil {
			select {
			case progress <- float64(i+1) / float64(total):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		logger.Debug("page extracted", zap.Int("page", i+1), zap.Int("total", total), zap.Bool("embedded", ok))
	}
	return sb.String(), nil
}

func (e *Extractor) recognizePage(ctx context.Context, page Page, index int, language lang.Language, hints []string) (string, error) {
	image, err := page.Render(ctx, e.renderScale)
	if err != nil {
		return "", &RenderError{Index: index, Err: err}
	}
	text, err := e.recognizer.RecognizeText(ctx, image, hints)
	if err != nil {
		return "", &RecognitionError{Index: index, Err: err}
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	// A text-free page may still carry a meaningful picture.
	if e.classifier != nil && e.interpreter != nil {
		labels, cerr := e.classifier.ClassifyImage(ctx, image)
		if cerr != nil {
			logutil.GetLogger(ctx).Warn("image classification failed", zap.Int("page", index+1), zap.Error(cerr))
			return text, nil
		}
		return e.interpreter.InterpretImageDescription(ctx, labels, language, index, 0), nil
	}
	return text, nil
}

func languageFromHints(hints []string) lang.Language {
	if len(hints) == 0 {
		return lang.Default
	}
	return lang.Parse(hints[0])
}
