package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"paperdex/internal/lang"
)

type fakePage struct {
	embedded    string
	hasEmbedded bool
	image       []byte
	renderErr   error
}

func (p *fakePage) EmbeddedText() (string, bool) {
	return p.embedded, p.hasEmbedded
}

func (p *fakePage) Render(ctx context.Context, scale float64) ([]byte, error) {
	if p.renderErr != nil {
		return nil, p.renderErr
	}
	return p.image, nil
}

type fakeSource struct {
	pages   []*fakePage
	pageErr map[int]error
	closed  bool
}

func (s *fakeSource) PageCount() int { return len(s.pages) }

func (s *fakeSource) Page(index int) (Page, error) {
	if err := s.pageErr[index]; err != nil {
		return nil, err
	}
	return s.pages[index], nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fakeRecognizer struct {
	recognize func(image []byte) (string, error)
}

func (r *fakeRecognizer) RecognizeText(ctx context.Context, image []byte, hints []string) (string, error) {
	return r.recognize(image)
}

type fakeClassifier struct {
	labels []string
	err    error
}

func (c *fakeClassifier) ClassifyImage(ctx context.Context, image []byte) ([]string, error) {
	return c.labels, c.err
}

type fakeInterpreter struct{}

func (fakeInterpreter) InterpretImageDescription(ctx context.Context, labels []string, language lang.Language, pageIndex, imageIndex int) string {
	return fmt.Sprintf("anotación página %d: %v", pageIndex+1, labels)
}

func TestExtract_PageOrderAndProgress(t *testing.T) {
	src := &fakeSource{pages: []*fakePage{
		{image: []byte("p1")},
		{image: []byte("p2")},
		{image: []byte("p3")},
		{image: []byte("p4")},
	}}
	recognizer := &fakeRecognizer{recognize: func(image []byte) (string, error) {
		return "texto " + string(image), nil
	}}
	extractor := New(recognizer)

	progress := make(chan float64)
	var values []float64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for v := range progress {
			values = append(values, v)
		}
	}()

	text, err := extractor.Extract(context.Background(), src, []string{"es"}, progress)
	<-done
	require.NoError(t, err)
	require.Equal(t, "texto p1\n\ntexto p2\n\ntexto p3\n\ntexto p4", text)

	require.Equal(t, []float64{0.25, 0.5, 0.75, 1.0}, values)
	for i := 1; i < len(values); i++ {
		require.Greater(t, values[i], values[i-1])
	}
}

func TestExtract_EmbeddedTextSkipsRecognition(t *testing.T) {
	src := &fakeSource{pages: []*fakePage{
		{embedded: "texto embebido", hasEmbedded: true},
	}}
	recognizer := &fakeRecognizer{recognize: func([]byte) (string, error) {
		t.Fatal("recognizer must not be called for embedded text")
		return "", nil
	}}
	extractor := New(recognizer)

	text, err := extractor.Extract(context.Background(), src, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "texto embebido", text)
}

func TestExtract_NoPagesIsOpenError(t *testing.T) {
	src := &fakeSource{}
	extractor := New(&fakeRecognizer{recognize: func([]byte) (string, error) { return "", nil }})

	_, err := extractor.Extract(context.Background(), src, nil, nil)
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
}

func TestExtract_RenderFailureCarriesPageIndex(t *testing.T) {
	src := &fakeSource{pages: []*fakePage{
		{image: []byte("ok")},
		{renderErr: errors.New("raster crashed")},
	}}
	recognizer := &fakeRecognizer{recognize: func([]byte) (string, error) { return "texto", nil }}
	extractor := New(recognizer)

	progress := make(chan float64, 8)
	_, err := extractor.Extract(context.Background(), src, nil, progress)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	require.Equal(t, 1, renderErr.Index)

	// Terminal close even on failure.
	_, open := <-progress
	require.True(t, open)
	_, open = <-progress
	require.False(t, open)
}

func TestExtract_RecognitionFailureCarriesPageIndex(t *testing.T) {
	src := &fakeSource{pages: []*fakePage{
		{image: []byte("bad")},
	}}
	recognizer := &fakeRecognizer{recognize: func([]byte) (string, error) {
		return "", errors.New("ocr down")
	}}
	extractor := New(recognizer)

	_, err := extractor.Extract(context.Background(), src, nil, nil)
	var recErr *RecognitionError
	require.ErrorAs(t, err, &recErr)
	require.Equal(t, 0, recErr.Index)
}

func TestExtract_PageAccessFailure(t *testing.T) {
	src := &fakeSource{
		pages:   []*fakePage{{image: []byte("p1")}, {image: []byte("p2")}},
		pageErr: map[int]error{1: errors.New("corrupt page")},
	}
	recognizer := &fakeRecognizer{recognize: func([]byte) (string, error) { return "texto", nil }}
	extractor := New(recognizer)

	_, err := extractor.Extract(context.Background(), src, nil, nil)
	var pageErr *PageError
	require.ErrorAs(t, err, &pageErr)
	require.Equal(t, 1, pageErr.Index)
}

func TestExtract_CancellationBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{pages: []*fakePage{
		{image: []byte("p1")},
		{image: []byte("p2")},
	}}
	recognizer := &fakeRecognizer{recognize: func(image []byte) (string, error) {
		cancel()
		return "texto", nil
	}}
	extractor := New(recognizer)

	progress := make(chan float64, 8)
	_, err := extractor.Extract(ctx, src, nil, progress)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtract_EmptyRecognitionDegradesToInterpretation(t *testing.T) {
	src := &fakeSource{pages: []*fakePage{
		{image: []byte("photo-only")},
	}}
	recognizer := &fakeRecognizer{recognize: func([]byte) (string, error) {
		return "   ", nil
	}}
	extractor := New(recognizer, WithImageInterpretation(&fakeClassifier{labels: []string{"foto", "paisaje"}}, fakeInterpreter{}))

	text, err := extractor.Extract(context.Background(), src, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "anotación página 1: [foto paisaje]", text)
}

func TestExtract_ClassificationFailureKeepsEmptyPage(t *testing.T) {
	src := &fakeSource{pages: []*fakePage{
		{image: []byte("photo-only")},
	}}
	recognizer := &fakeRecognizer{recognize: func([]byte) (string, error) {
		return "", nil
	}}
	extractor := New(recognizer, WithImageInterpretation(&fakeClassifier{err: errors.New("down")}, fakeInterpreter{}))

	text, err := extractor.Extract(context.Background(), src, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "", text)
}
