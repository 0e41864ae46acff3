package ai

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"paperdex/internal/lang"
	"paperdex/internal/model"
)

const (
	// singlePassLimit is the largest text, in runes, analyzed with one
	// structured call.
	singlePassLimit = 8000
	// analysisChunkSize bounds each chunk when the text is split.
	analysisChunkSize = 6000

	summaryNoContent     = "no content"
	summaryAnalysisError = "analysis error"
)

// Analyzer turns extracted text into a structured analysis and answers
// questions over it. Analyze is a total function: every model failure
// degrades to a sentinel result. AnswerQuestion deliberately does the
// opposite and surfaces failures to the caller.
type Analyzer struct {
	gen       IGenerator
	retriever *Retriever
}

func NewAnalyzer(gen IGenerator, retriever *Retriever) *Analyzer {
	return &Analyzer{gen: gen, retriever: retriever}
}

// Analyze never fails. Empty input and model failures both map to
// sentinel analyses so the document pipeline still reaches a terminal
// success state.
func (a *Analyzer) Analyze(ctx context.Context, text string, language lang.Language) *model.Analysis {
	logger := logutil.GetLogger(ctx)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return sentinelAnalysis(summaryNoContent)
	}
	if utf8.RuneCountInString(trimmed) <= singlePassLimit {
		analysis, err := a.analyzeSingle(ctx, trimmed, language)
		if err != nil {
			logger.Warn("analysis degraded to sentinel", zap.Error(err))
			return sentinelAnalysis(summaryAnalysisError)
		}
		return analysis
	}

	chunks := SplitChunks(trimmed, analysisChunkSize)
	logger.Info("analyzing in chunks", zap.Int("chunks", len(chunks)))
	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		analysis, err := a.analyzeSingle(ctx, chunk, language)
		if err != nil {
			// A failed chunk degrades locally; the rest still count.
			logger.Warn("chunk analysis degraded", zap.Int("chunk", i), zap.Error(err))
			summaries = append(summaries, summaryAnalysisError)
			continue
		}
		summaries = append(summaries, analysis.Summary)
	}
	meta := strings.Join(summaries, "\n")
	analysis, err := a.analyzeSingle(ctx, meta, language)
	if err != nil {
		logger.Warn("meta analysis degraded to sentinel", zap.Error(err))
		return sentinelAnalysis(summaryAnalysisError)
	}
	return analysis
}

func (a *Analyzer) analyzeSingle(ctx context.Context, text string, language lang.Language) (*model.Analysis, error) {
	if a.gen == nil {
		return nil, ErrUnavailable
	}
	result, err := a.gen.GenerateStructured(ctx, analysisPrompt(text, language))
	if err != nil {
		return nil, err
	}
	return &model.Analysis{
		Summary:  strings.TrimSpace(result.Summary),
		Category: model.ParseCategory(result.Category),
		Tags:     model.NormalizeTags(result.Tags),
	}, nil
}

// AnswerQuestion answers strictly from a retrieved context. Unlike
// Analyze, any capability failure propagates to the caller.
func (a *Analyzer) AnswerQuestion(ctx context.Context, text, question string, language lang.Language) (string, error) {
	if strings.TrimSpace(question) == "" {
		return emptyQuestionMessage(language), nil
	}
	if a.gen == nil {
		return "", ErrUnavailable
	}
	contextText := text
	if a.retriever != nil {
		contextText = a.retriever.Context(ctx, text, question, language)
	}
	answer, err := a.gen.Generate(ctx, questionPrompt(contextText, question, language))
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// InterpretImageDescription turns classifier labels for one page image
// into a short interpretation line. A failed model call falls back to
// the literal "not available" variant of the required format.
func (a *Analyzer) InterpretImageDescription(ctx context.Context, labels []string, language lang.Language, pageIndex, imageIndex int) string {
	page, image := pageIndex+1, imageIndex+1
	if a.gen != nil {
		out, err := a.gen.Generate(ctx, interpretationPrompt(labels, language, page, image))
		if err == nil && strings.TrimSpace(out) != "" {
			return strings.TrimSpace(out)
		}
		logutil.GetLogger(ctx).Warn("image interpretation degraded",
			zap.Int("page", page), zap.Int("image", image), zap.Error(err))
	}
	if language == lang.English {
		return fmt.Sprintf("Page %d, image %d interpretation: Not available", page, image)
	}
	return fmt.Sprintf("Página %d, imagen %d interpretación: No disponible", page, image)
}

func sentinelAnalysis(summary string) *model.Analysis {
	return &model.Analysis{
		Summary:  summary,
		Category: model.CategoryOtro,
		Tags:     []string{},
	}
}

func emptyQuestionMessage(language lang.Language) string {
	if language == lang.English {
		return "Please enter a question about the document."
	}
	return "Por favor, escribe una pregunta sobre el documento."
}

func categoryList() string {
	cats := model.Categories()
	labels := make([]string, 0, len(cats))
	for _, c := range cats {
		labels = append(labels, c.Label())
	}
	return strings.Join(labels, ", ")
}

func analysisPrompt(text string, language lang.Language) string {
	if language == lang.English {
		return fmt.Sprintf(`You are a document analysis assistant.
Analyze the document below and reply with a single JSON object:
{"summary": "...", "category": "...", "tags": ["..."]}
- "summary": 5-7 lines covering the key points.
- "category": exactly one of: %s.
- "tags": 3 to 8 short lowercase keywords.
- Reply with JSON only, no extra text.

DOCUMENT:
%s`, categoryList(), text)
	}
	return fmt.Sprintf(`Eres un asistente de análisis de documentos.
Analiza el documento siguiente y responde con un único objeto JSON:
{"summary": "...", "category": "...", "tags": ["..."]}
- "summary": 5-7 líneas con los puntos clave.
- "category": exactamente una de: %s.
- "tags": de 3 a 8 palabras clave cortas en minúsculas.
- Responde solo con el JSON, sin texto adicional.

DOCUMENTO:
%s`, categoryList(), text)
}

func questionPrompt(contextText, question string, language lang.Language) string {
	if language == lang.English {
		return fmt.Sprintf(`Answer the question using ONLY the context below.
If the answer is not in the context, say explicitly that the document does not contain it.
Reply in the same language as the question, with no preamble.

CONTEXT:
%s

QUESTION:
%s`, contextText, question)
	}
	return fmt.Sprintf(`Responde a la pregunta usando SOLO el contexto siguiente.
Si la respuesta no está en el contexto, dilo explícitamente.
Responde en el mismo idioma que la pregunta, sin preámbulos.

CONTEXTO:
%s

PREGUNTA:
%s`, contextText, question)
}

func interpretationPrompt(labels []string, language lang.Language, page, image int) string {
	joined := strings.Join(labels, ", ")
	if joined == "" {
		joined = "-"
	}
	if language == lang.English {
		return fmt.Sprintf(`An image on a scanned document page was classified with these labels: %s.
Write one short sentence interpreting what the image likely shows.
Use EXACTLY this output format and nothing else:
Page %d, image %d interpretation: <text>`, joined, page, image)
	}
	return fmt.Sprintf(`Una imagen en una página de documento escaneado se clasificó con estas etiquetas: %s.
Escribe una frase corta interpretando qué muestra probablemente la imagen.
Usa EXACTAMENTE este formato de salida y nada más:
Página %d, imagen %d interpretación: <texto>`, joined, page, image)
}
