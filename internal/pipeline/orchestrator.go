package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"paperdex/internal/ai"
	"paperdex/internal/cache"
	"paperdex/internal/extract"
	"paperdex/internal/filestore"
	"paperdex/internal/lang"
	"paperdex/internal/model"
	"paperdex/internal/search"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrNotReady = errors.New("document not ready")
	ErrStopped  = errors.New("orchestrator stopped")
)

// ImportRef points at one imported document in the file store.
type ImportRef struct {
	StorageKey string
	Title      string
}

type Deps struct {
	Extractor  *extract.Extractor
	Analyzer   *ai.Analyzer
	Cache      *cache.ContentCache
	Ranker     *search.Ranker
	Store      filestore.Store
	Rasterizer extract.Rasterizer
	Languages  []string
}

type runHandle struct {
	token  string
	cancel context.CancelFunc
}

// Orchestrator owns every DocumentRecord and the ranked view. All
// mutation happens on the single goroutine running Run; other
// goroutines communicate by posting closures, never by sharing state.
type Orchestrator struct {
	deps Deps

	cmds    chan func()
	stopped chan struct{}
	base    context.Context

	docs  map[string]*model.DocumentRecord
	order []string
	runs  map[string]runHandle

	query        string
	searchGen    uint64
	searchCancel context.CancelFunc
	ranked       []*model.RankedResult
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:    deps,
		cmds:    make(chan func()),
		stopped: make(chan struct{}),
		docs:    make(map[string]*model.DocumentRecord),
		runs:    make(map[string]runHandle),
	}
}

// Run executes commands until ctx is cancelled. It must be running for
// any other method to make progress.
func (o *Orchestrator) Run(ctx context.Context) {
	o.base = ctx
	for {
		select {
		case fn := <-o.cmds:
			fn()
		case <-ctx.Done():
			close(o.stopped)
			for _, h := range o.runs {
				h.cancel()
			}
			if o.searchCancel != nil {
				o.searchCancel()
			}
			return
		}
	}
}

func (o *Orchestrator) post(fn func()) error {
	select {
	case o.cmds <- fn:
		return nil
	case <-o.stopped:
		return ErrStopped
	}
}

func (o *Orchestrator) sync(fn func()) error {
	done := make(chan struct{})
	if err := o.post(func() {
		fn()
		close(done)
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-o.stopped:
		return ErrStopped
	}
}

// Import registers one record per reference and starts its pipeline.
func (o *Orchestrator) Import(ctx context.Context, refs []ImportRef) ([]string, error) {
	_ = ctx
	ids := make([]string, 0, len(refs))
	err := o.sync(func() {
		for _, ref := range refs {
			rec := &model.DocumentRecord{
				ID:         uuid.NewString(),
				StorageKey: ref.StorageKey,
				Title:      ref.Title,
				Status:     model.StatusIdle,
				Ctime:      time.Now().Unix(),
			}
			o.docs[rec.ID] = rec
			o.order = append(o.order, rec.ID)
			ids = append(ids, rec.ID)
			o.startPipelineLocked(rec.ID, false)
		}
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Reprocess invalidates the cache entry for the document and forces a
// fresh run, bypassing the cache-hit shortcut.
func (o *Orchestrator) Reprocess(ctx context.Context, id string) error {
	_ = ctx
	var found bool
	err := o.sync(func() {
		if _, ok := o.docs[id]; !ok {
			return
		}
		found = true
		o.startPipelineLocked(id, true)
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// ClearCache empties the persistent store and marks every record as no
// longer cached, leaving text/analysis/status untouched.
func (o *Orchestrator) ClearCache(ctx context.Context) error {
	o.deps.Cache.ClearAll(ctx)
	return o.sync(func() {
		for _, rec := range o.docs {
			rec.IsCached = false
		}
	})
}

// SetQuery replaces the active query and recomputes the ranked view,
// cancelling any still-running previous ranking.
func (o *Orchestrator) SetQuery(ctx context.Context, query string) error {
	_ = ctx
	return o.sync(func() {
		o.query = query
		o.recomputeRankedLocked()
	})
}

// Documents returns a snapshot of the collection in insertion order.
func (o *Orchestrator) Documents(ctx context.Context) ([]*model.DocumentRecord, error) {
	_ = ctx
	var out []*model.DocumentRecord
	err := o.sync(func() {
		out = make([]*model.DocumentRecord, 0, len(o.order))
		for _, id := range o.order {
			out = append(out, o.docs[id].Clone())
		}
	})
	return out, err
}

func (o *Orchestrator) Document(ctx context.Context, id string) (*model.DocumentRecord, error) {
	_ = ctx
	var rec *model.DocumentRecord
	err := o.sync(func() {
		rec = o.docs[id].Clone()
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Ranked returns the current ranked view for the active query; with no
// query it is the whole collection in insertion order. Every record is
// cloned, so callers may mutate the results freely.
func (o *Orchestrator) Ranked(ctx context.Context) ([]*model.RankedResult, string, error) {
	_ = ctx
	var out []*model.RankedResult
	var query string
	err := o.sync(func() {
		query = o.query
		if strings.TrimSpace(o.query) == "" {
			out = make([]*model.RankedResult, 0, len(o.order))
			for _, id := range o.order {
				out = append(out, &model.RankedResult{Document: o.docs[id].Clone()})
			}
			return
		}
		out = make([]*model.RankedResult, 0, len(o.ranked))
		for _, r := range o.ranked {
			out = append(out, &model.RankedResult{Document: r.Document.Clone(), Score: r.Score})
		}
	})
	return out, query, err
}

// AnswerQuestion runs QA over one processed document's text on the
// caller's goroutine. Failures surface; they are never absorbed the way
// analysis failures are.
func (o *Orchestrator) AnswerQuestion(ctx context.Context, id, question string) (string, error) {
	var text string
	var status model.Status
	var found bool
	err := o.sync(func() {
		rec, ok := o.docs[id]
		if !ok {
			return
		}
		found = true
		text = rec.Text
		status = rec.Status
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotFound
	}
	if status != model.StatusDone || strings.TrimSpace(text) == "" {
		return "", ErrNotReady
	}
	return o.deps.Analyzer.AnswerQuestion(ctx, text, question, lang.Detect(text))
}

// startPipelineLocked runs on the coordinating goroutine. A still
// running pipeline for the same document is cancelled first.
func (o *Orchestrator) startPipelineLocked(id string, forced bool) {
	rec, ok := o.docs[id]
	if !ok {
		return
	}
	if h, ok := o.runs[id]; ok {
		h.cancel()
	}
	runCtx, cancel := context.WithCancel(o.base)
	token := uuid.NewString()
	o.runs[id] = runHandle{token: token, cancel: cancel}
	go o.runPipeline(runCtx, token, id, rec.StorageKey, forced)
}

// postRun applies a record mutation only while its run is still the
// active one; updates from superseded runs are discarded on arrival.
func (o *Orchestrator) postRun(token, id string, fn func(rec *model.DocumentRecord)) {
	_ = o.post(func() {
		h, ok := o.runs[id]
		if !ok || h.token != token {
			return
		}
		rec, ok := o.docs[id]
		if !ok {
			return
		}
		fn(rec)
	})
}

func (o *Orchestrator) finishRunLocked(id string) {
	if h, ok := o.runs[id]; ok {
		h.cancel()
		delete(o.runs, id)
	}
}

func (o *Orchestrator) failRun(token, id, message string) {
	o.postRun(token, id, func(rec *model.DocumentRecord) {
		rec.Status = model.StatusError
		rec.ErrMessage = message
		o.finishRunLocked(id)
	})
}

// runPipeline executes cache-check -> extract -> analyze -> persist on
// a background goroutine, reporting every state change back to the
// coordinating goroutine.
func (o *Orchestrator) runPipeline(ctx context.Context, token, id, key string, forced bool) {
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", id))

	if forced {
		o.deps.Cache.Invalidate(ctx, key)
	} else if entry := o.deps.Cache.Load(ctx, key); entry != nil {
		logger.Info("cache hit", zap.String("content_hash", entry.ContentHash))
		o.postRun(token, id, func(rec *model.DocumentRecord) {
			rec.Status = model.StatusDone
			rec.Progress = 1
			rec.IsCached = true
			rec.Text = entry.Text
			rec.Analysis = entry.Analysis
			rec.ErrMessage = ""
			o.finishRunLocked(id)
			o.recomputeRankedLocked()
		})
		return
	}

	o.postRun(token, id, func(rec *model.DocumentRecord) {
		rec.Status = model.StatusOCR
		rec.Progress = 0
		rec.IsCached = false
		rec.ErrMessage = ""
		rec.Text = ""
		rec.Analysis = nil
	})

	path, release, err := o.materialize(ctx, key)
	if err != nil {
		logger.Error("content access failed", zap.Error(err))
		o.failRun(token, id, (&extract.OpenError{Err: err}).Error())
		return
	}
	defer release()

	src, err := extract.Open(path, o.deps.Rasterizer)
	if err != nil {
		logger.Error("open document failed", zap.Error(err))
		o.failRun(token, id, err.Error())
		return
	}
	defer src.Close()

	progress := make(chan float64)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		for p := range progress {
			v := p
			o.postRun(token, id, func(rec *model.DocumentRecord) {
				if v > rec.Progress {
					rec.Progress = v
				}
			})
		}
	}()

	text, err := o.deps.Extractor.Extract(ctx, src, o.deps.Languages, progress)
	<-relayDone
	if err != nil {
		logger.Error("extraction failed", zap.Error(err))
		o.failRun(token, id, err.Error())
		return
	}

	o.postRun(token, id, func(rec *model.DocumentRecord) {
		rec.Status = model.StatusAnalyzing
		rec.Text = text
	})

	analysis := o.deps.Analyzer.Analyze(ctx, text, lang.Detect(text))
	if err := ctx.Err(); err != nil {
		o.failRun(token, id, err.Error())
		return
	}

	o.postRun(token, id, func(rec *model.DocumentRecord) {
		rec.Analysis = analysis
		rec.Status = model.StatusDone
		rec.Progress = 1
		o.finishRunLocked(id)
		o.recomputeRankedLocked()
	})

	o.deps.Cache.Save(ctx, key, text, analysis)
	logger.Info("document processed", zap.Int("text_len", len(text)), zap.String("category", analysis.Category.Label()))
}

// materialize copies the stored content to a temp file so page-level
// tooling can address it. The returned release removes it on every exit
// path.
func (o *Orchestrator) materialize(ctx context.Context, key string) (string, func(), error) {
	r, err := o.deps.Store.Open(ctx, key)
	if err != nil {
		return "", nil, err
	}
	defer r.Close()

	tmp, err := os.CreateTemp("", "paperdex-*"+filepath.Ext(key))
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

// recomputeRankedLocked implements latest-request-wins: bumping the
// generation makes any in-flight ranking stale, and stale results are
// dropped on arrival rather than published.
func (o *Orchestrator) recomputeRankedLocked() {
	o.searchGen++
	gen := o.searchGen
	if o.searchCancel != nil {
		o.searchCancel()
		o.searchCancel = nil
	}
	query := strings.TrimSpace(o.query)
	if query == "" {
		o.ranked = nil
		return
	}
	snapshot := make([]*model.DocumentRecord, 0, len(o.order))
	for _, id := range o.order {
		snapshot = append(snapshot, o.docs[id].Clone())
	}
	rankCtx, cancel := context.WithCancel(o.base)
	o.searchCancel = cancel
	go func() {
		results := o.deps.Ranker.Rank(rankCtx, query, snapshot)
		if rankCtx.Err() != nil {
			return
		}
		_ = o.post(func() {
			if gen != o.searchGen {
				return
			}
			o.ranked = results
		})
	}()
}
