package model

type Status string

const (
	StatusIdle      Status = "idle"
	StatusOCR       Status = "ocr"
	StatusAnalyzing Status = "analyzing"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// Terminal reports whether the status allows no further transitions
// short of an explicit reprocess.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// DocumentRecord is owned by the pipeline orchestrator; all mutation
// happens on its coordinating goroutine.
type DocumentRecord struct {
	ID         string    `json:"id"`
	StorageKey string    `json:"storage_key"`
	Title      string    `json:"title"`
	Status     Status    `json:"status"`
	Progress   float64   `json:"progress"`
	Text       string    `json:"text,omitempty"`
	Analysis   *Analysis `json:"analysis,omitempty"`
	ErrMessage string    `json:"error,omitempty"`
	IsCached   bool      `json:"is_cached"`
	Ctime      int64     `json:"ctime"`
}

func (r *DocumentRecord) Clone() *DocumentRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Analysis = r.Analysis.Clone()
	return &clone
}

// RankedResult pairs a document with its combined search score. It is
// transient view state, never persisted.
type RankedResult struct {
	Document *DocumentRecord `json:"document"`
	Score    float64         `json:"score"`
}
