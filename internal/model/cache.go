package model

// CacheEntry is keyed by the sha256 digest of the document's raw bytes,
// never by its name or path. Entries are immutable; reprocessing deletes
// and rewrites.
type CacheEntry struct {
	ContentHash string    `json:"content_hash"`
	Text        string    `json:"extracted_text"`
	Analysis    *Analysis `json:"analysis"`
	Ctime       int64     `json:"ctime"`
}
