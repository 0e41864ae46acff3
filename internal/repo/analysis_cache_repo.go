package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"paperdex/internal/model"
)

const analysisCacheTable = "analysis_cache"

type AnalysisCacheRepo struct {
	db *sqlx.DB
}

func NewAnalysisCacheRepo(db *sqlx.DB) *AnalysisCacheRepo {
	return &AnalysisCacheRepo{db: db}
}

func (r *AnalysisCacheRepo) Get(ctx context.Context, contentHash string) (*model.CacheEntry, bool, error) {
	where := map[string]interface{}{
		"content_hash": contentHash,
	}
	sqlStr, args, err := builder.BuildSelect(analysisCacheTable, where, []string{"content_hash", "extracted_text", "analysis", "ctime"})
	if err != nil {
		return nil, false, err
	}
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var entry model.CacheEntry
	var analysisBlob []byte
	if err := row.Scan(&entry.ContentHash, &entry.Text, &analysisBlob, &entry.Ctime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if err := json.Unmarshal(analysisBlob, &entry.Analysis); err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

func (r *AnalysisCacheRepo) Save(ctx context.Context, entry *model.CacheEntry) error {
	analysisBlob, err := json.Marshal(entry.Analysis)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"content_hash":   entry.ContentHash,
		"extracted_text": entry.Text,
		"analysis":       analysisBlob,
		"ctime":          entry.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert(analysisCacheTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr = strings.Replace(sqlStr, "INSERT INTO", "INSERT OR REPLACE INTO", 1)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *AnalysisCacheRepo) Delete(ctx context.Context, contentHash string) error {
	where := map[string]interface{}{
		"content_hash": contentHash,
	}
	sqlStr, args, err := builder.BuildDelete(analysisCacheTable, where)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *AnalysisCacheRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM "+analysisCacheTable)
	return err
}

func (r *AnalysisCacheRepo) DeleteOlderThan(ctx context.Context, beforeUnix int64) (int64, error) {
	where := map[string]interface{}{
		"ctime <": beforeUnix,
	}
	sqlStr, args, err := builder.BuildDelete(analysisCacheTable, where)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
