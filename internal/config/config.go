package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	DBPath             string            `json:"db_path"`
	Port               int               `json:"port"`
	LogConfig          logger.LogConfig  `json:"log_config"`
	FileStore          FileStoreConfig   `json:"file_store"`
	AI                 AIConfig          `json:"ai"`
	Languages          []string          `json:"languages"`
	Rasterizer         RasterizerConfig  `json:"rasterizer"`
	EmbedCache         EmbedCacheConfig  `json:"embed_cache"`
	CacheRetentionDays int               `json:"cache_retention_days"`
	Jobs               map[string]string `json:"jobs"`
	CORSAllowOrigins   []string          `json:"cors_allow_origins"`
}

type FileStoreConfig struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

type AIConfig struct {
	Provider       string                 `json:"provider"`
	Data           map[string]interface{} `json:"data"`
	GenerateModel  string                 `json:"generate_model"`
	OCRModel       string                 `json:"ocr_model"`
	EmbedModels    map[string]string      `json:"embed_models"`
	TimeoutSeconds int                    `json:"timeout_seconds"`
}

type RasterizerConfig struct {
	Binary string `json:"binary"`
	DPI    int    `json:"dpi"`
}

type EmbedCacheConfig struct {
	Size       int `json:"size"`
	TTLMinutes int `json:"ttl_minutes"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.GenerateModel == "" {
		return nil, fmt.Errorf("ai.generate_model is required")
	}
	if cfg.AI.OCRModel == "" {
		cfg.AI.OCRModel = cfg.AI.GenerateModel
	}
	if len(cfg.AI.EmbedModels) == 0 {
		return nil, fmt.Errorf("ai.embed_models is required")
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"es", "en"}
	}
	if cfg.EmbedCache.Size == 0 {
		cfg.EmbedCache.Size = 10000
	}
	if cfg.EmbedCache.TTLMinutes == 0 {
		cfg.EmbedCache.TTLMinutes = 120
	}
	if cfg.CacheRetentionDays == 0 {
		cfg.CacheRetentionDays = 30
	}
	return &cfg, nil
}
