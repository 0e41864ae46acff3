package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"paperdex/internal/ai"
	"paperdex/internal/cache"
	"paperdex/internal/config"
	"paperdex/internal/embedcache"
	"paperdex/internal/extract"
	"paperdex/internal/filestore"
	"paperdex/internal/handler"
	"paperdex/internal/job"
	"paperdex/internal/lang"
	"paperdex/internal/middleware"
	"paperdex/internal/ocr"
	"paperdex/internal/pipeline"
	"paperdex/internal/raster"
	"paperdex/internal/repo"
	"paperdex/internal/schedule"
	"paperdex/internal/search"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "paperdex",
		Short: "paperdex document pipeline server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run paperdex server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_path", cfg.DBPath),
		zap.String("file_store", cfg.FileStore.Type),
	)

	store, err := filestore.New(cfg.FileStore.Type, cfg.FileStore.Data)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	generator := ai.NewGenerator(provider, cfg.AI.GenerateModel)
	embedModels := make(map[lang.Language]string, len(cfg.AI.EmbedModels))
	for name, model := range cfg.AI.EmbedModels {
		embedModels[lang.Parse(name)] = model
	}
	embedder := embedcache.WrapLRU(
		ai.NewEmbedder(provider, embedModels),
		cfg.EmbedCache.Size,
		time.Duration(cfg.EmbedCache.TTLMinutes)*time.Minute,
	)

	retriever := ai.NewRetriever(embedder)
	analyzer := ai.NewAnalyzer(generator, retriever)
	ranker := search.NewRanker(embedder)

	apiKey, _ := cfg.AI.Data["api_key"].(string)
	recognizer := ocr.NewGeminiRecognizer(apiKey, cfg.AI.OCRModel)
	extractor := extract.New(recognizer, extract.WithImageInterpretation(recognizer, analyzer))
	rasterizer := raster.NewPDFToPPM(cfg.Rasterizer.Binary, cfg.Rasterizer.DPI)

	cacheRepo := repo.NewAnalysisCacheRepo(db)
	contentCache := cache.New(cacheRepo, store)

	orchestrator := pipeline.New(pipeline.Deps{
		Extractor:  extractor,
		Analyzer:   analyzer,
		Cache:      contentCache,
		Ranker:     ranker,
		Store:      store,
		Rasterizer: rasterizer,
		Languages:  cfg.Languages,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go orchestrator.Run(ctx)

	scheduler := schedule.NewCronScheduler()
	if spec, ok := cfg.Jobs["cache_retention"]; ok {
		retention := job.NewCacheRetentionJob(contentCache, cfg.CacheRetentionDays)
		if err := scheduler.AddJob(retention, spec); err != nil {
			return fmt.Errorf("schedule cache retention: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Documents: handler.NewDocumentHandler(orchestrator, store),
		Search:    handler.NewSearchHandler(orchestrator),
		Cache:     handler.NewCacheHandler(orchestrator),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
