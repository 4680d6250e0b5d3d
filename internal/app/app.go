package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/perquire/internal/common"
	"github.com/ternarybob/perquire/internal/interfaces"
	"github.com/ternarybob/perquire/internal/models"
	"github.com/ternarybob/perquire/internal/services/chunker"
	"github.com/ternarybob/perquire/internal/services/extractor"
	"github.com/ternarybob/perquire/internal/services/index"
	"github.com/ternarybob/perquire/internal/services/llm"
	"github.com/ternarybob/perquire/internal/services/pipeline"
	badgerstore "github.com/ternarybob/perquire/internal/storage/badger"
)

// indexHandle holds the active vector index. Refresh builds a replacement
// index and swaps the pointer; in-flight queries keep using the index they
// started with.
type indexHandle struct {
	current atomic.Pointer[index.Index]
}

func (h *indexHandle) Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	idx := h.current.Load()
	if idx == nil {
		return nil, fmt.Errorf("index not ready")
	}
	return idx.Retrieve(ctx, query, k)
}

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Fetcher   interfaces.ContentFetcher
	Splitter  *chunker.Splitter
	Embedder  interfaces.EmbeddingService
	Generator interfaces.GenerationService
	Pipeline  *pipeline.Service

	ChunkStorage interfaces.ChunkStorage
	db           *badgerstore.BadgerDB

	handle    indexHandle
	ingestMu  sync.Mutex
	scheduler *cron.Cron
}

// New initializes the application: services, optional chunk persistence, the
// initial index build and the refresh scheduler. It returns once the index is
// ready to serve queries.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	a.Fetcher = extractor.NewService(cfg.Sources, logger)

	splitter, err := chunker.NewSplitter(cfg.Chunking, logger)
	if err != nil {
		return nil, err
	}
	a.Splitter = splitter

	embedder, generator, err := llm.NewServices(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Embedder = embedder
	a.Generator = generator
	logger.Debug().
		Str("provider", generator.ProviderName()).
		Str("model", generator.ModelName()).
		Str("embed_model", embedder.ModelName()).
		Msg("LLM services initialized")

	if cfg.Storage.Badger.Enabled {
		if err := a.initStorage(); err != nil {
			return nil, err
		}
	}

	if err := a.initIndex(ctx); err != nil {
		a.closeQuietly()
		return nil, err
	}

	pipe, err := pipeline.NewService(&a.handle, a.Generator, cfg.Prompt.Template, cfg.Retrieval.TopK, logger)
	if err != nil {
		a.closeQuietly()
		return nil, err
	}
	a.Pipeline = pipe

	if cfg.Refresh.Enabled {
		if err := a.startScheduler(); err != nil {
			a.closeQuietly()
			return nil, err
		}
	}

	logger.Info().
		Int("chunks", a.IndexSize()).
		Str("provider", generator.ProviderName()).
		Msg("Application initialization complete")

	return a, nil
}

// initStorage opens the Badger-backed chunk store
func (a *App) initStorage() error {
	db, err := badgerstore.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.db = db

	storage, err := badgerstore.NewChunkStorage(db, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize chunk storage: %w", err)
	}
	a.ChunkStorage = storage

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initIndex builds the first index, preferring persisted chunks over a fresh
// ingestion when the store holds a usable snapshot.
func (a *App) initIndex(ctx context.Context) error {
	if a.ChunkStorage != nil {
		idx, err := a.loadPersistedIndex()
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Persisted chunks unusable, re-ingesting sources")
		} else if idx != nil {
			a.handle.current.Store(idx)
			a.Logger.Info().Int("chunks", idx.Size()).Msg("Index restored from storage")
			return nil
		}
	}

	return a.Ingest(ctx)
}

// loadPersistedIndex reconstructs an index from stored chunks. Returns
// (nil, nil) when the store is empty; the caller falls back to ingestion.
func (a *App) loadPersistedIndex() (*index.Index, error) {
	count, err := a.ChunkStorage.Count()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	chunks, err := a.ChunkStorage.LoadChunks()
	if err != nil {
		return nil, err
	}

	// A snapshot embedded with a different model cannot be reused
	for _, c := range chunks {
		if c.EmbeddingModel != a.Embedder.ModelName() {
			return nil, fmt.Errorf("stored chunks embedded with %q, configured model is %q",
				c.EmbeddingModel, a.Embedder.ModelName())
		}
	}

	return index.FromEmbedded(a.Embedder, chunks, a.Logger)
}

// Ingest runs the full build path: fetch sources, chunk, embed, swap in the
// new index and persist the snapshot. The previous index serves queries until
// the swap. Builds are serialized so the scheduler and a manual reindex can
// never interleave the swap-and-persist step.
func (a *App) Ingest(ctx context.Context) error {
	a.ingestMu.Lock()
	defer a.ingestMu.Unlock()

	start := time.Now()

	docs, err := a.Fetcher.Fetch(ctx, a.Config.Sources.Locations, a.Config.Sources.ContentSelector)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("ingestion produced no documents from %d source(s)", len(a.Config.Sources.Locations))
	}

	chunks := a.Splitter.Split(docs)
	if len(chunks) == 0 {
		return fmt.Errorf("ingestion produced no chunks from %d document(s)", len(docs))
	}

	idx, err := index.Build(ctx, a.Embedder, chunks, a.Logger)
	if err != nil {
		return err
	}

	a.handle.current.Store(idx)

	if a.ChunkStorage != nil {
		if err := a.ChunkStorage.Clear(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to clear chunk store before snapshot")
		} else if err := a.ChunkStorage.SaveChunks(idx.Chunks()); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to persist chunk snapshot")
		}
	}

	a.Logger.Info().
		Int("documents", len(docs)).
		Int("chunks", len(chunks)).
		Str("elapsed", time.Since(start).Round(time.Millisecond).String()).
		Msg("Index built")
	return nil
}

// startScheduler registers the refresh job. Schedules use 6-field cron
// expressions with a seconds column.
func (a *App) startScheduler() error {
	a.scheduler = cron.New(cron.WithSeconds())

	_, err := a.scheduler.AddFunc(a.Config.Refresh.Schedule, func() {
		a.Logger.Info().Str("schedule", a.Config.Refresh.Schedule).Msg("Scheduled refresh starting")
		if err := a.Ingest(context.Background()); err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduled refresh failed, previous index retained")
		}
	})
	if err != nil {
		return common.NewConfigError("invalid refresh.schedule %q: %v", a.Config.Refresh.Schedule, err)
	}

	a.scheduler.Start()
	a.Logger.Debug().Str("schedule", a.Config.Refresh.Schedule).Msg("Refresh scheduler started")
	return nil
}

// Ask answers a single question against the current index
func (a *App) Ask(ctx context.Context, question string) (*models.Answer, error) {
	return a.Pipeline.Answer(ctx, question)
}

// IndexSize returns the number of chunks in the active index
func (a *App) IndexSize() int {
	idx := a.handle.current.Load()
	if idx == nil {
		return 0
	}
	return idx.Size()
}

// Close closes all application resources
func (a *App) Close() error {
	if a.scheduler != nil {
		stopCtx := a.scheduler.Stop()
		<-stopCtx.Done()
		a.Logger.Debug().Msg("Refresh scheduler stopped")
	}

	if a.Generator != nil {
		if err := a.Generator.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close generation service")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Debug().Msg("Storage closed")
	}

	return nil
}

func (a *App) closeQuietly() {
	if err := a.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Cleanup after failed startup reported an error")
	}
}
