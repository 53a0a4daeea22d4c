package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/metrics"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

// Pipeline extracts, chunks and upserts documents
type Pipeline struct {
	store   interfaces.VectorStore
	config  config.IngestConfig
	metrics *metrics.Collector
	logger  zerolog.Logger

	// extract is swapped in tests
	extract func(ctx context.Context, path string) ([]string, error)
}

// NewPipeline creates an ingest pipeline writing into store
func NewPipeline(store interfaces.VectorStore, cfg config.IngestConfig, m *metrics.Collector, logger zerolog.Logger) *Pipeline {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultMaxChars
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 96
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "chunk"
	}
	return &Pipeline{
		store:   store,
		config:  cfg,
		metrics: m,
		logger:  logger.With().Str("component", "ingest").Logger(),
		extract: ExtractPages,
	}
}

// fileResult contains the result of processing a single file
type fileResult struct {
	file   string
	chunks []string
	err    error
}

// Run ingests a file or every supported file under a directory. Files are
// extracted concurrently; record ids follow file order so re-running over
// the same input overwrites the same records.
func (p *Pipeline) Run(ctx context.Context, path string) (*interfaces.IngestStats, error) {
	start := time.Now()

	files, err := DiscoverFiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get files to process: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no supported files found in %s", path)
	}

	if err := p.store.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare index: %w", err)
	}

	stats := &interfaces.IngestStats{TotalFiles: len(files)}
	results := p.extractAll(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []interfaces.Record
	for _, res := range results {
		if res.err != nil {
			stats.FailedFiles++
			p.logger.Error().Err(res.err).Str("file", res.file).Msg("failed to process file")
			continue
		}
		stats.ProcessedFiles++
		source := filepath.Base(res.file)
		for _, chunk := range res.chunks {
			records = append(records, interfaces.Record{
				ID:       fmt.Sprintf("%s-%d", p.config.IDPrefix, len(records)),
				Text:     chunk,
				Metadata: map[string]string{"source": source},
			})
		}
		p.logger.Info().Str("file", res.file).Int("chunks", len(res.chunks)).Msg("extracted")
	}
	stats.TotalChunks = len(records)

	upserted, failed := p.Upsert(ctx, records)
	stats.Upserted = upserted
	stats.FailedRecords = failed
	stats.ProcessingTime = time.Since(start)

	p.metrics.ObserveIngest(upserted, failed)
	p.logger.Info().
		Int("files", stats.ProcessedFiles).
		Int("failed_files", stats.FailedFiles).
		Int("chunks", stats.TotalChunks).
		Int("upserted", stats.Upserted).
		Int("failed_records", stats.FailedRecords).
		Dur("duration", stats.ProcessingTime).
		Msg("ingest finished")
	return stats, ctx.Err()
}

func (p *Pipeline) extractAll(ctx context.Context, files []string) []fileResult {
	jobs := make(chan int)
	results := make([]fileResult, len(files))

	var wg sync.WaitGroup
	for w := 0; w < p.config.MaxConcurrency && w < len(files); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.processFile(ctx, files[i])
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range files {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return results
}

func (p *Pipeline) processFile(ctx context.Context, file string) fileResult {
	res := fileResult{file: file}
	pages, err := p.extract(ctx, file)
	if err != nil {
		res.err = err
		return res
	}
	res.chunks = ChunkPages(pages, p.config.ChunkSize)
	return res
}

// Upsert writes records in batches. A failed batch is retried one record at
// a time so that a single bad record does not lose its neighbours. It
// returns how many records were written and how many failed.
func (p *Pipeline) Upsert(ctx context.Context, records []interfaces.Record) (upserted, failed int) {
	for startIdx := 0; startIdx < len(records); startIdx += p.config.BatchSize {
		if ctx.Err() != nil {
			failed += len(records) - startIdx
			return upserted, failed
		}
		end := startIdx + p.config.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[startIdx:end]

		err := p.store.Upsert(ctx, batch)
		if err == nil {
			upserted += len(batch)
			p.logger.Debug().Int("records", len(batch)).Msg("batch upserted")
			continue
		}
		p.logger.Warn().Err(err).Int("records", len(batch)).Msg("batch upsert failed, falling back to single records")

		for _, rec := range batch {
			if err := p.store.Upsert(ctx, []interfaces.Record{rec}); err != nil {
				failed++
				p.logger.Error().Err(err).Str("id", rec.ID).Msg("record upsert failed")
				continue
			}
			upserted++
		}
	}
	return upserted, failed
}
