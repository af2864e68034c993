package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
	"github.com/creditrust/credirag/internal/core/ports/driving"
	"github.com/creditrust/credirag/internal/logger"
)

// Ensure IndexBuilderService implements the interface.
var _ driving.IndexBuilder = (*IndexBuilderService)(nil)

// IndexBuilderConfig holds the build parameters.
type IndexBuilderConfig struct {
	Corpus   domain.CorpusSettings
	Ingest   domain.IngestSettings
	Chunking domain.ChunkingSettings

	// OutputPath is where the index is saved unless the request overrides it.
	OutputPath string
}

// IndexBuilderService turns the complaint corpus into a persisted vector index.
type IndexBuilderService struct {
	loader     driven.CorpusLoader
	normaliser driven.Normaliser
	segmenter  driven.PostProcessorPipeline
	embedder   driven.EmbeddingService
	store      driven.IndexStore
	validate   *validator.Validate
	cfg        IndexBuilderConfig
	now        func() time.Time
}

// NewIndexBuilder creates an index builder.
func NewIndexBuilder(
	loader driven.CorpusLoader,
	normaliser driven.Normaliser,
	segmenter driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	store driven.IndexStore,
	cfg IndexBuilderConfig,
) *IndexBuilderService {
	if cfg.Ingest.BatchSize <= 0 {
		cfg.Ingest.BatchSize = 32
	}
	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = 1
	}
	return &IndexBuilderService{
		loader:     loader,
		normaliser: normaliser,
		segmenter:  segmenter,
		embedder:   embedder,
		store:      store,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		cfg:        cfg,
		now:        time.Now,
	}
}

// Build runs load, filter, normalise, segment, embed, index and save.
// Rejected rows are counted in the report; an empty result is an IngestionError.
func (b *IndexBuilderService) Build(ctx context.Context, req driving.BuildRequest) (*domain.BuildReport, error) {
	started := b.now()

	corpusPath := cmp.Or(req.CorpusPath, b.cfg.Corpus.Path)
	outputPath := cmp.Or(req.OutputPath, b.cfg.OutputPath)
	if outputPath == "" {
		return nil, fmt.Errorf("%w: no index output path", domain.ErrInvalidInput)
	}
	sample := b.cfg.Corpus.Sample
	if req.Sample > 0 {
		sample = req.Sample
	}

	report := &domain.BuildReport{
		Path:     outputPath,
		Rejected: make(map[domain.RejectReason]int),
	}
	progress := newProgress(req.Progress)

	logger.Section("Index Build")
	logger.Debug("corpus=%s output=%s sample=%d", corpusPath, outputPath, sample)

	// Load
	progress.report(domain.StageLoad, 0, 0)
	stop := logger.Timed("load corpus")
	records, err := b.loader.Load(ctx, corpusPath)
	stop()
	if err != nil {
		return nil, err
	}
	report.Rows = len(records)
	progress.report(domain.StageLoad, len(records), len(records))

	admitted := b.admit(records, report)
	if sample > 0 {
		admitted = stratifiedSample(admitted, sample, report)
	}

	// Normalise and segment
	var chunks []domain.Chunk
	for i, rec := range admitted {
		doc, err := b.normaliser.Normalise(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("normalise complaint %s: %w", rec.ID, err)
		}

		docChunks, err := b.segmenter.Process(ctx, doc)
		if errors.Is(err, domain.ErrEmptyDocument) {
			report.Rejected[domain.RejectEmptyAfterClean]++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("segment complaint %s: %w", rec.ID, err)
		}

		report.Accepted++
		chunks = append(chunks, docChunks...)
		progress.report(domain.StageSegment, i+1, len(admitted))
	}

	if report.Accepted == 0 {
		return nil, &domain.IngestionError{
			Source: corpusPath,
			Reason: fmt.Sprintf("no documents left to index (%d rows read, %d rejected)", report.Rows, report.RejectedTotal()),
		}
	}
	logger.Info("Segmented %d complaints into %d chunks", report.Accepted, len(chunks))

	// Embed
	vectors, err := b.embedAll(ctx, chunks, progress)
	if err != nil {
		return nil, err
	}

	// Index
	progress.report(domain.StageIndex, 0, len(chunks))
	items := make([]domain.IndexItem, len(chunks))
	for i := range chunks {
		items[i] = domain.IndexItem{Chunk: chunks[i], Vector: vectors[i]}
	}

	manifest := domain.IndexManifest{
		ID:             uuid.New().String(),
		Backend:        b.store.Backend(),
		EmbeddingModel: b.embedder.ModelName(),
		Dimensions:     b.embedder.Dimensions(),
		BuiltAt:        b.now().UTC(),
		ChunkSize:      b.cfg.Chunking.Size,
		ChunkOverlap:   b.cfg.Chunking.Overlap,
		DocumentCount:  report.Accepted,
		ChunkCount:     len(items),
	}

	idx, err := b.store.Build(ctx, manifest, items)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	defer idx.Close()
	progress.report(domain.StageIndex, len(chunks), len(chunks))

	// Save
	progress.report(domain.StageSave, 0, 1)
	if err := idx.Save(ctx, outputPath); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}
	progress.report(domain.StageSave, 1, 1)

	report.Manifest = idx.Manifest()
	report.Duration = b.now().Sub(started)

	logger.Info("Index %s saved to %s in %s", report.Manifest.ID, outputPath, report.Duration.Round(time.Millisecond))
	return report, nil
}

// admit validates records and applies the row filters in file order.
func (b *IndexBuilderService) admit(records []domain.CorpusRecord, report *domain.BuildReport) []domain.CorpusRecord {
	seen := make(map[string]bool, len(records))
	admitted := make([]domain.CorpusRecord, 0, len(records))

	for _, rec := range records {
		rec.ID = strings.TrimSpace(rec.ID)
		rec.Category = strings.TrimSpace(rec.Category)

		if err := b.validate.Struct(rec); err != nil {
			logger.Debug("row %d rejected: %v", rec.Row, err)
			report.Rejected[domain.RejectInvalidRecord]++
			continue
		}
		if seen[rec.ID] {
			report.Rejected[domain.RejectDuplicateID]++
			continue
		}
		seen[rec.ID] = true

		if strings.TrimSpace(rec.Narrative) == "" {
			report.Rejected[domain.RejectEmptyNarrative]++
			continue
		}
		if !b.categoryAllowed(rec.Category) {
			report.Rejected[domain.RejectCategory]++
			continue
		}
		admitted = append(admitted, rec)
	}
	return admitted
}

func (b *IndexBuilderService) categoryAllowed(category string) bool {
	if len(b.cfg.Corpus.Categories) == 0 {
		return true
	}
	return slices.ContainsFunc(b.cfg.Corpus.Categories, func(c string) bool {
		return strings.EqualFold(strings.TrimSpace(c), category)
	})
}

// embedAll embeds chunk texts in batches on a bounded worker pool.
// Output order matches chunks; any batch failure fails the whole build.
func (b *IndexBuilderService) embedAll(ctx context.Context, chunks []domain.Chunk, progress *progressReporter) ([][]float32, error) {
	size := b.cfg.Ingest.BatchSize
	vectors := make([][]float32, len(chunks))
	dims := b.embedder.Dimensions()

	var mu sync.Mutex
	done := 0
	progress.report(domain.StageEmbed, 0, len(chunks))

	stop := logger.Timed("embed chunks")
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Ingest.Workers)

	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))

		g.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = chunks[start+i].Text
			}

			vecs, err := b.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return b.embedError(fmt.Errorf("chunks %d-%d: %w", start, end-1, err))
			}
			if len(vecs) != len(texts) {
				return b.embedError(fmt.Errorf("chunks %d-%d: got %d vectors for %d texts", start, end-1, len(vecs), len(texts)))
			}
			for i, v := range vecs {
				if len(v) != dims {
					return &domain.DimensionMismatchError{
						IndexModel:         b.embedder.ModelName(),
						IndexDimensions:    dims,
						ProviderModel:      b.embedder.ModelName(),
						ProviderDimensions: len(v),
					}
				}
				vectors[start+i] = v
			}

			mu.Lock()
			done += len(vecs)
			progress.report(domain.StageEmbed, done, len(chunks))
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (b *IndexBuilderService) embedError(err error) error {
	var perr *domain.EmbeddingProviderError
	if errors.As(err, &perr) {
		return err
	}
	return &domain.EmbeddingProviderError{Provider: b.embedder.ModelName(), Op: "embed batch", Err: err}
}

// stratifiedSample keeps n records with category proportions preserved
// (largest remainder). Selection within a category is by ID hash, so the
// same corpus always yields the same sample. File order is kept.
func stratifiedSample(records []domain.CorpusRecord, n int, report *domain.BuildReport) []domain.CorpusRecord {
	if n >= len(records) {
		return records
	}

	groups := make(map[string][]int)
	var categories []string
	for i, rec := range records {
		if _, ok := groups[rec.Category]; !ok {
			categories = append(categories, rec.Category)
		}
		groups[rec.Category] = append(groups[rec.Category], i)
	}

	type share struct {
		category  string
		quota     int
		remainder float64
	}
	shares := make([]share, len(categories))
	allocated := 0
	for i, c := range categories {
		exact := float64(n) * float64(len(groups[c])) / float64(len(records))
		quota := int(exact)
		shares[i] = share{category: c, quota: quota, remainder: exact - float64(quota)}
		allocated += quota
	}

	byRemainder := slices.Clone(shares)
	slices.SortStableFunc(byRemainder, func(a, b share) int { return cmp.Compare(b.remainder, a.remainder) })
	extra := make(map[string]int)
	for i := 0; allocated < n && i < len(byRemainder); i++ {
		extra[byRemainder[i].category]++
		allocated++
	}

	var keep []int
	for _, s := range shares {
		idxs := slices.Clone(groups[s.category])
		slices.SortStableFunc(idxs, func(a, b int) int {
			return cmp.Compare(xxhash.Sum64String(records[a].ID), xxhash.Sum64String(records[b].ID))
		})
		keep = append(keep, idxs[:s.quota+extra[s.category]]...)
	}
	slices.Sort(keep)

	out := make([]domain.CorpusRecord, len(keep))
	for i, idx := range keep {
		out[i] = records[idx]
	}
	report.Rejected[domain.RejectSampled] += len(records) - len(out)
	return out
}

// progressReporter forwards progress to an optional callback.
type progressReporter struct {
	fn func(domain.BuildProgress)
}

func newProgress(fn func(domain.BuildProgress)) *progressReporter {
	return &progressReporter{fn: fn}
}

func (p *progressReporter) report(stage domain.BuildStage, done, total int) {
	if p.fn != nil {
		p.fn(domain.BuildProgress{Stage: stage, Done: done, Total: total})
	}
}
