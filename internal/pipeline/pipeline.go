// Package pipeline orchestrates the document stages: open a PDF, pick the
// extraction path, reconstruct paragraphs, clean them, optionally classify
// them, and persist one artifact per stage. The pipeline owns no heuristics
// itself; every decision lives in the stage packages.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmcruz/fiscaltone/internal/cache"
	"github.com/jmcruz/fiscaltone/internal/cleaner"
	"github.com/jmcruz/fiscaltone/internal/layout"
	"github.com/jmcruz/fiscaltone/internal/llm"
	"github.com/jmcruz/fiscaltone/internal/locate"
	"github.com/jmcruz/fiscaltone/internal/model"
	"github.com/jmcruz/fiscaltone/internal/ocr"
	"github.com/jmcruz/fiscaltone/internal/paragraph"
	"github.com/jmcruz/fiscaltone/internal/pdf"
	"github.com/jmcruz/fiscaltone/internal/score"
	"github.com/jmcruz/fiscaltone/internal/worker"
)

// Pipeline runs the full processing chain over single documents. It
// implements worker.Processor, so a BatchProcessor can drive it over a
// whole corpus.
type Pipeline struct {
	cfg       *model.Config
	locator   *locate.Locator
	builder   *paragraph.Builder
	cleaner   *cleaner.Cleaner
	scorer    *score.Scorer
	artifacts *ArtifactStore

	// The OCR engine needs a Tesseract installation, so it is created on
	// first use; editable-only corpora never touch it.
	ocrOnce sync.Once
	ocrEng  *ocr.Engine
	ocrErr  error
}

// New creates a pipeline from the given configuration. A misconfigured LLM
// provider disables classification with a warning rather than failing the
// whole pipeline; extraction and cleaning still run.
func New(cfg *model.Config) (*Pipeline, error) {
	locator, err := locate.New(cfg.Locator)
	if err != nil {
		return nil, fmt.Errorf("locator: %w", err)
	}

	var scorer *score.Scorer
	if cfg.LLM.Provider != "" {
		provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ llm provider disabled: %v\n", err)
		} else if provider != nil {
			scorer = score.NewScorer(provider, cfg.RateLimiting, cfg.Concurrency.ClassifyWorkers)
		}
	}

	return &Pipeline{
		cfg:       cfg,
		locator:   locator,
		builder:   paragraph.NewBuilder(cfg.Extraction),
		cleaner:   cleaner.New(cfg.Cleaner),
		scorer:    scorer,
		artifacts: NewArtifactStore(cfg.Output.Dir),
	}, nil
}

// Artifacts returns the pipeline's artifact store.
func (p *Pipeline) Artifacts() *ArtifactStore {
	return p.artifacts
}

// Classifying reports whether an LLM provider is configured.
func (p *Pipeline) Classifying() bool {
	return p.scorer != nil
}

// Close releases the OCR engine if one was created.
func (p *Pipeline) Close() error {
	if p.ocrEng != nil {
		return p.ocrEng.Close()
	}
	return nil
}

// ProcessDocument runs every stage over one PDF and persists the artifacts.
// It satisfies worker.Processor.
func (p *Pipeline) ProcessDocument(ctx context.Context, path string) (*model.DocumentReport, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer doc.Close()

	pageCount, err := doc.PageCount()
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}

	editable, err := doc.IsEditable(p.cfg.Extraction.MinEditableTextLen)
	if err != nil {
		return nil, fmt.Errorf("probe text layer: %w", err)
	}

	var (
		records []model.PageRecord
		match   model.KeywordMatch
	)
	if editable {
		records, match, err = p.extractEditable(doc)
	} else {
		records, match, err = p.extractScanned(ctx, doc, pageCount)
	}
	if err != nil {
		return nil, err
	}

	cleanRecords, removals := p.cleaner.Clean(records)
	summary := cleaner.Summarize(removals, p.cfg.Cleaner.MinParagraphLen)

	name := doc.Filename()
	if err := p.artifacts.WriteRaw(name, records); err != nil {
		return nil, err
	}
	if err := p.artifacts.WriteClean(name, cleanRecords); err != nil {
		return nil, err
	}
	if err := p.artifacts.WriteRemovals(name, removals, summary); err != nil {
		return nil, err
	}

	if p.scorer != nil {
		scores := p.scorer.ScoreRecords(ctx, cleanRecords)
		if err := p.artifacts.WriteScores(name, scores); err != nil {
			return nil, err
		}
		if failed := score.Failed(scores); failed > 0 {
			fmt.Fprintf(os.Stderr, "✗ %s: %d paragraphs failed classification\n", name, failed)
		}
	}

	report := &model.DocumentReport{
		PDFFilename:     name,
		Editable:        editable,
		PageCount:       pageCount,
		KeywordPage:     match.Page,
		KeywordFound:    match.Found,
		RawParagraphs:   countParagraphs(records),
		CleanParagraphs: len(cleanRecords),
		Removals:        len(removals),
	}

	if p.cfg.Output.Verbose {
		mode := "scanned"
		if editable {
			mode = "editable"
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%s): %d pages, %d paragraphs kept, %d removed\n",
			name, mode, pageCount, report.CleanParagraphs, report.Removals)
	}

	return report, nil
}

// ClassifyArtifact re-runs the classification stage over one previously
// cleaned artifact, identified by its stem. It lets scoring run long after
// extraction without re-opening the PDFs.
func (p *Pipeline) ClassifyArtifact(ctx context.Context, stem string) ([]model.ScoreRecord, error) {
	if p.scorer == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	cleanRecords, err := p.artifacts.LoadClean(stem)
	if err != nil {
		return nil, fmt.Errorf("load cleaned artifact: %w", err)
	}

	scores := p.scorer.ScoreRecords(ctx, cleanRecords)
	if err := p.artifacts.WriteScores(stem, scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// CleanArtifact re-runs the cleaning stage over one raw extraction artifact,
// identified by its stem. Threshold changes can be replayed over the whole
// corpus without re-opening a single PDF.
func (p *Pipeline) CleanArtifact(stem string) ([]model.CleanRecord, []model.Removal, error) {
	records, err := p.artifacts.LoadRaw(stem)
	if err != nil {
		return nil, nil, fmt.Errorf("load raw artifact: %w", err)
	}

	cleanRecords, removals := p.cleaner.Clean(records)
	summary := cleaner.Summarize(removals, p.cfg.Cleaner.MinParagraphLen)

	if err := p.artifacts.WriteClean(stem, cleanRecords); err != nil {
		return nil, nil, err
	}
	if err := p.artifacts.WriteRemovals(stem, removals, summary); err != nil {
		return nil, nil, err
	}
	return cleanRecords, removals, nil
}

// extractEditable runs the word-based path: positioned words feed the
// keyword locator, then the paragraph builder.
func (p *Pipeline) extractEditable(doc *pdf.Document) ([]model.PageRecord, model.KeywordMatch, error) {
	pages, err := doc.Pages()
	if err != nil {
		return nil, model.KeywordMatch{}, fmt.Errorf("extract words: %w", err)
	}
	match := p.locator.Find(pages)
	return p.builder.Build(pages, match), match, nil
}

// extractScanned runs the image path: render, binarize, strip the header and
// footer bands, then OCR. Page images are pulled sequentially (the reader is
// not safe for concurrent page access); decoding, layout detection, and OCR
// run on the page worker pool. The keyword locator needs positioned words,
// so scanned documents are processed in full.
func (p *Pipeline) extractScanned(ctx context.Context, doc *pdf.Document, pageCount int) ([]model.PageRecord, model.KeywordMatch, error) {
	eng, err := p.engine()
	if err != nil {
		return nil, model.KeywordMatch{}, err
	}

	pageImages := make([][][]byte, pageCount)
	for i := 0; i < pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, model.KeywordMatch{}, err
		}
		images, err := doc.PageImages(i)
		if err != nil {
			return nil, model.KeywordMatch{}, err
		}
		pageImages[i] = images
	}

	pool := worker.NewPool(p.cfg.Concurrency.PageWorkers)
	pool.Start()
	for i, images := range pageImages {
		pool.Submit(&pageJob{pipe: p, eng: eng, index: i, images: images})
	}

	texts := make([]string, pageCount)
	for _, res := range pool.Wait() {
		pr := res.(*pageResult)
		if pr.err != nil {
			return nil, model.KeywordMatch{}, fmt.Errorf("%s: page %d: %w", doc.Filename(), pr.index+1, pr.err)
		}
		texts[pr.index] = pr.text
	}

	var records []model.PageRecord
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		records = append(records, model.PageRecord{
			PDFFilename: doc.Filename(),
			Page:        i + 1,
			Text:        text,
		})
	}
	return records, model.NoMatch(), nil
}

type pageJob struct {
	pipe   *Pipeline
	eng    *ocr.Engine
	index  int
	images [][]byte
}

type pageResult struct {
	index int
	text  string
	err   error
}

func (r *pageResult) GetError() error { return r.err }

// Execute recognizes one page's images. Layout detection runs in parallel
// across pages; the shared Tesseract client serializes the OCR calls.
func (j *pageJob) Execute(ctx context.Context) worker.Result {
	var parts []string
	for _, data := range j.images {
		text, err := j.pipe.recognizeImage(j.eng, data)
		if err != nil {
			return &pageResult{index: j.index, err: err}
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return &pageResult{index: j.index, text: strings.Join(parts, "\n\n")}
}

// recognizeImage crops one page image to its body band and OCRs it.
func (p *Pipeline) recognizeImage(eng *ocr.Engine, data []byte) (string, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode page image: %w", err)
	}

	gray := layout.Binarize(img, layout.OtsuThreshold(img))
	top := layout.DetectHeader(gray, p.cfg.Detector)
	bottom := layout.DetectFooter(gray, p.cfg.Detector)
	body := layout.CropVertical(gray, top, bottom)

	var buf bytes.Buffer
	if err := png.Encode(&buf, body); err != nil {
		return "", fmt.Errorf("encode body band: %w", err)
	}

	text, err := eng.Recognize(buf.Bytes())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *Pipeline) engine() (*ocr.Engine, error) {
	p.ocrOnce.Do(func() {
		p.ocrEng, p.ocrErr = ocr.New(p.cfg.OCR, cacheFor(p.cfg.Cache))
	})
	return p.ocrEng, p.ocrErr
}

// cacheFor builds the OCR result cache. With no explicit directory the cache
// lives under the user's home; when that cannot be resolved results are still
// cached in memory for the life of the run.
func cacheFor(cfg model.CacheConfig) cache.Cache {
	if !cfg.Enabled {
		return cache.Noop{}
	}
	dir := cfg.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cache.NewMemoryCache(cfg.TTL, 10*time.Minute)
		}
		dir = filepath.Join(home, ".fiscaltone", "cache")
	}
	return cache.NewLayeredCache(10*time.Minute, dir, cfg.TTL)
}

func countParagraphs(records []model.PageRecord) int {
	n := 0
	for _, r := range records {
		n += len(paragraph.SplitOCR(r.Text))
	}
	return n
}
