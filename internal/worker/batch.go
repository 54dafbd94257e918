package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmcruz/fiscaltone/internal/model"
)

// Processor defines the interface for running the full pipeline over one PDF
type Processor interface {
	ProcessDocument(ctx context.Context, path string) (*model.DocumentReport, error)
}

// DocumentJob represents one PDF to push through the pipeline
type DocumentJob struct {
	Path      string
	Processor Processor
}

// Execute executes the document job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	report, err := j.Processor.ProcessDocument(ctx, j.Path)
	if err != nil {
		return &DocumentResult{
			Path:   j.Path,
			Report: nil,
			Error:  err,
		}
	}
	return &DocumentResult{
		Path:   j.Path,
		Report: report,
		Error:  nil,
	}
}

// DocumentResult represents the result of a document job. A failed document
// carries its error here; it never aborts the rest of the batch.
type DocumentResult struct {
	Path   string
	Report *model.DocumentReport
	Error  error
}

// GetError returns the error from the document result
func (r *DocumentResult) GetError() error {
	return r.Error
}

// BatchProcessor processes multiple PDFs concurrently
type BatchProcessor struct {
	processor   Processor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// ProcessPaths processes multiple PDF paths concurrently
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*DocumentResult {
	if len(paths) == 0 {
		return []*DocumentResult{}
	}

	// Create worker pool
	pool := NewPool(b.concurrency)
	pool.Start()

	// Submit jobs
	for _, path := range paths {
		job := &DocumentJob{
			Path:      path,
			Processor: b.processor,
		}
		pool.Submit(job)
	}

	// Wait for all jobs to complete
	results := pool.Wait()

	// Convert to DocumentResults
	docResults := make([]*DocumentResult, len(results))
	for i, result := range results {
		docResults[i] = result.(*DocumentResult)
	}

	return docResults
}

// ProcessDir processes every PDF in a directory concurrently
func (b *BatchProcessor) ProcessDir(ctx context.Context, dir string) ([]*DocumentResult, error) {
	paths, err := ListPDFs(dir)
	if err != nil {
		return nil, fmt.Errorf("list PDFs: %w", err)
	}

	return b.ProcessPaths(ctx, paths), nil
}

// ProcessFile reads PDF paths from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*DocumentResult, error) {
	paths, err := ReadPathsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read paths: %w", err)
	}

	return b.ProcessPaths(ctx, paths), nil
}

// ListPDFs returns the sorted .pdf entries of a directory
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// ReadPathsFromFile reads PDF paths from a file (one per line)
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate paths
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
