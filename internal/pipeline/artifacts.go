package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/jmcruz/fiscaltone/internal/model"
	"github.com/jmcruz/fiscaltone/internal/util"
)

// Artifact subdirectories under the output directory. Each stage writes one
// JSON file per source PDF so a failed document never corrupts the rest of
// the corpus, and any stage can be re-run from the previous stage's files.
const (
	rawDirName      = "raw_text"
	cleanDirName    = "clean_text"
	removalsDirName = "removals"
	scoresDirName   = "scores"
)

// ArtifactStore reads and writes the per-document JSON artifacts of every
// pipeline stage.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates a store rooted at dir.
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

// Dir returns the store's root directory.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// stem derives the artifact base name from a PDF filename.
func stem(pdfFilename string) string {
	base := filepath.Base(pdfFilename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *ArtifactStore) path(subdir, pdfFilename, suffix string) string {
	return filepath.Join(s.dir, subdir, stem(pdfFilename)+suffix)
}

func (s *ArtifactStore) write(path string, v any) error {
	data, err := sonic.ConfigDefault.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := util.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *ArtifactStore) read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// WriteRaw persists the extraction artifact for one PDF.
func (s *ArtifactStore) WriteRaw(pdfFilename string, records []model.PageRecord) error {
	return s.write(s.path(rawDirName, pdfFilename, ".json"), records)
}

// LoadRaw reads the extraction artifact for one PDF.
func (s *ArtifactStore) LoadRaw(pdfFilename string) ([]model.PageRecord, error) {
	var records []model.PageRecord
	if err := s.read(s.path(rawDirName, pdfFilename, ".json"), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// WriteClean persists the cleaned artifact for one PDF.
func (s *ArtifactStore) WriteClean(pdfFilename string, records []model.CleanRecord) error {
	return s.write(s.path(cleanDirName, pdfFilename, ".json"), records)
}

// LoadClean reads the cleaned artifact for one PDF.
func (s *ArtifactStore) LoadClean(pdfFilename string) ([]model.CleanRecord, error) {
	var records []model.CleanRecord
	if err := s.read(s.path(cleanDirName, pdfFilename, ".json"), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// WriteRemovals persists the removal audit trail for one PDF: the full
// removal list plus the aggregated summary alongside it.
func (s *ArtifactStore) WriteRemovals(pdfFilename string, removals []model.Removal, summary model.RemovalSummary) error {
	if err := s.write(s.path(removalsDirName, pdfFilename, ".json"), removals); err != nil {
		return err
	}
	return s.write(s.path(removalsDirName, pdfFilename, ".summary.json"), summary)
}

// LoadRemovalSummary reads the removal summary for one PDF.
func (s *ArtifactStore) LoadRemovalSummary(pdfFilename string) (model.RemovalSummary, error) {
	var summary model.RemovalSummary
	err := s.read(s.path(removalsDirName, pdfFilename, ".summary.json"), &summary)
	return summary, err
}

// WriteScores persists the classification artifact for one PDF.
func (s *ArtifactStore) WriteScores(pdfFilename string, records []model.ScoreRecord) error {
	return s.write(s.path(scoresDirName, pdfFilename, ".json"), records)
}

// LoadScores reads the classification artifact for one PDF.
func (s *ArtifactStore) LoadScores(pdfFilename string) ([]model.ScoreRecord, error) {
	var records []model.ScoreRecord
	if err := s.read(s.path(scoresDirName, pdfFilename, ".json"), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListRaw returns the stems of every raw extraction artifact, sorted.
func (s *ArtifactStore) ListRaw() ([]string, error) {
	return s.list(rawDirName)
}

// ListClean returns the stems of every cleaned artifact, sorted. The clean
// and classify stages iterate these so they can run long after extraction.
func (s *ArtifactStore) ListClean() ([]string, error) {
	return s.list(cleanDirName)
}

func (s *ArtifactStore) list(subdir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, subdir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var stems []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasSuffix(e.Name(), ".summary.json") {
			continue
		}
		stems = append(stems, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(stems)
	return stems, nil
}
