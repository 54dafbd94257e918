package pipeline

import (
	"context"
	"testing"

	"github.com/jmcruz/fiscaltone/internal/cache"
	"github.com/jmcruz/fiscaltone/internal/model"
)

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.LLM.Provider = ""
	cfg.Cache.Enabled = false
	return cfg
}

func TestNew(t *testing.T) {
	p, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	if p.Classifying() {
		t.Error("expected classification disabled without a provider")
	}
}

func TestNew_BadLocatorPattern(t *testing.T) {
	cfg := testConfig(t)
	cfg.Locator.Patterns = []string{"(unclosed"}

	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for invalid locator pattern")
	}
}

func TestClassifyArtifact_NoProvider(t *testing.T) {
	p, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	if _, err := p.ClassifyArtifact(context.Background(), "whatever"); err == nil {
		t.Fatal("expected error without an LLM provider")
	}
}

func TestCleanArtifact(t *testing.T) {
	p, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	long := "El Consejo Fiscal considera que la política fiscal debe mantenerse prudente durante el horizonte de proyección."
	raw := []model.PageRecord{
		{PDFFilename: "informe.pdf", Page: 2, Text: long + "\n\nCorto."},
	}
	if err := p.Artifacts().WriteRaw("informe.pdf", raw); err != nil {
		t.Fatalf("WriteRaw failed: %v", err)
	}

	cleanRecords, removals, err := p.CleanArtifact("informe")
	if err != nil {
		t.Fatalf("CleanArtifact failed: %v", err)
	}
	if len(cleanRecords) != 1 || cleanRecords[0].Text != long {
		t.Errorf("unexpected cleaned records: %+v", cleanRecords)
	}
	if len(removals) != 1 || removals[0].Text != "Corto." {
		t.Errorf("unexpected removals: %+v", removals)
	}

	// Both downstream artifacts must exist afterwards.
	if _, err := p.Artifacts().LoadClean("informe"); err != nil {
		t.Errorf("cleaned artifact missing: %v", err)
	}
	if _, err := p.Artifacts().LoadRemovalSummary("informe"); err != nil {
		t.Errorf("removal summary missing: %v", err)
	}
}

func TestCleanArtifact_MissingRaw(t *testing.T) {
	p, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	if _, _, err := p.CleanArtifact("never-extracted"); err == nil {
		t.Fatal("expected error for missing raw artifact")
	}
}

func TestCountParagraphs(t *testing.T) {
	records := []model.PageRecord{
		{Page: 1, Text: "Primero.\n\nSegundo."},
		{Page: 2, Text: "Tercero."},
		{Page: 3, Text: "   "},
	}

	if got := countParagraphs(records); got != 3 {
		t.Errorf("countParagraphs = %d, want 3", got)
	}
}

func TestCacheFor(t *testing.T) {
	if _, ok := cacheFor(model.CacheConfig{Enabled: false}).(cache.Noop); !ok {
		t.Error("disabled cache must be a no-op")
	}

	c := cacheFor(model.CacheConfig{Enabled: true, Dir: t.TempDir()})
	if _, ok := c.(cache.Noop); ok {
		t.Error("enabled cache must not be a no-op")
	}
}
