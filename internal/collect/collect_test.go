package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmcruz/fiscaltone/internal/model"
)

func testConfig(serverURL string) model.CollectConfig {
	return model.CollectConfig{
		ListURLs:  []string{serverURL + "/p/informes/"},
		UserAgent: "fiscaltone-test/0.1",
		Timeout:   5 * time.Second,
		MaxBytes:  1 << 20,
	}
}

func fastRate() model.RateLimitConfig {
	return model.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 100}
}

func newCFServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/p/informes/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><table class="table"><tbody>
			<tr><td class="size100"><p>15/05/2023</p></td>
			<td><a href="%s/informes/informe-007/">Informe N° 007-2023-CF</a></td></tr>
			</tbody></table></body></html>`, server.URL)
	})
	mux.HandleFunc("/informes/informe-007/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<a href="%s/docs/Informe-007-2023-CF.pdf">Descargar informe</a>
			</body></html>`, server.URL)
	})
	mux.HandleFunc("/docs/Informe-007-2023-CF.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	})

	server = httptest.NewServer(mux)
	return server
}

func TestCollector_Run(t *testing.T) {
	server := newCFServer(t)
	defer server.Close()

	dir := t.TempDir()
	rawDir := filepath.Join(dir, "raw")
	metaPath := filepath.Join(dir, "metadata", "cf_metadata.json")

	c := New(testConfig(server.URL), fastRate(), rawDir, metaPath, false)

	metas, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(metas) != 1 {
		t.Fatalf("expected 1 metadata entry, got %d", len(metas))
	}
	m := metas[0]
	if m.PDFFilename != "Informe-007-2023-CF.pdf" {
		t.Errorf("unexpected filename %q", m.PDFFilename)
	}
	if m.Date != "15/05/2023" {
		t.Errorf("unexpected date %q", m.Date)
	}

	// PDF written to disk
	data, err := os.ReadFile(filepath.Join(rawDir, m.PDFFilename))
	if err != nil {
		t.Fatalf("PDF not saved: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF-") {
		t.Errorf("unexpected PDF content %q", data)
	}

	// Metadata persisted
	saved, err := LoadMetadata(metaPath)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if len(saved) != 1 {
		t.Errorf("expected 1 saved entry, got %d", len(saved))
	}
}

func TestCollector_Run_Incremental(t *testing.T) {
	server := newCFServer(t)
	defer server.Close()

	dir := t.TempDir()
	rawDir := filepath.Join(dir, "raw")
	metaPath := filepath.Join(dir, "cf_metadata.json")

	c := New(testConfig(server.URL), fastRate(), rawDir, metaPath, false)

	first, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// Second run revisits the list page but skips the known detail page
	second, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Errorf("expected 1 entry after both runs, got %d then %d", len(first), len(second))
	}
}

func TestCollector_DownloadFallback(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/p/informes/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><table class="table"><tbody>
			<tr><td class="size100"><p>01/03/2022</p></td>
			<td><a href="%s/detail/">Comunicado</a></td></tr>
			</tbody></table></body></html>`, server.URL)
	})
	mux.HandleFunc("/detail/", func(w http.ResponseWriter, r *http.Request) {
		// Primary anchor serves an HTML shell; embed holds the real PDF
		fmt.Fprintf(w, `<html><body>
			<a href="%s/viewer/comunicado.pdf">Ver</a>
			<embed src="%s/real/comunicado.pdf" type="application/pdf">
			</body></html>`, server.URL, server.URL)
	})
	mux.HandleFunc("/viewer/comunicado.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>viewer shell</html>"))
	})
	mux.HandleFunc("/real/comunicado.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 real"))
	})

	server = httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	rawDir := filepath.Join(dir, "raw")
	c := New(testConfig(server.URL), fastRate(), rawDir, filepath.Join(dir, "meta.json"), false)

	metas, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(metas) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(metas))
	}

	data, err := os.ReadFile(filepath.Join(rawDir, "comunicado.pdf"))
	if err != nil {
		t.Fatalf("fallback PDF not saved: %v", err)
	}
	if string(data) != "%PDF-1.7 real" {
		t.Errorf("expected fallback payload, got %q", data)
	}
}

func TestRemoveUnwanted(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "comunicado.pdf")
	drop := filepath.Join(dir, "Informe-anual-2017_CF_vf.pdf")
	for _, p := range []string{keep, drop} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	removed := RemoveUnwanted(dir, nil)
	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}

	if _, err := os.Stat(keep); err != nil {
		t.Errorf("expected %s to survive: %v", keep, err)
	}
	if _, err := os.Stat(drop); !os.IsNotExist(err) {
		t.Errorf("expected %s to be deleted", drop)
	}
}

func TestLoadMetadata_Missing(t *testing.T) {
	metas, err := LoadMetadata(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("expected no error for missing metadata, got %v", err)
	}
	if metas != nil {
		t.Errorf("expected nil metas, got %v", metas)
	}
}

func TestSaveAndLoadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "meta.json")

	in := []model.DocumentMeta{
		{Date: "15/05/2023", DocTitle: "Informe N° 007-2023-CF", PageURL: "p", PDFURL: "u", PDFFilename: "f.pdf"},
	}
	if err := SaveMetadata(path, in); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}

	out, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestParseListDate(t *testing.T) {
	d := parseListDate("15/05/2023")
	if d.Year() != 2023 || d.Month() != 5 || d.Day() != 15 {
		t.Errorf("unexpected parse result %v", d)
	}

	if !parseListDate("garbage").IsZero() {
		t.Error("expected zero time for unparsable date")
	}
}

func TestFetcher_DownloadPDF_RejectsHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not a pdf</html>"))
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "test", 1<<20)
	_, err := f.DownloadPDF(context.Background(), server.URL+"/doc.pdf")
	if err == nil {
		t.Fatal("expected error for HTML payload, got nil")
	}
}

func TestFetcher_DownloadPDF_AcceptsPDFMagic(t *testing.T) {
	// Some hosts serve PDFs with a generic content type
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("%PDF-1.4 payload"))
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "test", 1<<20)
	data, err := f.DownloadPDF(context.Background(), server.URL+"/doc.pdf")
	if err != nil {
		t.Fatalf("DownloadPDF failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF-") {
		t.Errorf("unexpected payload %q", data)
	}
}
