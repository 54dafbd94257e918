// Package collect scrapes the Consejo Fiscal site (cf.gob.pe), resolves the
// PDF behind each publication page, and downloads new documents into the raw
// corpus. Metadata is saved after every download so interrupted runs resume
// instead of re-scraping.
package collect

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jmcruz/fiscaltone/internal/model"
	"github.com/jmcruz/fiscaltone/internal/util"
	"github.com/jmcruz/fiscaltone/internal/worker"
)

// UnwantedPDFs are annual statistical reports that carry no opinion text.
var UnwantedPDFs = []string{
	"Informe-anual-2017_CF_vf.pdf",
	"Informe-anual-del-Consejo-Fiscal-2018-version-final1.pdf",
}

// Collector drives the scrape-and-download stage.
type Collector struct {
	fetcher  *Fetcher
	robots   *util.RobotsChecker
	limiter  *worker.Limiter
	cfg      model.CollectConfig
	rawDir   string
	metaPath string
	verbose  bool
}

// New creates a Collector writing PDFs to rawDir and metadata to metaPath.
func New(cfg model.CollectConfig, rl model.RateLimitConfig, rawDir, metaPath string, verbose bool) *Collector {
	return &Collector{
		fetcher:  NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.MaxBytes),
		robots:   util.NewRobotsChecker(cfg.UserAgent, cfg.Timeout),
		limiter:  worker.NewLimiter(rl.RequestsPerSecond, rl.BurstSize),
		cfg:      cfg,
		rawDir:   rawDir,
		metaPath: metaPath,
		verbose:  verbose,
	}
}

// Run scrapes every configured list page, downloads new PDFs, and returns the
// complete metadata set. Individual document failures are logged and skipped.
func (c *Collector) Run(ctx context.Context) ([]model.DocumentMeta, error) {
	metas, err := LoadMetadata(c.metaPath)
	if err != nil {
		return nil, err
	}

	knownPages := make(map[string]bool)
	knownPDFs := make(map[string]bool)
	for _, m := range metas {
		if m.PageURL != "" {
			knownPages[m.PageURL] = true
		}
		if m.PDFURL != "" {
			knownPDFs[m.PDFURL] = true
		}
	}

	var discovered []model.DocumentMeta
	for _, listURL := range c.cfg.ListURLs {
		found, err := c.scrapeList(ctx, listURL, knownPages)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ scrape %s: %v\n", listURL, err)
			continue
		}
		discovered = append(discovered, found...)
	}

	var toDownload []model.DocumentMeta
	for _, m := range discovered {
		if m.PDFURL != "" && !knownPDFs[m.PDFURL] {
			toDownload = append(toDownload, m)
			knownPDFs[m.PDFURL] = true
		}
	}

	if len(toDownload) == 0 {
		fmt.Fprintf(os.Stderr, "✓ no new documents, metadata unchanged (%d entries)\n", len(metas))
		return metas, nil
	}

	// Oldest first, so a partial run extends the corpus chronologically
	sort.SliceStable(toDownload, func(i, j int) bool {
		return parseListDate(toDownload[i].Date).Before(parseListDate(toDownload[j].Date))
	})

	fmt.Fprintf(os.Stderr, "✓ found %d new documents\n", len(toDownload))

	if err := os.MkdirAll(c.rawDir, 0o755); err != nil {
		return nil, fmt.Errorf("create raw dir: %w", err)
	}

	for i, m := range toDownload {
		if err := ctx.Err(); err != nil {
			return metas, err
		}

		if err := c.download(ctx, m); err != nil {
			fmt.Fprintf(os.Stderr, "✗ [%d/%d] %s: %v\n", i+1, len(toDownload), m.PDFFilename, err)
		} else {
			fmt.Fprintf(os.Stderr, "✓ [%d/%d] %s\n", i+1, len(toDownload), m.PDFFilename)
		}

		// Metadata records the attempt either way; failed URLs can be
		// retried by deleting their entry.
		metas = append(metas, m)
		if err := SaveMetadata(c.metaPath, metas); err != nil {
			return metas, err
		}
	}

	return metas, nil
}

// scrapeList fetches one list page and resolves PDF URLs for rows whose
// detail pages have not been visited before.
func (c *Collector) scrapeList(ctx context.Context, listURL string, knownPages map[string]bool) ([]model.DocumentMeta, error) {
	allowed, crawlDelay, err := c.robots.CanFetch(ctx, listURL)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("disallowed by robots.txt")
	}

	if err := c.limiter.WaitWithDelay(ctx, listURL, crawlDelay); err != nil {
		return nil, err
	}

	doc, err := c.fetcher.FetchHTML(ctx, listURL)
	if err != nil {
		return nil, err
	}

	entries, err := ParseListPage(doc)
	if err != nil {
		return nil, err
	}

	var metas []model.DocumentMeta
	for _, entry := range entries {
		if knownPages[entry.PageURL] {
			continue
		}

		pdfURL, err := c.resolvePDF(ctx, entry.PageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ resolve %s: %v\n", entry.PageURL, err)
			continue
		}

		metas = append(metas, model.DocumentMeta{
			Date:        entry.Date,
			DocTitle:    entry.DocTitle,
			PageURL:     entry.PageURL,
			PDFURL:      pdfURL,
			PDFFilename: filenameFromURL(pdfURL),
		})

		if c.verbose {
			fmt.Fprintf(os.Stderr, "  %s -> %s\n", entry.DocTitle, pdfURL)
		}
	}

	return metas, nil
}

func (c *Collector) resolvePDF(ctx context.Context, pageURL string) (string, error) {
	if err := c.limiter.Wait(ctx, pageURL); err != nil {
		return "", err
	}

	doc, err := c.fetcher.FetchHTML(ctx, pageURL)
	if err != nil {
		return "", err
	}

	return FindPDFURL(doc)
}

// download fetches one PDF, falling back to viewer markup extraction when
// the recorded URL serves something other than a PDF.
func (c *Collector) download(ctx context.Context, m model.DocumentMeta) error {
	if m.PDFFilename == "" {
		return fmt.Errorf("no filename for %s", m.PDFURL)
	}

	if err := c.limiter.Wait(ctx, m.PDFURL); err != nil {
		return err
	}

	data, err := c.fetcher.DownloadPDF(ctx, m.PDFURL)
	if err != nil {
		data, err = c.downloadFallback(ctx, m, err)
		if err != nil {
			return err
		}
	}

	return util.WriteFileAtomic(filepath.Join(c.rawDir, m.PDFFilename), data, 0o644)
}

func (c *Collector) downloadFallback(ctx context.Context, m model.DocumentMeta, primaryErr error) ([]byte, error) {
	if err := c.limiter.Wait(ctx, m.PageURL); err != nil {
		return nil, err
	}

	doc, err := c.fetcher.FetchHTML(ctx, m.PageURL)
	if err != nil {
		return nil, fmt.Errorf("primary: %v, fallback fetch: %w", primaryErr, err)
	}

	fallbackURL, err := FallbackPDFURL(doc)
	if err != nil || fallbackURL == "" {
		return nil, fmt.Errorf("primary: %v, no fallback URL", primaryErr)
	}

	if err := c.limiter.Wait(ctx, fallbackURL); err != nil {
		return nil, err
	}

	data, err := c.fetcher.DownloadPDF(ctx, fallbackURL)
	if err != nil {
		return nil, fmt.Errorf("primary: %v, fallback: %w", primaryErr, err)
	}

	return data, nil
}

// RemoveUnwanted deletes statistical annual reports from the raw corpus and
// returns how many were removed.
func RemoveUnwanted(rawDir string, filenames []string) int {
	if filenames == nil {
		filenames = UnwantedPDFs
	}

	removed := 0
	for _, name := range filenames {
		path := filepath.Join(rawDir, name)
		if err := os.Remove(path); err == nil {
			removed++
		}
	}

	return removed
}

func filenameFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return filepath.Base(rawURL)
	}
	return filepath.Base(parsed.Path)
}

// parseListDate parses the day-first dates of the CF archive tables.
// Unparsable dates sort first, preserving their scraped order.
func parseListDate(s string) time.Time {
	for _, layout := range []string{"02/01/2006", "02-01-2006", "2/1/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
