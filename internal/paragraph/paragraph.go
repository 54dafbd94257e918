// Package paragraph reconstructs paragraph-structured page text from
// positioned words, and splits OCR output into paragraphs. Paragraphs are
// joined with "\n\n", the convention every later stage relies on.
package paragraph

import (
	"math"
	"regexp"
	"strings"

	"github.com/jmcruz/fiscaltone/internal/model"
)

var (
	// A page whose raw text opens with an annex heading ends the document
	// body; nothing after it is opinion content.
	annexPageRe = regexp.MustCompile(`(?i)^\s*anexos?(?:\s+(?:[ivxlcdm]+|\d+))?\s*:?`)

	// An annex heading appearing mid-page truncates that page.
	annexInlineRe = regexp.MustCompile(`(?mi)^ *Anexos?\b[\s\w]*:?`)
)

// Builder reconstructs paragraphs from the positioned words of editable
// documents.
type Builder struct {
	cfg      model.ExtractionConfig
	excluded map[float64]struct{}
}

// NewBuilder returns a Builder applying the given extraction filters.
func NewBuilder(cfg model.ExtractionConfig) *Builder {
	excluded := make(map[float64]struct{}, len(cfg.ExcludedFontSizes))
	for _, s := range cfg.ExcludedFontSizes {
		excluded[round1(s)] = struct{}{}
	}
	return &Builder{cfg: cfg, excluded: excluded}
}

// Build walks pages from the keyword match onward and emits one record per
// page with body text. Extraction stops at the first annex heading: a page
// opening with one is dropped along with everything after it, and one found
// mid-page truncates that page and ends the walk.
func (b *Builder) Build(pages []model.Page, match model.KeywordMatch) []model.PageRecord {
	var records []model.PageRecord
	total := len(pages)

	for _, page := range pages {
		if page.Number < match.Page {
			continue
		}
		if annexPageRe.MatchString(page.Text) {
			break
		}

		text := b.pageText(page, match, total)

		stop := false
		if loc := annexInlineRe.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[:loc[0]])
			stop = true
		}

		if text != "" {
			records = append(records, model.PageRecord{
				PDFFilename: page.PDFFilename,
				Page:        page.Number,
				Text:        text,
			})
		}
		if stop {
			break
		}
	}
	return records
}

// pageText filters the page's words to the body box and font band, then
// splits paragraphs on vertical gaps.
func (b *Builder) pageText(page model.Page, match model.KeywordMatch, totalPages int) string {
	headerCutoff := b.cfg.HeaderCutoffRest
	if page.Number == 1 {
		headerCutoff = b.cfg.HeaderCutoffFirst
	}
	// On the keyword page the heading line itself is the boundary.
	if page.Number == match.Page && match.Offset > 0 {
		headerCutoff = math.Max(match.Offset-5, 0)
	}

	footerDistance := b.cfg.FooterCutoff
	if page.Number == totalPages {
		footerDistance = b.cfg.FooterCutoffLast
	}
	footerCutoff := page.Height - footerDistance

	var paragraphs []string
	var current []string
	lastTop := math.NaN()

	for _, w := range page.Words {
		if !b.keep(w, page.Width, headerCutoff, footerCutoff) {
			continue
		}
		if !math.IsNaN(lastTop) && w.Top-lastTop > b.cfg.VerticalGapThreshold {
			if len(current) > 0 {
				paragraphs = append(paragraphs, strings.Join(current, " "))
			}
			current = []string{w.Text}
		} else {
			current = append(current, w.Text)
		}
		lastTop = w.Top
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}

	return strings.Join(paragraphs, "\n\n")
}

func (b *Builder) keep(w model.Word, pageWidth, headerCutoff, footerCutoff float64) bool {
	if w.Size < b.cfg.FontSizeMin || w.Size > b.cfg.FontSizeMax {
		return false
	}
	if _, bad := b.excluded[round1(w.Size)]; bad {
		return false
	}
	if b.cfg.ExcludeBold && strings.Contains(w.FontName, "Bold") {
		return false
	}
	if w.Top <= headerCutoff || w.Top >= footerCutoff {
		return false
	}
	if w.X0 <= b.cfg.LeftMargin || w.X0 >= pageWidth-b.cfg.RightMargin {
		return false
	}
	return true
}

// SplitOCR breaks recognized page text into paragraphs on blank lines.
// Tesseract emits "\n\n" between blocks, so this is the scanned-path
// counterpart of the vertical-gap split.
func SplitOCR(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
