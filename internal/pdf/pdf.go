// Package pdf wraps the tabula PDF reader behind the small surface the
// pipeline needs: positioned words per page, raw page text, embedded page
// images for the OCR path, and the editable/scanned classification.
package pdf

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/text"

	"github.com/jmcruz/fiscaltone/internal/model"
)

// Document is an open PDF file.
type Document struct {
	r        *reader.Reader
	filename string
}

// Open opens a PDF for extraction. Close must be called when done.
func Open(path string) (*Document, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Document{r: r, filename: filepath.Base(path)}, nil
}

// Close releases the underlying reader.
func (d *Document) Close() error {
	return d.r.Close()
}

// Filename returns the base name of the source file.
func (d *Document) Filename() string {
	return d.filename
}

// PageCount returns the number of pages.
func (d *Document) PageCount() (int, error) {
	return d.r.PageCount()
}

// Pages extracts every page's positioned words and assembled raw text.
// Fragment coordinates come in PDF space (origin bottom-left); words carry
// the distance from the page top instead, which is what the layout filters
// expect. Pages that fail to parse are returned empty rather than failing
// the document.
func (d *Document) Pages() ([]model.Page, error) {
	count, err := d.r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("%s: page count: %w", d.filename, err)
	}

	out := make([]model.Page, 0, count)
	for i := 0; i < count; i++ {
		p := model.Page{PDFFilename: d.filename, Number: i + 1}

		page, err := d.r.GetPage(i)
		if err != nil {
			out = append(out, p)
			continue
		}
		p.Width, _ = page.Width()
		p.Height, _ = page.Height()

		fragments, err := d.r.ExtractTextFragments(page)
		if err != nil {
			out = append(out, p)
			continue
		}

		p.Words = toWords(fragments, p.Height)
		p.Text = assembleText(p.Words)
		out = append(out, p)
	}
	return out, nil
}

// PageImages returns the embedded images of one page (0-based) encoded as
// PNG, ready for OCR. Scanned documents carry one full-page image per page.
func (d *Document) PageImages(index int) ([][]byte, error) {
	page, err := d.r.GetPage(index)
	if err != nil {
		return nil, fmt.Errorf("%s: page %d: %w", d.filename, index+1, err)
	}
	images, err := d.r.ExtractPageImages(page)
	if err != nil {
		return nil, fmt.Errorf("%s: page %d images: %w", d.filename, index+1, err)
	}

	out := make([][]byte, 0, len(images))
	for _, img := range images {
		png, err := img.ToPNG()
		if err != nil {
			continue
		}
		out = append(out, png)
	}
	return out, nil
}

// IsEditable reports whether the document carries an extractable text layer.
// Scanned documents yield little or no text, so a document counts as
// editable when any of its first pages produces at least minTextLen
// characters.
func (d *Document) IsEditable(minTextLen int) (bool, error) {
	count, err := d.r.PageCount()
	if err != nil {
		return false, fmt.Errorf("%s: page count: %w", d.filename, err)
	}
	probe := count
	if probe > 3 {
		probe = 3
	}

	for i := 0; i < probe; i++ {
		page, err := d.r.GetPage(i)
		if err != nil {
			continue
		}
		fragments, err := d.r.ExtractTextFragments(page)
		if err != nil {
			continue
		}
		total := 0
		for _, f := range fragments {
			total += len(strings.TrimSpace(f.Text))
			if total >= minTextLen {
				return true, nil
			}
		}
	}
	return false, nil
}

func toWords(fragments []text.TextFragment, pageHeight float64) []model.Word {
	words := make([]model.Word, 0, len(fragments))
	for _, f := range fragments {
		for _, piece := range splitFragment(f) {
			words = append(words, model.Word{
				Text:     piece.text,
				X0:       piece.x,
				Top:      pageHeight - f.Y,
				Size:     f.FontSize,
				FontName: f.FontName,
			})
		}
	}
	sort.SliceStable(words, func(i, j int) bool {
		if words[i].Top != words[j].Top {
			return words[i].Top < words[j].Top
		}
		return words[i].X0 < words[j].X0
	})
	return words
}

type wordPiece struct {
	text string
	x    float64
}

// splitFragment breaks a multi-word fragment into words, spreading the
// fragment's width across them proportionally to estimate each word's X.
func splitFragment(f text.TextFragment) []wordPiece {
	fields := strings.Fields(f.Text)
	if len(fields) == 0 {
		return nil
	}
	if len(fields) == 1 {
		return []wordPiece{{text: fields[0], x: f.X}}
	}

	perRune := 0.0
	if n := len([]rune(f.Text)); n > 0 {
		perRune = f.Width / float64(n)
	}

	pieces := make([]wordPiece, 0, len(fields))
	offset := 0
	rest := f.Text
	for _, w := range fields {
		idx := strings.Index(rest, w)
		runesBefore := len([]rune(rest[:idx]))
		x := f.X + float64(offset+runesBefore)*perRune
		pieces = append(pieces, wordPiece{text: w, x: x})
		advance := idx + len(w)
		offset += len([]rune(rest[:advance]))
		rest = rest[advance:]
	}
	return pieces
}

// assembleText joins sorted words into rough page text: words on one
// baseline separated by spaces, baselines by newlines. Good enough for the
// annex and letter checks that only look at line starts.
func assembleText(words []model.Word) string {
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	lastTop := words[0].Top
	for i, w := range words {
		if i > 0 {
			if w.Top-lastTop > 2 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.Text)
		lastTop = w.Top
	}
	return b.String()
}
