package locate

import (
	"testing"

	"github.com/jmcruz/fiscaltone/internal/model"
)

func newTestLocator(t *testing.T) *Locator {
	t.Helper()
	l, err := New(model.DefaultConfig().Locator)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

// headingWords lays out a heading line at the given x and font size.
func headingWords(x, top, size float64, words ...string) []model.Word {
	out := make([]model.Word, len(words))
	for i, w := range words {
		out[i] = model.Word{Text: w, X0: x + float64(i)*60, Top: top, Size: size}
	}
	return out
}

func TestFindHeadingOnPageTwo(t *testing.T) {
	l := newTestLocator(t)
	pages := []model.Page{
		{Number: 1, Text: "Informe N° 002-2024-CF\nOpinión del Consejo Fiscal"},
		{
			Number: 2,
			Words: append(
				headingWords(72, 100, 11.0, "Antecedentes"),
				headingWords(72, 300, 12.0, "II.", "Opinión", "del", "Consejo", "Fiscal")...,
			),
		},
	}

	got := l.Find(pages)
	if !got.Found {
		t.Fatal("heading not found")
	}
	if got.Page != 2 {
		t.Errorf("page = %d, want 2", got.Page)
	}
	if got.Offset != 300 {
		t.Errorf("offset = %v, want the heading line position 300", got.Offset)
	}
}

func TestFindSkipsCoverPage(t *testing.T) {
	l := newTestLocator(t)
	// The cover carries the heading text in a large centered title; page 1
	// must never match regardless of geometry.
	pages := []model.Page{
		{
			Number: 1,
			Text:   "Opinión del Consejo Fiscal",
			Words:  headingWords(72, 100, 12.0, "Opinión", "del", "Consejo", "Fiscal"),
		},
	}

	got := l.Find(pages)
	if got.Found {
		t.Error("cover page matched")
	}
	if got.Page != 1 || got.Offset != 0 {
		t.Errorf("fallback = (%d, %v), want (1, 0)", got.Page, got.Offset)
	}
}

func TestFindRejectsIndentedMention(t *testing.T) {
	l := newTestLocator(t)
	// A table-of-contents entry sits past the left-margin cutoff.
	pages := []model.Page{
		{
			Number: 2,
			Text:   "Opinión del Consejo Fiscal .......... 3",
			Words:  headingWords(180, 200, 12.0, "Opinión", "del", "Consejo", "Fiscal"),
		},
	}

	if got := l.Find(pages); got.Found {
		t.Errorf("indented mention matched: %+v", got)
	}
}

func TestFindRejectsBodyFontSize(t *testing.T) {
	l := newTestLocator(t)
	// Body text citing the section name uses the body font, below the
	// heading band.
	pages := []model.Page{
		{
			Number: 2,
			Words:  headingWords(72, 200, 10.5, "Opinión", "del", "Consejo", "Fiscal"),
		},
	}

	if got := l.Find(pages); got.Found {
		t.Errorf("body-font mention matched: %+v", got)
	}
}

func TestFindIgnoresFootnoteMarkerOnHeadingBaseline(t *testing.T) {
	l := newTestLocator(t)
	// A superscript footnote marker shares the heading's baseline but uses a
	// small font; it must not break the heading line apart.
	words := append(
		headingWords(72, 200, 12.0, "3.", "Opinión", "del", "Consejo", "Fiscal"),
		model.Word{Text: "1", X0: 420, Top: 200.2, Size: 8.0},
	)
	pages := []model.Page{{Number: 2, Words: words}}

	got := l.Find(pages)
	if !got.Found || got.Page != 2 {
		t.Fatalf("match = %+v, want the heading on page 2", got)
	}
	if got.Heading != "3. Opinión del Consejo Fiscal" {
		t.Errorf("heading = %q, marker leaked into the line", got.Heading)
	}
}

func TestFindNumberedVariants(t *testing.T) {
	l := newTestLocator(t)
	tests := []struct {
		name  string
		words []string
	}{
		{"bare", []string{"Opinión", "del", "CF"}},
		{"arabic numeral", []string{"3.", "Opinión", "del", "Consejo", "Fiscal"}},
		{"roman numeral", []string{"IV:", "Opinión", "del", "CF"}},
		{"elided article", []string{"Opinión", "de", "Consejo", "Fiscal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := []model.Page{{
				Number: 3,
				Words:  headingWords(72, 150, 12.5, tt.words...),
			}}
			if got := l.Find(pages); !got.Found {
				t.Error("heading variant not found")
			}
		})
	}
}

func TestFindFirstPageWins(t *testing.T) {
	l := newTestLocator(t)
	pages := []model.Page{
		{Number: 2, Words: headingWords(72, 150, 12.0, "Opinión", "del", "CF")},
		{Number: 4, Words: headingWords(72, 150, 12.0, "Opinión", "del", "CF")},
	}

	got := l.Find(pages)
	if got.Page != 2 {
		t.Errorf("page = %d, want 2", got.Page)
	}
}

func TestFindDeterministicWithinPage(t *testing.T) {
	l := newTestLocator(t)
	// Words arrive in arbitrary extractor order; the topmost heading line
	// must win regardless.
	lower := headingWords(72, 500, 12.0, "Opinión", "del", "CF")
	upper := headingWords(72, 150, 12.0, "2.", "Opinión", "del", "CF")
	pages := []model.Page{{
		Number: 2,
		Words:  append(lower, upper...),
	}}

	got := l.Find(pages)
	if got.Heading != "2. Opinión del CF" {
		t.Errorf("heading = %q, want the topmost line", got.Heading)
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	cfg := model.DefaultConfig().Locator
	cfg.Patterns = []string{"("}
	if _, err := New(cfg); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
