package cleaner

import (
	"strings"
	"sync"
	"testing"

	"github.com/jmcruz/fiscaltone/internal/model"
)

const opinionPara = "El Consejo Fiscal considera que el proyecto de ley genera riesgos " +
	"significativos para la sostenibilidad de las finanzas públicas en el mediano plazo."

func newTestCleaner() *Cleaner {
	return New(model.DefaultConfig().Cleaner)
}

func record(page int, text string) model.PageRecord {
	return model.PageRecord{PDFFilename: "informe.pdf", Page: page, Text: text}
}

func findReason(removals []model.Removal, reason string) []model.Removal {
	var out []model.Removal
	for _, r := range removals {
		if r.Reason == reason {
			out = append(out, r)
		}
	}
	return out
}

func TestCleanKeepsOpinionParagraph(t *testing.T) {
	c := newTestCleaner()
	cleaned, _ := c.Clean([]model.PageRecord{record(3, opinionPara)})

	if len(cleaned) != 1 {
		t.Fatalf("cleaned = %d records, want 1", len(cleaned))
	}
	if cleaned[0].Text != opinionPara {
		t.Errorf("text changed: %q", cleaned[0].Text)
	}
	if cleaned[0].CleanedLength > cleaned[0].OriginalLength {
		t.Error("cleaned length exceeds original")
	}
}

func TestCleanRemovesChartLabel(t *testing.T) {
	c := newTestCleaner()
	text := "1: Leyes con impacto fiscal adverso aprobadas por el Congreso\n\n" + opinionPara
	cleaned, removals := c.Clean([]model.PageRecord{record(3, text)})

	if len(cleaned) != 1 || strings.Contains(cleaned[0].Text, "Leyes con impacto") {
		t.Errorf("chart label not removed: %+v", cleaned)
	}
	got := findReason(removals, ReasonChartLabel)
	if len(got) != 1 {
		t.Fatalf("chart label removals = %d, want 1", len(got))
	}
	if got[0].MatchedPattern == "" || got[0].WordCount != 10 {
		t.Errorf("audit entry incomplete: %+v", got[0])
	}
}

func TestCleanRemovesPageNumber(t *testing.T) {
	c := newTestCleaner()
	text := opinionPara + "\n\n2 / 45"
	cleaned, removals := c.Clean([]model.PageRecord{record(3, text)})

	if strings.Contains(cleaned[0].Text, "45") {
		t.Error("page number survived")
	}
	if len(findReason(removals, ReasonPageNumber)) != 1 {
		t.Errorf("removals = %+v, want one page_number entry", removals)
	}
}

func TestCleanRemovesDateAndSignature(t *testing.T) {
	c := newTestCleaner()
	text := opinionPara +
		"\n\nLima, 23 de mayo de 2022" +
		"\n\nWALDO EPIFANIO MENDOZA BELLIDO"
	cleaned, removals := c.Clean([]model.PageRecord{record(3, text)})

	if cleaned[0].Text != opinionPara {
		t.Errorf("text = %q, want only the opinion paragraph", cleaned[0].Text)
	}
	if len(findReason(removals, ReasonDateLine)) != 1 {
		t.Error("date line not audited")
	}
	if len(findReason(removals, ReasonAllCaps)) != 1 {
		t.Error("signature not audited")
	}
}

func TestCleanRepairsFalseBreak(t *testing.T) {
	c := newTestCleaner()
	text := "El CF advierte que el requerimiento\n\nfinanciero del sector público se incrementó por encima de lo previsto en el Marco."
	cleaned, _ := c.Clean([]model.PageRecord{record(3, text)})

	if len(cleaned) != 1 {
		t.Fatalf("cleaned = %+v", cleaned)
	}
	if strings.Contains(cleaned[0].Text, "\n\n") {
		t.Errorf("false break not repaired: %q", cleaned[0].Text)
	}
	if !strings.Contains(cleaned[0].Text, "requerimiento financiero") {
		t.Errorf("join lost text: %q", cleaned[0].Text)
	}
}

func TestCleanKeepsGenuineBreakAfterPeriod(t *testing.T) {
	c := newTestCleaner()
	first := "La deuda pública se mantiene por debajo del límite legal establecido para este ejercicio."
	second := "el análisis que sigue describe los riesgos de mediano plazo señalados por la secretaría técnica."
	// A lowercase continuation after terminal punctuation stays a separate
	// paragraph; only mid-sentence splits are joined.
	cleaned, _ := c.Clean([]model.PageRecord{record(3, first+"\n\n"+second)})

	if len(cleaned) != 1 {
		t.Fatalf("cleaned = %+v", cleaned)
	}
	if !strings.Contains(cleaned[0].Text, "\n\n") {
		t.Errorf("genuine break was joined: %q", cleaned[0].Text)
	}
}

func TestCleanTrimsContentBeforeHeading(t *testing.T) {
	c := newTestCleaner()
	records := []model.PageRecord{
		record(1, "Resumen ejecutivo con antecedentes del informe y su contexto general de política fiscal."),
		record(2, "Texto introductorio previo.\n\nOpinión del Consejo Fiscal sobre el Marco Macroeconómico\n\n"+opinionPara),
		record(3, opinionPara),
	}
	cleaned, removals := c.Clean(records)

	for _, rec := range cleaned {
		if strings.Contains(rec.Text, "Resumen ejecutivo") || strings.Contains(rec.Text, "introductorio") {
			t.Errorf("pre-heading content survived: %+v", rec)
		}
	}
	if len(findReason(removals, ReasonBeforeKeyword)) != 2 {
		t.Errorf("removals = %+v, want page 1 and the page-2 prefix audited", removals)
	}
}

func TestCleanWithoutHeadingKeepsDocument(t *testing.T) {
	c := newTestCleaner()
	cleaned, _ := c.Clean([]model.PageRecord{record(1, opinionPara)})
	if len(cleaned) != 1 {
		t.Errorf("document without heading was trimmed: %+v", cleaned)
	}
}

func TestCleanTruncatesAtAnnex(t *testing.T) {
	c := newTestCleaner()
	records := []model.PageRecord{
		record(2, opinionPara),
		record(3, opinionPara+"\n\nAnexo 1: Cuadros estadísticos\n\nSerie trimestral"),
		record(4, "Contenido del anexo con series de datos."),
	}
	cleaned, removals := c.Clean(records)

	if len(cleaned) != 2 {
		t.Fatalf("cleaned = %+v, want pages 2 and 3 only", cleaned)
	}
	if strings.Contains(cleaned[1].Text, "Anexo") || strings.Contains(cleaned[1].Text, "Serie") {
		t.Errorf("annex content survived: %q", cleaned[1].Text)
	}
	if len(findReason(removals, ReasonAnnex)) != 2 {
		t.Errorf("removals = %+v, want the truncated tail and page 4", removals)
	}
}

func TestCleanDropsLetterPage(t *testing.T) {
	c := newTestCleaner()
	records := []model.PageRecord{
		record(2, "Carta N° 015-2016-CF\n\nSeñor Ministro de Economía y Finanzas, presente la opinión adjunta."),
		record(3, opinionPara),
	}
	cleaned, removals := c.Clean(records)

	if len(cleaned) != 1 || cleaned[0].Page != 3 {
		t.Errorf("cleaned = %+v, want only page 3", cleaned)
	}
	if len(findReason(removals, ReasonLetterPage)) != 1 {
		t.Error("letter page not audited")
	}
}

func TestCleanRemovesSectionHeader(t *testing.T) {
	c := newTestCleaner()
	text := "Evolución de las finanzas públicas en el período\n\n" + opinionPara
	cleaned, removals := c.Clean([]model.PageRecord{record(3, text)})

	if cleaned[0].Text != opinionPara {
		t.Errorf("section header survived: %q", cleaned[0].Text)
	}
	if len(findReason(removals, ReasonSectionHeader)) != 1 {
		t.Errorf("removals = %+v", removals)
	}
}

func TestCleanRepairsOCRArtifacts(t *testing.T) {
	c := newTestCleaner()
	text := "El resultado económico del año 2 019 fue deficitario | según las cifras oficiales del sector público no financiero."
	cleaned, _ := c.Clean([]model.PageRecord{record(3, text)})

	got := cleaned[0].Text
	if !strings.Contains(got, "2019") {
		t.Errorf("split year not repaired: %q", got)
	}
	if strings.Contains(got, "|") || strings.Contains(got, "  ") {
		t.Errorf("stray glyphs or double spaces remain: %q", got)
	}
}

func TestCleanPreservesYearRanges(t *testing.T) {
	c := newTestCleaner()
	text := "Las proyecciones del Marco Macroeconómico cubren los años 2019 2020 y 2021 con supuestos conservadores."
	cleaned, _ := c.Clean([]model.PageRecord{record(3, text)})

	if !strings.Contains(cleaned[0].Text, "2019 2020") {
		t.Errorf("year range was collapsed: %q", cleaned[0].Text)
	}
}

func TestCleanIdempotent(t *testing.T) {
	c := newTestCleaner()
	text := "Informe N° 002-2022-CF\n\n" + opinionPara +
		"\n\nLima, 23 de mayo de 2022\n\n3/18\n\nOtra parte del análisis que el requerimiento\n\nfinanciero del sector público exige revisar con detalle en el presente informe."
	first, _ := c.Clean([]model.PageRecord{record(3, text)})
	if len(first) != 1 {
		t.Fatalf("first pass = %+v", first)
	}

	second, removals := New(model.DefaultConfig().Cleaner).Clean([]model.PageRecord{
		{PDFFilename: "informe.pdf", Page: 3, Text: first[0].Text},
	})
	if len(second) != 1 || second[0].Text != first[0].Text {
		t.Errorf("second pass changed output:\n first: %q\nsecond: %q", first[0].Text, second[0].Text)
	}
	if len(removals) != 0 {
		t.Errorf("second pass removed %d paragraphs", len(removals))
	}
}

func TestCleanNoFinalShortParagraphs(t *testing.T) {
	cfg := model.DefaultConfig().Cleaner
	c := New(cfg)
	text := opinionPara + "\n\nUn residuo corto que sobrevive a las reglas de encabezado porque termina en punto."
	cleaned, _ := c.Clean([]model.PageRecord{record(3, text)})

	for _, rec := range cleaned {
		for _, para := range strings.Split(rec.Text, "\n\n") {
			if len(para) < cfg.MinParagraphLen {
				t.Errorf("final paragraph below minimum: %q", para)
			}
		}
	}
}

func TestCleanCountsCharactersNotBytes(t *testing.T) {
	c := newTestCleaner()
	// 48 characters but 53 bytes: the accented letters must not push a short
	// residual line past the minimum paragraph length.
	short := "La evaluación técnica del déficit económico aún."
	cleaned, removals := c.Clean([]model.PageRecord{record(3, short+"\n\n"+opinionPara)})

	if len(cleaned) != 1 || cleaned[0].Text != opinionPara {
		t.Errorf("cleaned = %+v, want only the opinion paragraph", cleaned)
	}
	if len(findReason(removals, ReasonTooShort)) != 1 {
		t.Errorf("removals = %+v, want one too_short entry", removals)
	}
}

func TestCleanConcurrentDocumentsNumberIndependently(t *testing.T) {
	c := newTestCleaner()
	text := opinionPara + "\n\n2 / 45\n\nLima, 23 de mayo de 2022"

	results := make([][]model.Removal, 4)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, removals := c.Clean([]model.PageRecord{record(3, text)})
			results[i] = removals
		}(i)
	}
	wg.Wait()

	for i, removals := range results {
		if len(removals) != 2 {
			t.Fatalf("document %d: removals = %+v, want 2", i, removals)
		}
		for j, r := range removals {
			if r.ID != j+1 {
				t.Errorf("document %d: removal %d has ID %d, want %d", i, j, r.ID, j+1)
			}
		}
	}
}

func TestCleanEmptyPageDropped(t *testing.T) {
	c := newTestCleaner()
	cleaned, _ := c.Clean([]model.PageRecord{record(3, "3/18\n\n* *")})
	if len(cleaned) != 0 {
		t.Errorf("cleaned = %+v, want page dropped entirely", cleaned)
	}
}

func TestSummarize(t *testing.T) {
	removals := []model.Removal{
		{ID: 1, PDFFilename: "a.pdf", Page: 1, Reason: ReasonPageNumber, Text: "1/2", CharCount: 3},
		{ID: 2, PDFFilename: "a.pdf", Page: 2, Reason: ReasonPageNumber, Text: "2/2", CharCount: 3},
		{ID: 3, PDFFilename: "b.pdf", Page: 5, Reason: ReasonSectionHeader, Text: strings.Repeat("x", 120), CharCount: 120},
	}

	s := Summarize(removals, 80)
	if s.TotalRemovals != 3 || s.TotalCharsRemoved != 126 {
		t.Errorf("totals = %d removals, %d chars", s.TotalRemovals, s.TotalCharsRemoved)
	}
	if s.ByReason[ReasonPageNumber].Count != 2 {
		t.Errorf("by_reason = %+v", s.ByReason)
	}
	if s.ByPDF["a.pdf"].Count != 2 || s.ByPDF["b.pdf"].Chars != 120 {
		t.Errorf("by_pdf = %+v", s.ByPDF)
	}
	if len(s.Flagged) != 1 || s.Flagged[0].ID != 3 {
		t.Errorf("flagged = %+v, want only the long removal", s.Flagged)
	}
}

func TestSummarizeDoesNotFlagDocumentLevelRemovals(t *testing.T) {
	long := strings.Repeat("x", 500)
	removals := []model.Removal{
		{ID: 1, PDFFilename: "a.pdf", Page: 1, Reason: ReasonBeforeKeyword, Text: long, CharCount: 500},
		{ID: 2, PDFFilename: "a.pdf", Page: 7, Reason: ReasonAnnex, Text: long, CharCount: 500},
		{ID: 3, PDFFilename: "a.pdf", Page: 2, Reason: ReasonLetterPage, Text: long, CharCount: 500},
		{ID: 4, PDFFilename: "a.pdf", Page: 4, Reason: ReasonSectionHeader, Text: strings.Repeat("y", 120), CharCount: 120},
	}

	s := Summarize(removals, 80)
	if len(s.Flagged) != 1 || s.Flagged[0].Reason != ReasonSectionHeader {
		t.Errorf("flagged = %+v, want only the paragraph-rule removal", s.Flagged)
	}
	if s.TotalRemovals != 4 || s.TotalCharsRemoved != 1620 {
		t.Errorf("totals = %d removals, %d chars", s.TotalRemovals, s.TotalCharsRemoved)
	}
}
