package collect

import (
	"testing"
)

const listPageHTML = `
<html><body>
<table class="table">
<tbody>
<tr>
  <td class="size100"><p> 15/05/2023 </p></td>
  <td><a href="https://cf.gob.pe/informes/informe-007/">Informe N° 007-2023-CF</a></td>
</tr>
<tr>
  <td class="size100"><p>03/02/2021</p></td>
  <td><a href="https://cf.gob.pe/comunicados/comunicado-01/">Comunicado N° 01-2021-CF</a></td>
</tr>
<tr>
  <td class="size100"><p>01/01/2020</p></td>
  <td>no link in this row</td>
</tr>
</tbody>
</table>
<table class="other">
<tbody><tr><td class="size100"><p>99/99/9999</p></td><td><a href="https://x">skip</a></td></tr></tbody>
</table>
</body></html>`

func TestParseListPage(t *testing.T) {
	entries, err := ParseListPage(listPageHTML)
	if err != nil {
		t.Fatalf("ParseListPage failed: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}

	first := entries[0]
	if first.Date != "15/05/2023" {
		t.Errorf("expected date 15/05/2023, got %q", first.Date)
	}
	if first.DocTitle != "Informe N° 007-2023-CF" {
		t.Errorf("unexpected title %q", first.DocTitle)
	}
	if first.PageURL != "https://cf.gob.pe/informes/informe-007/" {
		t.Errorf("unexpected page URL %q", first.PageURL)
	}
}

func TestParseListPage_Empty(t *testing.T) {
	entries, err := ParseListPage("<html><body><p>nothing here</p></body></html>")
	if err != nil {
		t.Fatalf("ParseListPage failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(entries))
	}
}

func TestExtractPDFLinks(t *testing.T) {
	doc := `<html><body>
		<a href="/docs/Informe-007-2023-CF.pdf">Informe</a>
		<a href="/about">Quiénes somos</a>
		<a href="/docs/anexo.PDF">Anexo</a>
	</body></html>`

	links, err := ExtractPDFLinks(doc)
	if err != nil {
		t.Fatalf("ExtractPDFLinks failed: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].Href != "/docs/Informe-007-2023-CF.pdf" || links[0].Text != "Informe" {
		t.Errorf("unexpected first link: %+v", links[0])
	}
}

func TestIsPresentation(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"informe_presentacion.pdf", true},
		{"Conferencia-de-prensa.pdf", true},
		{"slides_2023.pdf", true},
		{"comunicado_001.pdf", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsPresentation(tt.input); got != tt.want {
			t.Errorf("IsPresentation(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSelectPDF(t *testing.T) {
	links := []PDFLink{
		{Href: "presentacion.pdf", Text: "PPT"},
		{Href: "anexo.pdf", Text: "Anexo"},
		{Href: "comunicado_001.pdf", Text: "Doc"},
	}

	if got := SelectPDF(links); got != "comunicado_001.pdf" {
		t.Errorf("expected comunicado_001.pdf, got %q", got)
	}
}

func TestSelectPDF_OnlyPresentations(t *testing.T) {
	links := []PDFLink{
		{Href: "presentacion.pdf", Text: ""},
	}

	// With nothing else available the presentation wins over nothing
	if got := SelectPDF(links); got != "presentacion.pdf" {
		t.Errorf("expected presentacion.pdf, got %q", got)
	}
}

func TestSelectPDF_Empty(t *testing.T) {
	if got := SelectPDF(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestFindPDFURL_DirectAnchor(t *testing.T) {
	doc := `<html><body><a href="https://cf.gob.pe/docs/informe.pdf">Informe</a></body></html>`

	got, err := FindPDFURL(doc)
	if err != nil {
		t.Fatalf("FindPDFURL failed: %v", err)
	}
	if got != "https://cf.gob.pe/docs/informe.pdf" {
		t.Errorf("unexpected URL %q", got)
	}
}

func TestFindPDFURL_IframeSrc(t *testing.T) {
	doc := `<html><body><iframe src="//cf.gob.pe/docs/comunicado.pdf"></iframe></body></html>`

	got, err := FindPDFURL(doc)
	if err != nil {
		t.Fatalf("FindPDFURL failed: %v", err)
	}
	if got != "https://cf.gob.pe/docs/comunicado.pdf" {
		t.Errorf("expected scheme-relative URL normalized, got %q", got)
	}
}

func TestFindPDFURL_GoogleViewer(t *testing.T) {
	doc := `<html><body>
		<iframe src="https://docs.google.com/viewer?url=https%3A%2F%2Fcf.gob.pe%2Fdocs%2Finforme.pdf&embedded=true"></iframe>
	</body></html>`

	got, err := FindPDFURL(doc)
	if err != nil {
		t.Fatalf("FindPDFURL failed: %v", err)
	}
	if got != "https://cf.gob.pe/docs/informe.pdf" {
		t.Errorf("expected viewer target extracted, got %q", got)
	}
}

func TestFindPDFURL_GuardarButton(t *testing.T) {
	doc := `<html><body>
		<a href="https://cf.gob.pe/download/doc-42"><span>Guardar</span></a>
	</body></html>`

	got, err := FindPDFURL(doc)
	if err != nil {
		t.Fatalf("FindPDFURL failed: %v", err)
	}
	if got != "https://cf.gob.pe/download/doc-42" {
		t.Errorf("expected anchor behind Guardar span, got %q", got)
	}
}

func TestFindPDFURL_DownloadButton(t *testing.T) {
	doc := `<html><body>
		<a href="https://cf.gob.pe/download/doc-7"><button id="downloadButton">Descargar</button></a>
	</body></html>`

	got, err := FindPDFURL(doc)
	if err != nil {
		t.Fatalf("FindPDFURL failed: %v", err)
	}
	if got != "https://cf.gob.pe/download/doc-7" {
		t.Errorf("expected anchor behind download button, got %q", got)
	}
}

func TestFindPDFURL_NotFound(t *testing.T) {
	got, err := FindPDFURL("<html><body><p>sin documento</p></body></html>")
	if err != nil {
		t.Fatalf("FindPDFURL failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty URL, got %q", got)
	}
}

func TestFallbackPDFURL_Embed(t *testing.T) {
	doc := `<html><body><embed src="//cf.gob.pe/viewer/informe.pdf" type="application/pdf"></body></html>`

	got, err := FallbackPDFURL(doc)
	if err != nil {
		t.Fatalf("FallbackPDFURL failed: %v", err)
	}
	if got != "https://cf.gob.pe/viewer/informe.pdf" {
		t.Errorf("unexpected URL %q", got)
	}
}

func TestFallbackPDFURL_DataAttribute(t *testing.T) {
	doc := `<html><body><div data-pdf-src="https://cf.gob.pe/viewer/comunicado.pdf"></div></body></html>`

	got, err := FallbackPDFURL(doc)
	if err != nil {
		t.Fatalf("FallbackPDFURL failed: %v", err)
	}
	if got != "https://cf.gob.pe/viewer/comunicado.pdf" {
		t.Errorf("unexpected URL %q", got)
	}
}

func TestFilenameFromURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://cf.gob.pe/docs/Informe-007-2023-CF.pdf", "Informe-007-2023-CF.pdf"},
		{"https://cf.gob.pe/docs/informe.pdf?ver=2", "informe.pdf"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := filenameFromURL(tt.input); got != tt.want {
			t.Errorf("filenameFromURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
