package model

// Word is one positioned word produced by the PDF extraction collaborator.
// Coordinates are in PDF points with the origin at the top-left of the page.
type Word struct {
	Text     string  `json:"text"`
	X0       float64 `json:"x0"`       // left edge
	Top      float64 `json:"top"`      // distance from page top
	Size     float64 `json:"size"`     // font size in points
	FontName string  `json:"fontname"` // e.g. "Calibri-Bold"
}

// Page is one page of one source document. It carries either positioned
// words (editable PDFs) or raw text (scanned PDFs after OCR), never both.
// Pages are immutable once produced by the extraction collaborator.
type Page struct {
	PDFFilename string
	Number      int // 1-based
	Width       float64
	Height      float64
	Words       []Word
	Text        string
}

// KeywordMatch marks where a document's substantive content begins.
// At most one exists per document. When no structural heading is found the
// zero value with Page=1, Offset=0 applies and the whole document is kept.
type KeywordMatch struct {
	Page    int     `json:"page"`
	Offset  float64 `json:"offset"` // vertical position of the heading line
	Found   bool    `json:"found"`
	Heading string  `json:"heading,omitempty"` // matched line text
}

// NoMatch is the fallback KeywordMatch: process the document in full.
func NoMatch() KeywordMatch {
	return KeywordMatch{Page: 1, Offset: 0, Found: false}
}
