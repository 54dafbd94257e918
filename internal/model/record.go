package model

// PageRecord is one entry of the raw extraction artifact: the text recovered
// from a single page of a single PDF. This is the interchange format between
// the extraction, cleaning, and classification stages.
type PageRecord struct {
	PDFFilename string `json:"pdf_filename"`
	Page        int    `json:"page"`
	Text        string `json:"text"`
}

// CleanRecord is one entry of the cleaned artifact. Text holds the result of
// the full cleaning cascade; the length fields allow reduction auditing.
type CleanRecord struct {
	PDFFilename    string  `json:"pdf_filename"`
	Page           int     `json:"page"`
	Text           string  `json:"text"`
	OriginalLength int     `json:"original_length"`
	CleanedLength  int     `json:"cleaned_length"`
	ReductionPct   float64 `json:"reduction_pct"`
}

// Removal records one paragraph dropped by a removal rule, for manual audit.
type Removal struct {
	ID             int    `json:"id"`
	PDFFilename    string `json:"pdf_filename"`
	Page           int    `json:"page"`
	Text           string `json:"text"`
	Length         int    `json:"length"`
	Reason         string `json:"reason"`
	MatchedPattern string `json:"matched_pattern"`
	CharCount      int    `json:"char_count"`
	WordCount      int    `json:"word_count"`
}

// RemovalExample is a truncated sample kept in the per-reason summary.
type RemovalExample struct {
	Text string `json:"text"`
	PDF  string `json:"pdf"`
	Page int    `json:"page"`
}

// ReasonSummary aggregates removals sharing a reason code.
type ReasonSummary struct {
	Count    int              `json:"count"`
	Chars    int              `json:"chars"`
	Examples []RemovalExample `json:"examples"`
}

// DocumentSummary aggregates removals per source document.
type DocumentSummary struct {
	Count int `json:"count"`
	Chars int `json:"chars"`
}

// RemovalSummary is the audit artifact companion to the full removal list.
// Flagged holds removals whose length exceeds the configured short-paragraph
// threshold; each is a likely false positive awaiting manual review.
type RemovalSummary struct {
	TotalRemovals     int                         `json:"total_removals"`
	TotalCharsRemoved int                         `json:"total_chars_removed"`
	ByReason          map[string]*ReasonSummary   `json:"by_reason"`
	ByPDF             map[string]*DocumentSummary `json:"by_pdf"`
	Flagged           []Removal                   `json:"flagged,omitempty"`
}

// ScoreRecord is one entry of the classification artifact. FiscalRiskScore is
// 1-5; a zero score with a non-empty Error marks a paragraph whose
// classification failed after retries.
type ScoreRecord struct {
	PDFFilename     string  `json:"pdf_filename"`
	Page            int     `json:"page"`
	Text            string  `json:"text"`
	FiscalRiskScore int     `json:"fiscal_risk_score"`
	RiskIndex       float64 `json:"risk_index"`
	Error           string  `json:"error,omitempty"`
}

// DocumentReport summarizes one pipeline run over a single PDF.
type DocumentReport struct {
	PDFFilename     string `json:"pdf_filename"`
	Editable        bool   `json:"editable"`
	PageCount       int    `json:"page_count"`
	KeywordPage     int    `json:"keyword_page"`
	KeywordFound    bool   `json:"keyword_found"`
	RawParagraphs   int    `json:"raw_paragraphs"`
	CleanParagraphs int    `json:"clean_paragraphs"`
	Removals        int    `json:"removals"`
}

// DocumentMeta is one entry of the collector metadata artifact.
type DocumentMeta struct {
	Date        string `json:"date"`
	DocTitle    string `json:"doc_title"`
	PageURL     string `json:"page_url"`
	PDFURL      string `json:"pdf_url"`
	PDFFilename string `json:"pdf_filename"`
}
