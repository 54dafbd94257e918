// Package cleaner strips structural noise from extracted page text through a
// fixed cascade of stages. Every removed paragraph is recorded in an audit
// trail so over-aggressive rules can be caught against real documents.
//
// Stage order:
//
//	S0  document trim: content start, annex truncation, letter pages
//	S1  repair false paragraph breaks
//	S2  remove section headers and chart/table labels
//	S3  remove residual noise paragraphs (page numbers, dates, signatures)
//	S4  repair OCR artifacts and normalize to NFC
//	S5  normalize whitespace
//	S6  remove paragraphs still below the minimum length
//
// Each stage consumes the previous stage's output; rerunning the cascade on
// its own output changes nothing.
package cleaner

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jmcruz/fiscaltone/internal/model"
)

var (
	headingRe = regexp.MustCompile(`(?m)^\s*(?:(?:\d+|[IVXivx]+)[.:]?\s*)?[Oo]pinión del? (?:Consejo Fiscal|CF)\b`)
	annexRe   = regexp.MustCompile(`(?mi)^ *Anexos?\b[ \t\w]*:?`)
	letterRe  = regexp.MustCompile(`(?m)^Carta (?:N[°º*]\s*\d+-\d+-CF|del Consejo Fiscal)`)

	falseBreakLowerRe = regexp.MustCompile(`\n\n([a-záéíóúñü])`)
	falseBreakYearRe  = regexp.MustCompile(`\n\n([12]\d{3})`)
	falseBreakConnRe  = regexp.MustCompile(`\n\n((?:de|del|la|el|los|las|un|una|en|con|por|para|que|se|y|o|su|sus|sobre|al|ha|han|lo|le)\s)`)
)

// Cleaner applies the cleaning cascade to a document's page records. It holds
// only configuration, so one Cleaner serves concurrent Clean calls.
type Cleaner struct {
	cfg model.CleanerConfig
}

// New returns a Cleaner with the given thresholds.
func New(cfg model.CleanerConfig) *Cleaner {
	return &Cleaner{cfg: cfg}
}

// Clean runs the full cascade over one document's pages, in page order, and
// returns the cleaned records plus the audit entries for everything removed.
// Removal IDs number the document's audit trail from 1. Pages reduced to
// nothing are dropped from the result.
func (c *Cleaner) Clean(records []model.PageRecord) ([]model.CleanRecord, []model.Removal) {
	var removals []model.Removal

	records = c.trimToContent(records, &removals)
	records = c.truncateAtAnnex(records, &removals)
	records = c.dropLetterPages(records, &removals)

	cleaned := make([]model.CleanRecord, 0, len(records))
	for _, rec := range records {
		originalLen := len(rec.Text)

		text := repairFalseBreaks(rec.Text)

		var kept []string
		for _, para := range splitParagraphs(text) {
			if reason, pattern, removed := c.matchRemoval(para, headerStageRules); removed {
				removals = append(removals, c.removal(rec, para, reason, pattern))
				continue
			}
			if reason, pattern, removed := c.matchRemoval(para, noiseStageRules); removed {
				removals = append(removals, c.removal(rec, para, reason, pattern))
				continue
			}

			for _, rule := range repairRules {
				para = rule.Apply(para, c.cfg)
			}

			if utf8.RuneCountInString(para) < c.cfg.MinParagraphLen {
				if para != "" {
					removals = append(removals, c.removal(rec, para, ReasonTooShortFinal, "below minimum paragraph length after repair"))
				}
				continue
			}
			kept = append(kept, para)
		}

		if len(kept) == 0 {
			continue
		}
		cleanedText := strings.Join(kept, "\n\n")
		cleaned = append(cleaned, model.CleanRecord{
			PDFFilename:    rec.PDFFilename,
			Page:           rec.Page,
			Text:           cleanedText,
			OriginalLength: originalLen,
			CleanedLength:  len(cleanedText),
			ReductionPct:   reductionPct(originalLen, len(cleanedText)),
		})
	}

	for i := range removals {
		removals[i].ID = i + 1
	}
	return cleaned, removals
}

// trimToContent drops everything before the opinion heading: whole pages
// before the heading page and, on the heading page itself, the text above it.
// Page 1 never hosts the heading. Documents without one are kept in full.
func (c *Cleaner) trimToContent(records []model.PageRecord, removals *[]model.Removal) []model.PageRecord {
	foundPage := 0
	foundPos := 0
	for _, rec := range records {
		if rec.Page < 2 {
			continue
		}
		if loc := headingRe.FindStringIndex(rec.Text); loc != nil {
			foundPage = rec.Page
			foundPos = loc[0]
			break
		}
	}
	if foundPage == 0 {
		return records
	}

	out := make([]model.PageRecord, 0, len(records))
	for _, rec := range records {
		switch {
		case rec.Page < foundPage:
			*removals = append(*removals, c.removal(rec, rec.Text, ReasonBeforeKeyword, headingRe.String()))
		case rec.Page == foundPage && foundPos > 0:
			dropped := rec.Text[:foundPos]
			if strings.TrimSpace(dropped) != "" {
				*removals = append(*removals, c.removal(rec, dropped, ReasonBeforeKeyword, headingRe.String()))
			}
			rec.Text = rec.Text[foundPos:]
			out = append(out, rec)
		default:
			out = append(out, rec)
		}
	}
	return out
}

// truncateAtAnnex cuts the document at the first annex heading: the heading
// page keeps only what precedes it and later pages are dropped whole.
func (c *Cleaner) truncateAtAnnex(records []model.PageRecord, removals *[]model.Removal) []model.PageRecord {
	foundPage := 0
	foundPos := 0
	for _, rec := range records {
		if loc := annexRe.FindStringIndex(rec.Text); loc != nil {
			foundPage = rec.Page
			foundPos = loc[0]
			break
		}
	}
	if foundPage == 0 {
		return records
	}

	out := make([]model.PageRecord, 0, len(records))
	for _, rec := range records {
		switch {
		case rec.Page < foundPage:
			out = append(out, rec)
		case rec.Page == foundPage:
			dropped := rec.Text[foundPos:]
			*removals = append(*removals, c.removal(rec, dropped, ReasonAnnex, annexRe.String()))
			rec.Text = strings.TrimRight(rec.Text[:foundPos], " \n")
			if rec.Text != "" {
				out = append(out, rec)
			}
		default:
			*removals = append(*removals, c.removal(rec, rec.Text, ReasonAnnex, annexRe.String()))
		}
	}
	return out
}

// dropLetterPages removes transmittal-letter pages whole. The letter shares
// wording with the opinion, so paragraph-level rules cannot catch it.
func (c *Cleaner) dropLetterPages(records []model.PageRecord, removals *[]model.Removal) []model.PageRecord {
	out := make([]model.PageRecord, 0, len(records))
	for _, rec := range records {
		if letterRe.MatchString(rec.Text) {
			*removals = append(*removals, c.removal(rec, rec.Text, ReasonLetterPage, letterRe.String()))
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (c *Cleaner) matchRemoval(para string, rules []RemovalRule) (reason, pattern string, removed bool) {
	for _, rule := range rules {
		if p, ok := rule.Match(para, c.cfg); ok {
			return rule.Reason, p, true
		}
	}
	return "", "", false
}

func (c *Cleaner) removal(rec model.PageRecord, text, reason, pattern string) model.Removal {
	return model.Removal{
		PDFFilename:    rec.PDFFilename,
		Page:           rec.Page,
		Text:           text,
		Length:         len(text),
		Reason:         reason,
		MatchedPattern: pattern,
		CharCount:      utf8.RuneCountInString(text),
		WordCount:      len(strings.Fields(text)),
	}
}

// repairFalseBreaks joins paragraph breaks that cannot start a real
// paragraph: Spanish prose never opens one with a lowercase letter, a year,
// or a connector. Breaks after terminal punctuation are genuine and stay.
func repairFalseBreaks(text string) string {
	text = joinUnlessTerminal(text, falseBreakLowerRe)
	text = joinUnlessTerminal(text, falseBreakYearRe)
	text = joinUnlessTerminal(text, falseBreakConnRe)
	return text
}

func joinUnlessTerminal(text string, re *regexp.Regexp) string {
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		start := loc[0]
		if start > 0 && strings.ContainsRune(".!?:", rune(text[start-1])) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(" ")
		b.WriteString(text[loc[2]:loc[3]])
		last = loc[1]
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func reductionPct(original, cleaned int) float64 {
	if original == 0 {
		return 0
	}
	return float64(original-cleaned) / float64(original) * 100
}
