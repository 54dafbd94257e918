package cleaner

import (
	"sort"

	"github.com/jmcruz/fiscaltone/internal/model"
)

// maxExamples caps how many sample texts a per-reason summary keeps.
const maxExamples = 5

// documentLevelReasons mark removals that drop whole pages or document tails.
// Those are long by construction, so flagging skips them and reviews only the
// paragraph rules.
var documentLevelReasons = map[string]bool{
	ReasonBeforeKeyword: true,
	ReasonAnnex:         true,
	ReasonLetterPage:    true,
}

// Summarize aggregates removals by reason and by document. Paragraph-rule
// removals longer than flagThreshold are flagged for manual review: a long
// removal there usually means a rule ate real prose.
func Summarize(removals []model.Removal, flagThreshold int) model.RemovalSummary {
	s := model.RemovalSummary{
		TotalRemovals: len(removals),
		ByReason:      map[string]*model.ReasonSummary{},
		ByPDF:         map[string]*model.DocumentSummary{},
	}

	for _, r := range removals {
		s.TotalCharsRemoved += r.CharCount

		rs := s.ByReason[r.Reason]
		if rs == nil {
			rs = &model.ReasonSummary{}
			s.ByReason[r.Reason] = rs
		}
		rs.Count++
		rs.Chars += r.CharCount
		if len(rs.Examples) < maxExamples {
			rs.Examples = append(rs.Examples, model.RemovalExample{
				Text: truncate(r.Text, 200),
				PDF:  r.PDFFilename,
				Page: r.Page,
			})
		}

		ds := s.ByPDF[r.PDFFilename]
		if ds == nil {
			ds = &model.DocumentSummary{}
			s.ByPDF[r.PDFFilename] = ds
		}
		ds.Count++
		ds.Chars += r.CharCount

		if r.CharCount > flagThreshold && !documentLevelReasons[r.Reason] {
			s.Flagged = append(s.Flagged, r)
		}
	}

	sort.Slice(s.Flagged, func(i, j int) bool {
		return s.Flagged[i].CharCount > s.Flagged[j].CharCount
	})
	return s
}

// truncate cuts text to at most n bytes without splitting a UTF-8 sequence.
func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	cut := n
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut] + "..."
}
