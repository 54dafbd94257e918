package cleaner

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/jmcruz/fiscaltone/internal/model"
)

// Removal reasons recorded in the audit trail.
const (
	ReasonBeforeKeyword = "content_before_keyword"
	ReasonAnnex         = "annex"
	ReasonLetterPage    = "letter_page"
	ReasonSectionHeader = "section_header"
	ReasonChartLabel    = "chart_label"
	ReasonPageNumber    = "page_number"
	ReasonDateLine      = "date_line"
	ReasonDocumentID    = "document_id"
	ReasonAllCaps       = "all_caps"
	ReasonTooShort      = "too_short"
	ReasonTooShortFinal = "too_short_final"
)

// RemovalRule decides whether a whole paragraph is structural noise. When it
// fires, the matched pattern is recorded in the audit entry.
type RemovalRule struct {
	Reason string
	Match  func(para string, cfg model.CleanerConfig) (pattern string, ok bool)
}

// RepairRule rewrites text in place without removing paragraphs.
type RepairRule struct {
	Name  string
	Apply func(text string, cfg model.CleanerConfig) string
}

var (
	dateLineRe   = regexp.MustCompile(`Lima,?\s+\d{1,2}\s+de\s+[\wáéíóú]+\s+de\s+\d{4}`)
	dateStartRe  = regexp.MustCompile(`^Lima,?\s+\d{1,2}\s+de`)
	pageNumberRe = regexp.MustCompile(`^\d+\s*/\s*\d*$`)
	documentIDRe = regexp.MustCompile(`(?i)informe\s+n[°º*]?\s*\d{1,4}(?:-\d{4})?(?:-cf)?`)
	bareHeaderRe = regexp.MustCompile(`(?i)^(?:conclusion(?:es)?|anexos?|introducción|antecedentes)\s*:?$`)

	chartTitleRe  = regexp.MustCompile(`(?i)^(gráfico|tabla|cuadro|figura|gráf|tab)\s+n?°?\s*\d+`)
	numColonRe    = regexp.MustCompile(`^\d+\s*:\s*.+`)
	romanRe       = regexp.MustCompile(`^[IVXLCDM]+\s*[.:]`)
	letterParenRe = regexp.MustCompile(`^[A-Z]\s*\)\s*.+`)
	letterDotRe   = regexp.MustCompile(`^[A-Z]\s*\.\s*.+`)

	replacementRunRe = regexp.MustCompile("�+")
	strayGlyphRe     = regexp.MustCompile(`[|<>]`)
	loneCapitalRe    = regexp.MustCompile(`\s[ÁÉÍÓÚÑ]\s`)
	splitDigitsRe    = regexp.MustCompile(`\b(\d)\s(\d{3})\b`)
	spaceBeforePunct = regexp.MustCompile(`[ \t]+([.,;:!?])`)
	multiSpaceRe     = regexp.MustCompile(` {2,}`)
)

// headerStageRules run before the length-based noise rules so a section
// header is attributed to its own reason even when it is also short.
var headerStageRules = []RemovalRule{
	{
		Reason: ReasonChartLabel,
		Match: func(para string, cfg model.CleanerConfig) (string, bool) {
			switch {
			case chartTitleRe.MatchString(para):
				return chartTitleRe.String(), true
			case numColonRe.MatchString(para):
				return numColonRe.String(), true
			case romanRe.MatchString(para):
				return romanRe.String(), true
			case letterParenRe.MatchString(para):
				return letterParenRe.String(), true
			case letterDotRe.MatchString(para) && charLen(para) < cfg.LabelMaxLen:
				return letterDotRe.String(), true
			}
			return "", false
		},
	},
	{
		Reason: ReasonAllCaps,
		Match: func(para string, cfg model.CleanerConfig) (string, bool) {
			if charLen(para) < cfg.ShortCapsLen && capsRatio(para) > cfg.CapsRatioMax {
				return "uppercase ratio above limit", true
			}
			return "", false
		},
	},
	{
		Reason: ReasonSectionHeader,
		Match: func(para string, cfg model.CleanerConfig) (string, bool) {
			if isSectionHeader(para, cfg) {
				return "short line, no terminal punctuation", true
			}
			return "", false
		},
	},
}

// noiseStageRules remove residual noise paragraphs under the noise ceiling
// plus anything below the minimum paragraph length.
var noiseStageRules = []RemovalRule{
	{
		Reason: ReasonPageNumber,
		Match: func(para string, cfg model.CleanerConfig) (string, bool) {
			if pageNumberRe.MatchString(para) {
				return pageNumberRe.String(), true
			}
			return "", false
		},
	},
	{
		Reason: ReasonDateLine,
		Match: func(para string, cfg model.CleanerConfig) (string, bool) {
			if charLen(para) < cfg.NoiseCeiling && dateLineRe.MatchString(para) {
				return dateLineRe.String(), true
			}
			return "", false
		},
	},
	{
		Reason: ReasonDocumentID,
		Match: func(para string, cfg model.CleanerConfig) (string, bool) {
			if charLen(para) < cfg.NoiseCeiling && documentIDRe.MatchString(para) {
				return documentIDRe.String(), true
			}
			return "", false
		},
	},
	{
		Reason: ReasonSectionHeader,
		Match: func(para string, cfg model.CleanerConfig) (string, bool) {
			if charLen(para) < cfg.NoiseCeiling && bareHeaderRe.MatchString(para) {
				return bareHeaderRe.String(), true
			}
			return "", false
		},
	},
	{
		Reason: ReasonTooShort,
		Match: func(para string, cfg model.CleanerConfig) (string, bool) {
			if charLen(para) < cfg.MinParagraphLen {
				return "below minimum paragraph length", true
			}
			return "", false
		},
	},
}

// repairRules rewrite OCR and typography artifacts inside retained
// paragraphs. They run after removal so audit entries keep the original text.
var repairRules = []RepairRule{
	{
		Name: "rare symbols",
		Apply: func(text string, _ model.CleanerConfig) string {
			r := strings.NewReplacer(
				"•", " ", "➢", " ", "►", " ", "■", " ", "▪", " ",
				"□", " ", "◼", " ", "○", " ", "●", " ", "▫", " ",
				"Ø", " ", "…", "...",
			)
			return r.Replace(text)
		},
	},
	{
		Name: "replacement characters",
		Apply: func(text string, _ model.CleanerConfig) string {
			return replacementRunRe.ReplaceAllString(text, "")
		},
	},
	{
		Name: "stray glyphs",
		Apply: func(text string, _ model.CleanerConfig) string {
			text = strayGlyphRe.ReplaceAllString(text, "")
			return loneCapitalRe.ReplaceAllString(text, " ")
		},
	},
	{
		Name: "split digits",
		Apply: func(text string, _ model.CleanerConfig) string {
			// "2 019" was one number before OCR split it; "2019 2020" is a
			// year range and keeps its space.
			return splitDigitsRe.ReplaceAllString(text, "$1$2")
		},
	},
	{
		Name: "unicode normalization",
		Apply: func(text string, _ model.CleanerConfig) string {
			return norm.NFC.String(text)
		},
	},
	{
		Name: "whitespace",
		Apply: func(text string, _ model.CleanerConfig) string {
			text = spaceBeforePunct.ReplaceAllString(text, "$1")
			text = multiSpaceRe.ReplaceAllString(text, " ")
			return strings.TrimSpace(text)
		},
	},
}

// isSectionHeader reports whether a paragraph is a standalone heading: short,
// few words, starts uppercase, no terminal sentence punctuation, not a date.
func isSectionHeader(para string, cfg model.CleanerConfig) bool {
	if para == "" {
		return false
	}
	words := strings.Fields(para)
	if len(words) == 0 || len(words) >= cfg.MaxHeaderWords {
		return false
	}
	runes := []rune(para)
	if len(runes) >= cfg.MaxHeaderLen {
		return false
	}
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	if strings.ContainsRune(".!?", runes[len(runes)-1]) {
		return false
	}
	return !dateStartRe.MatchString(para)
}

// charLen counts characters, not bytes. Accented Spanish text is longer in
// bytes than in characters, and every length threshold is a character count.
func charLen(s string) int {
	return utf8.RuneCountInString(s)
}

// capsRatio returns the share of alphabetic runes that are uppercase.
func capsRatio(para string) float64 {
	letters, upper := 0, 0
	for _, r := range para {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}
