// Package locate finds the page and offset at which the opinion body of a
// document begins, by scanning for its section heading.
package locate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmcruz/fiscaltone/internal/model"
)

// Locator scans extracted pages for the heading that opens the opinion
// section.
type Locator struct {
	cfg      model.LocatorConfig
	patterns []*regexp.Regexp
}

// New compiles the configured heading patterns into a Locator.
func New(cfg model.LocatorConfig) (*Locator, error) {
	if len(cfg.Patterns) == 0 {
		return nil, fmt.Errorf("locator: no heading patterns configured")
	}
	patterns := make([]*regexp.Regexp, 0, len(cfg.Patterns))
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("locator: compile pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return &Locator{cfg: cfg, patterns: patterns}, nil
}

// Find scans pages in order for a heading line and returns where the opinion
// body starts. Page 1 is a cover and is never matched. When no heading is
// found anywhere, the conservative fallback of page 1, offset 0 is returned
// so downstream stages process the whole document.
func (l *Locator) Find(pages []model.Page) model.KeywordMatch {
	for _, page := range pages {
		if page.Number < 2 {
			continue
		}
		// Only heading-sized words take part in line grouping. A footnote
		// marker or header fragment sharing the heading's baseline would
		// otherwise pollute the line and hide the match.
		banded := l.filterFontBand(page.Words)
		for _, ln := range groupLines(banded, l.cfg.LineTol) {
			if !l.isHeadingCandidate(ln) {
				continue
			}
			text := ln.text()
			for _, re := range l.patterns {
				if !re.MatchString(text) {
					continue
				}
				return model.KeywordMatch{
					Page:    page.Number,
					Offset:  ln.top(),
					Found:   true,
					Heading: text,
				}
			}
		}
	}
	return model.NoMatch()
}

// line is a left-to-right run of words sharing a baseline.
type line struct {
	words []model.Word
}

func (ln line) text() string {
	parts := make([]string, len(ln.words))
	for i, w := range ln.words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

func (ln line) top() float64 {
	top := ln.words[0].Top
	for _, w := range ln.words[1:] {
		if w.Top < top {
			top = w.Top
		}
	}
	return top
}

// filterFontBand keeps the words whose font size sits in the heading band.
func (l *Locator) filterFontBand(words []model.Word) []model.Word {
	out := make([]model.Word, 0, len(words))
	for _, w := range words {
		if w.Size >= l.cfg.FontSizeMin && w.Size <= l.cfg.FontSizeMax {
			out = append(out, w)
		}
	}
	return out
}

// isHeadingCandidate applies the margin filter: the line must start at the
// left margin. Centered mentions of the heading text inside cover pages or
// tables fail this check.
func (l *Locator) isHeadingCandidate(ln line) bool {
	if len(ln.words) == 0 {
		return false
	}
	return ln.words[0].X0 < l.cfg.LeftMarginX
}

// groupLines buckets words into baselines whose Top coordinates differ by at
// most tol, then orders each line left to right. The result is ordered top
// to bottom so scanning is deterministic.
func groupLines(words []model.Word, tol float64) []line {
	if len(words) == 0 {
		return nil
	}
	sorted := make([]model.Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Top != sorted[j].Top {
			return sorted[i].Top < sorted[j].Top
		}
		return sorted[i].X0 < sorted[j].X0
	})

	var lines []line
	cur := line{words: []model.Word{sorted[0]}}
	curTop := sorted[0].Top
	for _, w := range sorted[1:] {
		if w.Top-curTop <= tol {
			cur.words = append(cur.words, w)
			continue
		}
		lines = append(lines, cur)
		cur = line{words: []model.Word{w}}
		curTop = w.Top
	}
	lines = append(lines, cur)

	for i := range lines {
		sort.SliceStable(lines[i].words, func(a, b int) bool {
			return lines[i].words[a].X0 < lines[i].words[b].X0
		})
	}
	return lines
}
