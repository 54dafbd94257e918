// Package layout detects the vertical boundaries separating header, body,
// and footer bands on a binarized page image. Detection is a pure function
// of the pixel grid: when neither strategy finds a boundary the full page is
// kept, so a detection failure can never lose body text.
package layout

import (
	"image"
	"sort"

	"github.com/jmcruz/fiscaltone/internal/model"
)

// Segment is a nearly-horizontal run of ink on a single pixel row.
type Segment struct {
	Y  int
	X1 int // inclusive
	X2 int // exclusive
}

// Length returns the segment length in pixels.
func (s Segment) Length() int { return s.X2 - s.X1 }

// Zone is a contiguous band of rows whose ink density stays below the
// whitespace threshold.
type Zone struct {
	Start int // first row, inclusive
	End   int // last row, exclusive
}

// Height returns the zone height in rows.
func (z Zone) Height() int { return z.End - z.Start }

// DetectFooter returns the Y coordinate at which body content ends and the
// footer begins. It first looks for a separator rule inside the configured
// search band; failing that it ranks whitespace zones below the page midline.
// When neither strategy yields a boundary the page height is returned: no
// footer detected, keep everything.
func DetectFooter(g *image.Gray, cfg model.DetectorConfig) int {
	h := g.Bounds().Dy()
	w := g.Bounds().Dx()
	if h == 0 || w == 0 {
		return h
	}

	yMin := clamp(int(float64(h)*cfg.SearchBandMinFrac), 0, h)
	yMax := clamp(int(float64(h)*cfg.SearchBandMaxFrac), 0, h)

	if seg, ok := findSeparator(g, yMin, yMax, cfg); ok {
		return seg.Y
	}

	zones := WhitespaceZones(g, h/2, h, cfg.WhitespaceThreshold, cfg.MinZoneHeight)
	if zone, ok := selectFooterZone(zones); ok {
		return zone.End
	}

	return h
}

// DetectHeader returns the Y coordinate at which the header/letterhead band
// ends and body content begins, or 0 when no boundary is found.
func DetectHeader(g *image.Gray, cfg model.DetectorConfig) int {
	h := g.Bounds().Dy()
	w := g.Bounds().Dx()
	if h == 0 || w == 0 {
		return 0
	}

	bandEnd := clamp(int(float64(h)*cfg.HeaderBandMaxFrac), 0, h)

	// Mirror of the footer rule: the candidate closest to the body wins,
	// which at the top of the page means the largest Y.
	minLen := int(cfg.MinLineLenFrac * float64(w))
	segments := horizontalSegments(g, 0, bandEnd, cfg.MaxGapPx)
	var best *Segment
	for i := range segments {
		seg := segments[i]
		if seg.Length() < minLen || !isThinRule(g, seg) {
			continue
		}
		if best == nil || seg.Y > best.Y || (seg.Y == best.Y && seg.Length() > best.Length()) {
			best = &segments[i]
		}
	}
	if best != nil {
		return best.Y
	}

	zones := WhitespaceZones(g, 0, h/3, cfg.WhitespaceThreshold, cfg.MinZoneHeight)
	if len(zones) > 0 {
		// The widest gap below the letterhead; cropping at its top edge
		// removes the logo band and keeps the gap with the body.
		largest := zones[0]
		for _, z := range zones[1:] {
			if z.Height() > largest.Height() {
				largest = z
			}
		}
		if largest.Start > 0 {
			return largest.Start
		}
	}

	return 0
}

// findSeparator returns the best separator-rule candidate inside [yMin, yMax):
// the one closest to the top of the band, ties broken by length.
func findSeparator(g *image.Gray, yMin, yMax int, cfg model.DetectorConfig) (Segment, bool) {
	w := g.Bounds().Dx()
	minLen := int(cfg.MinLineLenFrac * float64(w))
	maxLen := w
	if cfg.MaxLineLenFrac > 0 {
		maxLen = int(cfg.MaxLineLenFrac * float64(w))
	}

	var best *Segment
	segments := horizontalSegments(g, yMin, yMax, cfg.MaxGapPx)
	for i := range segments {
		seg := segments[i]
		if seg.Length() < minLen || seg.Length() > maxLen {
			continue
		}
		if !isThinRule(g, seg) {
			continue
		}
		if best == nil || seg.Y < best.Y || (seg.Y == best.Y && seg.Length() > best.Length()) {
			best = &segments[i]
		}
	}
	if best == nil {
		return Segment{}, false
	}
	return *best, true
}

// horizontalSegments scans rows [yMin, yMax) for ink runs, bridging gaps of
// up to maxGap pixels.
func horizontalSegments(g *image.Gray, yMin, yMax, maxGap int) []Segment {
	w := g.Bounds().Dx()
	var segments []Segment

	for y := yMin; y < yMax; y++ {
		runStart := -1
		gap := 0
		lastInk := -1

		for x := 0; x < w; x++ {
			if isInk(g, x, y) {
				if runStart < 0 {
					runStart = x
				}
				lastInk = x
				gap = 0
				continue
			}
			if runStart < 0 {
				continue
			}
			gap++
			if gap > maxGap {
				segments = append(segments, Segment{Y: y, X1: runStart, X2: lastInk + 1})
				runStart = -1
				gap = 0
			}
		}
		if runStart >= 0 {
			segments = append(segments, Segment{Y: y, X1: runStart, X2: lastInk + 1})
		}
	}
	return segments
}

// isThinRule reports whether the rows a few pixels above and below the
// segment span are mostly background. Text glyphs fail this check; drawn
// separator rules pass it.
func isThinRule(g *image.Gray, seg Segment) bool {
	const probe = 6
	const maxInkRatio = 0.10

	h := g.Bounds().Dy()
	for _, y := range []int{seg.Y - probe, seg.Y + probe} {
		if y < 0 || y >= h {
			continue
		}
		ink := 0
		for x := seg.X1; x < seg.X2; x++ {
			if isInk(g, x, y) {
				ink++
			}
		}
		if float64(ink) > maxInkRatio*float64(seg.Length()) {
			return false
		}
	}
	return true
}

// WhitespaceZones returns the contiguous low-ink bands of at least minHeight
// rows within [yMin, yMax), in top-to-bottom order.
func WhitespaceZones(g *image.Gray, yMin, yMax int, threshold float64, minHeight int) []Zone {
	var zones []Zone
	inZone := false
	start := 0

	for y := yMin; y < yMax; y++ {
		white := rowInkRatio(g, y) < threshold
		switch {
		case white && !inZone:
			start = y
			inZone = true
		case !white && inZone:
			if y-start >= minHeight {
				zones = append(zones, Zone{Start: start, End: y})
			}
			inZone = false
		}
	}
	if inZone && yMax-start >= minHeight {
		zones = append(zones, Zone{Start: start, End: yMax})
	}
	return zones
}

// selectFooterZone applies the bottom-to-top ranking rule: the bottom-most
// zone is the true page margin and is discarded; the zone above it marks the
// footer boundary, unless the third zone from the bottom is strictly taller
// than both below it, in which case a footnote block sits between them and
// the third zone is the boundary.
func selectFooterZone(zones []Zone) (Zone, bool) {
	if len(zones) < 2 {
		return Zone{}, false
	}

	byBottom := make([]Zone, len(zones))
	copy(byBottom, zones)
	sort.Slice(byBottom, func(i, j int) bool { return byBottom[i].End > byBottom[j].End })

	if len(byBottom) >= 3 &&
		byBottom[2].Height() > byBottom[1].Height() &&
		byBottom[2].Height() > byBottom[0].Height() {
		return byBottom[2], true
	}
	return byBottom[1], true
}

func rowInkRatio(g *image.Gray, y int) float64 {
	w := g.Bounds().Dx()
	if w == 0 {
		return 0
	}
	ink := 0
	for x := 0; x < w; x++ {
		if isInk(g, x, y) {
			ink++
		}
	}
	return float64(ink) / float64(w)
}

func isInk(g *image.Gray, x, y int) bool {
	b := g.Bounds()
	return g.GrayAt(b.Min.X+x, b.Min.Y+y).Y < 128
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
