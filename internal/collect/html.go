package collect

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// ListEntry is one row of a CF list page before the detail page is visited.
type ListEntry struct {
	Date     string
	DocTitle string
	PageURL  string
}

// PDFLink is one candidate PDF anchor from a detail page.
type PDFLink struct {
	Href string
	Text string
}

var presentationKeywords = []string{
	"ppt",
	"presentacion",
	"presentación",
	"diapositiva",
	"slides",
	"conferencia",
	"powerpoint",
}

var priorityKeywords = []string{
	"comunicado",
	"informe",
	"nota",
	"reporte",
	"documento",
	"pronunciamiento",
}

// IsPresentation reports whether a URL or link text points at slide material
// rather than an opinion document.
func IsPresentation(s string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, kw := range presentationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ParseListPage extracts the date/title/detail-URL rows from a CF list page.
// The site renders its archives as a single table.table element.
func ParseListPage(doc string) ([]ListEntry, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}

	var entries []ListEntry
	for _, row := range findAll(root, func(n *html.Node) bool {
		return n.Data == "tr" && hasAncestor(n, func(a *html.Node) bool {
			return a.Data == "table" && hasClass(a, "table")
		})
	}) {
		entry := parseListRow(row)
		if entry.PageURL != "" {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

func parseListRow(row *html.Node) ListEntry {
	var entry ListEntry

	for _, td := range findAll(row, func(n *html.Node) bool { return n.Data == "td" }) {
		if hasClass(td, "size100") && entry.Date == "" {
			if p := findFirst(td, func(n *html.Node) bool { return n.Data == "p" }); p != nil {
				entry.Date = strings.TrimSpace(nodeText(p))
			}
		}
		if entry.PageURL == "" {
			if a := findFirst(td, func(n *html.Node) bool { return n.Data == "a" && attr(n, "href") != "" }); a != nil {
				entry.DocTitle = strings.TrimSpace(nodeText(a))
				entry.PageURL = attr(a, "href")
			}
		}
	}

	return entry
}

// ExtractPDFLinks returns every anchor on a detail page whose href mentions
// a .pdf target.
func ExtractPDFLinks(doc string) ([]PDFLink, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}

	var links []PDFLink
	for _, a := range findAll(root, func(n *html.Node) bool {
		return n.Data == "a" && strings.Contains(strings.ToLower(attr(n, "href")), ".pdf")
	}) {
		links = append(links, PDFLink{
			Href: attr(a, "href"),
			Text: strings.TrimSpace(nodeText(a)),
		})
	}

	return links, nil
}

// SelectPDF picks the most plausible document from candidate links.
// Presentations are filtered out first; the survivors are ranked by how many
// document-type keywords their href carries.
func SelectPDF(links []PDFLink) string {
	if len(links) == 0 {
		return ""
	}

	var filtered []PDFLink
	for _, l := range links {
		if !IsPresentation(l.Href) && !IsPresentation(l.Text) {
			filtered = append(filtered, l)
		}
	}

	candidates := filtered
	if len(candidates) == 0 {
		candidates = links
	}

	score := func(href string) int {
		h := strings.ToLower(href)
		n := 0
		for _, kw := range priorityKeywords {
			if strings.Contains(h, kw) {
				n++
			}
		}
		return n
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return score(candidates[i].Href) > score(candidates[j].Href)
	})

	return candidates[0].Href
}

// FindPDFURL resolves the PDF behind a detail page. The CF site has changed
// its embedding over the years, so four strategies are tried in order:
// direct anchors, iframe src, the Google Docs viewer wrapper, and the
// viewer's "Guardar" download button.
func FindPDFURL(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}

	// A) Direct anchor links
	links, _ := ExtractPDFLinks(doc)
	if u := SelectPDF(links); u != "" {
		return u, nil
	}

	// B) iframe src with .pdf
	if iframe := findFirst(root, func(n *html.Node) bool {
		return n.Data == "iframe" && strings.Contains(strings.ToLower(attr(n, "src")), ".pdf")
	}); iframe != nil {
		return normalizeSchemeRelative(attr(iframe, "src")), nil
	}

	// C) Google Docs viewer wrapper
	if iframe := findFirst(root, func(n *html.Node) bool {
		return n.Data == "iframe" && strings.Contains(strings.ToLower(attr(n, "src")), "docs.google.com")
	}); iframe != nil {
		if u := googleViewerTarget(attr(iframe, "src")); u != "" {
			return u, nil
		}
	}

	// D) Download button or "Guardar" label wrapped in an anchor
	button := findFirst(root, func(n *html.Node) bool {
		return n.Data == "button" && attr(n, "id") == "downloadButton"
	})
	if button == nil {
		button = findFirst(root, func(n *html.Node) bool {
			return n.Data == "span" && strings.TrimSpace(nodeText(n)) == "Guardar"
		})
	}
	if button != nil {
		for p := button.Parent; p != nil; p = p.Parent {
			if p.Type == html.ElementNode && p.Data == "a" && attr(p, "href") != "" {
				return attr(p, "href"), nil
			}
		}
	}

	return "", nil
}

// FallbackPDFURL extracts a PDF URL from viewer markup when the primary
// download fails: <embed src> first, then <div data-pdf-src>.
func FallbackPDFURL(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}

	if embed := findFirst(root, func(n *html.Node) bool {
		return n.Data == "embed" && strings.Contains(strings.ToLower(attr(n, "src")), ".pdf")
	}); embed != nil {
		return normalizeSchemeRelative(attr(embed, "src")), nil
	}

	if div := findFirst(root, func(n *html.Node) bool {
		return n.Data == "div" && strings.Contains(strings.ToLower(attr(n, "data-pdf-src")), ".pdf")
	}); div != nil {
		return normalizeSchemeRelative(attr(div, "data-pdf-src")), nil
	}

	return "", nil
}

func googleViewerTarget(src string) string {
	parsed, err := url.Parse(src)
	if err != nil {
		return ""
	}
	target := parsed.Query().Get("url")
	if target == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(target)
	if err != nil {
		return target
	}
	return decoded
}

func normalizeSchemeRelative(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func hasAncestor(n *html.Node, match func(*html.Node) bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && match(p) {
			return true
		}
	}
	return false
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && match(n) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
