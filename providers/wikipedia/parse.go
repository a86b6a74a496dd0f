package wikipedia

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"red-subcontinent/models"
	"red-subcontinent/providers"
)

var (
	spaceRE       = regexp.MustCompile(`\s+`)
	headerCiteRE  = regexp.MustCompile(`\[.*?\]`)
	numericCiteRE = regexp.MustCompile(`\[\d+\]`)
	neededCiteRE  = regexp.MustCompile(`(?i)\[citation needed\]`)
)

// ParsePage liest alle Tabellen mit der Klasse "wikitable" aus einer Seite.
// Tabellen ohne Kopfzeile werden übersprungen, Zeilen ohne Titel ebenso.
func ParsePage(doc, sourceURL string) ([]models.RawConflict, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}

	var out []models.RawConflict
	for _, table := range findAll(root, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && hasClass(n, "wikitable")
	}) {
		out = append(out, parseTable(table, base)...)
	}
	return out, nil
}

func parseTable(table *html.Node, base *url.URL) []models.RawConflict {
	rows := tableRows(table)
	if len(rows) == 0 {
		return nil
	}
	var headers []string
	for _, cell := range rowCells(rows[0]) {
		headers = append(headers, headerText(cell))
	}
	columns := providers.MapColumns(headers)
	if len(columns) == 0 {
		return nil
	}

	var out []models.RawConflict
	for _, row := range rows[1:] {
		cells := rowCells(row)
		if len(cells) == 0 {
			continue
		}
		raw := models.RawConflict{
			SourceURL:  base.String(),
			SourceName: "Wikipedia",
			SourceType: string(models.SourceWikipedia),
		}
		for field, idx := range columns {
			if idx >= len(cells) {
				continue
			}
			if text := cellText(cells[idx]); text != "" {
				raw.RawField(field, text)
			}
			if field == "title" {
				raw.References = append(raw.References, articleLinks(cells[idx], base)...)
			}
		}
		if raw.Title != "" {
			out = append(out, raw)
		}
	}
	return out
}

// tableRows liefert die Zeilen der Tabelle ohne die verschachtelter Tabellen.
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.DataAtom {
			case atom.Tr:
				rows = append(rows, c)
			case atom.Thead, atom.Tbody, atom.Tfoot:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

func rowCells(row *html.Node) []*html.Node {
	var cells []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.Td || c.DataAtom == atom.Th {
			cells = append(cells, c)
		}
	}
	return cells
}

func headerText(cell *html.Node) string {
	text := strings.ToLower(textContent(cell, "", false))
	text = spaceRE.ReplaceAllString(text, " ")
	text = headerCiteRE.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// cellText liefert den Zelltext ohne Fußnoten.
func cellText(cell *html.Node) string {
	text := textContent(cell, " ", true)
	text = spaceRE.ReplaceAllString(text, " ")
	text = numericCiteRE.ReplaceAllString(text, "")
	text = neededCiteRE.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// textContent verbindet die getrimmten Textknoten mit sep. skipSup lässt
// <sup>-Elemente aus.
func textContent(n *html.Node, sep string, skipSup bool) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Sup:
				if skipSup {
					return
				}
			case atom.Style, atom.Script:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, sep)
}

// articleLinks sammelt Links auf Wikipedia-Artikel, ohne Dateiseiten.
func articleLinks(cell *html.Node, base *url.URL) []string {
	var refs []string
	for _, a := range findAll(cell, func(n *html.Node) bool { return n.DataAtom == atom.A }) {
		href := attr(a, "href")
		if !strings.HasPrefix(href, "/wiki/") || strings.HasPrefix(href, "/wiki/File:") {
			continue
		}
		ref, err := base.Parse(href)
		if err != nil {
			continue
		}
		refs = append(refs, ref.String())
	}
	return refs
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
