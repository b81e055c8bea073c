package enrich

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// iconLink is one <link> element that may point at an icon.
type iconLink struct {
	rels  []string
	href  string
	sizes string
}

func (l iconLink) hasRel(rel string) bool {
	for _, r := range l.rels {
		if r == rel {
			return true
		}
	}
	return false
}

// largestSize returns the biggest edge listed in a sizes attribute.
// "any" counts as the largest possible.
func largestSize(sizes string) int {
	best := 0
	for _, s := range strings.Fields(strings.ToLower(sizes)) {
		if s == "any" {
			return 1 << 16
		}
		w, _, ok := strings.Cut(s, "x")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(w); err == nil && n > best {
			best = n
		}
	}
	return best
}

// Page is the subset of an HTML document enrichment cares about.
type Page struct {
	URL      string
	Title    string
	Manifest string
	Links    []iconLink
	Meta     map[string]string // keyed by lower-cased name or property
}

// ParsePage extracts title, icon links and meta tags from body.
func ParsePage(pageURL string, body []byte) (*Page, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	p := &Page{URL: pageURL, Meta: make(map[string]string)}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if p.Title == "" {
					p.Title = strings.Join(strings.Fields(textContent(n)), " ")
				}
			case atom.Link:
				p.addLink(n)
			case atom.Meta:
				key := strings.ToLower(attr(n, "name"))
				if key == "" {
					key = strings.ToLower(attr(n, "property"))
				}
				if key != "" {
					if _, seen := p.Meta[key]; !seen {
						p.Meta[key] = strings.TrimSpace(attr(n, "content"))
					}
				}
			case atom.Svg, atom.Script, atom.Style:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if p.Title == "" {
		p.Title = p.Meta["og:title"]
	}
	return p, nil
}

func (p *Page) addLink(n *html.Node) {
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" {
		return
	}
	rels := strings.Fields(strings.ToLower(attr(n, "rel")))
	l := iconLink{rels: rels, href: href, sizes: attr(n, "sizes")}
	if l.hasRel("manifest") {
		if p.Manifest == "" {
			p.Manifest = href
		}
		return
	}
	p.Links = append(p.Links, l)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
