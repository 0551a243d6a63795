package parser

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
)

// DefaultAddendumHosts lists the providers whose links are treated as addenda.
var DefaultAddendumHosts = []string{"l1.prodbx.com"}

var (
	urlPattern     = regexp.MustCompile(`https?://[^\s<>"')]+`)
	numericSegment = regexp.MustCompile(`^\d+$`)
)

// URLID extracts the addendum id: the id query parameter, else the last
// numeric path segment.
func URLID(u *url.URL) string {
	if v := strings.TrimSpace(u.Query().Get("id")); v != "" {
		return v
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if numericSegment.MatchString(segments[i]) {
			return segments[i]
		}
	}
	return ""
}

type linkCollector struct {
	hosts map[string]bool
	seen  map[string]bool
	links []models.AddendumLink
}

func newLinkCollector(hosts []string) *linkCollector {
	lc := &linkCollector{hosts: map[string]bool{}, seen: map[string]bool{}}
	for _, h := range hosts {
		lc.hosts[strings.ToLower(strings.TrimSpace(h))] = true
	}
	return lc
}

func (lc *linkCollector) add(raw, text string) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return
	}
	host := strings.ToLower(u.Hostname())
	if !lc.hosts[host] && !strings.Contains(strings.ToLower(text), "addendum") {
		return
	}
	link := models.AddendumLink{URL: u.String(), URLID: URLID(u), Text: text}
	if lc.seen[link.Key()] {
		return
	}
	lc.seen[link.Key()] = true
	lc.links = append(lc.links, link)
}

func (lc *linkCollector) fromHTML(doc *html.Node) {
	for _, a := range findAll(doc, atom.A) {
		lc.add(attr(a, "href"), textOf(a))
	}
}

func (lc *linkCollector) fromText(text string) {
	for _, line := range strings.Split(text, "\n") {
		for _, m := range urlPattern.FindAllString(line, -1) {
			lc.add(strings.TrimRight(m, ".,;"), line)
		}
	}
}
