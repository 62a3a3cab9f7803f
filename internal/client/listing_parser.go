package client

import (
	"strconv"
	"strings"

	"zootovary/crawler/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// pageParser turns listing and product documents into domain objects. All
// selectors and positional offsets live here; the site's markup is fragile
// and nothing outside this file should know about it.
type pageParser struct {
	baseURL     string
	componentID string
	pageSize    int
}

func newPageParser(baseURL, componentID string, pageSize int) *pageParser {
	return &pageParser{
		baseURL:     baseURL,
		componentID: componentID,
		pageSize:    pageSize,
	}
}

// countPages derives the number of listing pages from a category's first
// page. Best-effort heuristic over the site's navigation widget, in fixed
// priority order:
//
//  1. no product cards at all means an empty category, zero pages;
//  2. fewer cards than one full page means exactly one page;
//  3. otherwise the "»" jump-forward link (rendered only past 10 pages)
//     carries the total in its trailing query parameter; without it the
//     total equals the number of navigation links. A full page with no
//     navigation widget at all still counts as one page — a page with
//     cards on it is never reported as empty.
func (p *pageParser) countPages(doc *goquery.Document) int {
	cards := doc.Find("div.catalog-item").Length()
	if cards == 0 {
		return 0
	}
	if cards < p.pageSize {
		return 1
	}

	nav := doc.Find("div.navigation").First()
	links := nav.Find("a")

	pages := 0
	links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) != "»" {
			return true
		}
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		splits := strings.Split(href, "=")
		if n, err := strconv.Atoi(splits[len(splits)-1]); err == nil {
			pages = n
			return false
		}
		return true
	})

	if pages == 0 {
		pages = links.Length()
	}
	if pages == 0 {
		pages = 1
	}
	return pages
}

// extractRefs pulls one ProductRef per product card on a listing page.
func (p *pageParser) extractRefs(doc *goquery.Document) []domain.ProductRef {
	refs := make([]domain.ProductRef, 0)
	doc.Find("div.catalog-content-info").Each(func(_ int, card *goquery.Selection) {
		name := card.Find("a.name").First()
		href, ok := name.Attr("href")
		if !ok {
			log.Debugf("product card without a name link, skipping")
			return
		}
		refs = append(refs, domain.ProductRef{
			Link:  href,
			Title: name.AttrOr("title", ""),
		})
	})
	return refs
}
