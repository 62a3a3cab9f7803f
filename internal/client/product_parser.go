package client

import (
	"strings"
	"time"

	"zootovary/crawler/internal/domain"
	"zootovary/crawler/internal/state"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// Unit tokens for classifying an offer's minimum-quantity text. The site
// renders Russian units; the Latin equivalents keep the classifier stable
// if it ever serves a localized page.
var (
	weightTokens   = []string{"кг", "гр", "г", "kg", "g"}
	volumeTokens   = []string{"л", "l", "L"}
	quantityTokens = []string{"шт", "pcs"}
)

// Classify maps a minimum-quantity text like "2 kg" onto exactly one of
// weight, volume or quantity. First match wins in that order; text matching
// no token leaves all three empty. The token must not open the string: a
// bare unit with no leading amount is not a measurement.
func Classify(text string) (weight, volume, quantity string) {
	if weight = matchUnit(text, weightTokens); weight != "" {
		return
	}
	if volume = matchUnit(text, volumeTokens); volume != "" {
		return
	}
	quantity = matchUnit(text, quantityTokens)
	return
}

func matchUnit(text string, tokens []string) string {
	for _, token := range tokens {
		if i := strings.Index(text, token); i >= 0 {
			if i == 0 {
				return ""
			}
			return text
		}
	}
	return ""
}

// parseProduct extracts offers and shared metadata from a product page.
//
// It never returns an error: a missing content container or a dedup
// collision leaves Parsed false and the caller moves on. On a collision the
// offers accepted before it stay on the product while the remaining rows
// are abandoned; the record is deliberately partial and Parsed reflects
// that. CapturedAt is taken once per product.
func (p *pageParser) parseProduct(doc *goquery.Document, ref domain.ProductRef, keys *state.KeyRegistry) *domain.Product {
	product := &domain.Product{Link: ref.Link, Title: ref.Title}

	root := doc.Find("div#" + p.componentID).First()
	if root.Length() == 0 {
		log.Errorf("we've got no data from %s, skipping", ref.Link)
		return product
	}
	product.CapturedAt = time.Now()

	collided := false
	rows := root.Find("table.b-catalog-element-offers-table").First().
		Find("tr.b-catalog-element-offer")
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		offer := p.parseOffer(row)
		if err := keys.Reserve(offer.Article, offer.Barcode); err != nil {
			log.Errorf("we already saved an item with article %q or barcode %q", offer.Article, offer.Barcode)
			collided = true
			return false
		}
		product.Offers = append(product.Offers, offer)
		return true
	})
	if collided {
		return product
	}

	product.Country = p.country(root)
	product.Categories = p.breadcrumbs(root)
	product.Pictures = p.pictures(root)
	product.Parsed = true
	return product
}

// parseOffer reads one row of the offers table by its fixed cell positions.
func (p *pageParser) parseOffer(row *goquery.Selection) domain.Offer {
	node := row.Get(0)
	offer := domain.Offer{
		Article:     offerField(node, 0, 3),
		Barcode:     offerField(node, 1, 3),
		MinQuantity: offerField(node, 2, 3),
		Price:       strings.Trim(offerField(node, 4, 4), " р"),
		PromoPrice:  strings.Trim(offerField(node, 4, 7), " р"),
	}
	offer.Weight, offer.Volume, offer.Quantity = Classify(offer.MinQuantity)
	offer.InStock = row.Find("div.catalog-item-no-stock").Length() == 0
	return offer
}

// country reads the producing country from the fixed-offset sibling inside
// the offer-left wrapper, taking the part after the "Country:" label.
func (p *pageParser) country(root *goquery.Selection) string {
	wrapper := root.Find("div.catalog-element-offer-left").First()
	if wrapper.Length() == 0 {
		return ""
	}
	node := nthContent(wrapper.Get(0), 3)
	if node == nil || node.FirstChild == nil {
		return ""
	}
	_, after, found := strings.Cut(nodeText(node.FirstChild), ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(after)
}

// breadcrumbs strides every second child of the breadcrumb list starting at
// a fixed offset and stopping short of the trailing nodes, joining the
// crumb titles with a pipe.
func (p *pageParser) breadcrumbs(root *goquery.Selection) string {
	wrapper := root.Find("ul.breadcrumb-navigation").First()
	if wrapper.Length() == 0 {
		return ""
	}
	contents := allContents(wrapper.Get(0))
	var names []string
	for i := 4; i < len(contents)-2; i += 2 {
		if contents[i].FirstChild == nil {
			continue
		}
		names = append(names, strings.TrimSpace(nodeText(contents[i].FirstChild)))
	}
	return strings.Join(names, "|")
}

// pictures collects the gallery anchors' hrefs as absolute URLs.
func (p *pageParser) pictures(root *goquery.Selection) string {
	var links []string
	root.Find("div.catalog-element-small-picture").Each(func(_ int, s *goquery.Selection) {
		node := nthContent(s.Get(0), 1)
		if node == nil || node.Type != html.ElementNode {
			return
		}
		for _, attr := range node.Attr {
			if attr.Key == "href" {
				links = append(links, p.baseURL+attr.Val)
			}
		}
	})
	return strings.Join(links, ", ")
}

// offerField reads the child node at position idx inside the row cell at
// position cell. The markup is addressed positionally, so every access is
// guarded: the cell must exist, the node must exist, be an element rather
// than loose text, and be non-empty. Any failing guard yields "".
func offerField(row *html.Node, cell, idx int) string {
	c := nthElement(row, cell)
	if c == nil {
		return ""
	}
	node := nthContent(c, idx)
	if node == nil || node.Type != html.ElementNode || node.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(nodeText(node.FirstChild))
}

// nthElement returns the idx-th element child, skipping text nodes.
func nthElement(n *html.Node, idx int) *html.Node {
	i := 0
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		if i == idx {
			return child
		}
		i++
	}
	return nil
}

// nthContent returns the idx-th child node counting text and element nodes
// alike, matching how the site's markup is positionally addressed.
func nthContent(n *html.Node, idx int) *html.Node {
	i := 0
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if i == idx {
			return child
		}
		i++
	}
	return nil
}

// allContents returns every child node in order, text nodes included.
func allContents(n *html.Node) []*html.Node {
	var out []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, child)
	}
	return out
}

// nodeText renders the concatenated text of a node and its descendants.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(nodeText(child))
	}
	return sb.String()
}
