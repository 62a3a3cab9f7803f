package client

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func cards(n int) string {
	return strings.Repeat(`<div class="catalog-item"></div>`, n)
}

func TestCountPages(t *testing.T) {
	parser := newPageParser("https://zootovary.ru", "comp_test", 50)

	tests := []struct {
		name     string
		html     string
		expected int
	}{
		{
			name:     "empty category has zero pages",
			html:     `<html><body></body></html>`,
			expected: 0,
		},
		{
			name:     "less than a full page means one page",
			html:     `<html><body>` + cards(37) + `</body></html>`,
			expected: 1,
		},
		{
			name:     "full page without a navigation widget is one page",
			html:     `<html><body>` + cards(50) + `</body></html>`,
			expected: 1,
		},
		{
			name: "jump-forward link carries the total",
			html: `<html><body>` + cards(50) +
				`<div class="navigation">` +
				`<a href="/catalog/koshki/?PAGEN_1=2">2</a>` +
				`<a href="/catalog/koshki/?PAGEN_1=3">3</a>` +
				`<a href="/catalog/koshki/?PAGEN_1=25">»</a>` +
				`</div></body></html>`,
			expected: 25,
		},
		{
			name: "without jump-forward the link count is the total",
			html: `<html><body>` + cards(50) +
				`<div class="navigation">` +
				`<a href="/catalog/koshki/?PAGEN_1=2">2</a>` +
				`<a href="/catalog/koshki/?PAGEN_1=3">3</a>` +
				`<a href="/catalog/koshki/?PAGEN_1=4">4</a>` +
				`<a href="/catalog/koshki/?PAGEN_1=5">5</a>` +
				`</div></body></html>`,
			expected: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, tt.html)
			assert.Equal(t, tt.expected, parser.countPages(doc))
			// idempotent over the same document
			assert.Equal(t, tt.expected, parser.countPages(doc))
		})
	}
}

func TestExtractRefs(t *testing.T) {
	parser := newPageParser("https://zootovary.ru", "comp_test", 50)

	doc := mustDoc(t, `<html><body>`+
		`<div class="catalog-content-info"><a class="name" href="/catalog/koshki/korm-1.html" title="Корм 1">Корм 1</a></div>`+
		`<div class="catalog-content-info"><a class="name" href="/catalog/koshki/korm-2.html" title="Корм 2">Корм 2</a></div>`+
		`<div class="catalog-content-info"><a class="name" href="/catalog/koshki/korm-3.html" title="Корм 3">Корм 3</a></div>`+
		`<div class="catalog-content-info"><span>card without a name link</span></div>`+
		`</body></html>`)

	refs := parser.extractRefs(doc)
	require.Len(t, refs, 3)
	assert.Equal(t, "/catalog/koshki/korm-1.html", refs[0].Link)
	assert.Equal(t, "Корм 1", refs[0].Title)
	assert.Equal(t, "/catalog/koshki/korm-3.html", refs[2].Link)
}
