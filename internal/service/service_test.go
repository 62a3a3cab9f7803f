package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"zootovary/crawler/internal/catalog"
	"zootovary/crawler/internal/config"
	"zootovary/crawler/internal/domain"
	"zootovary/crawler/internal/state"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu              sync.Mutex
	treePages       map[string]string
	listings        map[string]map[int]*domain.ListingPage
	failOnce        map[string]bool
	failAlways      map[string]bool
	failProductOnce map[string]bool
	listingCalls    map[string]int
	productCalls    map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		treePages:       make(map[string]string),
		listings:        make(map[string]map[int]*domain.ListingPage),
		failOnce:        make(map[string]bool),
		failAlways:      make(map[string]bool),
		failProductOnce: make(map[string]bool),
		listingCalls:    make(map[string]int),
		productCalls:    make(map[string]int),
	}
}

func (f *fakeClient) GetCategoryDocument(ctx context.Context, link string) (*goquery.Document, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	html, ok := f.treePages[link]
	if !ok {
		return nil, fmt.Errorf("no page for %s", link)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *fakeClient) GetListingPage(ctx context.Context, link string, page int) (*domain.ListingPage, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if page == 1 {
		f.listingCalls[link]++
	}
	if f.failAlways[link] {
		return nil, errors.New("listing fetch failed")
	}
	if f.failOnce[link] {
		f.failOnce[link] = false
		return nil, errors.New("listing fetch failed")
	}
	if listing, ok := f.listings[link][page]; ok {
		return listing, nil
	}
	return &domain.ListingPage{CategoryLink: link, PageNumber: page}, nil
}

func (f *fakeClient) GetProductDetails(_ context.Context, ref domain.ProductRef, keys *state.KeyRegistry) (*domain.Product, error) {
	f.mu.Lock()
	f.productCalls[ref.Link]++
	if f.failProductOnce[ref.Link] {
		f.failProductOnce[ref.Link] = false
		f.mu.Unlock()
		return nil, errors.New("product fetch failed")
	}
	f.mu.Unlock()

	product := &domain.Product{Link: ref.Link, Title: ref.Title, CapturedAt: time.Now()}
	offer := domain.Offer{Article: "A" + ref.Link, Barcode: "B" + ref.Link, InStock: true}
	if err := keys.Reserve(offer.Article, offer.Barcode); err != nil {
		return product, nil
	}
	product.Offers = []domain.Offer{offer}
	product.Parsed = true
	return product, nil
}

func menuPage(links ...string) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><ul class="catalog-menu-left-1">`)
	for _, link := range links {
		sb.WriteString(fmt.Sprintf(`<li><a class="item-depth-1" href="%s" title="%s">x</a></li>`, link, link))
	}
	sb.WriteString(`</ul></body></html>`)
	return sb.String()
}

func leafPage() string {
	return `<html><body><p>leaf</p></body></html>`
}

func refs(links ...string) []domain.ProductRef {
	out := make([]domain.ProductRef, 0, len(links))
	for _, link := range links {
		out = append(out, domain.ProductRef{Link: link, Title: "T" + link})
	}
	return out
}

func testConfig(categories ...string) *config.Config {
	return &config.Config{
		Crawler: config.CrawlerConfig{
			BaseURL:     "https://zootovary.ru",
			CatalogPath: "/catalog/",
			PageSize:    50,
			MaxWorkers:  2,
		},
		Restart:    config.RestartConfig{RestartCount: 2, IntervalMinutes: 0},
		Categories: categories,
	}
}

func newTestService(fake *fakeClient, cfg *config.Config) *Service {
	return NewService(fake, catalog.NewBuilder(fake), nil, state.NewTracker(), state.NewKeyRegistry(), cfg)
}

func TestRunCrawlsLeafCategory(t *testing.T) {
	fake := newFakeClient()
	fake.treePages["/catalog/"] = menuPage("/catalog/c1/")
	fake.treePages["/catalog/c1/"] = leafPage()
	fake.listings["/catalog/c1/"] = map[int]*domain.ListingPage{
		1: {CategoryLink: "/catalog/c1/", PageNumber: 1, PageCount: 1, Refs: refs("/p1", "/p2", "/p3")},
	}

	svc := newTestService(fake, testConfig("/catalog/c1/"))
	require.NoError(t, svc.Run(context.Background()))

	products := svc.Products()["/catalog/c1/"]
	require.Len(t, products, 3)
	for _, product := range products {
		assert.True(t, product.Parsed)
		assert.Len(t, product.Offers, 1)
	}
	assert.Equal(t, 3, svc.keys.ArticleCount())
	assert.Equal(t, state.StatusDone, svc.tracker.Status("/catalog/c1/"))

	requested := svc.RequestedCategories()
	require.Len(t, requested, 1)
	assert.Equal(t, "/catalog/c1/", requested[0].Link)
}

func TestRunCollectsAllListingPages(t *testing.T) {
	fake := newFakeClient()
	fake.treePages["/catalog/"] = menuPage("/catalog/c1/")
	fake.treePages["/catalog/c1/"] = leafPage()
	fake.listings["/catalog/c1/"] = map[int]*domain.ListingPage{
		1: {CategoryLink: "/catalog/c1/", PageNumber: 1, PageCount: 3, Refs: refs("/p1", "/p2")},
		2: {CategoryLink: "/catalog/c1/", PageNumber: 2, Refs: refs("/p3")},
		3: {CategoryLink: "/catalog/c1/", PageNumber: 3, Refs: refs("/p4")},
	}

	svc := newTestService(fake, testConfig("/catalog/c1/"))
	require.NoError(t, svc.Run(context.Background()))

	assert.Len(t, svc.Products()["/catalog/c1/"], 4)
}

func TestRunEmptyCategoryIsNormal(t *testing.T) {
	fake := newFakeClient()
	fake.treePages["/catalog/"] = menuPage("/catalog/c1/")
	fake.treePages["/catalog/c1/"] = leafPage()
	fake.listings["/catalog/c1/"] = map[int]*domain.ListingPage{
		1: {CategoryLink: "/catalog/c1/", PageNumber: 1, PageCount: 0},
	}

	svc := newTestService(fake, testConfig("/catalog/c1/"))
	require.NoError(t, svc.Run(context.Background()))

	assert.Empty(t, svc.Products()["/catalog/c1/"])
	assert.Equal(t, state.StatusDone, svc.tracker.Status("/catalog/c1/"))
}

func TestRunRetrySkipsCompletedCategories(t *testing.T) {
	fake := newFakeClient()
	fake.treePages["/catalog/"] = menuPage("/catalog/c1/", "/catalog/c2/")
	fake.treePages["/catalog/c1/"] = leafPage()
	fake.treePages["/catalog/c2/"] = leafPage()
	fake.listings["/catalog/c1/"] = map[int]*domain.ListingPage{
		1: {CategoryLink: "/catalog/c1/", PageNumber: 1, PageCount: 1, Refs: refs("/p1")},
	}
	fake.listings["/catalog/c2/"] = map[int]*domain.ListingPage{
		1: {CategoryLink: "/catalog/c2/", PageNumber: 1, PageCount: 1, Refs: refs("/p2")},
	}
	fake.failOnce["/catalog/c2/"] = true

	svc := newTestService(fake, testConfig("/catalog/c1/", "/catalog/c2/"))
	require.NoError(t, svc.Run(context.Background()))

	// category 1 finished on the first pass and is not re-crawled
	assert.Equal(t, 1, fake.listingCalls["/catalog/c1/"])
	assert.Equal(t, 2, fake.listingCalls["/catalog/c2/"])
	assert.Equal(t, state.StatusDone, svc.tracker.Status("/catalog/c1/"))
	assert.Equal(t, state.StatusDone, svc.tracker.Status("/catalog/c2/"))
	assert.Len(t, svc.Products()["/catalog/c1/"], 1)
	assert.Len(t, svc.Products()["/catalog/c2/"], 1)
}

func TestRunRetryKeepsProductsExtractedBeforeFailure(t *testing.T) {
	fake := newFakeClient()
	fake.treePages["/catalog/"] = menuPage("/catalog/c1/")
	fake.treePages["/catalog/c1/"] = leafPage()
	fake.listings["/catalog/c1/"] = map[int]*domain.ListingPage{
		1: {CategoryLink: "/catalog/c1/", PageNumber: 1, PageCount: 1, Refs: refs("/p1", "/p2")},
	}
	fake.failProductOnce["/p2"] = true

	cfg := testConfig("/catalog/c1/")
	cfg.Crawler.MaxWorkers = 1 // sequential, so /p1 is extracted before /p2 fails
	svc := newTestService(fake, cfg)
	require.NoError(t, svc.Run(context.Background()))

	// the product extracted before the failure keeps its offers on the
	// retry pass instead of colliding with its own key reservations
	products := svc.Products()["/catalog/c1/"]
	require.Len(t, products, 2)
	for _, product := range products {
		require.NotNil(t, product)
		assert.Truef(t, product.Parsed, "product %s lost on retry", product.Link)
		assert.Len(t, product.Offers, 1)
	}

	assert.Equal(t, 1, fake.productCalls["/p1"])
	assert.Equal(t, 2, fake.productCalls["/p2"])
	assert.Equal(t, 2, svc.keys.ArticleCount())
	assert.Equal(t, state.StatusDone, svc.tracker.Status("/catalog/c1/"))
}

func TestRunExhaustsRestartBudget(t *testing.T) {
	fake := newFakeClient()
	fake.treePages["/catalog/"] = menuPage("/catalog/c1/")
	fake.treePages["/catalog/c1/"] = leafPage()
	fake.failAlways["/catalog/c1/"] = true

	svc := newTestService(fake, testConfig("/catalog/c1/"))
	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, state.StatusFailed, svc.tracker.Status("/catalog/c1/"))
}

func TestRunCancellationAbortsWithoutRetry(t *testing.T) {
	fake := newFakeClient()
	fake.treePages["/catalog/"] = menuPage("/catalog/c1/")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTestService(fake, testConfig("/catalog/c1/"))
	err := svc.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
