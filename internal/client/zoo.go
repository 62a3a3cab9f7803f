package client

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zootovary/crawler/internal/config"
	"zootovary/crawler/internal/domain"
	"zootovary/crawler/internal/state"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// ZooClient fetches catalog pages and turns them into parsed domain objects.
type ZooClient interface {
	// GetCategoryDocument fetches a category page for the tree builder.
	GetCategoryDocument(ctx context.Context, link string) (*goquery.Document, error)
	// GetListingPage fetches one paginated listing page of a category.
	GetListingPage(ctx context.Context, link string, page int) (*domain.ListingPage, error)
	// GetProductDetails fetches a product page and extracts its offers,
	// reserving article/barcode keys in the run-wide registry.
	GetProductDetails(ctx context.Context, ref domain.ProductRef, keys *state.KeyRegistry) (*domain.Product, error)
}

type zooClient struct {
	rl         ratelimit.Limiter
	config     config.CrawlerConfig
	httpClient *resty.Client
	parser     *pageParser
}

func NewZooClient(cfg config.CrawlerConfig) ZooClient {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.Timeout) * time.Second).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeaders(cfg.Headers).
		AddRetryConditions(func(res *resty.Response, err error) bool {
			if err != nil || res == nil {
				return false
			}
			switch res.StatusCode() {
			case http.StatusTooManyRequests,
				http.StatusInternalServerError,
				http.StatusBadGateway,
				http.StatusServiceUnavailable,
				http.StatusGatewayTimeout:
				return true
			}
			return false
		})

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	return &zooClient{
		rl:         rl,
		config:     cfg,
		httpClient: httpClient,
		parser:     newPageParser(cfg.BaseURL, cfg.ComponentID, cfg.PageSize),
	}
}

func (c *zooClient) GetCategoryDocument(ctx context.Context, link string) (*goquery.Document, error) {
	return c.fetchDocument(ctx, link, 0)
}

func (c *zooClient) GetListingPage(ctx context.Context, link string, page int) (*domain.ListingPage, error) {
	doc, err := c.fetchDocument(ctx, link, page)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page %d of %s: %w", page, link, err)
	}

	listing := &domain.ListingPage{
		CategoryLink: link,
		PageNumber:   page,
		Refs:         c.parser.extractRefs(doc),
	}
	if page == 1 {
		listing.PageCount = c.parser.countPages(doc)
	}

	log.Debugf("Parsed listing page %d of %s with %d cards", page, link, len(listing.Refs))
	return listing, nil
}

func (c *zooClient) GetProductDetails(ctx context.Context, ref domain.ProductRef, keys *state.KeyRegistry) (*domain.Product, error) {
	doc, err := c.fetchDocument(ctx, ref.Link, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product page %s: %w", ref.Link, err)
	}
	return c.parser.parseProduct(doc, ref, keys), nil
}

// fetchDocument performs one polite GET: a randomized delay, the
// requests-per-second cap, the fixed pc/v query parameters and the transient
// status retry policy all apply here. page > 1 adds PAGEN_1.
func (c *zooClient) fetchDocument(ctx context.Context, link string, page int) (*goquery.Document, error) {
	if err := c.politeDelay(ctx); err != nil {
		return nil, fmt.Errorf("request cancelled: %w", err)
	}
	c.rl.Take()

	req := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("pc", strconv.Itoa(c.config.PageSize)).
		SetQueryParam("v", "filling")
	if page > 1 {
		req.SetQueryParam("PAGEN_1", strconv.Itoa(page))
	}

	resp, err := req.Get(link)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", link, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("HTTP error for %s: %d %s", link, resp.StatusCode(), resp.Status())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", link, err)
	}
	return doc, nil
}

// politeDelay sleeps for a duration drawn uniformly from the configured
// delay range. Rate limiting toward the site, not a correctness concern.
func (c *zooClient) politeDelay(ctx context.Context) error {
	if len(c.config.DelayRange) != 2 {
		return nil
	}
	min, max := c.config.DelayRange[0], c.config.DelayRange[1]
	if max <= 0 {
		return nil
	}
	delay := time.Duration((min + rand.Float64()*(max-min)) * float64(time.Second))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
