package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zootovary/crawler/internal/catalog"
	"zootovary/crawler/internal/client"
	"zootovary/crawler/internal/config"
	"zootovary/crawler/internal/domain"
	"zootovary/crawler/internal/repository"
	"zootovary/crawler/internal/state"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Service sequences the crawl: build the tree once, then for every
// requested category resolve it, count its pages, collect its product links
// and extract product details, accumulating results for export.
type Service struct {
	client     client.ZooClient
	builder    *catalog.Builder
	repository repository.GoodsRepository // nil when no database is configured
	tracker    *state.Tracker
	keys       *state.KeyRegistry
	cfg        *config.Config

	links     []string // requested category links, in config order
	tree      *domain.Category
	requested map[string]*domain.Category
	products  map[string][]*domain.Product

	mu        sync.Mutex
	extracted map[string]*domain.Product // by product link; survives retry passes
}

func NewService(
	zooClient client.ZooClient,
	builder *catalog.Builder,
	goodsRepository repository.GoodsRepository,
	tracker *state.Tracker,
	keys *state.KeyRegistry,
	cfg *config.Config,
) *Service {
	links := cfg.Categories
	if len(links) == 0 {
		links = []string{cfg.Crawler.CatalogPath}
	}
	return &Service{
		client:     zooClient,
		builder:    builder,
		repository: goodsRepository,
		tracker:    tracker,
		keys:       keys,
		cfg:        cfg,
		links:      links,
		requested:  make(map[string]*domain.Category),
		products:   make(map[string][]*domain.Product),
		extracted:  make(map[string]*domain.Product),
	}
}

// Run executes the whole crawl under the restart policy: any failure except
// a user-initiated cancellation is retried up to restart_count times with
// interval_minutes between attempts. Categories already finished in a
// previous attempt are skipped, which makes the retry coarse but cheap —
// the whole run is re-entered, not just the failed category.
func (s *Service) Run(ctx context.Context) error {
	attempts := s.cfg.Restart.RestartCount
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.crawl(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			log.Error("Stopping: crawl cancelled by user")
			return err
		}

		lastErr = err
		log.Errorf("❌ Crawl attempt %d/%d failed: %v", attempt, attempts, err)

		if attempt < attempts {
			wait := time.Duration(s.cfg.Restart.IntervalMinutes * 60 * float64(time.Second))
			log.Infof("🔄 Restarting in %s", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return fmt.Errorf("crawl failed after %d attempts: %w", attempts, lastErr)
}

func (s *Service) crawl(ctx context.Context) error {
	if err := s.buildTree(ctx); err != nil {
		return err
	}

	log.Infof("We have %d categories to parse..", len(s.links))
	for i, link := range s.links {
		if s.tracker.Status(link) == state.StatusDone {
			log.Warnf("Category %s has been parsed already. Skipping...", link)
			continue
		}
		log.Infof("  %d/%d Parsing category %s", i+1, len(s.links), link)
		if err := s.processCategory(ctx, link); err != nil {
			s.tracker.MarkFailed(link)
			return fmt.Errorf("category %s failed: %w", link, err)
		}
		s.tracker.Advance(link, state.StatusDone)
		log.Infof("  Done | Category %s parsed", link)
	}
	return nil
}

// buildTree materializes the full category tree exactly once per run; retry
// passes reuse it, and it is read-only from then on.
func (s *Service) buildTree(ctx context.Context) error {
	if s.tracker.TreeBuilt() {
		log.Warn("Categories have been parsed already. Skipping...")
		return nil
	}

	log.Info("Parsing all categories..")
	tree, err := s.builder.Build(ctx, s.cfg.Crawler.CatalogPath)
	if err != nil {
		return err
	}
	s.tree = tree
	s.tracker.SetTreeBuilt()
	log.Info("Done | all categories passed")

	if s.repository != nil {
		if err := s.repository.SaveCategories(ctx, tree.Flatten()); err != nil {
			log.Errorf("❌ Failed to save categories: %v", err)
		}
	}
	return nil
}

func (s *Service) processCategory(ctx context.Context, link string) error {
	node, err := s.tree.Resolve(link)
	if err != nil {
		return err
	}
	s.requested[link] = node
	s.tracker.Advance(link, state.StatusTreeResolved)

	first, err := s.client.GetListingPage(ctx, link, 1)
	if err != nil {
		return err
	}
	pageCount := first.PageCount
	s.tracker.Advance(link, state.StatusPaginated)
	log.Infof("        We found %d pages and %d products on a first page of category: %s",
		pageCount, len(first.Refs), link)

	refs, err := s.collectRefs(ctx, link, first, pageCount)
	if err != nil {
		return err
	}
	s.tracker.Advance(link, state.StatusLinksCollected)
	log.Infof("        We have found %d products to parse", len(refs))

	products, err := s.extractProducts(ctx, link, refs)
	if err != nil {
		return err
	}
	s.tracker.Advance(link, state.StatusProductsExtracted)
	s.products[link] = products

	if s.repository != nil && len(products) > 0 {
		if err := s.repository.SaveProducts(ctx, s.cfg.Crawler.BaseURL, products); err != nil {
			log.Errorf("❌ Failed to save products of %s: %v", link, err)
		}
	}
	return nil
}

// collectRefs walks every listing page of the category. A zero page count
// is a normal outcome for an empty category, not an error.
func (s *Service) collectRefs(ctx context.Context, link string, first *domain.ListingPage, pageCount int) ([]domain.ProductRef, error) {
	if pageCount == 0 {
		log.Infof("        Category %s is empty", link)
		return nil, nil
	}

	refs := append([]domain.ProductRef(nil), first.Refs...)
	log.Infof("        searching page #1/%d | %d cards saved", pageCount, len(first.Refs))

	for page := 2; page <= pageCount; page++ {
		listing, err := s.client.GetListingPage(ctx, link, page)
		if err != nil {
			return nil, err
		}
		refs = append(refs, listing.Refs...)
		log.Infof("        searching page #%d/%d | %d cards saved", page, pageCount, len(listing.Refs))
	}
	return refs, nil
}

// extractProducts fetches product details with a bounded worker pool. The
// politeness delay applies per worker; the dedup registry serializes its
// own writes. Any fetch failure fails the category and feeds the run-level
// restart policy, while structurally broken product pages come back with
// Parsed false and do not abort anything. Products extracted before a
// failure are kept and reused when the retry pass re-enters the category.
func (s *Service) extractProducts(ctx context.Context, link string, refs []domain.ProductRef) ([]*domain.Product, error) {
	products := make([]*domain.Product, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Crawler.MaxWorkers)

	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			if cached := s.cachedProduct(ref.Link); cached != nil {
				products[i] = cached
				log.Debugf("        product %s has been parsed already, skipping", ref.Link)
				return nil
			}
			product, err := s.client.GetProductDetails(gctx, ref, s.keys)
			if err != nil {
				return err
			}
			s.rememberProduct(product)
			products[i] = product
			log.Infof("        %d/%d %s | %s | country: %s",
				i+1, len(refs), product.Categories, product.Title, product.Country)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to extract products of %s: %w", link, err)
	}
	return products, nil
}

// cachedProduct returns the product extracted for link on an earlier pass,
// nil when there is none.
func (s *Service) cachedProduct(link string) *domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extracted[link]
}

// rememberProduct keeps a product whose extraction reserved dedup keys.
// Re-fetching it on a retry pass would collide with its own reservations in
// the append-only registry and come back with no offers, so a later pass
// reuses the stored product instead. Products that reserved nothing are not
// kept; fetching them again is harmless and may succeed the second time.
func (s *Service) rememberProduct(product *domain.Product) {
	if !product.Parsed && len(product.Offers) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extracted[product.Link] = product
}

// Tree returns the built category tree, nil before the first crawl pass.
func (s *Service) Tree() *domain.Category {
	return s.tree
}

// RequestedCategories returns the resolved nodes for the requested links,
// in request order, skipping links that never resolved.
func (s *Service) RequestedCategories() []*domain.Category {
	var out []*domain.Category
	for _, link := range s.links {
		if node, ok := s.requested[link]; ok {
			out = append(out, node)
		}
	}
	return out
}

// CategoryOrder returns the requested category links in request order.
func (s *Service) CategoryOrder() []string {
	return s.links
}

// Products returns the accumulated per-category results.
func (s *Service) Products() map[string][]*domain.Product {
	return s.products
}
