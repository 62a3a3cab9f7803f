package catalog

import (
	"context"
	"fmt"
	"strings"

	"zootovary/crawler/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// Fetcher is the slice of the client the tree builder needs.
type Fetcher interface {
	GetCategoryDocument(ctx context.Context, link string) (*goquery.Document, error)
}

// stageRule describes how children are discovered at one depth of the
// hierarchy. multiplier is the code step applied to children found at this
// stage; fetch marks stages whose nodes load their own page instead of
// reusing the menu fragment supplied by the parent.
type stageRule struct {
	container  string
	item       string
	multiplier int
	fetch      bool
	terminal   bool
}

var stages = map[int]stageRule{
	0: {container: "ul.catalog-menu-left-1", item: "a.item-depth-1", multiplier: 1000000, fetch: true},
	1: {container: "ul.catalog-menu-left-1", item: "a.item-depth-1", multiplier: 10000, fetch: true},
	2: {container: "ul.catalog-menu-left-2", item: "a.item-depth-2", multiplier: 10},
	3: {container: "ul.catalog-menu-left-3", item: "a.item-depth-3", multiplier: 1},
	4: {terminal: true},
}

// Builder materializes the 4-level category tree by walking the nested
// listing menus depth-first.
type Builder struct {
	fetcher Fetcher
}

func NewBuilder(fetcher Fetcher) *Builder {
	return &Builder{fetcher: fetcher}
}

// Build constructs the full tree rooted at catalogPath (stage 0, code 0).
func (b *Builder) Build(ctx context.Context, catalogPath string) (*domain.Category, error) {
	root := domain.NewCategory(0, "", catalogPath, 0, 0)
	if err := b.expand(ctx, root, nil); err != nil {
		return nil, fmt.Errorf("failed to build category tree: %w", err)
	}
	return root, nil
}

// expand populates a node's children. Stages 0 and 1 fetch their own page;
// stages 2 and 3 search the menu fragment their parent already holds, so no
// extra round trip happens below stage 1. Fetched documents are scoped to
// this call and released with it. A missing menu container makes the node a
// childless leaf, which is a legal outcome, not an error.
func (b *Builder) expand(ctx context.Context, node *domain.Category, fragment *goquery.Selection) error {
	rule := stages[node.Stage]
	if rule.terminal {
		return nil
	}

	scope := fragment
	if rule.fetch {
		doc, err := b.fetcher.GetCategoryDocument(ctx, node.Link)
		if err != nil {
			return fmt.Errorf("failed to fetch category page %s: %w", node.Link, err)
		}
		scope = doc.Selection
	}
	if scope == nil {
		return nil
	}

	container := scope.Find(rule.container).First()
	if container.Length() == 0 {
		return nil
	}

	index := 0
	var walkErr error
	container.Children().EachWithBreak(func(_ int, entry *goquery.Selection) bool {
		anchor := entry.Find(rule.item).First()
		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}
		index++

		child := domain.NewCategory(
			node.Stage+1,
			anchor.AttrOr("title", ""),
			href,
			node.Code+index*rule.multiplier,
			node.Code,
		)
		log.Debugf("%s%d:%s | %s", strings.Repeat("\t", node.Stage), child.Code, child.Title, child.Link)
		node.AddChild(child)

		if err := b.expand(ctx, child, entry); err != nil {
			walkErr = err
			return false
		}
		return true
	})
	return walkErr
}
