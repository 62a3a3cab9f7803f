package domain

import (
	"fmt"
	"strings"
)

// Category is one node of the 4-level catalog hierarchy. Stage 0 is the
// virtual root ("/catalog/"), stages 1-3 carry nested menus, stage 4 nodes
// are terminal.
//
// A node's code encodes its position: code = parent code + 1-based sibling
// index multiplied by the per-stage step. Codes are unique across the whole
// tree and their digits decode back to the ancestor chain.
type Category struct {
	Stage      int
	Title      string
	Link       string // site-relative path, e.g. /catalog/koshki/
	Code       int
	ParentCode int

	Children map[string]*Category // keyed by child link
	Order    []string             // child links in document order
}

// NewCategory returns a childless node.
func NewCategory(stage int, title, link string, code, parentCode int) *Category {
	return &Category{
		Stage:      stage,
		Title:      title,
		Link:       link,
		Code:       code,
		ParentCode: parentCode,
		Children:   make(map[string]*Category),
	}
}

// AddChild attaches c preserving document order.
func (n *Category) AddChild(c *Category) {
	n.Children[c.Link] = c
	n.Order = append(n.Order, c.Link)
}

// Resolve maps a path-style link onto an already built tree by walking
// cumulative /-delimited prefixes level by level. No page is fetched.
func (n *Category) Resolve(link string) (*Category, error) {
	parts := strings.Split(strings.Trim(link, "/"), "/")
	node := n
	for depth := 2; depth <= len(parts); depth++ {
		if child, ok := node.Children[link]; ok {
			return child, nil
		}
		prefix := "/" + strings.Join(parts[:depth], "/") + "/"
		next, ok := node.Children[prefix]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, link)
		}
		node = next
	}
	if node.Link == link {
		return node, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, link)
}

// Flatten returns the subtree in document order, excluding the virtual root.
func (n *Category) Flatten() []*Category {
	var out []*Category
	n.walk(func(c *Category) {
		if c.Stage != 0 {
			out = append(out, c)
		}
	})
	return out
}

func (n *Category) walk(fn func(*Category)) {
	fn(n)
	for _, link := range n.Order {
		n.Children[link].walk(fn)
	}
}
