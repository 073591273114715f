package utils

import (
	"agora/internal/models"
	"html/template"
	"sort"
)

// OrphanPolicy decides what happens to a reply whose parent is not in the input.
type OrphanPolicy int

const (
	// DropOrphans leaves unresolved replies out of the tree.
	DropOrphans OrphanPolicy = iota
	// PromoteOrphans renders unresolved replies as top-level comments.
	PromoteOrphans
)

func ParseOrphanPolicy(s string) OrphanPolicy {
	if s == "promote" {
		return PromoteOrphans
	}
	return DropOrphans
}

type CommentNode struct {
	models.Comment
	ContentHTML template.HTML  `json:"content_html,omitempty"`
	Children    []*CommentNode `json:"children"`
}

// TreeOptions tunes BuildCommentTree.
type TreeOptions struct {
	Orphans OrphanPolicy
	// RenderMarkdown fills ContentHTML for every attached node.
	RenderMarkdown bool
}

func commentLess(a, b *models.Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func sameRoot(a, b *models.Comment) bool {
	ra, okA := a.Root()
	rb, okB := b.Root()
	if okA != okB {
		return false
	}
	return ra == rb
}

// BuildCommentTree turns a flat parent-pointer list into nested replies and
// returns the top-level nodes. Siblings are ordered by createdAt ascending.
//
// A reply is unresolved when its parent is missing, is itself, or lives under
// another post/poll. Comments only reachable through a parent cycle never
// hang off a root and are left out under either policy. The walk is
// iterative, so depth is bounded by memory only.
func BuildCommentTree(flat []models.Comment, opts TreeOptions) []*CommentNode {
	byID := make(map[uint]*models.Comment, len(flat))
	for i := range flat {
		c := &flat[i]
		if _, dup := byID[c.ID]; dup {
			continue
		}
		byID[c.ID] = c
	}

	var roots []*models.Comment
	children := make(map[uint][]*models.Comment)
	for _, c := range byID {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		parent, ok := byID[*c.ParentID]
		if !ok || parent.ID == c.ID || !sameRoot(c, parent) {
			// 孤儿回复
			if opts.Orphans == PromoteOrphans {
				roots = append(roots, c)
			}
			continue
		}
		children[parent.ID] = append(children[parent.ID], c)
	}

	sort.Slice(roots, func(i, j int) bool { return commentLess(roots[i], roots[j]) })
	for id := range children {
		kids := children[id]
		sort.Slice(kids, func(i, j int) bool { return commentLess(kids[i], kids[j]) })
	}

	newNode := func(c *models.Comment) *CommentNode {
		n := &CommentNode{Comment: *c, Children: []*CommentNode{}}
		if opts.RenderMarkdown {
			n.ContentHTML = RenderMarkdown(c.Content)
		}
		return n
	}

	visited := make(map[uint]bool, len(byID))
	out := make([]*CommentNode, 0, len(roots))
	queue := make([]*CommentNode, 0, len(byID))
	for _, r := range roots {
		visited[r.ID] = true
		n := newNode(r)
		out = append(out, n)
		queue = append(queue, n)
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, kid := range children[n.ID] {
			if visited[kid.ID] {
				continue
			}
			visited[kid.ID] = true
			child := newNode(kid)
			n.Children = append(n.Children, child)
			queue = append(queue, child)
		}
	}
	return out
}

// CountNodes returns the number of comments attached under roots.
func CountNodes(roots []*CommentNode) int {
	total := 0
	stack := append([]*CommentNode(nil), roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total++
		stack = append(stack, n.Children...)
	}
	return total
}
