package menu

import (
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-service/internal/domain"
)

// maxDepth bounds tree traversal. Production data is acyclic by
// construction; if malformed data ever introduces a cycle the builder drops
// the offending subtree instead of looping.
const maxDepth = 32

// Builder assembles hierarchical trees from flat menu records.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder constructs a tree builder.
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// BuildTree groups flat records into a forest. Nodes whose parent id does
// not appear in the input are treated as roots, never errors. Siblings are
// ordered by display order ascending, id ascending on ties.
func (b *Builder) BuildTree(nodes []*domain.MenuNode) []*domain.MenuNode {
	byID := make(map[int64]*domain.MenuNode, len(nodes))
	for _, node := range nodes {
		node.Children = nil
		byID[node.ID] = node
	}

	children := make(map[int64][]*domain.MenuNode, len(nodes))
	var roots []*domain.MenuNode
	for _, node := range nodes {
		parent, ok := byID[node.ParentID]
		if node.ParentID == 0 || !ok || parent == node {
			if node.ParentID != 0 && !ok {
				b.logger.Warn("menu node has unknown parent, attaching at root",
					zap.Int64("menu_id", node.ID), zap.Int64("parent_id", node.ParentID))
			}
			roots = append(roots, node)
			continue
		}
		children[node.ParentID] = append(children[node.ParentID], node)
	}

	sortSiblings(roots)
	for _, ordered := range children {
		sortSiblings(ordered)
	}

	for _, root := range roots {
		b.attach(root, children, 1)
	}
	return roots
}

func (b *Builder) attach(node *domain.MenuNode, children map[int64][]*domain.MenuNode, depth int) {
	if depth >= maxDepth {
		b.logger.Warn("menu tree exceeds depth bound, dropping subtree",
			zap.Int64("menu_id", node.ID))
		return
	}
	node.Children = children[node.ID]
	for _, child := range node.Children {
		b.attach(child, children, depth+1)
	}
}

// Flatten returns every node in the forest in traversal order, useful for
// feeding a built tree back through BuildTree.
func Flatten(forest []*domain.MenuNode) []*domain.MenuNode {
	var out []*domain.MenuNode
	var walk func(nodes []*domain.MenuNode)
	walk = func(nodes []*domain.MenuNode) {
		for _, node := range nodes {
			out = append(out, node)
			walk(node.Children)
		}
	}
	walk(forest)
	return out
}

func sortSiblings(nodes []*domain.MenuNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].OrderNum != nodes[j].OrderNum {
			return nodes[i].OrderNum < nodes[j].OrderNum
		}
		return nodes[i].ID < nodes[j].ID
	})
}
