package scene

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/core"
)

// InvalidNode marks "no parent".
const InvalidNode uint32 = math.MaxUint32

/**
 * @brief One entry of the scene graph. World is derived from Local and the
 * parent chain and is only refreshed by Graph.UpdateWorldTransforms.
 */
type Node struct {
	Local         mgl32.Mat4
	World         mgl32.Mat4
	Parent        uint32
	MaterialIndex uint32
	Renderable    bool
	Children      []uint32
}

// Graph is an append-only forest of transform nodes. Node indices are stable
// for the graph's lifetime and never reused.
type Graph struct {
	nodes       []Node
	roots       []uint32
	renderables []uint32
}

func NewGraph() *Graph {
	return &Graph{}
}

// CreateNode appends a new root node and returns its index.
func (g *Graph) CreateNode(local mgl32.Mat4, materialIndex uint32, renderable bool) uint32 {
	idx := uint32(len(g.nodes))
	g.nodes = append(g.nodes, Node{
		Local:         local,
		World:         local,
		Parent:        InvalidNode,
		MaterialIndex: materialIndex,
		Renderable:    renderable,
	})
	g.roots = append(g.roots, idx)
	if renderable {
		g.renderables = append(g.renderables, idx)
	}
	return idx
}

// SetParent moves child under parent. InvalidNode, or any index outside the
// graph, turns child into a root. Reparenting a node under one of its own
// descendants (or itself) is rejected and leaves the graph unchanged.
func (g *Graph) SetParent(child, parent uint32) error {
	if int(child) >= len(g.nodes) {
		return fmt.Errorf("%w: child %d of %d", core.ErrNodeOutOfRange, child, len(g.nodes))
	}
	hasParent := int(parent) < len(g.nodes)
	if hasParent && g.isAncestorOrSelf(child, parent) {
		return fmt.Errorf("%w: %d under %d", core.ErrSceneGraphCycle, child, parent)
	}

	node := &g.nodes[child]
	if node.Parent != InvalidNode {
		siblings := &g.nodes[node.Parent].Children
		*siblings = slices.DeleteFunc(*siblings, func(i uint32) bool { return i == child })
	} else {
		g.roots = slices.DeleteFunc(g.roots, func(i uint32) bool { return i == child })
	}

	if hasParent {
		node.Parent = parent
		g.nodes[parent].Children = append(g.nodes[parent].Children, child)
	} else {
		node.Parent = InvalidNode
		g.roots = append(g.roots, child)
	}
	return nil
}

// isAncestorOrSelf walks up from node and reports whether it meets candidate.
func (g *Graph) isAncestorOrSelf(candidate, node uint32) bool {
	for cur := node; cur != InvalidNode; cur = g.nodes[cur].Parent {
		if cur == candidate {
			return true
		}
	}
	return false
}

// SetLocalTransform ignores indices outside the graph.
func (g *Graph) SetLocalTransform(node uint32, local mgl32.Mat4) {
	if int(node) >= len(g.nodes) {
		return
	}
	g.nodes[node].Local = local
}

func (g *Graph) SetMaterialIndex(node uint32, materialIndex uint32) {
	if int(node) >= len(g.nodes) {
		return
	}
	g.nodes[node].MaterialIndex = materialIndex
}

// SetRenderable keeps the renderable list free of duplicates and in
// registration order. Indices outside the graph are ignored.
func (g *Graph) SetRenderable(node uint32, renderable bool) {
	if int(node) >= len(g.nodes) {
		return
	}
	g.nodes[node].Renderable = renderable
	registered := slices.Contains(g.renderables, node)
	switch {
	case renderable && !registered:
		g.renderables = append(g.renderables, node)
	case !renderable && registered:
		g.renderables = slices.DeleteFunc(g.renderables, func(i uint32) bool { return i == node })
	}
}

// UpdateWorldTransforms recomputes every World matrix, parents before children.
func (g *Graph) UpdateWorldTransforms() {
	type frame struct {
		node   uint32
		parent mgl32.Mat4
	}
	stack := make([]frame, 0, len(g.nodes))
	for i := len(g.roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: g.roots[i], parent: mgl32.Ident4()})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &g.nodes[top.node]
		n.World = top.parent.Mul4(n.Local)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: n.Children[i], parent: n.World})
		}
	}
}

// Node returns nil when index is outside the graph.
func (g *Graph) Node(index uint32) *Node {
	if int(index) >= len(g.nodes) {
		return nil
	}
	return &g.nodes[index]
}

func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

func (g *Graph) Roots() []uint32 {
	return g.roots
}

// RenderableNodes lists renderable nodes in the order they were registered.
func (g *Graph) RenderableNodes() []uint32 {
	return g.renderables
}
