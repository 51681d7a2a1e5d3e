package scene

import (
	"errors"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/core"
)

func TestCreateNodeRegistersRootAndRenderable(t *testing.T) {
	g := NewGraph()
	a := g.CreateNode(mgl32.Ident4(), 0, false)
	b := g.CreateNode(mgl32.Translate3D(1, 0, 0), 3, true)

	if a != 0 || b != 1 {
		t.Errorf("indices: expected 0 and 1, got %d and %d", a, b)
	}
	if !slices.Equal(g.Roots(), []uint32{0, 1}) {
		t.Errorf("roots: expected [0 1], got %v", g.Roots())
	}
	if !slices.Equal(g.RenderableNodes(), []uint32{1}) {
		t.Errorf("renderables: expected [1], got %v", g.RenderableNodes())
	}
	n := g.Node(b)
	if n.Parent != InvalidNode || n.MaterialIndex != 3 {
		t.Errorf("node: expected no parent and material 3, got parent %d material %d", n.Parent, n.MaterialIndex)
	}
	if !n.World.ApproxEqual(n.Local) {
		t.Errorf("fresh node world should equal its local transform")
	}
	if g.Node(7) != nil {
		t.Errorf("out of range node: expected nil")
	}
}

func TestWorldTransformsPropagate(t *testing.T) {
	g := NewGraph()
	tRoot := mgl32.Translate3D(1, 2, 3)
	tA := mgl32.HomogRotate3DZ(0.5)
	tB := mgl32.Scale3D(2, 2, 2)

	root := g.CreateNode(tRoot, 0, false)
	a := g.CreateNode(tA, 0, true)
	b := g.CreateNode(tB, 0, true)
	if err := g.SetParent(a, root); err != nil {
		t.Fatal(err)
	}
	if err := g.SetParent(b, a); err != nil {
		t.Fatal(err)
	}

	// world is stale until the update runs
	if !g.Node(b).World.ApproxEqual(tB) {
		t.Errorf("world changed before UpdateWorldTransforms")
	}
	g.UpdateWorldTransforms()

	expected := tRoot.Mul4(tA).Mul4(tB)
	if !g.Node(b).World.ApproxEqualThreshold(expected, 1e-5) {
		t.Errorf("world[b]: expected %v, got %v", expected, g.Node(b).World)
	}
	if !g.Node(root).World.ApproxEqual(tRoot) {
		t.Errorf("root world should equal its local transform")
	}
}

func TestReparentMovesChildExactlyOnce(t *testing.T) {
	g := NewGraph()
	p1 := g.CreateNode(mgl32.Ident4(), 0, false)
	p2 := g.CreateNode(mgl32.Ident4(), 0, false)
	c := g.CreateNode(mgl32.Ident4(), 0, true)

	_ = g.SetParent(c, p1)
	_ = g.SetParent(c, p2)

	if len(g.Node(p1).Children) != 0 {
		t.Errorf("old parent still lists the child: %v", g.Node(p1).Children)
	}
	if !slices.Equal(g.Node(p2).Children, []uint32{c}) {
		t.Errorf("new parent children: expected [%d], got %v", c, g.Node(p2).Children)
	}
	if slices.Contains(g.Roots(), c) {
		t.Errorf("reparented child still listed as root")
	}
	if g.NodeCount() != 3 || !slices.Equal(g.RenderableNodes(), []uint32{c}) {
		t.Errorf("reparenting changed node count or renderables")
	}

	// detaching makes it a root again
	_ = g.SetParent(c, InvalidNode)
	if g.Node(c).Parent != InvalidNode || !slices.Contains(g.Roots(), c) {
		t.Errorf("detach: expected root, got parent %d roots %v", g.Node(c).Parent, g.Roots())
	}
	if len(g.Node(p2).Children) != 0 {
		t.Errorf("detach left child under old parent")
	}
}

func TestSetParentOutOfRangeParentMakesRoot(t *testing.T) {
	g := NewGraph()
	p := g.CreateNode(mgl32.Ident4(), 0, false)
	c := g.CreateNode(mgl32.Ident4(), 0, false)
	_ = g.SetParent(c, p)
	if err := g.SetParent(c, 99); err != nil {
		t.Fatalf("out of range parent: unexpected error %v", err)
	}
	if g.Node(c).Parent != InvalidNode {
		t.Errorf("out of range parent: expected root")
	}
	if err := g.SetParent(42, p); !errors.Is(err, core.ErrNodeOutOfRange) {
		t.Errorf("out of range child: expected ErrNodeOutOfRange, got %v", err)
	}
}

func TestSetParentRejectsCycles(t *testing.T) {
	g := NewGraph()
	a := g.CreateNode(mgl32.Ident4(), 0, false)
	b := g.CreateNode(mgl32.Ident4(), 0, false)
	c := g.CreateNode(mgl32.Ident4(), 0, false)
	_ = g.SetParent(b, a)
	_ = g.SetParent(c, b)

	if err := g.SetParent(a, c); !errors.Is(err, core.ErrSceneGraphCycle) {
		t.Errorf("cycle: expected ErrSceneGraphCycle, got %v", err)
	}
	if err := g.SetParent(a, a); !errors.Is(err, core.ErrSceneGraphCycle) {
		t.Errorf("self parent: expected ErrSceneGraphCycle, got %v", err)
	}
	if g.Node(a).Parent != InvalidNode || !slices.Equal(g.Roots(), []uint32{a}) {
		t.Errorf("rejected reparent changed the graph: parent %d roots %v", g.Node(a).Parent, g.Roots())
	}
}

func TestSetRenderableIsIdempotent(t *testing.T) {
	g := NewGraph()
	a := g.CreateNode(mgl32.Ident4(), 0, false)
	b := g.CreateNode(mgl32.Ident4(), 0, true)

	g.SetRenderable(a, true)
	g.SetRenderable(a, true)
	if !slices.Equal(g.RenderableNodes(), []uint32{b, a}) {
		t.Errorf("renderables: expected [%d %d], got %v", b, a, g.RenderableNodes())
	}
	g.SetRenderable(b, false)
	g.SetRenderable(b, false)
	if !slices.Equal(g.RenderableNodes(), []uint32{a}) {
		t.Errorf("renderables after removal: expected [%d], got %v", a, g.RenderableNodes())
	}
	g.SetRenderable(100, true)
	g.SetLocalTransform(100, mgl32.Ident4())
	if g.NodeCount() != 2 {
		t.Errorf("out of range calls changed node count to %d", g.NodeCount())
	}
}

func TestRootWithRenderableChildScenario(t *testing.T) {
	g := NewGraph()
	root := g.CreateNode(mgl32.Ident4(), 0, false)
	child := g.CreateNode(mgl32.Translate3D(0, 0, 1), 0, true)
	_ = g.SetParent(child, root)
	g.UpdateWorldTransforms()

	if !slices.Equal(g.RenderableNodes(), []uint32{child}) {
		t.Errorf("renderables: expected [%d], got %v", child, g.RenderableNodes())
	}
	if !g.Node(child).World.ApproxEqual(mgl32.Translate3D(0, 0, 1)) {
		t.Errorf("child world: expected translation (0,0,1), got %v", g.Node(child).World)
	}
}
