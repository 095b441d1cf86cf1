package pbx

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Graph is the live project graph: a root Project node plus an identity
// index. Identity is assigned at creation and never recomputed.
type Graph struct {
	Root   *Node
	byUUID map[string]*Node
}

func NewGraph() *Graph {
	g := &Graph{byUUID: map[string]*Node{}}
	root := g.NewNode(Project)
	main := g.NewNode(Group)
	root.Refs["mainGroup"] = main
	main.Parent = root
	main.ParentSlot = "mainGroup"
	g.Root = root
	return g
}

// NewNode creates an unattached node of the given kind with a fresh identity.
func (g *Graph) NewNode(k Kind) *Node {
	n := &Node{
		Kind:  k,
		UUID:  uuid.NewString(),
		Attrs: map[string]*Value{},
		Cols:  map[string][]*Node{},
		Refs:  map[string]*Node{},
	}
	g.byUUID[n.UUID] = n
	return n
}

func (g *Graph) register(n *Node) {
	g.byUUID[n.UUID] = n
}

func (g *Graph) LookupUUID(id string) *Node {
	return g.byUUID[id]
}

func (g *Graph) MainGroup() *Node {
	return g.Root.Ref("mainGroup")
}

// NodeAtPath resolves a slash-joined display-name path from the main group.
// The empty path is the main group itself.
func (g *Graph) NodeAtPath(p string) *Node {
	cur := g.MainGroup()
	for _, part := range SplitPath(p) {
		if cur == nil {
			return nil
		}
		cur = cur.FindChild("children", part)
	}
	return cur
}

// Attach appends child to parent's named collection, taking ownership.
func (g *Graph) Attach(parent *Node, slot string, child *Node) error {
	if !SchemaOf(parent.Kind).HasCollection(slot) {
		return fmt.Errorf("%w: %s has no collection %q", ErrSchema, parent.Kind, slot)
	}
	parent.Cols[slot] = append(parent.Cols[slot], child)
	child.Parent = parent
	child.ParentSlot = slot
	g.register(child)
	return nil
}

// SetRef points parent's single-node slot at target. For owned slots the
// target's parent is rewired; back-reference slots leave ownership alone.
func (g *Graph) SetRef(parent *Node, slot string, target *Node) error {
	spec, ok := SchemaOf(parent.Kind).Refs[slot]
	if !ok {
		return fmt.Errorf("%w: %s has no slot %q", ErrSchema, parent.Kind, slot)
	}
	parent.Refs[slot] = target
	if target != nil && spec.Owned {
		target.Parent = parent
		target.ParentSlot = slot
		g.register(target)
	}
	return nil
}

// ReplaceChild swaps old for nn in parent's named collection, in place.
func (g *Graph) ReplaceChild(parent *Node, slot string, old, nn *Node) error {
	col, ok := parent.Cols[slot]
	if !ok {
		return fmt.Errorf("%w: %s has no collection %q", ErrSchema, parent.Kind, slot)
	}
	i := slices.Index(col, old)
	if i < 0 {
		return fmt.Errorf("%w: node not in %s.%s", ErrSchema, parent.Kind, slot)
	}
	col[i] = nn
	nn.Parent = parent
	nn.ParentSlot = slot
	old.Parent = nil
	old.ParentSlot = ""
	g.register(nn)
	return nil
}

// Detach removes n from its owning parent slot without unregistering it.
// Back-references to n stay valid; this is the first half of a move.
func (g *Graph) Detach(n *Node) {
	p := n.Parent
	if p == nil {
		return
	}
	if col, ok := p.Cols[n.ParentSlot]; ok {
		if i := slices.Index(col, n); i >= 0 {
			p.Cols[n.ParentSlot] = slices.Delete(col, i, i+1)
		}
	} else if p.Refs[n.ParentSlot] == n {
		p.Refs[n.ParentSlot] = nil
	}
	n.Parent = nil
	n.ParentSlot = ""
}

// Remove detaches n and unregisters it and every owned descendant. Ids are
// never reused.
func (g *Graph) Remove(n *Node) {
	g.Detach(n)
	n.visit(func(d *Node) {
		delete(g.byUUID, d.UUID)
	})
}

// RetargetRefs re-points every back-reference slot aimed at old to nn.
// Ownership slots are left alone; those track the owning location directly.
func (g *Graph) RetargetRefs(old, nn *Node) {
	g.Walk(func(n *Node) {
		sch := SchemaOf(n.Kind)
		for slot, r := range n.Refs {
			if r == old && !sch.Refs[slot].Owned {
				n.Refs[slot] = nn
			}
		}
	})
}

// Walk visits every node owned by the graph, depth first from the root.
func (g *Graph) Walk(f func(*Node)) {
	g.Root.visit(f)
}

// BuildFilesReferencing lists every build file whose fileRef slot points at
// target, anywhere in the graph.
func (g *Graph) BuildFilesReferencing(target *Node) []*Node {
	var res []*Node
	g.Walk(func(n *Node) {
		if n.Kind == BuildFile && n.Ref("fileRef") == target {
			res = append(res, n)
		}
	})
	return res
}

// FindFileByDiskPath locates a file reference by its on-disk path attribute.
func (g *Graph) FindFileByDiskPath(diskPath string) *Node {
	var res *Node
	g.Walk(func(n *Node) {
		if res != nil {
			return
		}
		if n.Kind == FileReference && n.attrString("path") == diskPath {
			res = n
		}
	})
	return res
}

// FindVariantGroupByName locates a variant group by display name.
func (g *Graph) FindVariantGroupByName(name string) *Node {
	var res *Node
	g.Walk(func(n *Node) {
		if res != nil {
			return
		}
		if n.Kind == VariantGroup && n.DisplayName() == name {
			res = n
		}
	})
	return res
}

// FindTargetByName locates a target by display name.
func (g *Graph) FindTargetByName(name string) *Node {
	for _, t := range g.Root.Children("targets") {
		if t.DisplayName() == name {
			return t
		}
	}
	return nil
}

// FindPackageByURL locates a remote package reference by repository URL.
func (g *Graph) FindPackageByURL(url string) *Node {
	for _, p := range g.Root.Children("packageReferences") {
		if p.attrString("repositoryURL") == url {
			return p
		}
	}
	return nil
}

// ProjectReferences lists the subproject reference records in declaration
// order. That order is the documented tie-break for multi-candidate proxy
// and portal lookups.
func (g *Graph) ProjectReferences() []*Node {
	return g.Root.Children("projectReferences")
}
