package merge

import (
	"fmt"
	"sort"

	"github.com/pbxkit/pbxmerge/change"
	"github.com/pbxkit/pbxmerge/debug"
	"github.com/pbxkit/pbxmerge/pbx"
)

// applyHierarchy materializes a main-group subtree change in four ordered
// passes: group additions, file resolution (additions, moves, removals),
// leaf diffs, group removals. The order is load-bearing: groups must exist
// before files land in them, file removals must precede the removal of the
// groups that held them, and diffs run against whatever survived.
func (a *Applier) applyHierarchy(chg *change.Change) error {
	cl := classify(chg, "")
	if err := a.addGroups(cl); err != nil {
		return err
	}
	if err := a.resolveFiles(cl); err != nil {
		return err
	}
	if err := a.applyTreeDiffs(cl); err != nil {
		return err
	}
	return a.removeGroups(cl)
}

// pass 1: group additions in traversal order.
func (a *Applier) addGroups(cl *classified) error {
	for _, add := range cl.additions {
		if !add.snap.Kind.IsGroup() {
			continue
		}
		op := HierarchyOp{
			Op:   "add-group",
			Path: pbx.JoinPath(add.dir, add.snap.DisplayName()),
			Kind: add.snap.Kind.String(),
		}
		if !a.allowOp(op) {
			continue
		}
		if _, err := a.addGroup(add.dir, add.snap); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) addGroup(dir string, snap *pbx.Snapshot) (*pbx.Node, error) {
	containing, err := a.containingGroup(dir, snap.DisplayName())
	if err != nil || containing == nil {
		return nil, err
	}
	if !a.cfg.AllowDuplicates && duplicateChild(containing, snap) != nil {
		if debug.Tree() {
			debug.Logf("skip duplicate group %q under %q\n", snap.DisplayName(), dir)
		}
		return nil, nil
	}
	n := a.live.NewNode(snap.Kind)
	copyLeafAttrs(n, snap)
	if err := a.live.Attach(containing, "children", n); err != nil {
		return nil, err
	}
	return n, nil
}

// containingGroup resolves dir in the live tree. When absent, the caller
// picks between rebuilding the missing ancestor chain from the base graph
// and skipping; skipping yields a nil group with a nil error.
func (a *Applier) containingGroup(dir, childName string) (*pbx.Node, error) {
	containing := a.live.NodeAtPath(dir)
	if containing != nil {
		return containing, nil
	}
	var rebuilt *pbx.Node
	var opts []Option
	if a.base != nil {
		opts = append(opts, Option{
			Label: "recreate the missing groups from the base project",
			Apply: func() error {
				n, err := a.rebuildAncestors(dir)
				rebuilt = n
				return err
			},
		})
	}
	opts = append(opts, Option{
		Label: "skip this addition",
		Apply: func() error { return nil },
	})
	err := a.resolve(
		fmt.Sprintf("cannot find containing group %q for %q", dir, childName),
		opts...,
	)
	if err != nil {
		return nil, err
	}
	return rebuilt, nil
}

// rebuildAncestors re-derives the missing groups along dir from the base
// graph, re-running the plain group addition logic per component.
func (a *Applier) rebuildAncestors(dir string) (*pbx.Node, error) {
	if a.base == nil {
		return nil, mergeErrf("no base project to rebuild %q from", dir)
	}
	cur := a.live.MainGroup()
	curPath := ""
	for _, comp := range pbx.SplitPath(dir) {
		compPath := pbx.JoinPath(curPath, comp)
		next := cur.FindChild("children", comp)
		if next == nil {
			baseNode := a.base.NodeAtPath(compPath)
			if baseNode == nil {
				return nil, mergeErrf("group %q exists in neither the project nor its base", compPath)
			}
			baseSnap := a.base.Snapshot(baseNode)
			next = a.live.NewNode(baseNode.Kind)
			copyLeafAttrs(next, baseSnap)
			if err := a.live.Attach(cur, "children", next); err != nil {
				return nil, err
			}
		}
		cur = next
		curPath = compPath
	}
	return cur, nil
}

// fileKey is the identity a file addition/removal is matched by.
type fileKey struct {
	name       string
	path       string
	sourceTree string
}

func keyOf(snap *pbx.Snapshot) fileKey {
	return fileKey{
		name:       snap.DisplayName(),
		path:       attrScalar(snap.Attr("path")),
		sourceTree: attrScalar(snap.Attr("sourceTree")),
	}
}

// pass 2: file additions, moves, removals.
func (a *Applier) resolveFiles(cl *classified) error {
	var (
		addedKeys   []fileKey
		added       = map[fileKey][]snapAt{}
		removedKeys []fileKey
		removed     = map[fileKey][]snapAt{}
		removedRefs = map[fileKey][]*pbx.Node{}
		moved       = map[fileKey]bool{}
	)
	for _, add := range cl.additions {
		if add.snap.Kind.IsGroup() {
			continue
		}
		key := keyOf(add.snap)
		if _, ok := added[key]; !ok {
			addedKeys = append(addedKeys, key)
		}
		added[key] = append(added[key], add)
	}
	for _, rem := range cl.removals {
		if rem.snap.Kind.IsGroup() {
			continue
		}
		key := keyOf(rem.snap)
		if _, ok := removed[key]; !ok {
			removedKeys = append(removedKeys, key)
		}
		removed[key] = append(removed[key], rem)
		removedRefs[key] = append(removedRefs[key],
			a.live.NodeAtPath(pbx.JoinPath(rem.dir, rem.snap.DisplayName())))
	}

	for _, key := range addedKeys {
		adds := added[key]
		refs := removedRefs[key]
		if len(refs) == 0 {
			for _, add := range adds {
				op := HierarchyOp{
					Op:   "add-file",
					Path: pbx.JoinPath(add.dir, add.snap.DisplayName()),
					Kind: add.snap.Kind.String(),
				}
				if !a.allowOp(op) {
					continue
				}
				if err := a.addFile(add.dir, add.snap); err != nil {
					return err
				}
			}
			continue
		}
		if len(adds) == 1 && len(refs) == 1 && refs[0] != nil {
			op := HierarchyOp{
				Op:   "move-file",
				Path: pbx.JoinPath(adds[0].dir, adds[0].snap.DisplayName()),
				Kind: adds[0].snap.Kind.String(),
			}
			moved[key] = true
			if !a.allowOp(op) {
				continue
			}
			if err := a.moveFile(refs[0], adds[0]); err != nil {
				return err
			}
			continue
		}
		return fmt.Errorf("%w: %q has %d additions and %d removals",
			ErrAmbiguousMove, key.name, len(adds), len(refs))
	}

	for _, key := range removedKeys {
		if moved[key] {
			continue
		}
		if _, ok := added[key]; ok {
			continue
		}
		for _, rem := range removed[key] {
			p := pbx.JoinPath(rem.dir, rem.snap.DisplayName())
			op := HierarchyOp{Op: "remove-file", Path: p, Kind: rem.snap.Kind.String()}
			if !a.allowOp(op) {
				continue
			}
			node := a.live.NodeAtPath(p)
			if node == nil {
				if debug.Tree() {
					debug.Logf("removed file %q already gone\n", p)
				}
				continue
			}
			a.removeFileNode(node)
		}
	}
	return nil
}

func (a *Applier) addFile(dir string, snap *pbx.Snapshot) error {
	containing, err := a.containingGroup(dir, snap.DisplayName())
	if err != nil || containing == nil {
		return err
	}
	if !a.cfg.AllowDuplicates && duplicateChild(containing, snap) != nil {
		if debug.Tree() {
			debug.Logf("skip duplicate file %q under %q\n", snap.DisplayName(), dir)
		}
		return nil
	}
	n, err := a.materializeSnapshot(snap)
	if err != nil {
		return err
	}
	return a.live.Attach(containing, "children", n)
}

// moveFile re-parents an existing live node, preserving its identity and
// every back-reference to it. No new node is created.
func (a *Applier) moveFile(node *pbx.Node, add snapAt) error {
	containing, err := a.containingGroup(add.dir, add.snap.DisplayName())
	if err != nil {
		return err
	}
	if containing == nil {
		return nil
	}
	if debug.Tree() {
		debug.Logf("move %q to %q\n", node.DisplayName(), add.dir)
	}
	a.live.Detach(node)
	return a.live.Attach(containing, "children", node)
}

// removeFileNode deletes a file, first detaching every dependent build file
// from its owning phase. A build file's identity derives from the file's
// display name, so reversing this order would make it unfindable.
func (a *Applier) removeFileNode(node *pbx.Node) {
	for _, bf := range a.live.BuildFilesReferencing(node) {
		a.live.Remove(bf)
	}
	a.live.Remove(node)
}

// pass 3: leaf diffs in traversal order. Nodes that are already gone were
// removed by an earlier pass or a prior change; they are skipped silently.
func (a *Applier) applyTreeDiffs(cl *classified) error {
	for _, d := range cl.diffs {
		if !a.allowOp(HierarchyOp{Op: "diff", Path: d.path}) {
			continue
		}
		node := a.live.NodeAtPath(d.path)
		if node == nil {
			if debug.Tree() {
				debug.Logf("diff target %q not in project\n", d.path)
			}
			continue
		}
		chg := d.chg
		if newKind, ok := chg.KindChange(); ok {
			p := node.Parent
			if p == nil || p.Cols[node.ParentSlot] == nil {
				return mergeErrf("cannot change the kind of %q", d.path)
			}
			nn, err := a.replaceComponentType(
				listComponent(p, node.ParentSlot), node.DisplayName(), newKind)
			if err != nil {
				return err
			}
			node = nn
			chg = chg.Restrict(pbx.SchemaOf(newKind))
		}
		for _, f := range chg.Fields {
			if f.Name == "children" {
				continue
			}
			if err := a.applyChange(nodeComponent(node), f.Name, f.Change, d.path); err != nil {
				return fmt.Errorf("%q: %w", pbx.JoinPath(d.path, f.Name), err)
			}
		}
	}
	return nil
}

// pass 4: group removals, deepest first, so a group's children are gone
// before the group itself.
func (a *Applier) removeGroups(cl *classified) error {
	type groupRemoval struct {
		path string
		snap *pbx.Snapshot
	}
	var removals []groupRemoval
	for _, rem := range cl.removals {
		if !rem.snap.Kind.IsGroup() {
			continue
		}
		removals = append(removals, groupRemoval{
			path: pbx.JoinPath(rem.dir, rem.snap.DisplayName()),
			snap: rem.snap,
		})
	}
	sort.SliceStable(removals, func(i, j int) bool {
		return pbx.PathDepth(removals[i].path) > pbx.PathDepth(removals[j].path)
	})
	for _, rem := range removals {
		op := HierarchyOp{Op: "remove-group", Path: rem.path, Kind: rem.snap.Kind.String()}
		if !a.allowOp(op) {
			continue
		}
		node := a.live.NodeAtPath(rem.path)
		if node == nil {
			if debug.Tree() {
				debug.Logf("removed group %q already gone\n", rem.path)
			}
			continue
		}
		// children were removed one by one in earlier passes
		expected := rem.snap.Clone()
		delete(expected.Slots, "children")
		if err := a.removeAndVerify(node, expected); err != nil {
			return err
		}
	}
	return nil
}

func duplicateChild(containing *pbx.Node, snap *pbx.Snapshot) *pbx.Node {
	name := snap.DisplayName()
	diskPath := attrScalar(snap.Attr("path"))
	for _, c := range containing.Children("children") {
		if c.DisplayName() != name {
			continue
		}
		cp := attrScalar(c.Attr("path"))
		if cp == diskPath {
			return c
		}
	}
	return nil
}

func copyLeafAttrs(n *pbx.Node, snap *pbx.Snapshot) {
	for _, name := range snap.LeafAttrNames() {
		n.SetAttr(name, snap.Attrs[name].Clone())
	}
}

func attrScalar(v *pbx.Value) string {
	if v == nil || v.Kind != pbx.ScalarValue {
		return ""
	}
	return v.Scalar
}
