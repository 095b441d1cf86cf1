package merge

import (
	"fmt"

	"github.com/pbxkit/pbxmerge/change"
	"github.com/pbxkit/pbxmerge/debug"
	"github.com/pbxkit/pbxmerge/pbx"
)

// component is what a change field resolves to while walking the graph:
// either a single node or one of a node's owned collections.
type component struct {
	node  *pbx.Node
	owner *pbx.Node
	slot  string
}

func nodeComponent(n *pbx.Node) component {
	return component{node: n}
}

func listComponent(owner *pbx.Node, slot string) component {
	return component{owner: owner, slot: slot}
}

func (c component) isList() bool {
	return c.owner != nil
}

func (c component) unresolved() bool {
	return c.node == nil && c.owner == nil
}

// applyChange applies one named field change under parent. It recurses into
// the change's nested fields with the resolved component as the new parent.
func (a *Applier) applyChange(parent component, name string, chg *change.Change, path string) error {
	if name == "displayName" {
		return nil
	}
	if debug.Apply() {
		debug.Logf("apply %q at %q\n", name, path)
	}
	if parent.node != nil && pbx.SchemaOf(parent.node.Kind).HasAttr(name) {
		return a.mergeLeafAttr(parent.node, name, chg)
	}

	var comp component
	removedHere := false

	if newKind, ok := chg.KindChange(); ok {
		nn, err := a.replaceComponentType(parent, name, newKind)
		if err != nil {
			return err
		}
		chg = chg.Restrict(pbx.SchemaOf(newKind))
		comp = nodeComponent(nn)
	} else {
		var err error
		comp, err = a.resolveComponent(parent, name, chg)
		if err != nil {
			return err
		}

		if chg.RemovedSnap != nil {
			if comp.node != nil {
				if err := a.removeAndVerify(comp.node, chg.RemovedSnap); err != nil {
					return err
				}
				comp = nodeComponent(nil)
				removedHere = true
			} else if debug.Apply() {
				debug.Logf("removed component %q already gone at %q\n", name, path)
			}
		}
		for _, snap := range chg.RemovedSnaps {
			if !comp.isList() {
				return mergeErrf("removal list for %q at %q does not target a collection", name, path)
			}
			member := a.findListMember(comp, snap.DisplayName(), &change.Change{RemovedSnap: snap})
			if member == nil {
				continue
			}
			if err := a.removeAndVerify(member, snap); err != nil {
				return err
			}
		}

		if chg.AddedSnap != nil {
			nn, err := a.construct(parent, chg.AddedSnap, path)
			if err != nil {
				return err
			}
			comp = nodeComponent(nn)
		}
		for _, snap := range chg.AddedSnaps {
			// arrays have no single current child; comp stays as is
			if _, err := a.construct(parent, snap, path); err != nil {
				return err
			}
		}
	}

	rest := nestedFields(chg)
	if len(rest) == 0 {
		return nil
	}
	if removedHere && comp.unresolved() {
		return nil
	}
	if comp.unresolved() {
		// the node this change describes existed in the base graph but is
		// not in the live one
		desc := fmt.Sprintf("component %q at %q not found in the project", name, path)
		return a.resolve(desc,
			Option{
				Label: "skip this change",
				Apply: func() error { return nil },
			},
			Option{
				Label: "recreate the component (not yet supported)",
				Apply: func() error {
					a.diag("recreating %q at %q is not supported, change skipped", name, path)
					return nil
				},
			},
		)
	}
	childPath := pbx.JoinPath(path, name)
	for _, f := range rest {
		if err := a.applyChange(comp, f.Name, f.Change, childPath); err != nil {
			return err
		}
	}
	return nil
}

func nestedFields(chg *change.Change) []change.Field {
	res := make([]change.Field, 0, len(chg.Fields))
	for _, f := range chg.Fields {
		if f.Name == "isa" {
			continue
		}
		res = append(res, f)
	}
	return res
}

// resolveComponent implements the field-to-component step: members of a
// keyed collection go by display name (reference proxies by their remote
// descriptor, since they are not named); node fields read the schema slot.
func (a *Applier) resolveComponent(parent component, name string, chg *change.Change) (component, error) {
	if parent.isList() {
		return nodeComponent(a.findListMember(parent, name, chg)), nil
	}
	n := parent.node
	if n == nil {
		return component{}, nil
	}
	sch := pbx.SchemaOf(n.Kind)
	switch {
	case sch.HasCollection(name):
		return listComponent(n, name), nil
	case sch.HasRef(name):
		return nodeComponent(n.Ref(name)), nil
	default:
		return component{}, mergeErrf("%s has no field %q", n.Kind, name)
	}
}

// findListMember locates a collection entry by identity. chg, when given,
// supplies the remote descriptor for reference proxies.
func (a *Applier) findListMember(list component, name string, chg *change.Change) *pbx.Node {
	members := list.owner.Children(list.slot)
	if desc := remoteDescriptor(chg); desc != "" {
		for _, m := range members {
			if m.Kind != pbx.ReferenceProxy {
				continue
			}
			if attrScalar(m.Ref("remoteRef").Attr("remoteGlobalIDString")) == desc {
				return m
			}
		}
	}
	for _, m := range members {
		if m.DisplayName() == name {
			return m
		}
	}
	return nil
}

// remoteDescriptor extracts the reference-proxy identity a change addresses:
// the remote global id recorded on its remoteRef sub-change or removed
// snapshot.
func remoteDescriptor(chg *change.Change) string {
	if chg == nil {
		return ""
	}
	if chg.RemovedSnap != nil && chg.RemovedSnap.Kind == pbx.ReferenceProxy {
		return attrScalar(chg.RemovedSnap.Refs["remoteRef"].Attr("remoteGlobalIDString"))
	}
	rr := chg.Field("remoteRef")
	if rr == nil {
		return ""
	}
	if rr.RemovedSnap != nil {
		return attrScalar(rr.RemovedSnap.Attr("remoteGlobalIDString"))
	}
	if gid := rr.Field("remoteGlobalIDString"); gid != nil && gid.RemovedVal != nil {
		return attrScalar(gid.RemovedVal)
	}
	return ""
}

// replaceComponentType performs a wholesale type replacement: a new node of
// the target kind takes over the slot, keeping every attribute the two
// schemas share.
func (a *Applier) replaceComponentType(parent component, name string, newKind pbx.Kind) (*pbx.Node, error) {
	var old *pbx.Node
	if parent.isList() {
		old = a.findListMember(parent, name, nil)
	} else {
		n := parent.node
		if _, ok := pbx.SchemaOf(n.Kind).Refs[name]; !ok {
			return nil, mergeErrf("cannot change the kind of %s.%s", n.Kind, name)
		}
		old = n.Ref(name)
	}
	if old == nil {
		return nil, mergeErrf("no component %q to change the kind of", name)
	}
	owner, slot := old.Parent, old.ParentSlot
	if owner == nil {
		return nil, mergeErrf("cannot change the kind of the project root")
	}
	nn := a.live.NewNode(newKind)
	newSch := pbx.SchemaOf(newKind)
	for attr, v := range old.Attrs {
		if newSch.HasAttr(attr) {
			nn.SetAttr(attr, v.Clone())
		}
	}
	// The new node takes over the old one's owning location, and every
	// back-reference to the old node follows. Only owned nodes serialize,
	// so the replacement must land in an owning slot to survive a reload.
	if _, ok := owner.Cols[slot]; ok {
		if err := a.live.ReplaceChild(owner, slot, old, nn); err != nil {
			return nil, err
		}
	} else if err := a.live.SetRef(owner, slot, nn); err != nil {
		return nil, err
	}
	a.live.RetargetRefs(old, nn)
	a.live.Remove(old)
	return nn, nil
}
