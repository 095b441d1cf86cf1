package pbx

import (
	"maps"
	"path"
	"slices"
)

// Snapshot is the fully recursive, order-preserving serialization of a node
// and its owned descendants. Back-reference slots serialize the referenced
// node shallowly (kind and attributes only) so snapshots stay acyclic.
type Snapshot struct {
	Kind  Kind
	Attrs map[string]*Value
	Slots map[string][]*Snapshot
	Refs  map[string]*Snapshot
}

func NewSnapshot(k Kind) *Snapshot {
	return &Snapshot{
		Kind:  k,
		Attrs: map[string]*Value{},
		Slots: map[string][]*Snapshot{},
		Refs:  map[string]*Snapshot{},
	}
}

// Snapshot serializes n per the rules above.
func (g *Graph) Snapshot(n *Node) *Snapshot {
	return snapshotNode(n, true)
}

func snapshotNode(n *Node, deep bool) *Snapshot {
	if n == nil {
		return nil
	}
	s := NewSnapshot(n.Kind)
	for name, v := range n.Attrs {
		s.Attrs[name] = v.Clone()
	}
	s.Attrs["displayName"] = Scalar(n.DisplayName())
	if !deep {
		return s
	}
	for _, slot := range CollectionSlots(n.Kind) {
		col := n.Cols[slot]
		if len(col) == 0 {
			continue
		}
		snaps := make([]*Snapshot, len(col))
		for i, c := range col {
			snaps[i] = snapshotNode(c, true)
		}
		s.Slots[slot] = snaps
	}
	for _, slot := range RefSlots(n.Kind) {
		r := n.Refs[slot]
		if r == nil {
			continue
		}
		spec := SchemaOf(n.Kind).Refs[slot]
		s.Refs[slot] = snapshotNode(r, spec.Owned)
	}
	return s
}

func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	res := NewSnapshot(s.Kind)
	for k, v := range s.Attrs {
		res.Attrs[k] = v.Clone()
	}
	for slot, snaps := range s.Slots {
		cl := make([]*Snapshot, len(snaps))
		for i, c := range snaps {
			cl[i] = c.Clone()
		}
		res.Slots[slot] = cl
	}
	for slot, r := range s.Refs {
		res.Refs[slot] = r.Clone()
	}
	return res
}

func (s *Snapshot) Attr(name string) *Value {
	if s == nil {
		return nil
	}
	return s.Attrs[name]
}

func (s *Snapshot) attrString(name string) string {
	v := s.Attr(name)
	if v == nil || v.Kind != ScalarValue {
		return ""
	}
	return v.Scalar
}

// DisplayName mirrors Node.DisplayName for serialized state.
func (s *Snapshot) DisplayName() string {
	if s == nil {
		return ""
	}
	if dn := s.attrString("displayName"); dn != "" {
		return dn
	}
	switch {
	case s.Kind == BuildFile:
		return s.Refs["fileRef"].DisplayName()
	case s.Kind == TargetDependency:
		if name := s.attrString("name"); name != "" {
			return name
		}
		return s.Refs["target"].DisplayName()
	case s.Kind == SwiftPackageProductDependency:
		return s.attrString("productName")
	case s.Kind == RemoteSwiftPackageReference:
		return s.attrString("repositoryURL")
	case s.Kind == ContainerItemProxy:
		return s.attrString("remoteInfo")
	case s.Kind.IsBuildPhase():
		if name := s.attrString("name"); name != "" {
			return name
		}
		return phaseDefaultNames[s.Kind]
	default:
		if name := s.attrString("name"); name != "" {
			return name
		}
		if p := s.attrString("path"); p != "" {
			return path.Base(p)
		}
		return s.Kind.String()
	}
}

// Equal is deep and order sensitive for owned collections. The synthetic
// displayName attribute participates; identity does not.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Kind != o.Kind {
		return false
	}
	if len(s.Attrs) != len(o.Attrs) {
		return false
	}
	for k, v := range s.Attrs {
		if !v.Equal(o.Attrs[k]) {
			return false
		}
	}
	if len(s.Slots) != len(o.Slots) {
		return false
	}
	for slot, snaps := range s.Slots {
		osnaps := o.Slots[slot]
		if len(snaps) != len(osnaps) {
			return false
		}
		for i := range snaps {
			if !snaps[i].Equal(osnaps[i]) {
				return false
			}
		}
	}
	if len(s.Refs) != len(o.Refs) {
		return false
	}
	for slot, r := range s.Refs {
		if !r.Equal(o.Refs[slot]) {
			return false
		}
	}
	return true
}

// LeafAttrNames lists the snapshot's leaf attributes, sorted, without the
// synthetic display name.
func (s *Snapshot) LeafAttrNames() []string {
	keys := slices.Sorted(maps.Keys(s.Attrs))
	return slices.DeleteFunc(keys, func(k string) bool {
		return k == "displayName"
	})
}
