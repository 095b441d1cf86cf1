package pbx

import (
	"fmt"
	"slices"

	"github.com/goccy/go-yaml"
)

// Graphs load from and save to a YAML document shaped like the graph itself:
// nested owned nodes, uuid strings for back-references. This is the on-disk
// form the tool works with; the native project-file syntax is out of scope.

type pendingRef struct {
	node *Node
	slot string
	id   string
}

func LoadGraph(data []byte) (*Graph, error) {
	var v any
	if err := yaml.UnmarshalWithOptions(data, &v, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	g := &Graph{byUUID: map[string]*Node{}}
	var pending []pendingRef
	root, err := buildNode(g, v, &pending)
	if err != nil {
		return nil, err
	}
	if root.Kind != Project {
		return nil, fmt.Errorf("%w: document root is %s, want %s", ErrParse, root.Kind, Project)
	}
	g.Root = root
	if g.MainGroup() == nil {
		main := g.NewNode(Group)
		g.SetRef(root, "mainGroup", main)
	}
	for _, p := range pending {
		target := g.byUUID[p.id]
		if target == nil {
			return nil, fmt.Errorf("%w: unresolved reference %q in %s.%s", ErrParse, p.id, p.node.Kind, p.slot)
		}
		p.node.Refs[p.slot] = target
	}
	return g, nil
}

func buildNode(g *Graph, v any, pending *[]pendingRef) (*Node, error) {
	m, keys, ok := anyMapSlice(v)
	if !ok {
		return nil, fmt.Errorf("%w: node is not a mapping", ErrParse)
	}
	isa, _ := m["isa"].(string)
	if isa == "" {
		return nil, fmt.Errorf("%w: node without isa", ErrParse)
	}
	kind, err := ParseKind(isa)
	if err != nil {
		return nil, err
	}
	n := g.NewNode(kind)
	if id, _ := m["uuid"].(string); id != "" {
		delete(g.byUUID, n.UUID)
		n.UUID = id
		g.byUUID[id] = n
	}
	sch := SchemaOf(kind)
	for _, key := range keys {
		val := m[key]
		switch {
		case key == "isa" || key == "uuid" || key == "displayName":
		case sch.HasAttr(key):
			av, err := ValueFromAny(val)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", kind, key, err)
			}
			n.SetAttr(key, av)
		case sch.HasCollection(key):
			elems, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s is not a sequence", ErrParse, kind, key)
			}
			for _, e := range elems {
				child, err := buildNode(g, e, pending)
				if err != nil {
					return nil, err
				}
				if err := g.Attach(n, key, child); err != nil {
					return nil, err
				}
			}
		case sch.HasRef(key):
			spec := sch.Refs[key]
			if id, ok := val.(string); ok {
				if !spec.Owned {
					*pending = append(*pending, pendingRef{node: n, slot: key, id: id})
					continue
				}
				return nil, fmt.Errorf("%w: owned slot %s.%s given a reference", ErrParse, kind, key)
			}
			child, err := buildNode(g, val, pending)
			if err != nil {
				return nil, err
			}
			if err := g.SetRef(n, key, child); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %s has no field %q", ErrSchema, kind, key)
		}
	}
	return n, nil
}

func SaveGraph(g *Graph) ([]byte, error) {
	doc := encodeNode(g.Root)
	return yaml.Marshal(doc)
}

func encodeNode(n *Node) yaml.MapSlice {
	res := yaml.MapSlice{
		{Key: "isa", Value: n.Kind.String()},
		{Key: "uuid", Value: n.UUID},
	}
	for _, name := range sortedAttrNames(n.Attrs) {
		res = append(res, yaml.MapItem{Key: name, Value: n.Attrs[name].ToAny()})
	}
	for _, slot := range RefSlots(n.Kind) {
		r := n.Refs[slot]
		if r == nil {
			continue
		}
		if SchemaOf(n.Kind).Refs[slot].Owned {
			res = append(res, yaml.MapItem{Key: slot, Value: encodeNode(r)})
			continue
		}
		res = append(res, yaml.MapItem{Key: slot, Value: r.UUID})
	}
	for _, slot := range CollectionSlots(n.Kind) {
		col := n.Cols[slot]
		if len(col) == 0 {
			continue
		}
		elems := make([]any, len(col))
		for i, c := range col {
			elems[i] = encodeNode(c)
		}
		res = append(res, yaml.MapItem{Key: slot, Value: elems})
	}
	return res
}

// SnapshotFromAny decodes a snapshot from the generic YAML shape used inside
// change documents: isa plus attributes, nested snapshots in owned
// collections, shallow nested snapshots in reference slots.
func SnapshotFromAny(v any) (*Snapshot, error) {
	m, keys, ok := anyMapSlice(v)
	if !ok {
		return nil, fmt.Errorf("%w: snapshot is not a mapping", ErrParse)
	}
	isa, _ := m["isa"].(string)
	if isa == "" {
		return nil, fmt.Errorf("%w: snapshot without isa", ErrParse)
	}
	kind, err := ParseKind(isa)
	if err != nil {
		return nil, err
	}
	s := NewSnapshot(kind)
	sch := SchemaOf(kind)
	for _, key := range keys {
		val := m[key]
		switch {
		case key == "isa" || key == "uuid":
		case key == "displayName" || sch.HasAttr(key):
			av, err := ValueFromAny(val)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", kind, key, err)
			}
			if av != nil {
				s.Attrs[key] = av
			}
		case sch.HasCollection(key):
			elems, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s is not a sequence", ErrParse, kind, key)
			}
			snaps := make([]*Snapshot, len(elems))
			for i, e := range elems {
				cs, err := SnapshotFromAny(e)
				if err != nil {
					return nil, err
				}
				snaps[i] = cs
			}
			s.Slots[key] = snaps
		case sch.HasRef(key):
			rs, err := SnapshotFromAny(val)
			if err != nil {
				return nil, err
			}
			s.Refs[key] = rs
		default:
			return nil, fmt.Errorf("%w: %s has no field %q", ErrSchema, kind, key)
		}
	}
	// normalize so declared and live snapshots compare cleanly
	if s.Attrs["displayName"] == nil {
		s.Attrs["displayName"] = Scalar(s.DisplayName())
	}
	return s, nil
}

func (s *Snapshot) ToAny() any {
	res := yaml.MapSlice{
		{Key: "isa", Value: s.Kind.String()},
	}
	if dn := s.Attrs["displayName"]; dn != nil {
		res = append(res, yaml.MapItem{Key: "displayName", Value: dn.ToAny()})
	}
	for _, name := range sortedAttrNames(s.Attrs) {
		res = append(res, yaml.MapItem{Key: name, Value: s.Attrs[name].ToAny()})
	}
	for _, slot := range RefSlots(s.Kind) {
		r := s.Refs[slot]
		if r == nil {
			continue
		}
		res = append(res, yaml.MapItem{Key: slot, Value: r.ToAny()})
	}
	for _, slot := range CollectionSlots(s.Kind) {
		snaps := s.Slots[slot]
		if len(snaps) == 0 {
			continue
		}
		elems := make([]any, len(snaps))
		for i, c := range snaps {
			elems[i] = c.ToAny()
		}
		res = append(res, yaml.MapItem{Key: slot, Value: elems})
	}
	return res
}

// anyMapSlice normalizes goccy's ordered and unordered map decodings.
func anyMapSlice(v any) (map[string]any, []string, bool) {
	switch t := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]any, len(t))
		keys := make([]string, 0, len(t))
		for _, item := range t {
			ks, ok := item.Key.(string)
			if !ok {
				ks = fmt.Sprintf("%v", item.Key)
			}
			m[ks] = item.Value
			keys = append(keys, ks)
		}
		return m, keys, true
	case map[string]any:
		m := t
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		return m, keys, true
	default:
		return nil, nil, false
	}
}

func sortedAttrNames(attrs map[string]*Value) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if k == "displayName" {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
