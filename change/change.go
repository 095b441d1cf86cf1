// Package change models the hierarchical change description produced by
// comparing two project snapshots: leaf diffs, collection diffs, nested
// subtrees, and kind changes, in one recursive type.
package change

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/pbxkit/pbxmerge/pbx"
)

var ErrParse = errors.New("change parse error")

// Change is one node of the change tree. Exactly which of the sides are set
// depends on the grammar case:
//
//   - leaf diff: RemovedVal/AddedVal (either may be nil while the side is
//     still marked present, meaning "no prior value" / "delete").
//   - collection diff: RemovedSnaps/AddedSnaps.
//   - single-slot diff: RemovedSnap/AddedSnap.
//   - subtree: Fields, ordered as the document orders them.
//
// A kind change is a subtree whose "isa" field carries a leaf diff.
type Change struct {
	HasRemoved bool
	HasAdded   bool

	RemovedVal *pbx.Value
	AddedVal   *pbx.Value

	RemovedSnap *pbx.Snapshot
	AddedSnap   *pbx.Snapshot

	RemovedSnaps []*pbx.Snapshot
	AddedSnaps   []*pbx.Snapshot

	Fields []Field
}

type Field struct {
	Name   string
	Change *Change
}

// Field returns the nested change for name, or nil.
func (c *Change) Field(name string) *Change {
	if c == nil {
		return nil
	}
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return c.Fields[i].Change
		}
	}
	return nil
}

// KindChange reports whether c replaces the node's kind, returning the
// target kind when it does.
func (c *Change) KindChange() (pbx.Kind, bool) {
	kc := c.Field("isa")
	if kc == nil || !kc.HasAdded || kc.AddedVal == nil || kc.AddedVal.Kind != pbx.ScalarValue {
		return 0, false
	}
	k, err := pbx.ParseKind(kc.AddedVal.Scalar)
	if err != nil {
		return 0, false
	}
	return k, true
}

// Restrict drops nested fields the given schema does not recognize, plus the
// kind tag itself. Used after a type replacement: fields describing
// attributes the new kind lacks no longer apply.
func (c *Change) Restrict(sch *pbx.Schema) *Change {
	res := &Change{
		HasRemoved:   c.HasRemoved,
		HasAdded:     c.HasAdded,
		RemovedVal:   c.RemovedVal,
		AddedVal:     c.AddedVal,
		RemovedSnap:  c.RemovedSnap,
		AddedSnap:    c.AddedSnap,
		RemovedSnaps: c.RemovedSnaps,
		AddedSnaps:   c.AddedSnaps,
	}
	for _, f := range c.Fields {
		if f.Name == "isa" {
			continue
		}
		if f.Name != "displayName" && !sch.Recognizes(f.Name) {
			continue
		}
		res.Fields = append(res.Fields, f)
	}
	return res
}

// Decode parses a YAML change document. The keys "removed" and "added" are
// reserved at every level; all other keys are nested fields, kept in
// document order.
func Decode(data []byte) (*Change, error) {
	var v any
	if err := yaml.UnmarshalWithOptions(data, &v, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return FromAny(v)
}

// FromAny lifts a decoded YAML value into a Change.
func FromAny(v any) (*Change, error) {
	m, keys, ok := mapSlice(v)
	if !ok {
		return nil, fmt.Errorf("%w: change is not a mapping", ErrParse)
	}
	c := &Change{}
	for _, key := range keys {
		val := m[key]
		switch key {
		case "removed":
			c.HasRemoved = true
			if err := c.decodeSide(val, &c.RemovedVal, &c.RemovedSnap, &c.RemovedSnaps); err != nil {
				return nil, err
			}
		case "added":
			c.HasAdded = true
			if err := c.decodeSide(val, &c.AddedVal, &c.AddedSnap, &c.AddedSnaps); err != nil {
				return nil, err
			}
		default:
			sub, err := FromAny(val)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", key, err)
			}
			c.Fields = append(c.Fields, Field{Name: key, Change: sub})
		}
	}
	return c, nil
}

// decodeSide classifies one removed/added payload by shape: a mapping with
// an isa is a snapshot, a sequence of such mappings is a snapshot list,
// anything else is a leaf value.
func (c *Change) decodeSide(v any, leaf **pbx.Value, snap **pbx.Snapshot, snaps *[]*pbx.Snapshot) error {
	if isSnapshotShape(v) {
		s, err := pbx.SnapshotFromAny(v)
		if err != nil {
			return err
		}
		*snap = s
		return nil
	}
	if elems, ok := v.([]any); ok && len(elems) > 0 && isSnapshotShape(elems[0]) {
		res := make([]*pbx.Snapshot, len(elems))
		for i, e := range elems {
			s, err := pbx.SnapshotFromAny(e)
			if err != nil {
				return err
			}
			res[i] = s
		}
		*snaps = res
		return nil
	}
	lv, err := pbx.ValueFromAny(v)
	if err != nil {
		return err
	}
	*leaf = lv
	return nil
}

func isSnapshotShape(v any) bool {
	m, _, ok := mapSlice(v)
	if !ok {
		return false
	}
	isa, _ := m["isa"].(string)
	return isa != ""
}

func mapSlice(v any) (map[string]any, []string, bool) {
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
