package merge

import (
	"fmt"
	"slices"

	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/pbxkit/pbxmerge/change"
	"github.com/pbxkit/pbxmerge/debug"
	"github.com/pbxkit/pbxmerge/pbx"
)

// mergeLeafAttr three-way merges one leaf attribute of node: the current
// value against the change's removed and added sides.
func (a *Applier) mergeLeafAttr(node *pbx.Node, attr string, chg *change.Change) error {
	cur := node.Attr(attr)
	if debug.Leaf() {
		debug.Logf("merge leaf %s.%s cur=%s\n", node.Kind, attr, cur)
	}
	res, err := a.mergeValue(cur, chg, fmt.Sprintf("%s of %s %q", attr, node.Kind, node.DisplayName()))
	if err != nil {
		return err
	}
	node.SetAttr(attr, res)
	return nil
}

// mergeValue applies the per-category rules and recurses into nested
// sub-diffs of mapping values. A nil result means the value is deleted.
func (a *Applier) mergeValue(cur *pbx.Value, chg *change.Change, what string) (*pbx.Value, error) {
	removed, added := chg.RemovedVal, chg.AddedVal
	kind, err := valueCategory(cur, removed, added, what)
	if err != nil {
		return nil, err
	}
	var res *pbx.Value
	switch kind {
	case pbx.ScalarValue:
		res, err = a.mergeScalar(cur, removed, added, chg, what)
	case pbx.SequenceValue:
		res, err = a.mergeSequence(cur, removed, added, what)
	case pbx.MappingValue:
		res, err = a.mergeMapping(cur, removed, added, chg, what)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// valueCategory infers the field's category from whichever operand is
// non-nil. Non-nil operands disagreeing on category is fatal. A lone scalar
// among sequences counts as a sequence.
func valueCategory(cur, removed, added *pbx.Value, what string) (pbx.ValueKind, error) {
	kinds := map[pbx.ValueKind]bool{}
	for _, v := range []*pbx.Value{cur, removed, added} {
		if v != nil {
			kinds[v.Kind] = true
		}
	}
	if kinds[pbx.SequenceValue] {
		delete(kinds, pbx.ScalarValue)
		kinds[pbx.SequenceValue] = true
	}
	switch {
	case len(kinds) > 1:
		return 0, mergeErrf("incompatible value categories for %s", what)
	case kinds[pbx.MappingValue]:
		return pbx.MappingValue, nil
	case kinds[pbx.SequenceValue]:
		return pbx.SequenceValue, nil
	default:
		return pbx.ScalarValue, nil
	}
}

func (a *Applier) mergeScalar(cur, removed, added *pbx.Value, chg *change.Change, what string) (*pbx.Value, error) {
	if !chg.HasRemoved && !chg.HasAdded {
		return cur, nil
	}
	if !chg.HasRemoved || cur.Equal(removed) {
		return added.Clone(), nil
	}
	// current diverged from what the change expects to replace
	res := cur
	err := a.resolve(
		fmt.Sprintf("about to overwrite %s, currently %s, expected %s:\n%s",
			what, cur, removed, scalarDiff(cur, added)),
		Option{
			Label: "apply the incoming value",
			Apply: func() error { res = added.Clone(); return nil },
		},
		Option{
			Label: "keep the current value",
			Apply: func() error { return nil },
		},
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func scalarDiff(cur, added *pbx.Value) string {
	from := ""
	if cur != nil {
		from = cur.Scalar
	}
	to := ""
	if added != nil {
		to = added.Scalar
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(from, to, false)
	return dmp.DiffPrettyText(diffs)
}

func (a *Applier) mergeSequence(cur, removed, added *pbx.Value, what string) (*pbx.Value, error) {
	curSeq := cur.AsSequence()
	removedSeq := removed.AsSequence()
	addedSeq := added.AsSequence()

	survivors := subtractSeq(curSeq, removedSeq)
	if len(survivors) == 0 {
		if added == nil {
			return nil, nil
		}
		return pbx.Sequence(slices.Clone(addedSeq)...), nil
	}
	res := slices.Clone(survivors)
	for _, e := range addedSeq {
		if !a.cfg.AllowDuplicates && slices.Contains(res, e) {
			continue
		}
		res = append(res, e)
	}
	return pbx.Sequence(res...), nil
}

// subtractSeq removes one occurrence per removed entry, preserving the
// relative order of survivors.
func subtractSeq(cur, removed []string) []string {
	budget := map[string]int{}
	for _, r := range removed {
		budget[r]++
	}
	var res []string
	for _, e := range cur {
		if budget[e] > 0 {
			budget[e]--
			continue
		}
		res = append(res, e)
	}
	return res
}

func (a *Applier) mergeMapping(cur, removed, added *pbx.Value, chg *change.Change, what string) (*pbx.Value, error) {
	curMap := map[string]*pbx.Value{}
	if cur != nil {
		curMap = cur.Map
	}
	removedMap := map[string]*pbx.Value{}
	if removed != nil {
		removedMap = removed.Map
	}
	addedMap := map[string]*pbx.Value{}
	if added != nil {
		addedMap = added.Map
	}

	if (chg.HasRemoved || chg.HasAdded) && emptyAfterRemoval(curMap, removedMap) {
		res := added.Clone()
		return a.mergeMappingSubdiffs(res, chg, what)
	}

	merged := map[string]*pbx.Value{}
	for k, v := range curMap {
		merged[k] = v.Clone()
	}
	for _, k := range sortedValueKeys(addedMap) {
		av := addedMap[k]
		cv, ok := merged[k]
		if ok && !cv.Equal(av) {
			key := k
			err := a.resolve(
				fmt.Sprintf("key %q of %s is %s here and %s in the incoming change", key, what, cv, av),
				Option{
					Label: "prefer the incoming value",
					Apply: func() error { merged[key] = av.Clone(); return nil },
				},
				Option{
					Label: "keep the current value",
					Apply: func() error { return nil },
				},
			)
			if err != nil {
				return nil, err
			}
			continue
		}
		merged[k] = av.Clone()
	}
	for _, k := range sortedValueKeys(removedMap) {
		mv, ok := merged[k]
		if !ok {
			continue
		}
		if mv.Equal(removedMap[k]) || mv.Equal(addedMap[k]) {
			delete(merged, k)
			continue
		}
		key := k
		err := a.resolve(
			fmt.Sprintf("key %q of %s is %s, the change removes %s", key, what, mv, removedMap[key]),
			Option{
				Label: "remove it anyway",
				Apply: func() error { delete(merged, key); return nil },
			},
			Option{
				Label: "keep it",
				Apply: func() error { return nil },
			},
		)
		if err != nil {
			return nil, err
		}
	}
	return a.mergeMappingSubdiffs(pbx.Mapping(merged), chg, what)
}

// mergeMappingSubdiffs recurses into nested sub-diffs of mapping values
// using the same three-way rules.
func (a *Applier) mergeMappingSubdiffs(res *pbx.Value, chg *change.Change, what string) (*pbx.Value, error) {
	if len(chg.Fields) == 0 {
		return res, nil
	}
	if res == nil {
		res = pbx.Mapping(nil)
	}
	for _, f := range chg.Fields {
		sub, err := a.mergeValue(res.Map[f.Name], f.Change, what+"."+f.Name)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			delete(res.Map, f.Name)
			continue
		}
		res.Map[f.Name] = sub
	}
	return res, nil
}

func emptyAfterRemoval(cur, removed map[string]*pbx.Value) bool {
	for k, v := range cur {
		rv, ok := removed[k]
		if !ok || !rv.Equal(v) {
			return false
		}
	}
	return true
}

func sortedValueKeys(m map[string]*pbx.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
