package merge

import (
	"github.com/pbxkit/pbxmerge/change"
	"github.com/pbxkit/pbxmerge/pbx"
)

// snapAt pairs a snapshot with the path of its containing group.
type snapAt struct {
	snap *pbx.Snapshot
	dir  string
}

// diffAt pairs a subtree change with the path of the node it describes.
type diffAt struct {
	path string
	chg  *change.Change
}

// classified buckets a main-hierarchy subtree change for the materializer.
type classified struct {
	additions []snapAt
	removals  []snapAt
	diffs     []diffAt
}

// classify flattens a nested group/file change subtree rooted at rootPath.
// Removed and added snapshots are collected pre-order depth first, each
// paired with its containing group's path, including snapshots nested inside
// other removed/added snapshots. Every visited subtree node contributes one
// diff entry, in traversal order. Snapshots under an added or removed
// snapshot are wholly new or gone and are not separately diffed.
func classify(chg *change.Change, rootPath string) *classified {
	cl := &classified{}
	cl.visit(chg, rootPath)
	return cl
}

func (cl *classified) visit(chg *change.Change, path string) {
	cl.diffs = append(cl.diffs, diffAt{path: path, chg: chg})
	children := chg.Field("children")
	if children == nil {
		return
	}
	for _, snap := range children.RemovedSnaps {
		cl.collect(&cl.removals, snap, path)
	}
	for _, snap := range children.AddedSnaps {
		cl.collect(&cl.additions, snap, path)
	}
	for _, f := range children.Fields {
		cl.visit(f.Change, pbx.JoinPath(path, f.Name))
	}
}

func (cl *classified) collect(dst *[]snapAt, snap *pbx.Snapshot, dir string) {
	*dst = append(*dst, snapAt{snap: snap, dir: dir})
	for _, nested := range snap.Slots["children"] {
		cl.collect(dst, nested, pbx.JoinPath(dir, snap.DisplayName()))
	}
}
