package merge

import (
	"fmt"

	"github.com/pbxkit/pbxmerge/debug"
	"github.com/pbxkit/pbxmerge/pbx"
)

// removeAndVerify destroys node only if its live snapshot still equals the
// change's declared removed snapshot. File references cascade: dependent
// build files go first, while the file's display name can still find them.
func (a *Applier) removeAndVerify(node *pbx.Node, expected *pbx.Snapshot) error {
	live := a.live.Snapshot(node)
	if live.Equal(expected) {
		a.destroy(node)
		return nil
	}
	return a.resolve(
		fmt.Sprintf("%s %q changed since the change was recorded", node.Kind, node.DisplayName()),
		Option{
			Label: "keep it",
			Apply: func() error { return nil },
		},
		Option{
			Label: "remove it anyway",
			Apply: func() error { a.destroy(node); return nil },
		},
	)
}

func (a *Applier) destroy(node *pbx.Node) {
	if debug.Apply() {
		debug.Logf("remove %s %q\n", node.Kind, node.DisplayName())
	}
	if node.Kind == pbx.FileReference {
		a.removeFileNode(node)
		return
	}
	a.live.Remove(node)
}
