// Package merge applies a hierarchical change description onto a live
// project graph, three-way merging leaf attributes and resolving ambiguous
// cases through a pluggable conflict policy.
package merge

import (
	"fmt"

	"github.com/pbxkit/pbxmerge/change"
	"github.com/pbxkit/pbxmerge/debug"
	"github.com/pbxkit/pbxmerge/pbx"
)

// Applier owns one merge run. The live graph is mutated in place; the base
// graph is only consulted, never written.
type Applier struct {
	live *pbx.Graph
	base *pbx.Graph
	cfg  Config

	resolver Resolver
	filter   func(HierarchyOp) bool

	// portalHint pins container portal resolution to a just-resolved
	// subproject file while its product group materializes.
	portalHint *pbx.Node

	diags []string
}

// Apply re-applies chg onto live, consulting base to rebuild state the
// change assumes. It returns the non-fatal diagnostics gathered along the
// way; on error the live graph may be partially mutated.
//
// The main group subtree is fully materialized before any other top-level
// field, since later changes may reference nodes the hierarchy pass creates.
func Apply(live *pbx.Graph, chg *change.Change, base *pbx.Graph, cfg Config, opts ...ApplyOption) ([]string, error) {
	a := &Applier{live: live, base: base, cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.resolver == nil || !cfg.Interactive {
		a.resolver = FailResolver{}
	}
	if err := a.run(chg); err != nil {
		return a.diags, err
	}
	return a.diags, nil
}

func (a *Applier) run(chg *change.Change) error {
	if mg := chg.Field("mainGroup"); mg != nil {
		if err := a.applyHierarchy(mg); err != nil {
			return err
		}
	}
	root := a.live.Root
	for _, f := range chg.Fields {
		if f.Name == "mainGroup" {
			continue
		}
		if debug.Apply() {
			debug.Logf("apply top-level field %q\n", f.Name)
		}
		if err := a.applyChange(nodeComponent(root), f.Name, f.Change, ""); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

func (a *Applier) diag(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if debug.Apply() {
		debug.Logf("diagnostic: %s\n", msg)
	}
	a.diags = append(a.diags, msg)
}

func (a *Applier) allowOp(op HierarchyOp) bool {
	if a.filter == nil {
		return true
	}
	return a.filter(op)
}
