package merge

import (
	"github.com/pbxkit/pbxmerge/debug"
	"github.com/pbxkit/pbxmerge/pbx"
)

// attachment describes where a newly added node of one kind lands under a
// parent of another: an owned collection append, an owned single slot, or a
// back-reference slot that is looked up rather than created.
type attachment struct {
	slot       string
	collection bool
	lookup     bool
}

// attachFor is the dispatch table keyed by (parent kind, child kind).
// Unsupported pairs are fatal.
func attachFor(parent pbx.Kind, child pbx.Kind) (attachment, bool) {
	switch {
	case parent == pbx.Project && child.IsTarget():
		return attachment{slot: "targets", collection: true}, true
	case parent == pbx.Project && child == pbx.RemoteSwiftPackageReference:
		return attachment{slot: "packageReferences", collection: true}, true
	case parent == pbx.Project && child == pbx.ProjectReference:
		return attachment{slot: "projectReferences", collection: true}, true
	case parent == pbx.Project && child == pbx.ConfigurationList:
		return attachment{slot: "buildConfigurationList"}, true
	case parent.IsGroup() && (child.IsGroup() || child == pbx.FileReference || child == pbx.ReferenceProxy):
		return attachment{slot: "children", collection: true}, true
	case parent.IsTarget() && child.IsBuildPhase():
		return attachment{slot: "buildPhases", collection: true}, true
	case parent.IsTarget() && child == pbx.ConfigurationList:
		return attachment{slot: "buildConfigurationList"}, true
	case parent.IsTarget() && child == pbx.TargetDependency:
		return attachment{slot: "dependencies", collection: true}, true
	case parent == pbx.NativeTarget && child == pbx.SwiftPackageProductDependency:
		return attachment{slot: "packageProductDependencies", collection: true}, true
	case parent == pbx.NativeTarget && child == pbx.FileReference:
		return attachment{slot: "productReference", lookup: true}, true
	case parent.IsBuildPhase() && child == pbx.BuildFile:
		return attachment{slot: "files", collection: true}, true
	case parent == pbx.ConfigurationList && child == pbx.BuildConfiguration:
		return attachment{slot: "buildConfigurations", collection: true}, true
	case parent == pbx.BuildFile && (child == pbx.FileReference || child == pbx.ReferenceProxy || child == pbx.VariantGroup):
		return attachment{slot: "fileRef", lookup: true}, true
	case parent == pbx.BuildFile && child == pbx.SwiftPackageProductDependency:
		return attachment{slot: "productRef", lookup: true}, true
	case parent == pbx.BuildConfiguration && child == pbx.FileReference:
		return attachment{slot: "baseConfigurationReference", lookup: true}, true
	case parent == pbx.TargetDependency && child == pbx.ContainerItemProxy:
		return attachment{slot: "targetProxy"}, true
	case parent == pbx.TargetDependency && child.IsTarget():
		return attachment{slot: "target", lookup: true}, true
	case parent == pbx.ReferenceProxy && child == pbx.ContainerItemProxy:
		return attachment{slot: "remoteRef"}, true
	case parent == pbx.SwiftPackageProductDependency && child == pbx.RemoteSwiftPackageReference:
		return attachment{slot: "package", lookup: true}, true
	default:
		return attachment{}, false
	}
}

// construct attaches a newly added snapshot under parent, creating or
// looking up the node per the (parent kind, child kind) rules.
func (a *Applier) construct(parent component, snap *pbx.Snapshot, path string) (*pbx.Node, error) {
	owner := parent.node
	var at attachment
	if parent.isList() {
		owner = parent.owner
		at = attachment{slot: parent.slot, collection: true}
	} else {
		if owner == nil {
			return nil, mergeErrf("no parent to attach %s to at %q", snap.Kind, path)
		}
		var ok bool
		at, ok = attachFor(owner.Kind, snap.Kind)
		if !ok {
			return nil, mergeErrf("unsupported addition of %s to %s", snap.Kind, owner.Kind)
		}
	}
	if debug.Construct() {
		debug.Logf("construct %s under %s.%s\n", snap.Kind, owner.Kind, at.slot)
	}

	if at.lookup {
		target := a.lookupBackref(owner, at.slot, snap)
		if target == nil && snap.Kind.IsTarget() {
			// dependencies may land before their target: keep a
			// placeholder record carrying the name
			return a.placeholderDependencyTarget(owner, snap)
		}
		if target == nil {
			return nil, nil
		}
		if err := a.live.SetRef(owner, at.slot, target); err != nil {
			return nil, err
		}
		return target, nil
	}

	if snap.Kind == pbx.ProjectReference {
		return a.constructProjectReference(owner, snap)
	}
	if !a.cfg.AllowDuplicates && at.collection && at.slot == "children" {
		if dup := duplicateChild(owner, snap); dup != nil {
			if debug.Construct() {
				debug.Logf("skip duplicate %q in %s\n", snap.DisplayName(), owner.Kind)
			}
			return dup, nil
		}
	}
	n, err := a.materializeSnapshot(snap)
	if err != nil {
		return nil, err
	}
	if at.collection {
		if err := a.live.Attach(owner, at.slot, n); err != nil {
			return nil, err
		}
		return n, nil
	}
	if err := a.live.SetRef(owner, at.slot, n); err != nil {
		return nil, err
	}
	return n, nil
}

// placeholderDependencyTarget handles a target dependency whose target is
// not in the project: the dependency keeps the target's name so a later
// merge can bind it.
func (a *Applier) placeholderDependencyTarget(owner *pbx.Node, snap *pbx.Snapshot) (*pbx.Node, error) {
	if owner.Kind != pbx.TargetDependency {
		return nil, nil
	}
	if owner.Attr("name") == nil {
		owner.SetAttr("name", pbx.Scalar(snap.DisplayName()))
	}
	a.diag("no target named %q, keeping the dependency as a placeholder", snap.DisplayName())
	return nil, nil
}

// materializeSnapshot turns a snapshot into a live node: owned collections
// and owned slots recurse, back-reference slots resolve against the live
// graph.
func (a *Applier) materializeSnapshot(snap *pbx.Snapshot) (*pbx.Node, error) {
	n := a.live.NewNode(snap.Kind)
	copyLeafAttrs(n, snap)
	sch := pbx.SchemaOf(snap.Kind)
	for _, slot := range pbx.CollectionSlots(snap.Kind) {
		for _, cs := range snap.Slots[slot] {
			c, err := a.materializeSnapshot(cs)
			if err != nil {
				return nil, err
			}
			if err := a.live.Attach(n, slot, c); err != nil {
				return nil, err
			}
		}
	}
	for _, slot := range pbx.RefSlots(snap.Kind) {
		rs := snap.Refs[slot]
		if rs == nil {
			continue
		}
		if sch.Refs[slot].Owned {
			r, err := a.materializeSnapshot(rs)
			if err != nil {
				return nil, err
			}
			if err := a.live.SetRef(n, slot, r); err != nil {
				return nil, err
			}
			continue
		}
		target := a.lookupBackref(n, slot, rs)
		if target == nil {
			if n.Kind == pbx.TargetDependency && slot == "target" {
				if _, err := a.placeholderDependencyTarget(n, rs); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := a.live.SetRef(n, slot, target); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// lookupBackref finds the live node a back-reference slot should point at.
// The referenced node must already exist; these slots are never satisfied by
// blind creation.
func (a *Applier) lookupBackref(owner *pbx.Node, slot string, refSnap *pbx.Snapshot) *pbx.Node {
	if slot == "containerPortal" {
		return a.findContainerPortal(refSnap)
	}
	switch refSnap.Kind {
	case pbx.FileReference:
		target := a.live.FindFileByDiskPath(attrScalar(refSnap.Attr("path")))
		if target == nil {
			a.diag("no file at %q for %s.%s", attrScalar(refSnap.Attr("path")), owner.Kind, slot)
		}
		return target
	case pbx.VariantGroup:
		target := a.live.FindVariantGroupByName(refSnap.DisplayName())
		if target == nil {
			a.diag("no variant group named %q for %s.%s", refSnap.DisplayName(), owner.Kind, slot)
		}
		return target
	case pbx.ReferenceProxy:
		return a.findReferenceProxy(refSnap)
	case pbx.NativeTarget, pbx.AggregateTarget:
		return a.live.FindTargetByName(refSnap.DisplayName())
	case pbx.RemoteSwiftPackageReference:
		target := a.live.FindPackageByURL(attrScalar(refSnap.Attr("repositoryURL")))
		if target == nil {
			a.diag("no package reference for %q", attrScalar(refSnap.Attr("repositoryURL")))
		}
		return target
	case pbx.SwiftPackageProductDependency:
		target := a.findPackageProduct(attrScalar(refSnap.Attr("productName")))
		if target == nil {
			a.diag("no package product named %q for %s.%s", attrScalar(refSnap.Attr("productName")), owner.Kind, slot)
		}
		return target
	case pbx.Project:
		return a.live.Root
	default:
		return nil
	}
}

// findReferenceProxy matches a remote reference descriptor among the product
// groups of the project's subproject references, preferring a candidate no
// build file refers to yet. Candidates come in declaration order; on a tie
// the first wins, with a note.
func (a *Applier) findReferenceProxy(refSnap *pbx.Snapshot) *pbx.Node {
	gid := attrScalar(refSnap.Refs["remoteRef"].Attr("remoteGlobalIDString"))
	info := attrScalar(refSnap.Refs["remoteRef"].Attr("remoteInfo"))
	var candidates []*pbx.Node
	for _, pr := range a.live.ProjectReferences() {
		pg := pr.Ref("ProductGroup")
		for _, c := range pg.Children("children") {
			if c.Kind != pbx.ReferenceProxy {
				continue
			}
			rr := c.Ref("remoteRef")
			if gid != "" && attrScalar(rr.Attr("remoteGlobalIDString")) != gid {
				continue
			}
			if gid == "" && attrScalar(rr.Attr("remoteInfo")) != info {
				continue
			}
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		a.diag("no reference proxy matches remote id %q", gid)
		return nil
	}
	var free []*pbx.Node
	for _, c := range candidates {
		if len(a.live.BuildFilesReferencing(c)) == 0 {
			free = append(free, c)
		}
	}
	if len(free) > 0 {
		candidates = free
	}
	if len(candidates) > 1 {
		a.diag("more than one reference proxy matches remote id %q, using the first", gid)
	}
	return candidates[0]
}

// findContainerPortal locates the container a proxy points into: the project
// itself or a subproject's file reference. Multiple matches take the first,
// with a note.
func (a *Applier) findContainerPortal(refSnap *pbx.Snapshot) *pbx.Node {
	if a.portalHint != nil {
		return a.portalHint
	}
	if refSnap.Kind == pbx.Project {
		return a.live.Root
	}
	diskPath := attrScalar(refSnap.Attr("path"))
	var candidates []*pbx.Node
	a.live.Walk(func(n *pbx.Node) {
		if n.Kind == pbx.FileReference && attrScalar(n.Attr("path")) == diskPath {
			candidates = append(candidates, n)
		}
	})
	switch {
	case len(candidates) == 0:
		a.diag("no container portal found for %q", diskPath)
		return nil
	case len(candidates) > 1:
		a.diag("more than one container portal candidate for %q, using the first", diskPath)
	}
	return candidates[0]
}

func (a *Applier) findPackageProduct(productName string) *pbx.Node {
	for _, t := range a.live.Root.Children("targets") {
		for _, d := range t.Children("packageProductDependencies") {
			if attrScalar(d.Attr("productName")) == productName {
				return d
			}
		}
	}
	return nil
}

// constructProjectReference adds a subproject reference record. The embedded
// remote container ids inside its product group resolve to the identity of
// the subproject's file node, found by on-disk path, before the rest applies
// as ordinary attributes.
func (a *Applier) constructProjectReference(owner *pbx.Node, snap *pbx.Snapshot) (*pbx.Node, error) {
	projectFile := a.live.FindFileByDiskPath(attrScalar(snap.Refs["ProjectRef"].Attr("path")))
	if projectFile == nil {
		a.diag("no subproject file at %q, skipping project reference",
			attrScalar(snap.Refs["ProjectRef"].Attr("path")))
		return nil, nil
	}
	n := a.live.NewNode(pbx.ProjectReference)
	if err := a.live.SetRef(n, "ProjectRef", projectFile); err != nil {
		return nil, err
	}
	a.portalHint = projectFile
	defer func() { a.portalHint = nil }()
	if pg := snap.Refs["ProductGroup"]; pg != nil {
		g, err := a.materializeSnapshot(pg)
		if err != nil {
			return nil, err
		}
		if err := a.live.SetRef(n, "ProductGroup", g); err != nil {
			return nil, err
		}
	}
	if err := a.live.Attach(owner, "projectReferences", n); err != nil {
		return nil, err
	}
	return n, nil
}
