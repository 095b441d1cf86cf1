package pbx

import "path"

// Node is a typed record in the live graph. Ownership is tree shaped: every
// node except the root is held by exactly one owning parent slot. Back
// reference slots point across the tree without owning.
type Node struct {
	Kind Kind
	UUID string

	Attrs map[string]*Value

	// Cols holds the ordered owned-child collections, Refs the single-node
	// slots (owned or back-referencing per the kind's schema).
	Cols map[string][]*Node
	Refs map[string]*Node

	Parent     *Node
	ParentSlot string
}

func (n *Node) Attr(name string) *Value {
	if n == nil {
		return nil
	}
	return n.Attrs[name]
}

func (n *Node) SetAttr(name string, v *Value) {
	if v == nil {
		delete(n.Attrs, name)
		return
	}
	n.Attrs[name] = v
}

func (n *Node) Children(slot string) []*Node {
	if n == nil {
		return nil
	}
	return n.Cols[slot]
}

func (n *Node) Ref(slot string) *Node {
	if n == nil {
		return nil
	}
	return n.Refs[slot]
}

func (n *Node) attrString(name string) string {
	v := n.Attr(name)
	if v == nil || v.Kind != ScalarValue {
		return ""
	}
	return v.Scalar
}

// DisplayName addresses the node in slash-joined paths. Groups and files go
// by name, falling back to the basename of their on-disk path; build files
// borrow their file reference's name; phases and configurations go by name
// with per-kind defaults.
func (n *Node) DisplayName() string {
	if n == nil {
		return ""
	}
	switch {
	case n.Kind == BuildFile:
		if fr := n.Ref("fileRef"); fr != nil {
			return fr.DisplayName()
		}
		return n.Kind.String()
	case n.Kind == TargetDependency:
		if name := n.attrString("name"); name != "" {
			return name
		}
		if t := n.Ref("target"); t != nil {
			return t.DisplayName()
		}
		return n.Kind.String()
	case n.Kind == SwiftPackageProductDependency:
		if name := n.attrString("productName"); name != "" {
			return name
		}
		return n.Kind.String()
	case n.Kind == RemoteSwiftPackageReference:
		if url := n.attrString("repositoryURL"); url != "" {
			return url
		}
		return n.Kind.String()
	case n.Kind == ContainerItemProxy:
		if info := n.attrString("remoteInfo"); info != "" {
			return info
		}
		return n.Kind.String()
	case n.Kind == ProjectReference:
		if pr := n.Ref("ProjectRef"); pr != nil {
			return pr.DisplayName()
		}
		return n.Kind.String()
	case n.Kind.IsBuildPhase():
		if name := n.attrString("name"); name != "" {
			return name
		}
		return phaseDefaultNames[n.Kind]
	default:
		if name := n.attrString("name"); name != "" {
			return name
		}
		if p := n.attrString("path"); p != "" {
			return path.Base(p)
		}
		return n.Kind.String()
	}
}

// Path is the slash-joined display-name address from the main group. The
// main group itself has the empty path.
func (n *Node) Path() string {
	if n == nil || n.Parent == nil {
		return ""
	}
	if n.Parent.Kind == Project {
		return ""
	}
	return JoinPath(n.Parent.Path(), n.DisplayName())
}

// FindChild returns the member of the named collection whose display name is
// name, or nil.
func (n *Node) FindChild(slot, name string) *Node {
	for _, c := range n.Children(slot) {
		if c.DisplayName() == name {
			return c
		}
	}
	return nil
}

func (n *Node) visit(f func(*Node)) {
	f(n)
	for _, slot := range CollectionSlots(n.Kind) {
		for _, c := range n.Cols[slot] {
			c.visit(f)
		}
	}
	for _, slot := range RefSlots(n.Kind) {
		spec := SchemaOf(n.Kind).Refs[slot]
		if !spec.Owned {
			continue
		}
		if r := n.Refs[slot]; r != nil {
			r.visit(f)
		}
	}
}
