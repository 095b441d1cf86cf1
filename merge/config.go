package merge

// Config is passed explicitly through every entry point; there is no
// process-wide state.
type Config struct {
	// AllowDuplicates skips identity-based duplicate checks when adding
	// groups, files, and proxies.
	AllowDuplicates bool

	// Interactive routes conflicts to the configured resolver instead of
	// failing immediately.
	Interactive bool
}

// HierarchyOp describes one classified group/file hierarchy operation, for
// selective application.
type HierarchyOp struct {
	// Op is one of add-group, add-file, move-file, remove-file,
	// remove-group, diff.
	Op string
	// Path addresses the operation's subject from the main group.
	Path string
	// Kind is the subject's kind tag where known.
	Kind string
}

type ApplyOption func(*Applier)

// WithResolver routes conflicts through r. Without it, interactive merges
// have no funnel and fall back to failing.
func WithResolver(r Resolver) ApplyOption {
	return func(a *Applier) { a.resolver = r }
}

// WithHierarchyFilter restricts the materializer to operations f accepts.
func WithHierarchyFilter(f func(HierarchyOp) bool) ApplyOption {
	return func(a *Applier) { a.filter = f }
}
