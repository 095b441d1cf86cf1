package merge

import "fmt"

// Option is one named way out of a conflict. Apply performs the resolution
// against the live graph.
type Option struct {
	Label string
	Apply func() error
}

// Conflict is a recoverable ambiguity: a description plus an ordered set of
// resolutions. The abort choice is implicit; resolvers surface it by
// returning ErrAborted.
type Conflict struct {
	Description string
	Options     []Option
}

// Resolver is the single funnel every ambiguous case goes through. Resolve
// picks exactly one option and runs it, or returns an error aborting the
// merge. It is called synchronously; the walk continues when it returns.
type Resolver interface {
	Resolve(c *Conflict) error
}

// FailResolver promotes every conflict to a fatal error. It is what a
// non-interactive merge runs with.
type FailResolver struct{}

func (FailResolver) Resolve(c *Conflict) error {
	return mergeErrf("conflict: %s", c.Description)
}

// OptionFunc adapts a choose-by-label function into a Resolver, running the
// chosen option. Unknown labels abort.
type OptionFunc func(c *Conflict) (string, error)

func (f OptionFunc) Resolve(c *Conflict) error {
	label, err := f(c)
	if err != nil {
		return err
	}
	for i := range c.Options {
		if c.Options[i].Label == label {
			return c.Options[i].Apply()
		}
	}
	return fmt.Errorf("%w: no resolution %q for conflict: %s", ErrMerge, label, c.Description)
}

func (a *Applier) resolve(desc string, opts ...Option) error {
	return a.resolver.Resolve(&Conflict{Description: desc, Options: opts})
}
