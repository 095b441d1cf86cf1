package merge

import (
	"errors"
	"fmt"
)

var (
	// ErrMerge is the fatal error root: structural contradictions the
	// engine cannot recover from. Everything wrapping it aborts the merge.
	ErrMerge = errors.New("merge error")

	// ErrAborted is the implicit abort choice of every conflict.
	ErrAborted = fmt.Errorf("%w: aborted", ErrMerge)

	// ErrAmbiguousMove is raised when added and removed file entries
	// sharing one key do not pair one to one.
	ErrAmbiguousMove = fmt.Errorf("%w: cannot deduce new vs. moved file", ErrMerge)
)

func mergeErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMerge, fmt.Sprintf(format, args...))
}
