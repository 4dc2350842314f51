package rob

import "errors"

// ErrInvariant marks a ROB state that should never happen in a correctly
// wired pipeline — a dataflow bug upstream, not a recoverable condition.
var ErrInvariant = errors.New("rob: invariant violation")
