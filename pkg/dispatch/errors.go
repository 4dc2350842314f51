package dispatch

import "errors"

// ErrUnmappedType is returned when a decoded instruction's type carries no
// entry in the static dispatch table.
var ErrUnmappedType = errors.New("dispatch: unmapped instruction type")
