package block

import "errors"

// ErrTooLarge indicates RoundRequest overflowed while rounding a request up
// to a storable, aligned size.
var ErrTooLarge = errors.New("block: requested size too large")
