package beacon

import "errors"

// Sentinel errors for beacon operations.
var (
	ErrInvalidKind    = errors.New("invalid signal kind")
	ErrUnknownScheme  = errors.New("unknown header scheme")
	ErrUnknownVariant = errors.New("unknown page variant")
	ErrPageOpen       = errors.New("page already open")
	ErrPageNotOpen    = errors.New("page not open")
	ErrPageClosed     = errors.New("page already closed")
)
