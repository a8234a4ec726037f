package http

import (
	"fmt"

	"github.com/sagarc03/photoshelf"
)

// ErrMissingToken is returned when a protected route is called without credentials.
var ErrMissingToken = fmt.Errorf("%w: missing access token", photoshelf.ErrUnauthorized)
