package gate

import "errors"

// ErrForbidden is returned by Gate.Authorize when the subject lacks the permission.
var ErrForbidden = errors.New("forbidden")
