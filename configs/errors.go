package configs

import "errors"

// ErrValueNotFound is returned by AssignFirst when no configured root
// has a value at the requested CUE path.
var ErrValueNotFound = errors.New("configs: value not found")
