package logging

import "github.com/reusee/dscope"

// Module provides Logger, Writer, NewSpan and any other logs-package
// dependency to a dscope scope by reflection over its methods.
type Module struct {
	dscope.Module
}
