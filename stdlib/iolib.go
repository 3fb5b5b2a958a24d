package stdlib

import (
	"fmt"
	"strings"

	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

// registerIO installs a sandboxed io table holding only io.write, which
// writes its arguments straight to the process's standard output (not
// through the VM's print hook); there is no file or stdin access,
// matching the no-filesystem-access sandbox (see registerOS).
func registerIO(s *vm.State) {
	lib := newLib(s, "io")

	lib.Set("write", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		var b strings.Builder
		for _, a := range args {
			str, ok := value.ToStringValue(a)
			if !ok {
				return nil, s.Raisef("bad argument to 'write' (string expected)")
			}
			b.WriteString(str)
		}
		fmt.Print(b.String())
		return nil, nil
	}))

	// io.read/io.open are intentionally absent: no filesystem or
	// interactive stdin is exposed to sandboxed scripts.
}
