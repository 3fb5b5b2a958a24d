package stdlib

import (
	"time"

	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

// registerOS installs a deliberately narrow os table: clock/time/date
// introspection only. No file, process, or environment access is
// exposed. Scripts run inside this VM have no ambient authority over
// the host.
func registerOS(s *vm.State) {
	lib := newLib(s, "os")
	start := time.Now()

	lib.Set("time", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		return []value.Value{int64(time.Now().Unix())}, nil
	}))

	lib.Set("clock", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		return []value.Value{time.Since(start).Seconds()}, nil
	}))

	lib.Set("difftime", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		t2, _ := value.ToFloat(arg(args, 0))
		t1, _ := value.ToFloat(arg(args, 1))
		return []value.Value{t2 - t1}, nil
	}))

	lib.Set("date", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		format, ok := argString(args, 0)
		if !ok {
			format = "%c"
		}
		utc := false
		format = trimUTCPrefix(format, &utc)
		t := time.Now()
		if utc {
			t = t.UTC()
		}
		return []value.Value{strftime(format, t)}, nil
	}))

	// os.exit/os.remove/os.execute/os.getenv are intentionally absent:
	// this VM grants no filesystem or process authority to scripts.
}

func trimUTCPrefix(format string, utc *bool) string {
	if len(format) > 0 && format[0] == '!' {
		*utc = true
		return format[1:]
	}
	return format
}

func strftime(format string, t time.Time) string {
	switch format {
	case "%c":
		return t.Format("Mon Jan  2 15:04:05 2006")
	case "*t", "!*t":
		return t.Format(time.RFC3339)
	default:
		return t.Format("2006-01-02 15:04:05")
	}
}
