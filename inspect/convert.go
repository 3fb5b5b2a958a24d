// Package inspect bridges live VM state into a read-only Starlark
// console: snapshots and drained events are converted to
// starlark.Value trees so a developer can poke at them with Starlark
// expressions. It never parses or executes Lua; that stays the
// compiler/vm packages' job.
package inspect

import (
	"fmt"
	"reflect"

	"github.com/reusee/starlarkutil"
	"go.starlark.net/starlark"

	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

// toStarlarkValue mirrors a Go value into its closest Starlark
// equivalent, falling back to reflection for structs/slices/maps the
// vm package exposes (Snapshot, FrameSnapshot, Event, value.Table...).
func toStarlarkValue(v any) starlark.Value {
	switch v := v.(type) {

	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(v)
	case []byte:
		return starlark.Bytes(v)
	case string:
		return starlark.String(v)

	case int:
		return starlark.MakeInt(v)
	case int64:
		return starlark.MakeInt64(v)
	case float64:
		return starlark.Float(v)
	case uint64:
		return starlark.MakeUint64(v)

	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			elems[i] = toStarlarkValue(e)
		}
		return starlark.NewList(elems)

	case map[string]any:
		d := starlark.NewDict(len(v))
		for k, val := range v {
			d.SetKey(starlark.String(k), toStarlarkValue(val))
		}
		return d

	case *value.Table:
		d := starlark.NewDict(len(v.ArrayPart()) + len(v.HashKeys()))
		for i, e := range v.ArrayPart() {
			d.SetKey(starlark.MakeInt(i+1), toStarlarkValue(e))
		}
		for _, k := range v.HashKeys() {
			d.SetKey(toStarlarkValue(k), toStarlarkValue(v.Get(k)))
		}
		return d
	case *value.Closure:
		return starlark.String(fmt.Sprintf("<closure %s>", v.Label))
	case *vm.Coroutine:
		return starlark.String(fmt.Sprintf("<coroutine %s: %s>", v.ID(), v.Status()))
	case value.List:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			elems[i] = toStarlarkValue(e)
		}
		return starlark.NewList(elems)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {

	case reflect.Bool:
		return starlark.Bool(rv.Bool())
	case reflect.String:
		return starlark.String(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return starlark.MakeUint64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return starlark.Float(rv.Float())

	case reflect.Slice, reflect.Array:
		n := rv.Len()
		elems := make([]starlark.Value, n)
		for i := range n {
			elems[i] = toStarlarkValue(rv.Index(i).Interface())
		}
		return starlark.NewList(elems)

	case reflect.Map:
		d := starlark.NewDict(rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			d.SetKey(toStarlarkValue(iter.Key().Interface()), toStarlarkValue(iter.Value().Interface()))
		}
		return d

	case reflect.Struct:
		typ := rv.Type()
		d := starlark.NewDict(typ.NumField())
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			if !f.IsExported() {
				continue
			}
			d.SetKey(starlark.String(f.Name), toStarlarkValue(rv.Field(i).Interface()))
		}
		return d

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return starlark.None
		}
		return toStarlarkValue(rv.Elem().Interface())

	case reflect.Func:
		return starlarkutil.MakeFunc("", rv.Interface())
	}

	panic(fmt.Errorf("inspect: unsupported type for starlark conversion: %T", v))
}
