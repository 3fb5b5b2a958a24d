package stdlib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rvvm/luavm/value"
	"github.com/rvvm/luavm/vm"
)

func registerString(s *vm.State) {
	lib := newLib(s, "string")

	lib.Set("len", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		str, ok := argString(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'len' (string expected)")
		}
		return []value.Value{int64(len(str))}, nil
	}))

	lib.Set("upper", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		str, ok := argString(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'upper' (string expected)")
		}
		return []value.Value{strings.ToUpper(str)}, nil
	}))

	lib.Set("lower", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		str, ok := argString(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'lower' (string expected)")
		}
		return []value.Value{strings.ToLower(str)}, nil
	}))

	lib.Set("reverse", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		str, ok := argString(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'reverse' (string expected)")
		}
		b := []byte(str)
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		return []value.Value{string(b)}, nil
	}))

	lib.Set("rep", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		str, ok := argString(args, 0)
		n, nok := argInt(args, 1)
		if !ok || !nok {
			return nil, s.Raisef("bad argument to 'rep'")
		}
		if n <= 0 {
			return []value.Value{""}, nil
		}
		sep := ""
		if sp, ok := argString(args, 2); ok {
			sep = sp
		}
		parts := make([]string, n)
		for i := range parts {
			parts[i] = str
		}
		return []value.Value{strings.Join(parts, sep)}, nil
	}))

	lib.Set("byte", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		str, ok := argString(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'byte' (string expected)")
		}
		i := int64(1)
		if n, ok := argInt(args, 1); ok {
			i = n
		}
		j := i
		if n, ok := argInt(args, 2); ok {
			j = n
		}
		i = strIndex(i, len(str))
		j = strIndex(j, len(str))
		if i < 1 {
			i = 1
		}
		if j > int64(len(str)) {
			j = int64(len(str))
		}
		var out []value.Value
		for k := i; k <= j; k++ {
			out = append(out, int64(str[k-1]))
		}
		return out, nil
	}))

	lib.Set("char", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		b := make([]byte, len(args))
		for i := range args {
			n, ok := argInt(args, i)
			if !ok {
				return nil, s.Raisef("bad argument #%d to 'char' (number expected)", i+1)
			}
			b[i] = byte(n)
		}
		return []value.Value{string(b)}, nil
	}))

	lib.Set("sub", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		str, ok := argString(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'sub' (string expected)")
		}
		i := int64(1)
		if n, ok := argInt(args, 1); ok {
			i = n
		}
		j := int64(-1)
		if n, ok := argInt(args, 2); ok {
			j = n
		}
		i = strIndex(i, len(str))
		j = strIndex(j, len(str))
		if i < 1 {
			i = 1
		}
		if j > int64(len(str)) {
			j = int64(len(str))
		}
		if i > j {
			return []value.Value{""}, nil
		}
		return []value.Value{str[i-1 : j]}, nil
	}))

	lib.Set("format", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		format, ok := argString(args, 0)
		if !ok {
			return nil, s.Raisef("bad argument #1 to 'format' (string expected)")
		}
		out, err := luaFormat(s, format, args[1:])
		if err != nil {
			return nil, err
		}
		return []value.Value{out}, nil
	}))

	lib.Set("find", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		str, ok1 := argString(args, 0)
		pat, ok2 := argString(args, 1)
		if !ok1 || !ok2 {
			return nil, s.Raisef("bad argument to 'find'")
		}
		init := normalizeInit(args, 2, len(str))
		plain := len(args) >= 4 && value.Truthy(arg(args, 3))
		if plain || !hasSpecials(pat) {
			idx := strings.Index(str[init:], pat)
			if idx < 0 {
				return []value.Value{nil}, nil
			}
			start := init + idx
			return []value.Value{int64(start + 1), int64(start + len(pat))}, nil
		}
		start, end, caps, found := patFind(str, pat, init)
		if !found {
			return []value.Value{nil}, nil
		}
		out := []value.Value{int64(start + 1), int64(end)}
		if strings.ContainsAny(pat, "(") {
			for _, c := range caps {
				out = append(out, c)
			}
		}
		return out, nil
	}))

	lib.Set("match", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		str, ok1 := argString(args, 0)
		pat, ok2 := argString(args, 1)
		if !ok1 || !ok2 {
			return nil, s.Raisef("bad argument to 'match'")
		}
		init := normalizeInit(args, 2, len(str))
		_, _, caps, found := patFind(str, pat, init)
		if !found {
			return []value.Value{nil}, nil
		}
		out := make([]value.Value, len(caps))
		for i, c := range caps {
			out[i] = c
		}
		return out, nil
	}))

	lib.Set("gmatch", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		str, ok1 := argString(args, 0)
		pat, ok2 := argString(args, 1)
		if !ok1 || !ok2 {
			return nil, s.Raisef("bad argument to 'gmatch'")
		}
		pos := 0
		iter := vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
			for pos <= len(str) {
				start, end, caps, found := patFind(str, pat, pos)
				if !found {
					return nil, nil
				}
				if end == start {
					pos = end + 1
				} else {
					pos = end
				}
				out := make([]value.Value, len(caps))
				for i, c := range caps {
					out[i] = c
				}
				return out, nil
			}
			return nil, nil
		})
		return []value.Value{iter}, nil
	}))

	lib.Set("gsub", vm.ForeignFunc(func(s *vm.State, args []value.Value) ([]value.Value, error) {
		str, ok1 := argString(args, 0)
		pat, ok2 := argString(args, 1)
		if !ok1 || !ok2 {
			return nil, s.Raisef("bad argument to 'gsub'")
		}
		repl := arg(args, 2)
		maxN := -1
		if n, ok := argInt(args, 3); ok {
			maxN = int(n)
		}
		var b strings.Builder
		pos := 0
		count := 0
		for pos <= len(str) {
			if maxN >= 0 && count >= maxN {
				break
			}
			start, end, caps, found := patFind(str, pat, pos)
			if !found {
				break
			}
			b.WriteString(str[pos:start])
			rep, err := gsubReplace(s, str[start:end], caps, repl)
			if err != nil {
				return nil, err
			}
			b.WriteString(rep)
			count++
			if end == start {
				if start < len(str) {
					b.WriteByte(str[start])
				}
				pos = end + 1
			} else {
				pos = end
			}
		}
		if pos < len(str) {
			b.WriteString(str[pos:])
		}
		return []value.Value{b.String(), int64(count)}, nil
	}))
}

func strIndex(i int64, length int) int64 {
	if i >= 0 {
		return i
	}
	if -i > int64(length) {
		return 0
	}
	return int64(length) + i + 1
}

func normalizeInit(args []value.Value, idx, length int) int {
	n, ok := argInt(args, idx)
	if !ok {
		return 0
	}
	i := strIndex(n, length)
	if i < 1 {
		i = 1
	}
	if i > int64(length)+1 {
		i = int64(length) + 1
	}
	return int(i) - 1
}

func hasSpecials(pat string) bool {
	return strings.ContainsAny(pat, "^$*+?.([%-")
}

func gsubReplace(s *vm.State, whole string, caps []any, repl value.Value) (string, error) {
	switch r := repl.(type) {
	case string:
		var b strings.Builder
		for i := 0; i < len(r); i++ {
			if r[i] == '%' && i+1 < len(r) {
				i++
				c := r[i]
				switch {
				case c == '%':
					b.WriteByte('%')
				case c == '0':
					b.WriteString(whole)
				case c >= '1' && c <= '9':
					idx := int(c - '1')
					if idx < len(caps) {
						b.WriteString(fmt.Sprint(caps[idx]))
					}
				default:
					b.WriteByte(c)
				}
			} else {
				b.WriteByte(r[i])
			}
		}
		return b.String(), nil
	case *value.Table:
		key := caps[0]
		v := r.Get(key)
		if v == nil || v == false {
			return whole, nil
		}
		str, _ := value.ToStringValue(v)
		return str, nil
	default:
		capVals := make([]value.Value, len(caps))
		for i, c := range caps {
			capVals[i] = c
		}
		res, err := s.CallSync(repl, capVals)
		if err != nil {
			return "", err
		}
		if len(res) == 0 || res[0] == nil || res[0] == false {
			return whole, nil
		}
		str, _ := value.ToStringValue(res[0])
		return str, nil
	}
}

// luaFormat implements string.format's subset of C printf directives
// plus Lua's %q and %s (applied via tostring semantics).
func luaFormat(s *vm.State, format string, args []value.Value) (string, error) {
	var b strings.Builder
	ai := 0
	next := func() value.Value {
		if ai < len(args) {
			v := args[ai]
			ai++
			return v
		}
		return nil
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(format) && strings.ContainsRune("-+ #0123456789.", rune(format[j])) {
			j++
		}
		if j >= len(format) {
			return "", s.Raisef("invalid format string to 'format'")
		}
		spec := format[i : j+1]
		verb := format[j]
		i = j
		switch verb {
		case '%':
			b.WriteByte('%')
		case 'd', 'i':
			n, _ := value.ToInt(next())
			b.WriteString(fmt.Sprintf(strings.Replace(spec, string(verb), "d", 1), n))
		case 'u':
			n, _ := value.ToInt(next())
			b.WriteString(fmt.Sprintf(strings.Replace(spec, "u", "d", 1), n))
		case 'x', 'X', 'o':
			n, _ := value.ToInt(next())
			b.WriteString(fmt.Sprintf(spec, n))
		case 'c':
			n, _ := value.ToInt(next())
			b.WriteByte(byte(n))
		case 'f', 'F', 'e', 'E', 'g', 'G':
			n, _ := value.ToFloat(next())
			b.WriteString(fmt.Sprintf(spec, n))
		case 's':
			v := next()
			str := value.ToDisplayString(v)
			b.WriteString(fmt.Sprintf(spec, str))
		case 'q':
			v := next()
			b.WriteString(quoteLua(v))
		default:
			return "", s.Raisef("invalid conversion '%%%c' to 'format'", verb)
		}
	}
	return b.String(), nil
}

func quoteLua(v value.Value) string {
	str, ok := v.(string)
	if !ok {
		return value.ToDisplayString(v)
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			if c < 32 || c == 127 {
				b.WriteString("\\")
				b.WriteString(strconv.Itoa(int(c)))
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
