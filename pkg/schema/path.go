package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// resolve walks a dotted path from v. Each segment is a zero-argument (or
// variadic-only) method, a struct field, or a string map key, tried in
// that order.
func resolve(v any, path string) (any, error) {
	cur := v
	if path == "" {
		return cur, nil
	}

	for seg := range strings.SplitSeq(path, ".") {
		next, err := step(cur, seg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q in %q", err, seg, path)
		}
		cur = next
	}
	return cur, nil
}

func step(cur any, seg string) (any, error) {
	if cur == nil {
		return nil, ErrPathNotFound
	}

	rv := reflect.ValueOf(cur)
	if m := rv.MethodByName(seg); m.IsValid() && callable(m.Type()) {
		if isNilPointer(rv) {
			return nil, ErrPathNotFound
		}
		return m.Call(nil)[0].Interface(), nil
	}

	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, ErrPathNotFound
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByName(seg)
		if !f.IsValid() || !f.CanInterface() {
			return nil, ErrPathNotFound
		}
		return f.Interface(), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, ErrPathNotFound
		}
		val := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, ErrPathNotFound
		}
		return val.Interface(), nil
	default:
		return nil, ErrPathNotFound
	}
}

func callable(t reflect.Type) bool {
	if t.NumOut() == 0 {
		return false
	}
	return t.NumIn() == 0 || (t.NumIn() == 1 && t.IsVariadic())
}

func isNilPointer(rv reflect.Value) bool {
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// splitPath separates the argument name from the accessor path.
func splitPath(path string) (arg, rest string) {
	arg, rest, _ = strings.Cut(path, ".")
	return arg, rest
}
