package layering

import "reflect"

// Clone returns a deep copy of value. Unexported struct fields are left at
// their zero value; channels and funcs are shared.
func Clone[T any](value T) T {
	copied := deepCopy(reflect.ValueOf(value))
	if out, ok := valueOf[T](copied); ok {
		return out
	}
	return value
}

func valueOf[T any](v reflect.Value) (T, bool) {
	var zero T
	if !v.IsValid() {
		return zero, false
	}
	out, ok := v.Interface().(T)
	return out, ok
}

func deepCopy(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	t := v.Type()

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(t)
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(deepCopy(v.Elem()))
		return p
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(t)
		}
		return deepCopy(v.Elem())
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(t)
		}
		m := reflect.MakeMapWithSize(t, v.Len())
		for iter := v.MapRange(); iter.Next(); {
			m.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return m
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(t)
		}
		s := reflect.MakeSlice(t, v.Len(), v.Len())
		copyElems(s, v)
		return s
	case reflect.Array:
		a := reflect.New(t).Elem()
		copyElems(a, v)
		return a
	case reflect.Struct:
		st := reflect.New(t).Elem()
		for i := range t.NumField() {
			if t.Field(i).IsExported() {
				st.Field(i).Set(deepCopy(v.Field(i)))
			}
		}
		return st
	default:
		return v
	}
}

// copyElems fills dst from src, copying element storage wholesale when the
// element type holds no references.
func copyElems(dst, src reflect.Value) {
	if flat(dst.Type().Elem().Kind()) {
		reflect.Copy(dst, src)
		return
	}
	for i := range src.Len() {
		dst.Index(i).Set(deepCopy(src.Index(i)))
	}
}

func flat(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}
