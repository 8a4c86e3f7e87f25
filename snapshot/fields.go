package snapshot

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
)

type field struct {
	index int
	key   string
}

// fields returns the observable fields of t: exported, not tagged json:"-",
// and not declared as injected dependencies.
func (b *Bridge) fields(t reflect.Type) []field {
	out := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		if b.registry.IsDependency(t, sf.Name) {
			continue
		}
		key, _, _ := strings.Cut(tag, ",")
		if key == "" {
			key = sf.Name
		}
		out = append(out, field{index: i, key: key})
	}
	return out
}

func structValue(instance any) (reflect.Value, error) {
	rv := reflect.ValueOf(instance)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, ErrInvalidInstance
	}
	return rv.Elem(), nil
}

// read builds the plain snapshot of v.
func (b *Bridge) read(v reflect.Value) (Snapshot, error) {
	t := v.Type()
	out := Snapshot{}
	for _, f := range b.fields(t) {
		plain, err := toPlain(v.Field(f.index).Interface())
		if err != nil {
			return nil, FieldError{Type: t.String(), Key: f.key, Err: err}
		}
		out[f.key] = plain
	}
	return out, nil
}

// decode converts s into a scratch value of v's type. Observable fields
// missing from s (or null in s) stay zero. v itself is not touched.
func (b *Bridge) decode(v reflect.Value, s Snapshot) (reflect.Value, error) {
	t := v.Type()
	fields := b.fields(t)

	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.key] = struct{}{}
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := known[k]; !ok {
			return reflect.Value{}, UnknownFieldError{Type: t.String(), Key: k}
		}
	}

	scratch := reflect.New(t).Elem()
	for _, f := range fields {
		raw, ok := s[f.key]
		if !ok || raw == nil {
			continue
		}
		data, err := json.Marshal(raw)
		if err != nil {
			return reflect.Value{}, FieldError{Type: t.String(), Key: f.key, Err: err}
		}
		target := reflect.New(t.Field(f.index).Type)
		if err := unmarshalPlain(data, target.Interface()); err != nil {
			return reflect.Value{}, FieldError{Type: t.String(), Key: f.key, Err: err}
		}
		scratch.Field(f.index).Set(target.Elem())
	}
	return scratch, nil
}

// assign copies onto v the observable fields of scratch whose plain value
// differs from v's. Fields with an equal plain value keep their current Go
// value, pointer identity and dynamic type included.
func (b *Bridge) assign(v, scratch reflect.Value) {
	for _, f := range b.fields(v.Type()) {
		dst, src := v.Field(f.index), scratch.Field(f.index)
		if samePlain(dst.Interface(), src.Interface()) {
			continue
		}
		dst.Set(src)
	}
}

func samePlain(a, b any) bool {
	pa, err := toPlain(a)
	if err != nil {
		return false
	}
	pb, err := toPlain(b)
	if err != nil {
		return false
	}
	return cmp.Equal(pa, pb)
}

func toPlain(x any) (any, error) {
	data, err := json.Marshal(x)
	if err != nil {
		return nil, err
	}
	var out any
	if err := unmarshalPlain(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// unmarshalPlain is json.Unmarshal with numbers kept as json.Number.
func unmarshalPlain(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

// clone deep-copies a plain value tree.
func clone(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = clone(e)
		}
		return out
	default:
		return v
	}
}
