package awsv2

import (
	"encoding/base64"
	"io"
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// skippedFields are output fields that are not part of the response document.
var skippedFields = map[string]bool{
	"ResultMetadata": true,
}

// ToTree converts an SDK output value into a generic tree of
// map[string]interface{}, []interface{} and scalars. Nil pointers are
// omitted, timestamps become RFC 3339 strings, blobs become base64 strings
// and streams are read to strings. Union members such as
// AttributeValueMemberS{Value: "x"} become {"S": "x"}.
func ToTree(v interface{}) interface{} {
	out, _ := toTree(reflect.ValueOf(v))
	return out
}

func toTree(v reflect.Value) (interface{}, bool) {
	if !v.IsValid() {
		return nil, false
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil, false
		}
		if r, ok := v.Interface().(io.Reader); ok {
			return readStream(r), true
		}
		return toTree(v.Elem())
	}

	switch v.Kind() {
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface().(time.Time).UTC().Format(time.RFC3339), true
		}
		if member, ok := unionMember(v); ok {
			return member, true
		}
		return structTree(v), true

	case reflect.Map:
		if v.IsNil() {
			return nil, false
		}
		out := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			if child, ok := toTree(iter.Value()); ok {
				out[mapKey(iter.Key())] = child
			}
		}
		return out, true

	case reflect.Slice:
		if v.IsNil() {
			return nil, false
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(v.Bytes()), true
		}
		fallthrough
	case reflect.Array:
		out := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i], _ = toTree(v.Index(i))
		}
		return out, true

	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return v.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}

	return nil, false
}

func structTree(v reflect.Value) map[string]interface{} {
	t := v.Type()
	out := make(map[string]interface{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || skippedFields[f.Name] {
			continue
		}
		if child, ok := toTree(v.Field(i)); ok {
			out[f.Name] = child
		}
	}
	return out
}

// unionMember recognises SDK union member structs, which are named
// <Union>Member<Name> and carry a single exported Value field.
func unionMember(v reflect.Value) (map[string]interface{}, bool) {
	t := v.Type()
	idx := strings.LastIndex(t.Name(), "Member")
	if idx <= 0 {
		return nil, false
	}
	name := t.Name()[idx+len("Member"):]
	if name == "" {
		return nil, false
	}

	field, ok := t.FieldByName("Value")
	if !ok || !field.IsExported() {
		return nil, false
	}

	child, ok := toTree(v.FieldByIndex(field.Index))
	if !ok {
		return map[string]interface{}{}, true
	}
	return map[string]interface{}{name: child}, true
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	s, _ := toTree(k)
	if str, ok := s.(string); ok {
		return str
	}
	return ""
}

func readStream(r io.Reader) string {
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return string(data)
}
