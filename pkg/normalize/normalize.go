// Package normalize flattens SDK response trees into the flat string map
// reported to the orchestrator, and projects it by output path prefixes.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/openfroyo/sdkbridge/pkg/engine"
)

// Separator joins path segments in flattened keys.
const Separator = "."

// Diagnostic keys injected ahead of the flattened response body.
const (
	KeyAPIVersion = "apiVersion"
	KeyRegion     = "region"
)

// FlatResponse maps dot-joined paths to scalar values.
type FlatResponse = map[string]string

// Diagnostics is the part of a client the diagnostic entries are read from.
type Diagnostics interface {
	APIVersion() string
	Region(ctx context.Context) (string, error)
}

// Flatten walks a response tree and returns one entry per non-null scalar
// leaf, keyed by the dot-joined map keys and array indices from the root.
// Empty maps and arrays contribute no entries.
func Flatten(tree interface{}) FlatResponse {
	flat := make(FlatResponse)
	flatten(flat, "", tree)
	return flat
}

func flatten(flat FlatResponse, prefix string, node interface{}) {
	switch v := node.(type) {
	case nil:
		return
	case map[string]interface{}:
		for k, child := range v {
			flatten(flat, join(prefix, k), child)
		}
	case []interface{}:
		for i, child := range v {
			flatten(flat, join(prefix, strconv.Itoa(i)), child)
		}
	default:
		rv := reflect.ValueOf(node)
		switch rv.Kind() {
		case reflect.Map:
			iter := rv.MapRange()
			for iter.Next() {
				flatten(flat, join(prefix, fmt.Sprint(iter.Key().Interface())), iter.Value().Interface())
			}
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				flatten(flat, join(prefix, strconv.Itoa(i)), rv.Index(i).Interface())
			}
		case reflect.Ptr, reflect.Interface:
			if !rv.IsNil() {
				flatten(flat, prefix, rv.Elem().Interface())
			}
		default:
			if prefix != "" {
				flat[prefix] = FormatScalar(node)
			}
		}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + Separator + key
}

// FormatScalar renders a leaf value as a string.
func FormatScalar(v interface{}) string {
	switch tv := v.(type) {
	case string:
		return tv
	case bool:
		return strconv.FormatBool(tv)
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(tv), 'f', -1, 32)
	case int:
		return strconv.Itoa(tv)
	case int32:
		return strconv.FormatInt(int64(tv), 10)
	case int64:
		return strconv.FormatInt(tv, 10)
	case uint64:
		return strconv.FormatUint(tv, 10)
	case json.Number:
		return tv.String()
	case fmt.Stringer:
		return tv.String()
	default:
		return fmt.Sprintf("%v", tv)
	}
}

// WithDiagnostics flattens the tree and adds the client's API version (when
// set) and resolved region (when resolvable). Body entries take precedence
// over diagnostic entries with the same key. A region lookup failure leaves
// the region out and is returned as a REGION_RESOLUTION_ERROR alongside the
// complete response; it is never fatal.
func WithDiagnostics(ctx context.Context, client Diagnostics, tree interface{}) (FlatResponse, error) {
	flat := make(FlatResponse)
	var regionErr error
	if client != nil {
		if v := client.APIVersion(); v != "" {
			flat[KeyAPIVersion] = v
		}
		region, err := client.Region(ctx)
		switch {
		case err != nil:
			regionErr = engine.NewRegionResolutionError(err)
		case region != "":
			flat[KeyRegion] = region
		}
	}
	for k, v := range Flatten(tree) {
		flat[k] = v
	}
	return flat, regionErr
}

// Filter keeps the entries whose key starts with any of the prefixes. With
// no prefixes the response is returned as is.
func Filter(flat FlatResponse, prefixes []string) FlatResponse {
	if len(prefixes) == 0 {
		return flat
	}

	out := make(FlatResponse)
	for k, v := range flat {
		for _, p := range prefixes {
			if strings.HasPrefix(k, p) {
				out[k] = v
				break
			}
		}
	}
	return out
}

// OutputPrefixes returns the call's output filter: outputPath when set,
// otherwise outputPaths, otherwise nil.
func OutputPrefixes(call *engine.CallDescriptor) []string {
	if call == nil {
		return nil
	}
	if call.OutputPath != "" {
		return []string{call.OutputPath}
	}
	if len(call.OutputPaths) > 0 {
		return call.OutputPaths
	}
	return nil
}

// Keys returns the flat response keys, sorted.
func Keys(flat FlatResponse) []string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unflatten re-nests a flat response by splitting keys on the separator.
// Maps whose keys are exactly 0..n-1 become arrays.
func Unflatten(flat FlatResponse) interface{} {
	root := make(map[string]interface{})
	for _, key := range Keys(flat) {
		segments := strings.Split(key, Separator)
		node := root
		for i, seg := range segments {
			if i == len(segments)-1 {
				node[seg] = flat[key]
				break
			}
			child, ok := node[seg].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				node[seg] = child
			}
			node = child
		}
	}
	return arrays(root)
}

func arrays(node interface{}) interface{} {
	m, ok := node.(map[string]interface{})
	if !ok {
		return node
	}
	for k, v := range m {
		m[k] = arrays(v)
	}

	if len(m) == 0 {
		return m
	}
	list := make([]interface{}, len(m))
	for k, v := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return m
		}
		list[i] = v
	}
	return list
}
