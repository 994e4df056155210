package normalize

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/openfroyo/sdkbridge/pkg/engine"
)

type fakeClient struct {
	apiVersion string
	region     string
}

func (c fakeClient) APIVersion() string { return c.apiVersion }

func (c fakeClient) Region(ctx context.Context) (string, error) {
	if c.region == "" {
		return "", errors.New("region is missing")
	}
	return c.region, nil
}

var sampleTree = map[string]interface{}{
	"Buckets": []interface{}{
		map[string]interface{}{"Name": "b1", "CreationDate": "2024-01-01T00:00:00Z"},
		map[string]interface{}{"Name": "b2"},
	},
	"Owner": map[string]interface{}{
		"ID":      "abc",
		"Enabled": true,
		"Count":   int64(3),
		"Ratio":   0.5,
		"Missing": nil,
	},
	"Empty": map[string]interface{}{},
}

func TestFlatten(t *testing.T) {
	want := FlatResponse{
		"Buckets.0.Name":         "b1",
		"Buckets.0.CreationDate": "2024-01-01T00:00:00Z",
		"Buckets.1.Name":         "b2",
		"Owner.ID":               "abc",
		"Owner.Enabled":          "true",
		"Owner.Count":            "3",
		"Owner.Ratio":            "0.5",
	}

	got := Flatten(sampleTree)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}
}

func TestFlattenScalars(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want FlatResponse
	}{
		{"nil", nil, FlatResponse{}},
		{"root scalar", "x", FlatResponse{}},
		{"large float", map[string]interface{}{"n": float64(12345678901)}, FlatResponse{"n": "12345678901"}},
		{"typed map", map[string]string{"k": "v"}, FlatResponse{"k": "v"}},
		{"typed slice", map[string]interface{}{"l": []string{"a", "b"}}, FlatResponse{"l.0": "a", "l.1": "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Flatten(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Flatten() = %v, want %v", got, tt.want)
			}
		})
	}
}

// countLeaves counts non-null scalar leaves.
func countLeaves(node interface{}) int {
	switch v := node.(type) {
	case nil:
		return 0
	case map[string]interface{}:
		n := 0
		for _, child := range v {
			n += countLeaves(child)
		}
		return n
	case []interface{}:
		n := 0
		for _, child := range v {
			n += countLeaves(child)
		}
		return n
	default:
		return 1
	}
}

// stringify renders leaves as strings and drops nulls and empty containers,
// which is the shape Unflatten(Flatten(x)) reconstructs.
func stringify(node interface{}) interface{} {
	switch v := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{})
		for k, child := range v {
			if s := stringify(child); s != nil {
				out[k] = s
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, child := range v {
			out = append(out, stringify(child))
		}
		return out
	case nil:
		return nil
	default:
		return FormatScalar(v)
	}
}

func TestFlattenProperties(t *testing.T) {
	trees := []interface{}{
		sampleTree,
		map[string]interface{}{"a": map[string]interface{}{"b": map[string]interface{}{"c": "d"}}},
		map[string]interface{}{"list": []interface{}{"x", "y", []interface{}{"z"}}},
	}

	for i, tree := range trees {
		flat := Flatten(tree)

		if len(flat) != countLeaves(tree) {
			t.Errorf("tree %d: expected %d leaves, got %d", i, countLeaves(tree), len(flat))
		}

		if got, want := Unflatten(flat), stringify(tree); !reflect.DeepEqual(got, want) {
			t.Errorf("tree %d: Unflatten(Flatten()) = %#v, want %#v", i, got, want)
		}
	}
}

func TestWithDiagnostics(t *testing.T) {
	tests := []struct {
		name          string
		client        Diagnostics
		want          FlatResponse
		wantRegionErr bool
	}{
		{
			name:   "both",
			client: fakeClient{apiVersion: "2006-03-01", region: "us-east-1"},
			want:   FlatResponse{"apiVersion": "2006-03-01", "region": "us-east-1", "Owner.ID": "abc"},
		},
		{
			name:          "region unresolved",
			client:        fakeClient{apiVersion: "2006-03-01"},
			want:          FlatResponse{"apiVersion": "2006-03-01", "Owner.ID": "abc"},
			wantRegionErr: true,
		},
		{
			name:   "no api version",
			client: fakeClient{region: "eu-west-1"},
			want:   FlatResponse{"region": "eu-west-1", "Owner.ID": "abc"},
		},
		{
			name: "nil client",
			want: FlatResponse{"Owner.ID": "abc"},
		},
	}

	tree := map[string]interface{}{"Owner": map[string]interface{}{"ID": "abc"}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithDiagnostics(context.Background(), tt.client, tree)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("WithDiagnostics() = %v, want %v", got, tt.want)
			}
			if (err != nil) != tt.wantRegionErr {
				t.Fatalf("Expected region error %v, got %v", tt.wantRegionErr, err)
			}
			if err != nil && engine.CodeOf(err) != engine.ErrCodeRegionResolution {
				t.Errorf("Expected %s, got %s", engine.ErrCodeRegionResolution, engine.CodeOf(err))
			}
		})
	}

	t.Run("body wins", func(t *testing.T) {
		got, _ := WithDiagnostics(context.Background(), fakeClient{region: "us-east-1"}, map[string]interface{}{"region": "body"})
		if got["region"] != "body" {
			t.Errorf("Expected body value, got %s", got["region"])
		}
	})
}

func TestFilter(t *testing.T) {
	flat := Flatten(sampleTree)

	tests := []struct {
		name     string
		prefixes []string
		want     []string
	}{
		{"nil is identity", nil, Keys(flat)},
		{"empty is identity", []string{}, Keys(flat)},
		{"single path", []string{"Buckets.0.Name"}, []string{"Buckets.0.Name"}},
		{"prefix match", []string{"Owner"}, []string{"Owner.Count", "Owner.Enabled", "Owner.ID", "Owner.Ratio"}},
		{"multiple", []string{"Buckets.1", "Owner.ID"}, []string{"Buckets.1.Name", "Owner.ID"}},
		{"no match", []string{"Nope"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(flat, tt.prefixes)
			if keys := Keys(got); !reflect.DeepEqual(keys, tt.want) {
				t.Errorf("Filter() keys = %v, want %v", keys, tt.want)
			}
			for k, v := range got {
				if flat[k] != v {
					t.Errorf("Filtered entry %s=%s not in source", k, v)
				}
				if len(tt.prefixes) == 0 {
					continue
				}
				matched := false
				for _, p := range tt.prefixes {
					if strings.HasPrefix(k, p) {
						matched = true
					}
				}
				if !matched {
					t.Errorf("Key %s matches no prefix", k)
				}
			}
		})
	}
}

func TestOutputPrefixes(t *testing.T) {
	tests := []struct {
		name string
		call *engine.CallDescriptor
		want []string
	}{
		{"nil call", nil, nil},
		{"none", &engine.CallDescriptor{}, nil},
		{"outputPath", &engine.CallDescriptor{OutputPath: "A"}, []string{"A"}},
		{"outputPaths", &engine.CallDescriptor{OutputPaths: []string{"A", "B"}}, []string{"A", "B"}},
		{"outputPath wins", &engine.CallDescriptor{OutputPath: "A", OutputPaths: []string{"B"}}, []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputPrefixes(tt.call); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("OutputPrefixes() = %v, want %v", got, tt.want)
			}
		})
	}
}
