package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Apply computes the document produced by w on top of existing.
// found reports whether the document currently exists. keep is false when
// the result is a deletion.
func Apply(existing Doc, found bool, w Write) (result Doc, keep bool, err error) {
	switch w.Kind {
	case WriteDelete:
		return nil, false, nil
	case WriteUpdate:
		if !found {
			return nil, false, fmt.Errorf("update %s/%s: %w", w.Collection, w.ID, ErrNotFound)
		}
		result = mergeInto(clone(existing), w.Data)
	case WriteMerge:
		base := Doc{}
		if found {
			base = clone(existing)
		}
		result = mergeInto(base, w.Data)
	case WriteSet:
		result = mergeInto(Doc{}, w.Data)
	default:
		return nil, false, fmt.Errorf("unknown write kind %d", w.Kind)
	}

	result, err = Canonical(result)
	if err != nil {
		return nil, false, fmt.Errorf("encode %s/%s: %w", w.Collection, w.ID, err)
	}
	return result, true, nil
}

func mergeInto(dst Doc, src Doc) Doc {
	for k, v := range src {
		switch val := v.(type) {
		case deleteField:
			delete(dst, k)
		case ArrayUnion:
			dst[k] = union(dst[k], val)
		case Doc:
			dst[k] = mergeNested(dst[k], val)
		case map[string]any:
			dst[k] = mergeNested(dst[k], Doc(val))
		default:
			dst[k] = v
		}
	}
	return dst
}

func mergeNested(current any, src Doc) Doc {
	switch cur := current.(type) {
	case map[string]any:
		return mergeInto(clone(Doc(cur)), src)
	case Doc:
		return mergeInto(clone(cur), src)
	default:
		return mergeInto(Doc{}, src)
	}
}

func union(current any, values ArrayUnion) []any {
	var out []any
	if arr, ok := current.([]any); ok {
		out = append(out, arr...)
	}
	for _, v := range values {
		cv, err := canonicalValue(v)
		if err != nil {
			cv = v
		}
		dup := false
		for _, have := range out {
			if reflect.DeepEqual(have, cv) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, cv)
		}
	}
	if out == nil {
		out = []any{}
	}
	return out
}

func clone(d Doc) Doc {
	out := make(Doc, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Canonical round trips a document through JSON so every backend sees the same
// value shapes: numbers as float64, times as RFC 3339 strings, nested maps as
// map[string]any.
func Canonical(d Doc) (Doc, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	out := Doc{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func canonicalValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(raw, &out)
	return out, err
}

// Decode converts a document into a typed value through its JSON tags.
func Decode(d Doc, v any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
