package protocol

import "fmt"

// MergeLimits bounds the recursive deep-merge defined in spec.md §4.3.3.
// Defaults mirror the MERGE_MAX_DEPTH / MAX_PROPERTIES / MAX_ARRAY_SIZE /
// key-length constants of §6.4.
type MergeLimits struct {
	MaxDepth      int
	MaxProperties int
	MaxArraySize  int
	MaxKeyLength  int
}

// DefaultMergeLimits returns the spec's default guard values.
func DefaultMergeLimits() MergeLimits {
	return MergeLimits{
		MaxDepth:      20,
		MaxProperties: 100,
		MaxArraySize:  1000,
		MaxKeyLength:  100,
	}
}

// DeepMerge merges source into target following spec.md §4.3.3:
//   - object values recurse (missing/non-object target fields become {});
//   - everything else (primitives, null, arrays) replaces wholesale;
//   - arrays are never element-merged.
//
// Inputs are expected to originate from encoding/json.Unmarshal into `any`,
// which always allocates fresh maps/slices — so cycles cannot occur
// structurally and the depth counter below is the only re-entry guard
// needed. A caller feeding in a value built by other means (e.g. reusing a
// map literal across calls) would need its own cycle check; that does not
// happen anywhere in this codebase.
func DeepMerge(target, source map[string]any, limits MergeLimits) (map[string]any, error) {
	return mergeObjects(target, source, limits, 0)
}

func mergeObjects(target, source map[string]any, limits MergeLimits, depth int) (map[string]any, error) {
	if depth > limits.MaxDepth {
		return nil, fmt.Errorf("%w: merge depth exceeds %d", ErrMergeFailed, limits.MaxDepth)
	}
	if len(source) > limits.MaxProperties {
		return nil, fmt.Errorf("%w: object has %d keys, limit %d", ErrMergeFailed, len(source), limits.MaxProperties)
	}

	result := make(map[string]any, len(target)+len(source))
	for k, v := range target {
		result[k] = v
	}

	for k, sv := range source {
		if len(k) > limits.MaxKeyLength {
			return nil, fmt.Errorf("%w: key %q exceeds length limit %d", ErrMergeFailed, k, limits.MaxKeyLength)
		}

		switch sval := sv.(type) {
		case map[string]any:
			existing, _ := result[k].(map[string]any)
			merged, err := mergeObjects(existing, sval, limits, depth+1)
			if err != nil {
				return nil, err
			}
			result[k] = merged
		case []any:
			if len(sval) > limits.MaxArraySize {
				return nil, fmt.Errorf("%w: array has %d entries, limit %d", ErrMergeFailed, len(sval), limits.MaxArraySize)
			}
			result[k] = sval
		default:
			result[k] = sv
		}
	}

	return result, nil
}

// ValidateShape walks an arbitrary decoded JSON value and rejects anything
// exceeding the same guards DeepMerge enforces, without merging it into
// anything. Used to validate a `state` object supplied wholesale (spec.md
// §4.3.1) before it is stored as-is.
func ValidateShape(v any, limits MergeLimits) error {
	return validateShape(v, limits, 0)
}

func validateShape(v any, limits MergeLimits, depth int) error {
	if depth > limits.MaxDepth {
		return fmt.Errorf("%w: depth exceeds %d", ErrMergeFailed, limits.MaxDepth)
	}
	switch val := v.(type) {
	case map[string]any:
		if len(val) > limits.MaxProperties {
			return fmt.Errorf("%w: object has %d keys, limit %d", ErrMergeFailed, len(val), limits.MaxProperties)
		}
		for k, child := range val {
			if len(k) > limits.MaxKeyLength {
				return fmt.Errorf("%w: key %q exceeds length limit %d", ErrMergeFailed, k, limits.MaxKeyLength)
			}
			if err := validateShape(child, limits, depth+1); err != nil {
				return err
			}
		}
	case []any:
		if len(val) > limits.MaxArraySize {
			return fmt.Errorf("%w: array has %d entries, limit %d", ErrMergeFailed, len(val), limits.MaxArraySize)
		}
		for _, child := range val {
			if err := validateShape(child, limits, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
