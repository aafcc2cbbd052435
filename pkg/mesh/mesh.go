// Package mesh merges, diffs and patches generic decoded JSON values
// (map[string]any, []any and scalars).
//
// Mesh is the merge primitive for settings overrides and for entity reconciliation.
// Arrays are always replaced wholesale, never spliced element by element.
package mesh

import "reflect"

// Mesh overlays overlay onto base and returns the merged result. Neither input is mutated.
// A key is merged recursively only when both sides hold a map; otherwise the overlay value
// replaces the base value. Keys present only in base are kept.
func Mesh(base, overlay map[string]any) map[string]any {
	out := CloneMap(base)
	if out == nil {
		out = make(map[string]any, len(overlay))
	}
	for key, over := range overlay {
		baseChild, baseIsMap := asMap(out[key])
		overChild, overIsMap := asMap(over)
		if baseIsMap && overIsMap {
			out[key] = Mesh(baseChild, overChild)
			continue
		}
		out[key] = Clone(over)
	}
	return out
}

// Diff reports what changed relative to the keys of a. For each key of a whose value
// differs in b, nested maps are diffed recursively (kept only when non-empty) and any
// other value is carried verbatim from b. A key missing from b is reported as nil.
// Keys that exist only in b are not reported.
func Diff(a, b map[string]any) map[string]any {
	patch := make(map[string]any)
	for key, av := range a {
		bv, ok := b[key]
		if ok && reflect.DeepEqual(av, bv) {
			continue
		}
		aChild, aIsMap := asMap(av)
		bChild, bIsMap := asMap(bv)
		if aIsMap && bIsMap {
			if nested := Diff(aChild, bChild); len(nested) > 0 {
				patch[key] = nested
			}
			continue
		}
		patch[key] = Clone(bv)
	}
	return patch
}

// ApplyPatch overlays patch onto a deep copy of target. A nil patch returns the copy
// unchanged. Descent into a nested map only happens when the patch value is itself a map.
func ApplyPatch(target, patch map[string]any) map[string]any {
	out := CloneMap(target)
	if patch == nil {
		return out
	}
	if out == nil {
		out = make(map[string]any, len(patch))
	}
	for key, pv := range patch {
		pChild, pIsMap := asMap(pv)
		if !pIsMap {
			out[key] = Clone(pv)
			continue
		}
		tChild, _ := asMap(out[key])
		out[key] = ApplyPatch(tChild, pChild)
	}
	return out
}

// Clone deep-copies maps and slices of a decoded JSON value.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// CloneMap deep-copies m; nil stays nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}
