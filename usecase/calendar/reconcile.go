package calendar

import (
	"encoding/json"
	"sort"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/mesh"
)

// Reconcile merges incoming into existing by id. Entities on one side only are kept as is;
// shared ids are meshed with incoming as the overlay, so fields incoming leaves unspecified
// survive from existing. Within one input the last entity with a given id wins. The result
// is ordered by id. Entities without an id are skipped.
func Reconcile(existing, incoming []domain.Assignment) ([]domain.Assignment, error) {
	merged := ReconcileFields(fieldsOf(existing), fieldsOf(incoming))
	out := make([]domain.Assignment, 0, len(merged))
	for _, fields := range merged {
		a, err := domain.FromFields(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ReconcileFields is Reconcile over generic entity maps keyed by their "id" field.
func ReconcileFields(existing, incoming []map[string]any) []map[string]any {
	base := indexByID(existing)
	overlay := indexByID(incoming)

	result := make(map[int64]map[string]any, len(base)+len(overlay))
	for id, e := range base {
		if in, ok := overlay[id]; ok {
			result[id] = mesh.Mesh(e, in)
			continue
		}
		result[id] = mesh.CloneMap(e)
	}
	for id, in := range overlay {
		if _, ok := base[id]; !ok {
			result[id] = mesh.CloneMap(in)
		}
	}

	ids := make([]int64, 0, len(result))
	for id := range result {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, result[id])
	}
	return out
}

func fieldsOf(list []domain.Assignment) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, a := range list {
		out = append(out, a.Fields())
	}
	return out
}

func indexByID(list []map[string]any) map[int64]map[string]any {
	index := make(map[int64]map[string]any, len(list))
	for _, fields := range list {
		if id, ok := idOf(fields); ok {
			index[id] = fields
		}
	}
	return index
}

func idOf(fields map[string]any) (int64, bool) {
	var id int64
	switch v := fields["id"].(type) {
	case int64:
		id = v
	case int:
		id = int64(v)
	case float64:
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		id = n
	default:
		return 0, false
	}
	return id, id != 0
}
