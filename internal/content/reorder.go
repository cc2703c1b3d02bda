package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"folio/api/internal/store"
)

// rollups declares which collections embed stubs of a reordered
// collection, and in which relation field.
var rollups = map[string]struct {
	targets []string
	field   string
}{
	ColProjects:    {targets: []string{ColExperiences, ColEducations, ColPosts}, field: "relatedProjects"},
	ColExperiences: {targets: []string{ColProjects, ColPosts}, field: "relatedExperience"},
	ColEducations:  {targets: []string{ColProjects, ColPosts}, field: "relatedEducation"},
}

// Reorder persists new manual-order values for a collection, then
// propagates them into every embedded stub of that collection elsewhere
// in the store.
//
// The primary update is one batch and is durable on its own; the rollup
// is a best-effort scan whose failures are logged, not returned — stale
// stub orders self-heal the next time the owning entity is re-saved.
// Stub values change in place: array positions are deliberately NOT
// re-sorted, so embedded order and authoritative order can diverge
// until consumers re-fetch and sort.
func (r *Repository) Reorder(ctx context.Context, collection string, items []store.OrderUpdate) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.store.SetOrderBatch(ctx, collection, items); err != nil {
		return fmt.Errorf("reorder %s: %w", collection, err)
	}

	cfg, ok := rollups[collection]
	if !ok {
		return nil
	}
	orderOf := make(map[string]int, len(items))
	for _, item := range items {
		orderOf[item.ID] = item.SortOrder
	}

	for _, target := range cfg.targets {
		docs, err := r.store.List(ctx, target)
		if err != nil {
			log.Printf("content: reorder rollup list %s: %v", target, err)
			continue
		}
		for _, d := range docs {
			var doc map[string]json.RawMessage
			if err := json.Unmarshal(d.Data, &doc); err != nil {
				log.Printf("content: reorder rollup decode %s/%s: %v", target, d.ID, err)
				continue
			}
			data, ok := doc[cfg.field]
			if !ok {
				continue
			}
			var list []RelatedItemStub
			if err := json.Unmarshal(data, &list); err != nil {
				log.Printf("content: reorder rollup decode %s/%s %s: %v", target, d.ID, cfg.field, err)
				continue
			}
			changed := false
			for i := range list {
				if order, ok := orderOf[list[i].ID]; ok && list[i].SortOrder != order {
					list[i].SortOrder = order
					changed = true
				}
			}
			if !changed {
				continue
			}
			value, err := json.Marshal(list)
			if err != nil {
				log.Printf("content: reorder rollup encode %s/%s: %v", target, d.ID, err)
				continue
			}
			if err := r.store.UpdateField(ctx, target, d.ID, cfg.field, value); err != nil {
				log.Printf("content: reorder rollup write %s/%s: %v", target, d.ID, err)
			}
		}
	}
	return nil
}
