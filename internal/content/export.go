package content

import (
	"context"
	"encoding/json"
	"fmt"
)

// exportCollections are the collections included in a snapshot export.
var exportCollections = []string{
	ColProjects,
	ColPosts,
	ColExperiences,
	ColEducations,
	ColAchievements,
	ColRecommendations,
	ColSettings,
}

// Export dumps every collection as a JSON array of {id, data} pairs,
// keyed by "<collection>.json". Empty collections export as [] so a
// snapshot records deletions too.
func (r *Repository) Export(ctx context.Context) (map[string]json.RawMessage, error) {
	files := make(map[string]json.RawMessage, len(exportCollections))
	for _, collection := range exportCollections {
		docs, err := r.store.List(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", collection, err)
		}
		type entry struct {
			ID   string          `json:"id"`
			Data json.RawMessage `json:"data"`
		}
		entries := make([]entry, 0, len(docs))
		for _, d := range docs {
			entries = append(entries, entry{ID: d.ID, Data: d.Data})
		}
		payload, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", collection, err)
		}
		files[collection+".json"] = payload
	}
	return files, nil
}
