package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"folio/api/internal/store"
	"folio/api/internal/util"
)

// Repository is the typed accessor layer over the document store. Every
// call re-reads the store; there is no cache in front of it.
type Repository struct {
	store store.DocumentStore
	now   func() time.Time
}

func NewRepository(s store.DocumentStore) *Repository {
	return &Repository{store: s, now: time.Now}
}

// Ping reports whether the backing store is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

type entityPtr[T any] interface {
	*T
	setEntityID(id string)
}

func listEntities[T any, P entityPtr[T]](ctx context.Context, s store.DocumentStore, collection string) ([]T, error) {
	docs, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(docs))
	for _, d := range docs {
		var item T
		if err := json.Unmarshal(d.Data, &item); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, d.ID, err)
		}
		P(&item).setEntityID(d.ID)
		items = append(items, item)
	}
	return items, nil
}

func getEntity[T any, P entityPtr[T]](ctx context.Context, s store.DocumentStore, collection, id string) (T, error) {
	var item T
	raw, err := s.Get(ctx, collection, id)
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	P(&item).setEntityID(id)
	return item, nil
}

// sortByOrder applies the manual ordering policy: numeric sortOrder
// ascending, entities without one after all numbered ones, ties and
// missing values keeping their incoming order (stable).
func sortByOrder[T any](items []T, order func(*T) *int) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := order(&items[i]), order(&items[j])
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		default:
			return false
		}
	})
}

func (r *Repository) ListProjects(ctx context.Context) ([]Project, error) {
	items, err := listEntities[Project](ctx, r.store, ColProjects)
	if err != nil {
		return nil, err
	}
	sortByOrder(items, func(p *Project) *int { return p.SortOrder })
	return items, nil
}

func (r *Repository) ListExperiences(ctx context.Context) ([]Experience, error) {
	items, err := listEntities[Experience](ctx, r.store, ColExperiences)
	if err != nil {
		return nil, err
	}
	sortByOrder(items, func(e *Experience) *int { return e.SortOrder })
	return items, nil
}

func (r *Repository) ListEducations(ctx context.Context) ([]Education, error) {
	items, err := listEntities[Education](ctx, r.store, ColEducations)
	if err != nil {
		return nil, err
	}
	sortByOrder(items, func(e *Education) *int { return e.SortOrder })
	return items, nil
}

func (r *Repository) ListAchievements(ctx context.Context) ([]Achievement, error) {
	items, err := listEntities[Achievement](ctx, r.store, ColAchievements)
	if err != nil {
		return nil, err
	}
	sortByOrder(items, func(a *Achievement) *int { return a.SortOrder })
	return items, nil
}

// ListPosts returns posts newest first.
func (r *Repository) ListPosts(ctx context.Context) ([]Post, error) {
	items, err := listEntities[Post](ctx, r.store, ColPosts)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return parseDate(items[i].Date).After(parseDate(items[j].Date))
	})
	return items, nil
}

// ListRecommendations returns recommendations newest first. Drafts are
// included only when includeDrafts is set (admin view).
func (r *Repository) ListRecommendations(ctx context.Context, includeDrafts bool) ([]Recommendation, error) {
	items, err := listEntities[Recommendation](ctx, r.store, ColRecommendations)
	if err != nil {
		return nil, err
	}
	filtered := make([]Recommendation, 0, len(items))
	for _, item := range items {
		if !includeDrafts && item.Status != RecommendationPublished {
			continue
		}
		filtered = append(filtered, item)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt > filtered[j].CreatedAt
	})
	return filtered, nil
}

func (r *Repository) GetProject(ctx context.Context, id string) (Project, error) {
	return getEntity[Project](ctx, r.store, ColProjects, id)
}

func (r *Repository) GetPost(ctx context.Context, id string) (Post, error) {
	return getEntity[Post](ctx, r.store, ColPosts, id)
}

func (r *Repository) GetExperience(ctx context.Context, id string) (Experience, error) {
	return getEntity[Experience](ctx, r.store, ColExperiences, id)
}

func (r *Repository) GetEducation(ctx context.Context, id string) (Education, error) {
	return getEntity[Education](ctx, r.store, ColEducations, id)
}

func (r *Repository) GetAchievement(ctx context.Context, id string) (Achievement, error) {
	return getEntity[Achievement](ctx, r.store, ColAchievements, id)
}

func (r *Repository) GetRecommendation(ctx context.Context, id string) (Recommendation, error) {
	return getEntity[Recommendation](ctx, r.store, ColRecommendations, id)
}

// GetProjectBySlug resolves a project by its slug field or document ID.
func (r *Repository) GetProjectBySlug(ctx context.Context, slug string) (Project, error) {
	items, err := r.ListProjects(ctx)
	if err != nil {
		return Project{}, err
	}
	for _, item := range items {
		if item.Slug == slug || item.ID == slug {
			return item, nil
		}
	}
	return Project{}, store.ErrNotFound
}

// GetPostBySlug resolves a post by its slug field or document ID.
func (r *Repository) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	items, err := r.ListPosts(ctx)
	if err != nil {
		return Post{}, err
	}
	for _, item := range items {
		if item.Slug == slug || item.ID == slug {
			return item, nil
		}
	}
	return Post{}, store.ErrNotFound
}

// SaveProject persists the project and fans its stub out to every
// declared counterpart. New projects get a slug-derived ID.
func (r *Repository) SaveProject(ctx context.Context, p *Project) (SyncReport, error) {
	return r.saveWithRelations(ctx, p)
}

// SavePost persists the post, folds its tags into the tag registry and
// fans its stub out to every declared counterpart.
func (r *Repository) SavePost(ctx context.Context, p *Post) (SyncReport, error) {
	return r.saveWithRelations(ctx, p)
}

func (r *Repository) SaveExperience(ctx context.Context, e *Experience) (SyncReport, error) {
	return r.saveWithRelations(ctx, e)
}

func (r *Repository) SaveEducation(ctx context.Context, e *Education) (SyncReport, error) {
	return r.saveWithRelations(ctx, e)
}

// SaveAchievement persists an achievement. Achievements declare no
// relations, so there is no fan-out.
func (r *Repository) SaveAchievement(ctx context.Context, a *Achievement) error {
	if a.ID == "" {
		a.ID = util.NewID("")
	}
	if a.SortOrder == nil {
		next, err := r.nextSortOrder(ctx, ColAchievements)
		if err != nil {
			return err
		}
		a.SortOrder = &next
	}
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode achievement: %w", err)
	}
	if err := r.store.Set(ctx, ColAchievements, a.ID, doc); err != nil {
		return fmt.Errorf("save achievement %s: %w", a.ID, err)
	}
	return nil
}

// AddRecommendation records a public submission as a draft awaiting
// moderation.
func (r *Repository) AddRecommendation(ctx context.Context, name, thought string) (string, error) {
	rec := Recommendation{
		ID:        util.NewID(""),
		Name:      name,
		Thought:   thought,
		Status:    RecommendationDraft,
		CreatedAt: r.now().UTC().Format(time.RFC3339),
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode recommendation: %w", err)
	}
	if err := r.store.Set(ctx, ColRecommendations, rec.ID, doc); err != nil {
		return "", fmt.Errorf("save recommendation %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

// SaveRecommendation is the admin-side full save (moderation edits).
func (r *Repository) SaveRecommendation(ctx context.Context, rec *Recommendation) error {
	if rec.ID == "" {
		rec.ID = util.NewID("")
	}
	if rec.Status == "" {
		rec.Status = RecommendationDraft
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = r.now().UTC().Format(time.RFC3339)
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode recommendation: %w", err)
	}
	if err := r.store.Set(ctx, ColRecommendations, rec.ID, doc); err != nil {
		return fmt.Errorf("save recommendation %s: %w", rec.ID, err)
	}
	return nil
}

// SetRecommendationStatus flips a recommendation between draft and
// published.
func (r *Repository) SetRecommendationStatus(ctx context.Context, id, status string) error {
	if status != RecommendationDraft && status != RecommendationPublished {
		return fmt.Errorf("invalid recommendation status %q", status)
	}
	value, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return r.store.UpdateField(ctx, ColRecommendations, id, "status", value)
}

// Hero returns the singleton profile, or store.ErrNotFound when it has
// never been saved.
func (r *Repository) Hero(ctx context.Context) (Hero, error) {
	var hero Hero
	raw, err := r.store.Get(ctx, ColSettings, DocHero)
	if err != nil {
		return hero, err
	}
	if err := json.Unmarshal(raw, &hero); err != nil {
		return hero, fmt.Errorf("decode hero: %w", err)
	}
	return hero, nil
}

func (r *Repository) SaveHero(ctx context.Context, hero Hero) error {
	doc, err := json.Marshal(hero)
	if err != nil {
		return fmt.Errorf("encode hero: %w", err)
	}
	if err := r.store.Set(ctx, ColSettings, DocHero, doc); err != nil {
		return fmt.Errorf("save hero: %w", err)
	}
	return nil
}

// Tags returns the registry, falling back to aggregating from posts
// when the registry document does not exist yet.
func (r *Repository) Tags(ctx context.Context) ([]string, error) {
	raw, err := r.store.Get(ctx, ColSettings, DocTags)
	if err == nil {
		var set TagSet
		if decodeErr := json.Unmarshal(raw, &set); decodeErr != nil {
			return nil, fmt.Errorf("decode tag registry: %w", decodeErr)
		}
		return set.Values, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	posts, err := r.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var tags []string
	for _, post := range posts {
		for _, tag := range post.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// mergeTags folds a post's tags into the registry, writing only when
// the union actually grows. The registry never shrinks.
func (r *Repository) mergeTags(ctx context.Context, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	var current []string
	raw, err := r.store.Get(ctx, ColSettings, DocTags)
	if err == nil {
		var set TagSet
		if decodeErr := json.Unmarshal(raw, &set); decodeErr != nil {
			return fmt.Errorf("decode tag registry: %w", decodeErr)
		}
		current = set.Values
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	seen := make(map[string]bool, len(current))
	merged := make([]string, 0, len(current)+len(tags))
	for _, tag := range current {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	for _, tag := range tags {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	if len(merged) == len(current) {
		return nil
	}
	doc, err := json.Marshal(TagSet{Values: merged})
	if err != nil {
		return fmt.Errorf("encode tag registry: %w", err)
	}
	if err := r.store.Set(ctx, ColSettings, DocTags, doc); err != nil {
		return fmt.Errorf("save tag registry: %w", err)
	}
	return nil
}

// nextSortOrder computes the trailing manual-order value for a
// collection: max existing + 1, or 0 for an empty collection.
func (r *Repository) nextSortOrder(ctx context.Context, collection string) (int, error) {
	docs, err := r.store.List(ctx, collection)
	if err != nil {
		return 0, err
	}
	max := -1
	for _, d := range docs {
		if order := rawSortOrder(d.Data); order != nil && *order > max {
			max = *order
		}
	}
	return max + 1, nil
}

func rawSortOrder(raw json.RawMessage) *int {
	if raw == nil {
		return nil
	}
	var probe struct {
		SortOrder *int `json:"sortOrder"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}
	return probe.SortOrder
}

// uniqueProjectID derives a slug from the title and probes the store
// for a free one: slug, slug-2, slug-3, ...
func (r *Repository) uniqueProjectID(ctx context.Context, title string) (string, error) {
	base := util.Slugify(title)
	if base == "" {
		base = util.NewID("")
	}
	candidate := base
	for counter := 2; ; counter++ {
		_, err := r.store.Get(ctx, ColProjects, candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("probe project id %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}

func parseDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "Jan 2, 2006", "January 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
