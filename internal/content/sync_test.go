package content

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"folio/api/internal/store"
)

func newTestRepo() (*Repository, *store.Memory) {
	mem := store.NewMemory()
	return NewRepository(mem), mem
}

func mustSaveProject(t *testing.T, repo *Repository, p *Project) SyncReport {
	t.Helper()
	report, err := repo.SaveProject(context.Background(), p)
	if err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	return report
}

func mustSavePost(t *testing.T, repo *Repository, p *Post) SyncReport {
	t.Helper()
	report, err := repo.SavePost(context.Background(), p)
	if err != nil {
		t.Fatalf("SavePost() error = %v", err)
	}
	return report
}

func mustSaveExperience(t *testing.T, repo *Repository, e *Experience) SyncReport {
	t.Helper()
	report, err := repo.SaveExperience(context.Background(), e)
	if err != nil {
		t.Fatalf("SaveExperience() error = %v", err)
	}
	return report
}

func stubRef(id string, kind Kind) RelatedItemStub {
	return RelatedItemStub{ID: id, Type: kind}
}

func TestCreateProjectWithPostRelation(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	mustSavePost(t, repo, &Post{ID: "post-x", Title: "Post X", Slug: "post-x"})

	project := &Project{
		Title:        "Widget Builder",
		Description:  "Builds widgets",
		RelatedPosts: []RelatedItemStub{stubRef("post-x", KindPost)},
	}
	report := mustSaveProject(t, repo, project)

	if project.ID != "widget-builder" {
		t.Errorf("expected slug id widget-builder, got %q", project.ID)
	}
	if report.Upserted != 1 || report.Failed != 0 {
		t.Errorf("unexpected report %+v", report)
	}

	post, err := repo.GetPost(ctx, "post-x")
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if len(post.RelatedProjects) != 1 {
		t.Fatalf("expected 1 related project on post, got %d", len(post.RelatedProjects))
	}
	got := post.RelatedProjects[0]
	if got.ID != "widget-builder" || got.Type != KindProject {
		t.Errorf("unexpected stub %+v", got)
	}
	if !reflect.DeepEqual(got, project.stub()) {
		t.Errorf("stub on counterpart %+v differs from projection %+v", got, project.stub())
	}
}

func TestSlugCollisionGetsNumericSuffix(t *testing.T) {
	repo, _ := newTestRepo()

	first := &Project{Title: "Widget Builder"}
	second := &Project{Title: "Widget Builder"}
	third := &Project{Title: "Widget Builder"}
	mustSaveProject(t, repo, first)
	mustSaveProject(t, repo, second)
	mustSaveProject(t, repo, third)

	if first.ID != "widget-builder" {
		t.Errorf("first id = %q", first.ID)
	}
	if second.ID != "widget-builder-2" {
		t.Errorf("second id = %q", second.ID)
	}
	if third.ID != "widget-builder-3" {
		t.Errorf("third id = %q", third.ID)
	}
}

func TestEditMovesStubBetweenCounterparts(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	mustSavePost(t, repo, &Post{ID: "post-x", Title: "Post X", Slug: "post-x"})
	mustSaveExperience(t, repo, &Experience{ID: "exp-1", Title: "Acme"})

	project := &Project{
		Title:        "Widget Builder",
		RelatedPosts: []RelatedItemStub{stubRef("post-x", KindPost)},
	}
	mustSaveProject(t, repo, project)

	// Drop the post relation, add an experience relation.
	project.RelatedPosts = nil
	project.RelatedExperience = []RelatedItemStub{stubRef("exp-1", KindExperience)}
	mustSaveProject(t, repo, project)

	post, err := repo.GetPost(ctx, "post-x")
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if len(post.RelatedProjects) != 0 {
		t.Errorf("expected stub removed from post, got %+v", post.RelatedProjects)
	}

	exp, err := repo.GetExperience(ctx, "exp-1")
	if err != nil {
		t.Fatalf("GetExperience() error = %v", err)
	}
	if len(exp.RelatedProjects) != 1 || exp.RelatedProjects[0].ID != "widget-builder" {
		t.Errorf("expected stub on experience, got %+v", exp.RelatedProjects)
	}
}

func TestDeleteCascadesStubRemoval(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	mustSaveExperience(t, repo, &Experience{ID: "exp-1", Title: "Acme"})
	project := &Project{
		Title:             "Widget Builder",
		RelatedExperience: []RelatedItemStub{stubRef("exp-1", KindExperience)},
	}
	mustSaveProject(t, repo, project)

	if err := repo.DeleteWithRelations(ctx, ColProjects, "widget-builder"); err != nil {
		t.Fatalf("DeleteWithRelations() error = %v", err)
	}

	if _, err := repo.GetProject(ctx, "widget-builder"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected project gone, got err=%v", err)
	}
	exp, err := repo.GetExperience(ctx, "exp-1")
	if err != nil {
		t.Fatalf("GetExperience() error = %v", err)
	}
	if len(exp.RelatedProjects) != 0 {
		t.Errorf("expected cascade to strip stub, got %+v", exp.RelatedProjects)
	}
}

func TestDeleteMissingEntityReturnsNotFound(t *testing.T) {
	repo, _ := newTestRepo()
	err := repo.DeleteWithRelations(context.Background(), ColProjects, "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	repo, mem := newTestRepo()
	ctx := context.Background()

	mustSavePost(t, repo, &Post{ID: "post-x", Title: "Post X", Slug: "post-x"})
	project := &Project{
		Title:        "Widget Builder",
		RelatedPosts: []RelatedItemStub{stubRef("post-x", KindPost)},
	}
	mustSaveProject(t, repo, project)

	before, err := mem.Get(ctx, ColPosts, "post-x")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	mustSaveProject(t, repo, project)

	after, err := mem.Get(ctx, ColPosts, "post-x")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	var a, b map[string]any
	if err := json.Unmarshal(before, &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(after, &b); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("second save changed counterpart:\nbefore %v\nafter  %v", a, b)
	}
}

func TestUnchangedRelationIsNeverRemoved(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	mustSavePost(t, repo, &Post{ID: "post-x", Title: "Post X", Slug: "post-x"})
	mustSavePost(t, repo, &Post{ID: "post-y", Title: "Post Y", Slug: "post-y"})

	project := &Project{
		Title: "Widget Builder",
		RelatedPosts: []RelatedItemStub{
			stubRef("post-x", KindPost),
			stubRef("post-y", KindPost),
		},
	}
	mustSaveProject(t, repo, project)

	// post-y dropped, post-x kept.
	project.RelatedPosts = []RelatedItemStub{stubRef("post-x", KindPost)}
	report := mustSaveProject(t, repo, project)
	if report.Upserted != 1 || report.Removed != 1 {
		t.Errorf("unexpected report %+v", report)
	}

	post, err := repo.GetPost(ctx, "post-x")
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if len(post.RelatedProjects) != 1 {
		t.Errorf("kept relation was removed: %+v", post.RelatedProjects)
	}
}

func TestBrokenReferenceIsSkippedSilently(t *testing.T) {
	repo, _ := newTestRepo()

	project := &Project{
		Title:        "Widget Builder",
		RelatedPosts: []RelatedItemStub{stubRef("no-such-post", KindPost)},
	}
	report := mustSaveProject(t, repo, project)
	if report.Upserted != 0 || report.Failed != 0 {
		t.Errorf("broken reference should be skipped, got %+v", report)
	}
}

func TestReplacePreservesArrayPosition(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	mustSavePost(t, repo, &Post{ID: "post-x", Title: "Post X", Slug: "post-x"})

	first := &Project{Title: "First", RelatedPosts: []RelatedItemStub{stubRef("post-x", KindPost)}}
	second := &Project{Title: "Second", RelatedPosts: []RelatedItemStub{stubRef("post-x", KindPost)}}
	mustSaveProject(t, repo, first)
	mustSaveProject(t, repo, second)

	// Re-save the first project; its stub must stay at index 0.
	first.Subtitle = "updated"
	mustSaveProject(t, repo, first)

	post, err := repo.GetPost(ctx, "post-x")
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if len(post.RelatedProjects) != 2 {
		t.Fatalf("expected 2 stubs, got %d", len(post.RelatedProjects))
	}
	if post.RelatedProjects[0].ID != "first" || post.RelatedProjects[1].ID != "second" {
		t.Errorf("stub order changed: %q, %q", post.RelatedProjects[0].ID, post.RelatedProjects[1].ID)
	}
}

func TestSelfReferenceIsPermitted(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	// The counterpart collection comes from the stub's type tag, so a
	// project can declare a stub pointing at itself. No guard exists;
	// the engine writes the project's own stub into its own reverse
	// array. Permissive on purpose.
	loop := &Project{ID: "loop", Title: "Loop"}
	mustSaveProject(t, repo, loop)

	loop.RelatedPosts = []RelatedItemStub{stubRef("loop", KindProject)}
	report := mustSaveProject(t, repo, loop)
	if report.Upserted != 1 {
		t.Fatalf("expected self upsert, got %+v", report)
	}

	got, err := repo.GetProject(ctx, "loop")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if len(got.RelatedProjects) != 1 || got.RelatedProjects[0].ID != "loop" {
		t.Fatalf("expected own stub in relatedProjects, got %+v", got.RelatedProjects)
	}
}

// failingStore wraps the memory store and fails UpdateField for chosen
// documents, to exercise best-effort fan-out.
type failingStore struct {
	store.DocumentStore
	failIDs map[string]bool
}

func (f *failingStore) UpdateField(ctx context.Context, collection, id, field string, value json.RawMessage) error {
	if f.failIDs[id] {
		return errors.New("write refused")
	}
	return f.DocumentStore.UpdateField(ctx, collection, id, field, value)
}

func TestFanOutFailuresDoNotAbortSiblings(t *testing.T) {
	mem := store.NewMemory()
	repo := NewRepository(&failingStore{DocumentStore: mem, failIDs: map[string]bool{"post-bad": true}})
	ctx := context.Background()

	healthy := NewRepository(mem)
	mustSavePost(t, healthy, &Post{ID: "post-bad", Title: "Bad", Slug: "bad"})
	mustSavePost(t, healthy, &Post{ID: "post-good", Title: "Good", Slug: "good"})

	project := &Project{
		Title: "Widget Builder",
		RelatedPosts: []RelatedItemStub{
			stubRef("post-bad", KindPost),
			stubRef("post-good", KindPost),
		},
	}
	report, err := repo.SaveProject(ctx, project)
	if err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	if report.Failed != 1 || report.Upserted != 1 {
		t.Errorf("unexpected report %+v", report)
	}

	// The primary write and the healthy sibling both landed.
	if _, err := healthy.GetProject(ctx, "widget-builder"); err != nil {
		t.Errorf("primary save missing: %v", err)
	}
	good, err := healthy.GetPost(ctx, "post-good")
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if len(good.RelatedProjects) != 1 {
		t.Errorf("sibling fan-out missing: %+v", good.RelatedProjects)
	}
}

func TestPostSaveSyncsAcrossThreeCollections(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	mustSaveProject(t, repo, &Project{Title: "Widget Builder"})
	mustSaveExperience(t, repo, &Experience{ID: "exp-1", Title: "Acme"})
	if _, err := repo.SaveEducation(ctx, &Education{ID: "edu-1", Title: "State U"}); err != nil {
		t.Fatalf("SaveEducation() error = %v", err)
	}

	post := &Post{
		Title:             "Launch notes",
		Slug:              "launch-notes",
		RelatedProjects:   []RelatedItemStub{stubRef("widget-builder", KindProject)},
		RelatedExperience: []RelatedItemStub{stubRef("exp-1", KindExperience)},
		RelatedEducation:  []RelatedItemStub{stubRef("edu-1", KindEducation)},
	}
	report := mustSavePost(t, repo, post)
	if post.ID == "" {
		t.Fatal("expected generated post id")
	}
	if report.Upserted != 3 {
		t.Errorf("expected 3 upserts, got %+v", report)
	}

	proj, _ := repo.GetProject(ctx, "widget-builder")
	exp, _ := repo.GetExperience(ctx, "exp-1")
	edu, _ := repo.GetEducation(ctx, "edu-1")
	for name, stubs := range map[string][]RelatedItemStub{
		"project":    proj.RelatedPosts,
		"experience": exp.RelatedPosts,
		"education":  edu.RelatedPosts,
	} {
		if len(stubs) != 1 || stubs[0].ID != post.ID || stubs[0].Type != KindPost {
			t.Errorf("%s reverse array wrong: %+v", name, stubs)
		}
		if stubs[0].URL != "/posts/launch-notes" {
			t.Errorf("%s stub url = %q", name, stubs[0].URL)
		}
	}
}
