package search

import (
	"context"
	"testing"

	"folio/api/internal/content"
	"folio/api/internal/store"
)

func seedScan(t *testing.T) *Scan {
	t.Helper()
	repo := content.NewRepository(store.NewMemory())
	ctx := context.Background()

	if _, err := repo.SavePost(ctx, &content.Post{
		Title:   "Building a widget pipeline",
		Slug:    "widget-pipeline",
		Excerpt: "Notes on the pipeline",
		Content: "The pipeline moves widgets end to end.",
		Tags:    []string{"go", "infra"},
	}); err != nil {
		t.Fatalf("SavePost() error = %v", err)
	}
	if _, err := repo.SaveProject(ctx, &content.Project{
		Title:       "Widget Builder",
		Description: "A visual builder for widgets",
		Tags:        []string{"tooling"},
		Link:        "https://widgets.example.com",
	}); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	return NewScan(repo)
}

func TestScanMatchesAcrossTypes(t *testing.T) {
	scan := seedScan(t)

	results, total, err := scan.Search(Query{Text: "widget"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 2 || len(results) != 2 {
		t.Fatalf("expected 2 hits, got total=%d results=%d", total, len(results))
	}
}

func TestScanFiltersByType(t *testing.T) {
	scan := seedScan(t)

	results, _, err := scan.Search(Query{Text: "widget", FilterType: ResultProject})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Type != ResultProject {
		t.Fatalf("expected one project hit, got %+v", results)
	}
	if results[0].URL != "https://widgets.example.com" {
		t.Errorf("project url = %q", results[0].URL)
	}
}

func TestScanFiltersByTag(t *testing.T) {
	scan := seedScan(t)

	results, _, err := scan.Search(Query{FilterTag: "infra"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Type != ResultPost {
		t.Fatalf("expected one post hit for tag, got %+v", results)
	}
}

func TestScanCaseInsensitive(t *testing.T) {
	scan := seedScan(t)

	results, _, err := scan.Search(Query{Text: "WIDGET BUILDER"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "widget-builder" {
		t.Fatalf("expected the project, got %+v", results)
	}
}

func TestScanPagination(t *testing.T) {
	scan := seedScan(t)

	results, total, err := scan.Search(Query{Text: "widget", Limit: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 2 || len(results) != 1 {
		t.Fatalf("expected total 2 with 1 page item, got total=%d results=%d", total, len(results))
	}

	rest, _, err := scan.Search(Query{Text: "widget", Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(rest) != 1 || rest[0].ID == results[0].ID {
		t.Fatalf("expected a different second page, got %+v", rest)
	}
}
