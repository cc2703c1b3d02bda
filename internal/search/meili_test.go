package search

import "testing"

func TestBuildSearchRequestsCarryQueryText(t *testing.T) {
	requests := buildSearchRequests(Query{Text: "widget"})
	if len(requests) != 2 {
		t.Fatalf("expected one request per index, got %d", len(requests))
	}
	for _, req := range requests {
		if req.Query != "widget" {
			t.Fatalf("request for %s has query %q, want %q", req.IndexUID, req.Query, "widget")
		}
		if req.Limit != 20 {
			t.Fatalf("default limit = %d, want 20", req.Limit)
		}
	}
}

func TestBuildSearchRequestsFilterByType(t *testing.T) {
	requests := buildSearchRequests(Query{Text: "go", FilterType: ResultPost})
	if len(requests) != 1 {
		t.Fatalf("expected only the posts index, got %d requests", len(requests))
	}
	if requests[0].IndexUID != idxPosts {
		t.Fatalf("IndexUID = %q, want %q", requests[0].IndexUID, idxPosts)
	}

	if got := buildSearchRequests(Query{Text: "go", FilterType: "widget"}); len(got) != 0 {
		t.Fatalf("unknown type should match no index, got %d requests", len(got))
	}
}

func TestBuildSearchRequestsTagFilterAndPaging(t *testing.T) {
	requests := buildSearchRequests(Query{Text: "go", FilterTag: "web", Limit: 5, Offset: 10})
	for _, req := range requests {
		filter, ok := req.Filter.([]string)
		if !ok || len(filter) != 1 || filter[0] != `tags = "web"` {
			t.Fatalf("filter = %v", req.Filter)
		}
		if req.Limit != 5 || req.Offset != 10 {
			t.Fatalf("paging = limit %d offset %d", req.Limit, req.Offset)
		}
	}
}
