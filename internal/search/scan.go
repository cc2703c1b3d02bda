package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"folio/api/internal/content"
)

// Scan is the fallback searcher: it lists entities from the document
// store and substring-matches in process. Fine at portfolio scale,
// where collections hold tens of documents, not millions.
type Scan struct {
	repo *content.Repository
}

func NewScan(repo *content.Repository) *Scan {
	return &Scan{repo: repo}
}

// Healthy is always true; the scan has no external dependency beyond
// the store itself.
func (s *Scan) Healthy() bool {
	return true
}

// Search walks posts and projects looking for case-insensitive
// substring matches.
func (s *Scan) Search(q Query) ([]Result, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	var results []Result

	if q.FilterType == "" || q.FilterType == ResultPost {
		posts, err := s.repo.ListPosts(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("scan posts: %w", err)
		}
		for _, p := range posts {
			if q.FilterTag != "" && !containsFold(p.Tags, q.FilterTag) {
				continue
			}
			if needle != "" && !matchesAny(needle, p.Title, p.Excerpt, p.Content, strings.Join(p.Tags, " ")) {
				continue
			}
			results = append(results, Result{
				Type:    ResultPost,
				ID:      p.ID,
				Title:   p.Title,
				Snippet: p.Excerpt,
				Slug:    p.Slug,
				URL:     "/posts/" + p.Slug,
			})
		}
	}

	if q.FilterType == "" || q.FilterType == ResultProject {
		projects, err := s.repo.ListProjects(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("scan projects: %w", err)
		}
		for _, p := range projects {
			if q.FilterTag != "" && !containsFold(p.Tags, q.FilterTag) {
				continue
			}
			if needle != "" && !matchesAny(needle, p.Title, p.Subtitle, p.Description, strings.Join(p.Tags, " ")) {
				continue
			}
			results = append(results, Result{
				Type:    ResultProject,
				ID:      p.ID,
				Title:   p.Title,
				Snippet: p.Description,
				Slug:    p.Slug,
				URL:     p.Link,
			})
		}
	}

	total := len(results)
	results = page(results, q.Offset, q.Limit)
	return results, total, nil
}

func matchesAny(needle string, haystacks ...string) bool {
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func page(results []Result, offset, limit int) []Result {
	if offset >= len(results) {
		return nil
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}
