package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"folio/api/internal/auth"
	"folio/api/internal/authpw"
	"folio/api/internal/config"
	"folio/api/internal/content"
	"folio/api/internal/email"
	"folio/api/internal/search"
	"folio/api/internal/session"
	"folio/api/internal/snapshot"
	"folio/api/internal/store"
	"folio/api/internal/upload"
	"folio/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	Email        string
	Name         string
	JTI          string
	ExpiresAt    time.Time
}

// Service is the application layer: it wires the content engine to
// auth, search, uploads, snapshots and notifications. Optional
// dependencies (search, uploads, snapshots, email) may be nil; the
// operations that need them answer 503.
type Service struct {
	cfg       config.Config
	content   *content.Repository
	sessions  session.Store
	creds     *authpw.Service
	search    *search.Service
	uploads   *upload.Service
	snapshots *snapshot.Service
	email     *email.Service
}

func New(cfg config.Config, repo *content.Repository, sessions session.Store, creds *authpw.Service) *Service {
	return &Service{
		cfg:      cfg,
		content:  repo,
		sessions: sessions,
		creds:    creds,
	}
}

func (s *Service) WithSearch(svc *search.Service) *Service { s.search = svc; return s }

func (s *Service) WithUploads(svc *upload.Service) *Service { s.uploads = svc; return s }

func (s *Service) WithSnapshots(svc *snapshot.Service) *Service { s.snapshots = svc; return s }

func (s *Service) WithEmail(svc *email.Service) *Service { s.email = svc; return s }

func (s *Service) Ping(ctx context.Context) error {
	return s.content.Ping(ctx)
}

// Bootstrap pushes the current store content into the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.search == nil {
		return nil
	}
	posts, err := s.content.ListPosts(ctx)
	if err != nil {
		return err
	}
	projects, err := s.content.ListProjects(ctx)
	if err != nil {
		return err
	}
	postRecords := make([]search.PostRecord, 0, len(posts))
	for _, p := range posts {
		postRecords = append(postRecords, postRecord(p))
	}
	projectRecords := make([]search.ProjectRecord, 0, len(projects))
	for _, p := range projects {
		projectRecords = append(projectRecords, projectRecord(p))
	}
	s.search.ReindexAll(postRecords, projectRecords)
	return nil
}

// --- sessions ---

func (s *Service) Login(ctx context.Context, emailAddr, password string) (Session, error) {
	admin, err := s.creds.Verify(emailAddr, password)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, session.Identity{Email: admin.Email, Name: admin.Name})
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	identity, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, identity)
}

func (s *Service) issueSession(ctx context.Context, identity session.Identity) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  identity.Email,
		Name: identity.Name,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), identity, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		Email:        identity.Email,
		Name:         identity.Name,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		Email:     claims.Sub,
		Name:      claims.Name,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// --- public reads ---

func (s *Service) ListProjects(ctx context.Context) ([]content.Project, error) {
	return s.content.ListProjects(ctx)
}

func (s *Service) GetProjectBySlug(ctx context.Context, slug string) (content.Project, error) {
	return s.content.GetProjectBySlug(ctx, slug)
}

func (s *Service) ListPosts(ctx context.Context) ([]content.Post, error) {
	return s.content.ListPosts(ctx)
}

func (s *Service) GetPostBySlug(ctx context.Context, slug string) (content.Post, error) {
	return s.content.GetPostBySlug(ctx, slug)
}

func (s *Service) ListExperiences(ctx context.Context) ([]content.Experience, error) {
	return s.content.ListExperiences(ctx)
}

func (s *Service) ListEducations(ctx context.Context) ([]content.Education, error) {
	return s.content.ListEducations(ctx)
}

func (s *Service) ListAchievements(ctx context.Context) ([]content.Achievement, error) {
	return s.content.ListAchievements(ctx)
}

func (s *Service) ListRecommendations(ctx context.Context, includeDrafts bool) ([]content.Recommendation, error) {
	return s.content.ListRecommendations(ctx, includeDrafts)
}

func (s *Service) Hero(ctx context.Context) (content.Hero, error) {
	return s.content.Hero(ctx)
}

func (s *Service) Tags(ctx context.Context) ([]string, error) {
	return s.content.Tags(ctx)
}

// Search runs a full-text query. Without a search service it answers
// with an empty result set rather than an error.
func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// --- admin writes ---

func (s *Service) SaveProject(ctx context.Context, p *content.Project) (content.SyncReport, error) {
	report, err := s.content.SaveProject(ctx, p)
	if err != nil {
		return content.SyncReport{}, err
	}
	if s.search != nil {
		s.search.IndexProject(projectRecord(*p))
	}
	return report, nil
}

func (s *Service) SavePost(ctx context.Context, p *content.Post) (content.SyncReport, error) {
	report, err := s.content.SavePost(ctx, p)
	if err != nil {
		return content.SyncReport{}, err
	}
	if s.search != nil {
		s.search.IndexPost(postRecord(*p))
	}
	return report, nil
}

func (s *Service) SaveExperience(ctx context.Context, e *content.Experience) (content.SyncReport, error) {
	return s.content.SaveExperience(ctx, e)
}

func (s *Service) SaveEducation(ctx context.Context, e *content.Education) (content.SyncReport, error) {
	return s.content.SaveEducation(ctx, e)
}

func (s *Service) SaveAchievement(ctx context.Context, a *content.Achievement) error {
	return s.content.SaveAchievement(ctx, a)
}

func (s *Service) SaveHero(ctx context.Context, hero content.Hero) error {
	return s.content.SaveHero(ctx, hero)
}

// DeleteEntity removes a document and cascades stub removal. The
// search index is kept in step for posts and projects.
func (s *Service) DeleteEntity(ctx context.Context, collection, id string) error {
	if !deletableCollections[collection] {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Unknown collection", nil)
	}
	if err := s.content.DeleteWithRelations(ctx, collection, id); err != nil {
		return err
	}
	if s.search != nil {
		switch collection {
		case content.ColPosts:
			s.search.DeletePost(id)
		case content.ColProjects:
			s.search.DeleteProject(id)
		}
	}
	return nil
}

var deletableCollections = map[string]bool{
	content.ColProjects:        true,
	content.ColPosts:           true,
	content.ColExperiences:     true,
	content.ColEducations:      true,
	content.ColAchievements:    true,
	content.ColRecommendations: true,
}

var reorderableCollections = map[string]bool{
	content.ColProjects:     true,
	content.ColExperiences:  true,
	content.ColEducations:   true,
	content.ColAchievements: true,
}

func (s *Service) Reorder(ctx context.Context, collection string, items []store.OrderUpdate) error {
	if !reorderableCollections[collection] {
		return validationError(fmt.Sprintf("collection %q cannot be reordered", collection))
	}
	return s.content.Reorder(ctx, collection, items)
}

// --- recommendations ---

// SubmitRecommendation records a public submission and notifies the
// admin when SMTP is configured. The notification is best effort.
func (s *Service) SubmitRecommendation(ctx context.Context, name, thought string) (string, error) {
	if name == "" || thought == "" {
		return "", validationError("name and thought are required")
	}
	id, err := s.content.AddRecommendation(ctx, name, thought)
	if err != nil {
		return "", err
	}
	if s.email != nil && s.email.IsConfigured() && s.cfg.AdminEmail != "" {
		go func() {
			if err := s.email.SendRecommendationNotice(s.cfg.AdminEmail, name, thought, ""); err != nil {
				log.Printf("app: recommendation notice: %v", err)
			}
		}()
	}
	return id, nil
}

func (s *Service) SaveRecommendation(ctx context.Context, rec *content.Recommendation) error {
	return s.content.SaveRecommendation(ctx, rec)
}

func (s *Service) SetRecommendationStatus(ctx context.Context, id, status string) error {
	err := s.content.SetRecommendationStatus(ctx, id, status)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return validationError(err.Error())
	}
	return err
}

// --- uploads ---

func (s *Service) Upload(ctx context.Context, filename, contentType string, size int64, r io.Reader) (upload.UploadedFile, error) {
	if s.uploads == nil {
		return upload.UploadedFile{}, unavailableError("UPLOADS_UNAVAILABLE", "Object storage not configured")
	}
	return s.uploads.Store(ctx, filename, contentType, size, r)
}

// --- snapshots ---

// Snapshot exports every collection into the snapshot repository.
func (s *Service) Snapshot(ctx context.Context, author, message string) (snapshot.CommitInfo, error) {
	if s.snapshots == nil {
		return snapshot.CommitInfo{}, unavailableError("SNAPSHOTS_UNAVAILABLE", "Snapshots not configured")
	}
	files, err := s.content.Export(ctx)
	if err != nil {
		return snapshot.CommitInfo{}, err
	}
	if message == "" {
		message = "Export content"
	}
	if author == "" {
		author = s.cfg.AdminName
	}
	commit, err := s.snapshots.Commit(files, author, message)
	if errors.Is(err, snapshot.ErrNoChanges) {
		return snapshot.CommitInfo{}, domainError(http.StatusConflict, "NO_CHANGES", "Nothing changed since the last snapshot", nil)
	}
	return commit, err
}

func (s *Service) SnapshotHistory(limit int) ([]snapshot.CommitInfo, error) {
	if s.snapshots == nil {
		return nil, unavailableError("SNAPSHOTS_UNAVAILABLE", "Snapshots not configured")
	}
	return s.snapshots.History(limit)
}

func postRecord(p content.Post) search.PostRecord {
	return search.PostRecord{
		ID:      p.ID,
		Title:   p.Title,
		Slug:    p.Slug,
		Excerpt: p.Excerpt,
		Content: p.Content,
		Tags:    p.Tags,
		Status:  p.Status,
	}
}

func projectRecord(p content.Project) search.ProjectRecord {
	return search.ProjectRecord{
		ID:          p.ID,
		Title:       p.Title,
		Subtitle:    p.Subtitle,
		Description: p.Description,
		Tags:        p.Tags,
		URL:         p.Link,
	}
}
