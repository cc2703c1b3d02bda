// Package content holds the portfolio entity model and the engine that
// keeps denormalized relation stubs consistent across collections.
package content

import "encoding/json"

// Kind tags the entity kinds that participate in relations. The tag
// values double as the `type` field carried by every stub.
type Kind string

const (
	KindProject    Kind = "project"
	KindPost       Kind = "post"
	KindExperience Kind = "experience"
	KindEducation  Kind = "education"
)

// Collection names in the document store.
const (
	ColProjects        = "projects"
	ColPosts           = "posts"
	ColExperiences     = "experiences"
	ColEducations      = "educations"
	ColAchievements    = "achievements"
	ColRecommendations = "recommendations"
	ColSettings        = "settings"
)

// Settings document IDs.
const (
	DocHero = "hero"
	DocTags = "tags"
)

// Collection returns the store collection for a kind, or "" for an
// unknown tag (tolerated: stubs with bad type tags are skipped).
func (k Kind) Collection() string {
	switch k {
	case KindProject:
		return ColProjects
	case KindPost:
		return ColPosts
	case KindExperience:
		return ColExperiences
	case KindEducation:
		return ColEducations
	}
	return ""
}

// kindOf maps relatable collections back to their kind.
var kindOf = map[string]Kind{
	ColProjects:    KindProject,
	ColPosts:       KindPost,
	ColExperiences: KindExperience,
	ColEducations:  KindEducation,
}

// declaredRelations is the adjacency table: the relation fields each
// kind maintains on its own document. The counterpart collection of
// each referenced stub comes from the stub's own type tag.
var declaredRelations = map[Kind][]string{
	KindPost:       {"relatedProjects", "relatedExperience", "relatedEducation"},
	KindProject:    {"relatedPosts", "relatedExperience", "relatedEducation"},
	KindExperience: {"relatedPosts", "relatedProjects"},
	KindEducation:  {"relatedPosts", "relatedProjects"},
}

// reverseField names the array on a counterpart document that holds
// stubs of the given source kind. Fixed mapping, never inferred.
var reverseField = map[Kind]string{
	KindProject:    "relatedProjects",
	KindPost:       "relatedPosts",
	KindExperience: "relatedExperience",
	KindEducation:  "relatedEducation",
}

// RelatedItemStub is the denormalized snapshot of a counterpart entity
// embedded in relation arrays. Intentionally stale: refreshed only when
// the source entity is re-saved.
type RelatedItemStub struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Excerpt    string `json:"excerpt,omitempty"`
	Date       string `json:"date,omitempty"`
	SmallImage string `json:"smallImage,omitempty"`
	CoverImage string `json:"coverImage,omitempty"`
	Type       Kind   `json:"type"`
	Featured   *int   `json:"featured,omitempty"`
	SortOrder  int    `json:"sortOrder"`
}

type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Icon  string `json:"icon,omitempty"`
}

type GalleryItem struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

type ChangelogEntry struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

type RoadmapItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

type Project struct {
	ID                string            `json:"id,omitempty"`
	Title             string            `json:"title"`
	Subtitle          string            `json:"subtitle,omitempty"`
	Description       string            `json:"description"`
	Tags              []string          `json:"tags,omitempty"`
	Image             string            `json:"image,omitempty"`
	SmallImage        string            `json:"smallImage,omitempty"`
	Gallery           []GalleryItem     `json:"gallery,omitempty"`
	Link              string            `json:"link,omitempty"`
	URLs              []Link            `json:"urls,omitempty"`
	GithubURL         string            `json:"githubUrl,omitempty"`
	Featured          int               `json:"featured"`
	SortOrder         *int              `json:"sortOrder,omitempty"`
	Date              string            `json:"date,omitempty"`
	Status            string            `json:"status,omitempty"`
	Slug              string            `json:"slug,omitempty"`
	Changelog         []ChangelogEntry  `json:"changelog,omitempty"`
	Roadmap           []RoadmapItem     `json:"roadmap,omitempty"`
	RelatedPosts      []RelatedItemStub `json:"relatedPosts,omitempty"`
	RelatedExperience []RelatedItemStub `json:"relatedExperience,omitempty"`
	RelatedEducation  []RelatedItemStub `json:"relatedEducation,omitempty"`
}

type Post struct {
	ID                string            `json:"id,omitempty"`
	Title             string            `json:"title"`
	Slug              string            `json:"slug"`
	Tags              []string          `json:"tags,omitempty"`
	Excerpt           string            `json:"excerpt,omitempty"`
	Content           string            `json:"content,omitempty"`
	Date              string            `json:"date,omitempty"`
	CoverImage        string            `json:"coverImage,omitempty"`
	SmallImage        string            `json:"smallImage,omitempty"`
	Status            string            `json:"status,omitempty"`
	RelatedProjects   []RelatedItemStub `json:"relatedProjects,omitempty"`
	RelatedExperience []RelatedItemStub `json:"relatedExperience,omitempty"`
	RelatedEducation  []RelatedItemStub `json:"relatedEducation,omitempty"`
}

type Experience struct {
	ID              string            `json:"id,omitempty"`
	Title           string            `json:"title"`
	WorkTitle       string            `json:"workTitle,omitempty"`
	Description     string            `json:"description,omitempty"`
	Years           string            `json:"years,omitempty"`
	Image           string            `json:"image,omitempty"`
	SortOrder       *int              `json:"sortOrder,omitempty"`
	URLs            []Link            `json:"urls,omitempty"`
	RelatedPosts    []RelatedItemStub `json:"relatedPosts,omitempty"`
	RelatedProjects []RelatedItemStub `json:"relatedProjects,omitempty"`
}

type Education struct {
	ID              string            `json:"id,omitempty"`
	Title           string            `json:"title"`
	Department      string            `json:"department,omitempty"`
	Years           string            `json:"years,omitempty"`
	GPA             string            `json:"gpa,omitempty"`
	SortOrder       *int              `json:"sortOrder,omitempty"`
	URLs            []Link            `json:"urls,omitempty"`
	RelatedPosts    []RelatedItemStub `json:"relatedPosts,omitempty"`
	RelatedProjects []RelatedItemStub `json:"relatedProjects,omitempty"`
}

type Achievement struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	SortOrder   *int   `json:"sortOrder,omitempty"`
	Date        string `json:"date,omitempty"`
}

// Recommendation statuses.
const (
	RecommendationDraft     = "draft"
	RecommendationPublished = "published"
)

type Recommendation struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Thought     string `json:"thought"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	LinkedinURL string `json:"linkedinUrl,omitempty"`
	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
}

type HeroSocials struct {
	Github   string `json:"github,omitempty"`
	Linkedin string `json:"linkedin,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Hero is the singleton profile document at settings/hero.
type Hero struct {
	Greeting    string      `json:"greeting,omitempty"`
	Role        string      `json:"role,omitempty"`
	Description string      `json:"description,omitempty"`
	ResumeURL   string      `json:"resumeUrl,omitempty"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	FullName    string      `json:"fullName,omitempty"`
	LogoText    string      `json:"logoText,omitempty"`
	Tagline     string      `json:"tagline,omitempty"`
	Socials     HeroSocials `json:"socials"`
}

// TagSet is the singleton registry at settings/tags. It accumulates
// tags from every post save and is never pruned.
type TagSet struct {
	Values []string `json:"values"`
}

// relatable is implemented by the four kinds that declare relations.
type relatable interface {
	entityID() string
	setEntityID(id string)
	entityKind() Kind
	stub() RelatedItemStub
	sortOrderValue() *int
	setSortOrderValue(n int)
}

func (p *Project) entityID() string        { return p.ID }
func (p *Project) setEntityID(id string)   { p.ID = id }
func (p *Project) entityKind() Kind        { return KindProject }
func (p *Project) sortOrderValue() *int    { return p.SortOrder }
func (p *Project) setSortOrderValue(n int) { p.SortOrder = &n }

func (p *Post) entityID() string      { return p.ID }
func (p *Post) setEntityID(id string) { p.ID = id }
func (p *Post) entityKind() Kind      { return KindPost }
func (p *Post) sortOrderValue() *int  { return nil }

// Posts are ordered by date, not by hand; there is nothing to assign.
func (p *Post) setSortOrderValue(int) {}

func (e *Experience) entityID() string        { return e.ID }
func (e *Experience) setEntityID(id string)   { e.ID = id }
func (e *Experience) entityKind() Kind        { return KindExperience }
func (e *Experience) sortOrderValue() *int    { return e.SortOrder }
func (e *Experience) setSortOrderValue(n int) { e.SortOrder = &n }

func (e *Education) entityID() string        { return e.ID }
func (e *Education) setEntityID(id string)   { e.ID = id }
func (e *Education) entityKind() Kind        { return KindEducation }
func (e *Education) sortOrderValue() *int    { return e.SortOrder }
func (e *Education) setSortOrderValue(n int) { e.SortOrder = &n }

func (a *Achievement) setEntityID(id string)    { a.ID = id }
func (r *Recommendation) setEntityID(id string) { r.ID = id }

// flattenRelations collects every declared relation stub of a raw
// document into one ordered sequence. A nil or malformed document (or
// field) flattens to nothing.
func flattenRelations(kind Kind, raw json.RawMessage) []RelatedItemStub {
	if raw == nil {
		return nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	var refs []RelatedItemStub
	for _, field := range declaredRelations[kind] {
		data, ok := doc[field]
		if !ok {
			continue
		}
		var list []RelatedItemStub
		if err := json.Unmarshal(data, &list); err != nil {
			continue
		}
		refs = append(refs, list...)
	}
	return refs
}
