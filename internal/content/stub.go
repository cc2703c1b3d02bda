package content

// Stub projection: one pure function per kind deriving the denormalized
// snapshot that gets embedded in counterpart relation arrays. Field
// mappings are kind-specific and deliberately asymmetric (see each
// function); calling them repeatedly on the same entity yields
// deep-equal results.

// unrankedSortOrder is projected when an entity has no manual order so
// its stubs sort after every ranked one.
const unrankedSortOrder = 999

func intPtr(n int) *int { return &n }

func (p *Post) stub() RelatedItemStub {
	small := p.SmallImage
	if small == "" {
		small = p.CoverImage
	}
	return RelatedItemStub{
		ID:         p.ID,
		Title:      p.Title,
		URL:        "/posts/" + p.Slug,
		Excerpt:    p.Excerpt,
		Date:       p.Date,
		SmallImage: small,
		CoverImage: p.CoverImage,
		Type:       KindPost,
		SortOrder:  0,
	}
}

func (p *Project) stub() RelatedItemStub {
	small := p.SmallImage
	if small == "" {
		small = p.Image
	}
	order := unrankedSortOrder
	if p.SortOrder != nil {
		order = *p.SortOrder
	}
	return RelatedItemStub{
		ID:         p.ID,
		Title:      p.Title,
		URL:        p.Link,
		Excerpt:    truncate(p.Description, 100),
		SmallImage: small,
		CoverImage: p.Image,
		Type:       KindProject,
		Featured:   intPtr(p.Featured),
		SortOrder:  order,
	}
}

func (e *Experience) stub() RelatedItemStub {
	order := unrankedSortOrder
	if e.SortOrder != nil {
		order = *e.SortOrder
	}
	return RelatedItemStub{
		ID:        e.ID,
		Title:     e.Title,
		URL:       "/experience",
		Excerpt:   e.WorkTitle,
		Type:      KindExperience,
		Featured:  intPtr(0),
		SortOrder: order,
	}
}

func (e *Education) stub() RelatedItemStub {
	order := unrankedSortOrder
	if e.SortOrder != nil {
		order = *e.SortOrder
	}
	return RelatedItemStub{
		ID:        e.ID,
		Title:     e.Title,
		URL:       "/education",
		Excerpt:   e.Department,
		Type:      KindEducation,
		Featured:  intPtr(0),
		SortOrder: order,
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
