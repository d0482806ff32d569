package session

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/content"
	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/jonathan/resume-builder/internal/types"
)

// Refiner improves a block of resume text.
type Refiner interface {
	Refine(ctx context.Context, text string) (string, error)
}

// Summarizer drafts a professional summary.
type Summarizer interface {
	GenerateSummary(ctx context.Context, experience []types.Experience, skills []types.Skill) (string, error)
}

// Session is one user's editing context. All methods are safe for
// concurrent use; edits are applied one at a time in arrival order.
type Session struct {
	ID    uuid.UUID
	Owner uuid.UUID

	mu          sync.Mutex
	doc         types.Document
	refining    map[string]bool
	summarizing bool
	exporting   bool
	createdAt   time.Time
	touchedAt   time.Time
	now         func() time.Time
}

// New creates a session for owner holding doc.
func New(id uuid.UUID, owner types.Identity, doc types.Document) *Session {
	return newSession(id, owner.ID, doc, time.Now)
}

func newSession(id, owner uuid.UUID, doc types.Document, now func() time.Time) *Session {
	t := now()
	return &Session{
		ID:        id,
		Owner:     owner,
		doc:       doc.Normalize(),
		refining:  make(map[string]bool),
		createdAt: t,
		touchedAt: t,
		now:       now,
	}
}

// Document returns a copy of the current document.
func (s *Session) Document() types.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Replace swaps in a whole new document, e.g. after an import.
func (s *Session) Replace(doc types.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Normalize()
	s.touch()
}

// SetField applies a single field edit. Unlike resume.SetField, an index
// past the end of the list is reported as ErrIndexOutOfRange.
func (s *Session) SetField(section types.Section, index *int, field, value string) (types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index != nil {
		if !section.IsList() {
			return s.doc.Clone(), &resume.SectionError{Section: string(section), Op: "set field"}
		}
		if *index < 0 || *index >= listLen(s.doc, section) {
			return s.doc.Clone(), ErrIndexOutOfRange
		}
	}

	doc, err := resume.SetField(s.doc, section, index, field, value)
	if err != nil {
		return s.doc.Clone(), err
	}
	s.doc = doc
	s.touch()
	return s.doc.Clone(), nil
}

// SetTemplate changes the presentation template.
func (s *Session) SetTemplate(tmpl types.Template) (types.Document, error) {
	return s.SetField(types.SectionTemplate, nil, "", string(tmpl))
}

// AddEntry appends an entry to a list section.
func (s *Session) AddEntry(section types.Section, fields map[string]string) (types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := resume.AddEntry(s.doc, section, fields)
	if err != nil {
		return s.doc.Clone(), err
	}
	s.doc = doc
	s.touch()
	return s.doc.Clone(), nil
}

// RemoveEntry deletes an entry by id. Unknown ids are a no-op.
func (s *Session) RemoveEntry(section types.Section, id string) (types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := resume.RemoveEntry(s.doc, section, id)
	if err != nil {
		return s.doc.Clone(), err
	}
	s.doc = doc
	s.touch()
	return s.doc.Clone(), nil
}

// RefineExperience sends the description of experience entry id to the
// refiner and writes the result back to the same entry.
//
// The lock is not held during the call, so other edits proceed. The result
// is applied to whatever position the entry occupies when the call returns;
// if the entry was removed in the meantime the result is dropped and
// Applied is false.
func (s *Session) RefineExperience(ctx context.Context, refiner Refiner, id string) (types.RefineResult, error) {
	result := types.RefineResult{EntryID: id}

	s.mu.Lock()
	i, ok := resume.FindExperience(s.doc, id)
	if !ok {
		s.mu.Unlock()
		return result, ErrEntryNotFound
	}
	text := s.doc.Experience[i].Description
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return result, content.ErrEmptyContent
	}
	if s.refining[id] {
		s.mu.Unlock()
		return result, ErrRefineInProgress
	}
	s.refining[id] = true
	s.mu.Unlock()

	refined, err := refiner.Refine(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refining, id)

	if err != nil {
		return result, err
	}
	result.RefinedText = refined

	i, ok = resume.FindExperience(s.doc, id)
	if !ok {
		log.Printf("[REFINE] Entry %s removed during refinement, discarding result", id)
		return result, nil
	}
	doc, err := resume.SetField(s.doc, types.SectionExperience, &i, "description", refined)
	if err != nil {
		return result, err
	}
	s.doc = doc
	s.touch()
	result.Applied = true
	return result, nil
}

// IsRefining reports whether entry id has a refinement in flight.
func (s *Session) IsRefining(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refining[id]
}

// RefiningIDs lists the entries with a refinement in flight, sorted.
func (s *Session) RefiningIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.refining))
	for id := range s.refining {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GenerateSummary drafts a summary from the current experience and skills
// and stores it in the document.
func (s *Session) GenerateSummary(ctx context.Context, summarizer Summarizer) (string, error) {
	s.mu.Lock()
	if s.summarizing {
		s.mu.Unlock()
		return "", ErrSummaryInProgress
	}
	snapshot := s.doc.Clone()
	s.summarizing = true
	s.mu.Unlock()

	summary, err := summarizer.GenerateSummary(ctx, snapshot.Experience, snapshot.Skills)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.summarizing = false
	if err != nil {
		return "", err
	}
	s.doc.Summary = summary
	s.touch()
	return summary, nil
}

// BeginExport marks the session as exporting and returns the document to
// export. Call EndExport when done.
func (s *Session) BeginExport() (types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return types.Document{}, ErrExportInProgress
	}
	s.exporting = true
	s.touch()
	return s.doc.Clone(), nil
}

// EndExport clears the exporting flag.
func (s *Session) EndExport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exporting = false
}

// IsExporting reports whether an export is running.
func (s *Session) IsExporting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exporting
}

// Status is a point-in-time view of the session flags.
type Status struct {
	ID          uuid.UUID `json:"id"`
	Refining    []string  `json:"refining"`
	Summarizing bool      `json:"summarizing"`
	Exporting   bool      `json:"exporting"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Status returns the current flags.
func (s *Session) Status() Status {
	ids := s.RefiningIDs()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ID:          s.ID,
		Refining:    ids,
		Summarizing: s.summarizing,
		Exporting:   s.exporting,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.touchedAt,
	}
}

// busy reports whether any asynchronous work is outstanding. Caller holds mu.
func (s *Session) busy() bool {
	return len(s.refining) > 0 || s.summarizing || s.exporting
}

// touch records activity. Caller holds mu.
func (s *Session) touch() {
	s.touchedAt = s.now()
}

func listLen(doc types.Document, section types.Section) int {
	switch section {
	case types.SectionExperience:
		return len(doc.Experience)
	case types.SectionEducation:
		return len(doc.Education)
	case types.SectionSkills:
		return len(doc.Skills)
	}
	return 0
}
