// Package types provides type definitions for structured data used throughout the resume-builder system.
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnknownTemplate is returned for a template name outside Templates.
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrDuplicateID is returned when two entries of one list share an id.
	ErrDuplicateID = errors.New("duplicate id")
)

// Template selects the visual layout used to present a Document.
type Template string

// Template constants define the supported presentation templates
const (
	TemplateStandard Template = "standard"
	TemplateModern   Template = "modern"
	TemplateClassic  Template = "classic"
)

// Templates lists every valid template in display order.
var Templates = []Template{TemplateStandard, TemplateModern, TemplateClassic}

// ParseTemplate converts a raw string into a Template, rejecting unknown values.
func ParseTemplate(s string) (Template, error) {
	t := Template(strings.TrimSpace(s))
	if t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("%w %q (must be one of standard, modern, classic)", ErrUnknownTemplate, s)
}

// Valid reports whether t is one of the enumerated templates.
func (t Template) Valid() bool {
	switch t {
	case TemplateStandard, TemplateModern, TemplateClassic:
		return true
	}
	return false
}

// Section names a top-level part of the Document addressed by edits.
type Section string

// Section constants
const (
	SectionPersonalInfo Section = "personalInfo"
	SectionSummary      Section = "summary"
	SectionTemplate     Section = "template"
	SectionExperience   Section = "experience"
	SectionEducation    Section = "education"
	SectionSkills       Section = "skills"
)

// IsList reports whether the section holds identified entries.
func (s Section) IsList() bool {
	return s == SectionExperience || s == SectionEducation || s == SectionSkills
}

// PersonalInfo holds the contact block of a resume. Empty strings mean unset.
type PersonalInfo struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	LinkedIn       string `json:"linkedin"`
	Website        string `json:"website"`
	ProfilePicture string `json:"profilePicture"`
}

// Experience is a single work history entry.
type Experience struct {
	ID          string `json:"id" validate:"required"`
	Company     string `json:"company"`
	Role        string `json:"role"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

// Education is a single education entry.
type Education struct {
	ID          string `json:"id" validate:"required"`
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// Skill is a single named skill.
type Skill struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// Document is the complete in-memory resume.
type Document struct {
	PersonalInfo PersonalInfo `json:"personalInfo"`
	Summary      string       `json:"summary"`
	Experience   []Experience `json:"experience" validate:"dive"`
	Education    []Education  `json:"education" validate:"dive"`
	Skills       []Skill      `json:"skills" validate:"dive"`
	Template     Template     `json:"template" validate:"required,oneof=standard modern classic"`
}

// UnknownFieldError is returned when an edit names a field the record does not have.
type UnknownFieldError struct {
	Record string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q on %s", e.Field, e.Record)
}

// With returns a copy of p with field replaced by value.
func (p PersonalInfo) With(field, value string) (PersonalInfo, error) {
	switch field {
	case "name":
		p.Name = value
	case "email":
		p.Email = value
	case "phone":
		p.Phone = value
	case "address":
		p.Address = value
	case "linkedin":
		p.LinkedIn = value
	case "website":
		p.Website = value
	case "profilePicture":
		p.ProfilePicture = value
	default:
		return p, &UnknownFieldError{Record: "personalInfo", Field: field}
	}
	return p, nil
}

// With returns a copy of e with field replaced by value. The id is not editable.
func (e Experience) With(field, value string) (Experience, error) {
	switch field {
	case "company":
		e.Company = value
	case "role":
		e.Role = value
	case "startDate":
		e.StartDate = value
	case "endDate":
		e.EndDate = value
	case "description":
		e.Description = value
	default:
		return e, &UnknownFieldError{Record: "experience", Field: field}
	}
	return e, nil
}

// With returns a copy of e with field replaced by value. The id is not editable.
func (e Education) With(field, value string) (Education, error) {
	switch field {
	case "institution":
		e.Institution = value
	case "degree":
		e.Degree = value
	case "startDate":
		e.StartDate = value
	case "endDate":
		e.EndDate = value
	default:
		return e, &UnknownFieldError{Record: "education", Field: field}
	}
	return e, nil
}

// With returns a copy of s with field replaced by value. The id is not editable.
func (s Skill) With(field, value string) (Skill, error) {
	if field != "name" {
		return s, &UnknownFieldError{Record: "skills", Field: field}
	}
	s.Name = value
	return s, nil
}

// Clone returns a deep copy of the document. Nil lists become empty lists.
func (d Document) Clone() Document {
	out := d
	out.Experience = append(make([]Experience, 0, len(d.Experience)), d.Experience...)
	out.Education = append(make([]Education, 0, len(d.Education)), d.Education...)
	out.Skills = append(make([]Skill, 0, len(d.Skills)), d.Skills...)
	return out
}

// Normalize fills the zero template and replaces nil lists so that every
// field of the document is defined.
func (d Document) Normalize() Document {
	out := d.Clone()
	if out.Template == "" {
		out.Template = TemplateStandard
	}
	return out
}

// Validate checks the document invariants: valid template, non-empty ids,
// and ids unique within each list.
func (d *Document) Validate() error {
	if err := validator.New().Struct(d); err != nil {
		return err
	}
	if err := checkUniqueIDs("experience", len(d.Experience), func(i int) string { return d.Experience[i].ID }); err != nil {
		return err
	}
	if err := checkUniqueIDs("education", len(d.Education), func(i int) string { return d.Education[i].ID }); err != nil {
		return err
	}
	return checkUniqueIDs("skills", len(d.Skills), func(i int) string { return d.Skills[i].ID })
}

func checkUniqueIDs(section string, n int, idAt func(int) string) error {
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		id := idAt(i)
		if seen[id] {
			return fmt.Errorf("%w %q in %s", ErrDuplicateID, id, section)
		}
		seen[id] = true
	}
	return nil
}
