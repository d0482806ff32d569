// Package rendering projects a resume Document into a presentation layout and HTML.
package rendering

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonathan/resume-builder/internal/types"
)

// Placeholders shown in place of empty fields.
const (
	PlaceholderName        = "Your Name"
	PlaceholderSummary     = "A brief professional summary."
	PlaceholderRole        = "Role"
	PlaceholderCompany     = "Company"
	PlaceholderDescription = "Description of responsibilities and achievements."
	PlaceholderInstitution = "Institution"
	PlaceholderDegree      = "Degree or Certificate"
	PlaceholderSkill       = "Skill"
)

// Section kinds in render order.
const (
	KindSummary    = "summary"
	KindExperience = "experience"
	KindEducation  = "education"
	KindSkills     = "skills"
)

// Layout is the presentation of one Document under one template.
type Layout struct {
	Template types.Template `json:"template"`
	Header   Header         `json:"header"`
	Sections []Section      `json:"sections"`
}

// Header is the name and contact block.
type Header struct {
	Name    string        `json:"name"`
	Picture string        `json:"picture,omitempty"`
	Contact []ContactItem `json:"contact"`
	Links   []Link        `json:"links"`
}

// ContactItem is a single non-empty contact detail.
type ContactItem struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Link is an outbound link shown with a fixed label.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Section is a titled block of items.
type Section struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`
	Items []Item `json:"items,omitempty"`
}

// Item is one rendered entry; Key is the source entry id.
type Item struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle,omitempty"`
	DateRange string `json:"date_range,omitempty"`
	Body      string `json:"body,omitempty"`
}

var sectionTitles = []struct {
	kind  string
	title string
}{
	{KindSummary, "Summary"},
	{KindExperience, "Experience"},
	{KindEducation, "Education"},
	{KindSkills, "Skills"},
}

// Render projects doc into a Layout. It reads nothing but doc, so equal
// documents always yield equal layouts.
func Render(doc types.Document) Layout {
	tmpl := doc.Template
	if !tmpl.Valid() {
		tmpl = types.TemplateStandard
	}

	layout := Layout{
		Template: tmpl,
		Header:   renderHeader(doc.PersonalInfo),
		Sections: make([]Section, 0, len(sectionTitles)),
	}

	for _, st := range sectionTitles {
		section := Section{Kind: st.kind, Title: sectionTitle(tmpl, st.title)}
		switch st.kind {
		case KindSummary:
			section.Text = orPlaceholder(doc.Summary, PlaceholderSummary)
		case KindExperience:
			section.Items = make([]Item, 0, len(doc.Experience))
			for _, exp := range doc.Experience {
				section.Items = append(section.Items, Item{
					Key:       exp.ID,
					Title:     orPlaceholder(exp.Role, PlaceholderRole),
					Subtitle:  orPlaceholder(exp.Company, PlaceholderCompany),
					DateRange: dateRange(exp.StartDate, exp.EndDate),
					Body:      orPlaceholder(exp.Description, PlaceholderDescription),
				})
			}
		case KindEducation:
			section.Items = make([]Item, 0, len(doc.Education))
			for _, edu := range doc.Education {
				section.Items = append(section.Items, Item{
					Key:       edu.ID,
					Title:     orPlaceholder(edu.Institution, PlaceholderInstitution),
					Subtitle:  orPlaceholder(edu.Degree, PlaceholderDegree),
					DateRange: dateRange(edu.StartDate, edu.EndDate),
				})
			}
		case KindSkills:
			section.Items = make([]Item, 0, len(doc.Skills))
			for _, skill := range doc.Skills {
				section.Items = append(section.Items, Item{
					Key:   skill.ID,
					Title: orPlaceholder(skill.Name, PlaceholderSkill),
				})
			}
		}
		layout.Sections = append(layout.Sections, section)
	}

	return layout
}

func renderHeader(p types.PersonalInfo) Header {
	h := Header{
		Name:    orPlaceholder(p.Name, PlaceholderName),
		Picture: p.ProfilePicture,
		Contact: []ContactItem{},
		Links:   []Link{},
	}
	for _, c := range []ContactItem{
		{Kind: "email", Value: p.Email},
		{Kind: "phone", Value: p.Phone},
		{Kind: "address", Value: p.Address},
	} {
		if c.Value != "" {
			h.Contact = append(h.Contact, c)
		}
	}
	if p.LinkedIn != "" {
		h.Links = append(h.Links, Link{Label: "LinkedIn", URL: p.LinkedIn})
	}
	if p.Website != "" {
		h.Links = append(h.Links, Link{Label: "Portfolio", URL: p.Website})
	}
	return h
}

// sectionTitle applies the per-template heading style.
func sectionTitle(tmpl types.Template, title string) string {
	if tmpl == types.TemplateClassic {
		return cases.Upper(language.English).String(title)
	}
	return title
}

func orPlaceholder(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return value
}

func dateRange(start, end string) string {
	return start + " - " + end
}
