package resume

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/resume-builder/internal/types"
)

// SetField returns a copy of doc with one field replaced.
//
// With a nil index the edit targets a singleton section: personalInfo (field
// names the contact field), summary or template (field is ignored). With an
// index the edit targets the entry at that position in a list section. An
// index outside the list is a caller bug and panics. On success the
// returned document is a copy whose lists are never nil: a nil list in doc
// comes back empty.
func SetField(doc types.Document, section types.Section, index *int, field, value string) (types.Document, error) {
	out := doc.Clone()

	if index == nil {
		switch section {
		case types.SectionPersonalInfo:
			info, err := out.PersonalInfo.With(field, value)
			if err != nil {
				return doc, err
			}
			out.PersonalInfo = info
		case types.SectionSummary:
			out.Summary = value
		case types.SectionTemplate:
			tmpl, err := types.ParseTemplate(value)
			if err != nil {
				return doc, err
			}
			out.Template = tmpl
		default:
			return doc, &SectionError{Section: string(section), Op: "set field"}
		}
		return out, nil
	}

	i := *index
	switch section {
	case types.SectionExperience:
		mustIndex(section, i, len(out.Experience))
		entry, err := out.Experience[i].With(field, value)
		if err != nil {
			return doc, err
		}
		out.Experience[i] = entry
	case types.SectionEducation:
		mustIndex(section, i, len(out.Education))
		entry, err := out.Education[i].With(field, value)
		if err != nil {
			return doc, err
		}
		out.Education[i] = entry
	case types.SectionSkills:
		mustIndex(section, i, len(out.Skills))
		entry, err := out.Skills[i].With(field, value)
		if err != nil {
			return doc, err
		}
		out.Skills[i] = entry
	default:
		return doc, &SectionError{Section: string(section), Op: "set field"}
	}
	return out, nil
}

func mustIndex(section types.Section, i, n int) {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("resume: index %d out of range for %s (len %d)", i, section, n))
	}
}

// AddEntry returns a copy of doc with a new entry appended to section. The
// entry gets a fresh id and the given base fields. A skill whose name is
// empty after trimming is rejected silently: doc is returned unchanged.
func AddEntry(doc types.Document, section types.Section, fields map[string]string) (types.Document, error) {
	keys := sortedKeys(fields)

	switch section {
	case types.SectionExperience:
		entry := types.Experience{}
		for _, k := range keys {
			var err error
			if entry, err = entry.With(k, fields[k]); err != nil {
				return doc, err
			}
		}
		entry.ID = newID()
		out := doc.Clone()
		out.Experience = append(out.Experience, entry)
		return out, nil

	case types.SectionEducation:
		entry := types.Education{}
		for _, k := range keys {
			var err error
			if entry, err = entry.With(k, fields[k]); err != nil {
				return doc, err
			}
		}
		entry.ID = newID()
		out := doc.Clone()
		out.Education = append(out.Education, entry)
		return out, nil

	case types.SectionSkills:
		for _, k := range keys {
			if k != "name" {
				return doc, &types.UnknownFieldError{Record: "skills", Field: k}
			}
		}
		name := strings.TrimSpace(fields["name"])
		if name == "" {
			return doc, nil
		}
		out := doc.Clone()
		out.Skills = append(out.Skills, types.Skill{ID: newID(), Name: name})
		return out, nil
	}

	return doc, &SectionError{Section: string(section), Op: "add entry"}
}

// RemoveEntry returns a copy of doc without the entry whose id matches.
// Removing an id that is not present is a no-op.
func RemoveEntry(doc types.Document, section types.Section, id string) (types.Document, error) {
	switch section {
	case types.SectionExperience, types.SectionEducation, types.SectionSkills:
	default:
		return doc, &SectionError{Section: string(section), Op: "remove entry"}
	}

	i, ok := IndexOf(doc, section, id)
	if !ok {
		return doc, nil
	}
	out := doc.Clone()
	switch section {
	case types.SectionExperience:
		out.Experience = append(out.Experience[:i], out.Experience[i+1:]...)
	case types.SectionEducation:
		out.Education = append(out.Education[:i], out.Education[i+1:]...)
	case types.SectionSkills:
		out.Skills = append(out.Skills[:i], out.Skills[i+1:]...)
	}
	return out, nil
}

// FindExperience returns the current position of the experience entry with id.
func FindExperience(doc types.Document, id string) (int, bool) {
	return indexOf(len(doc.Experience), func(i int) string { return doc.Experience[i].ID }, id)
}

// IndexOf returns the current position of the entry with id in a list section.
func IndexOf(doc types.Document, section types.Section, id string) (int, bool) {
	switch section {
	case types.SectionExperience:
		return FindExperience(doc, id)
	case types.SectionEducation:
		return indexOf(len(doc.Education), func(i int) string { return doc.Education[i].ID }, id)
	case types.SectionSkills:
		return indexOf(len(doc.Skills), func(i int) string { return doc.Skills[i].ID }, id)
	}
	return -1, false
}

func indexOf(n int, idAt func(int) string, id string) (int, bool) {
	for i := 0; i < n; i++ {
		if idAt(i) == id {
			return i, true
		}
	}
	return -1, false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
