package types

import "github.com/go-playground/validator/v10"

// SetFieldRequest is the wire form of a single field edit. Index is nil for
// singleton sections (personalInfo, summary, template).
type SetFieldRequest struct {
	Section Section `json:"section" validate:"required,oneof=personalInfo summary template experience education skills"`
	Index   *int    `json:"index,omitempty" validate:"omitempty,min=0"`
	Field   string  `json:"field"`
	Value   string  `json:"value"`
}

// AddEntryRequest carries the base fields of a new list entry.
type AddEntryRequest struct {
	Fields map[string]string `json:"fields"`
}

// RefineResult reports the outcome of an asynchronous refinement.
type RefineResult struct {
	EntryID     string `json:"entry_id"`
	RefinedText string `json:"refined_text"`
	Applied     bool   `json:"applied"`
}

// Validate validates the SetFieldRequest using the validator.
func (r *SetFieldRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
