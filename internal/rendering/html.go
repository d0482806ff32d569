package rendering

import (
	_ "embed"
	"html/template"
	"strings"
	"sync"
)

// CaptureSelector identifies the element the export pipeline rasterizes.
const CaptureSelector = "#resume-preview"

// A4 at 96 CSS pixels per inch.
const (
	PageWidthPx  = 794
	PageHeightPx = 1123
)

//go:embed templates/resume.html.tmpl
var pageTemplateSource string

var (
	pageTemplate     *template.Template
	pageTemplateErr  error
	pageTemplateOnce sync.Once
)

type pageData struct {
	Layout
	TemplateClass string
	PageWidthPx   int
	PageHeightPx  int
}

// RenderHTML renders a Layout into a standalone HTML page whose root element
// matches CaptureSelector.
func RenderHTML(layout Layout) (string, error) {
	tmpl, err := parsePageTemplate()
	if err != nil {
		return "", err
	}

	data := pageData{
		Layout:        layout,
		TemplateClass: "template-" + string(layout.Template),
		PageWidthPx:   PageWidthPx,
		PageHeightPx:  PageHeightPx,
	}

	var result strings.Builder
	if err := tmpl.Execute(&result, data); err != nil {
		return "", &TemplateError{
			Message: "failed to execute template",
			Cause:   err,
		}
	}
	return result.String(), nil
}

func parsePageTemplate() (*template.Template, error) {
	pageTemplateOnce.Do(func() {
		tmpl, err := template.New("resume").Funcs(template.FuncMap{
			"imageURL": imageURL,
		}).Parse(pageTemplateSource)
		if err != nil {
			pageTemplateErr = &TemplateError{
				Message: "failed to parse template",
				Cause:   err,
			}
			return
		}
		pageTemplate = tmpl
	})
	return pageTemplate, pageTemplateErr
}

// imageURL lets inline image data URLs through html/template's URL filter.
// Anything else is left to the default sanitiser.
func imageURL(s string) any {
	if strings.HasPrefix(s, "data:image/") {
		return template.URL(s)
	}
	return s
}
