package dashboard

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names as registered with the engine.
const (
	DashboardTemplate = "dashboard.html"
	DetailTemplate    = "detail.html"
)

var templates = template.Must(template.New("dashboard").ParseFS(templateFS, "templates/*.html"))

// Templates returns the parsed page templates, ready for gin's SetHTMLTemplate.
func Templates() *template.Template {
	return templates
}

func Render(w io.Writer, v View) error {
	return templates.ExecuteTemplate(w, DashboardTemplate, v)
}

func RenderDetail(w io.Writer, v DetailView) error {
	return templates.ExecuteTemplate(w, DetailTemplate, v)
}
