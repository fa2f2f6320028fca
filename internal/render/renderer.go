package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// BackendStatus is the last known backend health. Unknown hides the badge.
type BackendStatus string

const (
	BackendUnknown BackendStatus = ""
	BackendUp      BackendStatus = "up"
	BackendDown    BackendStatus = "down"
)

type Controls struct {
	LoadMoreVisible bool
	ShowAllVisible  bool
	PerPage         int
}

// PageData is the full viewer page: comparison view plus UI state.
type PageData struct {
	View           View
	ContentVisible bool
	Error          string
	Controls       Controls
	UpdatedAt      string
	BackendStatus  BackendStatus

	AnimationMS        int
	ThumbnailMaxHeight int
}

type ModalData struct {
	Src         string
	Caption     string
	AnimationMS int
}

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Page(w io.Writer, data PageData) error {
	return r.tmpl.ExecuteTemplate(w, "page.html", data)
}

// Modal renders the full-size viewer. The source path is normalized here too,
// since it may arrive straight from a query string.
func (r *Renderer) Modal(w io.Writer, data ModalData) error {
	data.Src = NormalizePath(data.Src)
	return r.tmpl.ExecuteTemplate(w, "modal.html", data)
}
