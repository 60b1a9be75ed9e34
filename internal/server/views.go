package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"displaybox/internal/store"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

type viewData struct {
	Sites    []store.Site
	Site     store.Site
	Host     string
	FrameURL string
	Theme    store.Config
	ThemeCSS template.CSS
	Auth     bool
	Error    string
}

type views struct {
	templates *template.Template
	log       zerolog.Logger
}

func newViews(log zerolog.Logger) (*views, error) {
	templates, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &views{templates: templates, log: log}, nil
}

// themeCSS passes the stored color through to the stylesheet unescaped so
// functional notations like rgb() survive. Values that could leave the
// declaration fall back to the default color.
func themeCSS(color string) template.CSS {
	if color == "" || strings.ContainsAny(color, ";{}<>\\\"'`\r\n") || strings.Contains(color, "/*") {
		return template.CSS(store.DefaultThemeColor)
	}
	return template.CSS(color)
}

func (v *views) render(w http.ResponseWriter, r *http.Request, name string, data viewData) {
	data.ThemeCSS = themeCSS(data.Theme.ThemeColor)
	var buf bytes.Buffer
	if err := v.templates.ExecuteTemplate(&buf, name, data); err != nil {
		v.log.Error().Err(err).Str("path", r.URL.Path).Str("template", name).Msg("template execution failed")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
