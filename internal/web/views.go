package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/self-interview/internal/countdown"
	"github.com/spigell/self-interview/internal/wizard"
)

//go:embed templates/*.html
var templateFS embed.FS

// Toast is a one-shot notice rendered on the next page view.
type Toast struct {
	Title       string
	Message     string
	Destructive bool
}

type denial struct {
	Title   string
	Message string
}

type page struct {
	Title      string
	Links      Links
	Toast      *Toast
	SessionID  string
	State      wizard.State
	StageCount int
	Denial     *denial
}

type views struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"clock": countdown.Format,
	"inc":   func(i int) int { return i + 1 },
	"percent": func(n, total int) int {
		if total == 0 {
			return 0
		}
		return n * 100 / total
	},
	"seconds": func(d time.Duration) int { return int(d / time.Second) },
}

func loadViews() (*views, error) {
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	v := &views{pages: make(map[string]*template.Template)}
	for _, name := range []string{"index.html", "denied.html", "notfound.html", "interview.html"} {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning layout: %w", err)
		}
		t, err := clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		v.pages[name] = t
	}

	return v, nil
}

func (s *Server) render(w http.ResponseWriter, status int, name string, p page) {
	t, ok := s.views.pages[name]
	if !ok {
		s.logger.Error("unknown template", zap.String("template", name))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	p.Links = s.links
	p.StageCount = wizard.StageCount

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		s.logger.Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
