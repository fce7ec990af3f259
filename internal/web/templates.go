package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gsetrade/gsebook/internal/auth"
	"github.com/gsetrade/gsebook/internal/inventory"
	"github.com/gsetrade/gsebook/internal/model"
	webembed "github.com/gsetrade/gsebook/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

var printer = message.NewPrinter(language.English)

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string {
			return printer.Sprintf("%.2f", d.InexactFloat64())
		},
		"plain": func(d decimal.Decimal) string {
			if d.IsZero() {
				return ""
			}
			return d.String()
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(model.DateLayout)
		},
		"specRows": model.SpecRows,
		"spec": func(m model.SpecMap, key string) string {
			s, _ := m[key].(string)
			return s
		},
		"hasFeature": func(m model.SpecMap, feature string) bool {
			list, _ := m["features"].([]any)
			return slices.Contains(list, any(feature))
		},
		"isLaptop": func(t model.ItemType) bool { return t == model.ItemTypeLaptop },
		"list":     func(v ...string) []string { return v },
		"inc":      func(i int) int { return i + 1 },
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
	}
}

var pages = []string{
	"login.html",
	"register.html",
	"forgot_password.html",
	"index.html",
	"add_item.html",
	"edit_item.html",
	"settings.html",
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}
	formsBytes, err := fs.ReadFile(tfs, "item_form.html")
	if err != nil {
		return nil, fmt.Errorf("reading item form template: %w", err)
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		for _, src := range []string{string(layoutBytes), string(formsBytes), string(pageBytes)} {
			if tmpl, err = tmpl.Parse(src); err != nil {
				return nil, fmt.Errorf("parsing template %s: %w", page, err)
			}
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *auth.Claims
	Flashes []Flash
	Next    string
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB            *sql.DB
	Templates     *Templates
	Secret        string
	Inventory     *inventory.Service
	Uploads       fs.FS
	SecureCookies bool
	MaxUpload     int64
}

// page builds the base page data for r, consuming pending flash messages.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	return PageData{
		Title:   title,
		User:    GetWebClaims(r.Context()),
		Flashes: popFlashes(w, r),
	}
}
