package web

import (
	"database/sql"
	"io/fs"
	"net/http"

	"github.com/gsetrade/gsebook/internal/inventory"
	webembed "github.com/gsetrade/gsebook/web"
)

// DefaultMaxUpload bounds the size of an item form with its files.
const DefaultMaxUpload = 16 << 20

// Options configures the web router.
type Options struct {
	DB        *sql.DB
	Secret    string
	Inventory *inventory.Service

	// Uploads serves /uploads/ links of the local file store. Nil disables
	// the route.
	Uploads fs.FS

	SecureCookies bool
	MaxUpload     int64
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(opts Options) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:            opts.DB,
		Templates:     templates,
		Secret:        opts.Secret,
		Inventory:     opts.Inventory,
		Uploads:       opts.Uploads,
		SecureCookies: opts.SecureCookies,
		MaxUpload:     opts.MaxUpload,
	}
	if s.MaxUpload <= 0 {
		s.MaxUpload = DefaultMaxUpload
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(opts.Secret, opts.DB)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("GET /register", s.RegisterPage)
	mux.HandleFunc("POST /register", s.RegisterSubmit)
	mux.HandleFunc("GET /logout", s.Logout)
	mux.HandleFunc("POST /logout", s.Logout)
	mux.HandleFunc("GET /forgot_password", s.ForgotPasswordPage)
	mux.HandleFunc("POST /forgot_password", s.ForgotPasswordSubmit)
	mux.HandleFunc("GET /reset_password/{token}", s.ResetPassword)
	mux.HandleFunc("GET /healthz", s.Healthz)

	// Authenticated routes.
	mux.Handle("GET /{$}", cookieAuth(http.HandlerFunc(s.Index)))

	mux.Handle("GET /add_item", cookieAuth(http.HandlerFunc(s.AddItemPage)))
	mux.Handle("POST /add_item", cookieAuth(http.HandlerFunc(s.AddItemSubmit)))
	mux.Handle("POST /mark_as_sold/{id}", cookieAuth(http.HandlerFunc(s.MarkSold)))
	mux.Handle("POST /delete_item/{id}", cookieAuth(http.HandlerFunc(s.DeleteItem)))
	mux.Handle("GET /edit_item/{id}", cookieAuth(http.HandlerFunc(s.EditItemPage)))
	mux.Handle("POST /edit_item/{id}", cookieAuth(http.HandlerFunc(s.EditItemSubmit)))
	mux.Handle("GET /export.xlsx", cookieAuth(http.HandlerFunc(s.ExportItems)))

	if s.Uploads != nil {
		mux.Handle("GET /uploads/{path...}", cookieAuth(http.HandlerFunc(s.Upload)))
	}

	mux.Handle("GET /settings", cookieAuth(http.HandlerFunc(s.SettingsPage)))
	mux.Handle("POST /settings", cookieAuth(http.HandlerFunc(s.SettingsSubmit)))

	return mux, nil
}
