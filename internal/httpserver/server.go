package httpserver

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pagebin/internal/entry"
	"pagebin/internal/metrics"
	"pagebin/web"
)

// ReservedNames are top-level path segments owned by the router. They can
// never be claimed as entry IDs.
var ReservedNames = []string{"api", "create", "error", "healthz", "metrics", "static", "favicon.ico"}

// Config captures server configuration.
type Config struct {
	Service    *entry.Service
	Reveals    *RevealStore
	Metrics    *metrics.Metrics
	MaxBytes   int
	TrustProxy bool
	BaseURL    string
	Logger     *slog.Logger
}

// Server wraps HTTP handling logic.
type Server struct {
	svc        *entry.Service
	reveals    *RevealStore
	metrics    *metrics.Metrics
	router     chi.Router
	templates  *template.Template
	maxBytes   int
	trustProxy bool
	baseURL    *url.URL
	logger     *slog.Logger
}

// New constructs a new Server instance.
func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("entry service required")
	}
	if cfg.Reveals == nil {
		cfg.Reveals = NewRevealStore(0)
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 1_048_576
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	tmpl, err := template.New("layout").Funcs(template.FuncMap{
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "Never"
			}
			return t.UTC().Format(time.RFC1123)
		},
		"pathEscape": url.PathEscape,
	}).ParseFS(web.Templates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	var parsedBase *url.URL
	if cfg.BaseURL != "" {
		parsedBase, err = url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
		if parsedBase.Scheme == "" || parsedBase.Host == "" {
			return nil, errors.New("base url must include scheme and host")
		}
		parsedBase.Path = strings.TrimSuffix(parsedBase.Path, "/")
	}

	srv := &Server{
		svc:        cfg.Service,
		reveals:    cfg.Reveals,
		metrics:    cfg.Metrics,
		router:     chi.NewRouter(),
		templates:  tmpl,
		maxBytes:   cfg.MaxBytes,
		trustProxy: cfg.TrustProxy,
		baseURL:    parsedBase,
		logger:     cfg.Logger,
	}
	srv.routes()
	return srv, nil
}

// Handler returns the underlying router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(InstrumentMiddleware(s.metrics))
	r.Use(CORSMiddleware)
	r.Use(middleware.Compress(5, "text/html", "text/plain", "application/json", "application/javascript", "text/css"))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		panic(fmt.Sprintf("static assets: %v", err))
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", s.handleIndex)
	r.Get("/create", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
	r.Post("/create", s.handleCreate)
	r.Get("/error", s.handleErrorPage)
	r.Get("/api/entry/{id}", s.handleAPIEntry)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/{id}", func(er chi.Router) {
		er.Use(s.requireValidID)
		er.Get("/", s.handleView)
		er.Get("/edit", s.handleEdit)
		er.Post("/update", s.handleUpdate)
		er.Get("/qr", s.handleQR)
	})

	r.NotFound(s.notFound)
}

func (s *Server) setRevealCookie(w http.ResponseWriter, r *http.Request, token string) {
	ttl := s.reveals.TTL()
	http.SetCookie(w, &http.Cookie{
		Name:     revealCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.isSecureRequest(r),
	})
}

func (s *Server) clearRevealCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     revealCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if s.baseURL != nil && s.baseURL.Scheme == "https" {
		return true
	}
	if s.trustProxy {
		proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto"))
		if proto == "https" {
			return true
		}
	}
	return false
}

func (s *Server) canonicalURL(r *http.Request, entryID string) string {
	path := "/"
	if entryID != "" {
		path = entryPath(entryID)
	}
	if s.baseURL != nil {
		return s.baseURL.String() + path
	}

	scheme := "http"
	if s.isSecureRequest(r) {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, path)
}

func entryPath(entryID string) string {
	return "/" + url.PathEscape(entryID)
}
