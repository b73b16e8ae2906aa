// Package web exposes posts and images over HTTP.
//
// Request and response bodies are JSON. Routes use the method and wildcard
// patterns of net/http.ServeMux.
package web // import "github.com/nicolagi/quire/web"

import (
	"encoding/json"
	"net/http"

	"github.com/nicolagi/quire/images"
	"github.com/nicolagi/quire/postdb"
	"github.com/nicolagi/quire/storage"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultMaxUploadBytes bounds image uploads when Config leaves it unset.
const DefaultMaxUploadBytes = 10 << 20

// maxBodyBytes bounds JSON and form request bodies.
const maxBodyBytes = 1 << 20

// DiskStatter is implemented by stores that can report free and total space.
type DiskStatter interface {
	DiskStats() (avail, total uint64)
}

type Config struct {
	// PublicDir holds the static files served at "/". Empty disables them.
	PublicDir string

	MaxUploadBytes int64

	// RatePerSecond limits create, edit and upload requests, with bursts of
	// up to RateBurst requests. Zero disables limiting.
	RatePerSecond float64
	RateBurst     int

	// Templates holds the seed document at TemplateKey, served verbatim.
	Templates   storage.Store
	TemplateKey string

	// Disk, if set, makes readiness fail when less than MinFreeBytes are
	// available.
	Disk         DiskStatter
	MinFreeBytes uint64
}

type handler struct {
	cfg     Config
	repo    *postdb.Repository
	images  *images.Library
	metrics *Metrics
}

// New returns the root handler. A nil m gets a fresh Metrics; pass the one
// observing repo so the post counters move.
func New(cfg Config, repo *postdb.Repository, imgs *images.Library, m *Metrics) http.Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if m == nil {
		m = NewMetrics()
	}
	h := &handler{
		cfg:     cfg,
		repo:    repo,
		images:  imgs,
		metrics: m,
	}

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limit = rateLimit(rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst))
	}

	mux := http.NewServeMux()

	mux.Handle("POST /add-post", limit(http.HandlerFunc(h.create)))
	mux.Handle("POST /posts", limit(http.HandlerFunc(h.create)))
	mux.Handle("PUT /edit-post/{id}", limit(http.HandlerFunc(h.edit)))
	mux.Handle("PUT /posts/{id}", limit(http.HandlerFunc(h.edit)))
	mux.Handle("GET /posts/{id}", recoverWith(writeUnexpected)(http.HandlerFunc(h.view)))
	mux.HandleFunc("GET /posts", h.list)
	mux.HandleFunc("GET /utils/posts.json", h.rawPosts)
	mux.HandleFunc("GET /utils/blogs.json", h.rawTemplate)

	mux.Handle("POST /upload", limit(http.HandlerFunc(h.upload)))
	mux.HandleFunc("GET "+images.Prefix+"{name}", h.image)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz/ready", h.readiness)
	mux.Handle("GET /metrics", m.Handler())

	if cfg.PublicDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.PublicDir)))
	}

	return requestLog(m)(recoverWith(writeInternal)(mux))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithField("err", err).Debug("Could not write response")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeInternal(w http.ResponseWriter) {
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}
