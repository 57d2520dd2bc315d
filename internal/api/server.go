// Package api is the HTTP gateway over the campaign documents: a small REST surface,
// a websocket change feed and the static front end.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/DaanHessen/agency-gm/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Server wires the document repositories to routes.
type Server struct {
	Statuses  *store.StatusesRepo
	Reference *store.ReferenceRepo
	Items     *store.ItemsRepo
	Missions  *store.MissionsRepo
	Mail      *store.MailRepo
	Notes     *store.Notes
	Hub       *Hub
	PublicDir string
	Log       *zap.Logger
}

// New builds a server over one backend.
func New(b store.Backend, notes *store.Notes, publicDir string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Statuses:  store.NewStatusesRepo(b),
		Reference: store.NewReferenceRepo(b),
		Items:     store.NewItemsRepo(b),
		Missions:  store.NewMissionsRepo(b),
		Mail:      store.NewMailRepo(b),
		Notes:     notes,
		Hub:       NewHub(log),
		PublicDir: publicDir,
		Log:       log,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors)
		r.Use(middleware.StripSlashes)
		r.NotFound(apiNotFound)
		r.MethodNotAllowed(apiNotFound)

		r.Get("/events", s.Hub.ServeHTTP)

		r.Get("/statuses", s.getStatuses)
		r.Put("/statuses", s.putStatuses)
		r.Get("/arc-reference", s.getReference)
		r.Get("/items", s.getItems)
		r.Post("/items", s.postItem)
		r.Get("/missions", s.getMissions)
		r.Post("/missions", s.postMission)
		r.Put("/missions", s.putMissions)
		r.Get("/in-mail", s.getMail)
		r.Put("/in-mail", s.putMail)
		r.Get("/mission-notes", s.listNotes)
		r.Get("/mission-notes/*", s.getNote)
	})

	r.Handle("/*", s.static())
	return r
}

// cors sets the headers every API response carries and answers preflights.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func apiNotFound(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	writeError(w, http.StatusNotFound, "API not found: "+path)
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Log.Debug("request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

// fail logs an unexpected error and answers 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.Log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, err.Error())
}
