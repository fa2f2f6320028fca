package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"segviewer/internal/health"
	"segviewer/internal/session"
	"segviewer/internal/viewer"
)

//go:embed static/*
var staticFiles embed.FS

const sessionCookie = "segviewer_session"

// BackendInfo is satisfied by *health.Monitor.
type BackendInfo interface {
	Snapshot(limit int) (health.Snapshot, error)
}

type Config struct {
	Address    string
	Controller *viewer.Controller
	// Backend may be nil when the health monitor is disabled.
	Backend BackendInfo
}

// Server is the browser-facing HTTP interface of the viewer.
type Server struct {
	address    string
	controller *viewer.Controller
	backend    BackendInfo
	server     *http.Server
}

func NewServer(cfg Config) *Server {
	s := &Server{
		address:    cfg.Address,
		controller: cfg.Controller,
		backend:    cfg.Backend,
	}
	s.server = &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/viewer", s.handleViewer).Methods(http.MethodGet)
	r.HandleFunc("/load", s.action(s.controller.Load)).Methods(http.MethodPost)
	r.HandleFunc("/refresh", s.action(s.controller.Refresh)).Methods(http.MethodPost)
	r.HandleFunc("/more", s.action(s.controller.LoadMore)).Methods(http.MethodPost)
	r.HandleFunc("/all", s.action(s.controller.ShowAll)).Methods(http.MethodPost)
	r.HandleFunc("/view", s.handleModal).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/backend", s.handleBackend).Methods(http.MethodGet)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("static assets: %v", err)
	}
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK\n"))
}

// handleIndex always starts a fresh session: reloading the page discards
// whatever the previous one had accumulated.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.controller.Sessions().Delete(c.Value)
	}
	sess := s.controller.Sessions().New()
	setSessionCookie(w, sess.ID)
	s.renderPage(w, sess)
}

// handleViewer renders the current session as it stands. Reloading it never
// repeats an action.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, s.currentSession(w, r))
}

// action runs one controller action and redirects to the viewer page, so a
// browser reload does not resubmit the form.
func (s *Server) action(run func(context.Context, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.currentSession(w, r)
		run(r.Context(), sess)
		http.Redirect(w, r, "/viewer", http.StatusSeeOther)
	}
}

// currentSession resolves the cookie, starting a new session when it is
// missing or has expired.
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, err := s.controller.Sessions().Get(c.Value); err == nil {
			return sess
		}
	}
	sess := s.controller.Sessions().New()
	setSessionCookie(w, sess.ID)
	return sess
}

func (s *Server) renderPage(w http.ResponseWriter, sess *session.Session) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.controller.Render(w, sess); err != nil {
		log.Printf("render page error session=%s: %v", sess.ID, err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func (s *Server) handleModal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	src := q.Get("src")
	if src == "" {
		http.Error(w, "missing src", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.controller.RenderModal(w, src, q.Get("caption")); err != nil {
		log.Printf("render modal error: %v", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "no viewer session")
		return
	}
	sess, err := s.controller.Sessions().Get(c.Value)
	if errors.Is(err, session.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.controller.Stats(sess))
}

func (s *Server) handleBackend(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "health monitor disabled")
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	snap, err := s.backend.Snapshot(limit)
	if err != nil {
		log.Printf("backend snapshot error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if r.URL.Path == "/health" || rec.status == http.StatusNotModified {
			return
		}
		log.Printf("http method=%s path=%s status=%d duration=%s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
