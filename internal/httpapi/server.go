package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/MimeLyc/doctrans/internal/jobs"
	"github.com/MimeLyc/doctrans/internal/persistence"
	"github.com/MimeLyc/doctrans/internal/service"
	"github.com/MimeLyc/doctrans/pkg/icron"
)

// workflow is the part of *service.Workflow the API drives.
type workflow interface {
	Start(ctx context.Context, doc *jobs.FreshDocument, sourceLang, targetLang string) (jobs.Snapshot, error)
	Cancel(ctx context.Context) jobs.Snapshot
	Hide(ctx context.Context)
	Show(ctx context.Context) bool
	Snapshot() jobs.Snapshot
	Subscribe() (<-chan jobs.Snapshot, func())
	LastResult() (service.Result, bool)
}

type historyLister interface {
	ListHistory(ctx context.Context, limit int) ([]persistence.HistoryEntry, error)
}

type maintenanceRunner interface {
	Run(ctx context.Context) (service.MaintenanceReport, error)
	NextRun(ref time.Time) (*icron.TriggerInfo, error)
}

type Server struct {
	workflow    workflow
	history     historyLister
	maintenance maintenanceRunner

	defaultTarget language.Tag
	keepAlive     time.Duration

	uiEnabled   bool
	uiStaticDir string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func WithHistory(history historyLister) Option {
	return func(s *Server) {
		s.history = history
	}
}

func WithMaintenance(m maintenanceRunner) Option {
	return func(s *Server) {
		s.maintenance = m
	}
}

// WithDefaultTargetLanguage is used when an upload names no target language.
func WithDefaultTargetLanguage(tag language.Tag) Option {
	return func(s *Server) {
		s.defaultTarget = tag
	}
}

// WithKeepAlive sets the SSE comment interval.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

func NewServer(wf workflow, opts ...Option) *Server {
	s := &Server{
		workflow:      wf,
		defaultTarget: language.AmericanEnglish,
		keepAlive:     15 * time.Second,
		uiEnabled:     false,
		mux:           http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/translations", s.handleTranslations)
	s.mux.HandleFunc("/api/translations/current", s.handleCurrent)
	s.mux.HandleFunc("/api/translations/stream", s.handleStream)
	s.mux.HandleFunc("/api/translations/cancel", s.handleCancel)
	s.mux.HandleFunc("/api/translations/visibility", s.handleVisibility)
	s.mux.HandleFunc("/api/translations/result", s.handleResult)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/api/maintenance", s.handleMaintenance)
	s.mux.HandleFunc("/api/healthz", s.handleHealth)
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" || strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
