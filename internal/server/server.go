package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jamiesonbates/trendscout/internal/analysis"
	"github.com/jamiesonbates/trendscout/internal/export"
	"github.com/jamiesonbates/trendscout/internal/runstore"
)

// Analyzer runs one keyword analysis. The production implementation is
// *analysis.Pipeline; tests substitute a stub.
type Analyzer interface {
	RunWithProgress(ctx context.Context, req analysis.RequestEnvelope, progress analysis.StageProgressFn) (analysis.PipelineResult, error)
}

// RunStore persists completed runs.
type RunStore interface {
	SaveRun(env analysis.ResponseEnvelope) (int64, error)
	LatestByKeyword(keyword string) (analysis.ResponseEnvelope, error)
	GetRun(id int64) (analysis.ResponseEnvelope, error)
	ListRuns(limit int) ([]runstore.RunSummary, error)
}

type Config struct {
	Host         string
	Port         int
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	server   *http.Server
	router   *chi.Mux
	analyzer Analyzer
	store    RunStore
	renderer *export.Renderer
	log      *logrus.Logger
}

func New(cfg Config, analyzer Analyzer, store RunStore, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Analysis runs take minutes; the write timeout must cover a
		// full synchronous run.
		cfg.WriteTimeout = 10 * time.Minute
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{analyzer: analyzer, store: store, renderer: export.NewRenderer(), log: log}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/health", s.handleHealth)
	router.Route("/analyzer", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/analyze/{keyword}", s.handleLatest)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/report", s.handleExportRun)
		r.Get("/ws", s.handleWebSocket)
	})
	s.router = router

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) ListenAndServe() error { return s.server.ListenAndServe() }

func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(1)
	status := map[string]any{
		"capability": analysis.CapabilityTrendAnalysis,
		"store":      "ok",
	}
	if err != nil {
		status["store"] = "unavailable"
		s.log.WithError(err).Warn("run store unavailable")
	} else if len(runs) > 0 {
		status["last_run_at"] = runs[0].CreatedAt
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analysis.RequestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	result, err := s.analyzer.RunWithProgress(r.Context(), req, nil)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"keyword": req.Keyword,
			"stage":   analysis.StageNameFromError(err),
		}).WithError(err).Error("analysis failed")
		writeError(w, statusForError(err), err.Error())
		return
	}

	env := analysis.BuildResponse(result)
	if _, err := s.store.SaveRun(env); err != nil {
		s.log.WithError(err).Error("persist run failed")
	}
	s.log.WithFields(logrus.Fields{
		"keyword":  env.Keyword,
		"mode":     env.ReportMode,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("analysis complete")
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	keyword := chi.URLParam(r, "keyword")
	env, err := s.store.LatestByKeyword(keyword)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no runs for keyword")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	env, err := s.store.GetRun(id)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleExportRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	env, err := s.store.GetRun(id)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		doc, err := s.renderer.HTML(env)
		if err != nil {
			s.log.WithError(err).Error("render html failed")
			writeError(w, http.StatusInternalServerError, "render failed")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(doc))
	case "pdf":
		pdf, err := s.renderer.PDF(r.Context(), env)
		if err != nil {
			s.log.WithError(err).Error("render pdf failed")
			writeError(w, http.StatusInternalServerError, "render failed")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "trend-report-"+strconv.FormatInt(id, 10)+".pdf"))
		_, _ = w.Write(pdf)
	default:
		writeError(w, http.StatusBadRequest, "unsupported format")
	}
}

func statusForError(err error) int {
	var se *analysis.StageError
	if errors.As(err, &se) {
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}
