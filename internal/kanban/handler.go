// HTTP handlers exposing applied records, discovered jobs and run summaries
// to the UI / analysis layer.
//
// Routes:
//
//	GET  /health                       → liveness
//	GET  /jobs                         → discovered jobs (?platform=, ?language=)
//	GET  /applications                 → applied records (?status=)
//	POST /applications/{id}/move       → move an applied record to a new status
//	GET  /questions/unknown            → unknown-question log
//	GET  /runs/last                    → latest apply / discovery / scheduler summaries

package kanban

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"jobmate/autoapply-service/internal/model"
)

// Reader is the read side of the reconciliation engine the API serves from.
type Reader interface {
	Discovered(ctx context.Context) []model.JobRecord
	AppliedList(ctx context.Context) []model.AppliedRecord
	LoadAnswers(ctx context.Context) (model.AnswerBook, error)
}

// LastRuns returns the latest run summaries by kind ("apply", "discovery",
// "scheduler"). Kinds that never ran are absent.
type LastRuns func() map[string]any

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	svc     *Service
	store   Reader
	runs    LastRuns
	version string
}

// NewHandler returns a configured Handler. runs may be nil.
func NewHandler(svc *Service, store Reader, runs LastRuns, version string) *Handler {
	if runs == nil {
		runs = func() map[string]any { return nil }
	}
	return &Handler{svc: svc, store: store, runs: runs, version: version}
}

// Router returns a chi router with the routes and the standard middleware.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts all routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/jobs", h.listJobs)
	r.Get("/applications", h.listApplications)
	r.Post("/applications/{id}/move", h.moveCard)
	r.Get("/questions/unknown", h.unknownQuestions)
	r.Get("/runs/last", h.lastRuns)
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": "autoapply-service",
		"version": h.version,
	})
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")
	language := r.URL.Query().Get("language")

	jobs := make([]model.JobRecord, 0)
	for _, j := range h.store.Discovered(r.Context()) {
		if platform != "" && !strings.EqualFold(j.Platform, platform) {
			continue
		}
		if language != "" && !strings.EqualFold(j.Language, language) {
			continue
		}
		jobs = append(jobs, j)
	}
	jsonOK(w, jobs)
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	var want Status
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := ParseStatus(s)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		want = st
	}

	apps := make([]model.AppliedRecord, 0)
	for _, a := range h.store.AppliedList(r.Context()) {
		if want != "" && a.Status != string(want) {
			continue
		}
		apps = append(apps, a)
	}
	jsonOK(w, apps)
}

func (h *Handler) moveCard(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	var body struct {
		NewStatus string `json:"newStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewStatus == "" {
		jsonError(w, "body must contain newStatus", http.StatusBadRequest)
		return
	}

	rec, err := h.svc.MoveCard(r.Context(), jobID, body.NewStatus)
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		jsonError(w, "application not found", http.StatusNotFound)
		return
	case errors.As(err, &verr):
		jsonError(w, verr.Msg, http.StatusBadRequest)
		return
	case err != nil:
		slog.Warn("moveCard failed", "job_id", jobID, "err", err)
		jsonError(w, "store error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, rec)
}

func (h *Handler) unknownQuestions(w http.ResponseWriter, r *http.Request) {
	book, err := h.store.LoadAnswers(r.Context())
	if err != nil {
		slog.Warn("load answers failed", "err", err)
		jsonError(w, "store error", http.StatusInternalServerError)
		return
	}
	out := book.Unknown
	if out == nil {
		out = []model.UnknownQuestion{}
	}
	jsonOK(w, out)
}

func (h *Handler) lastRuns(w http.ResponseWriter, _ *http.Request) {
	runs := h.runs()
	if len(runs) == 0 {
		jsonError(w, "no runs yet", http.StatusNotFound)
		return
	}
	jsonOK(w, runs)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
