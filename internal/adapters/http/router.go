package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkoehler/docsort/internal/core/domain"
	"github.com/mkoehler/docsort/internal/core/ports"
	"github.com/mkoehler/docsort/internal/infrastructure/report/xlsx"
)

type RouterConfig struct {
	ArchiveRoot    string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	Logger         *slog.Logger
}

type Router struct {
	engine     ports.DocumentEngine
	batch      ports.BatchService
	rules      ports.RuleRepository
	files      ports.FileService
	preview    ports.PreviewRenderer
	reporter   *xlsx.Reporter
	categories domain.CategorySet
	cfg        RouterConfig
}

func NewRouter(
	engine ports.DocumentEngine,
	batch ports.BatchService,
	rules ports.RuleRepository,
	files ports.FileService,
	preview ports.PreviewRenderer,
	categories domain.CategorySet,
	cfg RouterConfig,
) *Router {
	return &Router{
		engine:     engine,
		batch:      batch,
		rules:      rules,
		files:      files,
		preview:    preview,
		reporter:   xlsx.NewReporter(),
		categories: categories,
		cfg:        cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents/classify", rt.classifyDocument)
	mux.HandleFunc("/v1/documents/suggest-filename", rt.suggestFilename)
	mux.HandleFunc("/v1/documents/template", rt.matchTemplate)
	mux.HandleFunc("/v1/documents/preview", rt.renderPreview)
	mux.HandleFunc("/v1/categories", rt.listCategories)
	mux.HandleFunc("/v1/workflow/rules", rt.workflowRules)
	mux.HandleFunc("/v1/workflow/rules/", rt.deleteWorkflowRule)
	mux.HandleFunc("/v1/workflow/evaluate", rt.evaluateWorkflow)
	mux.HandleFunc("/v1/batch", rt.batchCollection)
	mux.HandleFunc("/v1/batch/", rt.batchItem)

	var handler http.Handler = mux
	if rt.cfg.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, 50*time.Millisecond)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	return requestIDMiddleware(accessLogMiddleware(handler, rt.cfg.Logger))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pathRequest struct {
	Path string `json:"path"`
}

func (rt *Router) decodePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return "", false
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return "", false
	}
	return req.Path, true
}

func (rt *Router) classifyDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path, ok := rt.decodePath(w, r)
	if !ok {
		return
	}
	result, err := rt.engine.Classify(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) suggestFilename(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path, ok := rt.decodePath(w, r)
	if !ok {
		return
	}
	suggestion, err := rt.engine.SuggestFilename(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

func (rt *Router) matchTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path, ok := rt.decodePath(w, r)
	if !ok {
		return
	}
	match, err := rt.engine.MatchTemplate(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"match": match})
}

func (rt *Router) renderPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	preview, err := rt.preview.RenderPreview(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(preview)
}

func (rt *Router) listCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tree, err := rt.files.ListTree(r.Context(), rt.cfg.ArchiveRoot)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"configured": rt.categories,
		"tree":       tree,
	})
}

func (rt *Router) workflowRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := rt.rules.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
	case http.MethodPost:
		var rule domain.WorkflowRule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		rule.CreatedAt = time.Now().UTC()
		if err := rule.Validate(rt.categories); err != nil {
			writeDomainError(w, err)
			return
		}
		if err := rt.rules.Create(r.Context(), &rule); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rule)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) deleteWorkflowRule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/workflow/rules/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "rule id is required")
		return
	}
	if err := rt.rules.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// evaluateWorkflow is a dry run: it reports which actions would fire for a
// document without touching the file.
func (rt *Router) evaluateWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path, ok := rt.decodePath(w, r)
	if !ok {
		return
	}

	cls, err := rt.engine.Classify(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tm, err := rt.engine.MatchTemplate(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	doc := domain.Document{Path: path, Filename: baseName(path)}
	actions, err := rt.engine.EvaluateWorkflow(r.Context(), doc, cls, tm)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"classification": cls,
		"template":       tm,
		"actions":        actions,
	})
}

func (rt *Router) batchCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name  string           `json:"name"`
			Tasks []ports.TaskSpec `json:"tasks"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		jobID, err := rt.batch.Submit(r.Context(), req.Name, req.Tasks)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
	case http.MethodGet:
		status := domain.JobStatus(r.URL.Query().Get("status"))
		jobs, err := rt.batch.List(r.Context(), status)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) batchItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/batch/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		job, err := rt.batch.Status(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	case action == "cancel" && r.Method == http.MethodPost:
		if err := rt.batch.Cancel(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id, "cancel": "requested"})
	case action == "report" && r.Method == http.MethodGet:
		job, err := rt.batch.Status(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		raw, err := rt.reporter.Render(job)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "job_"+id+".xlsx"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
