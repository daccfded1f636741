package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mkoehler/docsort/internal/core/domain"
	"github.com/mkoehler/docsort/internal/core/ports"
)

type engineFake struct {
	classifyResult domain.ClassificationResult
	classifyErr    error
	suggestResult  domain.FilenameSuggestion
	suggestErr     error
	templateMatch  *domain.TemplateMatch
	templateErr    error
	actions        []domain.Action
	evaluateErr    error

	classifiedPaths []string
}

func (f *engineFake) Classify(_ context.Context, path string) (domain.ClassificationResult, error) {
	f.classifiedPaths = append(f.classifiedPaths, path)
	return f.classifyResult, f.classifyErr
}

func (f *engineFake) SuggestFilename(_ context.Context, _ string) (domain.FilenameSuggestion, error) {
	return f.suggestResult, f.suggestErr
}

func (f *engineFake) MatchTemplate(_ context.Context, _ string) (*domain.TemplateMatch, error) {
	return f.templateMatch, f.templateErr
}

func (f *engineFake) EvaluateWorkflow(_ context.Context, _ domain.Document, _ domain.ClassificationResult, _ *domain.TemplateMatch) ([]domain.Action, error) {
	return f.actions, f.evaluateErr
}

type batchFake struct {
	submitID   string
	submitErr  error
	job        *domain.BatchJob
	statusErr  error
	cancelErr  error
	jobs       []domain.BatchJob
	listStatus domain.JobStatus

	submittedName  string
	submittedTasks []ports.TaskSpec
	cancelledID    string
}

func (f *batchFake) Submit(_ context.Context, name string, tasks []ports.TaskSpec) (string, error) {
	f.submittedName = name
	f.submittedTasks = tasks
	return f.submitID, f.submitErr
}

func (f *batchFake) Status(_ context.Context, _ string) (*domain.BatchJob, error) {
	return f.job, f.statusErr
}

func (f *batchFake) Cancel(_ context.Context, jobID string) error {
	f.cancelledID = jobID
	return f.cancelErr
}

func (f *batchFake) List(_ context.Context, status domain.JobStatus) ([]domain.BatchJob, error) {
	f.listStatus = status
	return f.jobs, nil
}

type rulesFake struct {
	rules     []domain.WorkflowRule
	created   []domain.WorkflowRule
	deleted   []string
	deleteErr error
}

func (f *rulesFake) Create(_ context.Context, rule *domain.WorkflowRule) error {
	f.created = append(f.created, *rule)
	return nil
}

func (f *rulesFake) List(_ context.Context) ([]domain.WorkflowRule, error) {
	return f.rules, nil
}

func (f *rulesFake) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type filesFake struct {
	tree []domain.Category
}

func (f *filesFake) Move(_ context.Context, _, _ string) error   { return nil }
func (f *filesFake) Delete(_ context.Context, _ string) error    { return nil }
func (f *filesFake) ListTree(_ context.Context, _ string) ([]domain.Category, error) {
	return f.tree, nil
}

type previewFake struct {
	data []byte
	err  error
}

func (f *previewFake) RenderPreview(_ context.Context, _ string) ([]byte, error) {
	return f.data, f.err
}

type routerFixture struct {
	engine  *engineFake
	batch   *batchFake
	rules   *rulesFake
	files   *filesFake
	preview *previewFake
	handler http.Handler
}

func testRouterCategories() domain.CategorySet {
	return domain.CategorySet{
		Categories: []domain.Category{
			{Name: "03 Finanzen"},
			{Name: "05 Versicherung"},
			{Name: "12 Schriftverkehr"},
		},
		Default: "12 Schriftverkehr",
	}
}

func newRouterFixture(cfg RouterConfig) *routerFixture {
	fx := &routerFixture{
		engine:  &engineFake{},
		batch:   &batchFake{},
		rules:   &rulesFake{},
		files:   &filesFake{},
		preview: &previewFake{},
	}
	router := NewRouter(fx.engine, fx.batch, fx.rules, fx.files, fx.preview, testRouterCategories(), cfg)
	fx.handler = router.Handler()
	return fx
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})

	rec := doJSON(t, fx.handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header on every response")
	}
}

func TestClassifyDocument(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})
	fx.engine.classifyResult = domain.ClassificationResult{
		Category:   "03 Finanzen",
		Confidence: domain.ConfidenceHigh,
		Source:     domain.SourceAI,
	}

	rec := doJSON(t, fx.handler, http.MethodPost, "/v1/documents/classify", pathRequest{Path: "/inbox/scan.pdf"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.ClassificationResult
	decodeBody(t, rec, &result)
	if result.Category != "03 Finanzen" || result.Source != domain.SourceAI {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(fx.engine.classifiedPaths) != 1 || fx.engine.classifiedPaths[0] != "/inbox/scan.pdf" {
		t.Fatalf("engine saw paths %v", fx.engine.classifiedPaths)
	}
}

func TestClassifyDocumentRejectsEmptyPath(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})

	rec := doJSON(t, fx.handler, http.MethodPost, "/v1/documents/classify", pathRequest{Path: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestClassifyDocumentRejectsGet(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})

	rec := doJSON(t, fx.handler, http.MethodGet, "/v1/documents/classify", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "classify", errors.New("bad")), http.StatusBadRequest},
		{"extraction", domain.WrapError(domain.ErrExtraction, "classify", errors.New("corrupt")), http.StatusUnprocessableEntity},
		{"temporary", domain.WrapError(domain.ErrTemporary, "classify", errors.New("down")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newRouterFixture(RouterConfig{})
			fx.engine.classifyErr = tc.err

			rec := doJSON(t, fx.handler, http.MethodPost, "/v1/documents/classify", pathRequest{Path: "/inbox/scan.pdf"})
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}

			var payload map[string]string
			decodeBody(t, rec, &payload)
			if payload["error"] == "" {
				t.Fatalf("expected error message in body")
			}
		})
	}
}

func TestSuggestFilename(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})
	fx.engine.suggestResult = domain.FilenameSuggestion{
		OriginalFilename:  "Scanbot_2481023.pdf",
		SuggestedFilename: "2024-03-15_rechnung.pdf",
		SelectedDate:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		DateSource:        domain.DateFromContent,
	}

	rec := doJSON(t, fx.handler, http.MethodPost, "/v1/documents/suggest-filename", pathRequest{Path: "/inbox/Scanbot_2481023.pdf"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var suggestion domain.FilenameSuggestion
	decodeBody(t, rec, &suggestion)
	if suggestion.SuggestedFilename != "2024-03-15_rechnung.pdf" {
		t.Fatalf("unexpected suggestion: %+v", suggestion)
	}
}

func TestMatchTemplateNilMatch(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})

	rec := doJSON(t, fx.handler, http.MethodPost, "/v1/documents/template", pathRequest{Path: "/inbox/scan.pdf"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload map[string]*domain.TemplateMatch
	decodeBody(t, rec, &payload)
	if payload["match"] != nil {
		t.Fatalf("expected null match, got %+v", payload["match"])
	}
}

func TestRenderPreview(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})
	fx.preview.data = []byte("Rechnung vom 15.03.2024")

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/preview?path=/inbox/scan.pdf", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "Rechnung vom 15.03.2024" {
		t.Fatalf("unexpected preview body %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestRenderPreviewRequiresPath(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/preview", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListCategories(t *testing.T) {
	fx := newRouterFixture(RouterConfig{ArchiveRoot: "/archive"})
	fx.files.tree = []domain.Category{
		{Name: "03 Finanzen", Subcategories: []string{"Banken", "Steuern"}},
	}

	rec := doJSON(t, fx.handler, http.MethodGet, "/v1/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Configured domain.CategorySet `json:"configured"`
		Tree       []domain.Category  `json:"tree"`
	}
	decodeBody(t, rec, &payload)
	if len(payload.Configured.Categories) != 3 {
		t.Fatalf("expected 3 configured categories, got %d", len(payload.Configured.Categories))
	}
	if len(payload.Tree) != 1 || payload.Tree[0].Name != "03 Finanzen" {
		t.Fatalf("unexpected tree: %+v", payload.Tree)
	}
}

func TestCreateWorkflowRule(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})

	rule := domain.WorkflowRule{
		Name:     "tag invoices",
		Priority: 10,
		Enabled:  true,
		Conditions: []domain.Condition{
			{Field: domain.FieldFilename, Op: domain.OpContains, Value: "rechnung"},
		},
		Actions: []domain.Action{
			{Type: domain.ActionTag, Tags: []string{"rechnung"}},
		},
	}

	rec := doJSON(t, fx.handler, http.MethodPost, "/v1/workflow/rules", rule)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.WorkflowRule
	decodeBody(t, rec, &created)
	if created.ID == "" {
		t.Fatalf("expected generated rule id")
	}
	if len(fx.rules.created) != 1 || fx.rules.created[0].Name != "tag invoices" {
		t.Fatalf("repository saw %+v", fx.rules.created)
	}
}

func TestCreateWorkflowRuleRejectsUnknownCategory(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})

	rule := domain.WorkflowRule{
		Name:     "bad force",
		Priority: 10,
		Enabled:  true,
		Actions: []domain.Action{
			{Type: domain.ActionForceCategory, Category: "99 Unbekannt"},
		},
	}

	rec := doJSON(t, fx.handler, http.MethodPost, "/v1/workflow/rules", rule)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(fx.rules.created) != 0 {
		t.Fatalf("invalid rule must not reach the repository")
	}
}

func TestDeleteWorkflowRule(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})

	rec := doJSON(t, fx.handler, http.MethodDelete, "/v1/workflow/rules/rule-7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(fx.rules.deleted) != 1 || fx.rules.deleted[0] != "rule-7" {
		t.Fatalf("repository saw deletions %v", fx.rules.deleted)
	}
}

func TestDeleteWorkflowRuleNotFound(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})
	fx.rules.deleteErr = domain.WrapError(domain.ErrRuleNotFound, "rules.delete", errors.New("no rows"))

	rec := doJSON(t, fx.handler, http.MethodDelete, "/v1/workflow/rules/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestEvaluateWorkflowDryRun(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})
	fx.engine.classifyResult = domain.ClassificationResult{Category: "05 Versicherung", Source: domain.SourceFallback}
	fx.engine.templateMatch = &domain.TemplateMatch{TemplateID: "versicherung-police", DocumentType: "police", Confidence: 0.81}
	fx.engine.actions = []domain.Action{
		{Type: domain.ActionTag, Tags: []string{"versicherung"}},
	}

	rec := doJSON(t, fx.handler, http.MethodPost, "/v1/workflow/evaluate", pathRequest{Path: "/inbox/police.pdf"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Classification domain.ClassificationResult `json:"classification"`
		Template       *domain.TemplateMatch       `json:"template"`
		Actions        []domain.Action             `json:"actions"`
	}
	decodeBody(t, rec, &payload)
	if payload.Classification.Category != "05 Versicherung" {
		t.Fatalf("unexpected classification %+v", payload.Classification)
	}
	if payload.Template == nil || payload.Template.TemplateID != "versicherung-police" {
		t.Fatalf("unexpected template %+v", payload.Template)
	}
	if len(payload.Actions) != 1 || payload.Actions[0].Type != domain.ActionTag {
		t.Fatalf("unexpected actions %+v", payload.Actions)
	}
}

func TestSubmitBatch(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})
	fx.batch.submitID = "job-1"

	body := map[string]any{
		"name": "september scans",
		"tasks": []ports.TaskSpec{
			{Path: "/inbox/a.pdf"},
			{Path: "/inbox/b.pdf", TargetCategory: "03 Finanzen"},
		},
	}

	rec := doJSON(t, fx.handler, http.MethodPost, "/v1/batch", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload map[string]string
	decodeBody(t, rec, &payload)
	if payload["job_id"] != "job-1" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if fx.batch.submittedName != "september scans" || len(fx.batch.submittedTasks) != 2 {
		t.Fatalf("service saw name=%q tasks=%v", fx.batch.submittedName, fx.batch.submittedTasks)
	}
	if fx.batch.submittedTasks[1].TargetCategory != "03 Finanzen" {
		t.Fatalf("target category lost: %+v", fx.batch.submittedTasks[1])
	}
}

func TestSubmitBatchInvalidInput(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})
	fx.batch.submitErr = domain.WrapError(domain.ErrInvalidInput, "batch.submit", errors.New("no tasks"))

	rec := doJSON(t, fx.handler, http.MethodPost, "/v1/batch", map[string]any{"name": "empty"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListBatchJobs(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})
	fx.batch.jobs = []domain.BatchJob{{ID: "job-1", Status: domain.JobCompleted}}

	rec := doJSON(t, fx.handler, http.MethodGet, "/v1/batch?status=completed", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fx.batch.listStatus != domain.JobCompleted {
		t.Fatalf("status filter lost, got %q", fx.batch.listStatus)
	}

	var payload struct {
		Jobs []domain.BatchJob `json:"jobs"`
	}
	decodeBody(t, rec, &payload)
	if len(payload.Jobs) != 1 || payload.Jobs[0].ID != "job-1" {
		t.Fatalf("unexpected jobs %+v", payload.Jobs)
	}
}

func TestBatchStatus(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})
	fx.batch.job = &domain.BatchJob{
		ID:     "job-1",
		Status: domain.JobRunning,
		Tasks:  []domain.BatchTask{{ID: "t1", Path: "/inbox/a.pdf", Status: domain.TaskDone}},
	}

	rec := doJSON(t, fx.handler, http.MethodGet, "/v1/batch/job-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var job domain.BatchJob
	decodeBody(t, rec, &job)
	if job.ID != "job-1" || len(job.Tasks) != 1 {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestBatchStatusNotFound(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})
	fx.batch.statusErr = domain.WrapError(domain.ErrJobNotFound, "batch.status", errors.New("no rows"))

	rec := doJSON(t, fx.handler, http.MethodGet, "/v1/batch/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCancelBatch(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})

	rec := doJSON(t, fx.handler, http.MethodPost, "/v1/batch/job-1/cancel", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if fx.batch.cancelledID != "job-1" {
		t.Fatalf("service saw cancel for %q", fx.batch.cancelledID)
	}
}

func TestBatchReport(t *testing.T) {
	fx := newRouterFixture(RouterConfig{})
	fx.batch.job = &domain.BatchJob{
		ID:     "job-1",
		Name:   "september scans",
		Status: domain.JobCompleted,
		Tasks: []domain.BatchTask{
			{
				ID:     "t1",
				Path:   "/inbox/a.pdf",
				Status: domain.TaskDone,
				Result: &domain.TaskResult{Category: "03 Finanzen", SuggestedFilename: "2024-03-15_rechnung.pdf"},
			},
		},
	}

	rec := doJSON(t, fx.handler, http.MethodGet, "/v1/batch/job-1/report", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "job_job-1.xlsx") {
		t.Fatalf("unexpected disposition %q", got)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected xlsx payload")
	}
}
