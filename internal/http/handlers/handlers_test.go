package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-translate-backend/internal/content"
	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/http/middleware"
	"github.com/tbourn/go-translate-backend/internal/normalize"
	"github.com/tbourn/go-translate-backend/internal/progress"
	"github.com/tbourn/go-translate-backend/internal/repo"
	"github.com/tbourn/go-translate-backend/internal/services"
)

// ---- stubs ----

type stubTranslator struct {
	fieldReq  services.FieldRequest
	fieldRes  *services.FieldResult
	entityReq services.EntityRequest
	bulk      *services.BulkResult
	err       error
}

func (s *stubTranslator) TranslateField(_ context.Context, req services.FieldRequest) (*services.FieldResult, error) {
	s.fieldReq = req
	return s.fieldRes, s.err
}

func (s *stubTranslator) TranslateEntity(_ context.Context, req services.EntityRequest, _ services.ProgressFunc) (*services.BulkResult, error) {
	s.entityReq = req
	return s.bulk, s.err
}

type stubJobs struct {
	job      *domain.TranslationJob
	replayed bool
	err      error
	gotKey   string
	gotUser  string
}

func (s *stubJobs) Submit(_ context.Context, userID, _, _, key string) (*domain.TranslationJob, bool, error) {
	s.gotKey, s.gotUser = key, userID
	return s.job, s.replayed, s.err
}

func (s *stubJobs) Get(_ context.Context, id, userID string) (*domain.TranslationJob, error) {
	s.gotUser = userID
	if s.job == nil || s.job.ID != id {
		return nil, services.ErrJobNotFound
	}
	return s.job, nil
}

type stubEntities struct {
	created services.NewEntity
	entity  *domain.Entity
	items   []domain.FieldTranslation
	err     error
}

func (s *stubEntities) Create(_ context.Context, owner string, in services.NewEntity) (*domain.Entity, error) {
	s.created = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Entity{ID: "e1", OwnerID: owner, Title: in.Title}, nil
}

func (s *stubEntities) Get(context.Context, string, string) (*domain.Entity, error) {
	return s.entity, s.err
}

func (s *stubEntities) Translations(context.Context, string, string, string) ([]domain.FieldTranslation, error) {
	return s.items, s.err
}

type stubCatalog struct {
	activeOnly bool
	err        error
}

func (s *stubCatalog) List(_ context.Context, activeOnly bool) ([]domain.Language, error) {
	s.activeOnly = activeOnly
	return []domain.Language{{Code: "en"}, {Code: "fr"}}, nil
}

func (s *stubCatalog) AvailableTargets(context.Context, string) ([]domain.Language, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Language{{Code: "fr"}}, nil
}

type stubCredits struct{ remaining int }

func (s *stubCredits) Summary(_ context.Context, uid string) (*services.CreditsSummary, error) {
	return &services.CreditsSummary{UserID: uid, Remaining: s.remaining}, nil
}

func (s *stubCredits) Remaining(context.Context, string) (int, error) { return s.remaining, nil }

type stubJournal struct {
	items  []domain.TranslationHistory
	total  int64
	maxTS  time.Time
	filter repo.HistoryFilter
	listed int
	err    error
}

func (s *stubJournal) ListPage(_ context.Context, f repo.HistoryFilter, _, _ int) ([]domain.TranslationHistory, int64, error) {
	s.filter = f
	s.listed++
	return s.items, s.total, nil
}

func (s *stubJournal) Stats(context.Context, repo.HistoryFilter) (int64, *time.Time, error) {
	return s.total, &s.maxTS, nil
}

func (s *stubJournal) Verify(_ context.Context, id, verifier string, st domain.VerificationStatus, fb string) (*domain.TranslationHistory, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.TranslationHistory{ID: id, Status: st, VerifiedBy: verifier, Feedback: fb}, nil
}

type stubStream struct {
	jobID    string
	snapshot *progress.Event
}

func (s *stubStream) Serve(w http.ResponseWriter, _ *http.Request, jobID string, snap func() *progress.Event) error {
	s.jobID = jobID
	s.snapshot = snap()
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

// ---- harness ----

type harness struct {
	tr       *stubTranslator
	jobs     *stubJobs
	entities *stubEntities
	catalog  *stubCatalog
	credits  *stubCredits
	journal  *stubJournal
	stream   *stubStream
	r        *gin.Engine
}

func newHarness() *harness {
	gin.SetMode(gin.TestMode)
	h := &harness{
		tr:       &stubTranslator{},
		jobs:     &stubJobs{},
		entities: &stubEntities{},
		catalog:  &stubCatalog{},
		credits:  &stubCredits{remaining: 7},
		journal:  &stubJournal{},
		stream:   &stubStream{},
	}
	hs := New(Deps{
		Translator: h.tr, Jobs: h.jobs, Entities: h.entities, Catalog: h.catalog,
		Credits: h.credits, Journal: h.journal, Progress: h.stream,
	})
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.UserIdentity())
	r.POST("/translate", hs.Translate)
	r.POST("/entities", hs.CreateEntity)
	r.GET("/entities/:id", hs.GetEntity)
	r.GET("/entities/:id/translations", hs.ListEntityTranslations)
	r.POST("/entities/:id/translate", middleware.IdempotencyKeys(middleware.IdempotencyOptions{}, nil), hs.TranslateEntity)
	r.GET("/jobs/:id", hs.GetJob)
	r.GET("/ws", hs.StreamProgress)
	r.GET("/languages", hs.ListLanguages)
	r.GET("/languages/:source/targets", hs.AvailableTargets)
	r.GET("/schemas", hs.ListSchemas)
	r.GET("/schemas/:category", hs.GetSchema)
	r.GET("/credits", hs.GetCredits)
	r.GET("/history", hs.ListHistory)
	r.POST("/history/:id/verify", hs.VerifyTranslation)
	h.r = r
	return h
}

func (h *harness) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, "u1")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d body=%s", w.Code, status, w.Body.String())
	}
	var er ErrorResponse
	decodeBody(t, w, &er)
	if er.Code != code || er.RequestID == "" {
		t.Fatalf("error=%+v want code %s", er, code)
	}
}

// ---- tests ----

func TestTranslate_OK(t *testing.T) {
	h := newHarness()
	h.tr.fieldRes = &services.FieldResult{
		Status:      normalize.StatusOK,
		Data:        content.Structured(map[string]any{"title": "Bonjour"}),
		HistoryID:   "h1",
		CreditsUsed: 1,
	}

	w := h.do(http.MethodPost, "/translate", `{"content":{"title":"Hello"},"target_lang":"fr","category":"hero"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got map[string]any
	decodeBody(t, w, &got)
	if got["status"] != "ok" || got["history_id"] != "h1" || got["credits_remaining"] != float64(7) {
		t.Fatalf("body=%v", got)
	}
	if data := got["data"].(map[string]any); data["title"] != "Bonjour" {
		t.Fatalf("data=%v", data)
	}
	req := h.tr.fieldReq
	if req.UserID != "u1" || req.SourceLang != "en" || req.TargetLang != "fr" || !req.Content.IsStructured() {
		t.Fatalf("request=%+v", req)
	}
}

func TestTranslate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"malformed", `{"content":`, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"missing target", `{"content":"hi"}`, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"array content", `{"content":[1],"target_lang":"fr"}`, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"quota", `{"content":"hi","target_lang":"fr"}`, services.ErrQuotaExceeded, http.StatusPaymentRequired, ErrCodeQuotaExceeded},
		{"provider down", `{"content":"hi","target_lang":"fr"}`, services.ErrProviderUnavailable, http.StatusServiceUnavailable, ErrCodeProviderUnavailable},
		{"unprocessable", `{"content":"hi","target_lang":"fr"}`, &services.UnprocessableError{Status: normalize.StatusNoContent}, http.StatusUnprocessableEntity, ErrCodeUnprocessable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			h.tr.err = tc.err
			wantError(t, h.do(http.MethodPost, "/translate", tc.body, nil), tc.status, tc.code)
		})
	}
}

func TestCreateAndGetEntity(t *testing.T) {
	h := newHarness()
	w := h.do(http.MethodPost, "/entities", `{"title":"Welcome","sections":[{"category":"about","content":"We bake."},{"content":{"email":"a@b.co"}}]}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(h.entities.created.Sections) != 2 || !h.entities.created.Sections[1].Content.IsStructured() {
		t.Fatalf("created=%+v", h.entities.created)
	}
	if !strings.HasSuffix(w.Header().Get("Location"), "/e1") {
		t.Fatalf("location=%q", w.Header().Get("Location"))
	}

	wantError(t, h.do(http.MethodPost, "/entities", `{"subtitle":"x"}`, nil), http.StatusBadRequest, ErrCodeBadRequest)

	h.entities.err = services.ErrEntityNotFound
	wantError(t, h.do(http.MethodGet, "/entities/e9", "", nil), http.StatusNotFound, ErrCodeNotFound)

	h.entities.err = nil
	h.entities.entity = &domain.Entity{ID: "e1", Title: "Welcome"}
	if w := h.do(http.MethodGet, "/entities/e1", "", nil); w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}

	w = h.do(http.MethodGet, "/entities/e1/translations?lang=fr", "", nil)
	var tr FieldTranslationsResponse
	decodeBody(t, w, &tr)
	if tr.EntityID != "e1" || tr.Translations == nil {
		t.Fatalf("translations=%+v", tr)
	}
}

func TestTranslateEntity_SyncAndAsync(t *testing.T) {
	h := newHarness()
	h.tr.bulk = &services.BulkResult{EntityID: "e1", TargetLang: "de", Total: 3, Translated: 3}

	w := h.do(http.MethodPost, "/entities/e1/translate", `{"target_lang":"de"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sync status=%d", w.Code)
	}
	var bulk services.BulkResult
	decodeBody(t, w, &bulk)
	if bulk.Translated != 3 || h.tr.entityReq.EntityID != "e1" {
		t.Fatalf("bulk=%+v req=%+v", bulk, h.tr.entityReq)
	}

	h.jobs.job = &domain.TranslationJob{ID: "j1", Status: domain.JobQueued}
	w = h.do(http.MethodPost, "/entities/e1/translate", `{"target_lang":"de","async":true}`, nil)
	var acc JobAccepted
	decodeBody(t, w, &acc)
	if w.Code != http.StatusAccepted || acc.JobID != "j1" || w.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("async: code=%d body=%+v", w.Code, acc)
	}

	// A key alone selects the async path; a replay is flagged.
	h.jobs.replayed = true
	w = h.do(http.MethodPost, "/entities/e1/translate", `{"target_lang":"de"}`, map[string]string{middleware.HeaderIdempotencyKey: "k-1"})
	if w.Code != http.StatusAccepted || h.jobs.gotKey != "k-1" || w.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay: code=%d key=%q", w.Code, h.jobs.gotKey)
	}

	h.tr.err = services.ErrQuotaExceeded
	wantError(t, h.do(http.MethodPost, "/entities/e1/translate", `{"target_lang":"de"}`, nil), http.StatusPaymentRequired, ErrCodeQuotaExceeded)
}

func TestJobsAndProgress(t *testing.T) {
	h := newHarness()
	h.jobs.job = &domain.TranslationJob{ID: "j1", Status: domain.JobCompleted, Total: 2, Translated: 2}

	if w := h.do(http.MethodGet, "/jobs/j1", "", nil); w.Code != http.StatusOK {
		t.Fatalf("job status=%d", w.Code)
	}
	wantError(t, h.do(http.MethodGet, "/jobs/nope", "", nil), http.StatusNotFound, ErrCodeNotFound)

	wantError(t, h.do(http.MethodGet, "/ws", "", nil), http.StatusBadRequest, ErrCodeBadRequest)
	wantError(t, h.do(http.MethodGet, "/ws?job_id=nope", "", nil), http.StatusNotFound, ErrCodeNotFound)

	h.do(http.MethodGet, "/ws?job_id=j1", "", nil)
	if h.stream.jobID != "j1" || h.stream.snapshot == nil || h.stream.snapshot.Type != progress.EventDone || h.stream.snapshot.Done != 2 {
		t.Fatalf("stream=%+v snapshot=%+v", h.stream, h.stream.snapshot)
	}

	// Browsers cannot send X-User-ID on the handshake.
	req := httptest.NewRequest(http.MethodGet, "/ws?job_id=j1&user_id=u7", nil)
	h.r.ServeHTTP(httptest.NewRecorder(), req)
	if h.jobs.gotUser != "u7" {
		t.Fatalf("query identity not used: %q", h.jobs.gotUser)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	h := newHarness()

	h.do(http.MethodGet, "/languages", "", nil)
	if !h.catalog.activeOnly {
		t.Fatal("active defaults to true")
	}
	h.do(http.MethodGet, "/languages?active=false", "", nil)
	if h.catalog.activeOnly {
		t.Fatal("active=false ignored")
	}

	var targets TargetsResponse
	decodeBody(t, h.do(http.MethodGet, "/languages/en/targets", "", nil), &targets)
	if targets.Source != "en" || len(targets.Languages) != 1 {
		t.Fatalf("targets=%+v", targets)
	}
	h.catalog.err = services.ErrInvalidSourceLanguage
	wantError(t, h.do(http.MethodGet, "/languages/zz-!/targets", "", nil), http.StatusBadRequest, ErrCodeInvalidSourceLanguage)

	var all []SchemaResponse
	decodeBody(t, h.do(http.MethodGet, "/schemas", "", nil), &all)
	if len(all) < 2 || all[len(all)-1].Category != "generic" {
		t.Fatalf("schemas=%d", len(all))
	}
	var one SchemaResponse
	decodeBody(t, h.do(http.MethodGet, "/schemas/Contact", "", nil), &one)
	if one.Category != "contact" || one.JSONSchema["type"] != "object" {
		t.Fatalf("schema=%+v", one)
	}
	wantError(t, h.do(http.MethodGet, "/schemas/nope", "", nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestCreditsAndHistory(t *testing.T) {
	h := newHarness()

	var sum services.CreditsSummary
	decodeBody(t, h.do(http.MethodGet, "/credits", "", nil), &sum)
	if sum.UserID != "u1" || sum.Remaining != 7 {
		t.Fatalf("summary=%+v", sum)
	}

	h.journal.items = []domain.TranslationHistory{{ID: "h1"}}
	h.journal.total = 1
	h.journal.maxTS = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	w := h.do(http.MethodGet, "/history?target_lang=fr&status=pending", "", nil)
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || !strings.HasPrefix(etag, `W/"history:u1:1:`) {
		t.Fatalf("code=%d etag=%q", w.Code, etag)
	}
	var page HistoryResponse
	decodeBody(t, w, &page)
	if len(page.Items) != 1 || page.Pagination.Total != 1 || h.journal.filter.Status != domain.VerificationPending || h.journal.filter.UserID != "u1" {
		t.Fatalf("page=%+v filter=%+v", page, h.journal.filter)
	}

	w = h.do(http.MethodGet, "/history?target_lang=fr&status=pending", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified || h.journal.listed != 1 {
		t.Fatalf("conditional: code=%d listed=%d", w.Code, h.journal.listed)
	}

	w = h.do(http.MethodPost, "/history/h1/verify", `{"status":"approved","feedback":"good"}`, nil)
	var rec domain.TranslationHistory
	decodeBody(t, w, &rec)
	if w.Code != http.StatusOK || rec.Status != domain.VerificationApproved || rec.VerifiedBy != "u1" {
		t.Fatalf("verify: code=%d rec=%+v", w.Code, rec)
	}
	wantError(t, h.do(http.MethodPost, "/history/h1/verify", `{"status":"pending"}`, nil), http.StatusBadRequest, ErrCodeBadRequest)

	h.journal.err = services.ErrAlreadyVerified
	wantError(t, h.do(http.MethodPost, "/history/h1/verify", `{"status":"rejected"}`, nil), http.StatusConflict, ErrCodeConflict)
}
