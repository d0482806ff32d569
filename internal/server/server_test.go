package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-builder/internal/auth"
	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/content"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/jonathan/resume-builder/internal/session"
	"github.com/jonathan/resume-builder/internal/types"
)

// fakeContent is a scripted ContentService.
type fakeContent struct {
	mu           sync.Mutex
	refined      string
	summary      string
	err          error
	refineCalls  int
	summaryCalls int
}

func (f *fakeContent) Refine(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refineCalls++
	return f.refined, f.err
}

func (f *fakeContent) GenerateSummary(_ context.Context, _ []types.Experience, _ []types.Skill) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	return f.summary, f.err
}

// fakeExporter records what it was asked to export. When started is set it
// signals each call and waits for release.
type fakeExporter struct {
	mu       sync.Mutex
	blob     *export.Blob
	err      error
	surfaces []export.Surface
	formats  []export.Format
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeExporter) Export(_ context.Context, surface export.Surface, format export.Format) (*export.Blob, error) {
	f.mu.Lock()
	f.surfaces = append(f.surfaces, surface)
	f.formats = append(f.formats, format)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	return f.blob, f.err
}

func (f *fakeExporter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.formats)
}

type testEnv struct {
	server   *Server
	handler  http.Handler
	content  *fakeContent
	exporter *fakeExporter
	jwt      *JWTService
	user     types.Identity
	token    string
}

func testJWTService() *JWTService {
	return NewJWTService(&config.JWTConfig{
		Secret:          "test-secret-0123456789",
		Issuer:          "resume-builder",
		ExpirationHours: 1,
	})
}

func newTestEnv(t *testing.T, opts ...func(*config.Config, *Deps)) *testEnv {
	t.Helper()

	cfg := config.Defaults()
	env := &testEnv{
		content: &fakeContent{refined: "Refined text.", summary: "Seasoned engineer."},
		exporter: &fakeExporter{blob: &export.Blob{
			Data:        []byte("%PDF-1.3 fake"),
			ContentType: "application/pdf",
			Filename:    "resume.pdf",
			Pages:       2,
		}},
		jwt: testJWTService(),
	}
	deps := Deps{
		Store:       session.NewStore(time.Hour),
		Content:     env.content,
		Exporter:    env.exporter,
		Provider:    auth.NoneProvider{},
		JWT:         env.jwt,
		RateLimiter: ratelimit.NewLimiter(&ratelimit.Config{Enabled: false}),
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	srv, err := New(&cfg, deps)
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	env.server = srv
	env.handler = srv.Handler()
	env.user = types.Identity{ID: uuid.New(), Provider: "none", DisplayName: "Tester"}
	env.token = env.tokenFor(t, env.user)
	return env
}

func (e *testEnv) tokenFor(t *testing.T, user types.Identity) string {
	t.Helper()
	token, err := e.jwt.GenerateToken(&user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	return e.request(method, path, body, e.token)
}

func (e *testEnv) createSession(t *testing.T) SessionResponse {
	t.Helper()
	w := e.do(http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[SessionResponse](t, w)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func sessionPath(id uuid.UUID, rest string) string {
	return fmt.Sprintf("/sessions/%s%s", id, rest)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "none", body["auth"])
	assert.Equal(t, true, body["content"])
}

func TestSessions_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/sessions"},
		{http.MethodGet, "/sessions"},
		{http.MethodGet, sessionPath(uuid.New(), "")},
		{http.MethodPost, sessionPath(uuid.New(), "/export")},
	} {
		w := env.request(tc.method, tc.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}

	w := env.request(http.MethodPost, "/sessions", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateSession_FromSeed(t *testing.T) {
	env := newTestEnv(t)

	resp := env.createSession(t)
	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.Equal(t, resp.ID, resp.Status.ID)
	assert.Equal(t, resume.Seed(), resp.Document)
	assert.Empty(t, resp.Status.Refining)
}

func TestCreateSession_Import(t *testing.T) {
	env := newTestEnv(t)

	doc := resume.Seed()
	doc.PersonalInfo.Name = "Ada Lovelace"
	doc.Template = types.TemplateModern
	w := env.do(http.MethodPost, "/sessions", doc)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Ada Lovelace", decode[SessionResponse](t, w).Document.PersonalInfo.Name)

	w = env.do(http.MethodPost, "/sessions", `{"personalInfo": {}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation failed")

	w = env.do(http.MethodPost, "/sessions", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSession_OwnerIsolation(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodGet, sessionPath(created.ID, ""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[SessionResponse](t, w).ID)

	other := env.tokenFor(t, types.Identity{ID: uuid.New()})
	w = env.request(http.MethodGet, sessionPath(created.ID, ""), nil, other)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, sessionPath(uuid.New(), ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAndDeleteSessions(t *testing.T) {
	env := newTestEnv(t)
	first := env.createSession(t)
	env.createSession(t)

	w := env.do(http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["count"])

	w = env.do(http.MethodDelete, sessionPath(first.ID, ""), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, sessionPath(first.ID, ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReplaceDocument(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodPut, sessionPath(created.ID, "/document"),
		`{"personalInfo": {"name": "Grace"}, "experience": [], "education": [], "skills": [{"id": "s1", "name": "COBOL"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	doc := decode[DocumentResponse](t, w).Document
	assert.Equal(t, "Grace", doc.PersonalInfo.Name)
	assert.Equal(t, types.TemplateStandard, doc.Template)
	assert.Len(t, doc.Skills, 1)

	w = env.do(http.MethodPut, sessionPath(created.ID, "/document"),
		`{"personalInfo": {}, "experience": [], "education": [], "skills": [{"id": "s1"}, {"id": "s1"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetField(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)
	path := sessionPath(created.ID, "/fields")

	w := env.do(http.MethodPatch, path, map[string]any{"section": "personalInfo", "field": "name", "value": "John Smith"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc := decode[DocumentResponse](t, w).Document
	assert.Equal(t, "John Smith", doc.PersonalInfo.Name)

	expected := resume.Seed()
	expected.PersonalInfo.Name = "John Smith"
	assert.Equal(t, expected, doc)

	w = env.do(http.MethodPatch, path, map[string]any{"section": "experience", "index": 1, "field": "role", "value": "Staff Engineer"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Staff Engineer", decode[DocumentResponse](t, w).Document.Experience[1].Role)
}

func TestSetField_Rejects(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)
	path := sessionPath(created.ID, "/fields")

	tests := []struct {
		name string
		body any
	}{
		{"index out of range", map[string]any{"section": "experience", "index": 5, "field": "role", "value": "x"}},
		{"negative index", map[string]any{"section": "skills", "index": -1, "field": "name", "value": "x"}},
		{"id not editable", map[string]any{"section": "experience", "index": 0, "field": "id", "value": "x"}},
		{"unknown section", map[string]any{"section": "hobbies", "field": "x", "value": "y"}},
		{"index on singleton", map[string]any{"section": "summary", "index": 0, "field": "", "value": "y"}},
		{"malformed body", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPatch, path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	w := env.do(http.MethodGet, sessionPath(created.ID, ""), nil)
	assert.Equal(t, resume.Seed(), decode[SessionResponse](t, w).Document, "rejected edits leave the document unchanged")
}

func TestSetTemplate(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)
	path := sessionPath(created.ID, "/template")

	w := env.do(http.MethodPut, path, TemplateRequest{Template: "classic"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.TemplateClassic, decode[DocumentResponse](t, w).Document.Template)

	w = env.do(http.MethodPut, path, TemplateRequest{Template: "fancy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPut, path, TemplateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddAndRemoveEntry(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodPost, sessionPath(created.ID, "/skills"), types.AddEntryRequest{Fields: map[string]string{"name": "React"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc := decode[DocumentResponse](t, w).Document
	require.Len(t, doc.Skills, 7)
	added := doc.Skills[6]
	assert.Equal(t, "React", added.Name)
	assert.NotEmpty(t, added.ID)

	// blank skill is a silent no-op
	w = env.do(http.MethodPost, sessionPath(created.ID, "/skills"), types.AddEntryRequest{Fields: map[string]string{"name": "   "}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[DocumentResponse](t, w).Document.Skills, 7)

	w = env.do(http.MethodPost, sessionPath(created.ID, "/experience"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[DocumentResponse](t, w).Document.Experience, 3)

	w = env.do(http.MethodPost, sessionPath(created.ID, "/personalInfo"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, sessionPath(created.ID, "/skills/"+added.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[DocumentResponse](t, w).Document.Skills, 6)

	w = env.do(http.MethodDelete, sessionPath(created.ID, "/skills/missing"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[DocumentResponse](t, w).Document.Skills, 6)
}

func TestRefine(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodPost, sessionPath(created.ID, "/experience/exp2/refine"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[RefineResponse](t, w)
	assert.Equal(t, "exp2", resp.EntryID)
	assert.True(t, resp.Applied)
	assert.Equal(t, "Refined text.", resp.RefinedText)
	assert.Equal(t, "Refined text.", resp.Document.Experience[1].Description)
	assert.Equal(t, resume.Seed().Experience[0], resp.Document.Experience[0])
}

func TestRefine_EmptyDescriptionNeverCallsCollaborator(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodPatch, sessionPath(created.ID, "/fields"), map[string]any{"section": "experience", "index": 0, "field": "description", "value": "  "})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, sessionPath(created.ID, "/experience/exp1/refine"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, env.content.refineCalls)
}

func TestRefine_Errors(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodPost, sessionPath(created.ID, "/experience/nope/refine"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.content.err = &content.CollaboratorError{Message: "upstream unavailable"}
	w = env.do(http.MethodPost, sessionPath(created.ID, "/experience/exp1/refine"), nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = env.do(http.MethodGet, sessionPath(created.ID, ""), nil)
	resp := decode[SessionResponse](t, w)
	assert.Equal(t, resume.Seed(), resp.Document)
	assert.Empty(t, resp.Status.Refining, "busy flag cleared after failure")
}

func TestRefine_Unavailable(t *testing.T) {
	env := newTestEnv(t, func(_ *config.Config, d *Deps) { d.Content = nil })
	created := env.createSession(t)

	w := env.do(http.MethodPost, sessionPath(created.ID, "/experience/exp1/refine"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = env.do(http.MethodPost, sessionPath(created.ID, "/summary/generate"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRefineStream(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodPost, sessionPath(created.ID, "/experience/exp1/refine/stream"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	refining := strings.Index(body, "event: refining")
	refined := strings.Index(body, "event: refined")
	complete := strings.Index(body, "event: complete")
	require.True(t, refining >= 0 && refined > refining && complete > refined, body)
	assert.Contains(t, body, `"applied":true`)
}

func TestRefineStream_Error(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodPost, sessionPath(created.ID, "/experience/nope/refine/stream"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event: error")
	assert.Contains(t, w.Body.String(), `"status":404`)
}

func TestGenerateSummary(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodPost, sessionPath(created.ID, "/summary/generate"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[SummaryResponse](t, w)
	assert.Equal(t, "Seasoned engineer.", resp.Summary)
	assert.Equal(t, "Seasoned engineer.", resp.Document.Summary)
	assert.Equal(t, 1, env.content.summaryCalls)
}

func TestLayoutAndPreview(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodGet, sessionPath(created.ID, "/layout"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	layout := decode[rendering.Layout](t, w)
	assert.Equal(t, rendering.Render(resume.Seed()), layout)

	w = env.do(http.MethodGet, sessionPath(created.ID, "/preview"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `id="resume-preview"`)
	assert.Contains(t, w.Body.String(), "Jane Doe")
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodPost, sessionPath(created.ID, "/export?format=pdf"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="resume.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "2", w.Header().Get("X-Export-Pages"))
	assert.Equal(t, "%PDF-1.3 fake", w.Body.String())

	require.Equal(t, 1, env.exporter.calls())
	assert.Equal(t, export.FormatPDF, env.exporter.formats[0])
	assert.Equal(t, rendering.CaptureSelector, env.exporter.surfaces[0].Selector)
	assert.Contains(t, env.exporter.surfaces[0].HTML, "Jane Doe")

	w = env.do(http.MethodGet, sessionPath(created.ID, ""), nil)
	assert.False(t, decode[SessionResponse](t, w).Status.Exporting)
}

func TestExport_DefaultFormatAndErrors(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := env.do(http.MethodPost, sessionPath(created.ID, "/export"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatPDF, env.exporter.formats[0])

	w = env.do(http.MethodPost, sessionPath(created.ID, "/export?format=docx"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, env.exporter.calls())

	env.exporter.blob = nil
	env.exporter.err = &export.Error{Stage: "capture", Cause: export.ErrCaptureTargetMissing}
	w = env.do(http.MethodPost, sessionPath(created.ID, "/export?format=png"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	env.exporter.err = &export.Error{Stage: "rasterize", Cause: fmt.Errorf("chrome crashed")}
	w = env.do(http.MethodPost, sessionPath(created.ID, "/export?format=png"), nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestExport_OneAtATime(t *testing.T) {
	env := newTestEnv(t)
	env.exporter.started = make(chan struct{}, 1)
	env.exporter.release = make(chan struct{})
	created := env.createSession(t)
	path := sessionPath(created.ID, "/export?format=pdf")

	done := make(chan int)
	go func() {
		done <- env.do(http.MethodPost, path, nil).Code
	}()
	<-env.exporter.started

	w := env.do(http.MethodPost, path, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	close(env.exporter.release)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, 1, env.exporter.calls())
}

func TestRateLimit_ExportTier(t *testing.T) {
	env := newTestEnv(t, func(_ *config.Config, d *Deps) {
		d.RateLimiter = ratelimit.NewLimiter(&ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  1000,
			DefaultWindow: time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{
				{Path: "/sessions/*/export", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
			},
		})
	})
	created := env.createSession(t)
	path := sessionPath(created.ID, "/export?format=pdf")

	w := env.do(http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = env.do(http.MethodPost, path, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	// other tiers are unaffected
	w = env.do(http.MethodGet, sessionPath(created.ID, ""), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	restricted := newTestEnv(t, func(c *config.Config, _ *Deps) {
		c.AllowedOrigins = []string{"https://app.example"}
	})
	for origin, want := range map[string]string{
		"https://app.example":  "https://app.example",
		"https://evil.example": "",
	} {
		req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		restricted.handler.ServeHTTP(w, req)
		assert.Equal(t, want, w.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}
