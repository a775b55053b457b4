package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/mediaforge/internal/api/middleware"
	"github.com/kiranshivaraju/mediaforge/internal/media"
	"github.com/kiranshivaraju/mediaforge/internal/media/gemini"
	"github.com/kiranshivaraju/mediaforge/internal/store"
	"github.com/kiranshivaraju/mediaforge/internal/studio"
	"github.com/kiranshivaraju/mediaforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTenant = uuid.MustParse("11111111-1111-1111-1111-111111111111")

// --- mock services ---

type mockVideoService struct {
	trigger  func(studio.VideoInput) (*models.Job, error)
	get      func(uuid.UUID) (*models.Job, error)
	list     func(store.JobFilter) ([]*models.Job, int, error)
	cancel   func(uuid.UUID) (*models.Job, error)
	artifact func(uuid.UUID) (*models.Artifact, error)
}

func (m *mockVideoService) TriggerVideo(_ context.Context, in studio.VideoInput) (*models.Job, error) {
	return m.trigger(in)
}
func (m *mockVideoService) GetJob(_ context.Context, _, id uuid.UUID) (*models.Job, error) {
	return m.get(id)
}
func (m *mockVideoService) ListJobs(_ context.Context, f store.JobFilter) ([]*models.Job, int, error) {
	return m.list(f)
}
func (m *mockVideoService) Cancel(_ context.Context, _, id uuid.UUID) (*models.Job, error) {
	return m.cancel(id)
}
func (m *mockVideoService) Artifact(_ context.Context, _, id uuid.UUID) (*models.Artifact, error) {
	return m.artifact(id)
}

type mockImageService struct {
	generate func(studio.ImageInput) (*studio.ImageResult, error)
	edit     func(studio.EditInput) (*studio.ImageResult, error)
}

func (m *mockImageService) GenerateImages(_ context.Context, in studio.ImageInput) (*studio.ImageResult, error) {
	return m.generate(in)
}
func (m *mockImageService) EditImage(_ context.Context, in studio.EditInput) (*studio.ImageResult, error) {
	return m.edit(in)
}

type mockSessionService struct {
	sessions map[string]*studio.Session
	putErr   error
}

func (m *mockSessionService) GetSession(_ context.Context, _ uuid.UUID, id string) (*studio.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, studio.ErrSessionNotFound
}
func (m *mockSessionService) PutSession(_ context.Context, _ uuid.UUID, s *studio.Session) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.sessions[s.ID] = s
	return nil
}

type mockKeyStore struct {
	keys      []*models.APIKey
	createErr error
}

func (m *mockKeyStore) CreateAPIKey(_ context.Context, k *models.APIKey) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.keys = append(m.keys, k)
	return nil
}
func (m *mockKeyStore) ListAPIKeys(_ context.Context, _ uuid.UUID) ([]*models.APIKey, error) {
	return m.keys, nil
}
func (m *mockKeyStore) RevokeAPIKey(_ context.Context, id uuid.UUID, _ uuid.UUID) error {
	for _, k := range m.keys {
		if k.ID == id {
			return nil
		}
	}
	return store.ErrNotFound
}

type pinger struct{ err error }

func (p pinger) Ping(_ context.Context) error { return p.err }

// --- helpers ---

// serve mounts h at pattern so chi URL params resolve, then performs the request
// as testTenant.
func serve(t *testing.T, method, pattern, path string, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(mw.SetTenantID(req.Context(), testTenant))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error.Code
}

func pendingJob() *models.Job {
	return &models.Job{
		ID:        uuid.New(),
		TenantID:  testTenant,
		Kind:      models.JobKindVideo,
		Status:    models.JobStatusPending,
		Prompt:    "a cat",
		CreatedAt: time.Now(),
	}
}

// --- error mapping ---

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", &media.SubmissionError{Reason: media.ReasonInvalidInput, Err: media.ErrInvalidImage}, 400, "INVALID_REQUEST"},
		{"rejected", &media.SubmissionError{Reason: media.ReasonRejected, Err: errors.New("safety filter")}, 400, "SUBMISSION_REJECTED"},
		{"quota submission", &media.SubmissionError{Reason: media.ReasonQuotaExceeded, Err: errors.New("429")}, 429, "QUOTA_EXCEEDED"},
		{"quota sentinel", fmt.Errorf("generate: %w", media.ErrQuotaExceeded), 429, "QUOTA_EXCEEDED"},
		{"unauthorized submission", &media.SubmissionError{Reason: media.ReasonUnauthorized, Err: media.ErrUnauthorized}, 502, "UPSTREAM_UNAUTHORIZED"},
		{"invalid image", fmt.Errorf("%w: not an image", media.ErrInvalidImage), 400, "INVALID_REQUEST"},
		{"invalid request", fmt.Errorf("%w: prompt is required", media.ErrInvalidRequest), 400, "INVALID_REQUEST"},
		{"no images", media.ErrNoImages, 422, "NO_IMAGES"},
		{"already running", studio.ErrAlreadyRunning, 409, "ALREADY_RUNNING"},
		{"not cancellable", studio.ErrNotCancellable, 409, "NOT_CANCELLABLE"},
		{"artifact not ready", studio.ErrArtifactNotReady, 409, "ARTIFACT_NOT_READY"},
		{"job not found", studio.ErrJobNotFound, 404, "JOB_NOT_FOUND"},
		{"session not found", studio.ErrSessionNotFound, 404, "SESSION_NOT_FOUND"},
		{"job failed", &media.JobFailedError{Handle: "op", Message: "blocked"}, 502, "GENERATION_FAILED"},
		{"poll error", &media.PollError{Handle: "op", Err: errors.New("reset")}, 502, "UPSTREAM_ERROR"},
		{"download error", &media.DownloadError{URI: "u", StatusCode: 500, Err: errors.New("boom")}, 502, "UPSTREAM_ERROR"},
		{"poll timeout", fmt.Errorf("%w: op after 1m", media.ErrPollTimeout), 504, "GENERATION_TIMEOUT"},
		{"request timeout", gemini.ErrTimeout, 504, "GENERATION_TIMEOUT"},
		{"unreachable", gemini.ErrUnreachable, 502, "UPSTREAM_ERROR"},
		{"unexpected", errors.New("disk full"), 500, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errCode(t, rec))
		})
	}
}

// --- videos ---

func TestTriggerVideoHandler_Accepted(t *testing.T) {
	job := pendingJob()
	var got studio.VideoInput
	svc := &mockVideoService{trigger: func(in studio.VideoInput) (*models.Job, error) {
		got = in
		return job, nil
	}}

	rec := serve(t, http.MethodPost, "/api/v1/videos", "/api/v1/videos", NewTriggerVideoHandler(svc), map[string]any{
		"prompt": "a cat", "image": "data:image/png;base64,AAAA", "aspect_ratio": "9:16",
	})

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/v1/videos/"+job.ID.String(), rec.Header().Get("Location"))
	data := dataOf(t, rec)
	assert.Equal(t, job.ID.String(), data["id"])
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, testTenant, got.TenantID)
	assert.Equal(t, "9:16", got.AspectRatio)
	assert.Equal(t, "a cat", got.Prompt)
}

func TestTriggerVideoHandler_RequiresImageOrSession(t *testing.T) {
	svc := &mockVideoService{}
	rec := serve(t, http.MethodPost, "/api/v1/videos", "/api/v1/videos", NewTriggerVideoHandler(svc),
		map[string]any{"prompt": "a cat"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, rec))
}

// serveWithSession runs h behind the session middleware with hdr as the
// session header.
func serveWithSession(t *testing.T, h http.HandlerFunc, path, hdr, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(mw.SessionHeader, hdr)
	req = req.WithContext(mw.SetTenantID(req.Context(), testTenant))
	rec := httptest.NewRecorder()
	mw.Session(h).ServeHTTP(rec, req)
	return rec
}

func TestTriggerVideoHandler_SessionFromHeader(t *testing.T) {
	var got studio.VideoInput
	svc := &mockVideoService{trigger: func(in studio.VideoInput) (*models.Job, error) {
		got = in
		return pendingJob(), nil
	}}

	rec := serveWithSession(t, NewTriggerVideoHandler(svc), "/api/v1/videos", "tab-3", `{"prompt":"a cat"}`)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "tab-3", got.SessionID)
}

func TestTriggerVideoHandler_InvalidJSON(t *testing.T) {
	rec := serve(t, http.MethodPost, "/api/v1/videos", "/api/v1/videos", NewTriggerVideoHandler(&mockVideoService{}), "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, rec))
}

func TestTriggerVideoHandler_MissingTenant(t *testing.T) {
	h := NewTriggerVideoHandler(&mockVideoService{})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/videos", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTriggerVideoHandler_AlreadyRunning(t *testing.T) {
	svc := &mockVideoService{trigger: func(studio.VideoInput) (*models.Job, error) {
		return nil, studio.ErrAlreadyRunning
	}}
	rec := serve(t, http.MethodPost, "/api/v1/videos", "/api/v1/videos", NewTriggerVideoHandler(svc),
		map[string]any{"prompt": "a cat", "session_id": "s1"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetVideoHandler(t *testing.T) {
	job := pendingJob()
	job.Status = models.JobStatusRunning
	job.ElapsedSeconds = 20
	svc := &mockVideoService{get: func(id uuid.UUID) (*models.Job, error) {
		if id == job.ID {
			return job, nil
		}
		return nil, studio.ErrJobNotFound
	}}
	h := NewGetVideoHandler(svc)

	t.Run("found", func(t *testing.T) {
		rec := serve(t, http.MethodGet, "/api/v1/videos/{jobID}", "/api/v1/videos/"+job.ID.String(), h, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := dataOf(t, rec)
		assert.Equal(t, "running", data["status"])
		assert.Equal(t, float64(20), data["elapsed_seconds"])
	})

	t.Run("not found", func(t *testing.T) {
		rec := serve(t, http.MethodGet, "/api/v1/videos/{jobID}", "/api/v1/videos/"+uuid.NewString(), h, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := serve(t, http.MethodGet, "/api/v1/videos/{jobID}", "/api/v1/videos/not-a-uuid", h, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ID", errCode(t, rec))
	})
}

func TestCancelVideoHandler(t *testing.T) {
	job := pendingJob()
	svc := &mockVideoService{cancel: func(id uuid.UUID) (*models.Job, error) {
		if id != job.ID {
			return nil, studio.ErrNotCancellable
		}
		cp := *job
		cp.Status = models.JobStatusCancelled
		return &cp, nil
	}}
	h := NewCancelVideoHandler(svc)

	rec := serve(t, http.MethodDelete, "/api/v1/videos/{jobID}", "/api/v1/videos/"+job.ID.String(), h, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", dataOf(t, rec)["status"])

	rec = serve(t, http.MethodDelete, "/api/v1/videos/{jobID}", "/api/v1/videos/"+uuid.NewString(), h, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestArtifactHandler(t *testing.T) {
	jobID := uuid.New()
	svc := &mockVideoService{artifact: func(id uuid.UUID) (*models.Artifact, error) {
		if id != jobID {
			return nil, studio.ErrArtifactNotReady
		}
		return &models.Artifact{MIMEType: "video/mp4", Data: []byte("mp4-bytes")}, nil
	}}
	h := NewArtifactHandler(svc)

	rec := serve(t, http.MethodGet, "/api/v1/videos/{jobID}/artifact", "/api/v1/videos/"+jobID.String()+"/artifact", h, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "mp4-bytes", rec.Body.String())

	rec = serve(t, http.MethodGet, "/api/v1/videos/{jobID}/artifact", "/api/v1/videos/"+uuid.NewString()+"/artifact", h, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListJobsHandler(t *testing.T) {
	var got store.JobFilter
	svc := &mockVideoService{list: func(f store.JobFilter) ([]*models.Job, int, error) {
		got = f
		return []*models.Job{pendingJob(), pendingJob()}, 5, nil
	}}
	h := NewListJobsHandler(svc)

	rec := serve(t, http.MethodGet, "/api/v1/jobs", "/api/v1/jobs?kind=video&status=pending&page=1&limit=2", h, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, testTenant, got.TenantID)
	assert.Equal(t, "video", got.Kind)
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, 2, got.Limit)

	var body struct {
		Data []map[string]any `json:"data"`
		Meta map[string]any   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, float64(5), body.Meta["total"])
	assert.Equal(t, true, body.Meta["has_next"])
}

func TestListJobsHandler_Defaults(t *testing.T) {
	var got store.JobFilter
	svc := &mockVideoService{list: func(f store.JobFilter) ([]*models.Job, int, error) {
		got = f
		return []*models.Job{}, 0, nil
	}}

	rec := serve(t, http.MethodGet, "/api/v1/jobs", "/api/v1/jobs?page=-3&limit=5000", NewListJobsHandler(svc), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 20, got.Limit)
}

func TestListJobsHandler_RejectsUnknownFilters(t *testing.T) {
	h := NewListJobsHandler(&mockVideoService{})

	for _, q := range []string{"kind=audio", "status=done"} {
		rec := serve(t, http.MethodGet, "/api/v1/jobs", "/api/v1/jobs?"+q, h, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

// --- images ---

func TestGenerateImagesHandler(t *testing.T) {
	job := pendingJob()
	job.Kind = models.JobKindImage
	job.Status = models.JobStatusCompleted
	var got studio.ImageInput
	svc := &mockImageService{generate: func(in studio.ImageInput) (*studio.ImageResult, error) {
		got = in
		return &studio.ImageResult{Job: job, Images: []media.Image{
			{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"},
			{Data: []byte{0xff, 0xd8, 0xff}, MIMEType: "image/jpeg"},
		}}, nil
	}}

	rec := serve(t, http.MethodPost, "/api/v1/images", "/api/v1/images", NewGenerateImagesHandler(svc), map[string]any{
		"prompt": "a lighthouse", "count": 2, "aspect_ratio": "4:3", "reference": "data:image/png;base64,AAAA", "session_id": "s1",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "4:3", got.AspectRatio)
	assert.Equal(t, "data:image/png;base64,AAAA", got.Reference)
	assert.Equal(t, "s1", got.SessionID)

	data := dataOf(t, rec)
	assert.Equal(t, job.ID.String(), data["job_id"])
	images := data["images"].([]any)
	require.Len(t, images, 2)
	first := images[0].(map[string]any)
	assert.Equal(t, "image/png", first["mime_type"])
	assert.True(t, strings.HasPrefix(first["data_url"].(string), "data:image/png;base64,"))
}

func TestImageHandlers_BodySessionWinsOverHeader(t *testing.T) {
	result := &studio.ImageResult{Job: pendingJob(), Images: []media.Image{{Data: []byte{1}, MIMEType: "image/png"}}}
	var gen studio.ImageInput
	var edit studio.EditInput
	svc := &mockImageService{
		generate: func(in studio.ImageInput) (*studio.ImageResult, error) {
			gen = in
			return result, nil
		},
		edit: func(in studio.EditInput) (*studio.ImageResult, error) {
			edit = in
			return result, nil
		},
	}

	rec := serveWithSession(t, NewGenerateImagesHandler(svc), "/api/v1/images", "from-header", `{"prompt":"x","session_id":"from-body"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-body", gen.SessionID)

	rec = serveWithSession(t, NewEditImageHandler(svc), "/api/v1/images/edit", "from-header", `{"prompt":"x","image":"data:image/png;base64,AAAA"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-header", edit.SessionID)
}

func TestGenerateImagesHandler_QuotaExceeded(t *testing.T) {
	svc := &mockImageService{generate: func(studio.ImageInput) (*studio.ImageResult, error) {
		return nil, fmt.Errorf("generating images: %w", media.ErrQuotaExceeded)
	}}

	rec := serve(t, http.MethodPost, "/api/v1/images", "/api/v1/images", NewGenerateImagesHandler(svc),
		map[string]any{"prompt": "x"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestEditImageHandler(t *testing.T) {
	job := pendingJob()
	job.Kind = models.JobKindEdit
	var got studio.EditInput
	svc := &mockImageService{edit: func(in studio.EditInput) (*studio.ImageResult, error) {
		got = in
		return &studio.ImageResult{Job: job, Images: []media.Image{{Data: []byte("img"), MIMEType: "image/png"}}}, nil
	}}

	rec := serve(t, http.MethodPost, "/api/v1/images/edit", "/api/v1/images/edit", NewEditImageHandler(svc), map[string]any{
		"prompt": "add a hat", "image": "data:image/png;base64,AAAA", "object": "data:image/png;base64,BBBB",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "add a hat", got.Prompt)
	assert.Equal(t, "data:image/png;base64,BBBB", got.Object)
	assert.Len(t, dataOf(t, rec)["images"], 1)
}

// --- sessions ---

func TestSessionHandlers(t *testing.T) {
	active := uuid.New()
	svc := &mockSessionService{sessions: map[string]*studio.Session{
		"s1": {ID: "s1", LastImage: "data:image/png;base64,AAAA", ActiveJobID: &active},
	}}

	rec := serve(t, http.MethodGet, "/api/v1/sessions/{sessionID}", "/api/v1/sessions/s1", NewGetSessionHandler(svc), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data:image/png;base64,AAAA", dataOf(t, rec)["last_image"])

	rec = serve(t, http.MethodGet, "/api/v1/sessions/{sessionID}", "/api/v1/sessions/missing", NewGetSessionHandler(svc), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, http.MethodPut, "/api/v1/sessions/{sessionID}", "/api/v1/sessions/s1", NewPutSessionHandler(svc),
		map[string]any{"reference_image": "data:image/png;base64,CCCC"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored := svc.sessions["s1"]
	assert.Equal(t, "data:image/png;base64,CCCC", stored.ReferenceImage)
	assert.Empty(t, stored.LastImage)
	require.NotNil(t, stored.ActiveJobID)
	assert.Equal(t, active, *stored.ActiveJobID)
}

func TestPutSessionHandler_InvalidImage(t *testing.T) {
	svc := &mockSessionService{sessions: map[string]*studio.Session{}, putErr: fmt.Errorf("%w: bad data URL", media.ErrInvalidImage)}

	rec := serve(t, http.MethodPut, "/api/v1/sessions/{sessionID}", "/api/v1/sessions/s2", NewPutSessionHandler(svc),
		map[string]any{"last_image": "nope"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- keys ---

func TestCreateKeyHandler(t *testing.T) {
	ks := &mockKeyStore{}

	rec := serve(t, http.MethodPost, "/api/v1/admin/keys", "/api/v1/admin/keys", NewCreateKeyHandler(ks),
		map[string]any{"name": "ci"})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := dataOf(t, rec)
	raw := data["key"].(string)
	assert.True(t, strings.HasPrefix(raw, "mfk_"))
	assert.Equal(t, raw[:8], data["key_prefix"])

	require.Len(t, ks.keys, 1)
	assert.Equal(t, []string{"read", "write"}, ks.keys[0].Scopes)
	assert.NotEqual(t, raw, ks.keys[0].KeyHash)
	assert.Equal(t, testTenant, ks.keys[0].TenantID)
}

func TestCreateKeyHandler_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"name": "  "}},
		{"bad scope", map[string]any{"name": "x", "scopes": []string{"root"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, http.MethodPost, "/api/v1/admin/keys", "/api/v1/admin/keys", NewCreateKeyHandler(&mockKeyStore{}), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateKeyHandler_Duplicate(t *testing.T) {
	ks := &mockKeyStore{createErr: store.ErrDuplicateKey}

	rec := serve(t, http.MethodPost, "/api/v1/admin/keys", "/api/v1/admin/keys", NewCreateKeyHandler(ks),
		map[string]any{"name": "ci"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_KEY_NAME", errCode(t, rec))
}

func TestListAndRevokeKeyHandlers(t *testing.T) {
	key := &models.APIKey{ID: uuid.New(), TenantID: testTenant, Name: "ci", KeyPrefix: "mfk_abcd", KeyHash: "secret"}
	ks := &mockKeyStore{keys: []*models.APIKey{key}}

	rec := serve(t, http.MethodGet, "/api/v1/admin/keys", "/api/v1/admin/keys", NewListKeysHandler(ks), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	rec = serve(t, http.MethodDelete, "/api/v1/admin/keys/{keyID}", "/api/v1/admin/keys/"+key.ID.String(), NewRevokeKeyHandler(ks), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, http.MethodDelete, "/api/v1/admin/keys/{keyID}", "/api/v1/admin/keys/"+uuid.NewString(), NewRevokeKeyHandler(ks), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- health ---

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		db     error
		cache  error
		status int
	}{
		{"all ok", nil, nil, http.StatusOK},
		{"database degraded", errors.New("connection refused"), nil, http.StatusServiceUnavailable},
		{"cache degraded", nil, errors.New("redis down"), http.StatusServiceUnavailable},
		{"both degraded", errors.New("db down"), errors.New("redis down"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(pinger{tt.db}, pinger{tt.cache}, "fake")
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				data := dataOf(t, rec)
				assert.Equal(t, "ok", data["status"])
				assert.Equal(t, "fake", data["backend"])
			} else {
				assert.Equal(t, "DEGRADED", errCode(t, rec))
			}
		})
	}
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	h := NewTriggerVideoHandler(&mockVideoService{})
	wrapped := mw.MaxBody(16)(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos",
		strings.NewReader(`{"prompt":"`+strings.Repeat("a", 64)+`"}`))
	req = req.WithContext(mw.SetTenantID(req.Context(), testTenant))
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "BODY_TOO_LARGE", errCode(t, rec))
}
