package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotate/internal/datastore/inmem"
	"annotate/internal/interfaces"
	"annotate/internal/models"
	"annotate/internal/pkg/caching"
	"annotate/internal/pkg/limiter"
	"annotate/internal/pkg/locking"
	"annotate/internal/pkg/objectstore"
	"annotate/internal/services"
)

type env struct {
	t       *testing.T
	handler http.Handler
	key     *rsa.PrivateKey
	repo    *inmem.Repository
	store   *objectstore.Memory

	admin      *models.User
	annotator  *models.User
	stranger   string
	transcript *models.Transcript
	lines      []*models.Line
	questions  []*models.ScavengerQuestion
}

func newEnv(t *testing.T, config *services.Config, lim interfaces.Limiter) *env {
	t.Helper()
	ctx := context.Background()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	authentication, err := services.NewAuthentication(string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil)
	require.NoError(t, err)

	repo := inmem.New()
	store := objectstore.NewMemory()

	injector := do.New()
	do.ProvideValue[interfaces.Repository](injector, repo)
	do.ProvideValue[caching.Cache](injector, caching.Noop{})
	do.ProvideValue[interfaces.Locker](injector, locking.NewLocal())
	do.ProvideValue[interfaces.Limiter](injector, lim)
	do.ProvideValue[interfaces.ObjectStore](injector, store)
	do.ProvideValue(injector, config)
	do.ProvideValue(injector, authentication)
	do.Provide(injector, services.NewServiceUser)
	do.Provide(injector, services.NewServiceTranscript)
	do.Provide(injector, services.NewServiceAssignment)
	do.Provide(injector, services.NewServiceAnnotation)
	do.Provide(injector, services.NewServiceScavenger)
	do.Provide(injector, services.NewServiceExport)
	do.Provide(injector, services.NewServiceVideo)

	h, err := New(&Config{Container: injector, Mode: "production", Origins: []string{"*"}})
	require.NoError(t, err)

	e := &env{t: t, handler: h, key: key, repo: repo, store: store, stranger: "user_stranger"}

	workspace := &models.Workspace{Name: "School"}
	require.NoError(t, repo.CreateWorkspace(ctx, workspace))
	e.admin = &models.User{ClerkID: "user_admin", Name: "Ada", Role: models.RoleAdmin, WorkspaceID: workspace.ID}
	e.annotator = &models.User{ClerkID: "user_annotator", Name: "Ben", Role: models.RoleAnnotator, WorkspaceID: workspace.ID}
	require.NoError(t, repo.CreateUser(ctx, e.admin))
	require.NoError(t, repo.CreateUser(ctx, e.annotator))

	e.transcript = &models.Transcript{WorkspaceID: workspace.ID, Name: "T1", CreatedBy: e.admin.ID}
	require.NoError(t, repo.CreateTranscript(ctx, e.transcript))
	e.lines = []*models.Line{
		{TranscriptID: e.transcript.ID, Line: 1, Speaker: "Teacher", Utterance: "Why?"},
		{TranscriptID: e.transcript.ID, Line: 2, Speaker: "Student", Utterance: "Because."},
	}
	require.NoError(t, repo.CreateLines(ctx, e.lines))
	require.NoError(t, repo.CreateAssignment(ctx, &models.AnnotationAssignment{TranscriptID: e.transcript.ID, AnnotatorID: e.annotator.ID}))

	hunt := &models.ScavengerHunt{TranscriptID: e.transcript.ID}
	require.NoError(t, repo.CreateHunt(ctx, hunt))
	e.questions = []*models.ScavengerQuestion{
		{HuntID: hunt.ID, Question: "Q1", OrderIndex: 0},
		{HuntID: hunt.ID, Question: "Q2", OrderIndex: 1},
	}
	require.NoError(t, repo.CreateQuestions(ctx, e.questions))
	return e
}

func (e *env) token(sub string) string {
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(e.key)
	require.NoError(e.t, err)
	return token
}

func (e *env) do(method, path, sub string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sub != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(sub))
	}
	return e.serve(req)
}

func (e *env) serve(req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestMe(t *testing.T) {
	e := newEnv(t, services.DefaultConfig(), limiter.Unlimited{})

	rec, body := e.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, body = e.do(http.MethodGet, "/api/me", e.stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "user not found", body["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec, _ = e.serve(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "__session", Value: e.token(e.annotator.ClerkID)})
	rec, body = e.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "annotator", body["user"].(map[string]interface{})["role"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestScavengerHuntFlow(t *testing.T) {
	e := newEnv(t, services.DefaultConfig(), limiter.Unlimited{})
	sub := e.annotator.ClerkID
	base := fmt.Sprintf("/api/transcripts/%d/scavenger-hunt", e.transcript.ID)
	q1, l1, l2 := e.questions[0].ID, e.lines[0].ID, e.lines[1].ID

	rec, body := e.do(http.MethodPost, base+"/answers", sub, map[string]interface{}{
		"questionId": q1,
		"answer":     "because",
		"lineIds":    []int64{l1, l2, l1},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	answer := body["answer"].(map[string]interface{})
	assert.Equal(t, float64(q1), answer["questionId"])
	assert.Equal(t, "because", answer["answer"])
	assert.Equal(t, []interface{}{float64(l1), float64(l2)}, answer["selectedLineIds"])
	assert.NotNil(t, answer["updatedAt"])

	rec, body = e.do(http.MethodGet, fmt.Sprintf("/api/scavenger-hunt?transcriptId=%d", e.transcript.ID), sub, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["scavengerCompleted"])
	hunt := body["scavengerHunt"].(map[string]interface{})
	assert.Contains(t, hunt, "created_at")
	questions := hunt["questions"].([]interface{})
	require.Len(t, questions, 2)
	first := questions[0].(map[string]interface{})
	assert.Equal(t, "because", first["answer"])
	assert.Equal(t, float64(0), first["orderIndex"])
	second := questions[1].(map[string]interface{})
	assert.Equal(t, "", second["answer"])
	assert.Equal(t, []interface{}{}, second["selectedLineIds"])

	rec, body = e.do(http.MethodPatch, base, sub, map[string]interface{}{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["completed"])

	rec, body = e.do(http.MethodPatch, base, sub, map[string]interface{}{"completed": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["completed"])

	rec, body = e.do(http.MethodPatch, base, sub, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["completed"], "completed defaults to true")

	rec, body = e.do(http.MethodPost, base+"/answers", sub, map[string]interface{}{"questionId": q1, "answer": "", "lineIds": []int64{}})
	require.Equal(t, http.StatusOK, rec.Code)
	answer = body["answer"].(map[string]interface{})
	assert.Nil(t, answer["updatedAt"])
	assert.Equal(t, []interface{}{}, answer["selectedLineIds"])
}

func TestScavengerHuntErrors(t *testing.T) {
	e := newEnv(t, services.DefaultConfig(), limiter.Unlimited{})
	sub := e.annotator.ClerkID

	rec, body := e.do(http.MethodGet, "/api/scavenger-hunt", sub, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing transcript id", body["error"])

	rec, _ = e.do(http.MethodGet, "/api/scavenger-hunt?transcriptId=abc", sub, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(http.MethodGet, fmt.Sprintf("/api/transcripts/%d/scavenger-hunt", e.transcript.ID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = e.do(http.MethodGet, fmt.Sprintf("/api/transcripts/%d/scavenger-hunt", e.transcript.ID), e.stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = e.do(http.MethodGet, fmt.Sprintf("/api/transcripts/%d/scavenger-hunt", e.transcript.ID), e.admin.ClerkID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])

	path := fmt.Sprintf("/api/transcripts/%d/scavenger-hunt/answers", e.transcript.ID)
	rec, body = e.do(http.MethodPost, path, sub, map[string]interface{}{"answer": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid question id", body["error"])

	rec, body = e.do(http.MethodPost, path, sub, map[string]interface{}{"questionId": 99999, "answer": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid question id", body["error"])

	rec, _ = e.do(http.MethodPost, path, sub, map[string]interface{}{"questionId": "one"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = e.do(http.MethodPost, path, sub, map[string]interface{}{"questionId": e.questions[0].ID, "lineIds": []int64{424242}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid line id", body["error"])
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	e := newEnv(t, services.DefaultConfig(), limiter.Unlimited{})
	e.repo.Fail("FindOrCreateScavengerAssignment", fmt.Errorf("pq: relation does not exist"))

	rec, body := e.do(http.MethodPost, fmt.Sprintf("/api/transcripts/%d/scavenger-hunt/answers", e.transcript.ID), e.annotator.ClerkID,
		map[string]interface{}{"questionId": e.questions[0].ID, "answer": "x"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "unexpected error occurred", body["error"])
	assert.Equal(t, false, body["success"])
}

func TestSaveAnswerRateLimited(t *testing.T) {
	config := services.DefaultConfig()
	config.SaveRatePerMinute = 1
	e := newEnv(t, config, limiter.NewLocal())
	path := fmt.Sprintf("/api/transcripts/%d/scavenger-hunt/answers", e.transcript.ID)
	input := map[string]interface{}{"questionId": e.questions[0].ID, "answer": "x"}

	rec, _ := e.do(http.MethodPost, path, e.annotator.ClerkID, input)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body := e.do(http.MethodPost, path, e.annotator.ClerkID, input)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many requests", body["error"])
}

func TestExport(t *testing.T) {
	e := newEnv(t, services.DefaultConfig(), limiter.Unlimited{})
	rec, _ := e.do(http.MethodPost, fmt.Sprintf("/api/transcripts/%d/scavenger-hunt/answers", e.transcript.ID), e.annotator.ClerkID,
		map[string]interface{}{"questionId": e.questions[0].ID, "answer": "x", "lineIds": []int64{e.lines[1].ID}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := e.do(http.MethodGet, "/api/admin/scavenger-submissions", e.admin.ClerkID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	submissions := body["submissions"].([]interface{})
	require.Len(t, submissions, 1)
	id := int64(submissions[0].(map[string]interface{})["assignment_id"].(float64))

	rec, _ = e.do(http.MethodGet, fmt.Sprintf("/api/admin/scavenger-submissions/%d/export", id), e.admin.ClerkID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.SCAVENGER_EXPORT_CONTENT_TYPE, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())

	rec, body = e.do(http.MethodGet, "/api/admin/scavenger-submissions/export", e.admin.ClerkID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing assignment id", body["error"])
	assert.NotContains(t, body, "success")

	rec, body = e.do(http.MethodGet, fmt.Sprintf("/api/admin/scavenger-submissions/export?assignmentId=%d", id+100), e.admin.ClerkID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, body, "success")

	rec, _ = e.do(http.MethodGet, fmt.Sprintf("/api/admin/scavenger-submissions/%d/export", id), e.annotator.ClerkID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func multipartRequest(t *testing.T, path, filename, contentType, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAdminTranscriptAndVideo(t *testing.T) {
	e := newEnv(t, services.DefaultConfig(), limiter.Unlimited{})
	auth := "Bearer " + e.token(e.admin.ClerkID)

	req := multipartRequest(t, "/api/admin/transcripts", "lesson.csv", "text/csv", "line,speaker,utterance\n1,Teacher,Hello\n", map[string]string{"name": "Lesson 2"})
	req.Header.Set("Authorization", auth)
	rec, body := e.serve(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	transcript := body["transcript"].(map[string]interface{})
	assert.Equal(t, "Lesson 2", transcript["name"])

	req = multipartRequest(t, "/api/admin/transcripts", "lesson.csv", "text/csv", "line,text\n1,Hello\n", nil)
	req.Header.Set("Authorization", auth)
	rec, body = e.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing required columns: speaker, utterance", body["error"])

	req = multipartRequest(t, fmt.Sprintf("/api/admin/transcripts/%d/video", e.transcript.ID), "clip.mp4", "video/mp4", "binary", nil)
	req.Header.Set("Authorization", auth)
	rec, _ = e.serve(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, e.store.Len())

	rec, body = e.do(http.MethodGet, fmt.Sprintf("/api/transcripts/%d/video", e.transcript.ID), e.annotator.ClerkID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["url"])

	rec, _ = e.do(http.MethodDelete, fmt.Sprintf("/api/admin/transcripts/%d/video", e.transcript.ID), e.admin.ClerkID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, e.store.Len())

	rec, _ = e.do(http.MethodDelete, fmt.Sprintf("/api/admin/transcripts/%d", e.transcript.ID), e.annotator.ClerkID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAssignmentsNotesAndFlags(t *testing.T) {
	e := newEnv(t, services.DefaultConfig(), limiter.Unlimited{})
	ctx := context.Background()
	other := &models.User{ClerkID: "user_other", Name: "Cleo", Role: models.RoleAnnotator, WorkspaceID: e.admin.WorkspaceID}
	require.NoError(t, e.repo.CreateUser(ctx, other))

	rec, body := e.do(http.MethodPost, fmt.Sprintf("/api/admin/transcripts/%d/assignments", e.transcript.ID), e.admin.ClerkID,
		map[string]interface{}{"annotatorId": other.ID, "llmAnnotationsVisible": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assignmentID := int64(body["assignment"].(map[string]interface{})["id"].(float64))

	rec, body = e.do(http.MethodPost, fmt.Sprintf("/api/admin/transcripts/%d/assignments", e.transcript.ID), e.admin.ClerkID,
		map[string]interface{}{"annotatorId": other.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "already assigned", body["error"])

	rec, _ = e.do(http.MethodPost, fmt.Sprintf("/api/admin/transcripts/%d/assignments", e.transcript.ID), e.admin.ClerkID, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = e.do(http.MethodPatch, fmt.Sprintf("/api/admin/assignments/%d", assignmentID), e.admin.ClerkID, map[string]interface{}{"llmAnnotationsVisible": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["assignment"].(map[string]interface{})["llm_annotations_visible"])

	base := fmt.Sprintf("/api/transcripts/%d", e.transcript.ID)
	rec, body = e.do(http.MethodPost, base+"/notes", other.ClerkID, map[string]interface{}{"content": "good wait time", "lineIds": []int64{e.lines[0].ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	noteID := int64(body["note"].(map[string]interface{})["id"].(float64))

	rec, body = e.do(http.MethodGet, base+"/notes", other.ClerkID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["notes"], 1)

	rec, _ = e.do(http.MethodPatch, fmt.Sprintf("%s/notes/%d", base, noteID), other.ClerkID, map[string]interface{}{"content": "edited"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(http.MethodDelete, fmt.Sprintf("%s/notes/%d", base, noteID), e.annotator.ClerkID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "notes are private to their assignment")

	rec, _ = e.do(http.MethodDelete, fmt.Sprintf("%s/notes/%d", base, noteID), other.ClerkID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = e.do(http.MethodPut, fmt.Sprintf("%s/flags/%d", base, e.lines[1].ID), other.ClerkID, map[string]interface{}{"flagged": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{float64(e.lines[1].ID)}, body["flagged_line_ids"])

	rec, _ = e.do(http.MethodPut, fmt.Sprintf("%s/flags/%d", base, e.lines[1].ID), other.ClerkID, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = e.do(http.MethodPatch, base+"/annotation", other.ClerkID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["assignment"].(map[string]interface{})["completed"])

	rec, body = e.do(http.MethodGet, base, other.ClerkID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["lines"], 2)

	rec, _ = e.do(http.MethodDelete, fmt.Sprintf("/api/admin/assignments/%d", assignmentID), e.admin.ClerkID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = e.do(http.MethodGet, base, other.ClerkID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics(t *testing.T) {
	e := newEnv(t, services.DefaultConfig(), limiter.Unlimited{})
	e.do(http.MethodGet, "/api/me", "", nil)

	rec, _ := e.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "annotate_requests_total")
}
