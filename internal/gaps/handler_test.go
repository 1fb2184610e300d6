package gaps_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"knowledge-backend/internal/embedding"
	"knowledge-backend/internal/gaps"
	"knowledge-backend/internal/index"
	"knowledge-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gaps.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := gaps.NewMemoryRepo()
	svc := &gaps.Service{
		Repo:     repo,
		Weights:  gaps.NewMemoryWeightsRepo(),
		Pipeline: &index.Pipeline{Embedder: &embedding.StaticEmbedder{Dim: 8}, Index: index.NewMemoryIndex()},
	}

	router := gin.New()
	api := router.Group("/api/v1", middleware.Tenant())
	gaps.NewHandler(svc).RegisterRoutes(api)
	return router, repo
}

func createGap(t *testing.T, repo *gaps.MemoryRepo, id, status string, questions ...string) {
	t.Helper()
	gap := gaps.KnowledgeGap{
		ID:          id,
		TenantID:    "tenant-1",
		Title:       "Payments vendor rationale",
		Category:    "decision",
		Priority:    4,
		Status:      status,
		Fingerprint: "fp-" + id,
	}
	for i, q := range questions {
		gap.Questions = append(gap.Questions, gaps.Question{Index: i, Text: q})
	}
	if err := repo.Create(context.Background(), gap); err != nil {
		t.Fatalf("create gap: %v", err)
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "tenant-1")
	req.Header.Set("X-User-Id", "user-7")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestSubmitAnswerEndpoint(t *testing.T) {
	router, repo := newTestRouter(t)
	createGap(t, repo, "gap-1", gaps.StatusOpen, "Why vendor A over vendor B?")

	resp := doJSON(t, router, http.MethodPost, "/api/v1/gaps/gap-1/answers", map[string]any{
		"questionIndex": 0,
		"text":          "Existing contract made A cheaper.",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Gap       gaps.KnowledgeGap `json:"gap"`
		Answer    gaps.GapAnswer    `json:"answer"`
		Embedding struct {
			Success   bool `json:"success"`
			Retryable bool `json:"retryable"`
		} `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Gap.Status != gaps.StatusAnswered {
		t.Fatalf("gap status = %q, want answered", body.Gap.Status)
	}
	if body.Answer.AuthorUserID != "user-7" {
		t.Fatalf("answer author = %q", body.Answer.AuthorUserID)
	}
	if !body.Embedding.Success {
		t.Fatal("embedding should succeed with the static embedder")
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	router, repo := newTestRouter(t)
	createGap(t, repo, "gap-1", gaps.StatusOpen, "Q0")
	createGap(t, repo, "gap-closed", gaps.StatusClosed, "Q0")

	cases := []struct {
		name string
		path string
		body map[string]any
		want int
	}{
		{"empty text", "/api/v1/gaps/gap-1/answers", map[string]any{"questionIndex": 0, "text": "   "}, http.StatusBadRequest},
		{"index out of range", "/api/v1/gaps/gap-1/answers", map[string]any{"questionIndex": 5, "text": "hi"}, http.StatusBadRequest},
		{"closed gap", "/api/v1/gaps/gap-closed/answers", map[string]any{"questionIndex": 0, "text": "hi"}, http.StatusConflict},
		{"unknown gap", "/api/v1/gaps/nope/answers", map[string]any{"questionIndex": 0, "text": "hi"}, http.StatusNotFound},
		{"voice without transcriber", "/api/v1/gaps/gap-1/answers", map[string]any{"questionIndex": 0, "isVoice": true, "audioB64": "aGk="}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, router, http.MethodPost, tc.path, tc.body)
			if resp.Code != tc.want {
				t.Fatalf("status = %d, want %d, body = %s", resp.Code, tc.want, resp.Body.String())
			}
		})
	}
}

func TestTenantHeaderRequired(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gaps", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestGapLifecycleEndpoints(t *testing.T) {
	router, repo := newTestRouter(t)
	createGap(t, repo, "gap-1", gaps.StatusAnswered, "Q0")

	if resp := doJSON(t, router, http.MethodPost, "/api/v1/gaps/gap-1/verify", nil); resp.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body = %s", resp.Code, resp.Body.String())
	}
	if resp := doJSON(t, router, http.MethodPost, "/api/v1/gaps/gap-1/verify", nil); resp.Code != http.StatusConflict {
		t.Fatalf("second verify status = %d, want 409", resp.Code)
	}
	if resp := doJSON(t, router, http.MethodPost, "/api/v1/gaps/gap-1/close", nil); resp.Code != http.StatusOK {
		t.Fatalf("close status = %d", resp.Code)
	}

	resp := doJSON(t, router, http.MethodGet, "/api/v1/gaps/gap-1", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get status = %d", resp.Code)
	}
	var detail gaps.GapDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Status != gaps.StatusClosed {
		t.Fatalf("status = %q, want closed", detail.Status)
	}
	if detail.Answers == nil {
		t.Fatal("answers must serialize as an empty array")
	}
}

func TestRecordFeedbackEndpoint(t *testing.T) {
	router, repo := newTestRouter(t)
	createGap(t, repo, "gap-1", gaps.StatusOpen, "Q0")

	if resp := doJSON(t, router, http.MethodPost, "/api/v1/gaps/gap-1/feedback", map[string]any{"useful": true, "comment": "spot on"}); resp.Code != http.StatusOK {
		t.Fatalf("feedback status = %d, body = %s", resp.Code, resp.Body.String())
	}
	// useful is mandatory
	if resp := doJSON(t, router, http.MethodPost, "/api/v1/gaps/gap-1/feedback", map[string]any{"comment": "eh"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing useful status = %d, want 400", resp.Code)
	}

	gap, err := repo.GetByID(context.Background(), "tenant-1", "gap-1")
	if err != nil {
		t.Fatalf("get gap: %v", err)
	}
	if gap.UsefulCount != 1 || gap.NotUsefulCount != 0 {
		t.Fatalf("counts = %d/%d, want 1/0", gap.UsefulCount, gap.NotUsefulCount)
	}
}

func TestListGapsFilters(t *testing.T) {
	router, repo := newTestRouter(t)
	createGap(t, repo, "gap-1", gaps.StatusOpen, "Q0")
	createGap(t, repo, "gap-2", gaps.StatusClosed, "Q0")

	resp := doJSON(t, router, http.MethodGet, "/api/v1/gaps?status=open", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list status = %d", resp.Code)
	}
	var body struct {
		Gaps []gaps.KnowledgeGap `json:"gaps"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(body.Gaps) != 1 || body.Gaps[0].ID != "gap-1" {
		t.Fatalf("filtered list = %+v", body.Gaps)
	}

	if resp := doJSON(t, router, http.MethodGet, "/api/v1/gaps?limit=zero", nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want 400", resp.Code)
	}
}
