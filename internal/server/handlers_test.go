package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/kapu/nyaay-triage-go/internal/service/triage"
	"github.com/kapu/nyaay-triage-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTriager struct {
	mu      sync.Mutex
	queries []domain.Query
	result  *domain.TriageResult
	err     error
}

func (f *fakeTriager) Triage(ctx context.Context, query domain.Query) (*domain.TriageResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.TriageResult{
		Query:  query.Text,
		Source: domain.QuerySourceText,
		LocalLabels: domain.LocalLabels{
			Bias:       "none",
			LegalIssue: "tenant_dispute",
			Urgency:    "high",
		},
		Remote: domain.RemoteClassification{
			LegalIssue: "tenant_dispute",
			Bias:       "none",
			Urgency:    "high",
		},
		Advice:  "File a complaint with the rent authority.",
		Lawyers: []domain.ProviderRecord{},
		NGOs:    []domain.ProviderRecord{},
	}, nil
}

func (f *fakeTriager) last(t *testing.T) domain.Query {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.queries)
	return f.queries[len(f.queries)-1]
}

func newTestServer(cfg Config, triager Triager) *Server {
	return New(cfg, triager, nil, zap.NewNop())
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	kind, _ := errBody["kind"].(string)
	return kind
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/chat/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/chat/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRoot(t *testing.T) {
	s := newTestServer(Config{}, &fakeTriager{})

	rec := do(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(Config{}, &fakeTriager{})
	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	s = New(Config{}, &fakeTriager{}, func() map[string]any {
		return map[string]any{"status": "ok", "language_model": map[string]any{"state": "closed"}}
	}, zap.NewNop())
	rec = do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Contains(t, decode(t, rec), "language_model")
}

func TestChatMultipartText(t *testing.T) {
	triager := &fakeTriager{}
	s := newTestServer(Config{}, triager)

	rec := do(s, multipartRequest(t, map[string]string{"query": "My landlord kept my deposit"}, "", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	for _, key := range []string{"query", "bias", "legal_issue", "urgency", "gpt_class", "advice", "lawyers", "ngos"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, "My landlord kept my deposit", triager.last(t).Text)
	assert.Nil(t, triager.last(t).Audio)
}

func TestChatMultipartAudio(t *testing.T) {
	triager := &fakeTriager{}
	s := newTestServer(Config{}, triager)

	audio := []byte("ID3fake-mp3-bytes")
	rec := do(s, multipartRequest(t, map[string]string{"query": "ignored"}, "voice.mp3", audio))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := triager.last(t)
	require.NotNil(t, q.Audio)
	assert.Equal(t, audio, q.Audio.Data)
	assert.Equal(t, "voice.mp3", q.Audio.Filename)
	assert.Equal(t, "ignored", q.Text)
}

func TestChatEmptyUploadIsNoAudio(t *testing.T) {
	triager := &fakeTriager{}
	s := newTestServer(Config{}, triager)

	rec := do(s, multipartRequest(t, map[string]string{"query": "hello"}, "empty.wav", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, triager.last(t).Audio)
}

func TestChatJSONAndURLEncoded(t *testing.T) {
	triager := &fakeTriager{}
	s := newTestServer(Config{}, triager)

	rec := do(s, jsonRequest(`{"query":"salary not paid for 3 months"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "salary not paid for 3 months", triager.last(t).Text)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("query=police+refused+FIR"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = do(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "police refused FIR", triager.last(t).Text)
}

func TestChatInvalidJSON(t *testing.T) {
	s := newTestServer(Config{}, &fakeTriager{})

	rec := do(s, jsonRequest(`{"query":`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeValidation, errorKind(t, rec))
}

func TestChatTriageErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
		stage  string
	}{
		{errors.NewEmptyQueryError(), http.StatusBadRequest, "EMPTY_QUERY", "received"},
		{errors.NewTranscriptionError("transcription failed", fmt.Errorf("boom")), http.StatusUnprocessableEntity, "TRANSCRIPTION_ERROR", "transcribe"},
		{errors.NewClassificationUnavailableError("bias", fmt.Errorf("down")), http.StatusServiceUnavailable, "CLASSIFICATION_UNAVAILABLE", "local_classify"},
		{errors.NewModelUnavailableError(errors.StageGenerateAdvice, fmt.Errorf("down")), http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "generate_advice"},
		{errors.NewMalformedModelOutputError("not json", nil), http.StatusBadGateway, "MALFORMED_MODEL_OUTPUT", "remote_classify"},
	}

	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			s := newTestServer(Config{}, &fakeTriager{err: tc.err})

			rec := do(s, jsonRequest(`{"query":"x"}`))

			assert.Equal(t, tc.status, rec.Code)
			errBody := decode(t, rec)["error"].(map[string]any)
			assert.Equal(t, tc.kind, errBody["kind"])
			assert.Equal(t, tc.stage, errBody["stage"])
			assert.NotEmpty(t, errBody["message"])
		})
	}
}

func TestChatUnexpectedError(t *testing.T) {
	s := newTestServer(Config{}, &fakeTriager{err: fmt.Errorf("something odd")})

	rec := do(s, jsonRequest(`{"query":"x"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL", errorKind(t, rec))
	assert.NotContains(t, rec.Body.String(), "something odd")
}

type stubClassifier struct {
	label string
	block bool
}

func (c stubClassifier) Predict(ctx context.Context, _ string) (string, error) {
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return c.label, nil
}

// blockingModel never answers before the caller's deadline.
type blockingModel struct{}

func (blockingModel) Complete(ctx context.Context, _ domain.CompletionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestChatTimeout(t *testing.T) {
	cases := map[string]triage.Resources{
		"language model": {
			BiasClassifier:       stubClassifier{label: "none"},
			LegalIssueClassifier: stubClassifier{label: "tenant_dispute"},
			UrgencyClassifier:    stubClassifier{label: "high"},
			Model:                blockingModel{},
		},
		"local classifier": {
			BiasClassifier:       stubClassifier{label: "none"},
			LegalIssueClassifier: stubClassifier{block: true},
			UrgencyClassifier:    stubClassifier{label: "high"},
			Model:                blockingModel{},
		},
	}

	for name, resources := range cases {
		t.Run(name, func(t *testing.T) {
			pipeline := triage.NewPipeline(resources, nil, triage.PipelineConfig{}, zap.NewNop())
			s := newTestServer(Config{RequestTimeout: 20 * time.Millisecond}, pipeline)

			rec := do(s, jsonRequest(`{"query":"my landlord kept the deposit"}`))

			assert.Equal(t, http.StatusGatewayTimeout, rec.Code, rec.Body.String())
			assert.Equal(t, "TIMEOUT", errorKind(t, rec))
		})
	}
}

func TestChatModelFailureIsNotTimeout(t *testing.T) {
	s := newTestServer(Config{RequestTimeout: time.Second}, &fakeTriager{
		err: errors.NewModelUnavailableError(errors.StageRemoteClassify, fmt.Errorf("connection refused")),
	})

	rec := do(s, jsonRequest(`{"query":"x"}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "MODEL_UNAVAILABLE", errorKind(t, rec))
}

func TestChatLimits(t *testing.T) {
	t.Run("query too long", func(t *testing.T) {
		triager := &fakeTriager{}
		s := newTestServer(Config{MaxQueryLength: 5}, triager)

		rec := do(s, jsonRequest(`{"query":"abcdefgh"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.CodeValidation, errorKind(t, rec))
		assert.Empty(t, triager.queries)
	})

	t.Run("audio too large", func(t *testing.T) {
		triager := &fakeTriager{}
		s := newTestServer(Config{MaxAudioBytes: 16}, triager)

		rec := do(s, multipartRequest(t, nil, "voice.wav", bytes.Repeat([]byte("a"), 64)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Empty(t, triager.queries)
	})
}

func TestCORS(t *testing.T) {
	s := newTestServer(Config{}, &fakeTriager{})

	req := httptest.NewRequest(http.MethodOptions, "/chat/", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := do(s, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	restricted := newTestServer(Config{CORSAllowedOrigins: []string{"https://nyaay.example"}}, &fakeTriager{})
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = do(restricted, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://nyaay.example/")
	rec = do(restricted, req)
	assert.Equal(t, "https://nyaay.example/", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRequestID(t *testing.T) {
	s := newTestServer(Config{}, &fakeTriager{})

	rec := do(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec = do(s, req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(Config{RateLimitPerSecond: 0.001, RateLimitBurst: 1}, &fakeTriager{})

	first := do(s, httptest.NewRequest(http.MethodGet, "/", nil))
	second := do(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "RATE_LIMITED", errorKind(t, second))

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	assert.Equal(t, http.StatusOK, do(s, other).Code)
}

func TestRateLimiterPrunesIdleClients(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(1, 1)
	l.now = func() time.Time { return clock }

	l.get("192.0.2.1")
	l.get("192.0.2.2")
	require.Len(t, l.limiters, 2)

	clock = clock.Add(5 * time.Minute)
	l.get("192.0.2.2")

	clock = clock.Add(limiterIdleTTL)
	l.get("192.0.2.3")

	assert.NotContains(t, l.limiters, "192.0.2.1")
	assert.NotContains(t, l.limiters, "192.0.2.2")
	assert.Contains(t, l.limiters, "192.0.2.3")
}

func TestRateLimiterCapsEntries(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(1, 1)
	l.now = func() time.Time { return clock }
	l.maxEntries = 3

	for i := 1; i <= 5; i++ {
		clock = clock.Add(time.Second)
		l.get(fmt.Sprintf("198.51.100.%d", i))
	}

	assert.Len(t, l.limiters, 3)
	assert.NotContains(t, l.limiters, "198.51.100.1")
	assert.NotContains(t, l.limiters, "198.51.100.2")
	assert.Contains(t, l.limiters, "198.51.100.5")
}
