package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/tubechat/tubechat/internal/core"
	"github.com/tubechat/tubechat/internal/logger"
	"github.com/tubechat/tubechat/internal/store"
	"github.com/tubechat/tubechat/internal/transcript"
)

type constEmbedder struct{}

func (constEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, float32(i)}
	}
	return out, nil
}

func (constEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type fakeIngester struct {
	idx *store.Index
	err error
}

func (f *fakeIngester) Ingest(context.Context, string) (*store.Index, error) {
	return f.idx, f.err
}

type fakeGenerator struct {
	err error
}

func (g *fakeGenerator) Generate(_ context.Context, messages []llms.MessageContent) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	last := messages[len(messages)-1].Parts[0].(llms.TextContent).Text
	return "answer to " + last, nil
}

type testServer struct {
	*httptest.Server
	ingester  *fakeIngester
	generator *fakeGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	indexes, err := store.NewIndexStore(t.TempDir())
	require.NoError(t, err)
	idx, err := indexes.Build(context.Background(), store.IndexMeta{Key: "abc123_en", Language: "en"},
		[]string{"first chunk", "second chunk"}, constEmbedder{})
	require.NoError(t, err)

	ingester := &fakeIngester{idx: idx}
	gen := &fakeGenerator{}
	log := logger.Discard()
	chat := core.NewChatService(ingester, core.NewAnswerService(gen, log), log)
	sessions := NewSessionRegistry()
	router := NewRouter(NewAPIHandler(chat, sessions, log), NewWebHandler(chat, sessions, log), log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, ingester: ingester, generator: gen}
}

func (s *testServer) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var payload io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(b)
	}
	resp, err := http.Post(s.URL+path, "application/json", payload)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	resp, body := s.postJSON(t, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createSession(t)
	base := "/api/sessions/" + id

	resp, body := srv.postJSON(t, base+"/ask", AskRequest{Question: "hi"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "no video loaded")

	resp, body = srv.postJSON(t, base+"/load", LoadRequest{VideoURL: "https://youtu.be/abc123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc123_en", body["cache_key"])
	assert.Equal(t, "en", body["language"])
	assert.EqualValues(t, 2, body["chunks"])

	resp, body = srv.postJSON(t, base+"/ask", AskRequest{Question: "What is this about?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "answer to What is this about?", body["answer"])

	resp, body = srv.postJSON(t, base+"/analyze/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "summary", body["mode"])
	assert.Equal(t, "answer to Summarize", body["answer"])

	hist, err := http.Get(srv.URL + base + "/history")
	require.NoError(t, err)
	defer hist.Body.Close()
	var history SessionResponse
	require.NoError(t, json.NewDecoder(hist.Body).Decode(&history))
	assert.Equal(t, "abc123_en", history.CacheKey)
	assert.Equal(t, []core.LogEntry{
		{Speaker: "You", Text: "What is this about?"},
		{Speaker: "Assistant", Text: "answer to What is this about?"},
	}, history.History)
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := srv.postJSON(t, "/api/sessions/nope/ask", AskRequest{Question: "hi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	id := srv.createSession(t)
	base := "/api/sessions/" + id

	resp, _ = srv.postJSON(t, base+"/analyze/haiku", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.postJSON(t, base+"/load", LoadRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	srv.ingester.err = fmt.Errorf("%w: %w", transcript.ErrTranscriptUnavailable, errors.New("HTTP 429"))
	resp, body := srv.postJSON(t, base+"/load", LoadRequest{VideoURL: "https://youtu.be/abc123"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["error"], "HTTP 429")

	srv.ingester.err = nil
	resp, _ = srv.postJSON(t, base+"/load", LoadRequest{VideoURL: "https://youtu.be/abc123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	srv.generator.err = errors.New("groq unavailable")
	resp, body = srv.postJSON(t, base+"/ask", AskRequest{Question: "hi"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], "groq unavailable")
}

func TestWebForms(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	post := func(path string, form url.Values) (int, string) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var b bytes.Buffer
		_, err = b.ReadFrom(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, b.String()
	}

	status, page := post("/ask", url.Values{"question": {"hi"}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, page, "Load a video first.")

	status, page = post("/load", url.Values{"video_url": {"https://youtu.be/abc123"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "abc123_en")
	assert.Contains(t, page, `name="question"`)

	status, page = post("/ask", url.Values{"question": {"What is this about?"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "<strong>You:</strong> What is this about?")
	assert.Contains(t, page, "<strong>Assistant:</strong> answer to What is this about?")

	status, page = post("/analyze/timeline", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "⏳ Timeline")
	assert.Contains(t, page, "answer to Timeline")
	assert.NotContains(t, page, "<strong>You:</strong> Timeline")
}
