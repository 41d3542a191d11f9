package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthub/agenthub/internal/models"
	"github.com/agenthub/agenthub/pkg/store"
	"github.com/agenthub/agenthub/server"
)

type fakeChat struct {
	tokens  []models.StreamToken
	err     error
	gotQ    string
	gotTopK int
}

func (f *fakeChat) ChatStream(ctx context.Context, question string, topK int) (<-chan models.StreamToken, error) {
	f.gotQ = question
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}

	ch := make(chan models.StreamToken, len(f.tokens))
	for _, tok := range f.tokens {
		ch <- tok
	}
	close(ch)
	return ch, nil
}

type fakeRetriever struct {
	hits []models.SearchResult
	err  error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	return f.hits, f.err
}

type fakeIngestor struct {
	pathCount int
	urlCount  int
	err       error
	gotPath   string
	gotURL    string
}

func (f *fakeIngestor) IngestPath(ctx context.Context, path string) (int, error) {
	f.gotPath = path
	return f.pathCount, f.err
}

func (f *fakeIngestor) IngestURL(ctx context.Context, url string) (int, error) {
	f.gotURL = url
	return f.urlCount, f.err
}

func newTestServer(chat *fakeChat, ret *fakeRetriever, ing *fakeIngestor) http.Handler {
	return server.New(server.Config{Model: "llama3.1:8b"}, chat, ret, ing).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeChat{}, &fakeRetriever{}, &fakeIngestor{})

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "llama3.1:8b", body["model"])
}

func TestChatStreamsSSE(t *testing.T) {
	chat := &fakeChat{tokens: []models.StreamToken{
		{Token: "Hello"},
		{Token: " world"},
		{Done: true},
	}}
	h := newTestServer(chat, &fakeRetriever{}, &fakeIngestor{})

	rec := doJSON(t, h, http.MethodPost, "/chat", `{"q":"hi","top_k":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "hi", chat.gotQ)
	assert.Equal(t, 2, chat.gotTopK)

	body := rec.Body.String()
	assert.Contains(t, body, `data: {"token":"Hello","done":false}`)
	assert.Contains(t, body, `data: {"token":" world","done":false}`)
	assert.Contains(t, body, `data: {"token":"","done":true}`)

	// terminal marker appears exactly once and last
	assert.Equal(t, 1, strings.Count(body, `"done":true`))
	events := strings.Split(strings.TrimSpace(body), "\n\n")
	assert.Contains(t, events[len(events)-1], `"done":true`)
}

func TestChatMissingQuestion(t *testing.T) {
	h := newTestServer(&fakeChat{}, &fakeRetriever{}, &fakeIngestor{})

	rec := doJSON(t, h, http.MethodPost, "/chat", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "q is required")
}

func TestChatBackendUnavailable(t *testing.T) {
	chat := &fakeChat{err: &store.UnavailableError{Op: "search", Err: errors.New("refused")}}
	h := newTestServer(chat, &fakeRetriever{}, &fakeIngestor{})

	rec := doJSON(t, h, http.MethodPost, "/chat", `{"q":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChatAbortedStreamHasNoTerminalMarker(t *testing.T) {
	chat := &fakeChat{tokens: []models.StreamToken{
		{Token: "partial"},
		{Err: errors.New("connection reset")},
	}}
	h := newTestServer(chat, &fakeRetriever{}, &fakeIngestor{})

	rec := doJSON(t, h, http.MethodPost, "/chat", `{"q":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"token":"partial"`)
	assert.NotContains(t, body, `"done":true`)
}

func TestIngestWithoutArguments(t *testing.T) {
	ing := &fakeIngestor{}
	h := newTestServer(&fakeChat{}, &fakeRetriever{}, ing)

	rec := doJSON(t, h, http.MethodPost, "/ingest", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["ingested"])
	assert.Equal(t, "provide path or url", body["detail"])
	assert.Empty(t, ing.gotPath)
	assert.Empty(t, ing.gotURL)
}

func TestIngestPath(t *testing.T) {
	ing := &fakeIngestor{pathCount: 7}
	h := newTestServer(&fakeChat{}, &fakeRetriever{}, ing)

	rec := doJSON(t, h, http.MethodPost, "/ingest", `{"path":"/data/docs"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["ingested"])
	assert.Equal(t, "/data/docs", ing.gotPath)
}

func TestIngestURL(t *testing.T) {
	ing := &fakeIngestor{urlCount: 3}
	h := newTestServer(&fakeChat{}, &fakeRetriever{}, ing)

	rec := doJSON(t, h, http.MethodPost, "/ingest", `{"url":"https://docs.example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["ingested"])
	assert.Equal(t, "https://docs.example.com", ing.gotURL)
}

func TestRetrieve(t *testing.T) {
	ret := &fakeRetriever{hits: []models.SearchResult{
		{Text: "Paris is the capital of France.", Score: 0.93},
	}}
	h := newTestServer(&fakeChat{}, ret, &fakeIngestor{})

	rec := doJSON(t, h, http.MethodPost, "/retrieve", `{"q":"capital of France","top_k":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Hits []models.SearchResult `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Hits, 1)
	assert.Equal(t, "Paris is the capital of France.", body.Hits[0].Text)
	assert.InDelta(t, 0.93, body.Hits[0].Score, 1e-9)
}

func TestRetrieveEmpty(t *testing.T) {
	h := newTestServer(&fakeChat{}, &fakeRetriever{}, &fakeIngestor{})

	rec := doJSON(t, h, http.MethodPost, "/retrieve", `{"q":"anything"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hits":[]}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(&fakeChat{}, &fakeRetriever{}, &fakeIngestor{})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
