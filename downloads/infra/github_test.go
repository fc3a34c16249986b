package infra

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"

	"trusted-store/downloads/domain"
)

// fakeContents imita o pedaço da contents API que o GitHubStore usa:
// GET devolve base64 quebrado em linhas + sha, PUT compara o sha e responde
// 409 quando ele ficou velho.
type fakeContents struct {
	t *testing.T

	mu      sync.Mutex
	content []byte
	sha     string
	gen     int

	wantToken   string
	lastMessage string

	failGetStatus int
	failPutStatus int
}

func newFakeContents(t *testing.T, seed string) (*fakeContents, *httptest.Server) {
	t.Helper()
	f := &fakeContents{t: t, content: []byte(seed), sha: "sha-0", wantToken: "test-token"}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeContents) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if got := r.Header.Get("Authorization"); got != "Bearer "+f.wantToken {
		f.t.Errorf("unexpected Authorization header: %q", got)
	}
	if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
		f.t.Errorf("unexpected Accept header: %q", got)
	}
	if !strings.HasPrefix(r.URL.Path, "/repos/owner/repo/contents/") {
		f.t.Errorf("unexpected path: %q", r.URL.Path)
	}

	switch r.Method {
	case http.MethodGet:
		if f.failGetStatus != 0 {
			http.Error(w, "upstream boom", f.failGetStatus)
			return
		}
		f.mu.Lock()
		resp := map[string]any{
			"content":  chunkedBase64(f.content),
			"sha":      f.sha,
			"encoding": "base64",
		}
		f.mu.Unlock()
		writeBody(w, http.StatusOK, resp)

	case http.MethodPut:
		if f.failPutStatus != 0 {
			http.Error(w, "upstream boom", f.failPutStatus)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Message string `json:"message"`
			Content string `json:"content"`
			SHA     string `json:"sha"`
		}
		if err := sonic.Unmarshal(body, &req); err != nil {
			f.t.Errorf("bad PUT body: %v", err)
			http.Error(w, "bad body", http.StatusUnprocessableEntity)
			return
		}
		raw, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			f.t.Errorf("bad PUT content encoding: %v", err)
			http.Error(w, "bad content", http.StatusUnprocessableEntity)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if req.SHA != f.sha {
			writeBody(w, http.StatusConflict, map[string]any{"message": "sha mismatch"})
			return
		}
		f.content = raw
		f.gen++
		f.sha = fmt.Sprintf("sha-%d", f.gen)
		f.lastMessage = req.Message
		writeBody(w, http.StatusOK, map[string]any{"content": map[string]any{"sha": f.sha}})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// chunkedBase64 quebra o base64 em linhas como a contents API faz.
func chunkedBase64(b []byte) string {
	enc := base64.StdEncoding.EncodeToString(b)
	var sb strings.Builder
	for len(enc) > 60 {
		sb.WriteString(enc[:60])
		sb.WriteString("\n")
		enc = enc[60:]
	}
	sb.WriteString(enc)
	sb.WriteString("\n")
	return sb.String()
}

func writeBody(w http.ResponseWriter, status int, v any) {
	body, _ := sonic.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

const seedCatalog = `{
  "mods": [
    {
      "downloads": 5,
      "name": "Arthur's - PoV Camera Mod"
    }
  ]
}
`

func newTestStore(srv *httptest.Server) *GitHubStore {
	return NewGitHubStore("test-token",
		WithBaseURL(srv.URL),
		WithRepo("owner", "repo"),
		WithFilePath("mods.json"),
		WithHTTPClient(srv.Client()),
	)
}

func TestGitHubStore_FetchParsesContentAndSHA(t *testing.T) {
	_, srv := newFakeContents(t, seedCatalog)
	store := newTestStore(srv)

	doc, err := store.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.SHA != "sha-0" {
		t.Fatalf("expected sha-0, got %q", doc.SHA)
	}
	mods, ok := doc.Data["mods"].([]any)
	if !ok || len(mods) != 1 {
		t.Fatalf("unexpected mods: %#v", doc.Data["mods"])
	}
	if got := mods[0].(map[string]any)["downloads"]; got != float64(5) {
		t.Fatalf("expected downloads=5, got %v", got)
	}
}

func TestGitHubStore_FetchFailureWrapsSentinel(t *testing.T) {
	f, srv := newFakeContents(t, seedCatalog)
	f.failGetStatus = http.StatusInternalServerError
	store := newTestStore(srv)

	_, err := store.Fetch(context.Background())
	if !errors.Is(err, domain.ErrFetchStore) {
		t.Fatalf("expected ErrFetchStore, got %v", err)
	}
}

func TestGitHubStore_UpdateWritesDeterministicPayload(t *testing.T) {
	f, srv := newFakeContents(t, seedCatalog)
	store := newTestStore(srv)

	doc, err := store.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !domain.IncrementDownloads(doc, "Arthur's - PoV Camera Mod") {
		t.Fatalf("expected increment to match")
	}

	if err := store.Update(context.Background(), doc, "Increment downloads for Arthur's - PoV Camera Mod"); err != nil {
		t.Fatalf("update: %v", err)
	}

	want, err := MarshalCatalog(doc.Data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	f.mu.Lock()
	got, msg := string(f.content), f.lastMessage
	f.mu.Unlock()
	if got != string(want) {
		t.Fatalf("stored content mismatch:\n got: %q\nwant: %q", got, want)
	}
	if !strings.Contains(msg, "Arthur's - PoV Camera Mod") {
		t.Fatalf("expected commit message to name the mod, got %q", msg)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Fatalf("expected trailing newline in stored catalog")
	}
}

func TestGitHubStore_UpdateStaleSHAIsConflict(t *testing.T) {
	_, srv := newFakeContents(t, seedCatalog)
	store := newTestStore(srv)

	doc, err := store.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	domain.IncrementDownloads(doc, "Arthur's - PoV Camera Mod")

	// primeira escrita avança o sha do lado do servidor
	if err := store.Update(context.Background(), doc, "first write"); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// segunda escrita com o sha antigo simula a corrida perdida
	err = store.Update(context.Background(), doc, "stale write")
	if !errors.Is(err, domain.ErrUpdateStore) {
		t.Fatalf("expected ErrUpdateStore on stale sha, got %v", err)
	}
}

func TestGitHubStore_EndToEndIncrement(t *testing.T) {
	_, srv := newFakeContents(t, seedCatalog)
	store := newTestStore(srv)

	doc, err := store.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !domain.IncrementDownloads(doc, "Arthur's - PoV Camera Mod") {
		t.Fatalf("expected match")
	}
	if err := store.Update(context.Background(), doc, "Increment downloads for Arthur's - PoV Camera Mod"); err != nil {
		t.Fatalf("update: %v", err)
	}

	after, err := store.Fetch(context.Background())
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if after.SHA == doc.SHA {
		t.Fatalf("expected version token to advance after write")
	}
	mods := after.Data["mods"].([]any)
	if got := mods[0].(map[string]any)["downloads"]; got != float64(6) {
		t.Fatalf("expected stored downloads=6, got %v", got)
	}
}
