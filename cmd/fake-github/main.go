// fake-github sobe uma imitação mínima da contents API do GitHub com um
// mods.json em memória, para exercitar o downloads-api localmente sem token:
//
//	GITHUB_TOKEN=dev GITHUB_API_URL=http://localhost:9090 ./downloads-api
//
// GET devolve conteúdo base64 + sha; PUT exige o sha atual e responde 409
// quando ele ficou velho, igual ao GitHub.
package main

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
)

const seedCatalog = `{
  "version": "1.0",
  "mod_count": 2,
  "mods": [
    {
      "name": "Arthur's - PoV Camera Mod",
      "version": "1.2.0",
      "type": "graphics",
      "author": "Arthur",
      "description": "First person camera for match replays.",
      "homepage": "https://example.com/pov",
      "download_url": "https://example.com/pov.zip",
      "downloads": 5
    },
    {
      "name": "Classic Skin Pack",
      "version": "2.0.1",
      "type": "ui",
      "author": "retroFM",
      "description": "Skins from the golden era.",
      "homepage": "https://example.com/skins",
      "download_url": "https://example.com/skins.zip",
      "downloads": 41
    }
  ]
}
`

type blob struct {
	mu      sync.Mutex
	content []byte
	sha     string
}

func contentSHA(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func main() {
	store := &blob{content: []byte(seedCatalog)}
	store.sha = contentSHA(store.content)

	http.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/contents/") {
			http.NotFound(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet:
			store.mu.Lock()
			resp := map[string]any{
				"content":  base64.StdEncoding.EncodeToString(store.content),
				"sha":      store.sha,
				"encoding": "base64",
			}
			store.mu.Unlock()
			writeJSON(w, http.StatusOK, resp)
			log.Printf("GET %s -> sha %.12s", r.URL.Path, resp["sha"])

		case http.MethodPut:
			body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
			if err != nil {
				http.Error(w, "read error", http.StatusBadRequest)
				return
			}
			var req struct {
				Message string `json:"message"`
				Content string `json:"content"`
				SHA     string `json:"sha"`
			}
			if err := sonic.Unmarshal(body, &req); err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "invalid body"})
				return
			}
			raw, err := base64.StdEncoding.DecodeString(req.Content)
			if err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "invalid content encoding"})
				return
			}

			store.mu.Lock()
			if req.SHA != store.sha {
				stale := store.sha
				store.mu.Unlock()
				writeJSON(w, http.StatusConflict, map[string]any{"message": "sha mismatch"})
				log.Printf("PUT %s rejected: sha %.12s != %.12s (%s)", r.URL.Path, req.SHA, stale, req.Message)
				return
			}
			store.content = raw
			store.sha = contentSHA(raw)
			newSHA := store.sha
			store.mu.Unlock()

			writeJSON(w, http.StatusOK, map[string]any{"content": map[string]any{"sha": newSHA}})
			log.Printf("PUT %s accepted: %s -> sha %.12s", r.URL.Path, req.Message, newSHA)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	addr := ":9090"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	log.Printf("fake-github listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
