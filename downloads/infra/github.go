package infra

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"trusted-store/downloads/domain"
)

const (
	defaultAPIBaseURL = "https://api.github.com"
	defaultOwner      = "fm-reloaded"
	defaultRepo       = "trusted-store"
	defaultFilePath   = "mods.json"

	// maxUpstreamBody limita quanto lemos de respostas do GitHub.
	maxUpstreamBody = 4 << 20
	// logBodyLimit limita quanto do corpo upstream entra na mensagem de erro
	// (que só aparece em log, nunca na resposta ao cliente).
	logBodyLimit = 512
)

// Compile-time interface check.
var _ domain.CatalogStore = (*GitHubStore)(nil)

// GitHubStore lê e escreve o catálogo pela contents API do GitHub.
//
// O SHA do blob retornado no GET é o token de versão: o PUT só é aceito se o
// SHA enviado ainda for o atual. Quando alguém escreve no meio, o GitHub
// responde 409 e a corrida perdida vira um erro de escrita — sem retry aqui.
//
// O token de escrita entra pelo construtor (nada de ler ambiente ad hoc),
// junto com owner/repo/arquivo e o http.Client, para ser mockável em teste.
type GitHubStore struct {
	httpc   *http.Client
	baseURL string
	owner   string
	repo    string
	path    string
	token   string
}

type GitHubOption func(*GitHubStore)

func WithRepo(owner, repo string) GitHubOption {
	return func(s *GitHubStore) {
		if owner != "" {
			s.owner = owner
		}
		if repo != "" {
			s.repo = repo
		}
	}
}

func WithFilePath(path string) GitHubOption {
	return func(s *GitHubStore) {
		if path != "" {
			s.path = path
		}
	}
}

func WithBaseURL(u string) GitHubOption {
	return func(s *GitHubStore) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(c *http.Client) GitHubOption {
	return func(s *GitHubStore) {
		if c != nil {
			s.httpc = c
		}
	}
}

func NewGitHubStore(token string, opts ...GitHubOption) *GitHubStore {
	s := &GitHubStore{
		httpc:   &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultAPIBaseURL,
		owner:   defaultOwner,
		repo:    defaultRepo,
		path:    defaultFilePath,
		token:   token,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GitHubStore) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		s.baseURL, url.PathEscape(s.owner), url.PathEscape(s.repo), s.path)
}

type contentsResponse struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

// Fetch busca o conteúdo atual do catálogo e o SHA do blob.
func (s *GitHubStore) Fetch(ctx context.Context) (*domain.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.contentsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrFetchStore, err)
	}
	s.setHeaders(req)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchStore, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrFetchStore, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrFetchStore, resp.StatusCode, truncateForLog(body))
	}

	var cr contentsResponse
	if err := sonic.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrFetchStore, err)
	}

	// A contents API devolve o base64 quebrado em linhas.
	raw, err := base64.StdEncoding.DecodeString(stripNewlines(cr.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: decode content: %v", domain.ErrFetchStore, err)
	}

	var data map[string]any
	if err := sonic.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: parse catalog: %v", domain.ErrFetchStore, err)
	}

	return &domain.Document{Data: data, SHA: cr.SHA}, nil
}

type updateRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

// Update grava o documento condicionado ao SHA lido no Fetch. A mensagem de
// commit é a anotação de auditoria e deve citar o mod alterado.
func (s *GitHubStore) Update(ctx context.Context, doc *domain.Document, message string) error {
	payload, err := MarshalCatalog(doc.Data)
	if err != nil {
		return fmt.Errorf("%w: encode catalog: %v", domain.ErrUpdateStore, err)
	}

	reqBody, err := sonic.Marshal(updateRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(payload),
		SHA:     doc.SHA,
	})
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", domain.ErrUpdateStore, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(), bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrUpdateStore, err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpdateStore, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		// 409/422 aqui normalmente é SHA velho: alguém escreveu entre o
		// nosso Fetch e este Update.
		return fmt.Errorf("%w: status %d: %s", domain.ErrUpdateStore, resp.StatusCode, truncateForLog(body))
	}
	return nil
}

func (s *GitHubStore) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "trusted-store-downloads-api")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

func truncateForLog(body []byte) string {
	if len(body) > logBodyLimit {
		body = body[:logBodyLimit]
	}
	return string(body)
}
