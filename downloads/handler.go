package downloads

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"trusted-store/downloads/application"
	"trusted-store/downloads/domain"
)

// maxRequestBody limita o corpo aceito no POST. O payload legítimo é um
// objeto de um campo; qualquer coisa perto do limite já é abuso.
const maxRequestBody = 64 << 10

// Corpos de erro fixos do contrato de wire. Detalhe de upstream vai para o
// log do servidor, nunca para o cliente.
const (
	msgBadRequest  = "Missing or invalid mod_name"
	msgNotFound    = "Mod not found"
	msgRateLimited = "Rate limited"
	msgConfigError = "Server configuration error"
	msgInternal    = "Internal server error"
	msgFetchFailed = "Failed to fetch store data"
	msgWriteFailed = "Failed to update store"
)

type Options struct {
	Service *application.Service

	// Stats é opcional; erro de gravação é best-effort (só log).
	Stats domain.StatsStore

	// KeyFn extrai a identidade do cliente. Nil usa DefaultKeyFunc com os
	// campos abaixo.
	KeyFn              KeyFunc
	ClientIPHeader     string
	TrustXForwardedFor bool

	// RetryAfter é a dica devolvida no 429 (janela do rate limit).
	// Zero vira a janela padrão de uma hora.
	RetryAfter time.Duration
}

type handler struct {
	svc        *application.Service
	stats      domain.StatsStore
	keyFn      KeyFunc
	retryAfter int // segundos
}

// NewHandler monta o endpoint de download. Todas as respostas carregam os
// headers de CORS para permitir chamadas diretas de browsers em outra origem.
func NewHandler(opts Options) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.ClientIPHeader, opts.TrustXForwardedFor)
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = application.DefaultWindow
	}
	return &handler{
		svc:        opts.Service,
		stats:      opts.Stats,
		keyFn:      opts.KeyFn,
		retryAfter: int(opts.RetryAfter.Seconds()),
	}
}

type successResponse struct {
	Success bool   `json:"success"`
	ModName string `json:"mod_name"`
}

type errorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w.Header())

	switch r.Method {
	case http.MethodOptions:
		// pre-flight: sempre 200, sem corpo e sem efeito colateral
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
		// segue
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	modName, ok := parseModName(r.Body)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgBadRequest})
		return
	}

	client := domain.Key(h.keyFn(r))
	err := h.svc.Increment(r.Context(), modName, client)
	h.record(r, client, modName, err)

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, successResponse{Success: true, ModName: modName})
	case errors.Is(err, domain.ErrRateLimited):
		w.Header().Set("Retry-After", formatInt(h.retryAfter))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: msgRateLimited, RetryAfter: h.retryAfter})
	case errors.Is(err, domain.ErrModNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msgNotFound})
	case errors.Is(err, domain.ErrNoCredential):
		log.Printf("downloads: rejected request, write credential not configured")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgConfigError})
	case errors.Is(err, domain.ErrFetchStore):
		log.Printf("downloads: %v", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: msgFetchFailed})
	case errors.Is(err, domain.ErrUpdateStore):
		log.Printf("downloads: %v", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: msgWriteFailed})
	default:
		log.Printf("downloads: unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
	}
}

// parseModName valida o corpo: precisa ser um objeto JSON com o campo
// mod_name string e não vazio. Nada de normalização — o match no catálogo é
// exato, então o nome segue como veio.
func parseModName(body io.Reader) (string, bool) {
	raw, err := io.ReadAll(io.LimitReader(body, maxRequestBody))
	if err != nil {
		return "", false
	}

	var req struct {
		ModName any `json:"mod_name"`
	}
	if err := sonic.Unmarshal(raw, &req); err != nil {
		return "", false
	}

	name, ok := req.ModName.(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

func (h *handler) record(r *http.Request, client domain.Key, mod string, err error) {
	if h.stats == nil {
		return
	}

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRateLimited):
		outcome = "rate_limited"
	case errors.Is(err, domain.ErrModNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}

	ev := domain.StatsEvent{
		Key:     client,
		Mod:     mod,
		Allowed: err == nil,
		Outcome: outcome,
		At:      time.Now(),
	}
	if serr := h.stats.Record(r.Context(), ev); serr != nil {
		log.Printf("downloads: stats record failed: %v", serr)
	}
}

func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		log.Printf("downloads: encode response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
