package domain

// Contratos do fluxo de incremento de downloads.
//
// Regras e interfaces sem dependência de net/http.

import (
	"context"
	"errors"
	"time"
)

// Erros sentinela do fluxo de incremento. As camadas de infra embrulham com
// %w; a borda HTTP traduz com errors.Is para status e corpo fixos, sem vazar
// detalhe do upstream para o cliente.
var (
	ErrNoCredential = errors.New("downloads: store credential not configured")
	ErrRateLimited  = errors.New("downloads: rate limited")
	ErrModNotFound  = errors.New("downloads: mod not found")
	ErrFetchStore   = errors.New("downloads: fetch store data")
	ErrUpdateStore  = errors.New("downloads: update store")
)

// CatalogStore é o documento versionado remoto.
//
// Update é uma escrita condicional: só é aceita se o SHA carregado no
// Document ainda for o atual no store. Uma corrida perdida vira erro
// (embrulhando ErrUpdateStore) e NÃO é repetida aqui.
type CatalogStore interface {
	Fetch(ctx context.Context) (*Document, error)
	Update(ctx context.Context, doc *Document, message string) error
}

// MarkerStore guarda marcadores transitórios por par (mod, cliente) com TTL.
// Presença de marcador vivo significa que o par está rate-limited agora.
//
// A implementação pode ser Redis, SQLite, memória, etc. Marcadores expiram
// sozinhos; ninguém os apaga explicitamente.
type MarkerStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
	Close() error
}

// MarkerKey monta a chave do marcador para o par (mod, cliente).
func MarkerKey(modName, client string) string {
	return modName + "|" + client
}
