package domain

import (
	"context"
	"time"
)

// StatsEvent representa o desfecho de uma tentativa de incremento.
//
// Outcome é uma string curta e de baixa cardinalidade ("ok", "rate_limited",
// "not_found", "error"); Mod é o nome pedido pelo cliente.
//
// Observação: cuidado com cardinalidade ao habilitar rastreio por chave —
// salvar Key sem controle pode explodir o número de chaves no Redis.
type StatsEvent struct {
	Key     Key
	Mod     string
	Allowed bool
	Outcome string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do endpoint.
//
// Implementações podem armazenar em Redis, memória, etc.
// O handler trata erro como best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
