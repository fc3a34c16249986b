package domain

// Contratos do throttle de borda do endpoint de download.
//
// O rate limit "de verdade" do produto é o MarkerStore (1 download por par
// mod/cliente por janela). O throttle aqui é proteção de infraestrutura:
// segura clientes que martelam o endpoint antes de qualquer chamada externa.

import "time"

// Key identifica o cliente para fins de limitação (normalmente o IP visto
// pela borda). Clientes sem endereço detectável compartilham uma chave única.
type Key string

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// Observação: a implementação pode ser token-bucket, leaky-bucket, etc.
// A camada de infra usa golang.org/x/time/rate.
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave. A implementação pode manter
// cache, TTL, limpeza periódica, etc.
type LimiterStore interface {
	Get(Key) Limiter
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
