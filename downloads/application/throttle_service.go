package application

import (
	"time"

	"trusted-store/downloads/domain"
)

// Throttle concentra a regra do throttle de borda.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Throttle struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (t Throttle) Decide(key domain.Key) domain.Decision {
	if t.Store == nil {
		return domain.Decision{Allowed: true}
	}
	if t.RetryAfter <= 0 {
		t.RetryAfter = 1 * time.Second
	}

	lim := t.Store.Get(key)
	if lim == nil {
		return domain.Decision{Allowed: true}
	}
	if lim.Allow() {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: false, RetryAfter: t.RetryAfter}
}
