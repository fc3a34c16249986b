package downloads

import (
	"net/http"
	"time"

	"trusted-store/downloads/application"
	"trusted-store/downloads/domain"
	"trusted-store/downloads/infra"
)

// Middlewares de proteção na frente do endpoint. O rate limit do produto
// (1 download por par mod/cliente por janela) vive na camada application;
// aqui é só defesa de infraestrutura contra martelada e pico de concorrência.

type ThrottleOptions struct {
	Store              domain.LimiterStore
	KeyFn              KeyFunc
	ClientIPHeader     string
	TrustXForwardedFor bool
	RetryAfter         time.Duration
}

// Throttle aplica um token bucket por cliente antes de qualquer chamada
// externa. Store nil desliga o middleware.
func Throttle(opts ThrottleOptions) func(next http.Handler) http.Handler {
	if opts.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.ClientIPHeader, opts.TrustXForwardedFor)
	}

	svc := application.Throttle{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec := svc.Decide(domain.Key(opts.KeyFn(r)))
			if !dec.Allowed {
				w.Header().Set("Retry-After", formatInt(int(dec.RetryAfter.Seconds())))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
}

// ConcurrencyLimit limita quantas requests atravessam ao mesmo tempo (e,
// por tabela, quantas chamadas simultâneas batem no store remoto).
func ConcurrencyLimit(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
