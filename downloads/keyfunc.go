package downloads

import (
	"net"
	"net/http"
	"strings"
)

// AnonymousKey é a identidade compartilhada por clientes sem endereço
// detectável: todos caem no mesmo slot do limiter. Coarsening aceito — melhor
// explícito do que desligar o limite em silêncio.
const AnonymousKey = "unknown"

type KeyFunc func(r *http.Request) string

// DefaultKeyFunc extrai a identidade de rede do cliente: header da borda
// (ex: CF-Connecting-IP), depois X-Forwarded-For quando confiável, depois
// RemoteAddr, e por fim a identidade anônima compartilhada.
func DefaultKeyFunc(edgeHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if edgeHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(edgeHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					ip := strings.TrimSpace(parts[0])
					if ip != "" {
						return ip
					}
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return AnonymousKey
	}
}
