// Package downloads expõe o endpoint HTTP que registra downloads de mods no
// catálogo versionado da loja confiável.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (ciclo read-modify-write, throttle, concorrência) sem net/http
//   - infra: implementações concretas (GitHub contents API, Redis/SQLite/memória), detalhes de infraestrutura
//   - downloads (este pacote): handler HTTP + extração de chave do cliente + tradução de erros para status/corpo
//
// Fluxo no endpoint:
//
//  1. Responde pre-flight (OPTIONS) e rejeita métodos fora de POST/OPTIONS
//  2. Valida o corpo ({"mod_name": "..."}) antes de qualquer chamada externa
//  3. Extrai a identidade do cliente (header da borda/XFF/IP)
//  4. Chama a camada application: credencial → rate limit → fetch → incremento → escrita condicional
//  5. Traduz o resultado para o contrato de wire (200/400/404/429/500/502) com CORS em tudo
//
// Variáveis de ambiente do binário (cmd/downloads-api) controlam o comportamento,
// como GITHUB_TOKEN, RATE_LIMIT_BACKEND, THROTTLE_RPS e CONCURRENCY_MAX.
package downloads
