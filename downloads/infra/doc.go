// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - GitHubStore: catálogo versionado via contents API do GitHub
//   - RedisMarkerStore / SQLiteMarkerStore / MemoryMarkerStore: marcadores de
//     rate limit com TTL
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
package infra
