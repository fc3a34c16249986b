package domain

import "encoding/json"

// Document é o catálogo (mods.json) parseado mais o token de versão opaco
// retornado pelo store remoto na leitura. Uma escrita só é aceita se o token
// ainda for o atual (concorrência otimista).
//
// Data é um map genérico de propósito: o schema do catálogo pertence ao
// validador offline, e campos que este serviço não conhece precisam
// sobreviver intactos ao ciclo read-modify-write.
type Document struct {
	Data map[string]any
	SHA  string
}

// IncrementDownloads procura em Data["mods"] o primeiro mod cujo name é
// exatamente igual a name (case-sensitive, sem normalização) e soma 1 ao
// campo downloads, tratando contador ausente como 0.
//
// Retorna false quando nenhum mod casa; nesse caso o documento não é tocado.
func IncrementDownloads(doc *Document, name string) bool {
	if doc == nil {
		return false
	}
	mods, ok := doc.Data["mods"].([]any)
	if !ok {
		return false
	}
	for _, entry := range mods {
		mod, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if got, _ := mod["name"].(string); got != name {
			continue
		}
		mod["downloads"] = counterValue(mod["downloads"]) + 1
		return true
	}
	return false
}

// counterValue normaliza o contador para int64. Decoders JSON entregam
// float64 por padrão; um contador ausente ou de tipo inesperado conta como 0.
func counterValue(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}
