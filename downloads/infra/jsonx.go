package infra

import "github.com/bytedance/sonic"

// catalogJSON serializa o catálogo com chaves ordenadas. O histórico do store
// remoto é a trilha de auditoria do catálogo; cada escrita precisa gerar um
// diff humano estável, então a saída tem que ser determinística byte a byte.
var catalogJSON = sonic.Config{SortMapKeys: true}.Froze()

// MarshalCatalog codifica o documento do catálogo de forma determinística:
// chaves ordenadas, indentação de dois espaços e newline final.
func MarshalCatalog(data map[string]any) ([]byte, error) {
	b, err := catalogJSON.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
