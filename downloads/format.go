// utilitário pequeno para formatação rápida/consistente de números em headers.
// Evita puxar fmt (mais “pesado” e genérico) só para isso.

package downloads

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }
