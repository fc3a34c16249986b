// Package application contém os casos de uso (regras de aplicação) do
// contador de downloads: o ciclo read-modify-write contra o catálogo, a
// decisão do throttle de borda e o limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Increment(ctx, mod, cliente) devolve nil ou um erro sentinela.
package application
