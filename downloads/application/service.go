package application

import (
	"context"
	"time"

	"trusted-store/downloads/domain"
)

// DefaultWindow é a janela do rate limit por par (mod, cliente).
const DefaultWindow = time.Hour

// markTimeout limita a gravação destacada do marcador, que roda fora do
// contexto da request.
const markTimeout = 5 * time.Second

// Service concentra o caso de uso de incremento de download.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas executa o fluxo e
// devolve erros sentinela do domain para a borda traduzir.
type Service struct {
	// Catalog é o documento versionado remoto. Nil significa que a
	// credencial de escrita não foi configurada; todo Increment falha com
	// ErrNoCredential sem nenhuma chamada externa.
	Catalog domain.CatalogStore

	// Markers é opcional: nil desliga o rate limit por par (mod, cliente).
	// Erro do store de marcadores também não bloqueia o incremento — a
	// prevenção de abuso é best-effort, não requisito de correção.
	Markers domain.MarkerStore

	// Window é o TTL do marcador. Zero vira DefaultWindow.
	Window time.Duration

	// Schedule executa a gravação do marcador fora do caminho da resposta.
	// Nil usa uma goroutine destacada com timeout próprio.
	Schedule func(func())

	// Logf recebe avisos operacionais (marcador falhou, etc). Nil descarta.
	Logf func(format string, args ...any)
}

// Increment registra um download para modName em nome de client.
//
// Ordem do fluxo: credencial → marcador → fetch → mutação → escrita
// condicional. O marcador é agendado assim que o par passa no seen-check,
// antes do fetch; uma escrita que depois falha ainda consome a vaga da
// janela. Corridas perdidas na escrita condicional voltam como
// ErrUpdateStore e não são repetidas aqui (um retry limitado com refetch
// entraria neste ponto); o cliente decide se tenta de novo.
func (s *Service) Increment(ctx context.Context, modName string, client domain.Key) error {
	if s.Catalog == nil {
		return domain.ErrNoCredential
	}

	if s.Markers != nil {
		key := domain.MarkerKey(modName, string(client))
		seen, err := s.Markers.Seen(ctx, key)
		switch {
		case err != nil:
			s.logf("downloads: marker store unavailable, proceeding without rate limit: %v", err)
		case seen:
			return domain.ErrRateLimited
		default:
			s.scheduleMark(key)
		}
	}

	doc, err := s.Catalog.Fetch(ctx)
	if err != nil {
		return err
	}

	if !domain.IncrementDownloads(doc, modName) {
		return domain.ErrModNotFound
	}

	return s.Catalog.Update(ctx, doc, "Increment downloads for "+modName)
}

// scheduleMark grava o marcador fora do caminho da resposta, com contexto
// próprio: a latência do store de marcadores nunca atrasa o cliente.
func (s *Service) scheduleMark(key string) {
	window := s.Window
	if window <= 0 {
		window = DefaultWindow
	}
	markers := s.Markers

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), markTimeout)
		defer cancel()
		if err := markers.Mark(ctx, key, window); err != nil {
			s.logf("downloads: mark %q failed: %v", key, err)
		}
	}

	if s.Schedule != nil {
		s.Schedule(run)
		return
	}
	go run()
}

func (s *Service) logf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}
