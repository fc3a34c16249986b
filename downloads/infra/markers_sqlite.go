package infra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"trusted-store/downloads/domain"
)

// Compile-time interface check.
var _ domain.MarkerStore = (*SQLiteMarkerStore)(nil)

// SQLiteMarkerStore é um MarkerStore persistente para deploy de host único,
// sem Redis por perto. Marcadores expirados são ignorados na leitura e
// removidos de forma preguiçosa ou pelo janitor.
type SQLiteMarkerStore struct {
	db *sql.DB
}

// NewSQLiteMarkerStore abre (ou cria) o banco SQLite no caminho dado e
// inicializa o schema. Use ":memory:" para um banco em memória.
func NewSQLiteMarkerStore(dsn string) (*SQLiteMarkerStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("downloads/infra: open sqlite: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS download_markers (
			key        TEXT PRIMARY KEY,
			expires_at INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("downloads/infra: create table: %w", err)
	}

	return &SQLiteMarkerStore{db: db}, nil
}

func (s *SQLiteMarkerStore) Seen(ctx context.Context, key string) (bool, error) {
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM download_markers WHERE key = ?`, key,
	).Scan(&expiresAt)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("downloads/infra: marker select: %w", err)
	}

	if expiresAt <= time.Now().UnixNano() {
		// expirado: limpa de forma preguiçosa
		_, _ = s.db.ExecContext(ctx, `DELETE FROM download_markers WHERE key = ?`, key)
		return false, nil
	}
	return true, nil
}

func (s *SQLiteMarkerStore) Mark(ctx context.Context, key string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO download_markers (key, expires_at) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET expires_at = excluded.expires_at`,
		key, time.Now().Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("downloads/infra: marker upsert: %w", err)
	}
	return nil
}

// Cleanup remove marcadores já expirados.
func (s *SQLiteMarkerStore) Cleanup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM download_markers WHERE expires_at <= ?`, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("downloads/infra: marker cleanup: %w", err)
	}
	return nil
}

// StartJanitor inicia uma goroutine que remove marcadores expirados
// periodicamente. Pare cancelando o contexto.
func (s *SQLiteMarkerStore) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_ = s.Cleanup(ctx)
			}
		}
	}()
}

func (s *SQLiteMarkerStore) Close() error {
	return s.db.Close()
}
