package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

// PassageRepository reads the passage corpus the ingestion pipeline
// maintains. The engine never writes here; the table is owned by the
// ingestion side, and this repository only feeds lexical index builds.
type PassageRepository struct {
	db *sql.DB
}

func NewPassageRepository(db *sql.DB) *PassageRepository {
	return &PassageRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *PassageRepository) ListPassages(ctx context.Context) ([]domain.Passage, error) {
	const query = `SELECT id, text, metadata FROM passages ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list passages: %w", err)
	}
	defer rows.Close()

	var out []domain.Passage
	for rows.Next() {
		var (
			p           domain.Passage
			metadataRaw []byte
		)
		if err := rows.Scan(&p.ID, &p.Text, &metadataRaw); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &p.Metadata); err != nil {
				return nil, fmt.Errorf("decode passage %s metadata: %w", p.ID, err)
			}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return out, nil
}
