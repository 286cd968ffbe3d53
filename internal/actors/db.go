package actors

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/design4music/sni-platform-sub004/internal/domain"
)

// DB is the query subset of pgxpool.Pool the table loader needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadTable reads the actor vocabulary from the actor_aliases relation.
// Ordering by entity_type then entity_id keeps load order, and therefore
// first-hit resolution, stable across runs.
func LoadTable(ctx context.Context, db DB, opts Options) ([]domain.Actor, error) {
	query := `
		SELECT entity_id, aliases_en, aliases_es, aliases_fr, aliases_ru, aliases_zh
		FROM actor_aliases
		ORDER BY entity_type, entity_id
	`

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query actor_aliases: %w", err)
	}
	defer rows.Close()

	var raw []rawEntity
	for rows.Next() {
		var entityID string
		var en, es, fr, ru, zh *string

		if err := rows.Scan(&entityID, &en, &es, &fr, &ru, &zh); err != nil {
			return nil, fmt.Errorf("scan actor_aliases row: %w", err)
		}

		row := rawEntity{ID: entityID}
		for _, cell := range []*string{en, es, fr, ru, zh} {
			if cell == nil {
				row.Columns = append(row.Columns, nil)
				continue
			}
			row.Columns = append(row.Columns, splitAliases(*cell))
		}
		raw = append(raw, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actor_aliases rows: %w", err)
	}

	return buildActors(raw, opts), nil
}
