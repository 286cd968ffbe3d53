package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/design4music/sni-platform-sub004/internal/domain"
)

type titleRepository struct {
	db     DB
	logger *slog.Logger
}

// NewTitleRepository creates a new TitleRepository.
func NewTitleRepository(db DB, logger *slog.Logger) domain.TitleRepository {
	return &titleRepository{db: db, logger: logger}
}

// InsertBatch inserts candidates in one transaction. Rows colliding on
// (content_hash, feed_id) are left untouched and counted as skipped.
func (r *titleRepository) InsertBatch(ctx context.Context, candidates []domain.TitleCandidate) (int, int, error) {
	if len(candidates) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO titles (
			id, feed_id, title_original, title_display, title_norm,
			url_gnews, publisher_name, publisher_domain, pubdate_utc,
			detected_language, language_confidence, content_hash,
			processing_status, ingested_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (content_hash, feed_id) DO NOTHING
	`

	inserted, skipped := 0, 0
	for _, c := range candidates {
		tag, err := tx.Exec(ctx, query,
			uuid.New(),
			c.FeedID,
			c.TitleOriginal,
			c.TitleDisplay,
			c.TitleNorm,
			c.URLGnews,
			c.PublisherName,
			c.PublisherDomain,
			c.PubDateUTC,
			c.DetectedLanguage,
			c.LanguageConfidence,
			c.ContentHash,
			c.ProcessingStatus,
			c.IngestedAt,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert title: %w", err)
		}
		if tag.RowsAffected() > 0 {
			inserted++
		} else {
			skipped++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to commit title batch: %w", err)
	}

	r.logger.Debug("title batch inserted", "inserted", inserted, "skipped", skipped)
	return inserted, skipped, nil
}

func (r *titleRepository) FetchPending(ctx context.Context, limit, offset int) ([]domain.Title, error) {
	query := `
		SELECT id, feed_id, title_display, title_norm, pubdate_utc, processing_status
		FROM titles
		WHERE processing_status = 'pending' AND gate_at IS NULL
		ORDER BY pubdate_utc DESC NULLS LAST, id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending titles: %w", err)
	}
	defer rows.Close()

	var titles []domain.Title
	for rows.Next() {
		var t domain.Title
		if err := rows.Scan(&t.ID, &t.FeedID, &t.TitleDisplay, &t.TitleNorm, &t.PubDateUTC, &t.ProcessingStatus); err != nil {
			return nil, fmt.Errorf("failed to scan pending title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending titles: %w", err)
	}
	return titles, nil
}

// ApplyGateResults updates each title independently inside one transaction.
// A failure rolls back the whole batch.
func (r *titleRepository) ApplyGateResults(ctx context.Context, updates []domain.GateUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE titles
		SET gate_keep = $2,
			gate_reason = $3,
			gate_score = $4,
			gate_anchor_labels = $5,
			gate_actor_hit = $6,
			gate_at = NOW(),
			processing_status = 'gated'
		WHERE id = $1
	`

	updated := 0
	for _, u := range updates {
		labels, err := json.Marshal(u.Result.AnchorLabels)
		if err != nil {
			return 0, fmt.Errorf("failed to encode anchor labels: %w", err)
		}
		tag, err := tx.Exec(ctx, query,
			u.ID,
			u.Result.Keep,
			u.Result.Reason,
			u.Result.Score,
			labels,
			u.Result.ActorHit,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to apply gate result: %w", err)
		}
		updated += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit gate results: %w", err)
	}

	r.logger.Debug("gate results applied", "updated", updated)
	return updated, nil
}

func (r *titleRepository) CountPending(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM titles
		WHERE processing_status = 'pending' AND gate_at IS NULL
	`
	var count int
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending titles: %w", err)
	}
	return count, nil
}

func (r *titleRepository) FetchKeptSince(ctx context.Context, since time.Time) ([]domain.Title, error) {
	query := `
		SELECT id, title_display, title_norm, pubdate_utc, gate_actor_hit
		FROM titles
		WHERE gate_keep = TRUE AND pubdate_utc IS NOT NULL AND pubdate_utc >= $1
		ORDER BY pubdate_utc DESC
	`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kept titles: %w", err)
	}
	defer rows.Close()

	var titles []domain.Title
	for rows.Next() {
		var t domain.Title
		if err := rows.Scan(&t.ID, &t.TitleDisplay, &t.TitleNorm, &t.PubDateUTC, &t.GateActorHit); err != nil {
			return nil, fmt.Errorf("failed to scan kept title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kept titles: %w", err)
	}
	return titles, nil
}
