package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/design4music/sni-platform-sub004/internal/domain"
)

type feedStateRepository struct {
	db     DB
	logger *slog.Logger
}

// NewFeedStateRepository creates a new FeedStateRepository.
func NewFeedStateRepository(db DB, logger *slog.Logger) domain.FeedStateRepository {
	return &feedStateRepository{db: db, logger: logger}
}

func (r *feedStateRepository) Get(ctx context.Context, url string) (*domain.FeedState, error) {
	query := `
		SELECT url, etag, last_modified, last_pubdate_utc, last_run_at, updated_at
		FROM feeds
		WHERE url = $1
	`
	row := r.db.QueryRow(ctx, query, url)

	var state domain.FeedState
	var etag, lastModified *string
	err := row.Scan(&state.URL, &etag, &lastModified, &state.LastPubDate, &state.LastRunAt, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan feed state: %w", err)
	}
	if etag != nil {
		state.ETag = *etag
	}
	if lastModified != nil {
		state.LastModified = *lastModified
	}
	return &state, nil
}

func (r *feedStateRepository) Upsert(ctx context.Context, state *domain.FeedState) error {
	query := `
		INSERT INTO feeds (url, etag, last_modified, last_pubdate_utc, last_run_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (url) DO UPDATE SET
			etag = EXCLUDED.etag,
			last_modified = EXCLUDED.last_modified,
			last_pubdate_utc = EXCLUDED.last_pubdate_utc,
			last_run_at = EXCLUDED.last_run_at,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		state.URL,
		nullIfEmpty(state.ETag),
		nullIfEmpty(state.LastModified),
		state.LastPubDate,
		state.LastRunAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert feed state: %w", err)
	}
	r.logger.Debug("feed state upserted", "url", state.URL)
	return nil
}

func (r *feedStateRepository) TouchLastRun(ctx context.Context, url string, at time.Time) error {
	// Upsert so a 304 on a feed without a stored row still records the run.
	query := `
		INSERT INTO feeds (url, last_run_at, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (url) DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, url, at)
	if err != nil {
		return fmt.Errorf("failed to touch last run: %w", err)
	}
	return nil
}
