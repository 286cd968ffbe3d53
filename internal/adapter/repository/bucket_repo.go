package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/design4music/sni-platform-sub004/internal/domain"
)

type bucketRepository struct {
	db     DB
	logger *slog.Logger
}

// NewBucketRepository creates a new BucketRepository.
func NewBucketRepository(db DB, logger *slog.Logger) domain.BucketRepository {
	return &bucketRepository{db: db, logger: logger}
}

func (r *bucketRepository) Exists(ctx context.Context, bucketID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM buckets WHERE bucket_id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, bucketID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	return exists, nil
}

// InsertWithMembers writes the bucket row and its member rows in one
// transaction.
func (r *bucketRepository) InsertWithMembers(ctx context.Context, bucket *domain.Bucket, memberIDs []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	actors, err := json.Marshal(bucket.TopActors)
	if err != nil {
		return fmt.Errorf("failed to encode top actors: %w", err)
	}

	bucketQuery := `
		INSERT INTO buckets (
			id, bucket_id, date_window_start, date_window_end, top_actors,
			mechanism_hint, members_count, members_checksum, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	_, err = tx.Exec(ctx, bucketQuery,
		bucket.ID,
		bucket.BucketID,
		bucket.DateWindowStart,
		bucket.DateWindowEnd,
		actors,
		bucket.MechanismHint,
		bucket.MembersCount,
		bucket.MembersChecksum,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bucket: %w", err)
	}

	memberQuery := `
		INSERT INTO bucket_members (bucket_id, title_id, added_at)
		VALUES ($1, $2, NOW())
	`
	for _, titleID := range memberIDs {
		if _, err := tx.Exec(ctx, memberQuery, bucket.ID, titleID); err != nil {
			return fmt.Errorf("failed to insert bucket member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bucket: %w", err)
	}

	r.logger.Debug("bucket inserted", "bucket_id", bucket.BucketID, "members", len(memberIDs))
	return nil
}
