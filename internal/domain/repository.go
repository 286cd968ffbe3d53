package domain

import (
	"context"
	"time"
)

// FeedStateRepository owns the feeds relation. Only the fetcher mutates it.
type FeedStateRepository interface {
	// Get returns the stored state for a feed URL, or nil, nil when the
	// feed has never been ingested.
	Get(ctx context.Context, url string) (*FeedState, error)

	// Upsert inserts or replaces the full feed state.
	Upsert(ctx context.Context, state *FeedState) error

	// TouchLastRun advances last_run_at only, leaving validators and the
	// watermark untouched. Used on 304 responses.
	TouchLastRun(ctx context.Context, url string, at time.Time) error
}

// TitleRepository owns title rows. The fetcher inserts, the gate updates,
// the bucket manager only reads.
type TitleRepository interface {
	// InsertBatch inserts candidates in a single transaction. Conflicts on
	// (content_hash, feed_id) are skipped, not errors. Any other failure
	// rolls back the whole batch.
	InsertBatch(ctx context.Context, candidates []TitleCandidate) (inserted, skipped int, err error)

	// FetchPending returns up to limit pending, ungated titles ordered by
	// pubdate_utc descending with offset pagination.
	FetchPending(ctx context.Context, limit, offset int) ([]Title, error)

	// ApplyGateResults writes gate outcomes and transitions rows to gated
	// in a single transaction.
	ApplyGateResults(ctx context.Context, updates []GateUpdate) (updated int, err error)

	// CountPending returns the number of rows still awaiting the gate.
	CountPending(ctx context.Context) (int, error)

	// FetchKeptSince returns gate-kept titles published at or after since,
	// newest first. Rows without a publication time are excluded.
	FetchKeptSince(ctx context.Context, since time.Time) ([]Title, error)
}

// BucketRepository owns buckets and their members.
type BucketRepository interface {
	// Exists reports whether a bucket with the deterministic bucket_id is
	// already persisted.
	Exists(ctx context.Context, bucketID string) (bool, error)

	// InsertWithMembers writes the bucket row and one member row per title
	// UUID in a single transaction.
	InsertWithMembers(ctx context.Context, bucket *Bucket, memberIDs []string) error
}
