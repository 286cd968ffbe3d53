package domain

import "time"

// FeedState is the per-feed ingestion watermark and cached HTTP validators.
// Identity is the feed URL.
type FeedState struct {
	URL          string
	ETag         string
	LastModified string
	LastPubDate  *time.Time
	LastRunAt    *time.Time
	UpdatedAt    time.Time
}
