package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bucket groups gated titles that share an actor set within a bounded time
// window. BucketID is deterministic: "B-YYYY-MM-DD-<ACTOR_SET_KEY>" with the
// window-start date and the sorted, truncated, hyphen-joined actor codes.
type Bucket struct {
	ID              uuid.UUID
	BucketID        string
	TopActors       []string
	DateWindowStart time.Time
	DateWindowEnd   time.Time
	MechanismHint   *string
	MembersCount    int
	MembersChecksum string
	CreatedAt       time.Time
}

// BucketCandidate is a bucket before persistence. MemberIDs preserve the
// input ordering of the grouped titles.
type BucketCandidate struct {
	Actors      []string
	Key         string
	WindowStart time.Time
	WindowEnd   time.Time
	MemberIDs   []string
}
