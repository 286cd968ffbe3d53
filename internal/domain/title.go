package domain

import (
	"time"

	"github.com/google/uuid"
)

// Processing status values for title rows.
const (
	StatusPending = "pending"
	StatusGated   = "gated"
)

// Gate decision reasons.
const (
	GateReasonActorHit = "actor_hit"
	GateReasonNoActor  = "no_actor"
)

// Title is a persisted title row. Nullable columns map to pointers.
type Title struct {
	ID                 uuid.UUID
	FeedID             string
	TitleOriginal      string
	TitleDisplay       string
	TitleNorm          string
	URLGnews           string
	PublisherName      string
	PublisherDomain    string
	PubDateUTC         *time.Time
	DetectedLanguage   *string
	LanguageConfidence float64
	ContentHash        string
	ProcessingStatus   string
	IngestedAt         time.Time
	CreatedAt          time.Time
	GateKeep           *bool
	GateReason         *string
	GateScore          *float64
	GateAnchorLabels   []string
	GateActorHit       *string
	GateAt             *time.Time
}

// TitleCandidate is an insertion row produced by the fetcher. The store
// mints the surrogate UUID and stamps created_at.
type TitleCandidate struct {
	FeedID             string
	TitleOriginal      string
	TitleDisplay       string
	TitleNorm          string
	URLGnews           string
	PublisherName      string
	PublisherDomain    string
	PubDateUTC         *time.Time
	DetectedLanguage   *string
	LanguageConfidence float64
	ContentHash        string
	ProcessingStatus   string
	IngestedAt         time.Time
}

// GateResult is the gate decision for a single title. AnchorLabels and
// AnchorScores are legacy schema fields and stay empty.
type GateResult struct {
	Keep         bool
	Score        float64
	Reason       string
	ActorHit     *string
	AnchorLabels []string
	AnchorScores []float64
}

// GateUpdate pairs a title row with its gate decision for persistence.
type GateUpdate struct {
	ID     uuid.UUID
	Result GateResult
}
