// Package buckets groups gated titles into time-windowed clusters keyed by
// the set of actors they mention.
package buckets

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/design4music/sni-platform-sub004/internal/actors"
	"github.com/design4music/sni-platform-sub004/internal/domain"
	"github.com/design4music/sni-platform-sub004/internal/infra/config"
)

// Stats aggregates counters for one bucket run.
type Stats struct {
	Titles     int
	Candidates int
	Inserted   int
	Skipped    int
	Errors     int
	Duration   time.Duration
}

// Manager builds buckets from recently gated titles. Bucket identifiers are
// deterministic, so re-running over an unchanged candidate set inserts
// nothing new.
type Manager struct {
	titles  domain.TitleRepository
	buckets domain.BucketRepository
	vocab   *actors.Vocabulary
	cfg     config.BucketConfig
	logger  *slog.Logger
	now     func() time.Time
}

func NewManager(
	titles domain.TitleRepository,
	buckets domain.BucketRepository,
	vocab *actors.Vocabulary,
	cfg config.BucketConfig,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		titles:  titles,
		buckets: buckets,
		vocab:   vocab,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Run selects kept titles inside the window, groups them by actor-set key
// and persists one bucket per surviving group. windowHours <= 0 falls back
// to the configured window. Dry-run reports candidates without writing.
func (m *Manager) Run(ctx context.Context, windowHours int, dryRun bool) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	hours := windowHours
	if hours <= 0 {
		hours = m.cfg.WindowHours
	}
	since := m.now().UTC().Add(-time.Duration(hours) * time.Hour)

	titles, err := m.titles.FetchKeptSince(ctx, since)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch kept titles: %w", err)
	}
	stats.Titles = len(titles)

	candidates := m.buildCandidates(titles)
	stats.Candidates = len(candidates)

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		cand := &candidates[i]
		bucketID := "B-" + cand.WindowStart.Format("2006-01-02") + "-" + cand.Key

		if dryRun {
			m.logger.Info("bucket candidate",
				"bucket_id", bucketID,
				"members", len(cand.MemberIDs),
				"dry_run", true)
			continue
		}

		exists, err := m.buckets.Exists(ctx, bucketID)
		if err != nil {
			stats.Errors++
			m.logger.Error("bucket existence check failed", "bucket_id", bucketID, "error", err)
			continue
		}
		if exists {
			stats.Skipped++
			continue
		}

		bucket := &domain.Bucket{
			ID:              uuid.New(),
			BucketID:        bucketID,
			TopActors:       cand.Actors,
			DateWindowStart: cand.WindowStart,
			DateWindowEnd:   cand.WindowEnd,
			MembersCount:    len(cand.MemberIDs),
			MembersChecksum: membersChecksum(cand.MemberIDs),
		}
		if err := m.buckets.InsertWithMembers(ctx, bucket, cand.MemberIDs); err != nil {
			stats.Errors++
			m.logger.Error("bucket insert failed", "bucket_id", bucketID, "error", err)
			continue
		}

		stats.Inserted++
		m.logger.Info("bucket created", "bucket_id", bucketID, "members", len(cand.MemberIDs))
	}

	stats.Duration = time.Since(start)
	m.logger.Info("bucket run finished",
		"titles", stats.Titles,
		"candidates", stats.Candidates,
		"inserted", stats.Inserted,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"duration", stats.Duration)
	return stats, nil
}

// buildCandidates groups titles by actor-set key and applies the size and
// span limits. Member order follows the input ordering.
func (m *Manager) buildCandidates(titles []domain.Title) []domain.BucketCandidate {
	type group struct {
		actors  []string
		members []domain.Title
	}
	groups := make(map[string]*group)
	var order []string

	for i := range titles {
		key, actorSet := m.actorKey(&titles[i])
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{actors: actorSet}
			groups[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, titles[i])
	}

	var candidates []domain.BucketCandidate
	for _, key := range order {
		g := groups[key]

		var members []domain.Title
		for _, t := range g.members {
			if t.PubDateUTC == nil {
				continue
			}
			members = append(members, t)
		}
		if len(members) < m.cfg.MinSize {
			continue
		}

		windowStart := members[0].PubDateUTC.UTC()
		windowEnd := windowStart
		for _, t := range members[1:] {
			pub := t.PubDateUTC.UTC()
			if pub.Before(windowStart) {
				windowStart = pub
			}
			if pub.After(windowEnd) {
				windowEnd = pub
			}
		}
		if windowEnd.Sub(windowStart) > time.Duration(m.cfg.MaxSpanHours)*time.Hour {
			m.logger.Debug("bucket group rejected, span too wide",
				"key", key,
				"span", windowEnd.Sub(windowStart))
			continue
		}

		memberIDs := make([]string, 0, len(members))
		for _, t := range members {
			memberIDs = append(memberIDs, t.ID.String())
		}

		candidates = append(candidates, domain.BucketCandidate{
			Actors:      g.actors,
			Key:         key,
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			MemberIDs:   memberIDs,
		})
	}
	return candidates
}

// actorKey derives the canonical actor-set key for one title: full matcher
// hits plus the stored gate hit, deduplicated, sorted, truncated and
// hyphen-joined.
func (m *Manager) actorKey(t *domain.Title) (string, []string) {
	text := t.TitleNorm
	if text == "" {
		text = t.TitleDisplay
	}

	hits := m.vocab.AllHits(text)
	if t.GateActorHit != nil && *t.GateActorHit != "" && !containsCode(hits, *t.GateActorHit) {
		hits = append([]string{*t.GateActorHit}, hits...)
	}
	if len(hits) == 0 {
		return "", nil
	}

	seen := make(map[string]bool, len(hits))
	uniq := make([]string, 0, len(hits))
	for _, h := range hits {
		if seen[h] {
			continue
		}
		seen[h] = true
		uniq = append(uniq, h)
	}
	sort.Strings(uniq)
	if len(uniq) > m.cfg.MaxActors {
		uniq = uniq[:m.cfg.MaxActors]
	}
	return strings.Join(uniq, "-"), uniq
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// membersChecksum is the MD5 hex digest of the sorted member UUIDs joined
// with "|". It is order-independent and stable across re-runs.
func membersChecksum(memberIDs []string) string {
	sorted := append([]string(nil), memberIDs...)
	sort.Strings(sorted)
	sum := md5.Sum([]byte(strings.Join(sorted, "|")))
	return hex.EncodeToString(sum[:])
}
