// Package gate batch-evaluates pending titles against the actor vocabulary
// and records the keep/drop decision on each row.
package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/design4music/sni-platform-sub004/internal/actors"
	"github.com/design4music/sni-platform-sub004/internal/domain"
)

const keepScore = 0.99

// Stats aggregates counters across all batches of a gate run.
type Stats struct {
	Processed int
	Kept      int
	ActorHits int
	Errors    int
	Batches   int
	Updated   int
	Duration  time.Duration
}

// Processor walks pending titles in fixed-size batches. Decisions are
// deterministic for a given title and vocabulary.
type Processor struct {
	titles domain.TitleRepository
	vocab  *actors.Vocabulary
	logger *slog.Logger
}

func NewProcessor(titles domain.TitleRepository, vocab *actors.Vocabulary, logger *slog.Logger) *Processor {
	return &Processor{titles: titles, vocab: vocab, logger: logger}
}

// Decide evaluates one title. The normalized title is authoritative; the
// display title is the fallback when normalization produced nothing.
func (p *Processor) Decide(title domain.Title) domain.GateResult {
	text := title.TitleNorm
	if text == "" {
		text = title.TitleDisplay
	}

	if code, ok := p.vocab.FirstHit(text); ok {
		hit := code
		return domain.GateResult{
			Keep:         true,
			Score:        keepScore,
			Reason:       domain.GateReasonActorHit,
			ActorHit:     &hit,
			AnchorLabels: []string{},
			AnchorScores: []float64{},
		}
	}
	return domain.GateResult{
		Keep:         false,
		Score:        0,
		Reason:       domain.GateReasonNoActor,
		AnchorLabels: []string{},
		AnchorScores: []float64{},
	}
}

// Run processes batches until the pending set is exhausted, maxBatches is
// reached or the context is cancelled. The offset advances every iteration,
// including iterations whose batch rolled back.
func (p *Processor) Run(ctx context.Context, batchSize, maxBatches int) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		if maxBatches > 0 && stats.Batches >= maxBatches {
			break
		}

		titles, err := p.titles.FetchPending(ctx, batchSize, offset)
		if err != nil {
			stats.Errors++
			stats.Duration = time.Since(start)
			return stats, err
		}
		if len(titles) == 0 {
			break
		}

		stats.Batches++
		updates := make([]domain.GateUpdate, 0, len(titles))
		kept, hits := 0, 0
		for i := range titles {
			result := p.Decide(titles[i])
			if result.Keep {
				kept++
			}
			if result.Reason == domain.GateReasonActorHit {
				hits++
			}
			updates = append(updates, domain.GateUpdate{ID: titles[i].ID, Result: result})
		}

		updated, err := p.titles.ApplyGateResults(ctx, updates)
		if err != nil {
			stats.Errors++
			p.logger.Error("gate batch rolled back", "offset", offset, "error", err)
			offset += batchSize
			continue
		}

		stats.Processed += len(titles)
		stats.Kept += kept
		stats.ActorHits += hits
		stats.Updated += updated

		p.logger.Info("gate batch processed",
			"batch", stats.Batches,
			"processed", stats.Processed,
			"kept", stats.Kept,
			"actor_hits", stats.ActorHits,
			"errors", stats.Errors,
			"updated", stats.Updated)

		if len(titles) < batchSize {
			break
		}
		offset += batchSize
	}

	stats.Duration = time.Since(start)
	return stats, nil
}
