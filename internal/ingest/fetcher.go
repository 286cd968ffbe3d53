// Package ingest polls RSS/Atom feeds with conditional GET, normalizes
// entry titles and inserts them as pending rows for the gate.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/design4music/sni-platform-sub004/internal/domain"
	"github.com/design4music/sni-platform-sub004/internal/infra/config"
	"github.com/design4music/sni-platform-sub004/internal/langdetect"
	"github.com/design4music/sni-platform-sub004/internal/normalizer"
	"github.com/design4music/sni-platform-sub004/internal/ratelimit"
	"github.com/design4music/sni-platform-sub004/internal/retry"
	"github.com/design4music/sni-platform-sub004/internal/robots"
)

const maxFeedBody = 10 * 1024 * 1024

// ErrRobotsDisallowed marks a feed skipped because the host's robots.txt
// forbids fetching it.
var ErrRobotsDisallowed = errors.New("robots.txt disallows feed")

// HTTPStatusError reports a non-2xx, non-304 response.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// isRetryableFetchError treats 5xx and 429 responses plus network errors as
// transient. Other HTTP statuses are permanent.
func isRetryableFetchError(err error) bool {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// FeedResult carries per-feed counters for one ingestion pass.
type FeedResult struct {
	URL         string
	Fetched     int
	Inserted    int
	Skipped     int
	NotModified bool
	Duration    time.Duration
}

// RunStats aggregates counters across all feeds of a run.
type RunStats struct {
	Processed int
	Success   int
	Failed    int
	Inserted  int
	Skipped   int
	Duration  time.Duration
}

// Fetcher ingests feeds one at a time. It is not safe for concurrent use;
// run one Fetcher per process.
type Fetcher struct {
	client    *http.Client
	parser    *gofeed.Parser
	feeds     domain.FeedStateRepository
	titles    domain.TitleRepository
	limiter   *ratelimit.HostLimiter
	robots    *robots.Checker
	retrier   *retry.Retrier
	userAgent string
	lookback  time.Duration
	maxItems  int
	logger    *slog.Logger
	now       func() time.Time
}

// NewFetcher wires the ingestion service. robotsChecker may be nil when
// robots checking is disabled.
func NewFetcher(
	client *http.Client,
	feeds domain.FeedStateRepository,
	titles domain.TitleRepository,
	limiter *ratelimit.HostLimiter,
	robotsChecker *robots.Checker,
	cfg *config.Config,
	logger *slog.Logger,
) *Fetcher {
	parser := gofeed.NewParser()
	parser.RSSTranslator = newSourceTranslator()

	retrier := retry.NewRetrier(retry.RetryConfig{
		MaxAttempts:   cfg.HTTP.MaxAttempts,
		BaseDelay:     cfg.HTTP.BaseDelay,
		MaxDelay:      cfg.HTTP.MaxDelay,
		BackoffFactor: cfg.HTTP.BackoffFactor,
		JitterFactor:  cfg.HTTP.JitterFactor,
	}, isRetryableFetchError, logger)

	return &Fetcher{
		client:    client,
		parser:    parser,
		feeds:     feeds,
		titles:    titles,
		limiter:   limiter,
		robots:    robotsChecker,
		retrier:   retrier,
		userAgent: cfg.HTTP.UserAgent,
		lookback:  time.Duration(cfg.Ingest.LookbackDays) * 24 * time.Hour,
		maxItems:  cfg.Ingest.MaxItemsPerFeed,
		logger:    logger,
		now:       time.Now,
	}
}

// Run ingests the given feeds sequentially. Per-feed failures are counted
// and logged; only context cancellation stops the run early.
func (f *Fetcher) Run(ctx context.Context, feedURLs []string, maxFeeds int) (*RunStats, error) {
	start := f.now()
	if maxFeeds > 0 && len(feedURLs) > maxFeeds {
		feedURLs = feedURLs[:maxFeeds]
	}

	stats := &RunStats{}
	for _, feedURL := range feedURLs {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		stats.Processed++
		result, err := f.FetchFeed(ctx, feedURL)
		if err != nil {
			stats.Failed++
			// A timed-out feed is a per-feed failure; only the driver's own
			// cancellation stops the run.
			if ctx.Err() != nil {
				stats.Duration = time.Since(start)
				return stats, ctx.Err()
			}
			f.logger.Error("feed ingestion failed", "url", feedURL, "error", err)
			continue
		}

		stats.Success++
		stats.Inserted += result.Inserted
		stats.Skipped += result.Skipped
	}

	stats.Duration = time.Since(start)
	f.logger.Info("ingestion run finished",
		"processed", stats.Processed,
		"success", stats.Success,
		"failed", stats.Failed,
		"inserted", stats.Inserted,
		"skipped", stats.Skipped,
		"duration", stats.Duration)
	return stats, nil
}

// FetchFeed runs one conditional fetch-parse-insert pass for a single feed.
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) (*FeedResult, error) {
	start := time.Now()
	result := &FeedResult{URL: feedURL}

	parsed, err := url.Parse(feedURL)
	if err != nil {
		return result, fmt.Errorf("failed to parse feed url: %w", err)
	}

	if f.robots != nil && !f.robots.Allowed(ctx, parsed) {
		return result, ErrRobotsDisallowed
	}

	state, err := f.feeds.Get(ctx, feedURL)
	if err != nil {
		return result, fmt.Errorf("failed to load feed state: %w", err)
	}

	if err := f.limiter.Wait(ctx, parsed.Host); err != nil {
		return result, err
	}

	resp, err := f.fetch(ctx, feedURL, state)
	if err != nil {
		return result, err
	}

	now := f.now().UTC()
	if resp.notModified {
		// Validators and watermark stay untouched; only the run marker moves.
		if err := f.feeds.TouchLastRun(ctx, feedURL, now); err != nil {
			return result, err
		}
		result.NotModified = true
		result.Duration = time.Since(start)
		f.logger.Info("feed not modified", "url", feedURL)
		return result, nil
	}

	feed, err := f.parser.ParseString(string(resp.body))
	if err != nil {
		return result, fmt.Errorf("failed to parse feed: %w", err)
	}

	candidates, maxPub := f.buildCandidates(feed, feedURL, state, now, result)

	inserted, skipped, err := f.titles.InsertBatch(ctx, candidates)
	if err != nil {
		return result, err
	}
	result.Inserted = inserted
	result.Skipped = skipped

	if err := f.feeds.Upsert(ctx, nextState(state, feedURL, resp, maxPub, now)); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	f.logger.Info("feed ingested",
		"url", feedURL,
		"fetched", result.Fetched,
		"inserted", inserted,
		"skipped", skipped,
		"duration", result.Duration)
	return result, nil
}

type fetchResponse struct {
	body         []byte
	etag         string
	lastModified string
	notModified  bool
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string, state *domain.FeedState) (*fetchResponse, error) {
	var out *fetchResponse
	err := f.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("User-Agent", f.userAgent)
		if state != nil && state.ETag != "" {
			req.Header.Set("If-None-Match", state.ETag)
		}
		if state != nil && state.LastModified != "" {
			req.Header.Set("If-Modified-Since", state.LastModified)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch feed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotModified {
			out = &fetchResponse{notModified: true}
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return &HTTPStatusError{StatusCode: resp.StatusCode, URL: feedURL}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
		if err != nil {
			return fmt.Errorf("failed to read feed body: %w", err)
		}
		out = &fetchResponse{
			body:         body,
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fetcher) buildCandidates(
	feed *gofeed.Feed,
	feedURL string,
	state *domain.FeedState,
	now time.Time,
	result *FeedResult,
) ([]domain.TitleCandidate, *time.Time) {
	var watermark *time.Time
	if state != nil && state.LastPubDate != nil {
		w := state.LastPubDate.Add(-f.lookback)
		watermark = &w
	}

	fallbackName := strings.TrimSpace(feed.Title)
	fallbackDomain := hostOf(feedURL)

	var candidates []domain.TitleCandidate
	var maxPub *time.Time
	for _, item := range feed.Items {
		result.Fetched++

		raw := strings.TrimSpace(item.Title)
		if raw == "" {
			f.logger.Debug("skipping entry with empty title", "url", feedURL)
			continue
		}

		pub := entryPubDate(item)
		if watermark != nil && pub != nil && pub.Before(*watermark) {
			continue
		}

		name, publisherDomain := publisherOf(item, fallbackName, fallbackDomain)
		display := normalizer.DisplayTitle(raw, name)
		titleNorm := normalizer.NormTitle(display)
		lang, confidence := langdetect.Detect(display)

		candidates = append(candidates, domain.TitleCandidate{
			FeedID:             feedURL,
			TitleOriginal:      raw,
			TitleDisplay:       display,
			TitleNorm:          titleNorm,
			URLGnews:           strings.TrimSpace(item.Link),
			PublisherName:      name,
			PublisherDomain:    publisherDomain,
			PubDateUTC:         pub,
			DetectedLanguage:   lang,
			LanguageConfidence: confidence,
			ContentHash:        normalizer.ContentHash(titleNorm, publisherDomain),
			ProcessingStatus:   domain.StatusPending,
			IngestedAt:         now,
		})

		if pub != nil && (maxPub == nil || pub.After(*maxPub)) {
			maxPub = pub
		}
		if f.maxItems > 0 && len(candidates) >= f.maxItems {
			break
		}
	}
	return candidates, maxPub
}

// nextState merges the response validators and observed watermark into the
// stored state. Validators fall back to stored values when the response
// omits them; the watermark never regresses.
func nextState(prev *domain.FeedState, feedURL string, resp *fetchResponse, maxPub *time.Time, now time.Time) *domain.FeedState {
	next := &domain.FeedState{URL: feedURL, LastRunAt: &now}
	if prev != nil {
		next.ETag = prev.ETag
		next.LastModified = prev.LastModified
		next.LastPubDate = prev.LastPubDate
	}
	if resp.etag != "" {
		next.ETag = resp.etag
	}
	if resp.lastModified != "" {
		next.LastModified = resp.lastModified
	}
	if maxPub != nil && (next.LastPubDate == nil || maxPub.After(*next.LastPubDate)) {
		next.LastPubDate = maxPub
	}
	return next
}

func entryPubDate(item *gofeed.Item) *time.Time {
	ts := item.PublishedParsed
	if ts == nil {
		ts = item.UpdatedParsed
	}
	if ts == nil {
		return nil
	}
	utc := ts.UTC()
	return &utc
}

// publisherOf resolves the entry's real publisher. Google News feeds carry
// it in the per-item <source> element; everything else falls back to the
// channel title and feed host.
func publisherOf(item *gofeed.Item, fallbackName, fallbackDomain string) (string, string) {
	name := strings.TrimSpace(item.Custom[sourceTitleKey])
	if name == "" {
		return fallbackName, fallbackDomain
	}

	publisherDomain := fallbackDomain
	if href := strings.TrimSpace(item.Custom[sourceURLKey]); href != "" {
		if u, err := url.Parse(href); err == nil && u.Hostname() != "" {
			publisherDomain = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		}
	}
	return name, publisherDomain
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
