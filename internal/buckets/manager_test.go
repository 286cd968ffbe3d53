package buckets

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/design4music/sni-platform-sub004/internal/actors"
	"github.com/design4music/sni-platform-sub004/internal/domain"
	"github.com/design4music/sni-platform-sub004/internal/infra/config"
)

type fakeTitleStore struct {
	kept  []domain.Title
	since time.Time
}

func (s *fakeTitleStore) FetchKeptSince(_ context.Context, since time.Time) ([]domain.Title, error) {
	s.since = since
	return s.kept, nil
}

func (s *fakeTitleStore) InsertBatch(context.Context, []domain.TitleCandidate) (int, int, error) {
	return 0, 0, nil
}

func (s *fakeTitleStore) FetchPending(context.Context, int, int) ([]domain.Title, error) {
	return nil, nil
}

func (s *fakeTitleStore) ApplyGateResults(context.Context, []domain.GateUpdate) (int, error) {
	return 0, nil
}

func (s *fakeTitleStore) CountPending(context.Context) (int, error) { return 0, nil }

type fakeBucketStore struct {
	existing    map[string]bool
	existsCalls int
	inserted    []*domain.Bucket
	members     map[string][]string
}

func newFakeBucketStore() *fakeBucketStore {
	return &fakeBucketStore{existing: make(map[string]bool), members: make(map[string][]string)}
}

func (s *fakeBucketStore) Exists(_ context.Context, bucketID string) (bool, error) {
	s.existsCalls++
	return s.existing[bucketID], nil
}

func (s *fakeBucketStore) InsertWithMembers(_ context.Context, bucket *domain.Bucket, memberIDs []string) error {
	s.inserted = append(s.inserted, bucket)
	s.members[bucket.BucketID] = memberIDs
	s.existing[bucket.BucketID] = true
	return nil
}

func testVocabulary(t *testing.T) *actors.Vocabulary {
	t.Helper()
	vocab, err := actors.New([]domain.Actor{
		{Code: "US", Aliases: []string{"United States", "USA"}},
		{Code: "CN", Aliases: []string{"China"}},
		{Code: "RU", Aliases: []string{"Russia"}},
		{Code: "EU", Aliases: []string{"European Union"}},
		{Code: "IN", Aliases: []string{"India"}},
	})
	require.NoError(t, err)
	return vocab
}

func defaultBucketConfig() config.BucketConfig {
	return config.BucketConfig{WindowHours: 72, MaxSpanHours: 72, MinSize: 2, MaxActors: 4}
}

func newManager(t *testing.T, titles *fakeTitleStore, buckets *fakeBucketStore, cfg config.BucketConfig) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(titles, buckets, testVocabulary(t), cfg, logger)
	m.now = func() time.Time {
		return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	}
	return m
}

func keptTitle(norm string, pub time.Time) domain.Title {
	p := pub
	return domain.Title{ID: uuid.New(), TitleNorm: norm, PubDateUTC: &p}
}

func TestRunFormsBucketFromActorSet(t *testing.T) {
	// Three titles over a 40-hour span, all mentioning US and CN.
	t1 := keptTitle("china and united states open trade talks", time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC))
	t2 := keptTitle("united states warns china over exports", time.Date(2026, 8, 23, 20, 0, 0, 0, time.UTC))
	t3 := keptTitle("china responds to united states tariffs", time.Date(2026, 8, 24, 2, 0, 0, 0, time.UTC))

	titles := &fakeTitleStore{kept: []domain.Title{t3, t2, t1}}
	store := newFakeBucketStore()
	m := newManager(t, titles, store, defaultBucketConfig())

	stats, err := m.Run(context.Background(), 72, false)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Titles)
	assert.Equal(t, 1, stats.Candidates)
	assert.Equal(t, 1, stats.Inserted)
	assert.Zero(t, stats.Skipped)
	assert.Zero(t, stats.Errors)

	require.Len(t, store.inserted, 1)
	bucket := store.inserted[0]
	assert.Equal(t, "B-2026-08-22-CN-US", bucket.BucketID)
	assert.Equal(t, []string{"CN", "US"}, bucket.TopActors)
	assert.Equal(t, 3, bucket.MembersCount)
	assert.Nil(t, bucket.MechanismHint)
	assert.True(t, bucket.DateWindowStart.Equal(*t1.PubDateUTC))
	assert.True(t, bucket.DateWindowEnd.Equal(*t3.PubDateUTC))

	ids := []string{t1.ID.String(), t2.ID.String(), t3.ID.String()}
	sort.Strings(ids)
	sum := md5.Sum([]byte(strings.Join(ids, "|")))
	assert.Equal(t, hex.EncodeToString(sum[:]), bucket.MembersChecksum)

	// Window lower bound derives from now - hours.
	assert.True(t, titles.since.Equal(time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)))
}

func TestRunSkipsExistingBucket(t *testing.T) {
	t1 := keptTitle("china and united states open trade talks", time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC))
	t2 := keptTitle("united states warns china over exports", time.Date(2026, 8, 23, 20, 0, 0, 0, time.UTC))

	titles := &fakeTitleStore{kept: []domain.Title{t2, t1}}
	store := newFakeBucketStore()
	store.existing["B-2026-08-22-CN-US"] = true
	m := newManager(t, titles, store, defaultBucketConfig())

	stats, err := m.Run(context.Background(), 0, false)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Candidates)
	assert.Zero(t, stats.Inserted)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, store.inserted)
}

func TestRunIsIdempotent(t *testing.T) {
	t1 := keptTitle("china and united states open trade talks", time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC))
	t2 := keptTitle("united states warns china over exports", time.Date(2026, 8, 23, 20, 0, 0, 0, time.UTC))

	titles := &fakeTitleStore{kept: []domain.Title{t2, t1}}
	store := newFakeBucketStore()
	m := newManager(t, titles, store, defaultBucketConfig())

	first, err := m.Run(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	second, err := m.Run(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, store.inserted, 1)
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	t1 := keptTitle("china and united states open trade talks", time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC))
	t2 := keptTitle("united states warns china over exports", time.Date(2026, 8, 23, 20, 0, 0, 0, time.UTC))

	titles := &fakeTitleStore{kept: []domain.Title{t2, t1}}
	store := newFakeBucketStore()
	m := newManager(t, titles, store, defaultBucketConfig())

	stats, err := m.Run(context.Background(), 0, true)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Candidates)
	assert.Zero(t, stats.Inserted)
	assert.Zero(t, store.existsCalls)
	assert.Empty(t, store.inserted)
}

func TestBuildCandidatesRejectsSmallGroups(t *testing.T) {
	lone := keptTitle("russia announces new pipeline", time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC))
	m := newManager(t, &fakeTitleStore{}, newFakeBucketStore(), defaultBucketConfig())

	candidates := m.buildCandidates([]domain.Title{lone})
	assert.Empty(t, candidates)
}

func TestBuildCandidatesRejectsWideSpan(t *testing.T) {
	t1 := keptTitle("russia and china sign agreement", time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC))
	t2 := keptTitle("china hosts russia delegation", time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))

	m := newManager(t, &fakeTitleStore{}, newFakeBucketStore(), defaultBucketConfig())

	// 120 hours apart with a 72-hour cap.
	candidates := m.buildCandidates([]domain.Title{t1, t2})
	assert.Empty(t, candidates)
}

func TestBuildCandidatesDropsNilPubdates(t *testing.T) {
	t1 := keptTitle("russia and china sign agreement", time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC))
	t2 := keptTitle("china hosts russia delegation", time.Date(2026, 8, 23, 18, 0, 0, 0, time.UTC))
	t3 := domain.Title{ID: uuid.New(), TitleNorm: "russia china pact without date"}

	m := newManager(t, &fakeTitleStore{}, newFakeBucketStore(), defaultBucketConfig())

	candidates := m.buildCandidates([]domain.Title{t1, t2, t3})
	require.Len(t, candidates, 1)
	assert.Len(t, candidates[0].MemberIDs, 2)
	assert.NotContains(t, candidates[0].MemberIDs, t3.ID.String())
}

func TestActorKey(t *testing.T) {
	m := newManager(t, &fakeTitleStore{}, newFakeBucketStore(), defaultBucketConfig())

	t.Run("sorted and joined", func(t *testing.T) {
		title := keptTitle("united states warns china", time.Now().UTC())
		key, set := m.actorKey(&title)
		assert.Equal(t, "CN-US", key)
		assert.Equal(t, []string{"CN", "US"}, set)
	})

	t.Run("stored gate hit is prepended when missing", func(t *testing.T) {
		hit := "RU"
		title := domain.Title{ID: uuid.New(), TitleNorm: "нефтяной экспорт вырос", GateActorHit: &hit}
		key, set := m.actorKey(&title)
		assert.Equal(t, "RU", key)
		assert.Equal(t, []string{"RU"}, set)
	})

	t.Run("stored gate hit already present is not duplicated", func(t *testing.T) {
		hit := "CN"
		title := keptTitle("china and united states meet", time.Now().UTC())
		title.GateActorHit = &hit
		key, _ := m.actorKey(&title)
		assert.Equal(t, "CN-US", key)
	})

	t.Run("truncates to max actors", func(t *testing.T) {
		title := keptTitle("united states china russia european union india summit", time.Now().UTC())
		key, set := m.actorKey(&title)
		assert.Equal(t, "CN-EU-IN-RU", key)
		assert.Len(t, set, 4)
	})

	t.Run("no actors yields empty key", func(t *testing.T) {
		title := keptTitle("quarterly earnings beat expectations", time.Now().UTC())
		key, set := m.actorKey(&title)
		assert.Empty(t, key)
		assert.Nil(t, set)
	})
}

func TestMembersChecksumOrderIndependent(t *testing.T) {
	a := uuid.NewString()
	b := uuid.NewString()
	c := uuid.NewString()

	first := membersChecksum([]string{a, b, c})
	second := membersChecksum([]string{c, a, b})
	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}
