package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/design4music/sni-platform-sub004/internal/domain"
)

func TestBucketExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBucketRepository(mock, testLogger())

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("B-2026-08-23-CN-US").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "B-2026-08-23-CN-US")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBucketExistsFalse(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBucketRepository(mock, testLogger())

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("B-2026-08-23-EU-RU").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.Exists(context.Background(), "B-2026-08-23-EU-RU")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWithMembers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBucketRepository(mock, testLogger())

	windowStart := time.Date(2026, 8, 23, 6, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC)
	bucket := &domain.Bucket{
		ID:              uuid.New(),
		BucketID:        "B-2026-08-23-CN-US",
		TopActors:       []string{"CN", "US"},
		DateWindowStart: windowStart,
		DateWindowEnd:   windowEnd,
		MembersCount:    2,
		MembersChecksum: "0123456789abcdef0123456789abcdef",
	}
	memberA := uuid.NewString()
	memberB := uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO buckets").
		WithArgs(bucket.ID, bucket.BucketID, windowStart, windowEnd,
			[]byte(`["CN","US"]`), (*string)(nil), 2, bucket.MembersChecksum).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO bucket_members").
		WithArgs(bucket.ID, memberA).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO bucket_members").
		WithArgs(bucket.ID, memberB).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = repo.InsertWithMembers(context.Background(), bucket, []string{memberA, memberB})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWithMembersRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBucketRepository(mock, testLogger())

	bucket := &domain.Bucket{
		ID:       uuid.New(),
		BucketID: "B-2026-08-23-CN-US",
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO buckets").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = repo.InsertWithMembers(context.Background(), bucket, []string{uuid.NewString()})
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWithMembersMemberError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBucketRepository(mock, testLogger())

	bucket := &domain.Bucket{
		ID:           uuid.New(),
		BucketID:     "B-2026-08-23-EU-UA",
		TopActors:    []string{"EU", "UA"},
		MembersCount: 1,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO buckets").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO bucket_members").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = repo.InsertWithMembers(context.Background(), bucket, []string{uuid.NewString()})
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
