package voting

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/infrastructure/memory"
	"github.com/nft-voting-api/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) VoteCast(ctx context.Context, v *domain.Vote) error {
	return m.Called(ctx, v).Error(0)
}

type mockArchiver struct{ mock.Mock }

func (m *mockArchiver) ArchiveExport(ctx context.Context, at time.Time, data []byte) (string, error) {
	args := m.Called(ctx, at, data)
	return args.String(0), args.Error(1)
}

type stubCounter struct {
	n   int
	err error
}

func (s stubCounter) Count(context.Context) (int, error) { return s.n, s.err }

type failingVotes struct{ *memory.VoteRepo }

func (failingVotes) CountByOption(context.Context) (map[string]int, error) {
	return nil, errors.New("store down")
}

var fixedNow = time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, deps ServiceDeps) (Service, *memory.VoteRepo) {
	t.Helper()
	repo := memory.NewVoteRepo()
	if deps.VoteRepo == nil {
		deps.VoteRepo = repo
	}
	if deps.UserRepo == nil {
		deps.UserRepo = stubCounter{}
	}
	if deps.Options == nil {
		deps.Options = domain.DefaultVotingOptions()
	}
	deps.Clock = func() time.Time { return fixedNow }
	return NewService(deps), repo
}

// --- CastVote ---

func TestCastVote_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc, repo := newTestService(t, ServiceDeps{Metrics: m})

	v, err := svc.CastVote(context.Background(), "u1", "2")
	require.NoError(t, err)
	assert.NotEmpty(t, v.VoteID)
	assert.Equal(t, "u1", v.UserID)
	assert.Equal(t, fixedNow, v.CreatedAt)

	voted, err := repo.HasVoted(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, voted)

	results, total, err := svc.Results(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 33, results[1].Votes)
	assert.Equal(t, 106, total)
	series, err := testutil.GatherAndCount(reg, "votes_cast_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestCastVote_InvalidOptionNoMutation(t *testing.T) {
	svc, repo := newTestService(t, ServiceDeps{})

	_, err := svc.CastVote(context.Background(), "u1", "9")
	assert.ErrorIs(t, err, domain.ErrInvalidOption)
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	n, _ := repo.Count(context.Background())
	assert.Zero(t, n)
}

func TestCastVote_SecondVoteRejected(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{})

	_, err := svc.CastVote(context.Background(), "u1", "1")
	require.NoError(t, err)
	_, err = svc.CastVote(context.Background(), "u1", "3")
	assert.ErrorIs(t, err, domain.ErrDuplicateVote)

	v, err := svc.UserVote(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "1", v.OptionID)
}

func TestCastVote_ConcurrentSameUser(t *testing.T) {
	svc, repo := newTestService(t, ServiceDeps{})

	const n = 50
	var (
		wg  sync.WaitGroup
		ok  atomic.Int32
		dup atomic.Int32
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.CastVote(context.Background(), "same-user", "1")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrDuplicateVote):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), dup.Load())
	counts, _ := repo.CountByOption(context.Background())
	assert.Equal(t, 1, counts["1"])
}

func TestCastVote_PublishesEvent(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("VoteCast", mock.Anything, mock.MatchedBy(func(v *domain.Vote) bool {
		return v.UserID == "u1" && v.OptionID == "1"
	})).Return(nil)
	svc, _ := newTestService(t, ServiceDeps{Events: pub})

	_, err := svc.CastVote(context.Background(), "u1", "1")
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestCastVote_PublishFailureIgnored(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("VoteCast", mock.Anything, mock.Anything).Return(errors.New("sns down"))
	svc, repo := newTestService(t, ServiceDeps{Events: pub})

	_, err := svc.CastVote(context.Background(), "u1", "1")
	require.NoError(t, err)
	voted, _ := repo.HasVoted(context.Background(), "u1")
	assert.True(t, voted)
}

// --- Results / Stats ---

func TestResults_BaselineOnly(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{})

	results, total, err := svc.Results(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{results[0].ID, results[1].ID, results[2].ID})
	assert.Equal(t, 45, results[0].Votes)
	assert.Equal(t, 105, total)
}

func TestResults_StoreError(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{VoteRepo: failingVotes{memory.NewVoteRepo()}})
	_, _, err := svc.Results(context.Background())
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{UserRepo: stubCounter{n: 4}})
	_, err := svc.CastVote(context.Background(), "u1", "1")
	require.NoError(t, err)
	_, err = svc.CastVote(context.Background(), "u2", "3")
	require.NoError(t, err)

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalUsers)
	assert.Equal(t, 107, st.TotalVotes)
	assert.Equal(t, 2, st.EligibleUsers)
	require.Len(t, st.VotingOptions, 3)
	assert.Equal(t, OptionStat{ID: "1", Title: "オプション A", Votes: 46, Percentage: 43}, st.VotingOptions[0])
	assert.Equal(t, 30, st.VotingOptions[1].Percentage)
	assert.Equal(t, 27, st.VotingOptions[2].Percentage)
}

func TestStats_ZeroTotal(t *testing.T) {
	opts := []domain.VotingOption{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}}
	svc, _ := newTestService(t, ServiceDeps{Options: opts})

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.TotalVotes)
	for _, o := range st.VotingOptions {
		assert.Zero(t, o.Percentage)
	}
}

// --- Percentages ---

func TestPercentages_SumTo100(t *testing.T) {
	got := Percentages([]int{45, 32, 28})
	assert.Equal(t, []int{4286, 3047, 2667}, got)
	assert.Equal(t, 10000, got[0]+got[1]+got[2])

	thirds := Percentages([]int{1, 1, 1})
	assert.Equal(t, []int{3334, 3333, 3333}, thirds)
}

func TestPercentages_Zero(t *testing.T) {
	assert.Equal(t, []int{0, 0}, Percentages([]int{0, 0}))
	assert.Empty(t, Percentages(nil))
}

func TestFormatHundredths(t *testing.T) {
	assert.Equal(t, "42.86%", FormatHundredths(4286))
	assert.Equal(t, "100.00%", FormatHundredths(10000))
	assert.Equal(t, "0.05%", FormatHundredths(5))
}

// --- ExportCSV ---

func TestExportCSV(t *testing.T) {
	arch := &mockArchiver{}
	arch.On("ArchiveExport", mock.Anything, fixedNow, mock.Anything).Return("exports/x.csv", nil)
	svc, _ := newTestService(t, ServiceDeps{Archive: arch})

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf, "admin@b.com", fixedNow))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Option ID,Option Title,Votes,Percentage\n"))
	assert.Contains(t, out, "1,オプション A,45,42.86%\n")
	assert.Contains(t, out, "2,オプション B,32,30.47%\n")
	assert.Contains(t, out, "3,オプション C,28,26.67%\n")
	assert.Contains(t, out, "\n\nTOTAL,Total Votes,105,100.00%\n\n")
	assert.Contains(t, out, "EXPORT_DATE,2024-06-01T12:30:00Z,,\n")
	assert.Contains(t, out, "EXPORT_BY,admin@b.com,,\n")

	r := csv.NewReader(strings.NewReader(out))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 7)

	arch.AssertCalled(t, "ArchiveExport", mock.Anything, fixedNow, buf.Bytes())
}

func TestExportCSV_ArchiveFailureIgnored(t *testing.T) {
	arch := &mockArchiver{}
	arch.On("ArchiveExport", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("s3 down"))
	svc, _ := newTestService(t, ServiceDeps{Archive: arch})

	var buf bytes.Buffer
	assert.NoError(t, svc.ExportCSV(context.Background(), &buf, "admin@b.com", fixedNow))
	assert.NotZero(t, buf.Len())
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "voting-results-2024-06-01.csv", ExportFilename(fixedNow))
}
