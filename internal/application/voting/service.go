// Package voting owns the ballot: casting, tallying and reporting votes.
package voting

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/pkg/id"
	"github.com/nft-voting-api/internal/pkg/metrics"
)

const publishTimeout = 5 * time.Second

// Rejection reasons reported on vote_rejections_total.
const (
	RejectInvalidOption = "invalid_option"
	RejectDuplicate     = "duplicate"
	RejectNotEligible   = "not_eligible"
)

type OptionStat struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Votes      int    `json:"votes"`
	Percentage int    `json:"percentage"`
}

type Stats struct {
	TotalUsers    int          `json:"totalUsers"`
	TotalVotes    int          `json:"totalVotes"`
	EligibleUsers int          `json:"eligibleUsers"`
	VotingOptions []OptionStat `json:"votingOptions"`
}

type Service interface {
	HasVoted(ctx context.Context, userID string) (bool, error)
	CastVote(ctx context.Context, userID, optionID string) (*domain.Vote, error)
	UserVote(ctx context.Context, userID string) (*domain.Vote, error)
	Results(ctx context.Context) ([]domain.OptionResult, int, error)
	Stats(ctx context.Context) (*Stats, error)
	ExportCSV(ctx context.Context, w io.Writer, exportedBy string, now time.Time) error
}

type voteStore interface {
	PutIfAbsent(ctx context.Context, v *domain.Vote) error
	GetByUser(ctx context.Context, userID string) (*domain.Vote, error)
	HasVoted(ctx context.Context, userID string) (bool, error)
	CountByOption(ctx context.Context) (map[string]int, error)
	Count(ctx context.Context) (int, error)
}

type userCounter interface {
	Count(ctx context.Context) (int, error)
}

type eventPublisher interface {
	VoteCast(ctx context.Context, v *domain.Vote) error
}

type exportArchiver interface {
	ArchiveExport(ctx context.Context, at time.Time, data []byte) (string, error)
}

type service struct {
	votes   voteStore
	users   userCounter
	options []domain.VotingOption
	byID    map[string]domain.VotingOption
	events  eventPublisher
	archive exportArchiver
	metrics *metrics.Metrics
	now     func() time.Time
}

// ServiceDeps wires the ledger. Events and Archive are optional.
type ServiceDeps struct {
	VoteRepo voteStore
	UserRepo userCounter
	Options  []domain.VotingOption
	Events   eventPublisher
	Archive  exportArchiver
	Metrics  *metrics.Metrics
	Clock    func() time.Time
}

func NewService(deps ServiceDeps) Service {
	byID := make(map[string]domain.VotingOption, len(deps.Options))
	for _, o := range deps.Options {
		byID[o.ID] = o
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		votes:   deps.VoteRepo,
		users:   deps.UserRepo,
		options: deps.Options,
		byID:    byID,
		events:  deps.Events,
		archive: deps.Archive,
		metrics: deps.Metrics,
		now:     now,
	}
}

// ExportFilename is the attachment name for an export taken at now.
func ExportFilename(now time.Time) string {
	return "voting-results-" + now.UTC().Format("2006-01-02") + ".csv"
}

func (s *service) HasVoted(ctx context.Context, userID string) (bool, error) {
	return s.votes.HasVoted(ctx, userID)
}

func (s *service) UserVote(ctx context.Context, userID string) (*domain.Vote, error) {
	return s.votes.GetByUser(ctx, userID)
}

// CastVote records the user's single vote. The option is checked before any
// write; the one-vote rule is enforced by the store's PutIfAbsent.
func (s *service) CastVote(ctx context.Context, userID, optionID string) (*domain.Vote, error) {
	if _, ok := s.byID[optionID]; !ok {
		s.metrics.VoteRejected(RejectInvalidOption)
		return nil, fmt.Errorf("option %q: %w", optionID, domain.ErrInvalidOption)
	}

	now := s.now().UTC()
	v := &domain.Vote{
		VoteID:    id.NewAt(now),
		UserID:    userID,
		OptionID:  optionID,
		CreatedAt: now,
	}
	if err := s.votes.PutIfAbsent(ctx, v); err != nil {
		if errors.Is(err, domain.ErrDuplicateVote) {
			s.metrics.VoteRejected(RejectDuplicate)
		}
		return nil, err
	}
	s.metrics.VoteCast(optionID)
	slog.Info("vote recorded", "user_id", userID, "option_id", optionID, "vote_id", v.VoteID)

	if s.events != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := s.events.VoteCast(pctx, v); err != nil {
			slog.Warn("publish vote event", "vote_id", v.VoteID, "err", err)
		}
	}
	return v, nil
}

// Results returns every option in configured order with baseline plus
// recorded votes, and the sum of those totals.
func (s *service) Results(ctx context.Context) ([]domain.OptionResult, int, error) {
	counts, err := s.votes.CountByOption(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count votes: %w", err)
	}
	out := make([]domain.OptionResult, 0, len(s.options))
	total := 0
	for _, o := range s.options {
		n := o.Votes + counts[o.ID]
		total += n
		out = append(out, domain.OptionResult{
			ID:          o.ID,
			Title:       o.Title,
			Description: o.Description,
			Votes:       n,
		})
	}
	return out, total, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	results, total, err := s.Results(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	voters, err := s.votes.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count voters: %w", err)
	}

	st := &Stats{
		TotalUsers:    users,
		TotalVotes:    total,
		EligibleUsers: voters,
		VotingOptions: make([]OptionStat, 0, len(results)),
	}
	for _, r := range results {
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(r.Votes) / float64(total) * 100))
		}
		st.VotingOptions = append(st.VotingOptions, OptionStat{ID: r.ID, Title: r.Title, Votes: r.Votes, Percentage: pct})
	}
	return st, nil
}

// ExportCSV writes the results report to w. When an archive is configured a
// copy is stored there; archive failures are logged and otherwise ignored.
func (s *service) ExportCSV(ctx context.Context, w io.Writer, exportedBy string, now time.Time) error {
	results, total, err := s.Results(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	votes := make([]int, len(results))
	for i, r := range results {
		votes[i] = r.Votes
	}
	pcts := Percentages(votes)

	records := [][]string{{"Option ID", "Option Title", "Votes", "Percentage"}}
	for i, r := range results {
		records = append(records, []string{r.ID, r.Title, strconv.Itoa(r.Votes), FormatHundredths(pcts[i])})
	}
	records = append(records,
		nil,
		[]string{"TOTAL", "Total Votes", strconv.Itoa(total), "100.00%"},
		nil,
		[]string{"EXPORT_DATE", now.UTC().Format(time.RFC3339), "", ""},
		[]string{"EXPORT_BY", exportedBy, "", ""},
	)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	if s.archive != nil {
		key, err := s.archive.ArchiveExport(ctx, now, buf.Bytes())
		if err != nil {
			slog.Warn("archive export", "err", err)
		} else {
			slog.Info("export archived", "key", key, "by", exportedBy)
		}
	}
	return nil
}

// Percentages splits 100.00% across votes in hundredths of a percent using
// the largest-remainder method, so a non-zero total always sums to 10000.
// Ties on remainder go to the earlier entry.
func Percentages(votes []int) []int {
	out := make([]int, len(votes))
	total := 0
	for _, v := range votes {
		total += v
	}
	if total == 0 {
		return out
	}

	type rem struct{ idx, r int }
	rems := make([]rem, len(votes))
	assigned := 0
	for i, v := range votes {
		out[i] = v * 10000 / total
		rems[i] = rem{idx: i, r: v * 10000 % total}
		assigned += out[i]
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].r > rems[b].r })
	for i := 0; i < 10000-assigned; i++ {
		out[rems[i].idx]++
	}
	return out
}

// FormatHundredths renders 4286 as "42.86%".
func FormatHundredths(h int) string {
	return fmt.Sprintf("%d.%02d%%", h/100, h%100)
}
