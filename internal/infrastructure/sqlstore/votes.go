package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nft-voting-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepo relies on the unique index on votes.user_id for the
// one-vote-per-user rule.
type VoteRepo struct {
	db *gorm.DB
}

func NewVoteRepo(db *gorm.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

func (r *VoteRepo) PutIfAbsent(ctx context.Context, v *domain.Vote) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(v)
	if res.Error != nil {
		return fmt.Errorf("insert vote: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", v.UserID, domain.ErrDuplicateVote)
	}
	return nil
}

func (r *VoteRepo) GetByUser(ctx context.Context, userID string) (*domain.Vote, error) {
	var v domain.Vote
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("vote for %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VoteRepo) HasVoted(ctx context.Context, userID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Vote{}).Where("user_id = ?", userID).Count(&n).Error
	return n > 0, err
}

func (r *VoteRepo) CountByOption(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		OptionID string
		N        int
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Vote{}).
		Select("option_id, COUNT(*) AS n").
		Group("option_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.OptionID] = row.N
	}
	return out, nil
}

func (r *VoteRepo) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Vote{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}
