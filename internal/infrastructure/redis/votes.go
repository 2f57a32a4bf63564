package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nft-voting-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// castVoteLua records a vote and bumps the option tally in one step.
// KEYS: votes hash, tally hash. ARGV: user id, vote json, option id.
const castVoteLua = `
if redis.call("HSETNX", KEYS[1], ARGV[1], ARGV[2]) == 0 then
  return 0
end
redis.call("HINCRBY", KEYS[2], ARGV[3], 1)
return 1
`

var (
	votesKey = keyPrefix + "votes"
	tallyKey = keyPrefix + "tally"
)

// VoteRepo stores one JSON vote per user in a hash and keeps per-option
// counters alongside.
type VoteRepo struct {
	rdb    *redis.Client
	script *redis.Script
}

func NewVoteRepo(rdb *redis.Client) *VoteRepo {
	return &VoteRepo{rdb: rdb, script: redis.NewScript(castVoteLua)}
}

func (r *VoteRepo) PutIfAbsent(ctx context.Context, v *domain.Vote) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal vote: %w", err)
	}
	n, err := r.script.Run(ctx, r.rdb, []string{votesKey, tallyKey}, v.UserID, body, v.OptionID).Int()
	if err != nil {
		return fmt.Errorf("cast vote: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", v.UserID, domain.ErrDuplicateVote)
	}
	return nil
}

func (r *VoteRepo) GetByUser(ctx context.Context, userID string) (*domain.Vote, error) {
	raw, err := r.rdb.HGet(ctx, votesKey, userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("vote for %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var v domain.Vote
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode vote: %w", err)
	}
	return &v, nil
}

func (r *VoteRepo) HasVoted(ctx context.Context, userID string) (bool, error) {
	return r.rdb.HExists(ctx, votesKey, userID).Result()
}

func (r *VoteRepo) CountByOption(ctx context.Context) (map[string]int, error) {
	raw, err := r.rdb.HGetAll(ctx, tallyKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(raw))
	for opt, s := range raw {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("tally for %s: %w", opt, err)
		}
		out[opt] = n
	}
	return out, nil
}

func (r *VoteRepo) Count(ctx context.Context) (int, error) {
	n, err := r.rdb.HLen(ctx, votesKey).Result()
	return int(n), err
}
