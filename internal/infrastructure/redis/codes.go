package redisstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nft-voting-api/internal/pkg/otp"
	"github.com/redis/go-redis/v9"
)

// consumeCodeLua deletes the pending code only when it matches.
// Returns 1 on match, 0 when absent, -1 on mismatch.
const consumeCodeLua = `
local v = redis.call("GET", KEYS[1])
if not v then
  return 0
end
if v == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return -1
`

// CodeStore keeps login codes as string keys with a native TTL, so expired
// codes disappear without a sweep.
type CodeStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	script *redis.Script
}

func NewCodeStore(rdb *redis.Client, ttl time.Duration) *CodeStore {
	return &CodeStore{rdb: rdb, ttl: ttl, script: redis.NewScript(consumeCodeLua)}
}

func (s *CodeStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := otp.New()
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, codeKey(email), code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

func (s *CodeStore) Verify(ctx context.Context, email, candidate string) (bool, error) {
	n, err := s.script.Run(ctx, s.rdb, []string{codeKey(email)}, candidate).Int()
	if err != nil {
		return false, fmt.Errorf("consume code: %w", err)
	}
	return n == 1, nil
}

func codeKey(email string) string {
	return keyPrefix + "code:" + strings.ToLower(email)
}
